// Package planar builds a planar graph from straight line segments and
// extracts its bounded faces as patches.
//
// The graph is an indexed arena: nodes and edges are plain records
// referenced by integer id, with incidence lists stored as index slices.
// This avoids cyclic ownership entirely and keeps iteration order
// deterministic.
//
// # Pipeline position
//
// The builder is the first stage of the piecework pipeline. It snaps
// near-coincident segment endpoints within a tolerance, rejects
// degenerate input, and hands a Graph to face extraction, which walks
// minimal closed faces using angular ordering at each node.
package planar

import (
	"math"

	"github.com/quiltlab/piecework/pkg/errors"
	"github.com/quiltlab/piecework/pkg/geom"
)

// DefaultSnapTolerance is the default endpoint snapping tolerance in
// drawing units.
const DefaultSnapTolerance = 1e-6

// Node is a unique snapped point in the planar graph. Incident edges are
// stored as indices into the graph's edge arena, kept in insertion order
// until face extraction sorts them by angle.
type Node struct {
	P     geom.Point
	Edges []int
}

// Edge is an undirected straight connection between two distinct nodes.
// Source carries the index of the input segment it came from, for
// diagnostics.
type Edge struct {
	A, B   int
	Source int
}

// Other returns the node id at the opposite end from n.
func (e Edge) Other(n int) int {
	if e.A == n {
		return e.B
	}
	return e.A
}

// Graph is the planar subdivision produced by a Builder. Nodes and edges
// are never removed once created.
type Graph struct {
	nodes []Node
	edges []Edge
	tol   float64

	edgeIndex map[[2]int]int
}

// NodeCount returns the number of unique nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Point returns the coordinates of node n.
func (g *Graph) Point(n int) geom.Point { return g.nodes[n].P }

// Edge returns edge e.
func (g *Graph) Edge(e int) Edge { return g.edges[e] }

// Tolerance returns the snapping tolerance the graph was built with.
func (g *Graph) Tolerance() float64 { return g.tol }

// EdgeBetween returns the id of the edge connecting nodes a and b, or
// -1 when no such edge exists.
func (g *Graph) EdgeBetween(a, b int) int {
	if e, ok := g.edgeIndex[edgeKey(a, b)]; ok {
		return e
	}
	return -1
}

// Builder accumulates segments into a planar graph, snapping endpoints
// within tolerance. It is a pure transform: the only side effect is
// graph population.
type Builder struct {
	tol   float64
	cell  float64
	nodes []Node
	edges []Edge
	grid  map[[2]int][]int
	index map[[2]int]int
}

// NewBuilder creates a builder with the given snapping tolerance.
// Non-positive tolerances fall back to DefaultSnapTolerance.
func NewBuilder(tol float64) *Builder {
	if tol <= 0 {
		tol = DefaultSnapTolerance
	}
	return &Builder{
		tol: tol,
		// Cells no smaller than the tolerance keep the candidate search
		// to the 3×3 neighborhood.
		cell:  tol,
		grid:  make(map[[2]int][]int),
		index: make(map[[2]int]int),
	}
}

// AddSegment snaps both endpoints and adds the resulting edge.
// Returns ErrCodeDegenerateInput when the segment collapses to a point
// after snapping or duplicates an existing edge between the same nodes.
func (b *Builder) AddSegment(s geom.Segment, source int) error {
	a := b.snap(s.A)
	c := b.snap(s.B)
	if a == c {
		return errors.New(errors.ErrCodeDegenerateInput,
			"segment %d has zero length after snapping at (%.6g, %.6g)", source, s.A.X, s.A.Y)
	}
	key := edgeKey(a, c)
	if _, dup := b.index[key]; dup {
		return errors.New(errors.ErrCodeDegenerateInput,
			"segment %d duplicates an existing edge between (%.6g, %.6g) and (%.6g, %.6g)",
			source, b.nodes[a].P.X, b.nodes[a].P.Y, b.nodes[c].P.X, b.nodes[c].P.Y)
	}
	e := len(b.edges)
	b.edges = append(b.edges, Edge{A: a, B: c, Source: source})
	b.index[key] = e
	b.nodes[a].Edges = append(b.nodes[a].Edges, e)
	b.nodes[c].Edges = append(b.nodes[c].Edges, e)
	return nil
}

// Graph finalizes the builder and returns the populated graph.
// The builder must not be used after calling Graph.
func (b *Builder) Graph() *Graph {
	return &Graph{
		nodes:     b.nodes,
		edges:     b.edges,
		tol:       b.tol,
		edgeIndex: b.index,
	}
}

// snap returns the node id for p, merging into the nearest existing node
// within tolerance. Ties go to the lowest insertion order. Merging is
// transitive by construction: nodes never move, so a point that snaps to
// node B always lands on the same record any earlier point did.
func (b *Builder) snap(p geom.Point) int {
	cx := int(math.Floor(p.X / b.cell))
	cy := int(math.Floor(p.Y / b.cell))

	best := -1
	bestDist := math.Inf(1)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for _, n := range b.grid[[2]int{cx + dx, cy + dy}] {
				d := b.nodes[n].P.Dist(p)
				if d > b.tol {
					continue
				}
				if d < bestDist || (d == bestDist && (best < 0 || n < best)) {
					best = n
					bestDist = d
				}
			}
		}
	}
	if best >= 0 {
		return best
	}

	n := len(b.nodes)
	b.nodes = append(b.nodes, Node{P: p})
	key := [2]int{cx, cy}
	b.grid[key] = append(b.grid[key], n)
	return n
}

// edgeKey returns the canonical (low, high) node pair for an edge.
func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
