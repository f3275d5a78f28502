package planar

import (
	"sort"

	"github.com/quiltlab/piecework/pkg/errors"
	"github.com/quiltlab/piecework/pkg/geom"
)

// Patch is a minimal bounded face of the planar graph: an ordered,
// closed, non-self-intersecting sequence of nodes. Rings are stored
// counter-clockwise.
type Patch struct {
	ID   int
	Ring []int // node ids, implicit closing edge
	Poly geom.Polygon
}

// Bounds returns the patch's axis-aligned bounding rectangle.
func (p Patch) Bounds() geom.Rect { return p.Poly.Bounds() }

// Centroid returns the patch's area centroid, used as the representative
// point for color sampling and labeling.
func (p Patch) Centroid() geom.Point { return p.Poly.Centroid() }

// Faces enumerates all bounded faces of the graph as patches.
//
// The walk is the standard planar face trace: incident edges at each node
// are ordered by angle, and from each directed edge the walk continues
// with the clockwise-next edge after the reverse edge, so every bounded
// face is traversed exactly once counter-clockwise and the unbounded face
// comes out clockwise and is excluded by its negative signed area.
//
// Dangling edges (both directed traversals land in the same face) are
// reported as OPEN_PATH diagnostics and their zone is excluded from the
// output rather than aborting the run. Faces below minArea are discarded
// as snapping noise and reported as DEGENERATE_INPUT diagnostics.
func (g *Graph) Faces(minArea float64, diags *errors.Diagnostics) []Patch {
	rings := g.sortedIncidence()

	// Every edge contributes two directed halves: 2e (A→B) and 2e+1 (B→A).
	faceOf := make([]int, 2*len(g.edges))
	for i := range faceOf {
		faceOf[i] = -1
	}

	var traces [][]int // node rings per face, trace order
	for h := 0; h < 2*len(g.edges); h++ {
		if faceOf[h] != -1 {
			continue
		}
		face := len(traces)
		ring := g.traceFace(h, rings, faceOf, face)
		traces = append(traces, ring)
	}

	// An edge that does not separate two distinct faces bounds no patch:
	// it is a dangling or bridge segment of an unclosed drawing.
	open := make(map[int]bool)
	for e := range g.edges {
		if faceOf[2*e] == faceOf[2*e+1] {
			open[e] = true
			a, b := g.nodes[g.edges[e].A].P, g.nodes[g.edges[e].B].P
			diags.Add(errors.ErrCodeOpenPath,
				"segment %d from (%.6g, %.6g) to (%.6g, %.6g) does not close a region",
				g.edges[e].Source, a.X, a.Y, b.X, b.Y)
		}
	}

	var patches []Patch
	for _, ring := range traces {
		ring = stripSpurs(ring)
		if len(ring) < 3 {
			continue
		}
		poly := g.ringPolygon(ring)
		area := poly.SignedArea()
		if area <= 0 {
			continue // unbounded face
		}
		if area < minArea {
			c := poly.Centroid()
			diags.Add(errors.ErrCodeDegenerateInput,
				"discarded degenerate patch with area %.6g near (%.6g, %.6g)", area, c.X, c.Y)
			continue
		}
		ring = canonicalRing(ring)
		patches = append(patches, Patch{
			ID:   len(patches),
			Ring: ring,
			Poly: g.ringPolygon(ring),
		})
	}
	return patches
}

// traceFace walks one face starting from directed half h, marking every
// visited half with the face id, and returns the node ring.
func (g *Graph) traceFace(h int, rings [][]int, faceOf []int, face int) []int {
	var ring []int
	for faceOf[h] == -1 {
		faceOf[h] = face
		e := h / 2
		var u, v int
		if h%2 == 0 {
			u, v = g.edges[e].A, g.edges[e].B
		} else {
			u, v = g.edges[e].B, g.edges[e].A
		}
		ring = append(ring, u)

		// Position of the reverse edge v→u in v's angular ring, then the
		// clockwise-next incident edge continues the face.
		idx := -1
		for i, ie := range rings[v] {
			if ie == e {
				idx = i
				break
			}
		}
		next := rings[v][(idx-1+len(rings[v]))%len(rings[v])]
		if g.edges[next].A == v {
			h = 2 * next
		} else {
			h = 2*next + 1
		}
	}
	return ring
}

// sortedIncidence returns, per node, its incident edge ids ordered by the
// angle of the outgoing direction, ascending (counter-clockwise).
func (g *Graph) sortedIncidence() [][]int {
	rings := make([][]int, len(g.nodes))
	for n := range g.nodes {
		inc := append([]int(nil), g.nodes[n].Edges...)
		sort.Slice(inc, func(i, j int) bool {
			ai := g.outgoingAngle(n, inc[i])
			aj := g.outgoingAngle(n, inc[j])
			if ai != aj {
				return ai < aj
			}
			return inc[i] < inc[j]
		})
		rings[n] = inc
	}
	return rings
}

func (g *Graph) outgoingAngle(n, e int) float64 {
	other := g.edges[e].Other(n)
	return g.nodes[other].P.Sub(g.nodes[n].P).Angle()
}

func (g *Graph) ringPolygon(ring []int) geom.Polygon {
	poly := make(geom.Polygon, len(ring))
	for i, n := range ring {
		poly[i] = g.nodes[n].P
	}
	return poly
}

// stripSpurs removes out-and-back excursions (… a, b, a …) from a face
// ring. A face that is nothing but spurs collapses to fewer than three
// nodes and is dropped by the caller.
func stripSpurs(ring []int) []int {
	changed := true
	for changed && len(ring) >= 3 {
		changed = false
		var out []int
		for _, n := range ring {
			if len(out) >= 2 && out[len(out)-2] == n {
				out = out[:len(out)-1]
				changed = true
				continue
			}
			out = append(out, n)
		}
		// The ring is cyclic: spurs can straddle the wrap-around point.
		for len(out) >= 3 && out[0] == out[len(out)-1] {
			out = out[:len(out)-1]
			changed = true
		}
		for len(out) >= 3 && out[1] == out[len(out)-1] {
			out = out[1 : len(out)-1]
			changed = true
		}
		ring = out
	}
	return ring
}

// canonicalRing rotates the ring so it starts at its smallest node id,
// giving identical input identical patch output across runs.
func canonicalRing(ring []int) []int {
	min := 0
	for i, n := range ring {
		if n < ring[min] {
			min = i
		}
	}
	out := make([]int, 0, len(ring))
	out = append(out, ring[min:]...)
	out = append(out, ring[:min]...)
	return out
}
