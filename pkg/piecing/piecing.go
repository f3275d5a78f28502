// Package piecing clusters patches into sewing groups and derives each
// group's piecing order and outer boundary.
//
// Two patches belong to the same group when they are connected through
// shared edges; groups partition the patch set. Within a group the
// sewing order is a greedy traversal from an extremal patch, so that
// every subsequent patch shares an already-sewn edge with the assembly.
// All results are deterministic for identical input.
//
// Relationships are id-based: a patch is referenced by its index and a
// group stores patch ids, never object links.
package piecing

import (
	"sort"

	"github.com/quiltlab/piecework/pkg/errors"
	"github.com/quiltlab/piecework/pkg/geom"
	"github.com/quiltlab/piecework/pkg/planar"
)

// Group is a set of patches connected by shared edges, forming one
// contiguous sewing unit.
type Group struct {
	ID      int
	Patches []int // member patch ids, ascending
	Order   []int // patch ids in sewing sequence

	Boundary geom.Polygon   // outer ring, counter-clockwise
	Holes    []geom.Polygon // hole rings, clockwise
}

// Detect clusters patches into groups and computes sewing orders and
// boundaries. Group ids are assigned in order of each group's smallest
// patch id, so identical input always yields identical membership.
func Detect(g *planar.Graph, patches []planar.Patch) ([]Group, error) {
	shared := sharedEdges(g, patches)

	uf := newUnionFind(len(patches))
	for _, pair := range shared.pairs {
		uf.union(pair[0], pair[1])
	}

	// Collect components keyed by their smallest member.
	members := make(map[int][]int)
	for i := range patches {
		members[uf.find(i)] = append(members[uf.find(i)], i)
	}
	roots := make([]int, 0, len(members))
	for r := range members {
		roots = append(roots, r)
	}
	sort.Slice(roots, func(i, j int) bool {
		return minOf(members[roots[i]]) < minOf(members[roots[j]])
	})

	groups := make([]Group, 0, len(roots))
	for id, r := range roots {
		m := members[r]
		sort.Ints(m)
		grp := Group{ID: id, Patches: m}

		order, err := sewingOrder(patches, m, shared.adjacency)
		if err != nil {
			return nil, err
		}
		grp.Order = order

		boundary, holes, err := groupBoundary(g, patches, m, shared.interior)
		if err != nil {
			return nil, err
		}
		grp.Boundary = boundary
		grp.Holes = holes

		groups = append(groups, grp)
	}
	return groups, nil
}

// GroupOf returns a patch-id → group-id map for the given groups.
func GroupOf(groups []Group) map[int]int {
	out := make(map[int]int)
	for _, g := range groups {
		for _, p := range g.Patches {
			out[p] = g.ID
		}
	}
	return out
}

// edgeInfo indexes which patches border each edge.
type edgeInfo struct {
	pairs     [][2]int          // adjacent patch pairs (a < b)
	adjacency map[int][]int     // patch id → sorted neighbor patch ids
	interior  map[int][2]int    // edge id → the two patches sharing it
	borders   map[int][]int     // edge id → bordering patch ids
}

// sharedEdges maps edges to the patches bordering them. Every edge
// borders at most two patches in a manifold planar subdivision; a third
// would indicate an extraction bug and is ignored beyond the first two.
func sharedEdges(g *planar.Graph, patches []planar.Patch) edgeInfo {
	info := edgeInfo{
		adjacency: make(map[int][]int),
		interior:  make(map[int][2]int),
		borders:   make(map[int][]int),
	}
	for _, p := range patches {
		n := len(p.Ring)
		for i := 0; i < n; i++ {
			e := g.EdgeBetween(p.Ring[i], p.Ring[(i+1)%n])
			if e >= 0 {
				info.borders[e] = append(info.borders[e], p.ID)
			}
		}
	}
	seen := make(map[[2]int]bool)
	for e, ps := range info.borders {
		if len(ps) < 2 {
			continue
		}
		a, b := ps[0], ps[1]
		if a > b {
			a, b = b, a
		}
		info.interior[e] = [2]int{a, b}
		if !seen[[2]int{a, b}] {
			seen[[2]int{a, b}] = true
			info.pairs = append(info.pairs, [2]int{a, b})
			info.adjacency[a] = append(info.adjacency[a], b)
			info.adjacency[b] = append(info.adjacency[b], a)
		}
	}
	sort.Slice(info.pairs, func(i, j int) bool {
		if info.pairs[i][0] != info.pairs[j][0] {
			return info.pairs[i][0] < info.pairs[j][0]
		}
		return info.pairs[i][1] < info.pairs[j][1]
	})
	for p := range info.adjacency {
		sort.Ints(info.adjacency[p])
	}
	return info
}

// sewingOrder returns the piecing sequence for one group: start from the
// extremal patch (lowest bounding-box y, then x, then id) and greedily
// append any unsewn patch adjacent to the assembly, smallest id first.
func sewingOrder(patches []planar.Patch, member []int, adjacency map[int][]int) ([]int, error) {
	start := member[0]
	for _, p := range member[1:] {
		if lessExtremal(patches[p].Bounds(), patches[start].Bounds()) ||
			(patches[p].Bounds() == patches[start].Bounds() && p < start) {
			start = p
		}
	}

	sewn := map[int]bool{start: true}
	order := []int{start}
	for len(order) < len(member) {
		next := -1
		for _, p := range order {
			for _, q := range adjacency[p] {
				if !sewn[q] && (next == -1 || q < next) {
					next = q
				}
			}
		}
		if next == -1 {
			return nil, errors.New(errors.ErrCodeDisconnectedGroup,
				"group containing patch %d: %d of %d patches unreachable by shared edges",
				start, len(member)-len(order), len(member))
		}
		sewn[next] = true
		order = append(order, next)
	}
	return order, nil
}

func lessExtremal(a, b geom.Rect) bool {
	if a.Min.Y != b.Min.Y {
		return a.Min.Y < b.Min.Y
	}
	return a.Min.X < b.Min.X
}

func minOf(xs []int) int {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

// unionFind is a path-compressing disjoint set over patch indices.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	// Root at the smaller index so component roots are stable.
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}
