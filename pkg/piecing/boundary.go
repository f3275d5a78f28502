package piecing

import (
	"math"
	"sort"

	"github.com/quiltlab/piecework/pkg/errors"
	"github.com/quiltlab/piecework/pkg/geom"
	"github.com/quiltlab/piecework/pkg/planar"
)

// groupBoundary derives the union outline of a group's patches without
// polygon boolean algebra: every directed ring edge that is not shared
// between two member patches lies on the union boundary, and because
// patch rings are counter-clockwise those directed edges chain into
// closed loops with the group interior on the left.
//
// The largest positive-area loop is the outer boundary; negative loops
// are holes (a patch fully surrounded by members but not itself a
// member). Holes are preserved, not dropped.
func groupBoundary(g *planar.Graph, patches []planar.Patch, member []int, interior map[int][2]int) (geom.Polygon, []geom.Polygon, error) {
	inGroup := make(map[int]bool, len(member))
	for _, p := range member {
		inGroup[p] = true
	}

	// Directed boundary edges, keyed by start node.
	type dedge struct{ from, to int }
	var dirs []dedge
	outgoing := make(map[int][]int) // node → indices into dirs
	for _, pid := range member {
		ring := patches[pid].Ring
		n := len(ring)
		for i := 0; i < n; i++ {
			u, v := ring[i], ring[(i+1)%n]
			e := g.EdgeBetween(u, v)
			if pair, shared := interior[e]; shared && inGroup[pair[0]] && inGroup[pair[1]] {
				continue
			}
			outgoing[u] = append(outgoing[u], len(dirs))
			dirs = append(dirs, dedge{from: u, to: v})
		}
	}
	for n := range outgoing {
		sort.Ints(outgoing[n])
	}

	used := make([]bool, len(dirs))
	var loops []geom.Polygon
	for start := 0; start < len(dirs); start++ {
		if used[start] {
			continue
		}
		var ring []int
		cur := start
		for {
			used[cur] = true
			ring = append(ring, dirs[cur].from)
			next := nextBoundaryEdge(g, dirs[cur].from, dirs[cur].to, outgoing[dirs[cur].to], func(i int) (int, int) {
				return dirs[i].from, dirs[i].to
			})
			if next == start {
				break
			}
			if next < 0 || used[next] {
				return nil, nil, errors.New(errors.ErrCodeInternal,
					"group boundary walk stranded at node %d", dirs[cur].to)
			}
			cur = next
		}
		poly := make(geom.Polygon, len(ring))
		for i, n := range ring {
			poly[i] = g.Point(n)
		}
		loops = append(loops, poly.RemoveCollinear(collinearTol(g)))
	}

	outer := -1
	var holes []geom.Polygon
	for i, loop := range loops {
		if loop.SignedArea() > 0 {
			if outer == -1 || loop.Area() > loops[outer].Area() {
				if outer != -1 {
					holes = append(holes, loops[outer].Reverse())
				}
				outer = i
			} else {
				// A smaller positive loop nested in the outer ring can only
				// come from a pinched union; keep it as a hole boundary so
				// nothing is silently dropped.
				holes = append(holes, loop.Reverse())
			}
		} else {
			holes = append(holes, loop)
		}
	}
	if outer == -1 {
		return nil, nil, errors.New(errors.ErrCodeInternal, "group has no outer boundary loop")
	}
	return loops[outer], holes, nil
}

// nextBoundaryEdge picks the continuation of a boundary walk arriving at
// node `to` from node `from`. At a pinch node with several outgoing
// boundary edges, the sharpest left turn keeps the group interior on the
// left. Returns -1 when the node has no outgoing boundary edge.
func nextBoundaryEdge(g *planar.Graph, from, to int, candidates []int, edge func(int) (int, int)) int {
	inDir := g.Point(to).Sub(g.Point(from))
	best := -1
	bestTurn := math.Inf(-1)
	for _, c := range candidates {
		_, next := edge(c)
		outDir := g.Point(next).Sub(g.Point(to))
		turn := ccwTurn(inDir, outDir)
		if turn > bestTurn {
			bestTurn = turn
			best = c
		}
	}
	return best
}

// ccwTurn returns the counter-clockwise turn angle from a to b in
// (-π, π], where larger means a sharper left turn.
func ccwTurn(a, b geom.Point) float64 {
	t := b.Angle() - a.Angle()
	for t <= -math.Pi {
		t += 2 * math.Pi
	}
	for t > math.Pi {
		t -= 2 * math.Pi
	}
	return t
}

// collinearTol derives the collinearity cleanup tolerance from the
// graph's snapping tolerance.
func collinearTol(g *planar.Graph) float64 {
	return 10 * g.Tolerance()
}
