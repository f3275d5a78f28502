// Package allowance expands group boundaries outward into fabric
// cutting outlines. Sharp convex corners are beveled instead of
// mitered past a configurable limit, and self-intersecting offsets of
// concave boundaries are untangled back into simple polygons.
package allowance

import (
	"math"
	"sync"

	"github.com/quiltlab/piecework/pkg/errors"
	"github.com/quiltlab/piecework/pkg/geom"
	"github.com/quiltlab/piecework/pkg/piecing"
)

// DefaultMiterLimit is the miter-to-bevel cutoff expressed as a
// multiple of the allowance distance.
const DefaultMiterLimit = 4.0

// Polygon is the cut outline for one group: the group boundary offset
// outward by Distance, with holes shrunk by the same amount.
type Polygon struct {
	Group    int
	Distance float64
	Outline  geom.Polygon
	Holes    []geom.Polygon
}

// Bounds returns the outline's axis-aligned bounding box.
func (p Polygon) Bounds() geom.Rect { return p.Outline.Bounds() }

// Options controls offsetting.
type Options struct {
	Distance   float64 // outward offset, drawing units
	MiterLimit float64 // bevel cutoff as a multiple of Distance; 0 means DefaultMiterLimit
}

func (o Options) miterLimit() float64 {
	if o.MiterLimit <= 0 {
		return DefaultMiterLimit
	}
	return o.MiterLimit
}

// Compute offsets every group in parallel and merges the results in
// group order. A group whose offset cannot be made simple aborts the
// run with an INVALID_OFFSET error naming the group; overlapping
// allowances between neighboring groups are reported as diagnostics.
func Compute(groups []piecing.Group, opts Options, diags *errors.Diagnostics) ([]Polygon, error) {
	if opts.Distance < 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "seam allowance must not be negative, got %v", opts.Distance)
	}

	type slot struct {
		poly Polygon
		err  error
	}
	results := make([]slot, len(groups))
	var wg sync.WaitGroup
	sem := make(chan struct{}, 8)

	for i := range groups {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			poly, err := offsetGroup(&groups[idx], opts)
			results[idx] = slot{poly: poly, err: err}
		}(i)
	}
	wg.Wait()

	out := make([]Polygon, 0, len(groups))
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, r.poly)
	}
	checkDisjoint(out, diags)
	return out, nil
}

// offsetGroup expands one group boundary. The outline must fully
// contain the original boundary; holes that collapse under the offset
// are dropped.
func offsetGroup(g *piecing.Group, opts Options) (Polygon, error) {
	outline, err := offsetRing(g.Boundary, opts.Distance, opts.miterLimit())
	if err != nil {
		return Polygon{}, errors.Wrap(errors.ErrCodeInvalidOffset, err,
			"group %d: seam allowance outline is not a simple polygon", g.ID)
	}
	for _, v := range g.Boundary {
		if !outline.ContainsPoint(v, 1e-9) {
			return Polygon{}, errors.New(errors.ErrCodeInvalidOffset,
				"group %d: allowance outline does not contain the original boundary near (%.4f, %.4f)",
				g.ID, v.X, v.Y)
		}
	}

	// Holes shrink by the allowance: offset the reversed (counter-
	// clockwise) ring inward, then restore hole winding. A hole the
	// allowance swallows whole is dropped.
	var holes []geom.Polygon
	for _, h := range g.Holes {
		shrunk, err := offsetRing(h.Reverse(), -opts.Distance, opts.miterLimit())
		if err != nil {
			continue
		}
		holes = append(holes, shrunk.Reverse())
	}
	return Polygon{Group: g.ID, Distance: opts.Distance, Outline: outline, Holes: holes}, nil
}

// offsetRing moves every edge of the ring a fixed distance to its
// right-hand side: outward for counter-clockwise outer rings, into the
// opening for clockwise hole rings. Corners where the miter would
// exceed limit×dist are cut to a bevel.
func offsetRing(ring geom.Polygon, dist, limit float64) (geom.Polygon, error) {
	n := len(ring)
	if n < 3 {
		return nil, errors.New(errors.ErrCodeInvalidOffset, "ring has %d vertices", n)
	}
	if dist == 0 {
		return append(geom.Polygon(nil), ring...), nil
	}

	// Offset segment per edge.
	offs := make([]geom.Segment, n)
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		d := b.Sub(a).Norm()
		right := geom.Point{X: d.Y, Y: -d.X}.Scale(dist)
		offs[i] = geom.Segment{A: a.Add(right), B: b.Add(right)}
	}

	var out geom.Polygon
	for i := 0; i < n; i++ {
		prev := offs[(i+n-1)%n]
		cur := offs[i]
		prevDir := prev.B.Sub(prev.A)
		curDir := cur.B.Sub(cur.A)
		x, ok := geom.LineIntersection(prev.A, prevDir, cur.A, curDir, 1e-12)
		if !ok {
			// Collinear edges share the offset point.
			out = append(out, cur.A)
			continue
		}
		// The miter spikes away from the shape only where the corner
		// turns toward the offset side; elsewhere it is the true join.
		spiking := prevDir.Cross(curDir)*dist > 0
		if spiking && x.Dist(ring[i]) > limit*math.Abs(dist) {
			out = append(out, prev.B, cur.A)
			continue
		}
		out = append(out, x)
	}
	return simplify(out, ring, dist)
}

// simplify untangles a possibly self-intersecting offset ring by
// splitting it at each crossing and keeping the largest positive-area
// simple loop that is a valid closure of the original ring. A point
// test against the centroid would misfire here: on U-shaped rings the
// centroid falls in the concavity, outside both polygons.
func simplify(ring, original geom.Polygon, dist float64) (geom.Polygon, error) {
	loops := splitLoops(ring, 0)

	best := -1
	for i, l := range loops {
		if l.SignedArea() <= 0 || !isClosure(l, original, dist) {
			continue
		}
		if best == -1 || l.Area() > loops[best].Area() {
			best = i
		}
	}
	if best == -1 {
		return nil, errors.New(errors.ErrCodeInvalidOffset, "no simple closure encloses the shape")
	}
	return loops[best].RemoveCollinear(1e-9), nil
}

// isClosure reports whether loop can be the offset of original: an
// outward offset must enclose every original vertex, an inward shrink
// must stay enclosed by the original ring. Spike remnants from untangled
// miters fail both ways.
func isClosure(loop, original geom.Polygon, dist float64) bool {
	if dist < 0 {
		return original.ContainsPolygon(loop, touchEps)
	}
	return loop.ContainsPolygon(original, touchEps)
}

const (
	maxSplitDepth = 32
	touchEps      = 1e-9
)

// splitLoops recursively cuts a ring at its first self-contact into two
// sub-loops. Miter joins land exactly on neighboring offset lines, so
// tangles show up both as true edge crossings and as a vertex touching
// another edge's interior; both are split. Simple rings come back
// unchanged.
func splitLoops(ring geom.Polygon, depth int) []geom.Polygon {
	n := len(ring)
	if n < 3 || depth > maxSplitDepth {
		return nil
	}
	for i := 0; i < n; i++ {
		a := geom.Segment{A: ring[i], B: ring[(i+1)%n]}
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue // adjacent around the wrap
			}
			b := geom.Segment{A: ring[j], B: ring[(j+1)%n]}
			x, ok := geom.SegmentIntersection(a.A, a.B, b.A, b.B, 1e-12)
			if !ok {
				continue
			}
			return splitAt(ring, i, j, x, depth)
		}
	}
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		for k := 0; k < n; k++ {
			if k == i || k == (i+1)%n {
				continue
			}
			v := ring[k]
			if geom.DistToSegment(v, a, b) > touchEps || v.Dist(a) <= touchEps || v.Dist(b) <= touchEps {
				continue
			}
			// Vertex k sits on the interior of edge i: cut the ring
			// there as if it were a crossing at v.
			if j := (k + n - 1) % n; j != i {
				return splitAt(ring, i, j, v, depth)
			}
		}
	}
	return []geom.Polygon{ring}
}

// splitAt divides the ring at point x, which lies on both edge i and
// edge j (i < j in traversal order): one loop runs i+1..j, the other
// j+1..i, each closed through x.
func splitAt(ring geom.Polygon, i, j int, x geom.Point, depth int) []geom.Polygon {
	n := len(ring)
	one := geom.Polygon{x}
	for k := (i + 1) % n; ; k = (k + 1) % n {
		one = append(one, ring[k])
		if k == j {
			break
		}
	}
	two := geom.Polygon{x}
	for k := (j + 1) % n; ; k = (k + 1) % n {
		two = append(two, ring[k])
		if k == i {
			break
		}
	}
	return append(splitLoops(dropDegenerate(one), depth+1), splitLoops(dropDegenerate(two), depth+1)...)
}

// dropDegenerate removes consecutive duplicate points introduced when a
// split lands on a vertex.
func dropDegenerate(ring geom.Polygon) geom.Polygon {
	out := ring[:0:0]
	for _, p := range ring {
		if len(out) > 0 && p.Dist(out[len(out)-1]) <= touchEps {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[0].Dist(out[len(out)-1]) <= touchEps {
		out = out[:len(out)-1]
	}
	return out
}

// checkDisjoint reports every pair of allowance outlines that overlap.
// Adjacent groups are expected to stay disjoint because their seams
// are pieced, so an overlap is a diagnostic, not a failure.
func checkDisjoint(polys []Polygon, diags *errors.Diagnostics) {
	if diags == nil {
		return
	}
	for i := 0; i < len(polys); i++ {
		for j := i + 1; j < len(polys); j++ {
			if !polys[i].Bounds().Overlaps(polys[j].Bounds(), 0) {
				continue
			}
			if polys[i].Outline.Intersects(polys[j].Outline, 1e-9) {
				diags.Add(errors.ErrCodeInvalidOffset,
					"allowance outlines of groups %d and %d overlap; reduce the allowance or separate the shapes",
					polys[i].Group, polys[j].Group)
			}
		}
	}
}
