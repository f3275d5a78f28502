// Package geom provides the 2D primitives used throughout the piecework
// pipeline: points, segments, rectangles, and simple polygons in drawing
// units (typically SVG user units, 96 per inch).
//
// All comparisons are tolerance-based. Exact floating-point equality is
// never meaningful for snapped drawing geometry, so every predicate that
// compares coordinates takes or implies an epsilon.
package geom

import "math"

// Point is a 2D coordinate in drawing units.
type Point struct {
	X float64
	Y float64
}

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p scaled by s.
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }

// Dot returns the dot product p · q.
func (p Point) Dot(q Point) float64 { return p.X*q.X + p.Y*q.Y }

// Cross returns the 2D cross product (z component) p × q.
func (p Point) Cross(q Point) float64 { return p.X*q.Y - p.Y*q.X }

// Len returns the Euclidean length of p treated as a vector.
func (p Point) Len() float64 { return math.Hypot(p.X, p.Y) }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return p.Sub(q).Len() }

// Norm returns p scaled to unit length. The zero vector is returned
// unchanged.
func (p Point) Norm() Point {
	l := p.Len()
	if l == 0 {
		return p
	}
	return Point{p.X / l, p.Y / l}
}

// Angle returns the angle of p treated as a vector, in radians in (-π, π].
func (p Point) Angle() float64 { return math.Atan2(p.Y, p.X) }

// AlmostEqual reports whether p and q are within eps of each other.
func (p Point) AlmostEqual(q Point, eps float64) bool {
	return p.Dist(q) <= eps
}

// Rotate returns p rotated by angle radians around the origin.
func (p Point) Rotate(angle float64) Point {
	sin, cos := math.Sincos(angle)
	return Point{p.X*cos - p.Y*sin, p.X*sin + p.Y*cos}
}

// RotateAround returns p rotated by angle radians around center c.
func (p Point) RotateAround(c Point, angle float64) Point {
	return p.Sub(c).Rotate(angle).Add(c)
}

// Segment is a straight line segment between two points.
type Segment struct {
	A Point
	B Point
}

// Length returns the segment length.
func (s Segment) Length() float64 { return s.A.Dist(s.B) }

// Dir returns the unit direction from A to B.
func (s Segment) Dir() Point { return s.B.Sub(s.A).Norm() }

// Midpoint returns the segment midpoint.
func (s Segment) Midpoint() Point {
	return Point{(s.A.X + s.B.X) / 2, (s.A.Y + s.B.Y) / 2}
}

// SegmentsIntersect reports whether segments ab and cd properly intersect
// or touch within eps. Collinear overlapping segments count as
// intersecting.
func SegmentsIntersect(a, b, c, d Point, eps float64) bool {
	d1 := orient(c, d, a)
	d2 := orient(c, d, b)
	d3 := orient(a, b, c)
	d4 := orient(a, b, d)

	if ((d1 > eps && d2 < -eps) || (d1 < -eps && d2 > eps)) &&
		((d3 > eps && d4 < -eps) || (d3 < -eps && d4 > eps)) {
		return true
	}
	if math.Abs(d1) <= eps && onSegment(c, d, a, eps) {
		return true
	}
	if math.Abs(d2) <= eps && onSegment(c, d, b, eps) {
		return true
	}
	if math.Abs(d3) <= eps && onSegment(a, b, c, eps) {
		return true
	}
	if math.Abs(d4) <= eps && onSegment(a, b, d, eps) {
		return true
	}
	return false
}

// SegmentIntersection returns the intersection point of the open segments
// ab and cd, if they cross in their interiors. Parallel and touching
// segments report ok=false.
func SegmentIntersection(a, b, c, d Point, eps float64) (Point, bool) {
	r := b.Sub(a)
	s := d.Sub(c)
	denom := r.Cross(s)
	if math.Abs(denom) <= eps {
		return Point{}, false
	}
	t := c.Sub(a).Cross(s) / denom
	u := c.Sub(a).Cross(r) / denom
	if t <= eps || t >= 1-eps || u <= eps || u >= 1-eps {
		return Point{}, false
	}
	return a.Add(r.Scale(t)), true
}

// LineIntersection returns the intersection of the infinite lines through
// (p1, d1) and (p2, d2), where d1 and d2 are direction vectors. Parallel
// lines report ok=false.
func LineIntersection(p1, d1, p2, d2 Point, eps float64) (Point, bool) {
	denom := d1.Cross(d2)
	if math.Abs(denom) <= eps {
		return Point{}, false
	}
	t := p2.Sub(p1).Cross(d2) / denom
	return p1.Add(d1.Scale(t)), true
}

// orient returns twice the signed area of triangle pqr. Positive means r
// lies left of pq.
func orient(p, q, r Point) float64 {
	return q.Sub(p).Cross(r.Sub(p))
}

// onSegment reports whether r lies on segment pq, assuming the three
// points are collinear within eps.
func onSegment(p, q, r Point, eps float64) bool {
	return r.X >= math.Min(p.X, q.X)-eps && r.X <= math.Max(p.X, q.X)+eps &&
		r.Y >= math.Min(p.Y, q.Y)-eps && r.Y <= math.Max(p.Y, q.Y)+eps
}
