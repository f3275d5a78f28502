package geom

import "math"

// Polygon is a closed ring of vertices. The closing edge from the last
// vertex back to the first is implicit. Outer contours are stored
// counter-clockwise; holes clockwise.
type Polygon []Point

// SignedArea returns the shoelace area: positive for counter-clockwise
// rings, negative for clockwise.
func (p Polygon) SignedArea() float64 {
	if len(p) < 3 {
		return 0
	}
	var sum float64
	for i, a := range p {
		b := p[(i+1)%len(p)]
		sum += a.Cross(b)
	}
	return sum / 2
}

// Area returns the absolute enclosed area.
func (p Polygon) Area() float64 { return math.Abs(p.SignedArea()) }

// IsCCW reports whether the ring winds counter-clockwise.
func (p Polygon) IsCCW() bool { return p.SignedArea() > 0 }

// Reverse returns the ring with opposite winding.
func (p Polygon) Reverse() Polygon {
	out := make(Polygon, len(p))
	for i, pt := range p {
		out[len(p)-1-i] = pt
	}
	return out
}

// Centroid returns the area centroid of the ring. Degenerate rings fall
// back to the vertex mean.
func (p Polygon) Centroid() Point {
	a := p.SignedArea()
	if math.Abs(a) < 1e-12 {
		var c Point
		for _, pt := range p {
			c = c.Add(pt)
		}
		return c.Scale(1 / float64(len(p)))
	}
	var cx, cy float64
	for i, v := range p {
		w := p[(i+1)%len(p)]
		f := v.Cross(w)
		cx += (v.X + w.X) * f
		cy += (v.Y + w.Y) * f
	}
	return Point{cx / (6 * a), cy / (6 * a)}
}

// Bounds returns the axis-aligned bounding rectangle.
func (p Polygon) Bounds() Rect {
	if len(p) == 0 {
		return Rect{}
	}
	r := Rect{Min: p[0], Max: p[0]}
	for _, pt := range p[1:] {
		r = r.ExpandToInclude(pt)
	}
	return r
}

// Translate returns the ring shifted by (dx, dy).
func (p Polygon) Translate(dx, dy float64) Polygon {
	out := make(Polygon, len(p))
	for i, pt := range p {
		out[i] = Point{pt.X + dx, pt.Y + dy}
	}
	return out
}

// RotateAround returns the ring rotated by angle radians around c.
func (p Polygon) RotateAround(c Point, angle float64) Polygon {
	out := make(Polygon, len(p))
	for i, pt := range p {
		out[i] = pt.RotateAround(c, angle)
	}
	return out
}

// RemoveCollinear returns the ring with vertices removed where the two
// incident edges are collinear within tol (measured as twice the triangle
// area). Rings of three or fewer vertices are returned unchanged.
func (p Polygon) RemoveCollinear(tol float64) Polygon {
	n := len(p)
	if n <= 3 {
		return p
	}
	out := make(Polygon, 0, n)
	for i := 0; i < n; i++ {
		prev := p[(i+n-1)%n]
		next := p[(i+1)%n]
		if math.Abs(orient(prev, p[i], next)) > tol {
			out = append(out, p[i])
		}
	}
	if len(out) < 3 {
		return p
	}
	return out
}

// ContainsPoint reports whether pt lies inside the ring, using the
// even-odd rule. Points within eps of an edge count as inside.
func (p Polygon) ContainsPoint(pt Point, eps float64) bool {
	n := len(p)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		a, b := p[i], p[(i+1)%n]
		if DistToSegment(pt, a, b) <= eps {
			return true
		}
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		a, b := p[i], p[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := a.X + (pt.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if pt.X < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// ContainsPolygon reports whether every vertex of q lies inside p.
func (p Polygon) ContainsPolygon(q Polygon, eps float64) bool {
	for _, pt := range q {
		if !p.ContainsPoint(pt, eps) {
			return false
		}
	}
	return true
}

// Intersects reports whether p and q share area: any edge crossing, or
// either ring containing a vertex of the other. Shared boundaries within
// eps do not count.
func (p Polygon) Intersects(q Polygon, eps float64) bool {
	for i := 0; i < len(p); i++ {
		a, b := p[i], p[(i+1)%len(p)]
		for j := 0; j < len(q); j++ {
			c, d := q[j], q[(j+1)%len(q)]
			if _, ok := SegmentIntersection(a, b, c, d, eps); ok {
				return true
			}
		}
	}
	if len(q) > 0 && !onAnyEdge(p, q.Centroid(), eps) && p.ContainsPoint(q.Centroid(), 0) {
		return true
	}
	if len(p) > 0 && !onAnyEdge(q, p.Centroid(), eps) && q.ContainsPoint(p.Centroid(), 0) {
		return true
	}
	return false
}

// IsSimple reports whether no two non-adjacent edges of the ring cross.
func (p Polygon) IsSimple(eps float64) bool {
	n := len(p)
	for i := 0; i < n; i++ {
		a, b := p[i], p[(i+1)%n]
		for j := i + 1; j < n; j++ {
			// Skip adjacent edges, including the wrap-around pair.
			if j == i || (j+1)%n == i || (i+1)%n == j {
				continue
			}
			c, d := p[j], p[(j+1)%n]
			if _, ok := SegmentIntersection(a, b, c, d, eps); ok {
				return false
			}
		}
	}
	return true
}

// MinDistToBoundary returns the minimum distance from pt to any edge of
// the ring.
func (p Polygon) MinDistToBoundary(pt Point) float64 {
	best := math.Inf(1)
	n := len(p)
	for i := 0; i < n; i++ {
		if d := DistToSegment(pt, p[i], p[(i+1)%n]); d < best {
			best = d
		}
	}
	return best
}

func onAnyEdge(p Polygon, pt Point, eps float64) bool {
	n := len(p)
	for i := 0; i < n; i++ {
		if DistToSegment(pt, p[i], p[(i+1)%n]) <= eps {
			return true
		}
	}
	return false
}

// DistToSegment returns the distance from pt to the closest point of
// segment ab.
func DistToSegment(pt, a, b Point) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return pt.Dist(a)
	}
	t := pt.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return pt.Dist(a.Add(ab.Scale(t)))
}
