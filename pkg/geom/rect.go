package geom

import "math"

// Rect is an axis-aligned rectangle defined by its minimum and maximum
// corners. The zero value is an empty rectangle at the origin.
type Rect struct {
	Min Point
	Max Point
}

// NewRect returns the rectangle spanning the two corners in any order.
func NewRect(a, b Point) Rect {
	return Rect{
		Min: Point{math.Min(a.X, b.X), math.Min(a.Y, b.Y)},
		Max: Point{math.Max(a.X, b.X), math.Max(a.Y, b.Y)},
	}
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Area returns width × height.
func (r Rect) Area() float64 { return r.Width() * r.Height() }

// Center returns the rectangle's midpoint.
func (r Rect) Center() Point {
	return Point{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// Union returns the smallest rectangle containing both r and s.
func (r Rect) Union(s Rect) Rect {
	return Rect{
		Min: Point{math.Min(r.Min.X, s.Min.X), math.Min(r.Min.Y, s.Min.Y)},
		Max: Point{math.Max(r.Max.X, s.Max.X), math.Max(r.Max.Y, s.Max.Y)},
	}
}

// ExpandToInclude grows r so it contains p.
func (r Rect) ExpandToInclude(p Point) Rect {
	return Rect{
		Min: Point{math.Min(r.Min.X, p.X), math.Min(r.Min.Y, p.Y)},
		Max: Point{math.Max(r.Max.X, p.X), math.Max(r.Max.Y, p.Y)},
	}
}

// Overlaps reports whether r and s share interior area, treating gaps
// smaller than eps as touching rather than overlapping.
func (r Rect) Overlaps(s Rect, eps float64) bool {
	return r.Min.X < s.Max.X-eps && s.Min.X < r.Max.X-eps &&
		r.Min.Y < s.Max.Y-eps && s.Min.Y < r.Max.Y-eps
}

// Contains reports whether p lies inside r, inclusive of the boundary
// within eps.
func (r Rect) Contains(p Point, eps float64) bool {
	return p.X >= r.Min.X-eps && p.X <= r.Max.X+eps &&
		p.Y >= r.Min.Y-eps && p.Y <= r.Max.Y+eps
}
