// Package layout places allowance outlines onto fixed-size pages. The
// packer works on axis-aligned bounding boxes with a shelf heuristic:
// shapes are sorted by descending footprint and dropped onto the first
// shelf with room, opening shelves and pages as needed.
package layout

import (
	"math"
	"sort"

	"github.com/quiltlab/piecework/pkg/allowance"
	"github.com/quiltlab/piecework/pkg/errors"
	"github.com/quiltlab/piecework/pkg/geom"
)

// DefaultRotationStep is the rotation granularity in degrees.
const DefaultRotationStep = 90.0

// Options describes the page grid the packer fills.
type Options struct {
	PageWidth    float64 // drawing units
	PageHeight   float64
	Margin       float64 // unusable border on every page side
	Spacing      float64 // gap kept between shapes on a page
	RotationStep float64 // degrees; 0 means DefaultRotationStep
}

func (o Options) rotationStep() float64 {
	if o.RotationStep <= 0 {
		return DefaultRotationStep
	}
	return o.RotationStep
}

func (o Options) usable() (w, h float64) {
	return o.PageWidth - 2*o.Margin, o.PageHeight - 2*o.Margin
}

// Placement pins one group's shape to a page: rotate the drawing
// geometry by Rotation degrees around Center, then translate by Offset
// to land in page coordinates (origin at the page's bottom-left).
type Placement struct {
	Group    int
	Page     int
	Rotation float64
	Center   geom.Point
	Offset   geom.Point
	Outline  geom.Polygon // cut line in page coordinates
	Holes    []geom.Polygon
}

// Apply transforms drawing-coordinate geometry into this placement's
// page coordinates.
func (p Placement) Apply(poly geom.Polygon) geom.Polygon {
	return poly.RotateAround(p.Center, p.Rotation*math.Pi/180).Translate(p.Offset.X, p.Offset.Y)
}

// ApplyPoint transforms a single drawing-coordinate point.
func (p Placement) ApplyPoint(pt geom.Point) geom.Point {
	return pt.RotateAround(p.Center, p.Rotation*math.Pi/180).Add(p.Offset)
}

// Result is a finished packing run.
type Result struct {
	Placements []Placement
	Pages      int
}

type orientation struct {
	deg  float64
	w, h float64
	poly geom.Polygon // rotated, bbox-normalized to origin
	min  geom.Point   // rotated bbox min, for the final offset
}

type shelf struct {
	y, height, x float64
}

type page struct {
	shelves []shelf
	top     float64 // next free y
}

// Pack places every allowance polygon on a page, minimizing page count
// greedily. Placement is deterministic for identical input. A shape
// that fits no page in any rotation fails with an OVERSIZED_SHAPE
// error naming the group and the smallest page that would hold it.
func Pack(polys []allowance.Polygon, opts Options) (*Result, error) {
	usableW, usableH := opts.usable()
	if usableW <= 0 || usableH <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"page %gx%g with margin %g leaves no usable area",
			opts.PageWidth, opts.PageHeight, opts.Margin)
	}

	type item struct {
		poly   allowance.Polygon
		orient []orientation
	}
	items := make([]item, len(polys))
	for i, p := range polys {
		items[i] = item{poly: p, orient: orientations(p, opts.rotationStep())}
	}
	// Largest footprint first; group id breaks ties so reruns agree.
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].orient[0], items[j].orient[0]
		if aa, ba := a.w*a.h, b.w*b.h; aa != ba {
			return aa > ba
		}
		return items[i].poly.Group < items[j].poly.Group
	})

	var pages []*page
	res := &Result{}
	for _, it := range items {
		placed := false
	search:
		for pi := range pages {
			for _, o := range it.orient {
				if x, y, ok := pages[pi].fit(o.w, o.h, usableW, usableH, opts.Spacing); ok {
					res.Placements = append(res.Placements, place(it.poly, o, pi, x, y, opts.Margin))
					placed = true
					break search
				}
			}
		}
		if placed {
			continue
		}
		fresh := &page{}
		for _, o := range it.orient {
			if x, y, ok := fresh.fit(o.w, o.h, usableW, usableH, opts.Spacing); ok {
				pages = append(pages, fresh)
				res.Placements = append(res.Placements, place(it.poly, o, len(pages)-1, x, y, opts.Margin))
				placed = true
				break
			}
		}
		if !placed {
			best := it.orient[0]
			for _, o := range it.orient {
				if math.Max(o.w, o.h) < math.Max(best.w, best.h) {
					best = o
				}
			}
			return nil, errors.New(errors.ErrCodeOversizedShape,
				"group %d fits no page in any rotation; needs at least a %.2fx%.2f page",
				it.poly.Group, best.w+2*opts.Margin, best.h+2*opts.Margin)
		}
	}
	res.Pages = len(pages)
	return res, nil
}

// fit finds room for a w×h rectangle, first on an existing shelf, then
// on a new shelf. Returns the usable-area position.
func (pg *page) fit(w, h, usableW, usableH, spacing float64) (x, y float64, ok bool) {
	const eps = 1e-9
	for i := range pg.shelves {
		s := &pg.shelves[i]
		gap := 0.0
		if s.x > 0 {
			gap = spacing
		}
		if s.x+gap+w <= usableW+eps && h <= s.height+eps {
			x, y = s.x+gap, s.y
			s.x += gap + w
			return x, y, true
		}
	}
	gap := 0.0
	if pg.top > 0 {
		gap = spacing
	}
	if pg.top+gap+h <= usableH+eps && w <= usableW+eps {
		y = pg.top + gap
		pg.shelves = append(pg.shelves, shelf{y: y, height: h, x: w})
		pg.top = y + h
		return 0, y, true
	}
	return 0, 0, false
}

// orientations enumerates the allowed rotations of a shape, preferring
// the tightest bounding box so the sweep doubles as a pre-pack
// normalization.
func orientations(p allowance.Polygon, stepDeg float64) []orientation {
	center := p.Outline.Bounds().Center()
	var out []orientation
	for deg := 0.0; deg < 360-1e-9; deg += stepDeg {
		rot := p.Outline.RotateAround(center, deg*math.Pi/180)
		b := rot.Bounds()
		out = append(out, orientation{
			deg:  deg,
			w:    b.Width(),
			h:    b.Height(),
			poly: rot,
			min:  b.Min,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if ai, aj := out[i].w*out[i].h, out[j].w*out[j].h; ai != aj {
			return ai < aj
		}
		return out[i].deg < out[j].deg
	})
	return out
}

func place(p allowance.Polygon, o orientation, pageIdx int, x, y, margin float64) Placement {
	center := p.Outline.Bounds().Center()
	offset := geom.Point{X: margin + x - o.min.X, Y: margin + y - o.min.Y}
	pl := Placement{
		Group:    p.Group,
		Page:     pageIdx,
		Rotation: o.deg,
		Center:   center,
		Offset:   offset,
		Outline:  o.poly.Translate(offset.X, offset.Y),
	}
	for _, h := range p.Holes {
		pl.Holes = append(pl.Holes, pl.Apply(h))
	}
	return pl
}
