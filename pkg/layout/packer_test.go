package layout

import (
	"strings"
	"testing"

	"github.com/quiltlab/piecework/pkg/allowance"
	"github.com/quiltlab/piecework/pkg/errors"
	"github.com/quiltlab/piecework/pkg/geom"
)

func letterPage() Options {
	return Options{PageWidth: 8.5, PageHeight: 11, Margin: 0.5}
}

func rectShape(group int, w, h float64) allowance.Polygon {
	return allowance.Polygon{
		Group: group,
		Outline: geom.Polygon{
			{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h},
		},
	}
}

func TestPack_FiveLargeShapes(t *testing.T) {
	// Five shapes each covering ~40% of the usable page area: at most
	// two fit per page, so five need at least three pages.
	var shapes []allowance.Polygon
	for i := 0; i < 5; i++ {
		shapes = append(shapes, rectShape(i, 7.0, 4.3))
	}
	res, err := Pack(shapes, letterPage())
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if res.Pages < 2 {
		t.Errorf("Pages = %d, want at least 2", res.Pages)
	}
	if res.Pages != 3 {
		t.Errorf("Pages = %d, want 3 (two shapes per page)", res.Pages)
	}
	if len(res.Placements) != 5 {
		t.Errorf("placements = %d, want 5", len(res.Placements))
	}
}

func TestPack_NoOverlapOnPage(t *testing.T) {
	opts := letterPage()
	opts.Spacing = 0.25
	var shapes []allowance.Polygon
	for i := 0; i < 8; i++ {
		shapes = append(shapes, rectShape(i, 2+float64(i%3), 1.5+float64(i%2)))
	}
	res, err := Pack(shapes, opts)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	for i := 0; i < len(res.Placements); i++ {
		for j := i + 1; j < len(res.Placements); j++ {
			a, b := res.Placements[i], res.Placements[j]
			if a.Page != b.Page {
				continue
			}
			if a.Outline.Bounds().Overlaps(b.Outline.Bounds(), 1e-9) {
				t.Errorf("groups %d and %d overlap on page %d", a.Group, b.Group, a.Page)
			}
		}
	}
}

func TestPack_PlacementsStayOnPage(t *testing.T) {
	opts := letterPage()
	shapes := []allowance.Polygon{
		rectShape(0, 7.0, 4.3), rectShape(1, 3, 3), rectShape(2, 9, 2),
	}
	res, err := Pack(shapes, opts)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	for _, pl := range res.Placements {
		b := pl.Outline.Bounds()
		if b.Min.X < opts.Margin-1e-9 || b.Min.Y < opts.Margin-1e-9 ||
			b.Max.X > opts.PageWidth-opts.Margin+1e-9 || b.Max.Y > opts.PageHeight-opts.Margin+1e-9 {
			t.Errorf("group %d placed at %+v outside the usable area", pl.Group, b)
		}
	}
}

func TestPack_RotationEnablesFit(t *testing.T) {
	// 9×2 is wider than the usable 7.5 but fits upright.
	res, err := Pack([]allowance.Polygon{rectShape(0, 9, 2)}, letterPage())
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	pl := res.Placements[0]
	if pl.Rotation != 90 {
		t.Errorf("Rotation = %v, want 90", pl.Rotation)
	}
	b := pl.Outline.Bounds()
	if w, h := b.Width(), b.Height(); w > 2+1e-9 || h < 9-1e-9 {
		t.Errorf("rotated outline is %vx%v, want 2x9", w, h)
	}
}

func TestPack_Oversized(t *testing.T) {
	_, err := Pack([]allowance.Polygon{rectShape(7, 12, 9)}, letterPage())
	if errors.GetCode(err) != errors.ErrCodeOversizedShape {
		t.Fatalf("GetCode(err) = %v, want %v", errors.GetCode(err), errors.ErrCodeOversizedShape)
	}
	if got := err.Error(); !strings.Contains(got, "group 7") {
		t.Errorf("error %q does not name the group", got)
	}
}

func TestPack_InvalidConfig(t *testing.T) {
	opts := Options{PageWidth: 2, PageHeight: 2, Margin: 1}
	_, err := Pack([]allowance.Polygon{rectShape(0, 1, 1)}, opts)
	if errors.GetCode(err) != errors.ErrCodeInvalidConfig {
		t.Errorf("GetCode(err) = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidConfig)
	}
}

func TestPack_Determinism(t *testing.T) {
	var shapes []allowance.Polygon
	for i := 0; i < 6; i++ {
		shapes = append(shapes, rectShape(i, 1+float64(i), 2))
	}
	first, err := Pack(shapes, letterPage())
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	again, err := Pack(shapes, letterPage())
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if first.Pages != again.Pages {
		t.Fatalf("page counts differ: %d vs %d", first.Pages, again.Pages)
	}
	for i := range first.Placements {
		a, b := first.Placements[i], again.Placements[i]
		if a.Group != b.Group || a.Page != b.Page || a.Rotation != b.Rotation || a.Offset != b.Offset {
			t.Errorf("placement %d differs: %+v vs %+v", i, a, b)
		}
	}
}
