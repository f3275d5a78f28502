package planar

import (
	"math"
	"strings"
	"testing"

	"github.com/quiltlab/piecework/pkg/errors"
	"github.com/quiltlab/piecework/pkg/geom"
)

func seg(ax, ay, bx, by float64) geom.Segment {
	return geom.Segment{A: geom.Point{X: ax, Y: ay}, B: geom.Point{X: bx, Y: by}}
}

// addAll adds segments with their slice index as source, failing the test
// on any error.
func addAll(t *testing.T, b *Builder, segs []geom.Segment) {
	t.Helper()
	for i, s := range segs {
		if err := b.AddSegment(s, i); err != nil {
			t.Fatalf("AddSegment(%d) error: %v", i, err)
		}
	}
}

func unitSquareSegments() []geom.Segment {
	return []geom.Segment{
		seg(0, 0, 1, 0),
		seg(1, 0, 1, 1),
		seg(1, 1, 0, 1),
		seg(0, 1, 0, 0),
	}
}

func TestBuilder_SnapsEndpoints(t *testing.T) {
	b := NewBuilder(1e-3)
	// Second segment starts within tolerance of the first's end.
	if err := b.AddSegment(seg(0, 0, 1, 0), 0); err != nil {
		t.Fatal(err)
	}
	if err := b.AddSegment(seg(1.0004, 0.0003, 2, 0), 1); err != nil {
		t.Fatal(err)
	}
	g := b.Graph()
	if g.NodeCount() != 3 {
		t.Errorf("NodeCount = %d, want 3 (endpoints snapped)", g.NodeCount())
	}
	if g.EdgeCount() != 2 {
		t.Errorf("EdgeCount = %d, want 2", g.EdgeCount())
	}
}

func TestBuilder_SnapsAtExactTolerance(t *testing.T) {
	// A tolerance exactly representable in binary keeps the distance
	// computation exact, so this really exercises the boundary case.
	b := NewBuilder(0.25)
	// Second segment starts exactly one tolerance from the first's end;
	// points within tolerance compare equal, boundary included.
	if err := b.AddSegment(seg(0, 0, 1, 0), 0); err != nil {
		t.Fatal(err)
	}
	if err := b.AddSegment(seg(1.25, 0, 2, 0), 1); err != nil {
		t.Fatal(err)
	}
	g := b.Graph()
	if g.NodeCount() != 3 {
		t.Errorf("NodeCount = %d, want 3 (endpoint exactly tol away snapped)", g.NodeCount())
	}
}

func TestBuilder_ZeroLengthSegment(t *testing.T) {
	b := NewBuilder(1e-3)
	err := b.AddSegment(seg(0, 0, 0.0002, 0.0002), 0)
	if !errors.Is(err, errors.ErrCodeDegenerateInput) {
		t.Errorf("AddSegment error = %v, want DEGENERATE_INPUT", err)
	}
}

func TestBuilder_DuplicateEdge(t *testing.T) {
	b := NewBuilder(1e-3)
	if err := b.AddSegment(seg(0, 0, 1, 1), 0); err != nil {
		t.Fatal(err)
	}
	// Same edge, opposite direction.
	err := b.AddSegment(seg(1, 1, 0, 0), 1)
	if !errors.Is(err, errors.ErrCodeDegenerateInput) {
		t.Errorf("duplicate AddSegment error = %v, want DEGENERATE_INPUT", err)
	}
}

func TestFaces_UnitSquare(t *testing.T) {
	b := NewBuilder(1e-6)
	addAll(t, b, unitSquareSegments())
	var diags errors.Diagnostics
	patches := b.Graph().Faces(1e-9, &diags)

	if len(patches) != 1 {
		t.Fatalf("Faces() = %d patches, want 1", len(patches))
	}
	if got := patches[0].Poly.SignedArea(); math.Abs(got-1) > 1e-9 {
		t.Errorf("patch area = %v, want 1 (and CCW)", got)
	}
	if diags.Len() != 0 {
		t.Errorf("unexpected diagnostics: %s", diags.Summary())
	}
}

func TestFaces_SquareWithDiagonal(t *testing.T) {
	b := NewBuilder(1e-6)
	addAll(t, b, append(unitSquareSegments(), seg(0, 0, 1, 1)))
	var diags errors.Diagnostics
	patches := b.Graph().Faces(1e-9, &diags)

	if len(patches) != 2 {
		t.Fatalf("Faces() = %d patches, want 2 triangles", len(patches))
	}
	for _, p := range patches {
		if math.Abs(p.Poly.SignedArea()-0.5) > 1e-9 {
			t.Errorf("patch %d area = %v, want 0.5", p.ID, p.Poly.SignedArea())
		}
	}
}

func TestFaces_TwoByTwoGrid(t *testing.T) {
	b := NewBuilder(1e-6)
	segs := []geom.Segment{
		// Horizontal lines.
		seg(0, 0, 1, 0), seg(1, 0, 2, 0),
		seg(0, 1, 1, 1), seg(1, 1, 2, 1),
		seg(0, 2, 1, 2), seg(1, 2, 2, 2),
		// Vertical lines.
		seg(0, 0, 0, 1), seg(0, 1, 0, 2),
		seg(1, 0, 1, 1), seg(1, 1, 1, 2),
		seg(2, 0, 2, 1), seg(2, 1, 2, 2),
	}
	addAll(t, b, segs)
	var diags errors.Diagnostics
	patches := b.Graph().Faces(1e-9, &diags)

	if len(patches) != 4 {
		t.Fatalf("Faces() = %d patches, want 4 unit cells", len(patches))
	}
	var total float64
	for _, p := range patches {
		total += p.Poly.Area()
	}
	if math.Abs(total-4) > 1e-9 {
		t.Errorf("total patch area = %v, want 4 (no gaps, no overlaps)", total)
	}
}

func TestFaces_DanglingSegment(t *testing.T) {
	b := NewBuilder(1e-6)
	// Closed square plus a segment with one free end.
	addAll(t, b, append(unitSquareSegments(), seg(1, 1, 2, 2)))
	var diags errors.Diagnostics
	patches := b.Graph().Faces(1e-9, &diags)

	if len(patches) != 1 {
		t.Fatalf("Faces() = %d patches, want 1 (square survives)", len(patches))
	}
	if math.Abs(patches[0].Poly.Area()-1) > 1e-9 {
		t.Errorf("patch area = %v, want 1", patches[0].Poly.Area())
	}
	if !diags.HasCode(errors.ErrCodeOpenPath) {
		t.Error("expected OPEN_PATH diagnostic for dangling segment")
	}
	found := false
	for _, d := range diags.Items() {
		if d.Code == errors.ErrCodeOpenPath && strings.Contains(d.Message, "segment 4") {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostic should name segment 4, got: %s", diags.Summary())
	}
}

func TestFaces_DegenerateSliver(t *testing.T) {
	b := NewBuilder(1e-6)
	// A large square and a tiny triangle below the area threshold.
	segs := append(unitSquareSegments(),
		seg(3, 0, 3.001, 0),
		seg(3.001, 0, 3, 0.001),
		seg(3, 0.001, 3, 0),
	)
	addAll(t, b, segs)
	var diags errors.Diagnostics
	patches := b.Graph().Faces(1e-4, &diags)

	if len(patches) != 1 {
		t.Fatalf("Faces() = %d patches, want 1 (sliver discarded)", len(patches))
	}
	if !diags.HasCode(errors.ErrCodeDegenerateInput) {
		t.Error("expected DEGENERATE_INPUT diagnostic for discarded sliver")
	}
}

func TestFaces_Determinism(t *testing.T) {
	build := func() []Patch {
		b := NewBuilder(1e-6)
		addAll(t, b, append(unitSquareSegments(), seg(0, 0, 1, 1)))
		var diags errors.Diagnostics
		return b.Graph().Faces(1e-9, &diags)
	}
	a := build()
	c := build()
	if len(a) != len(c) {
		t.Fatalf("patch counts differ: %d vs %d", len(a), len(c))
	}
	for i := range a {
		if len(a[i].Ring) != len(c[i].Ring) {
			t.Fatalf("patch %d ring lengths differ", i)
		}
		for j := range a[i].Ring {
			if a[i].Ring[j] != c[i].Ring[j] {
				t.Errorf("patch %d ring differs at %d: %d vs %d", i, j, a[i].Ring[j], c[i].Ring[j])
			}
		}
	}
}
