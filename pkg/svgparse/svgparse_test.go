package svgparse

import (
	"math"
	"testing"

	"github.com/quiltlab/piecework/pkg/errors"
)

// 2x2 all-red PNG.
const redPNG = "iVBORw0KGgoAAAANSUhEUgAAAAIAAAACCAIAAAD91JpzAAAAEElEQVR4nGP4z8AARAwQCgAf7gP9i18U1AAAAABJRU5ErkJggg=="

func TestParse_Elements(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="4in" height="2in">
		<line x1="0" y1="0" x2="10" y2="0"/>
		<polyline points="0,0 0,10 10,10"/>
		<polygon points="20,20 30,20 30,30"/>
	</svg>`
	d, err := Parse([]byte(svg), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// 1 line + 2 polyline segments + 3 closed polygon segments.
	if len(d.Segments) != 6 {
		t.Errorf("segments = %d, want 6", len(d.Segments))
	}
	if d.Width != 4*DefaultUnitsPerInch {
		t.Errorf("Width = %v, want %v", d.Width, 4*DefaultUnitsPerInch)
	}
	if d.Height != 2*DefaultUnitsPerInch {
		t.Errorf("Height = %v, want %v", d.Height, 2*DefaultUnitsPerInch)
	}
}

func TestParse_PathCommands(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg">
		<path d="M 0 0 L 10 0 l 0 10 H 0 V 0 Z"/>
	</svg>`
	d, err := Parse([]byte(svg), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// L, l, H, V draw four sides; Z closes onto the start point, which
	// V already reached, so no extra segment.
	if len(d.Segments) != 4 {
		t.Fatalf("segments = %d, want 4", len(d.Segments))
	}
	last := d.Segments[3]
	if last.B.X != 0 || last.B.Y != 0 {
		t.Errorf("path does not close at origin, ends at %v", last.B)
	}
}

func TestParse_PathNegativeAndImplicit(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg">
		<path d="M10 10 20 10-5-5"/>
	</svg>`
	d, err := Parse([]byte(svg), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// Implicit line-tos after M: 10,10→20,10→-5,-5.
	if len(d.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(d.Segments))
	}
	if got := d.Segments[1].B; got.X != -5 || got.Y != -5 {
		t.Errorf("second segment ends at %v, want (-5,-5)", got)
	}
}

func TestParse_CurvesSkippedWithDiagnostic(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg">
		<path d="M 0 0 L 10 0 C 12 2 14 4 16 6 L 20 6"/>
	</svg>`
	var diags errors.Diagnostics
	d, err := Parse([]byte(svg), &diags)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(d.Segments) != 2 {
		t.Fatalf("segments = %d, want 2 (straight parts only)", len(d.Segments))
	}
	// The walk resumes from the curve's end point.
	if got := d.Segments[1].A; got.X != 16 || got.Y != 6 {
		t.Errorf("segment after curve starts at %v, want (16,6)", got)
	}
	if !diags.HasCode(errors.ErrCodeInvalidSVG) {
		t.Error("expected a diagnostic for the skipped curve")
	}
}

func TestParse_NestedGroups(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg">
		<g><g><line x1="0" y1="0" x2="1" y2="1"/></g>
		<line x1="1" y1="1" x2="2" y2="0"/></g>
	</svg>`
	d, err := Parse([]byte(svg), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(d.Segments) != 2 {
		t.Errorf("segments = %d, want 2", len(d.Segments))
	}
}

func TestParse_EmbeddedImage(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink">
		<line x1="0" y1="0" x2="1" y2="0"/>
		<image x="5" y="7" width="100" height="100" xlink:href="data:image/png;base64,` + redPNG + `"/>
	</svg>`
	d, err := Parse([]byte(svg), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Image == nil {
		t.Fatal("embedded image not decoded")
	}
	if d.Image.X != 5 || d.Image.Y != 7 {
		t.Errorf("image offset = (%v,%v), want (5,7)", d.Image.X, d.Image.Y)
	}
	b := d.Image.Bitmap.Bounds()
	if b.Dx() != 2 || b.Dy() != 2 {
		t.Errorf("bitmap is %dx%d, want 2x2", b.Dx(), b.Dy())
	}
	r, g, bl, _ := d.Image.Bitmap.At(0, 0).RGBA()
	if r>>8 != 255 || g>>8 != 0 || bl>>8 != 0 {
		t.Errorf("pixel (0,0) = %d,%d,%d, want 255,0,0", r>>8, g>>8, bl>>8)
	}
}

func TestParse_NoGeometry(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg"><rect width="4" height="4"/></svg>`
	_, err := Parse([]byte(svg), nil)
	if errors.GetCode(err) != errors.ErrCodeInvalidSVG {
		t.Errorf("GetCode(err) = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidSVG)
	}
}

func TestParseLength_Units(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"96", 96},
		{"1in", 96},
		{"25.4mm", 96},
		{"2.54cm", 96},
		{"72pt", 96},
		{"10px", 10},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseLength(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("parseLength(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
