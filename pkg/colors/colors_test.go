package colors

import (
	"image"
	"image/color"
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/quiltlab/piecework/pkg/geom"
)

func TestPalette_Deterministic(t *testing.T) {
	a := Palette(7, true)
	b := Palette(7, true)
	if len(a) != 7 {
		t.Fatalf("palette size = %d, want 7", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("palette color %d differs between calls", i)
		}
	}
	seen := make(map[string]bool)
	for _, c := range a {
		if seen[c.Hex()] {
			t.Errorf("palette repeats color %s", c.Hex())
		}
		seen[c.Hex()] = true
	}
}

func TestNearestName(t *testing.T) {
	tests := []struct {
		hex  string
		want string
	}{
		{"#ff0000", "red"},
		{"#00ff00", "lime"},
		{"#0000ff", "blue"},
		{"#fefefe", "white"},
		{"#010101", "black"},
	}
	for _, tt := range tests {
		c, err := colorful.Hex(tt.hex)
		if err != nil {
			t.Fatalf("Hex(%q): %v", tt.hex, err)
		}
		if got := NearestName(c); got != tt.want {
			t.Errorf("NearestName(%s) = %q, want %q", tt.hex, got, tt.want)
		}
	}
}

// twoTone is red on the left half, blue on the right.
func twoTone(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 255, A: 255}
			if x >= w/2 {
				c = color.RGBA{B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestSampleAt_ScalesDrawingCoords(t *testing.T) {
	img := twoTone(100, 100)
	// The bitmap covers drawing units (10,10)..(20,20).
	pl := Placement{X: 10, Y: 10, Width: 10, Height: 10}

	left := SampleAt(img, pl, geom.Point{X: 12, Y: 15}, 2)
	if left.R < 0.9 || left.B > 0.1 {
		t.Errorf("left sample = %+v, want red", left)
	}
	right := SampleAt(img, pl, geom.Point{X: 18, Y: 15}, 2)
	if right.B < 0.9 || right.R > 0.1 {
		t.Errorf("right sample = %+v, want blue", right)
	}
}

func TestSampleAt_OutsideBitmap(t *testing.T) {
	img := twoTone(10, 10)
	pl := Placement{Width: 10, Height: 10}
	c := SampleAt(img, pl, geom.Point{X: 500, Y: 500}, 1)
	if c.R != 0 || c.G != 0 || c.B != 0 {
		t.Errorf("sample outside bitmap = %+v, want black", c)
	}
}

func TestAnnotate(t *testing.T) {
	img := twoTone(100, 100)
	pl := Placement{Width: 100, Height: 100}
	got := Annotate(img, pl, map[int]geom.Point{
		0: {X: 10, Y: 50},
		1: {X: 90, Y: 50},
	}, 3)
	if got[0].Name != "red" {
		t.Errorf("patch 0 named %q, want red", got[0].Name)
	}
	if got[1].Name != "blue" {
		t.Errorf("patch 1 named %q, want blue", got[1].Name)
	}
}

func TestAnnotateWithPalette(t *testing.T) {
	groupOf := map[int]int{0: 0, 1: 0, 2: 1}
	got := AnnotateWithPalette(groupOf, 2)
	if got[0] != got[1] {
		t.Error("patches in the same group should share a color")
	}
	if got[0] == got[2] {
		t.Error("different groups should get different colors")
	}
}
