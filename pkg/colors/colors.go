// Package colors decorates patches and groups with display colors. It
// either samples a bitmap embedded in the source drawing near each
// patch centroid, or falls back to a generated pastel palette. Colors
// never influence geometry.
package colors

import (
	"image"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/quiltlab/piecework/pkg/geom"
)

// DefaultSampleRadius is the bitmap sampling radius in pixels.
const DefaultSampleRadius = 6

// Attribution is the display color assigned to one patch or group.
type Attribution struct {
	Color colorful.Color
	Name  string
}

// Hex returns the color as #rrggbb.
func (a Attribution) Hex() string { return a.Color.Hex() }

// Palette returns n visually distinct colors with evenly spaced hues.
// The order is fixed so identical runs color identically.
func Palette(n int, pastel bool) []colorful.Color {
	s, v := 0.85, 0.9
	if pastel {
		s, v = 0.5, 0.85
	}
	out := make([]colorful.Color, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, colorful.Hsv(360*float64(i)/float64(n), s, v))
	}
	return out
}

// Placement locates a sampled bitmap in drawing coordinates.
type Placement struct {
	X, Y          float64
	Width, Height float64 // drawing units; 0 means the bitmap's pixel size
}

// SampleAt averages the bitmap around the drawing-coordinate point p,
// converting through the placement's scale. Points sampling entirely
// outside the bitmap come back black.
func SampleAt(img image.Image, pl Placement, p geom.Point, radius int) colorful.Color {
	b := img.Bounds()
	scaleX, scaleY := 1.0, 1.0
	if pl.Width > 0 {
		scaleX = float64(b.Dx()) / pl.Width
	}
	if pl.Height > 0 {
		scaleY = float64(b.Dy()) / pl.Height
	}
	px := b.Min.X + int((p.X-pl.X)*scaleX+0.5)
	py := b.Min.Y + int((p.Y-pl.Y)*scaleY+0.5)

	var rSum, gSum, bSum float64
	var count int
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			x, y := px+dx, py+dy
			if x < b.Min.X || x >= b.Max.X || y < b.Min.Y || y >= b.Max.Y {
				continue
			}
			r, g, bl, _ := img.At(x, y).RGBA()
			rSum += float64(r) / 0xffff
			gSum += float64(g) / 0xffff
			bSum += float64(bl) / 0xffff
			count++
		}
	}
	if count == 0 {
		return colorful.Color{}
	}
	return colorful.Color{
		R: rSum / float64(count),
		G: gSum / float64(count),
		B: bSum / float64(count),
	}
}

// Annotate samples a color for every centroid in the map. Keys are
// patch ids; the result holds one attribution per patch.
func Annotate(img image.Image, pl Placement, centroids map[int]geom.Point, radius int) map[int]Attribution {
	if radius <= 0 {
		radius = DefaultSampleRadius
	}
	out := make(map[int]Attribution, len(centroids))
	for id, c := range centroids {
		col := SampleAt(img, pl, c, radius)
		out[id] = Attribution{Color: col, Name: NearestName(col)}
	}
	return out
}

// AnnotateWithPalette assigns palette colors per group when no bitmap
// is available: every patch in a group shares the group's color.
func AnnotateWithPalette(groupOf map[int]int, groupCount int) map[int]Attribution {
	palette := Palette(groupCount, true)
	ids := make([]int, 0, len(groupOf))
	for id := range groupOf {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make(map[int]Attribution, len(ids))
	for _, id := range ids {
		col := palette[groupOf[id]%len(palette)]
		out[id] = Attribution{Color: col, Name: NearestName(col)}
	}
	return out
}

// NearestName returns the CSS color name closest to c in Lab space.
func NearestName(c colorful.Color) string {
	best := ""
	bestDist := 0.0
	for _, nc := range namedColors {
		d := c.DistanceLab(nc.color)
		if best == "" || d < bestDist {
			best, bestDist = nc.name, d
		}
	}
	return best
}

type namedColor struct {
	name  string
	color colorful.Color
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// CSS3 color keywords, trimmed to visually distinct entries.
var namedColors = []namedColor{
	{"black", mustHex("#000000")},
	{"dimgray", mustHex("#696969")},
	{"gray", mustHex("#808080")},
	{"darkgray", mustHex("#a9a9a9")},
	{"silver", mustHex("#c0c0c0")},
	{"lightgray", mustHex("#d3d3d3")},
	{"gainsboro", mustHex("#dcdcdc")},
	{"white", mustHex("#ffffff")},
	{"maroon", mustHex("#800000")},
	{"darkred", mustHex("#8b0000")},
	{"brown", mustHex("#a52a2a")},
	{"firebrick", mustHex("#b22222")},
	{"crimson", mustHex("#dc143c")},
	{"red", mustHex("#ff0000")},
	{"tomato", mustHex("#ff6347")},
	{"coral", mustHex("#ff7f50")},
	{"salmon", mustHex("#fa8072")},
	{"lightsalmon", mustHex("#ffa07a")},
	{"orangered", mustHex("#ff4500")},
	{"darkorange", mustHex("#ff8c00")},
	{"orange", mustHex("#ffa500")},
	{"gold", mustHex("#ffd700")},
	{"yellow", mustHex("#ffff00")},
	{"khaki", mustHex("#f0e68c")},
	{"darkkhaki", mustHex("#bdb76b")},
	{"olive", mustHex("#808000")},
	{"yellowgreen", mustHex("#9acd32")},
	{"darkolivegreen", mustHex("#556b2f")},
	{"olivedrab", mustHex("#6b8e23")},
	{"lawngreen", mustHex("#7cfc00")},
	{"chartreuse", mustHex("#7fff00")},
	{"greenyellow", mustHex("#adff2f")},
	{"darkgreen", mustHex("#006400")},
	{"green", mustHex("#008000")},
	{"forestgreen", mustHex("#228b22")},
	{"lime", mustHex("#00ff00")},
	{"limegreen", mustHex("#32cd32")},
	{"lightgreen", mustHex("#90ee90")},
	{"palegreen", mustHex("#98fb98")},
	{"seagreen", mustHex("#2e8b57")},
	{"mediumseagreen", mustHex("#3cb371")},
	{"springgreen", mustHex("#00ff7f")},
	{"teal", mustHex("#008080")},
	{"darkcyan", mustHex("#008b8b")},
	{"lightseagreen", mustHex("#20b2aa")},
	{"cyan", mustHex("#00ffff")},
	{"lightcyan", mustHex("#e0ffff")},
	{"turquoise", mustHex("#40e0d0")},
	{"aquamarine", mustHex("#7fffd4")},
	{"cadetblue", mustHex("#5f9ea0")},
	{"steelblue", mustHex("#4682b4")},
	{"lightsteelblue", mustHex("#b0c4de")},
	{"powderblue", mustHex("#b0e0e6")},
	{"lightblue", mustHex("#add8e6")},
	{"skyblue", mustHex("#87ceeb")},
	{"lightskyblue", mustHex("#87cefa")},
	{"deepskyblue", mustHex("#00bfff")},
	{"dodgerblue", mustHex("#1e90ff")},
	{"cornflowerblue", mustHex("#6495ed")},
	{"royalblue", mustHex("#4169e1")},
	{"blue", mustHex("#0000ff")},
	{"mediumblue", mustHex("#0000cd")},
	{"darkblue", mustHex("#00008b")},
	{"navy", mustHex("#000080")},
	{"midnightblue", mustHex("#191970")},
	{"slateblue", mustHex("#6a5acd")},
	{"mediumslateblue", mustHex("#7b68ee")},
	{"mediumpurple", mustHex("#9370db")},
	{"blueviolet", mustHex("#8a2be2")},
	{"indigo", mustHex("#4b0082")},
	{"darkviolet", mustHex("#9400d3")},
	{"darkorchid", mustHex("#9932cc")},
	{"mediumorchid", mustHex("#ba55d3")},
	{"purple", mustHex("#800080")},
	{"darkmagenta", mustHex("#8b008b")},
	{"magenta", mustHex("#ff00ff")},
	{"orchid", mustHex("#da70d6")},
	{"violet", mustHex("#ee82ee")},
	{"plum", mustHex("#dda0dd")},
	{"thistle", mustHex("#d8bfd8")},
	{"lavender", mustHex("#e6e6fa")},
	{"mediumvioletred", mustHex("#c71585")},
	{"deeppink", mustHex("#ff1493")},
	{"hotpink", mustHex("#ff69b4")},
	{"palevioletred", mustHex("#db7093")},
	{"pink", mustHex("#ffc0cb")},
	{"lightpink", mustHex("#ffb6c1")},
	{"sienna", mustHex("#a0522d")},
	{"saddlebrown", mustHex("#8b4513")},
	{"chocolate", mustHex("#d2691e")},
	{"peru", mustHex("#cd853f")},
	{"darkgoldenrod", mustHex("#b8860b")},
	{"goldenrod", mustHex("#daa520")},
	{"sandybrown", mustHex("#f4a460")},
	{"rosybrown", mustHex("#bc8f8f")},
	{"tan", mustHex("#d2b48c")},
	{"burlywood", mustHex("#deb887")},
	{"wheat", mustHex("#f5deb3")},
	{"navajowhite", mustHex("#ffdead")},
	{"bisque", mustHex("#ffe4c4")},
	{"beige", mustHex("#f5f5dc")},
	{"ivory", mustHex("#fffff0")},
	{"snow", mustHex("#fffafa")},
}
