package render

import (
	"bytes"
	"image/png"

	"github.com/fogleman/gg"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font/basicfont"

	"github.com/quiltlab/piecework/pkg/colors"
	"github.com/quiltlab/piecework/pkg/errors"
	"github.com/quiltlab/piecework/pkg/geom"
	"github.com/quiltlab/piecework/pkg/piecing"
	"github.com/quiltlab/piecework/pkg/planar"
)

// PreviewOption configures preview rendering.
type PreviewOption func(*previewRenderer)

type previewRenderer struct {
	scale   float64 // pixels per drawing unit
	padding float64 // pixels
	labels  bool
}

// WithPreviewScale sets pixels per drawing unit (default 4).
func WithPreviewScale(s float64) PreviewOption {
	return func(r *previewRenderer) { r.scale = s }
}

// WithPreviewPadding sets the border padding in pixels (default 20).
func WithPreviewPadding(p float64) PreviewOption {
	return func(r *previewRenderer) { r.padding = p }
}

// WithoutLabels disables piece labels.
func WithoutLabels() PreviewOption {
	return func(r *previewRenderer) { r.labels = false }
}

// Preview renders the annotated drawing as a PNG: every patch filled
// with its attributed color, outlined in black, labeled at its
// centroid. Geometry stays in drawing coordinates.
func Preview(patches []planar.Patch, labels map[int]piecing.Label,
	attrs map[int]colors.Attribution, opts ...PreviewOption) ([]byte, error) {

	r := previewRenderer{scale: 4, padding: 20, labels: true}
	for _, opt := range opts {
		opt(&r)
	}
	if len(patches) == 0 {
		return nil, errors.New(errors.ErrCodeDegenerateInput, "nothing to preview")
	}

	bounds := patches[0].Bounds()
	for _, p := range patches[1:] {
		bounds = bounds.Union(p.Bounds())
	}
	w := int(bounds.Width()*r.scale + 2*r.padding)
	h := int(bounds.Height()*r.scale + 2*r.padding)
	if w < 1 || h < 1 {
		return nil, errors.New(errors.ErrCodeDegenerateInput, "drawing has no extent")
	}

	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	toCanvas := func(p geom.Point) (float64, float64) {
		return r.padding + (p.X-bounds.Min.X)*r.scale,
			r.padding + (p.Y-bounds.Min.Y)*r.scale
	}

	fallback := colors.Attribution{Color: colorful.Color{R: 0.7, G: 0.7, B: 0.95}}
	for _, patch := range patches {
		tracePoly(dc, patch.Poly, toCanvas)
		attr, ok := attrs[patch.ID]
		if !ok {
			attr = fallback
		}
		dc.SetRGB(attr.Color.R, attr.Color.G, attr.Color.B)
		dc.FillPreserve()
		dc.SetRGB(0, 0, 0)
		dc.SetLineWidth(1)
		dc.Stroke()
	}

	if r.labels {
		dc.SetFontFace(basicfont.Face7x13)
		// Label size shrinks with patch area so tiny pieces stay legible
		// without drowning the drawing; basicfont has one size, so small
		// patches simply keep the plain face.
		for _, patch := range patches {
			lab, ok := labels[patch.ID]
			if !ok {
				continue
			}
			x, y := toCanvas(lab.At)
			tw, th := dc.MeasureString(lab.Text)
			dc.SetRGBA(1, 1, 1, 0.7)
			dc.DrawRectangle(x-tw/2-2, y-th/2-2, tw+4, th+4)
			dc.Fill()
			dc.SetRGB(0, 0, 0)
			dc.DrawStringAnchored(lab.Text, x, y, 0.5, 0.5)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encoding preview PNG")
	}
	return buf.Bytes(), nil
}

func tracePoly(dc *gg.Context, poly geom.Polygon, toCanvas func(geom.Point) (float64, float64)) {
	if len(poly) == 0 {
		return
	}
	x, y := toCanvas(poly[0])
	dc.MoveTo(x, y)
	for _, p := range poly[1:] {
		x, y = toCanvas(p)
		dc.LineTo(x, y)
	}
	dc.ClosePath()
}
