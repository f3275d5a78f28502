package pipeline

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"os"

	"github.com/quiltlab/piecework/pkg/errors"
	"github.com/quiltlab/piecework/pkg/geom"
	"github.com/quiltlab/piecework/pkg/svgparse"
)

// Parse extracts segments and any embedded bitmap from the configured
// input and scales them from SVG user units to inches. Non-fatal
// findings (skipped curves, unit fallbacks) land in diags.
func Parse(opts Options, diags *errors.Diagnostics) (*svgparse.Drawing, error) {
	source, err := readSource(opts)
	if err != nil {
		return nil, err
	}
	d, err := svgparse.Parse(source, diags)
	if err != nil {
		return nil, err
	}
	scaleDrawing(d, 1/opts.UnitsPerInch)
	return d, nil
}

// readSource returns the raw SVG bytes, preferring inline source over
// the input path.
func readSource(opts Options) ([]byte, error) {
	if len(opts.Source) > 0 {
		return opts.Source, nil
	}
	data, err := os.ReadFile(opts.Input)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "input file %s not found", opts.Input)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", opts.Input)
	}
	return data, nil
}

// scaleDrawing converts all coordinates by the given factor in place.
func scaleDrawing(d *svgparse.Drawing, factor float64) {
	for i, s := range d.Segments {
		d.Segments[i] = geom.Segment{
			A: geom.Point{X: s.A.X * factor, Y: s.A.Y * factor},
			B: geom.Point{X: s.B.X * factor, Y: s.B.Y * factor},
		}
	}
	d.Width *= factor
	d.Height *= factor
	if d.Image != nil {
		d.Image.X *= factor
		d.Image.Y *= factor
		d.Image.Width *= factor
		d.Image.Height *= factor
	}
}

// drawingDoc is the cacheable serialization of a parsed drawing.
// Segments are stored as [ax, ay, bx, by]; the bitmap is re-encoded
// as PNG.
type drawingDoc struct {
	Width    float64      `json:"width"`
	Height   float64      `json:"height"`
	Segments [][4]float64 `json:"segments"`
	Image    *imageDoc    `json:"image,omitempty"`
}

type imageDoc struct {
	PNG    []byte  `json:"png"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func marshalDrawing(d *svgparse.Drawing) ([]byte, error) {
	doc := drawingDoc{Width: d.Width, Height: d.Height}
	for _, s := range d.Segments {
		doc.Segments = append(doc.Segments, [4]float64{s.A.X, s.A.Y, s.B.X, s.B.Y})
	}
	if d.Image != nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, d.Image.Bitmap); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "encoding embedded bitmap")
		}
		doc.Image = &imageDoc{
			PNG: buf.Bytes(),
			X:   d.Image.X, Y: d.Image.Y,
			Width: d.Image.Width, Height: d.Image.Height,
		}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encoding drawing")
	}
	return data, nil
}

func unmarshalDrawing(data []byte) (*svgparse.Drawing, error) {
	var doc drawingDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decoding drawing")
	}
	d := &svgparse.Drawing{Width: doc.Width, Height: doc.Height}
	for _, s := range doc.Segments {
		d.Segments = append(d.Segments, geom.Segment{
			A: geom.Point{X: s[0], Y: s[1]},
			B: geom.Point{X: s[2], Y: s[3]},
		})
	}
	if doc.Image != nil {
		bitmap, _, err := image.Decode(bytes.NewReader(doc.Image.PNG))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decoding embedded bitmap")
		}
		d.Image = &svgparse.EmbeddedImage{
			Bitmap: bitmap,
			X:      doc.Image.X, Y: doc.Image.Y,
			Width: doc.Image.Width, Height: doc.Image.Height,
		}
	}
	return d, nil
}
