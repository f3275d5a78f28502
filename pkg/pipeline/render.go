package pipeline

import (
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/quiltlab/piecework/pkg/colors"
	"github.com/quiltlab/piecework/pkg/errors"
	"github.com/quiltlab/piecework/pkg/geom"
	"github.com/quiltlab/piecework/pkg/layout"
	"github.com/quiltlab/piecework/pkg/pattern"
	"github.com/quiltlab/piecework/pkg/piecing"
	"github.com/quiltlab/piecework/pkg/planar"
	"github.com/quiltlab/piecework/pkg/render"
)

// Render generates output artifacts in the requested formats from a
// pattern document. The document is self-contained, so rendering works
// the same whether the pattern was just built or read back from cache
// or disk.
func Render(p *pattern.Pattern, opts Options) (map[string][]byte, error) {
	patches, groups, labels, attrs, names, packed := explode(p)

	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatJSON:
			data, err = pattern.Marshal(p)
		case FormatPNG:
			previewOpts := []render.PreviewOption{render.WithPreviewScale(opts.PreviewScale)}
			if opts.NoLabels {
				previewOpts = append(previewOpts, render.WithoutLabels())
			}
			data, err = render.Preview(patches, labels, attrs, previewOpts...)
		case FormatPDF:
			pageW, pageH := p.PageWidth, p.PageHeight
			if pageW == 0 || pageH == 0 {
				pageW, pageH = opts.PageWidth, opts.PageHeight
			}
			data, err = render.RenderPDF(packed, groups, patches, labels,
				render.WithPDFPageSize(pageW, pageH),
				render.WithPDFLabelSize(opts.LabelSize),
				render.WithPDFColorNames(names))
		default:
			return nil, errors.New(errors.ErrCodeInvalidConfig, "unsupported format: %s", format)
		}

		if err != nil {
			code := errors.GetCode(err)
			if code == "" {
				code = errors.ErrCodeInternal
			}
			return nil, errors.Wrap(code, err, "render %s", format)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// explode reconstructs the in-memory geometry the renderers consume
// from the serialized document.
func explode(p *pattern.Pattern) ([]planar.Patch, []piecing.Group,
	map[int]piecing.Label, map[int]colors.Attribution, map[int]string, *layout.Result) {

	var patches []planar.Patch
	labels := make(map[int]piecing.Label)
	attrs := make(map[int]colors.Attribution)
	names := make(map[int]string)
	for _, pa := range p.Patches {
		poly := pa.Ring.Poly()
		patches = append(patches, planar.Patch{ID: pa.ID, Poly: poly})
		if pa.Label != "" {
			labels[pa.ID] = piecing.Label{Text: pa.Label, At: poly.Centroid()}
		}
		if pa.Color != "" {
			if c, err := colorful.Hex(pa.Color); err == nil {
				attrs[pa.ID] = colors.Attribution{Color: c, Name: pa.Name}
			}
		}
		if pa.Name != "" {
			names[pa.ID] = pa.Name
		}
	}

	var groups []piecing.Group
	for _, g := range p.Groups {
		item := piecing.Group{
			ID:       g.ID,
			Patches:  append([]int(nil), g.Patches...),
			Order:    append([]int(nil), g.Order...),
			Boundary: g.Boundary.Poly(),
		}
		for _, h := range g.Holes {
			item.Holes = append(item.Holes, h.Poly())
		}
		groups = append(groups, item)
	}

	packed := &layout.Result{Pages: p.Pages}
	for _, pl := range p.Placements {
		item := layout.Placement{
			Group:    pl.Group,
			Page:     pl.Page,
			Rotation: pl.Rotation,
			Center:   pointOf(pl.Center),
			Offset:   pointOf(pl.Offset),
			Outline:  pl.Outline.Poly(),
		}
		for _, h := range pl.Holes {
			item.Holes = append(item.Holes, h.Poly())
		}
		packed.Placements = append(packed.Placements, item)
	}

	return patches, groups, labels, attrs, names, packed
}

func pointOf(p pattern.Point) geom.Point { return geom.Point{X: p[0], Y: p[1]} }
