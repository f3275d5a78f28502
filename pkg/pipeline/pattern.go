package pipeline

import (
	"github.com/quiltlab/piecework/pkg/allowance"
	"github.com/quiltlab/piecework/pkg/colors"
	"github.com/quiltlab/piecework/pkg/errors"
	"github.com/quiltlab/piecework/pkg/geom"
	"github.com/quiltlab/piecework/pkg/layout"
	"github.com/quiltlab/piecework/pkg/pattern"
	"github.com/quiltlab/piecework/pkg/piecing"
	"github.com/quiltlab/piecework/pkg/planar"
	"github.com/quiltlab/piecework/pkg/svgparse"
)

// BuildPattern runs the geometric core on a parsed drawing: planar
// graph, patch extraction, group detection with sewing order, seam
// allowance offsets, and page packing. Patch colors come from the
// embedded bitmap when one exists, otherwise from a generated palette.
func BuildPattern(d *svgparse.Drawing, opts Options, diags *errors.Diagnostics) (*pattern.Pattern, error) {
	b := planar.NewBuilder(opts.Tolerance)
	for i, s := range d.Segments {
		if err := b.AddSegment(s, i); err != nil {
			// Zero-length and duplicate segments degrade to diagnostics;
			// the rest of the drawing still produces a pattern.
			diags.Add(errors.ErrCodeDegenerateInput, "%v", err)
		}
	}
	g := b.Graph()

	patches := g.Faces(opts.MinPatchArea, diags)
	if len(patches) == 0 {
		return nil, errors.New(errors.ErrCodeDegenerateInput,
			"no closed regions found in %d segments", len(d.Segments))
	}

	groups, err := piecing.Detect(g, patches)
	if err != nil {
		return nil, err
	}

	centroids := make(map[int]geom.Point, len(patches))
	for _, p := range patches {
		centroids[p.ID] = p.Centroid()
	}
	labels := piecing.LabelPatches(groups, func(pid int) geom.Point { return centroids[pid] })

	polys, err := allowance.Compute(groups, allowance.Options{
		Distance:   opts.Allowance,
		MiterLimit: opts.MiterLimit,
	}, diags)
	if err != nil {
		return nil, err
	}

	packed, err := layout.Pack(polys, layout.Options{
		PageWidth:    opts.PageWidth,
		PageHeight:   opts.PageHeight,
		Margin:       opts.Margin,
		Spacing:      opts.Spacing,
		RotationStep: opts.RotationStep,
	})
	if err != nil {
		return nil, err
	}

	attrs := attributeColors(d, groups, centroids, opts)
	notes := make(map[int]pattern.Annotation, len(patches))
	for _, p := range patches {
		n := pattern.Annotation{Label: labels[p.ID].Text}
		if a, ok := attrs[p.ID]; ok {
			n.Color = a.Hex()
			n.Name = a.Name
		}
		notes[p.ID] = n
	}

	pat := pattern.Build(patches, groups, polys, packed, notes)
	pat.PageWidth = opts.PageWidth
	pat.PageHeight = opts.PageHeight
	return pat, nil
}

// attributeColors samples the embedded bitmap at patch centroids, or
// falls back to a distinct pastel palette per group.
func attributeColors(d *svgparse.Drawing, groups []piecing.Group,
	centroids map[int]geom.Point, opts Options) map[int]colors.Attribution {

	if d.Image != nil {
		pl := colors.Placement{
			X: d.Image.X, Y: d.Image.Y,
			Width: d.Image.Width, Height: d.Image.Height,
		}
		// Zero size means the image tag carried no dimensions; fall back
		// to the bitmap's pixel extent.
		bounds := d.Image.Bitmap.Bounds()
		if pl.Width == 0 {
			pl.Width = float64(bounds.Dx()) / opts.UnitsPerInch
		}
		if pl.Height == 0 {
			pl.Height = float64(bounds.Dy()) / opts.UnitsPerInch
		}
		return colors.Annotate(d.Image.Bitmap, pl, centroids, opts.SampleRadius)
	}
	return colors.AnnotateWithPalette(piecing.GroupOf(groups), len(groups))
}
