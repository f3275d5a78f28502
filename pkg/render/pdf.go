package render

import (
	"bytes"
	"time"

	"codeberg.org/go-pdf/fpdf"

	"github.com/quiltlab/piecework/pkg/errors"
	"github.com/quiltlab/piecework/pkg/geom"
	"github.com/quiltlab/piecework/pkg/layout"
	"github.com/quiltlab/piecework/pkg/piecing"
	"github.com/quiltlab/piecework/pkg/planar"
)

// PDFOption configures PDF rendering.
type PDFOption func(*pdfRenderer)

type pdfRenderer struct {
	pageW, pageH float64 // inches
	fontSize     float64 // points
	names        map[int]string
	solidCut     bool
}

// WithPDFPageSize sets the page size in inches (default 8.5 by 11).
func WithPDFPageSize(w, h float64) PDFOption {
	return func(r *pdfRenderer) { r.pageW, r.pageH = w, h }
}

// WithPDFLabelSize sets the piece label font size in points (default 24).
func WithPDFLabelSize(pt float64) PDFOption {
	return func(r *pdfRenderer) { r.fontSize = pt }
}

// WithPDFColorNames prints a fabric color name under each piece label,
// keyed by patch id.
func WithPDFColorNames(names map[int]string) PDFOption {
	return func(r *pdfRenderer) { r.names = names }
}

// WithPDFSolidCutLine draws the allowance cut line solid instead of dashed.
func WithPDFSolidCutLine() PDFOption {
	return func(r *pdfRenderer) { r.solidCut = true }
}

// RenderPDF writes the packed placements as a printable PDF, one page
// per packed page. Each placement draws its seam allowance band in gray
// with a dashed cut line, then the member patches filled light with
// solid seam lines, then labels at the transformed patch centroids.
// All page coordinates are inches.
func RenderPDF(packed *layout.Result, groups []piecing.Group, patches []planar.Patch,
	labels map[int]piecing.Label, opts ...PDFOption) ([]byte, error) {

	r := pdfRenderer{pageW: 8.5, pageH: 11, fontSize: 24}
	for _, opt := range opts {
		opt(&r)
	}
	if packed == nil || len(packed.Placements) == 0 {
		return nil, errors.New(errors.ErrCodeDegenerateInput, "nothing to render")
	}

	byID := make(map[int]planar.Patch, len(patches))
	for _, p := range patches {
		byID[p.ID] = p
	}
	members := make(map[int][]int, len(groups))
	for _, g := range groups {
		members[g.ID] = g.Order
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "in",
		Size:           fpdf.SizeType{Wd: r.pageW, Ht: r.pageH},
	})
	pdf.SetAutoPageBreak(false, 0)
	// Pinned timestamps keep identical inputs rendering identical bytes,
	// which the artifact cache relies on.
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	pdf.SetModificationDate(time.Unix(0, 0).UTC())

	for page := 0; page < packed.Pages; page++ {
		pdf.AddPage()
		for _, pl := range packed.Placements {
			if pl.Page != page {
				continue
			}
			r.drawPlacement(pdf, pl, byID, members[pl.Group], labels)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "writing PDF")
	}
	return buf.Bytes(), nil
}

func (r *pdfRenderer) drawPlacement(pdf *fpdf.Fpdf, pl layout.Placement,
	byID map[int]planar.Patch, order []int, labels map[int]piecing.Label) {

	// Allowance band: gray fill, dashed cut line along the outline and
	// any hole outlines.
	pdf.SetFillColor(0x88, 0x88, 0x88)
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.01)
	if !r.solidCut {
		pdf.SetDashPattern([]float64{0.08, 0.06}, 0)
	}
	tracePDFPoly(pdf, pl.Outline)
	for _, h := range pl.Holes {
		tracePDFPoly(pdf, h)
	}
	pdf.DrawPath("FD")
	pdf.SetDashPattern(nil, 0)

	// Member patches: light fill, solid black seam lines.
	pdf.SetFillColor(0xee, 0xee, 0xee)
	for _, pid := range order {
		patch, ok := byID[pid]
		if !ok {
			continue
		}
		tracePDFPoly(pdf, pl.Apply(patch.Poly))
		pdf.DrawPath("FD")
	}

	for _, pid := range order {
		lab, ok := labels[pid]
		if !ok {
			continue
		}
		at := pl.ApplyPoint(lab.At)
		r.drawLabel(pdf, at, lab.Text, pid)
	}
}

func (r *pdfRenderer) drawLabel(pdf *fpdf.Fpdf, at geom.Point, text string, pid int) {
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", r.fontSize)
	// Text is anchored at the baseline; nudge down so the label sits
	// visually centered on the anchor.
	baseline := 0.35 * r.fontSize / 72
	pdf.Text(at.X-pdf.GetStringWidth(text)/2, at.Y+baseline, text)

	if name, ok := r.names[pid]; ok && name != "" {
		pdf.SetFont("Helvetica", "", r.fontSize/2)
		pdf.Text(at.X-pdf.GetStringWidth(name)/2, at.Y+baseline+0.75*r.fontSize/72, name)
	}
}

func tracePDFPoly(pdf *fpdf.Fpdf, poly geom.Polygon) {
	if len(poly) == 0 {
		return
	}
	pdf.MoveTo(poly[0].X, poly[0].Y)
	for _, p := range poly[1:] {
		pdf.LineTo(p.X, p.Y)
	}
	pdf.ClosePath()
}
