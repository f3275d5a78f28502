// Package svgparse reads line drawings out of SVG files. Only straight
// geometry is kept: line, polyline and polygon elements, and the M/L/H/V/Z
// commands of path elements. Curved path commands are reported as
// diagnostics and skipped. An embedded base64 bitmap, when present, is
// decoded for downstream color sampling.
package svgparse

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strconv"
	"strings"

	"github.com/quiltlab/piecework/pkg/errors"
	"github.com/quiltlab/piecework/pkg/geom"
)

// DefaultUnitsPerInch is the CSS pixel density SVG files assume when
// no unit suffix is given.
const DefaultUnitsPerInch = 96.0

// Drawing is the parsed content of one SVG file.
type Drawing struct {
	Segments []geom.Segment
	Width    float64 // document size in user units, 0 when unspecified
	Height   float64
	Image    *EmbeddedImage
}

// EmbeddedImage is a bitmap found inside the SVG together with its
// placement in user units.
type EmbeddedImage struct {
	Bitmap image.Image
	X, Y   float64
	Width  float64 // user units; 0 means use the bitmap's pixel size
	Height float64
}

type svgDoc struct {
	XMLName  xml.Name   `xml:"svg"`
	Width    string     `xml:"width,attr"`
	Height   string     `xml:"height,attr"`
	Lines    []svgLine  `xml:"line"`
	Polys    []svgPoly  `xml:"polyline"`
	Gons     []svgPoly  `xml:"polygon"`
	Paths    []svgPath  `xml:"path"`
	Images   []svgImage `xml:"image"`
	Groups   []svgGroup `xml:"g"`
}

type svgGroup struct {
	Lines  []svgLine  `xml:"line"`
	Polys  []svgPoly  `xml:"polyline"`
	Gons   []svgPoly  `xml:"polygon"`
	Paths  []svgPath  `xml:"path"`
	Images []svgImage `xml:"image"`
	Groups []svgGroup `xml:"g"`
}

type svgLine struct {
	X1 string `xml:"x1,attr"`
	Y1 string `xml:"y1,attr"`
	X2 string `xml:"x2,attr"`
	Y2 string `xml:"y2,attr"`
}

type svgPoly struct {
	Points string `xml:"points,attr"`
}

type svgPath struct {
	D string `xml:"d,attr"`
}

type svgImage struct {
	Href      string `xml:"href,attr"`
	XlinkHref string `xml:"http://www.w3.org/1999/xlink href,attr"`
	X         string `xml:"x,attr"`
	Y         string `xml:"y,attr"`
	Width     string `xml:"width,attr"`
	Height    string `xml:"height,attr"`
}

// ParseFile reads and parses an SVG file.
func ParseFile(path string, diags *errors.Diagnostics) (*Drawing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "SVG file %s not found", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidSVG, err, "reading SVG file %s", path)
	}
	return Parse(data, diags)
}

// Parse parses SVG bytes into a Drawing.
func Parse(data []byte, diags *errors.Diagnostics) (*Drawing, error) {
	var doc svgDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSVG, err, "malformed SVG document")
	}

	d := &Drawing{
		Width:  parseLength(doc.Width),
		Height: parseLength(doc.Height),
	}
	collect(d, doc.Lines, doc.Polys, doc.Gons, doc.Paths, doc.Images, diags)
	walkGroups(d, doc.Groups, diags)

	if len(d.Segments) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidSVG, "SVG contains no straight line geometry")
	}
	return d, nil
}

func walkGroups(d *Drawing, groups []svgGroup, diags *errors.Diagnostics) {
	for _, g := range groups {
		collect(d, g.Lines, g.Polys, g.Gons, g.Paths, g.Images, diags)
		walkGroups(d, g.Groups, diags)
	}
}

func collect(d *Drawing, lines []svgLine, polys, gons []svgPoly, paths []svgPath, images []svgImage, diags *errors.Diagnostics) {
	for _, l := range lines {
		d.Segments = append(d.Segments, geom.Segment{
			A: geom.Point{X: parseLength(l.X1), Y: parseLength(l.Y1)},
			B: geom.Point{X: parseLength(l.X2), Y: parseLength(l.Y2)},
		})
	}
	for _, p := range polys {
		d.Segments = append(d.Segments, chain(parsePoints(p.Points), false)...)
	}
	for _, p := range gons {
		d.Segments = append(d.Segments, chain(parsePoints(p.Points), true)...)
	}
	for _, p := range paths {
		d.Segments = append(d.Segments, parsePath(p.D, diags)...)
	}
	for _, img := range images {
		if d.Image != nil {
			continue // first embedded image wins
		}
		if em := decodeImage(img, diags); em != nil {
			d.Image = em
		}
	}
}

// chain links consecutive points into segments, closing the loop for
// polygon elements.
func chain(pts []geom.Point, closed bool) []geom.Segment {
	if len(pts) < 2 {
		return nil
	}
	var segs []geom.Segment
	for i := 0; i+1 < len(pts); i++ {
		segs = append(segs, geom.Segment{A: pts[i], B: pts[i+1]})
	}
	if closed && len(pts) > 2 {
		segs = append(segs, geom.Segment{A: pts[len(pts)-1], B: pts[0]})
	}
	return segs
}

// parsePath walks a path's command list keeping only straight commands.
// Anything curved (C, S, Q, T, A) is skipped with a diagnostic so the
// caller knows geometry was dropped.
func parsePath(d string, diags *errors.Diagnostics) []geom.Segment {
	var (
		segs         []geom.Segment
		cur, start   geom.Point
		haveCur      bool
		cmd          byte
		skippedCurve bool
	)
	toks := tokenizePath(d)
	for i := 0; i < len(toks); {
		t := toks[i]
		if len(t) == 1 && isPathCmd(t[0]) {
			cmd = t[0]
			i++
			if cmd == 'Z' || cmd == 'z' {
				if haveCur && cur.Dist(start) > 0 {
					segs = append(segs, geom.Segment{A: cur, B: start})
					cur = start
				}
				continue
			}
			continue
		}

		rel := cmd >= 'a' && cmd <= 'z'
		switch cmd {
		case 'M', 'm':
			p := geom.Point{X: num(toks, &i), Y: num(toks, &i)}
			if rel && haveCur {
				p = cur.Add(p)
			}
			cur, start, haveCur = p, p, true
			// Subsequent coordinate pairs are implicit line-tos.
			if cmd == 'M' {
				cmd = 'L'
			} else {
				cmd = 'l'
			}
		case 'L', 'l':
			p := geom.Point{X: num(toks, &i), Y: num(toks, &i)}
			if rel {
				p = cur.Add(p)
			}
			if haveCur {
				segs = append(segs, geom.Segment{A: cur, B: p})
			}
			cur, haveCur = p, true
		case 'H', 'h':
			x := num(toks, &i)
			if rel {
				x += cur.X
			}
			p := geom.Point{X: x, Y: cur.Y}
			segs = append(segs, geom.Segment{A: cur, B: p})
			cur = p
		case 'V', 'v':
			y := num(toks, &i)
			if rel {
				y += cur.Y
			}
			p := geom.Point{X: cur.X, Y: y}
			segs = append(segs, geom.Segment{A: cur, B: p})
			cur = p
		case 'C', 'c':
			cur = skipCurve(toks, &i, 6, rel, cur)
			skippedCurve = true
		case 'S', 's', 'Q', 'q':
			cur = skipCurve(toks, &i, 4, rel, cur)
			skippedCurve = true
		case 'T', 't':
			cur = skipCurve(toks, &i, 2, rel, cur)
			skippedCurve = true
		case 'A', 'a':
			cur = skipCurve(toks, &i, 7, rel, cur)
			skippedCurve = true
		default:
			i++
		}
	}
	if skippedCurve && diags != nil {
		diags.Add(errors.ErrCodeInvalidSVG, "path contains curved commands; only straight segments were kept")
	}
	return segs
}

// skipCurve consumes a curve command's arguments and returns its end
// point so the straight walk can continue from there.
func skipCurve(toks []string, i *int, args int, rel bool, cur geom.Point) geom.Point {
	var end geom.Point
	for k := 0; k < args; k++ {
		v := num(toks, i)
		if k == args-2 {
			end.X = v
		}
		if k == args-1 {
			end.Y = v
		}
	}
	if rel {
		end = cur.Add(end)
	}
	return end
}

func num(toks []string, i *int) float64 {
	if *i >= len(toks) {
		return 0
	}
	v, _ := strconv.ParseFloat(toks[*i], 64)
	*i++
	return v
}

func isPathCmd(b byte) bool {
	return strings.IndexByte("MmLlHhVvZzCcSsQqTtAa", b) >= 0
}

func tokenizePath(d string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(d); i++ {
		c := d[i]
		switch {
		case isPathCmd(c):
			flush()
			toks = append(toks, string(c))
		case c == ' ' || c == ',' || c == '\t' || c == '\n' || c == '\r':
			flush()
		case c == '-' && cur.Len() > 0 && d[i-1] != 'e' && d[i-1] != 'E':
			flush()
			cur.WriteByte(c)
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return toks
}

func parsePoints(s string) []geom.Point {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n' || r == '\r'
	})
	var pts []geom.Point
	for i := 0; i+1 < len(fields); i += 2 {
		x, errX := strconv.ParseFloat(fields[i], 64)
		y, errY := strconv.ParseFloat(fields[i+1], 64)
		if errX != nil || errY != nil {
			return nil
		}
		pts = append(pts, geom.Point{X: x, Y: y})
	}
	return pts
}

// parseLength reads an SVG length attribute, converting the common unit
// suffixes into user units at DefaultUnitsPerInch.
func parseLength(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	unit := 1.0
	switch {
	case strings.HasSuffix(s, "in"):
		unit, s = DefaultUnitsPerInch, strings.TrimSuffix(s, "in")
	case strings.HasSuffix(s, "mm"):
		unit, s = DefaultUnitsPerInch/25.4, strings.TrimSuffix(s, "mm")
	case strings.HasSuffix(s, "cm"):
		unit, s = DefaultUnitsPerInch/2.54, strings.TrimSuffix(s, "cm")
	case strings.HasSuffix(s, "pt"):
		unit, s = DefaultUnitsPerInch/72, strings.TrimSuffix(s, "pt")
	case strings.HasSuffix(s, "px"):
		s = strings.TrimSuffix(s, "px")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v * unit
}

// decodeImage decodes a data-URI bitmap from an image element. External
// references are ignored.
func decodeImage(img svgImage, diags *errors.Diagnostics) *EmbeddedImage {
	href := img.Href
	if href == "" {
		href = img.XlinkHref
	}
	if !strings.HasPrefix(href, "data:image/") {
		return nil
	}
	idx := strings.Index(href, "base64,")
	if idx < 0 {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(href[idx+len("base64,"):])
	if err != nil {
		if diags != nil {
			diags.Add(errors.ErrCodeInvalidSVG, "embedded image has invalid base64 data: %v", err)
		}
		return nil
	}
	bm, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		if diags != nil {
			diags.Add(errors.ErrCodeInvalidSVG, "embedded image could not be decoded: %v", err)
		}
		return nil
	}
	return &EmbeddedImage{
		Bitmap: bm,
		X:      parseLength(img.X),
		Y:      parseLength(img.Y),
		Width:  parseLength(img.Width),
		Height: parseLength(img.Height),
	}
}
