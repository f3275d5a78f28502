// Package pattern is the canonical serialization format for a finished
// piecing run: patches, groups with sewing order, allowance outlines
// and page placements. The format is human-readable JSON with
// deterministic ordering so identical runs produce identical bytes.
package pattern

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/quiltlab/piecework/pkg/allowance"
	"github.com/quiltlab/piecework/pkg/errors"
	"github.com/quiltlab/piecework/pkg/geom"
	"github.com/quiltlab/piecework/pkg/layout"
	"github.com/quiltlab/piecework/pkg/piecing"
	"github.com/quiltlab/piecework/pkg/planar"
)

// Point serializes as a compact [x, y] pair.
type Point [2]float64

// Ring is a closed polygon without a repeated end vertex.
type Ring []Point

// Patch is one fabric piece.
type Patch struct {
	ID    int    `json:"id"`
	Ring  Ring   `json:"ring"`
	Group int    `json:"group"`
	Label string `json:"label,omitempty"`
	Color string `json:"color,omitempty"` // #rrggbb
	Name  string `json:"color_name,omitempty"`
}

// Group is one sewing unit.
type Group struct {
	ID        int    `json:"id"`
	Patches   []int  `json:"patches"`
	Order     []int  `json:"order"`
	Boundary  Ring   `json:"boundary"`
	Holes     []Ring `json:"holes,omitempty"`
	Allowance Ring   `json:"allowance,omitempty"`
}

// Placement pins a group to a page. Center is the rotation pivot in
// drawing coordinates; Outline and Holes are the cut line in page
// coordinates.
type Placement struct {
	Group    int     `json:"group"`
	Page     int     `json:"page"`
	Rotation float64 `json:"rotation"`
	Center   Point   `json:"center"`
	Offset   Point   `json:"offset"`
	Outline  Ring    `json:"outline"`
	Holes    []Ring  `json:"holes,omitempty"`
}

// Pattern is the complete document.
type Pattern struct {
	Units      string      `json:"units"`
	Allowance  float64     `json:"allowance"`
	PageWidth  float64     `json:"page_width,omitempty"`
	PageHeight float64     `json:"page_height,omitempty"`
	Pages      int         `json:"pages,omitempty"`
	Patches    []Patch     `json:"patches"`
	Groups     []Group     `json:"groups"`
	Placements []Placement `json:"placements,omitempty"`
}

// Annotation carries the optional per-patch decoration into Build.
type Annotation struct {
	Label string
	Color string
	Name  string
}

// Build assembles the serializable document from pipeline output.
// Patches and groups come out sorted by id.
func Build(patches []planar.Patch, groups []piecing.Group,
	allowances []allowance.Polygon, packed *layout.Result, notes map[int]Annotation) *Pattern {

	p := &Pattern{Units: "in"}

	groupOf := piecing.GroupOf(groups)
	for _, pa := range patches {
		item := Patch{ID: pa.ID, Ring: toRing(pa.Poly), Group: groupOf[pa.ID]}
		if n, ok := notes[pa.ID]; ok {
			item.Label, item.Color, item.Name = n.Label, n.Color, n.Name
		}
		p.Patches = append(p.Patches, item)
	}
	sort.Slice(p.Patches, func(i, j int) bool { return p.Patches[i].ID < p.Patches[j].ID })

	byGroup := make(map[int]Ring, len(allowances))
	for _, a := range allowances {
		byGroup[a.Group] = toRing(a.Outline)
		if p.Allowance == 0 {
			p.Allowance = a.Distance
		}
	}
	for _, grp := range groups {
		item := Group{
			ID:        grp.ID,
			Patches:   append([]int(nil), grp.Patches...),
			Order:     append([]int(nil), grp.Order...),
			Boundary:  toRing(grp.Boundary),
			Allowance: byGroup[grp.ID],
		}
		for _, h := range grp.Holes {
			item.Holes = append(item.Holes, toRing(h))
		}
		p.Groups = append(p.Groups, item)
	}
	sort.Slice(p.Groups, func(i, j int) bool { return p.Groups[i].ID < p.Groups[j].ID })

	if packed != nil {
		p.Pages = packed.Pages
		for _, pl := range packed.Placements {
			item := Placement{
				Group:    pl.Group,
				Page:     pl.Page,
				Rotation: pl.Rotation,
				Center:   Point{pl.Center.X, pl.Center.Y},
				Offset:   Point{pl.Offset.X, pl.Offset.Y},
				Outline:  toRing(pl.Outline),
			}
			for _, h := range pl.Holes {
				item.Holes = append(item.Holes, toRing(h))
			}
			p.Placements = append(p.Placements, item)
		}
		sort.Slice(p.Placements, func(i, j int) bool {
			if p.Placements[i].Page != p.Placements[j].Page {
				return p.Placements[i].Page < p.Placements[j].Page
			}
			return p.Placements[i].Group < p.Placements[j].Group
		})
	}
	return p
}

// Marshal encodes the pattern as indented JSON.
func Marshal(p *Pattern) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(p, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes the pattern as indented JSON to w.
func Write(p *Pattern, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encoding pattern")
	}
	return nil
}

// WriteFile writes the pattern to a JSON file with 0644 permissions.
func WriteFile(p *Pattern, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", path)
	}
	defer f.Close()
	return Write(p, f)
}

// Read decodes and validates a pattern document.
func Read(r io.Reader) (*Pattern, error) {
	var p Pattern
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decoding pattern")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// ReadFile reads a pattern from a JSON file.
func ReadFile(path string) (*Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "pattern file %s not found", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "open %s", path)
	}
	defer f.Close()
	return Read(f)
}

// Validate checks structural invariants: rings are closed polygons,
// every patch's group exists, and each group's order permutes its
// patch set.
func (p *Pattern) Validate() error {
	groups := make(map[int]*Group, len(p.Groups))
	for i := range p.Groups {
		g := &p.Groups[i]
		if _, dup := groups[g.ID]; dup {
			return errors.New(errors.ErrCodeInvalidFormat, "duplicate group id %d", g.ID)
		}
		groups[g.ID] = g
		if len(g.Boundary) < 3 {
			return errors.New(errors.ErrCodeInvalidFormat, "group %d boundary has %d points", g.ID, len(g.Boundary))
		}
		if len(g.Order) != len(g.Patches) {
			return errors.New(errors.ErrCodeInvalidFormat,
				"group %d order covers %d of %d patches", g.ID, len(g.Order), len(g.Patches))
		}
		members := make(map[int]bool, len(g.Patches))
		for _, id := range g.Patches {
			members[id] = true
		}
		for _, id := range g.Order {
			if !members[id] {
				return errors.New(errors.ErrCodeInvalidFormat,
					"group %d order references patch %d outside the group", g.ID, id)
			}
		}
	}
	for _, pa := range p.Patches {
		if len(pa.Ring) < 3 {
			return errors.New(errors.ErrCodeInvalidFormat, "patch %d ring has %d points", pa.ID, len(pa.Ring))
		}
		if _, ok := groups[pa.Group]; !ok && len(p.Groups) > 0 {
			return errors.New(errors.ErrCodeInvalidFormat, "patch %d references missing group %d", pa.ID, pa.Group)
		}
	}
	return nil
}

func toRing(poly geom.Polygon) Ring {
	out := make(Ring, len(poly))
	for i, pt := range poly {
		out[i] = Point{pt.X, pt.Y}
	}
	return out
}

// Poly converts a serialized ring back to geometry.
func (r Ring) Poly() geom.Polygon {
	out := make(geom.Polygon, len(r))
	for i, pt := range r {
		out[i] = geom.Point{X: pt[0], Y: pt[1]}
	}
	return out
}
