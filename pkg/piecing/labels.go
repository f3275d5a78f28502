package piecing

import (
	"strconv"

	"github.com/quiltlab/piecework/pkg/geom"
)

// GroupPrefix converts a group index to its letter prefix: 0 → "A",
// 25 → "Z", 26 → "AA", and so on.
func GroupPrefix(n int) string {
	label := ""
	for n >= 0 {
		label = string(rune('A'+n%26)) + label
		n = n/26 - 1
	}
	return label
}

// Label is a human-readable piece tag like "A3": group prefix plus
// one-based position in the sewing order.
type Label struct {
	Text string
	At   geom.Point // label anchor, the patch centroid
}

// LabelPatches assigns a label to every patch across all groups, keyed by
// patch id. Labels follow the sewing order, so "A1" is the first piece
// sewn in group A. This is decoration only; geometry is never modified.
func LabelPatches(groups []Group, centroid func(patch int) geom.Point) map[int]Label {
	labels := make(map[int]Label)
	for _, g := range groups {
		prefix := GroupPrefix(g.ID)
		for i, pid := range g.Order {
			labels[pid] = Label{
				Text: prefix + strconv.Itoa(i+1),
				At:   centroid(pid),
			}
		}
	}
	return labels
}
