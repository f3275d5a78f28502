package errors

import (
	"fmt"
	"strings"
)

// Diagnostic is a non-fatal finding collected during a pipeline run:
// an open path, a discarded degenerate patch, an allowance that could not
// be offset, or an overlap detected by a post-condition check. Each
// diagnostic carries enough geometric identity for the user to locate and
// fix the source drawing.
type Diagnostic struct {
	Code    Code   // error category, e.g. ErrCodeOpenPath
	Message string // human-readable description with coordinates or ids
}

// String returns the diagnostic in "CODE: message" form.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// Diagnostics accumulates non-fatal findings. The zero value is ready to
// use. It is not safe for concurrent use; parallel stages collect into
// private slices and merge afterwards.
type Diagnostics struct {
	items []Diagnostic
}

// Add records a diagnostic with a formatted message. A nil receiver
// discards the diagnostic, so callers may pass a nil sink.
func (d *Diagnostics) Add(code Code, format string, args ...any) {
	if d == nil {
		return
	}
	d.items = append(d.items, Diagnostic{Code: code, Message: fmt.Sprintf(format, args...)})
}

// Merge appends all diagnostics from other.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if d == nil || other == nil {
		return
	}
	d.items = append(d.items, other.items...)
}

// Items returns the collected diagnostics in insertion order.
func (d *Diagnostics) Items() []Diagnostic {
	return d.items
}

// Len returns the number of collected diagnostics.
func (d *Diagnostics) Len() int { return len(d.items) }

// HasCode reports whether any diagnostic carries the given code.
func (d *Diagnostics) HasCode(code Code) bool {
	for _, item := range d.items {
		if item.Code == code {
			return true
		}
	}
	return false
}

// Summary returns all diagnostics joined by newlines, or "" when empty.
func (d *Diagnostics) Summary() string {
	if len(d.items) == 0 {
		return ""
	}
	parts := make([]string, len(d.items))
	for i, item := range d.items {
		parts[i] = item.String()
	}
	return strings.Join(parts, "\n")
}
