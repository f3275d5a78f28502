package pipeline

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/quiltlab/piecework/pkg/cache"
	"github.com/quiltlab/piecework/pkg/errors"
	"github.com/quiltlab/piecework/pkg/pattern"
)

// squareSVG is a 2x2 inch square split by one diagonal, in the default
// 96-units-per-inch coordinate space.
const squareSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="2in" height="2in">
  <polygon points="0,0 192,0 192,192 0,192"/>
  <line x1="0" y1="0" x2="192" y2="192"/>
</svg>`

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"pdf", false},
		{"png", false},
		{"json", false},
		{"svg", true},
		{"invalid", true},
		{"PDF", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"pdf", "png"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}

	if err := ValidateFormats([]string{"pdf", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}

	// Empty slice is valid
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{Source: []byte(squareSVG)}

	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Errorf("Valid options should pass: %v", err)
	}

	// Check defaults were set
	if opts.Tolerance != DefaultTolerance {
		t.Errorf("Tolerance should be %v, got %v", DefaultTolerance, opts.Tolerance)
	}
	if opts.Allowance != DefaultAllowance {
		t.Errorf("Allowance should be %v, got %v", DefaultAllowance, opts.Allowance)
	}
	if opts.PageWidth != DefaultPageWidth || opts.PageHeight != DefaultPageHeight {
		t.Errorf("Page should default to %vx%v, got %vx%v",
			DefaultPageWidth, DefaultPageHeight, opts.PageWidth, opts.PageHeight)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatPDF {
		t.Errorf("Formats should default to [pdf], got %v", opts.Formats)
	}
}

func TestOptionsValidation(t *testing.T) {
	// Missing input
	opts := Options{}
	if err := opts.ValidateForParse(); err == nil {
		t.Error("Missing input should fail")
	}

	// Negative tolerance
	opts = Options{Source: []byte(squareSVG), Tolerance: -1}
	if err := opts.ValidateForParse(); err == nil {
		t.Error("Negative tolerance should fail")
	}

	// Negative allowance
	opts = Options{Source: []byte(squareSVG), Allowance: -0.25}
	if err := opts.ValidateAndSetDefaults(); err == nil {
		t.Error("Negative allowance should fail")
	}

	// Margin swallows the page
	opts = Options{Source: []byte(squareSVG), PageWidth: 1, PageHeight: 1, Margin: 0.5}
	if err := opts.ValidateAndSetDefaults(); err == nil {
		t.Error("Margin covering the page should fail")
	}

	// Unknown format
	opts = Options{Source: []byte(squareSVG), Formats: []string{"svg"}}
	if err := opts.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Unknown format error = %v, want INVALID_CONFIG", err)
	}
}

func TestParse_ScalesToInches(t *testing.T) {
	opts := Options{Source: []byte(squareSVG)}
	if err := opts.ValidateForParse(); err != nil {
		t.Fatalf("ValidateForParse(): %v", err)
	}

	var diags errors.Diagnostics
	d, err := Parse(opts, &diags)
	if err != nil {
		t.Fatalf("Parse(): %v", err)
	}
	if len(d.Segments) != 5 {
		t.Fatalf("Parse() = %d segments, want 5", len(d.Segments))
	}
	if d.Width != 2 || d.Height != 2 {
		t.Errorf("document size = %vx%v in, want 2x2", d.Width, d.Height)
	}
	for _, s := range d.Segments {
		for _, v := range []float64{s.A.X, s.A.Y, s.B.X, s.B.Y} {
			if v < 0 || v > 2 {
				t.Fatalf("segment coordinate %v outside [0, 2] inches", v)
			}
		}
	}
}

func TestExecute_FullPipeline(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	defer runner.Close()

	opts := Options{
		Source:  []byte(squareSVG),
		Formats: []string{"json", "png", "pdf"},
	}
	result, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute(): %v", err)
	}

	if result.RunID == uuid.Nil {
		t.Error("RunID should be set")
	}
	if result.Stats.Segments != 5 {
		t.Errorf("Stats.Segments = %d, want 5", result.Stats.Segments)
	}
	if result.Stats.Patches != 2 {
		t.Errorf("Stats.Patches = %d, want 2", result.Stats.Patches)
	}
	if result.Stats.Groups != 1 {
		t.Errorf("Stats.Groups = %d, want 1", result.Stats.Groups)
	}
	if result.Stats.Pages != 1 {
		t.Errorf("Stats.Pages = %d, want 1", result.Stats.Pages)
	}
	if result.PatternHash == "" {
		t.Error("PatternHash should be set")
	}

	if !bytes.HasPrefix(result.Artifacts["pdf"], []byte("%PDF-")) {
		t.Error("pdf artifact missing PDF header")
	}
	if !bytes.HasPrefix(result.Artifacts["png"], []byte("\x89PNG")) {
		t.Error("png artifact missing PNG header")
	}
	if _, err := pattern.Read(bytes.NewReader(result.Artifacts["json"])); err != nil {
		t.Errorf("json artifact does not round-trip: %v", err)
	}
}

func TestExecute_SecondRunHitsCache(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache(): %v", err)
	}
	runner := NewRunner(fc, nil, nil)
	defer runner.Close()

	opts := Options{Source: []byte(squareSVG), Formats: []string{"json", "pdf"}}

	first, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("first Execute(): %v", err)
	}
	if first.CacheInfo.ParseHit || first.CacheInfo.PatternHit || first.CacheInfo.RenderHit {
		t.Errorf("first run CacheInfo = %+v, want all misses", first.CacheInfo)
	}

	second, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("second Execute(): %v", err)
	}
	if !second.CacheInfo.ParseHit || !second.CacheInfo.PatternHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run CacheInfo = %+v, want all hits", second.CacheInfo)
	}
	if !bytes.Equal(first.Artifacts["pdf"], second.Artifacts["pdf"]) {
		t.Error("cached pdf differs from rendered pdf")
	}
	if first.PatternHash != second.PatternHash {
		t.Errorf("PatternHash changed across runs: %s vs %s", first.PatternHash, second.PatternHash)
	}

	// Refresh bypasses the cache
	opts.Refresh = true
	third, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("refresh Execute(): %v", err)
	}
	if third.CacheInfo.ParseHit || third.CacheInfo.PatternHit {
		t.Errorf("refresh run CacheInfo = %+v, want misses", third.CacheInfo)
	}
}

func TestExecute_NoClosedRegions(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	defer runner.Close()

	open := `<svg xmlns="http://www.w3.org/2000/svg"><line x1="0" y1="0" x2="96" y2="0"/></svg>`
	_, err := runner.Execute(context.Background(), Options{Source: []byte(open)})
	if !errors.Is(err, errors.ErrCodeDegenerateInput) {
		t.Errorf("Execute(open drawing) error = %v, want DEGENERATE_INPUT", err)
	}
}

func TestRender_FromReadPattern(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	defer runner.Close()

	var diags errors.Diagnostics
	opts := Options{Source: []byte(squareSVG)}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults(): %v", err)
	}
	d, err := runner.Parse(context.Background(), opts, &diags)
	if err != nil {
		t.Fatalf("Parse(): %v", err)
	}
	pat, err := runner.BuildPattern(context.Background(), d, opts)
	if err != nil {
		t.Fatalf("BuildPattern(): %v", err)
	}

	// Serialize and read back, then render from the document alone.
	data, err := pattern.Marshal(pat)
	if err != nil {
		t.Fatalf("Marshal(): %v", err)
	}
	restored, err := pattern.Read(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Read(): %v", err)
	}

	opts.Formats = []string{"pdf"}
	artifacts, err := Render(restored, opts)
	if err != nil {
		t.Fatalf("Render(): %v", err)
	}
	if !bytes.HasPrefix(artifacts["pdf"], []byte("%PDF-")) {
		t.Error("pdf artifact missing PDF header")
	}
}
