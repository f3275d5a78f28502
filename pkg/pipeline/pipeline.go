// Package pipeline provides the core pattern pipeline for Piecework.
//
// This package implements the complete parse → pattern → render pipeline
// that the CLI builds on. Centralizing this logic keeps behavior
// consistent across entry points and avoids code duplication.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Parse: Extract line segments and any embedded bitmap from an SVG drawing
//  2. Pattern: Build the planar graph, detect patches and groups, offset seam
//     allowances, and pack placements onto pages
//  3. Render: Generate output in various formats (PDF, PNG, JSON)
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Input:   "drawing.svg",
//	    Formats: []string{"pdf"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pdf := result.Artifacts["pdf"]
//
// Run individual stages:
//
//	// Parse only
//	d, diags, err := runner.Parse(ctx, opts)
//
//	// Pattern with existing drawing
//	pat, err := runner.BuildPattern(ctx, d, opts)
//
//	// Render with existing pattern
//	artifacts, err := runner.Render(ctx, pat, opts)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/quiltlab/piecework/pkg/cache"
	"github.com/quiltlab/piecework/pkg/errors"
	"github.com/quiltlab/piecework/pkg/pattern"
	"github.com/quiltlab/piecework/pkg/svgparse"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Library Callers
// =============================================================================

const (
	// DefaultTolerance is the endpoint snapping tolerance in inches.
	DefaultTolerance = 1e-6

	// DefaultUnitsPerInch matches the SVG user-unit convention.
	DefaultUnitsPerInch = svgparse.DefaultUnitsPerInch

	// DefaultAllowance is the seam allowance in inches.
	DefaultAllowance = 0.25

	// DefaultPageWidth is US Letter width in inches.
	DefaultPageWidth = 8.5

	// DefaultPageHeight is US Letter height in inches.
	DefaultPageHeight = 11.0

	// DefaultMargin is the page margin in inches.
	DefaultMargin = 0.5

	// DefaultSpacing is the gap between shapes on a page in inches.
	DefaultSpacing = 0.1

	// DefaultLabelSize is the PDF piece label font size in points.
	DefaultLabelSize = 24.0

	// DefaultPreviewScale is the preview resolution in pixels per inch.
	DefaultPreviewScale = 96.0
)

// Format constants for output formats.
const (
	FormatPDF  = "pdf"
	FormatPNG  = "png"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatPDF:  true,
	FormatPNG:  true,
	FormatJSON: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pattern pipeline.
// This struct supports JSON serialization for config files and cache keys.
type Options struct {
	// Parse options
	Input        string  `json:"input,omitempty"`  // SVG path
	Source       []byte  `json:"-"`                // raw SVG bytes, overrides Input
	Tolerance    float64 `json:"tolerance,omitempty"`
	MinPatchArea float64 `json:"min_patch_area,omitempty"`
	UnitsPerInch float64 `json:"units_per_inch,omitempty"`
	Refresh      bool    `json:"refresh,omitempty"`

	// Pattern options
	Allowance    float64 `json:"allowance,omitempty"`
	MiterLimit   float64 `json:"miter_limit,omitempty"`
	PageWidth    float64 `json:"page_width,omitempty"`
	PageHeight   float64 `json:"page_height,omitempty"`
	Margin       float64 `json:"margin,omitempty"`
	Spacing      float64 `json:"spacing,omitempty"`
	RotationStep float64 `json:"rotation_step,omitempty"`

	// Render options
	Formats      []string `json:"formats,omitempty"`
	NoLabels     bool     `json:"no_labels,omitempty"`
	PreviewScale float64  `json:"preview_scale,omitempty"`
	LabelSize    float64  `json:"label_size,omitempty"`
	SampleRadius int      `json:"sample_radius,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID uniquely identifies this execution.
	RunID uuid.UUID

	// Pattern is the complete geometric document.
	Pattern *pattern.Pattern

	// PatternHash is the content hash of the serialized pattern.
	PatternHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo

	// Diagnostics collects non-fatal findings from all stages.
	Diagnostics *errors.Diagnostics
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Segments    int
	Patches     int
	Groups      int
	Pages       int
	ParseTime   time.Duration
	PatternTime time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	ParseHit   bool // Whether the parsed drawing came from cache
	PatternHit bool // Whether the pattern came from cache
	RenderHit  bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidConfig,
			"invalid format: %q (must be one of: pdf, png, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForParse(); err != nil {
		return err
	}
	if err := o.ValidateForPattern(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForParse checks required fields for parsing.
func (o *Options) ValidateForParse() error {
	if o.Input == "" && len(o.Source) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "input file or source bytes required")
	}
	if o.Tolerance < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "tolerance must not be negative, got %v", o.Tolerance)
	}

	// Parse defaults
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.UnitsPerInch == 0 {
		o.UnitsPerInch = DefaultUnitsPerInch
	}
	if o.MinPatchArea == 0 {
		o.MinPatchArea = 25 * o.Tolerance * o.Tolerance
	}

	// Logger default
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	return nil
}

// SetPatternDefaults sets default values for pattern construction.
func (o *Options) SetPatternDefaults() {
	if o.Allowance == 0 {
		o.Allowance = DefaultAllowance
	}
	if o.PageWidth == 0 {
		o.PageWidth = DefaultPageWidth
	}
	if o.PageHeight == 0 {
		o.PageHeight = DefaultPageHeight
	}
	if o.Margin == 0 {
		o.Margin = DefaultMargin
	}
	if o.Spacing == 0 {
		o.Spacing = DefaultSpacing
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForPattern validates and sets defaults for pattern construction.
func (o *Options) ValidateForPattern() error {
	o.SetPatternDefaults()
	if o.Allowance < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "allowance must not be negative, got %v", o.Allowance)
	}
	if o.PageWidth <= 2*o.Margin || o.PageHeight <= 2*o.Margin {
		return errors.New(errors.ErrCodeInvalidConfig,
			"page %gx%g leaves no usable area inside margin %g", o.PageWidth, o.PageHeight, o.Margin)
	}
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatPDF}
	}
	if o.PreviewScale == 0 {
		o.PreviewScale = DefaultPreviewScale
	}
	if o.LabelSize == 0 {
		o.LabelSize = DefaultLabelSize
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	return ValidateFormats(o.Formats)
}

// SegmentsKeyOpts returns cache key options for the parse stage.
func (o *Options) SegmentsKeyOpts() cache.SegmentsKeyOpts {
	return cache.SegmentsKeyOpts{
		Tolerance:    o.Tolerance,
		MinPatchArea: o.MinPatchArea,
		UnitsPerInch: o.UnitsPerInch,
	}
}

// PatternKeyOpts returns cache key options for the pattern stage.
func (o *Options) PatternKeyOpts() cache.PatternKeyOpts {
	return cache.PatternKeyOpts{
		Allowance:    o.Allowance,
		MiterLimit:   o.MiterLimit,
		PageWidth:    o.PageWidth,
		PageHeight:   o.PageHeight,
		Margin:       o.Margin,
		Spacing:      o.Spacing,
		RotationStep: o.RotationStep,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:    format,
		Scale:     o.PreviewScale,
		LabelSize: o.LabelSize,
		Labels:    !o.NoLabels,
	}
}
