package pipeline

import (
	"bytes"
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/quiltlab/piecework/pkg/cache"
	"github.com/quiltlab/piecework/pkg/errors"
	"github.com/quiltlab/piecework/pkg/observability"
	"github.com/quiltlab/piecework/pkg/pattern"
	"github.com/quiltlab/piecework/pkg/svgparse"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete parse → pattern → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid options")
	}
	r.applyLogger(&opts)

	runStart := time.Now()
	result := &Result{
		RunID:       uuid.New(),
		Artifacts:   make(map[string][]byte),
		Diagnostics: &errors.Diagnostics{},
	}

	// Stage 1: Parse
	parseStart := time.Now()
	d, parseHit, err := r.ParseWithCacheInfo(ctx, opts, result.Diagnostics)
	if err != nil {
		observability.Pipeline().OnRunComplete(ctx, result.RunID.String(), time.Since(runStart), err)
		return nil, errors.Wrap(errors.GetCode(err), err, "parse")
	}
	result.Stats.ParseTime = time.Since(parseStart)
	result.Stats.Segments = len(d.Segments)
	result.CacheInfo.ParseHit = parseHit

	r.Logger.Info("parsed drawing",
		"segments", len(d.Segments),
		"bitmap", d.Image != nil,
		"duration", result.Stats.ParseTime)

	// Stage 2: Pattern
	patternStart := time.Now()
	pat, patternHit, err := r.BuildPatternWithCacheInfo(ctx, d, opts, result.Diagnostics)
	if err != nil {
		observability.Pipeline().OnRunComplete(ctx, result.RunID.String(), time.Since(runStart), err)
		return nil, errors.Wrap(errors.GetCode(err), err, "pattern")
	}
	result.Pattern = pat
	result.Stats.PatternTime = time.Since(patternStart)
	result.Stats.Patches = len(pat.Patches)
	result.Stats.Groups = len(pat.Groups)
	result.Stats.Pages = pat.Pages
	result.CacheInfo.PatternHit = patternHit

	if data, err := pattern.Marshal(pat); err == nil {
		result.PatternHash = cache.Hash(data)
	}

	r.Logger.Info("built pattern",
		"patches", len(pat.Patches),
		"groups", len(pat.Groups),
		"pages", pat.Pages,
		"duration", result.Stats.PatternTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, pat, opts)
	if err != nil {
		observability.Pipeline().OnRunComplete(ctx, result.RunID.String(), time.Since(runStart), err)
		return nil, errors.Wrap(errors.GetCode(err), err, "render")
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	observability.Pipeline().OnRunComplete(ctx, result.RunID.String(), time.Since(runStart), nil)
	return result, nil
}

// ParseWithCacheInfo parses the drawing with caching and returns cache hit info.
func (r *Runner) ParseWithCacheInfo(ctx context.Context, opts Options, diags *errors.Diagnostics) (*svgparse.Drawing, bool, error) {
	if err := opts.ValidateForParse(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)
	observability.Pipeline().OnStageStart(ctx, "parse")
	start := time.Now()

	source, err := readSource(opts)
	if err != nil {
		observability.Pipeline().OnStageComplete(ctx, "parse", 0, time.Since(start), err)
		return nil, false, err
	}
	cacheKey := r.Keyer.SegmentsKey(cache.Hash(source), opts.SegmentsKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if d, err := unmarshalDrawing(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "segments")
				observability.Pipeline().OnStageComplete(ctx, "parse", len(d.Segments), time.Since(start), nil)
				return d, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "segments")
	}

	// Parse from source
	parsed := opts
	parsed.Source = source
	d, err := Parse(parsed, diags)
	if err != nil {
		observability.Pipeline().OnStageComplete(ctx, "parse", 0, time.Since(start), err)
		return nil, false, err
	}

	// Cache the result
	if !opts.Refresh {
		if data, err := marshalDrawing(d); err == nil {
			_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLSegments)
			observability.Cache().OnCacheSet(ctx, "segments", len(data))
		}
	}

	observability.Pipeline().OnStageComplete(ctx, "parse", len(d.Segments), time.Since(start), nil)
	return d, false, nil
}

// BuildPatternWithCacheInfo builds the pattern with caching and returns cache hit info.
func (r *Runner) BuildPatternWithCacheInfo(ctx context.Context, d *svgparse.Drawing,
	opts Options, diags *errors.Diagnostics) (*pattern.Pattern, bool, error) {

	if err := opts.ValidateForPattern(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)
	observability.Pipeline().OnStageStart(ctx, "pattern")
	start := time.Now()

	// Compute cache key from the parsed drawing
	drawingData, err := marshalDrawing(d)
	if err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.PatternKey(cache.Hash(drawingData), opts.PatternKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if cached, err := pattern.Read(bytes.NewReader(data)); err == nil {
				observability.Cache().OnCacheHit(ctx, "pattern")
				observability.Pipeline().OnStageComplete(ctx, "pattern", len(cached.Patches), time.Since(start), nil)
				return cached, true, nil
			}
			// Deserialization failure falls through to recompute
		}
		observability.Cache().OnCacheMiss(ctx, "pattern")
	}

	pat, err := BuildPattern(d, opts, diags)
	if err != nil {
		observability.Pipeline().OnStageComplete(ctx, "pattern", 0, time.Since(start), err)
		return nil, false, err
	}

	if !opts.Refresh {
		if data, err := pattern.Marshal(pat); err == nil {
			_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLPattern)
			observability.Cache().OnCacheSet(ctx, "pattern", len(data))
		}
	}

	observability.Pipeline().OnStageComplete(ctx, "pattern", len(pat.Patches), time.Since(start), nil)
	return pat, false, nil
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, pat *pattern.Pattern, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)
	observability.Pipeline().OnStageStart(ctx, "render")
	start := time.Now()

	patternData, err := pattern.Marshal(pat)
	if err != nil {
		return nil, false, err
	}
	patternHash := cache.Hash(patternData)

	// Try to get all formats from cache
	allCached := true
	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		cacheKey := r.Keyer.ArtifactKey(patternHash, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			artifacts[format] = data
		} else {
			allCached = false
			break
		}
	}
	if allCached && len(artifacts) == len(opts.Formats) {
		observability.Cache().OnCacheHit(ctx, "artifact")
		observability.Pipeline().OnStageComplete(ctx, "render", len(artifacts), time.Since(start), nil)
		return artifacts, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")

	// Render all formats
	rendered, err := Render(pat, opts)
	if err != nil {
		observability.Pipeline().OnStageComplete(ctx, "render", 0, time.Since(start), err)
		return nil, false, err
	}

	// Cache each format
	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(patternHash, opts.ArtifactKeyOpts(format))
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLArtifact)
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}

	observability.Pipeline().OnStageComplete(ctx, "render", len(rendered), time.Since(start), nil)
	return rendered, false, nil
}

// Parse is a convenience wrapper that discards the cache hit info.
func (r *Runner) Parse(ctx context.Context, opts Options, diags *errors.Diagnostics) (*svgparse.Drawing, error) {
	d, _, err := r.ParseWithCacheInfo(ctx, opts, diags)
	return d, err
}

// BuildPattern is a convenience wrapper that discards the cache hit info.
func (r *Runner) BuildPattern(ctx context.Context, d *svgparse.Drawing, opts Options) (*pattern.Pattern, error) {
	pat, _, err := r.BuildPatternWithCacheInfo(ctx, d, opts, &errors.Diagnostics{})
	return pat, err
}

// Render is a convenience wrapper that discards the cache hit info.
func (r *Runner) Render(ctx context.Context, pat *pattern.Pattern, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, pat, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
