// Package cache provides byte-level caching for pipeline stages so that
// repeated runs over the same drawing skip parsing, geometry, and
// rendering work. Keys are derived from content hashes plus the options
// that influence each stage's output.
package cache

import (
	"context"
	"time"
)

// Stage TTLs. Geometry is pure, so entries only need to turn over when
// the on-disk format evolves.
const (
	TTLSegments = 7 * 24 * time.Hour
	TTLPattern  = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache stores opaque byte payloads under string keys.
type Cache interface {
	// Get retrieves a value. The second return reports a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A non-positive ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// Keyer generates cache keys for the pipeline stages.
type Keyer interface {
	// SegmentsKey keys the parsed-segment stage by source content hash
	// and the parse options that shape the planar graph.
	SegmentsKey(sourceHash string, opts SegmentsKeyOpts) string

	// PatternKey keys the full geometric pattern (patches, groups,
	// allowances, placements) derived from a segment set.
	PatternKey(segmentsHash string, opts PatternKeyOpts) string

	// ArtifactKey keys a rendered artifact derived from a pattern.
	ArtifactKey(patternHash string, opts ArtifactKeyOpts) string
}

// SegmentsKeyOpts are the options that affect segment extraction and
// patch detection.
type SegmentsKeyOpts struct {
	Tolerance    float64
	MinPatchArea float64
	UnitsPerInch float64
}

// PatternKeyOpts are the options that affect grouping, allowance, and
// page packing.
type PatternKeyOpts struct {
	Allowance    float64
	MiterLimit   float64
	PageWidth    float64
	PageHeight   float64
	Margin       float64
	Spacing      float64
	RotationStep float64
}

// ArtifactKeyOpts are the options that affect a rendered output.
type ArtifactKeyOpts struct {
	Format    string // "pdf", "png", "json"
	Scale     float64
	LabelSize float64
	Labels    bool
}

// DefaultKeyer generates namespaced, hash-based keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// SegmentsKey generates a key for segment-stage caching.
func (k *DefaultKeyer) SegmentsKey(sourceHash string, opts SegmentsKeyOpts) string {
	return hashKey("segments", sourceHash, opts)
}

// PatternKey generates a key for pattern caching.
func (k *DefaultKeyer) PatternKey(segmentsHash string, opts PatternKeyOpts) string {
	return hashKey("pattern", segmentsHash, opts)
}

// ArtifactKey generates a key for rendered-artifact caching.
func (k *DefaultKeyer) ArtifactKey(patternHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", patternHash, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
