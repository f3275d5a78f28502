package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/quiltlab/piecework/pkg/pipeline"
)

// configFileName is the config file looked up in the working directory
// when --config is not given.
const configFileName = "piecework.toml"

// fileConfig mirrors the tunable pipeline options in piecework.toml.
// All fields are pointers so that absent keys leave the pipeline
// defaults untouched. Flags override config values.
type fileConfig struct {
	Allowance     *float64 `toml:"allowance"`
	MiterLimit    *float64 `toml:"miter_limit"`
	PageWidth     *float64 `toml:"page_width"`
	PageHeight    *float64 `toml:"page_height"`
	Margin        *float64 `toml:"margin"`
	Spacing       *float64 `toml:"spacing"`
	RotationStep  *float64 `toml:"rotation_step"`
	Tolerance     *float64 `toml:"tolerance"`
	MinPatchArea  *float64 `toml:"min_patch_area"`
	UnitsPerInch  *float64 `toml:"units_per_inch"`
	Formats       []string `toml:"formats"`
	NoLabels      *bool    `toml:"no_labels"`
	LabelSize     *float64 `toml:"label_size"`
	PreviewScale  *float64 `toml:"preview_scale"`
	SampleRadius  *int     `toml:"sample_radius"`
}

// loadConfig reads a TOML config file. If path is empty it looks for
// piecework.toml in the working directory and returns an empty config
// when the file does not exist. An explicit path that cannot be read
// is an error.
func loadConfig(path string) (*fileConfig, error) {
	explicit := path != ""
	if path == "" {
		path = configFileName
	}

	cfg := &fileConfig{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

// apply copies the config values that were present in the file onto opts.
func (cfg *fileConfig) apply(opts *pipeline.Options) {
	setFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setFloat(&opts.Allowance, cfg.Allowance)
	setFloat(&opts.MiterLimit, cfg.MiterLimit)
	setFloat(&opts.PageWidth, cfg.PageWidth)
	setFloat(&opts.PageHeight, cfg.PageHeight)
	setFloat(&opts.Margin, cfg.Margin)
	setFloat(&opts.Spacing, cfg.Spacing)
	setFloat(&opts.RotationStep, cfg.RotationStep)
	setFloat(&opts.Tolerance, cfg.Tolerance)
	setFloat(&opts.MinPatchArea, cfg.MinPatchArea)
	setFloat(&opts.UnitsPerInch, cfg.UnitsPerInch)
	setFloat(&opts.LabelSize, cfg.LabelSize)
	setFloat(&opts.PreviewScale, cfg.PreviewScale)

	if len(cfg.Formats) > 0 {
		opts.Formats = append([]string(nil), cfg.Formats...)
	}
	if cfg.NoLabels != nil {
		opts.NoLabels = *cfg.NoLabels
	}
	if cfg.SampleRadius != nil {
		opts.SampleRadius = *cfg.SampleRadius
	}
}
