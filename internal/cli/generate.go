package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quiltlab/piecework/pkg/pipeline"
)

// generateCommand creates the generate command, the main entry point of the
// tool. It runs the full pipeline from an SVG drawing to rendered pattern
// pages.
func (c *CLI) generateCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		configPath string
		noCache    bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "generate [drawing.svg]",
		Short: "Generate a paper piecing pattern from an SVG drawing",
		Long: `Generate a paper piecing pattern from an SVG drawing.

The generate command parses the straight-line segments of an SVG file,
extracts the enclosed patches, groups them into paper-pieceable sections
with a sewing order, adds seam allowances, packs the sections onto pages,
and writes the requested output formats.

Options can also be set in a piecework.toml file in the working directory
(or a file given via --config); command-line flags take precedence.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			cfg.apply(&opts)
			applyFlagOverrides(cmd, &opts)

			if formatsStr != "" || len(opts.Formats) == 0 {
				opts.Formats = parseFormats(formatsStr)
			}
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}

			opts.Input = args[0]
			return c.runGenerate(cmd.Context(), opts, output, noCache)
		},
	}

	// Common flags
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default: ./piecework.toml if present)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): pdf (default), png, json (comma-separated)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "recompute even if cached")

	// Parse flags
	cmd.Flags().Float64Var(&opts.Tolerance, "tolerance", pipeline.DefaultTolerance, "endpoint snapping tolerance (inches)")
	cmd.Flags().Float64Var(&opts.MinPatchArea, "min-area", 0, "discard patches smaller than this area (square inches)")
	cmd.Flags().Float64Var(&opts.UnitsPerInch, "units-per-inch", pipeline.DefaultUnitsPerInch, "SVG user units per inch")

	// Pattern flags
	cmd.Flags().Float64Var(&opts.Allowance, "allowance", pipeline.DefaultAllowance, "seam allowance width (inches)")
	cmd.Flags().Float64Var(&opts.PageWidth, "page-width", pipeline.DefaultPageWidth, "page width (inches)")
	cmd.Flags().Float64Var(&opts.PageHeight, "page-height", pipeline.DefaultPageHeight, "page height (inches)")
	cmd.Flags().Float64Var(&opts.Margin, "margin", pipeline.DefaultMargin, "page margin (inches)")
	cmd.Flags().Float64Var(&opts.Spacing, "spacing", pipeline.DefaultSpacing, "spacing between sections on a page (inches)")
	cmd.Flags().Float64Var(&opts.RotationStep, "rotation-step", 0, "rotation sweep step in degrees (0 = default)")

	// Render flags
	cmd.Flags().BoolVar(&opts.NoLabels, "no-labels", false, "omit piece labels from outputs")
	cmd.Flags().Float64Var(&opts.LabelSize, "label-size", pipeline.DefaultLabelSize, "label font size in points (pdf)")
	cmd.Flags().Float64Var(&opts.PreviewScale, "preview-scale", pipeline.DefaultPreviewScale, "preview pixels per inch (png)")

	return cmd
}

// applyFlagOverrides re-applies flag values on top of config file values.
// Cobra already wrote flag defaults into opts before the config was applied,
// so only flags the user actually changed are copied back.
func applyFlagOverrides(cmd *cobra.Command, opts *pipeline.Options) {
	overrides := map[string]*float64{
		"tolerance":      &opts.Tolerance,
		"min-area":       &opts.MinPatchArea,
		"units-per-inch": &opts.UnitsPerInch,
		"allowance":      &opts.Allowance,
		"page-width":     &opts.PageWidth,
		"page-height":    &opts.PageHeight,
		"margin":         &opts.Margin,
		"spacing":        &opts.Spacing,
		"rotation-step":  &opts.RotationStep,
		"label-size":     &opts.LabelSize,
		"preview-scale":  &opts.PreviewScale,
	}
	for name, dst := range overrides {
		if cmd.Flags().Changed(name) {
			if v, err := cmd.Flags().GetFloat64(name); err == nil {
				*dst = v
			}
		}
	}
	if cmd.Flags().Changed("no-labels") {
		if v, err := cmd.Flags().GetBool("no-labels"); err == nil {
			opts.NoLabels = v
		}
	}
}

// runGenerate executes the pipeline and writes the resulting artifacts.
func (c *CLI) runGenerate(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	logger := loggerFromContext(ctx)
	opts.Logger = logger
	prog := newProgress(logger)

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Generating pattern from %s...", filepath.Base(opts.Input)))
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Pattern generation failed")
		return fmt.Errorf("generate: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	paths, err := writeArtifacts(artifactWriteParams{
		artifacts: result.Artifacts,
		formats:   opts.Formats,
		input:     opts.Input,
		output:    output,
	})
	if err != nil {
		return err
	}

	prog.done(fmt.Sprintf("Generated %d pattern page(s)", result.Stats.Pages))

	printSuccess("Pattern complete")
	printStats(result.Stats.Patches, result.Stats.Groups, result.Stats.Pages, result.CacheInfo.RenderHit)
	printDiagnostics(result)

	if pdf, ok := paths[pipeline.FormatPDF]; ok {
		printNewline()
		printNextStep("Print", "lp "+pdf)
	}
	return nil
}

// printDiagnostics surfaces non-fatal geometry findings after a run.
func printDiagnostics(result *pipeline.Result) {
	if result.Diagnostics == nil || result.Diagnostics.Len() == 0 {
		return
	}
	printWarning("%d geometry warning(s)", result.Diagnostics.Len())
	for _, item := range result.Diagnostics.Items() {
		printDetail("%s: %s", item.Code, item.Message)
	}
}

// artifactWriteParams bundles the inputs needed to write rendered outputs.
type artifactWriteParams struct {
	artifacts map[string][]byte
	formats   []string
	input     string
	output    string
}

// writeArtifacts writes each rendered format to disk and returns the written
// path per format. With a single format the output path is used as-is (or
// derived from the input name); with multiple formats the output is treated
// as a base path and the format extension is appended.
func writeArtifacts(p artifactWriteParams) (map[string]string, error) {
	base := basePath(p.output, p.input)
	paths := make(map[string]string, len(p.formats))

	for _, format := range p.formats {
		data, ok := p.artifacts[format]
		if !ok {
			continue
		}

		path := base + "." + format
		if len(p.formats) == 1 && p.output != "" {
			path = p.output
		}

		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write output %s: %w", path, err)
		}
		printFile(path)
		paths[format] = path
	}
	return paths, nil
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input. If output carries a
// known format extension, that extension is stripped so the per-format
// extensions can be appended.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if err := pipeline.ValidateFormat(strings.TrimPrefix(ext, ".")); err == nil {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
