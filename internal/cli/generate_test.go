package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/quiltlab/piecework/pkg/pattern"
	"github.com/quiltlab/piecework/pkg/pipeline"
)

// chdir changes to dir for the duration of the test, restoring the
// previous working directory on cleanup. (testing.T.Chdir requires Go 1.24.)
func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("os.Getwd() error: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("os.Chdir() error: %v", err)
	}
	t.Cleanup(func() { os.Chdir(oldWD) })
}

const squareSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="2in" height="2in">
  <polygon points="0,0 192,0 192,192 0,192"/>
  <line x1="0" y1="0" x2="192" y2="192"/>
</svg>`

func TestBasePath(t *testing.T) {
	tests := []struct {
		name   string
		output string
		input  string
		want   string
	}{
		{"empty output strips input extension", "", "drawing.svg", "drawing"},
		{"output with format extension", "pattern.pdf", "drawing.svg", "pattern"},
		{"output without extension", "pattern", "drawing.svg", "pattern"},
		{"output with unknown extension", "pattern.out", "drawing.svg", "pattern.out"},
		{"nested input path", "", "art/drawing.svg", "art/drawing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := basePath(tt.output, tt.input); got != tt.want {
				t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
			}
		})
	}
}

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()

	paths, err := writeArtifacts(artifactWriteParams{
		artifacts: map[string][]byte{
			"pdf":  []byte("%PDF-fake"),
			"json": []byte("{}"),
		},
		formats: []string{"pdf", "json"},
		input:   filepath.Join(dir, "drawing.svg"),
	})
	if err != nil {
		t.Fatalf("writeArtifacts() error: %v", err)
	}

	for _, format := range []string{"pdf", "json"} {
		path, ok := paths[format]
		if !ok {
			t.Fatalf("writeArtifacts() missing path for %s", format)
		}
		want := filepath.Join(dir, "drawing."+format)
		if path != want {
			t.Errorf("path for %s = %q, want %q", format, path, want)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("output %s not written: %v", path, err)
		}
	}
}

func TestWriteArtifactsSingleFormatOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "custom.pdf")

	paths, err := writeArtifacts(artifactWriteParams{
		artifacts: map[string][]byte{"pdf": []byte("%PDF-fake")},
		formats:   []string{"pdf"},
		input:     "drawing.svg",
		output:    out,
	})
	if err != nil {
		t.Fatalf("writeArtifacts() error: %v", err)
	}
	if paths["pdf"] != out {
		t.Errorf("path = %q, want %q", paths["pdf"], out)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "piecework.toml")
	content := `allowance = 0.5
page_width = 8.27
formats = ["png", "json"]
no_labels = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}

	if cfg.Allowance == nil || *cfg.Allowance != 0.5 {
		t.Errorf("Allowance = %v, want 0.5", cfg.Allowance)
	}
	if cfg.PageWidth == nil || *cfg.PageWidth != 8.27 {
		t.Errorf("PageWidth = %v, want 8.27", cfg.PageWidth)
	}
	if len(cfg.Formats) != 2 || cfg.Formats[0] != "png" {
		t.Errorf("Formats = %v, want [png json]", cfg.Formats)
	}
	if cfg.NoLabels == nil || !*cfg.NoLabels {
		t.Errorf("NoLabels = %v, want true", cfg.NoLabels)
	}
	if cfg.Tolerance != nil {
		t.Errorf("Tolerance should be nil when absent, got %v", *cfg.Tolerance)
	}
}

func TestLoadConfigUnknownKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "piecework.toml")
	if err := os.WriteFile(path, []byte("seam_width = 0.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := loadConfig(path); err == nil {
		t.Error("loadConfig() should reject unknown keys")
	}
}

func TestLoadConfigMissingExplicit(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("loadConfig() should fail for a missing explicit path")
	}
}

func TestLoadConfigMissingImplicit(t *testing.T) {
	// Run from a directory without a piecework.toml.
	chdir(t, t.TempDir())

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig(\"\") error: %v", err)
	}
	if cfg == nil {
		t.Fatal("loadConfig(\"\") returned nil config")
	}
}

func TestConfigApply(t *testing.T) {
	allowance := 0.375
	noLabels := true
	cfg := &fileConfig{Allowance: &allowance, NoLabels: &noLabels}

	opts := pipeline.Options{Allowance: 0.25, PageWidth: 8.5}
	cfg.apply(&opts)

	if opts.Allowance != 0.375 {
		t.Errorf("Allowance = %v, want 0.375", opts.Allowance)
	}
	if !opts.NoLabels {
		t.Error("NoLabels should be set from config")
	}
	if opts.PageWidth != 8.5 {
		t.Errorf("PageWidth = %v, should be untouched", opts.PageWidth)
	}
}

func TestGenerateEndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "drawing.svg")
	output := filepath.Join(dir, "pattern.json")
	if err := os.WriteFile(input, []byte(squareSVG), 0o644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	var logBuf bytes.Buffer
	c := New(&logBuf, LogInfo)
	root := c.RootCommand()
	root.SetArgs([]string{"generate", input, "-f", "json", "-o", output, "--no-cache"})

	if err := root.Execute(); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	pat, err := pattern.ReadFile(output)
	if err != nil {
		t.Fatalf("output is not a valid pattern: %v", err)
	}
	if len(pat.Patches) != 2 {
		t.Errorf("patches = %d, want 2", len(pat.Patches))
	}
	if len(pat.Groups) != 1 {
		t.Errorf("groups = %d, want 1", len(pat.Groups))
	}
}

func TestGenerateConfigFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "drawing.svg")
	if err := os.WriteFile(input, []byte(squareSVG), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "piecework.toml")
	if err := os.WriteFile(cfgPath, []byte("formats = [\"json\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	var logBuf bytes.Buffer
	c := New(&logBuf, LogInfo)
	root := c.RootCommand()
	root.SetArgs([]string{"generate", input, "--no-cache"})

	if err := root.Execute(); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	// The config's formats list should have produced a JSON artifact
	// next to the input.
	if _, err := os.Stat(filepath.Join(dir, "drawing.json")); err != nil {
		t.Errorf("expected drawing.json from config formats: %v", err)
	}
}
