// Package config holds the run configuration: built-in defaults, an optional YAML file, then
// whatever the command line sets explicitly. The value is built once and passed down.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kevinlinxc/radonAnalysis/src/analysis"
	"github.com/kevinlinxc/radonAnalysis/src/datekey"
	"github.com/kevinlinxc/radonAnalysis/src/monitor"
	"github.com/kevinlinxc/radonAnalysis/src/render"
)

// Config is everything one pipeline run needs.
type Config struct {
	SourceDir string `yaml:"source_dir" json:"source_dir"`
	Extension string `yaml:"extension" json:"extension"`
	EchoFiles bool   `yaml:"echo_files" json:"echo_files"`

	DateKey    string `yaml:"date_key" json:"date_key"` // lexical | numeric
	NoiseChars string `yaml:"noise_chars" json:"noise_chars"`

	Schema  monitor.Schema   `yaml:",inline" json:"schema"`
	Binning analysis.Binning `yaml:",inline" json:"binning"`
	Window  analysis.Window  `yaml:",inline" json:"window"`

	Output      string `yaml:"output" json:"output"`
	Width       int    `yaml:"width" json:"width"`
	Height      int    `yaml:"height" json:"height"`
	Title       string `yaml:"title" json:"title"`
	TimeFormat  string `yaml:"time_format" json:"time_format"`
	EpochOrigin string `yaml:"epoch_origin" json:"epoch_origin"`
	SortByKey   bool   `yaml:"sort_by_key" json:"sort_by_key"`

	Export   string `yaml:"export" json:"export,omitempty"`
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// Default returns the cover gas monitor settings.
func Default() Config {
	ro := render.DefaultOptions()
	return Config{
		SourceDir:   ".",
		Extension:   ".db",
		EchoFiles:   true,
		DateKey:     "lexical",
		NoiseChars:  datekey.DefaultNoise,
		Schema:      monitor.DefaultSchema(),
		Binning:     analysis.DefaultBinning(),
		Window:      analysis.DefaultWindow(),
		Output:      "c.svg",
		Width:       ro.Width,
		Height:      ro.Height,
		Title:       ro.Title,
		TimeFormat:  datekey.DefaultTimeFormat,
		EpochOrigin: "1970-01-01T00:00:00Z",
		LogLevel:    "info",
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep their default; unknown
// keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Origin parses EpochOrigin.
func (c Config) Origin() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, c.EpochOrigin)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch_origin %q: %w", c.EpochOrigin, err)
	}
	return t.UTC(), nil
}

// RenderOptions maps the chart fields onto render.Options.
func (c Config) RenderOptions() (render.Options, error) {
	origin, err := c.Origin()
	if err != nil {
		return render.Options{}, err
	}
	ro := render.DefaultOptions()
	ro.Width, ro.Height = c.Width, c.Height
	ro.Title = c.Title
	ro.TimeFormat = c.TimeFormat
	ro.Origin = origin
	return ro, nil
}

// Validate reports the first problem found.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SourceDir) == "" {
		return fmt.Errorf("source_dir is required")
	}
	if strings.TrimSpace(c.Extension) == "" {
		return fmt.Errorf("extension is required")
	}
	switch strings.ToLower(c.DateKey) {
	case "lexical", "numeric":
	default:
		return fmt.Errorf("unknown date_key %q (want lexical or numeric)", c.DateKey)
	}
	if err := c.Schema.Validate(); err != nil {
		return err
	}
	if c.Binning.Bins < 1 {
		return fmt.Errorf("bins must be >= 1, got %d", c.Binning.Bins)
	}
	if !(c.Binning.Hi > c.Binning.Lo) {
		return fmt.Errorf("range_max (%g) must exceed range_min (%g)", c.Binning.Hi, c.Binning.Lo)
	}
	if !(c.Window.Hi > c.Window.Lo) {
		return fmt.Errorf("fit_max (%g) must exceed fit_min (%g)", c.Window.Hi, c.Window.Lo)
	}
	if c.Window.Lo < c.Binning.Lo || c.Window.Hi > c.Binning.Hi {
		return fmt.Errorf("fit window [%g,%g] outside histogram range [%g,%g]", c.Window.Lo, c.Window.Hi, c.Binning.Lo, c.Binning.Hi)
	}
	switch strings.ToLower(filepath.Ext(c.Output)) {
	case ".svg", ".png":
	default:
		return fmt.Errorf("output %q must end in .svg or .png", c.Output)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("width and height must be positive (%dx%d)", c.Width, c.Height)
	}
	if strings.TrimSpace(c.TimeFormat) == "" {
		return fmt.Errorf("time_format is required")
	}
	if _, err := c.Origin(); err != nil {
		return err
	}
	if !monitor.ValidLogLevel(c.LogLevel) {
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}
