// Radon analysis main entrypoint.
//
// Two commands:
//  1. rnanalysis (default): list run files in source_dir, derive a date key and a radon concentration
//     per file, render the series as a chart and optionally export it as JSON.
//  2. rnanalysis synth: write synthetic run files following the monitor naming convention, for demos
//     and for trying fit settings without detector data.
//
// Design notes:
//   - Configuration is layered: built-in defaults, then the --config YAML file, then flags that were set
//     explicitly on the command line.
//   - Only a bad configuration, an unreadable source directory or an unwritable chart end the process
//     with a non-zero exit. Per-file problems are logged and the file is skipped.
//   - Files are processed one at a time, each opened and closed before the next.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kevinlinxc/radonAnalysis/src/analysis"
	"github.com/kevinlinxc/radonAnalysis/src/catalog"
	"github.com/kevinlinxc/radonAnalysis/src/config"
	"github.com/kevinlinxc/radonAnalysis/src/datekey"
	"github.com/kevinlinxc/radonAnalysis/src/diag"
	"github.com/kevinlinxc/radonAnalysis/src/monitor"
	"github.com/kevinlinxc/radonAnalysis/src/render"
	"github.com/kevinlinxc/radonAnalysis/src/report"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// flagOverrides copies one flag-backed field from the flag values onto the resolved config.
// Only flags the user actually set are applied, so YAML values survive untouched flags.
var flagOverrides = map[string]func(dst *config.Config, src config.Config){
	"dir":         func(d *config.Config, s config.Config) { d.SourceDir = s.SourceDir },
	"ext":         func(d *config.Config, s config.Config) { d.Extension = s.Extension },
	"echo":        func(d *config.Config, s config.Config) { d.EchoFiles = s.EchoFiles },
	"date-key":    func(d *config.Config, s config.Config) { d.DateKey = s.DateKey },
	"noise":       func(d *config.Config, s config.Config) { d.NoiseChars = s.NoiseChars },
	"fit-min":     func(d *config.Config, s config.Config) { d.Window.Lo = s.Window.Lo },
	"fit-max":     func(d *config.Config, s config.Config) { d.Window.Hi = s.Window.Hi },
	"bins":        func(d *config.Config, s config.Config) { d.Binning.Bins = s.Binning.Bins },
	"out":         func(d *config.Config, s config.Config) { d.Output = s.Output },
	"width":       func(d *config.Config, s config.Config) { d.Width = s.Width },
	"height":      func(d *config.Config, s config.Config) { d.Height = s.Height },
	"sort":        func(d *config.Config, s config.Config) { d.SortByKey = s.SortByKey },
	"export":      func(d *config.Config, s config.Config) { d.Export = s.Export },
	"log-level":   func(d *config.Config, s config.Config) { d.LogLevel = s.LogLevel },
	"time-format": func(d *config.Config, s config.Config) { d.TimeFormat = s.TimeFormat },
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	fl := config.Default()

	root := &cobra.Command{
		Use:           "rnanalysis",
		Short:         "Radon concentration time series from monitor run files",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, cfgPath, fl)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}
	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "YAML config file (explicit flags override it)")
	f.StringVar(&fl.SourceDir, "dir", fl.SourceDir, "directory holding the run files")
	f.StringVar(&fl.Extension, "ext", fl.Extension, "run file extension (case-sensitive suffix)")
	f.BoolVar(&fl.EchoFiles, "echo", fl.EchoFiles, "list discovered files with their sizes")
	f.StringVar(&fl.DateKey, "date-key", fl.DateKey, "date key strategy: lexical|numeric")
	f.StringVar(&fl.NoiseChars, "noise", fl.NoiseChars, "characters stripped from file names for lexical keys")
	f.Float64Var(&fl.Window.Lo, "fit-min", fl.Window.Lo, "lower edge of the peak fit window (channels)")
	f.Float64Var(&fl.Window.Hi, "fit-max", fl.Window.Hi, "upper edge of the peak fit window (channels)")
	f.IntVar(&fl.Binning.Bins, "bins", fl.Binning.Bins, "spectrum bin count")
	f.StringVar(&fl.Output, "out", fl.Output, "chart file (.svg or .png)")
	f.IntVar(&fl.Width, "width", fl.Width, "chart width in pixels")
	f.IntVar(&fl.Height, "height", fl.Height, "chart height in pixels")
	f.BoolVar(&fl.SortByKey, "sort", fl.SortByKey, "order points by date key instead of catalog order")
	f.StringVar(&fl.Export, "export", fl.Export, "write the series as JSON to this path (.zst compresses)")
	f.StringVar(&fl.LogLevel, "log-level", fl.LogLevel, "log level (debug|info|warn|error)")
	f.StringVar(&fl.TimeFormat, "time-format", fl.TimeFormat, "Go time layout for date labels")

	root.AddCommand(newSynthCmd())
	return root
}

// resolveConfig layers defaults, the optional YAML file and explicitly set flags, then validates.
func resolveConfig(cmd *cobra.Command, cfgPath string, fl config.Config) (config.Config, error) {
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			return cfg, err
		}
	}
	for name, apply := range flagOverrides {
		if cmd.Flags().Changed(name) {
			apply(&cfg, fl)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// run executes one pipeline pass and prints a one-line summary to w.
func run(ctx context.Context, w io.Writer, cfg config.Config) error {
	monitor.SetLogLevel(cfg.LogLevel)
	defer monitor.TimeTrack(time.Now(), "pipeline")

	names, err := catalog.ListFiles(cfg.SourceDir, cfg.Extension, catalog.Options{Echo: cfg.EchoFiles})
	if err != nil {
		return fmt.Errorf("list run files: %w", err)
	}
	origin, err := cfg.Origin()
	if err != nil {
		return err
	}
	keys, err := datekey.New(cfg.DateKey, cfg.NoiseChars, cfg.Extension, cfg.Schema, origin, cfg.TimeFormat)
	if err != nil {
		return err
	}
	ex := &analysis.Extractor{Schema: cfg.Schema, Binning: cfg.Binning, Window: cfg.Window}
	s := analysis.BuildSeries(ctx, catalog.Paths(cfg.SourceDir, names), keys, ex, analysis.Options{SortByKey: cfg.SortByKey})

	ro, err := cfg.RenderOptions()
	if err != nil {
		return err
	}
	chartPath := cfg.Output
	rerr := render.Render(cfg.Output, s.Kind, s.Concentrations(), s.Labels(), s.Seconds(), ro)
	switch {
	case rerr == nil, errors.Is(rerr, diag.ErrLengthMismatch):
		// mismatch already logged; the chart was written from the common prefix
	case errors.Is(rerr, diag.ErrEmptySeries):
		monitor.Warnf("Nothing to plot; %s not written", cfg.Output)
		chartPath = "-"
	default:
		return fmt.Errorf("write chart: %w", rerr)
	}

	if cfg.Export != "" {
		if err := report.Write(cfg.Export, report.New(cfg, s)); err != nil {
			monitor.Errorf("export %s: %v", cfg.Export, err)
		}
	}
	sum := s.Summary()
	_, _ = fmt.Fprintf(w, "files=%d plotted=%d fit_failures=%d excluded=%d malformed_keys=%d chart=%s\n",
		sum.Files, sum.Plotted, sum.FitFailures, sum.Excluded, sum.MalformedKeys, chartPath)
	return nil
}

// synthOptions drives the synth subcommand.
type synthOptions struct {
	dir        string
	ext        string
	count      int
	start      string
	every      time.Duration
	runtime    time.Duration
	events     int
	background int
	mean       float64
	sigma      float64
	seed       int64
}

func newSynthCmd() *cobra.Command {
	o := synthOptions{}
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write synthetic run files (UofA_RnRun_YYYY-MM-DD.db) for demos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := writeSynthRuns(cmd.Context(), o)
			if err != nil {
				return err
			}
			for _, p := range paths {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.dir, "dir", ".", "output directory")
	f.StringVar(&o.ext, "ext", ".db", "run file extension")
	f.IntVar(&o.count, "count", 5, "number of run files")
	f.StringVar(&o.start, "start", "2020-02-14", "date of the first run (YYYY-MM-DD, UTC)")
	f.DurationVar(&o.every, "every", 24*time.Hour, "time between run starts")
	f.DurationVar(&o.runtime, "runtime", time.Hour, "span between first and last event of each run")
	f.IntVar(&o.events, "events", 20000, "radon peak events per run")
	f.IntVar(&o.background, "background", 2000, "flat background events per run")
	f.Float64Var(&o.mean, "mean", 1950, "peak position (channels)")
	f.Float64Var(&o.sigma, "sigma", 15, "peak width (channels)")
	f.Int64Var(&o.seed, "seed", 1, "random seed (run i uses seed+i)")
	return cmd
}

// writeSynthRuns writes o.count runs and returns their paths in chronological order.
func writeSynthRuns(ctx context.Context, o synthOptions) ([]string, error) {
	if o.count < 1 {
		return nil, fmt.Errorf("--count must be >= 1")
	}
	start, err := time.Parse("2006-01-02", o.start)
	if err != nil {
		return nil, fmt.Errorf("invalid --start %q: %w", o.start, err)
	}
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, o.count)
	for i := 0; i < o.count; i++ {
		t0 := start.Add(time.Duration(i) * o.every).UTC()
		run := monitor.SynthRun{
			Start:            float64(t0.Unix()),
			Span:             o.runtime.Seconds(),
			PeakEvents:       o.events,
			PeakMean:         o.mean,
			PeakSigma:        o.sigma,
			BackgroundEvents: o.background,
			Seed:             o.seed + int64(i),
		}
		p := filepath.Join(o.dir, fmt.Sprintf("UofA_RnRun_%s%s", t0.Format("2006-01-02"), o.ext))
		if err := monitor.CreateRunFile(ctx, p, monitor.DefaultSchema(), run.Records()); err != nil {
			return paths, fmt.Errorf("write %s: %w", p, err)
		}
		monitor.Infof("Wrote synthetic run %s (%d events over %s)", filepath.Base(p), o.events+o.background, o.runtime)
		paths = append(paths, p)
	}
	return paths, nil
}
