package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kevinlinxc/radonAnalysis/src/analysis"
	"github.com/kevinlinxc/radonAnalysis/src/diag"
	"github.com/kevinlinxc/radonAnalysis/src/monitor"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	ex := analysis.DefaultExtractor()
	var logLevel string
	cmd := &cobra.Command{
		Use:           "rnreader FILE...",
		Short:         "Print per-run peak fit, runtime and concentration without rendering",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			monitor.SetLogLevel(logLevel)
			if err := ex.Schema.Validate(); err != nil {
				return err
			}
			return inspect(cmd.Context(), cmd.OutOrStdout(), ex, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&ex.Schema.Table, "table", ex.Schema.Table, "record table")
	f.StringVar(&ex.Schema.ChannelField, "channel-field", ex.Schema.ChannelField, "pulse-height column")
	f.StringVar(&ex.Schema.TimestampField, "timestamp-field", ex.Schema.TimestampField, "timestamp column (epoch seconds)")
	f.Float64Var(&ex.Window.Lo, "fit-min", ex.Window.Lo, "lower edge of the fit window")
	f.Float64Var(&ex.Window.Hi, "fit-max", ex.Window.Hi, "upper edge of the fit window")
	f.StringVar(&logLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	return cmd
}

// inspect prints one row per file. Files that cannot be measured still get a row with the error
// class; only a write failure on w is returned.
func inspect(ctx context.Context, w io.Writer, ex *analysis.Extractor, paths []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tEVENTS\tFIRST EVENT\tFIT\tMEAN\tSIGMA\tINTEGRAL\tHOURS\tCOUNTS/HOUR\tSTATUS")
	for _, p := range paths {
		name := filepath.Base(p)
		first := "-"
		if rf, err := monitor.OpenRunFile(ctx, p, ex.Schema); err == nil {
			if sp, err := rf.TimestampSpan(ctx); err == nil && sp.Count > 0 {
				first = time.Unix(int64(sp.Min), 0).UTC().Format(time.RFC3339)
			}
			rf.Close()
		}
		m, err := ex.Extract(ctx, p)
		status := "ok"
		if err != nil {
			status = string(diag.Classify(err))
		}
		fit := "failed"
		mean, sigma := "-", "-"
		if m.FitConverged {
			fit = "ok"
			mean, sigma = fmt.Sprintf("%.2f", m.Fit.Mean), fmt.Sprintf("%.2f", m.Fit.Sigma)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%.1f\t%.3f\t%.1f\t%s\n",
			name, humanize.Comma(int64(m.Entries)), first, fit, mean, sigma, m.PeakIntegral, m.RuntimeHours, m.Concentration, status)
	}
	return tw.Flush()
}
