package analysis

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kevinlinxc/radonAnalysis/src/monitor"
)

// writeSynth materializes a synthetic run in dir and returns its path.
func writeSynth(t *testing.T, dir, name string, s monitor.SynthRun) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := monitor.CreateRunFile(context.Background(), path, monitor.DefaultSchema(), s.Records()); err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return path
}

// captureLogs routes monitor diagnostics into a buffer for the test's duration.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	monitor.SetOutput(&buf)
	t.Cleanup(func() { monitor.SetOutput(os.Stderr) })
	return &buf
}

// cleanPeak is a background-free radon peak centered in the default window.
func cleanPeak(start, span float64, events int, seed int64) monitor.SynthRun {
	return monitor.SynthRun{Start: start, Span: span, PeakEvents: events, PeakMean: 1950, PeakSigma: 15, Seed: seed}
}
