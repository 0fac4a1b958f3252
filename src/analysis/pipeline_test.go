package analysis

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/kevinlinxc/radonAnalysis/src/datekey"
	"github.com/kevinlinxc/radonAnalysis/src/diag"
	"github.com/kevinlinxc/radonAnalysis/src/monitor"
)

const feb14 = 1_581_638_400 // 2020-02-14T00:00:00Z

func lexical() datekey.Extractor {
	return datekey.Lexical{Noise: datekey.DefaultNoise, Extension: ".db"}
}

func TestExtractCleanRun(t *testing.T) {
	path := writeSynth(t, t.TempDir(), "UofA_RnRun_2020-02-14.db", cleanPeak(feb14, 3600, 20000, 3))
	m, err := DefaultExtractor().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !m.FitConverged {
		t.Fatalf("expected converged fit")
	}
	if m.RuntimeHours != 1 {
		t.Fatalf("runtime %v want 1h", m.RuntimeHours)
	}
	if m.Concentration != m.PeakIntegral/m.RuntimeHours {
		t.Fatalf("concentration must be integral/runtime exactly")
	}
	if math.Abs(m.Concentration-20000)/20000 > 0.03 {
		t.Fatalf("concentration %v not within 3%% of 20000/h", m.Concentration)
	}
	if m.Entries != 20000 {
		t.Fatalf("entries %d", m.Entries)
	}
}

func TestExtractSingleTimestampIsDegenerate(t *testing.T) {
	path := writeSynth(t, t.TempDir(), "one.db", cleanPeak(feb14, 0, 1, 1))
	m, err := DefaultExtractor().Extract(context.Background(), path)
	if !errors.Is(err, diag.ErrDegenerateRuntime) {
		t.Fatalf("expected ErrDegenerateRuntime, got %v", err)
	}
	if math.IsInf(m.Concentration, 0) || math.IsNaN(m.Concentration) || m.Concentration != 0 {
		t.Fatalf("no division may happen on a degenerate runtime: %v", m.Concentration)
	}
}

func TestExtractMissingFile(t *testing.T) {
	if _, err := DefaultExtractor().Extract(context.Background(), "/nonexistent/run.db"); err == nil {
		t.Fatalf("expected error")
	}
}

// Five runs: a clean peak over 1h, a peak below the window over 2h, an empty spectrum (every
// pulse overflows the histogram) over 2h, an off-window peak with zero span, and a run file with
// no rows at all.
func TestBuildSeriesRoundTrip(t *testing.T) {
	logs := captureLogs(t)
	dir := t.TempDir()
	paths := []string{
		writeSynth(t, dir, "UofA_RnRun_2020-02-14.db", cleanPeak(feb14, 3600, 20000, 11)),
		writeSynth(t, dir, "UofA_RnRun_2020-02-15.db", monitor.SynthRun{Start: feb14 + 86400, Span: 7200, PeakEvents: 1000, PeakMean: 500, PeakSigma: 20, Seed: 12}),
		writeSynth(t, dir, "UofA_RnRun_2020-02-16.db", monitor.SynthRun{Start: feb14 + 2*86400, Span: 7200, PeakEvents: 500, PeakMean: 6000, PeakSigma: 10, Seed: 14}),
		writeSynth(t, dir, "UofA_RnRun_2020-02-17.db", monitor.SynthRun{Start: feb14 + 3*86400, Span: 0, PeakEvents: 1000, PeakMean: 3000, PeakSigma: 20, Seed: 13}),
		writeSynth(t, dir, "UofA_RnRun_2020-02-18.db", monitor.SynthRun{}),
	}
	s := BuildSeries(context.Background(), paths, lexical(), DefaultExtractor(), Options{})

	if len(s.Files) != len(paths) {
		t.Fatalf("files %d want %d", len(s.Files), len(paths))
	}
	for i, f := range s.Files {
		if f.Index != i {
			t.Fatalf("file result %d carries index %d", i, f.Index)
		}
	}

	first := s.Files[0]
	if first.Err != nil || !first.Included || !first.Metric.FitConverged {
		t.Fatalf("file 1 should succeed: %+v", first)
	}
	if c := first.Metric.Concentration; math.IsInf(c, 0) || c <= 0 || math.Abs(c-20000)/20000 > 0.03 {
		t.Fatalf("file 1 concentration %v", c)
	}

	for _, i := range []int{1, 2} {
		f := s.Files[i]
		if f.Err != nil || !f.Included {
			t.Fatalf("file %d must be kept despite the failed fit: %+v", i+1, f)
		}
		if f.Metric.FitConverged || f.Metric.PeakIntegral != 0 || f.Metric.Concentration != 0 {
			t.Fatalf("file %d must have integral 0 from a failed fit: %+v", i+1, f.Metric)
		}
		if f.Metric.RuntimeHours != 2 {
			t.Fatalf("file %d runtime %v want 2h", i+1, f.Metric.RuntimeHours)
		}
	}
	if s.Files[2].Metric.Entries != 0 {
		t.Fatalf("file 3 spectrum should be empty, got %d entries", s.Files[2].Metric.Entries)
	}
	for _, name := range []string{"UofA_RnRun_2020-02-15.db", "UofA_RnRun_2020-02-16.db"} {
		if !strings.Contains(logs.String(), "Fit did not work for "+name) {
			t.Fatalf("fit failure for %s not reported:\n%s", name, logs.String())
		}
	}

	for _, i := range []int{3, 4} {
		f := s.Files[i]
		if !errors.Is(f.Err, diag.ErrDegenerateRuntime) || f.Included {
			t.Fatalf("file %d must be excluded for degenerate runtime: %+v", i+1, f)
		}
		if c := f.Metric.Concentration; c != 0 || math.IsNaN(c) || math.IsInf(c, 0) {
			t.Fatalf("file %d concentration %v", i+1, c)
		}
	}
	if s.Files[4].Metric.Entries != 0 {
		t.Fatalf("zero-row file reports %d entries", s.Files[4].Metric.Entries)
	}

	if len(s.Points) != 3 {
		t.Fatalf("points %d want 3", len(s.Points))
	}
	for i, p := range s.Points {
		if p.FileIndex != i || p.X != float64(i) {
			t.Fatalf("point %d misaligned: %+v", i, p)
		}
	}
	want := []string{"2020-02-14", "2020-02-15", "2020-02-16"}
	for i, l := range s.Labels() {
		if l != want[i] {
			t.Fatalf("labels %v want %v", s.Labels(), want)
		}
	}
	sum := s.Summary()
	if sum.Files != 5 || sum.Plotted != 3 || sum.Excluded != 2 || sum.FitFailures != 2 {
		t.Fatalf("summary %+v", sum)
	}
}

func TestBuildSeriesEmpty(t *testing.T) {
	logs := captureLogs(t)
	s := BuildSeries(context.Background(), nil, lexical(), DefaultExtractor(), Options{})
	if len(s.Files) != 0 || len(s.Points) != 0 || len(s.Concentrations()) != 0 {
		t.Fatalf("expected empty series")
	}
	if !strings.Contains(logs.String(), diag.ErrDiscoveryEmpty.Error()) {
		t.Fatalf("empty discovery not reported: %s", logs.String())
	}
}

func TestBuildSeriesNumericSortedByKey(t *testing.T) {
	captureLogs(t)
	dir := t.TempDir()
	// Catalog order deliberately reverse-chronological.
	paths := []string{
		writeSynth(t, dir, "late.db", cleanPeak(feb14+86400, 3600, 2000, 21)),
		writeSynth(t, dir, "early.db", cleanPeak(feb14, 3600, 2000, 22)),
	}
	keys := datekey.Numeric{Schema: monitor.DefaultSchema(), Origin: time.Unix(0, 0).UTC()}

	s := BuildSeries(context.Background(), paths, keys, DefaultExtractor(), Options{})
	if s.Points[0].File != "late.db" {
		t.Fatalf("catalog order must be kept without SortByKey")
	}

	s = BuildSeries(context.Background(), paths, keys, DefaultExtractor(), Options{SortByKey: true})
	if s.Points[0].File != "early.db" || s.Points[0].FileIndex != 1 {
		t.Fatalf("expected early run first after sort: %+v", s.Points)
	}
	if secs := s.Seconds(); secs[0] != feb14 || secs[1] != feb14+86400 {
		t.Fatalf("seconds %v", secs)
	}
	if s.Points[0].Label != "14/02/20" {
		t.Fatalf("numeric label %q", s.Points[0].Label)
	}
}

func TestBuildSeriesMalformedLabelStillPlotted(t *testing.T) {
	logs := captureLogs(t)
	path := writeSynth(t, t.TempDir(), "mystery.db", cleanPeak(feb14, 3600, 2000, 31))
	s := BuildSeries(context.Background(), []string{path}, lexical(), DefaultExtractor(), Options{})
	if len(s.Points) != 1 || s.Points[0].Label != "" {
		t.Fatalf("malformed key should plot with its empty label: %+v", s.Points)
	}
	if s.Summary().MalformedKeys != 1 {
		t.Fatalf("malformed key not counted")
	}
	if !strings.Contains(logs.String(), "unusable") {
		t.Fatalf("malformed key not reported")
	}
}
