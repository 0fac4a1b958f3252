package analysis

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kevinlinxc/radonAnalysis/src/diag"
	"github.com/kevinlinxc/radonAnalysis/src/monitor"
)

const secondsPerHour = 3600.0

// RunMetric is the per-run result. Concentration is PeakIntegral/RuntimeHours and is only set
// when RuntimeHours > 0.
type RunMetric struct {
	PeakIntegral  float64 `json:"peak_integral"`
	RuntimeHours  float64 `json:"runtime_hours"`
	Concentration float64 `json:"concentration"`
	FitConverged  bool    `json:"fit_converged"`
	Fit           PeakFit `json:"fit"`
	Entries       int     `json:"entries"`
}

// Extractor computes RunMetrics from run files.
type Extractor struct {
	Schema  monitor.Schema
	Binning Binning
	Window  Window
}

// DefaultExtractor uses the monitor's standard schema, binning and fit window.
func DefaultExtractor() *Extractor {
	return &Extractor{Schema: monitor.DefaultSchema(), Binning: DefaultBinning(), Window: DefaultWindow()}
}

// Spectrum reads the channel stream of path through its own handle and bins it.
func (e *Extractor) Spectrum(ctx context.Context, path string) (*Spectrum, error) {
	rf, err := monitor.OpenRunFile(ctx, path, e.Schema)
	if err != nil {
		return nil, err
	}
	defer rf.Close()
	ch, err := rf.Channels(ctx)
	if err != nil {
		return nil, err
	}
	return NewSpectrum(e.Binning, ch), nil
}

// PeakIntegral fits the radon peak of path and integrates it over the window. A fit that does
// not converge is not an error: the integral is 0 and the FitResult says why.
func (e *Extractor) PeakIntegral(ctx context.Context, path string) (float64, FitResult, *Spectrum, error) {
	defer monitor.TimeTrack(time.Now(), "peak integral "+filepath.Base(path))
	spec, err := e.Spectrum(ctx, path)
	if err != nil {
		return 0, FitResult{}, nil, err
	}
	fr := FitGaussian(spec, e.Window)
	counts := PeakCounts(spec, e.Window, fr)
	if fr.Converged {
		monitor.Debugf("fit %s: A=%.3g mean=%.2f sigma=%.2f evals=%d", filepath.Base(path), fr.Fit.Amplitude, fr.Fit.Mean, fr.Fit.Sigma, fr.Fit.Evaluations)
	}
	monitor.Infof("Counts found from integrated fit: %g", counts)
	return counts, fr, spec, nil
}

// RuntimeHours reads the timestamp span of path through its own handle. An empty stream or a
// zero span returns diag.ErrDegenerateRuntime.
func (e *Extractor) RuntimeHours(ctx context.Context, path string) (float64, error) {
	rf, err := monitor.OpenRunFile(ctx, path, e.Schema)
	if err != nil {
		return 0, err
	}
	defer rf.Close()
	sp, err := rf.TimestampSpan(ctx)
	if err != nil {
		return 0, err
	}
	dt := sp.Duration()
	if sp.Count == 0 || dt <= 0 {
		return 0, fmt.Errorf("%s: %w (events=%d span=%gs)", filepath.Base(path), diag.ErrDegenerateRuntime, sp.Count, dt)
	}
	hours := dt / secondsPerHour
	monitor.Debugf("dt = %g [hr]", hours)
	return hours, nil
}

// Extract computes the run's metric. Fit failure is logged and yields a zero integral. A
// degenerate runtime returns the partial metric (no concentration) with the error; no division
// happens in that case.
func (e *Extractor) Extract(ctx context.Context, path string) (RunMetric, error) {
	integral, fr, spec, err := e.PeakIntegral(ctx, path)
	if err != nil {
		return RunMetric{}, err
	}
	m := RunMetric{PeakIntegral: integral, FitConverged: fr.Converged, Fit: fr.Fit, Entries: spec.Entries()}
	if !fr.Converged {
		monitor.Warnf("Fit did not work for %s, check fit bounds and histogram: %v", filepath.Base(path), fr.Err())
	}
	hours, err := e.RuntimeHours(ctx, path)
	if err != nil {
		return m, err
	}
	m.RuntimeHours = hours
	m.Concentration = integral / hours
	return m, nil
}
