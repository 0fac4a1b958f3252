package analysis

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"time"

	"github.com/kevinlinxc/radonAnalysis/src/datekey"
	"github.com/kevinlinxc/radonAnalysis/src/diag"
	"github.com/kevinlinxc/radonAnalysis/src/monitor"
)

// Options tunes series assembly.
type Options struct {
	// SortByKey orders points by date key instead of catalog order.
	SortByKey bool
}

// FileResult records what happened to one input file. Files[i] always describes paths[i].
type FileResult struct {
	Index    int         `json:"index"`
	Name     string      `json:"name"`
	Key      datekey.Key `json:"key"`
	KeyErr   error       `json:"-"`
	Metric   RunMetric   `json:"metric"`
	Err      error       `json:"-"`
	Included bool        `json:"included"`
}

// SeriesPoint is one plotted run. X is a consecutive index for label keys and epoch seconds for
// numeric keys.
type SeriesPoint struct {
	FileIndex int     `json:"file_index"`
	File      string  `json:"file"`
	X         float64 `json:"x"`
	Y         float64 `json:"concentration"`
	Label     string  `json:"label"`
}

// Series is the assembled result of one pipeline run.
type Series struct {
	Kind   datekey.Kind
	Files  []FileResult
	Points []SeriesPoint
}

// Summary counts outcomes for the final report line.
type Summary struct {
	Files         int `json:"files"`
	Plotted       int `json:"plotted"`
	FitFailures   int `json:"fit_failures"`
	Excluded      int `json:"excluded"`
	MalformedKeys int `json:"malformed_keys"`
}

// BuildSeries runs the per-file pipeline sequentially in the given order. Date keys are derived
// for the whole list first, then metrics file by file; both are zipped by index.
func BuildSeries(ctx context.Context, paths []string, keys datekey.Extractor, ex *Extractor, opts Options) *Series {
	defer monitor.TimeTrack(time.Now(), "build series")
	s := &Series{Kind: keys.Kind(), Files: make([]FileResult, len(paths))}
	if len(paths) == 0 {
		monitor.Warnf("%v; nothing to analyze", diag.ErrDiscoveryEmpty)
		return s
	}
	monitor.Infof("Found %d files", len(paths))
	ks, kerrs := datekey.ExtractAll(ctx, keys, paths)

	for i, p := range paths {
		name := filepath.Base(p)
		fr := FileResult{Index: i, Name: name, Key: ks[i], KeyErr: kerrs[i]}
		monitor.Infof("File # %d: %s", i+1, name)

		m, err := ex.Extract(ctx, p)
		fr.Metric = m
		if err != nil {
			fr.Err = err
			monitor.Warnf("Excluding %s [%s]: %v", name, diag.Classify(err), err)
			s.Files[i] = fr
			continue
		}
		if fr.KeyErr != nil {
			if s.Kind == datekey.KindEpoch {
				fr.Err = fr.KeyErr
				monitor.Warnf("Excluding %s: no date key: %v", name, fr.KeyErr)
				s.Files[i] = fr
				continue
			}
			monitor.Warnf("Date key for %s is unusable (%q): %v", name, fr.Key.Label, fr.KeyErr)
		}
		monitor.Infof("Concentration for %s: %g [counts/hour]", fr.Key.Label, m.Concentration)

		x := fr.Key.Seconds
		if s.Kind == datekey.KindLabel {
			x = float64(len(s.Points))
		}
		s.Points = append(s.Points, SeriesPoint{FileIndex: i, File: name, X: x, Y: m.Concentration, Label: fr.Key.Label})
		fr.Included = true
		s.Files[i] = fr
	}
	if opts.SortByKey {
		s.sortByKey()
	}
	return s
}

func (s *Series) sortByKey() {
	if s.Kind == datekey.KindEpoch {
		sort.SliceStable(s.Points, func(i, j int) bool { return s.Points[i].X < s.Points[j].X })
		return
	}
	sort.SliceStable(s.Points, func(i, j int) bool { return s.Points[i].Label < s.Points[j].Label })
	for i := range s.Points {
		s.Points[i].X = float64(i)
	}
}

// Concentrations returns the y values in point order.
func (s *Series) Concentrations() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Y
	}
	return out
}

// Labels returns the date labels in point order.
func (s *Series) Labels() []string {
	out := make([]string, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Label
	}
	return out
}

// Seconds returns the x values in point order (epoch seconds for numeric keys).
func (s *Series) Seconds() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.X
	}
	return out
}

// Summary tallies file outcomes.
func (s *Series) Summary() Summary {
	sum := Summary{Files: len(s.Files), Plotted: len(s.Points)}
	for _, f := range s.Files {
		if !f.Included {
			sum.Excluded++
		}
		if f.Err == nil && !f.Metric.FitConverged {
			sum.FitFailures++
		}
		if errors.Is(f.KeyErr, diag.ErrMalformedKey) {
			sum.MalformedKeys++
		}
	}
	return sum
}
