// Package analysis turns run files into radon concentrations: it bins the pulse-height stream
// into a spectrum, fits the radon peak, integrates it, divides by the run time and assembles the
// per-file results into a series for rendering.
package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Binning is a fixed histogram layout over [Lo, Hi).
type Binning struct {
	Bins int     `yaml:"bins" json:"bins"`
	Lo   float64 `yaml:"range_min" json:"range_min"`
	Hi   float64 `yaml:"range_max" json:"range_max"`
}

// DefaultBinning covers the full 12-bit ADC range with ~0.5 channel bins.
func DefaultBinning() Binning { return Binning{Bins: 8039, Lo: 0, Hi: 4096} }

// Spectrum is a pulse-height histogram of one run.
type Spectrum struct {
	Binning
	Counts    []float64
	Underflow int
	Overflow  int
}

// NewSpectrum bins values. Values below Lo or at/above Hi land in the under/overflow counters.
// values is not modified.
func NewSpectrum(b Binning, values []float64) *Spectrum {
	s := &Spectrum{Binning: b, Counts: make([]float64, b.Bins)}
	in := make([]float64, 0, len(values))
	for _, v := range values {
		switch {
		case math.IsNaN(v):
			continue
		case v < b.Lo:
			s.Underflow++
		case v >= b.Hi:
			s.Overflow++
		default:
			in = append(in, v)
		}
	}
	if len(in) == 0 {
		return s
	}
	sort.Float64s(in)
	dividers := floats.Span(make([]float64, b.Bins+1), b.Lo, b.Hi)
	stat.Histogram(s.Counts, dividers, in, nil)
	return s
}

// BinWidth is the uniform bin width.
func (s *Spectrum) BinWidth() float64 { return (s.Hi - s.Lo) / float64(s.Bins) }

// BinCenter returns the center of bin i.
func (s *Spectrum) BinCenter(i int) float64 { return s.Lo + (float64(i)+0.5)*s.BinWidth() }

// Entries counts binned values (excluding under/overflow).
func (s *Spectrum) Entries() int { return int(floats.Sum(s.Counts)) }

// Window returns the half-open bin index range [first, last) of bins whose centers lie in [a, b].
func (s *Spectrum) Window(a, b float64) (int, int) {
	w := s.BinWidth()
	first := int(math.Ceil((a-s.Lo)/w - 0.5))
	last := int(math.Floor((b-s.Lo)/w-0.5)) + 1
	if first < 0 {
		first = 0
	}
	if last > s.Bins {
		last = s.Bins
	}
	if last < first {
		last = first
	}
	return first, last
}
