package analysis

import (
	"math"
	"testing"
)

func TestSpectrumBinningAndOverflow(t *testing.T) {
	b := Binning{Bins: 4, Lo: 0, Hi: 4}
	s := NewSpectrum(b, []float64{-1, 0, 0.5, 1.2, 3.99, 4, 10, math.NaN()})
	want := []float64{2, 1, 0, 1}
	for i, w := range want {
		if s.Counts[i] != w {
			t.Fatalf("bin %d = %v want %v (all %v)", i, s.Counts[i], w, s.Counts)
		}
	}
	if s.Underflow != 1 || s.Overflow != 2 {
		t.Fatalf("under/overflow = %d/%d", s.Underflow, s.Overflow)
	}
	if s.Entries() != 4 {
		t.Fatalf("entries = %d", s.Entries())
	}
}

func TestSpectrumDoesNotReorderInput(t *testing.T) {
	in := []float64{3, 1, 2}
	NewSpectrum(Binning{Bins: 3, Lo: 0, Hi: 3}, in)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Fatalf("input mutated: %v", in)
	}
}

func TestSpectrumEmpty(t *testing.T) {
	s := NewSpectrum(DefaultBinning(), nil)
	if len(s.Counts) != 8039 || s.Entries() != 0 {
		t.Fatalf("unexpected empty spectrum: bins=%d entries=%d", len(s.Counts), s.Entries())
	}
}

func TestDefaultBinWidthAndWindow(t *testing.T) {
	s := NewSpectrum(DefaultBinning(), nil)
	if w := s.BinWidth(); math.Abs(w-0.5095) > 1e-3 {
		t.Fatalf("bin width %v", w)
	}
	first, last := s.Window(1850, 2050)
	if s.BinCenter(first) < 1850 || s.BinCenter(first-1) >= 1850 {
		t.Fatalf("first bin center %v not the first inside window", s.BinCenter(first))
	}
	if s.BinCenter(last-1) > 2050 || s.BinCenter(last) <= 2050 {
		t.Fatalf("last bin center %v not the last inside window", s.BinCenter(last-1))
	}
	if f, l := s.Window(-100, 1e9); f != 0 || l != s.Bins {
		t.Fatalf("window not clamped: [%d,%d)", f, l)
	}
}
