package monitor

import (
	"math/rand"
)

// SynthRun describes a synthetic run: a Gaussian radon peak on a flat background, with events
// spread over [Start, Start+Span] seconds in shuffled order.
type SynthRun struct {
	Start            float64
	Span             float64
	PeakEvents       int
	PeakMean         float64
	PeakSigma        float64
	BackgroundEvents int
	BackgroundMax    float64 // flat background covers [0, BackgroundMax); 0 means 4096
	Seed             int64
}

// Records generates the run's pulses. The first and last timestamps land exactly on Start and
// Start+Span so the span is known to the caller.
func (s SynthRun) Records() []Record {
	n := s.PeakEvents + s.BackgroundEvents
	if n <= 0 {
		return nil
	}
	r := rand.New(rand.NewSource(s.Seed))
	bgMax := s.BackgroundMax
	if bgMax <= 0 {
		bgMax = 4096
	}
	out := make([]Record, 0, n)
	for i := 0; i < s.PeakEvents; i++ {
		out = append(out, Record{Channel: s.PeakMean + s.PeakSigma*r.NormFloat64()})
	}
	for i := 0; i < s.BackgroundEvents; i++ {
		out = append(out, Record{Channel: r.Float64() * bgMax})
	}
	for i := range out {
		switch {
		case i == 0:
			out[i].Timestamp = s.Start
		case i == n-1:
			out[i].Timestamp = s.Start + s.Span
		default:
			out[i].Timestamp = s.Start + r.Float64()*s.Span
		}
	}
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
