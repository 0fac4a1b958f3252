package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kevinlinxc/radonAnalysis/src/diag"
)

// Window is the channel range the radon peak is fitted and integrated over.
type Window struct {
	Lo float64 `yaml:"fit_min" json:"fit_min"`
	Hi float64 `yaml:"fit_max" json:"fit_max"`
}

// DefaultWindow brackets the radon peak of the cover gas monitor.
func DefaultWindow() Window { return Window{Lo: 1850, Hi: 2050} }

// fitParams is the number of free Gaussian parameters (amplitude, mean, width).
const fitParams = 3

// maxFitIterations bounds the solver.
const maxFitIterations = 4000

// PeakFit is a converged Gaussian f(x) = Amplitude*exp(-0.5*((x-Mean)/Sigma)^2), in counts per bin.
type PeakFit struct {
	Amplitude   float64 `json:"amplitude"`
	Mean        float64 `json:"mean"`
	Sigma       float64 `json:"sigma"`
	NLL         float64 `json:"nll"`
	Evaluations int     `json:"evaluations"`
}

// Eval returns the fitted curve at x.
func (p PeakFit) Eval(x float64) float64 {
	z := (x - p.Mean) / p.Sigma
	return p.Amplitude * math.Exp(-0.5*z*z)
}

// Integral integrates the curve over [a, b] in channel units.
func (p PeakFit) Integral(a, b float64) float64 {
	n := distuv.Normal{Mu: p.Mean, Sigma: p.Sigma}
	return p.Amplitude * p.Sigma * math.Sqrt(2*math.Pi) * (n.CDF(b) - n.CDF(a))
}

// FitResult is either a converged fit or a failure with a reason. Failure is an expected outcome.
type FitResult struct {
	Converged bool
	Fit       PeakFit
	Reason    string
}

// Err returns nil for a converged fit, otherwise an error wrapping diag.ErrFitNonConvergence.
func (r FitResult) Err() error {
	if r.Converged {
		return nil
	}
	return fmt.Errorf("%w: %s", diag.ErrFitNonConvergence, r.Reason)
}

func fitFailed(format string, args ...interface{}) FitResult {
	return FitResult{Reason: fmt.Sprintf(format, args...)}
}

// FitGaussian fits one Gaussian to the spectrum bins whose centers lie inside w, minimizing the
// binned Poisson negative log-likelihood with Nelder-Mead. Empty bins take part in the likelihood.
func FitGaussian(s *Spectrum, w Window) FitResult {
	first, last := s.Window(w.Lo, w.Hi)
	if last-first < fitParams {
		return fitFailed("window [%g,%g] spans %d bins", w.Lo, w.Hi, last-first)
	}
	xs := make([]float64, last-first)
	ns := s.Counts[first:last]
	populated := 0
	for i := range xs {
		xs[i] = s.BinCenter(first + i)
		if ns[i] > 0 {
			populated++
		}
	}
	total := floats.Sum(ns)
	if total == 0 {
		return fitFailed("no entries in window [%g,%g]", w.Lo, w.Hi)
	}
	if populated < fitParams {
		return fitFailed("only %d populated bins in window [%g,%g]", populated, w.Lo, w.Hi)
	}

	// Seed from the window moments; the solver works on parameters scaled by the seed.
	a0 := floats.Max(ns)
	mu0, s0 := stat.MeanStdDev(xs, ns)
	if math.IsNaN(s0) || s0 < s.BinWidth() {
		s0 = s.BinWidth()
	}
	unscale := func(u []float64) (amp, mu, sigma float64) {
		return a0 * math.Abs(u[0]), mu0 + s0*u[1], s0 * math.Abs(u[2])
	}
	nll := func(u []float64) float64 {
		amp, mu, sigma := unscale(u)
		if sigma == 0 {
			return math.Inf(1)
		}
		sum := 0.0
		for i, x := range xs {
			z := (x - mu) / sigma
			f := amp * math.Exp(-0.5*z*z)
			if f < 1e-300 {
				f = 1e-300
			}
			sum += f - ns[i]*math.Log(f)
		}
		return sum
	}

	settings := &optimize.Settings{
		MajorIterations: maxFitIterations,
		Converger:       &optimize.FunctionConverge{Absolute: 1e-9, Relative: 1e-12, Iterations: 60},
	}
	res, err := optimize.Minimize(optimize.Problem{Func: nll}, []float64{1, 0, 1}, settings, &optimize.NelderMead{})
	if err != nil {
		return fitFailed("solver: %v", err)
	}
	if res.Status == optimize.IterationLimit {
		return fitFailed("solver hit %d iterations", maxFitIterations)
	}
	amp, mu, sigma := unscale(res.X)
	for _, v := range []float64{amp, mu, sigma, res.F} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fitFailed("non-finite parameters (A=%g mean=%g sigma=%g)", amp, mu, sigma)
		}
	}
	if amp <= 0 || sigma <= 0 {
		return fitFailed("degenerate parameters (A=%g sigma=%g)", amp, sigma)
	}
	return FitResult{Converged: true, Fit: PeakFit{Amplitude: amp, Mean: mu, Sigma: sigma, NLL: res.F, Evaluations: res.FuncEvaluations}}
}

// PeakCounts integrates a converged fit over w and converts the area to events by dividing by
// the bin width. A failed fit counts as zero.
func PeakCounts(s *Spectrum, w Window, r FitResult) float64 {
	if !r.Converged {
		return 0
	}
	v := r.Fit.Integral(w.Lo, w.Hi) / s.BinWidth()
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
