// Package diag holds the pipeline's error taxonomy and its classification into short codes for
// log summaries.
package diag

import (
	"errors"
	"io/fs"
)

var (
	// ErrDiscoveryEmpty: no matching run files. Reported; the pipeline continues with an empty series.
	ErrDiscoveryEmpty = errors.New("no run files found")
	// ErrFitNonConvergence: the peak fit produced no usable function. Recovered as integral 0.
	ErrFitNonConvergence = errors.New("peak fit did not converge")
	// ErrDegenerateRuntime: empty timestamp stream or zero min/max span. The run gets no concentration.
	ErrDegenerateRuntime = errors.New("zero or degenerate runtime")
	// ErrLengthMismatch: concentration and date-key sequences differ in length at render time.
	ErrLengthMismatch = errors.New("concentration/date length mismatch")
	// ErrMalformedKey: a file name did not yield a usable lexical date key.
	ErrMalformedKey = errors.New("malformed file name key")
	// ErrEmptySeries: nothing plottable reached the renderer.
	ErrEmptySeries = errors.New("empty series")
)

// Code is a short classification used only for logs and summaries.
type Code string

const (
	CodeUnknown           Code = "unknown"
	CodeDiscoveryEmpty    Code = "discovery_empty"
	CodeFitNonConvergence Code = "fit_nonconvergence"
	CodeDegenerateRuntime Code = "degenerate_runtime"
	CodeLengthMismatch    Code = "length_mismatch"
	CodeMalformedKey      Code = "malformed_key"
	CodeEmptySeries       Code = "empty_series"
	CodeIO                Code = "io"
)

// Classify maps err to a Code using sentinel matching only (no string inspection).
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeUnknown
	case errors.Is(err, ErrDiscoveryEmpty):
		return CodeDiscoveryEmpty
	case errors.Is(err, ErrFitNonConvergence):
		return CodeFitNonConvergence
	case errors.Is(err, ErrDegenerateRuntime):
		return CodeDegenerateRuntime
	case errors.Is(err, ErrLengthMismatch):
		return CodeLengthMismatch
	case errors.Is(err, ErrMalformedKey):
		return CodeMalformedKey
	case errors.Is(err, ErrEmptySeries):
		return CodeEmptySeries
	}
	var perr *fs.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}
