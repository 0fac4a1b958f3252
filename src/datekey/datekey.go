// Package datekey derives the per-file value that positions and labels a run on the chart's x axis.
//
// Two strategies exist and a pipeline run uses exactly one of them:
//   - Lexical: a short display label cut out of the file name (readable, lossy, convention-bound).
//   - Numeric: the run's earliest event timestamp in epoch seconds (precise, chronological).
package datekey

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kevinlinxc/radonAnalysis/src/diag"
	"github.com/kevinlinxc/radonAnalysis/src/monitor"
)

// DefaultNoise is the character set stripped from monitor file names before the date is cut out:
// run markers, vendor prefix and separators of the UofA_RnRun_... naming convention.
const DefaultNoise = "UofARrun_cpy.t"

// DefaultTimeFormat renders epoch keys as dd/mm/yy.
const DefaultTimeFormat = "02/01/06"

// dateWidth is the number of characters kept in front of the first '-' (the year).
const dateWidth = 4

var (
	// ErrMalformedKey marks a file name that does not follow the naming convention. The key
	// returned with it is still usable (possibly empty) for display.
	ErrMalformedKey = diag.ErrMalformedKey
	// ErrNoTimestamps marks a run without any timestamp, so no numeric key exists.
	ErrNoTimestamps = errors.New("run has no timestamps")
)

// Kind tells which strategy produced a key.
type Kind int

const (
	KindLabel Kind = iota
	KindEpoch
)

func (k Kind) String() string {
	if k == KindEpoch {
		return "numeric"
	}
	return "lexical"
}

// Key is a date key. Lexical keys only carry Label; numeric keys carry Seconds and a display Label.
type Key struct {
	Kind    Kind    `json:"-"`
	Label   string  `json:"label"`
	Seconds float64 `json:"seconds,omitempty"`
}

// Extractor derives a Key for one run file path.
type Extractor interface {
	Kind() Kind
	Extract(ctx context.Context, path string) (Key, error)
}

// Lexical cuts a date label out of the base file name.
type Lexical struct {
	Noise     string
	Extension string
}

func (Lexical) Kind() Kind { return KindLabel }

// Extract never touches the file. A name without a '-' at index >= 4 (after cleanup) yields an
// empty label together with ErrMalformedKey.
func (l Lexical) Extract(_ context.Context, path string) (Key, error) {
	label := CleanName(filepath.Base(path), l.Extension, l.Noise)
	k := Key{Kind: KindLabel, Label: label}
	if label == "" {
		return k, fmt.Errorf("%s: %w", filepath.Base(path), ErrMalformedKey)
	}
	return k, nil
}

// CleanName strips ext, removes every rune of noise, then keeps the text starting dateWidth
// characters before the first remaining '-'.
func CleanName(name, ext, noise string) string {
	if ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(noise, r) {
			return -1
		}
		return r
	}, name)
	cut := strings.IndexByte(cleaned, '-')
	if cut < dateWidth {
		return ""
	}
	return cleaned[cut-dateWidth:]
}

// Numeric keys a run by its earliest event timestamp.
type Numeric struct {
	Schema monitor.Schema
	Origin time.Time
	Format string
}

func (Numeric) Kind() Kind { return KindEpoch }

// Extract opens its own handle on the run file and closes it before returning.
func (n Numeric) Extract(ctx context.Context, path string) (Key, error) {
	rf, err := monitor.OpenRunFile(ctx, path, n.Schema)
	if err != nil {
		return Key{Kind: KindEpoch}, err
	}
	defer rf.Close()
	sp, err := rf.TimestampSpan(ctx)
	if err != nil {
		return Key{Kind: KindEpoch}, err
	}
	if sp.Count == 0 {
		return Key{Kind: KindEpoch}, fmt.Errorf("%s: %w", filepath.Base(path), ErrNoTimestamps)
	}
	return Key{Kind: KindEpoch, Seconds: sp.Min, Label: n.FormatSeconds(sp.Min)}, nil
}

// Time converts epoch seconds to wall time relative to Origin (UTC).
func (n Numeric) Time(sec float64) time.Time {
	return n.Origin.Add(time.Duration(sec * float64(time.Second))).UTC()
}

// FormatSeconds renders sec with Format (dd/mm/yy by default).
func (n Numeric) FormatSeconds(sec float64) string {
	f := n.Format
	if f == "" {
		f = DefaultTimeFormat
	}
	return n.Time(sec).Format(f)
}

// New builds a strategy by name ("lexical" or "numeric").
func New(kind string, noise, ext string, schema monitor.Schema, origin time.Time, format string) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "lexical":
		return Lexical{Noise: noise, Extension: ext}, nil
	case "numeric":
		return Numeric{Schema: schema, Origin: origin, Format: format}, nil
	default:
		return nil, fmt.Errorf("unknown date key strategy %q (want lexical|numeric)", kind)
	}
}

// ExtractAll derives keys for every path. keys[i] and errs[i] describe paths[i].
func ExtractAll(ctx context.Context, ex Extractor, paths []string) ([]Key, []error) {
	monitor.Infof("Extracting dates (%s)...", ex.Kind())
	keys := make([]Key, len(paths))
	errs := make([]error, len(paths))
	for i, p := range paths {
		keys[i], errs[i] = ex.Extract(ctx, p)
	}
	return keys, errs
}
