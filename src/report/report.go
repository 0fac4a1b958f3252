// Package report exports an assembled series as JSON so a run can be audited without re-reading
// the run files. Paths ending in .zst are zstd-compressed.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/kevinlinxc/radonAnalysis/src/analysis"
	"github.com/kevinlinxc/radonAnalysis/src/config"
	"github.com/kevinlinxc/radonAnalysis/src/diag"
	"github.com/kevinlinxc/radonAnalysis/src/monitor"
)

// SchemaVersion is bumped whenever a field changes meaning.
const SchemaVersion = 1

// File is one input file with its error flattened for JSON.
type File struct {
	analysis.FileResult
	Error    string    `json:"error,omitempty"`
	Code     diag.Code `json:"code,omitempty"`
	KeyError string    `json:"key_error,omitempty"`
}

// Report is the exported document.
type Report struct {
	GeneratedAt   string                 `json:"generated_at"`
	SchemaVersion int                    `json:"schema_version"`
	KeyKind       string                 `json:"key_kind"`
	Config        config.Config          `json:"config"`
	Summary       analysis.Summary       `json:"summary"`
	Files         []File                 `json:"files"`
	Points        []analysis.SeriesPoint `json:"points"`
}

// New builds a report for s under cfg.
func New(cfg config.Config, s *analysis.Series) Report {
	rep := Report{
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339Nano),
		SchemaVersion: SchemaVersion,
		KeyKind:       s.Kind.String(),
		Config:        cfg,
		Summary:       s.Summary(),
		Files:         make([]File, len(s.Files)),
		Points:        s.Points,
	}
	if rep.Points == nil {
		rep.Points = []analysis.SeriesPoint{}
	}
	for i, fr := range s.Files {
		f := File{FileResult: fr}
		if fr.Err != nil {
			f.Error = fr.Err.Error()
			f.Code = diag.Classify(fr.Err)
		}
		if fr.KeyErr != nil {
			f.KeyError = fr.KeyErr.Error()
		}
		rep.Files[i] = f
	}
	return rep
}

func compressed(path string) bool { return strings.HasSuffix(path, ".zst") }

// Write stores rep at path as indented JSON, zstd-compressed for .zst paths.
func Write(path string, rep Report) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if compressed(path) {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return fmt.Errorf("failed to create encoder: %w", err)
		}
		raw := len(b)
		b = enc.EncodeAll(b, nil)
		enc.Close()
		monitor.Debugf("report compressed %d -> %d bytes", raw, len(b))
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	monitor.Infof("Wrote report %s", path)
	return nil
}

// Read loads a report written by Write.
func Read(path string) (Report, error) {
	var rep Report
	b, err := os.ReadFile(path)
	if err != nil {
		return rep, err
	}
	if compressed(path) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return rep, fmt.Errorf("failed to create decoder: %w", err)
		}
		defer dec.Close()
		if b, err = dec.DecodeAll(b, nil); err != nil {
			return rep, fmt.Errorf("decompress report: %w", err)
		}
	}
	if err := json.Unmarshal(b, &rep); err != nil {
		return rep, fmt.Errorf("decode report: %w", err)
	}
	return rep, nil
}
