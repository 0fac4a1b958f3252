// Package monitor reads and writes radon-monitor run files and hosts the shared leveled logger.
//
// A run file is a single SQLite database holding one record table (default "r") with one row per
// detected pulse: the pulse-height channel and the event timestamp in seconds. Every reader call
// opens its own handle; callers close it before moving to the next file.
package monitor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"

	_ "modernc.org/sqlite"
)

// Default record table and column names used by the cover gas monitor exports.
const (
	DefaultTable          = "r"
	DefaultChannelField   = "fadc_channel"
	DefaultTimestampField = "ftimestamp"
)

// ErrNotRunFile is returned when the file opens but lacks the record table.
var ErrNotRunFile = errors.New("not a run file")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Schema names the record table and the two fields the analysis needs.
type Schema struct {
	Table          string `yaml:"table" json:"table"`
	ChannelField   string `yaml:"channel_field" json:"channel_field"`
	TimestampField string `yaml:"timestamp_field" json:"timestamp_field"`
}

// DefaultSchema returns the monitor's standard layout.
func DefaultSchema() Schema {
	return Schema{Table: DefaultTable, ChannelField: DefaultChannelField, TimestampField: DefaultTimestampField}
}

// Validate ensures every name is a plain SQL identifier; names are interpolated into queries.
func (s Schema) Validate() error {
	for _, kv := range [][2]string{{"table", s.Table}, {"channel_field", s.ChannelField}, {"timestamp_field", s.TimestampField}} {
		if !identRe.MatchString(kv[1]) {
			return fmt.Errorf("invalid %s %q", kv[0], kv[1])
		}
	}
	return nil
}

// Record is one detected pulse.
type Record struct {
	Channel   float64
	Timestamp float64
}

// Span summarizes the timestamp stream of a run.
type Span struct {
	Count int64
	Min   float64
	Max   float64
}

// Duration returns Max-Min in seconds; zero when fewer than two events exist.
func (s Span) Duration() float64 {
	if s.Count < 2 {
		return 0
	}
	return s.Max - s.Min
}

// RunFile is an open handle on one run file.
type RunFile struct {
	path   string
	schema Schema
	db     *sql.DB
}

// OpenRunFile opens an existing run file. A missing path is an error; SQLite would otherwise create it.
func OpenRunFile(ctx context.Context, path string, schema Schema) (*RunFile, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !st.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: not a regular file", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	rf := &RunFile{path: path, schema: schema, db: db}
	if err := rf.checkTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return rf, nil
}

func (f *RunFile) checkTable(ctx context.Context) error {
	var n int
	err := f.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, f.schema.Table).Scan(&n)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", f.path, ErrNotRunFile, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w: missing table %q", f.path, ErrNotRunFile, f.schema.Table)
	}
	return nil
}

// Path returns the file path the handle was opened on.
func (f *RunFile) Path() string { return f.path }

// Close releases the handle. Safe to call more than once.
func (f *RunFile) Close() error {
	if f == nil || f.db == nil {
		return nil
	}
	err := f.db.Close()
	f.db = nil
	return err
}

// Entries counts records in the table.
func (f *RunFile) Entries(ctx context.Context) (int64, error) {
	var n int64
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, f.schema.Table)
	if err := f.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", f.path, err)
	}
	return n, nil
}

// Channels returns the non-null channel stream in table order.
func (f *RunFile) Channels(ctx context.Context) ([]float64, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE %s IS NOT NULL`, f.schema.ChannelField, f.schema.Table, f.schema.ChannelField)
	rows, err := f.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("read %s from %s: %w", f.schema.ChannelField, f.path, err)
	}
	defer rows.Close()
	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", f.schema.ChannelField, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// TimestampSpan aggregates count, min and max of the timestamp stream in one query.
func (f *RunFile) TimestampSpan(ctx context.Context) (Span, error) {
	ts := f.schema.TimestampField
	q := fmt.Sprintf(`SELECT COUNT(%s), MIN(%s), MAX(%s) FROM %s`, ts, ts, ts, f.schema.Table)
	var (
		sp       Span
		min, max sql.NullFloat64
	)
	if err := f.db.QueryRowContext(ctx, q).Scan(&sp.Count, &min, &max); err != nil {
		return Span{}, fmt.Errorf("read %s from %s: %w", ts, f.path, err)
	}
	sp.Min, sp.Max = min.Float64, max.Float64
	return sp, nil
}

// CreateRunFile writes records into a fresh run file at path, replacing any existing file.
func CreateRunFile(ctx context.Context, path string, schema Schema, records []Record) (err error) {
	if err := schema.Validate(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer func() {
		if cerr := db.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	db.SetMaxOpenConns(1)
	ddl := fmt.Sprintf(`CREATE TABLE %s (%s REAL, %s REAL)`, schema.Table, schema.ChannelField, schema.TimestampField)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	ins := fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES (?, ?)`, schema.Table, schema.ChannelField, schema.TimestampField)
	stmt, err := tx.PrepareContext(ctx, ins)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Channel, r.Timestamp); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("insert: %w", err)
		}
	}
	_ = stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
