// Package render draws the concentration series as a chart and writes it to disk.
package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/kevinlinxc/radonAnalysis/src/datekey"
	"github.com/kevinlinxc/radonAnalysis/src/diag"
	"github.com/kevinlinxc/radonAnalysis/src/monitor"
)

// Options controls chart appearance.
type Options struct {
	Width      int
	Height     int
	Title      string
	XName      string
	YName      string
	TimeFormat string    // layout for date tick labels on the time axis
	Origin     time.Time // epoch for numeric keys
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Width:      1400,
		Height:     500,
		Title:      "Radon concentration",
		XName:      "Date (dd/mm/yy)",
		YName:      "Concentration (counts/hour)",
		TimeFormat: datekey.DefaultTimeFormat,
		Origin:     time.Unix(0, 0).UTC(),
	}
}

var (
	seriesColor = drawing.ColorFromHex("1f77b4")
	gridColor   = drawing.ColorFromHex("b0b0b0")
)

// commonLength returns the number of points both inputs can supply. Differing lengths are
// reported and the common prefix is used.
func commonLength(ys, xs int) (int, error) {
	if ys == xs {
		return ys, nil
	}
	n := ys
	if xs < n {
		n = xs
	}
	err := fmt.Errorf("%w: %d concentrations, %d date keys", diag.ErrLengthMismatch, ys, xs)
	monitor.Warnf("%v; plotting the first %d", err, n)
	return n, err
}

func lineStyle() chart.Style {
	return chart.Style{
		StrokeColor: seriesColor,
		StrokeWidth: 1.5,
		DotColor:    seriesColor,
		DotWidth:    3,
	}
}

// Render draws the variant matching kind and writes it to path. Label keys use an indexed
// x axis with per-point date labels; epoch keys use a true time axis with a log y axis. A length
// mismatch is returned after the chart has been written.
func Render(path string, kind datekey.Kind, conc []float64, labels []string, seconds []float64, opts Options) error {
	var (
		ch  chart.Chart
		lay Layout
		err error
	)
	switch kind {
	case datekey.KindEpoch:
		ch, lay, err = TimeAxis(conc, seconds, opts)
	default:
		ch, lay, err = Indexed(conc, labels, opts)
	}
	if err != nil {
		return err
	}
	if err := WriteFile(path, ch); err != nil {
		return err
	}
	return lay.Mismatch
}

// WriteFile renders ch and atomically replaces path. The format follows the extension (.svg or
// .png); nothing is written when rendering fails.
func WriteFile(path string, ch chart.Chart) error {
	var rp chart.RendererProvider
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		rp = chart.SVG
	case ".png":
		rp = chart.PNG
	default:
		return fmt.Errorf("unsupported chart format %q (want .svg or .png)", filepath.Ext(path))
	}
	defer monitor.TimeTrack(time.Now(), "render "+filepath.Base(path))
	var buf bytes.Buffer
	if err := ch.Render(rp, &buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".chart-*"+filepath.Ext(path))
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	monitor.Infof("Wrote chart %s (%s)", path, humanize.Bytes(uint64(buf.Len())))
	return nil
}
