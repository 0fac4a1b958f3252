package render

import (
	"math"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/kevinlinxc/radonAnalysis/src/diag"
	"github.com/kevinlinxc/radonAnalysis/src/monitor"
)

// TimeAxis builds the time-axis chart: x is opts.Origin plus seconds, y is logarithmic. Values
// that are not positive cannot be placed on a log axis and are skipped with a warning.
func TimeAxis(conc []float64, seconds []float64, opts Options) (chart.Chart, Layout, error) {
	n, mismatch := commonLength(len(conc), len(seconds))
	lay := Layout{Mismatch: mismatch}
	format := opts.TimeFormat
	if format == "" {
		format = DefaultOptions().TimeFormat
	}

	var (
		times []time.Time
		logs  []float64
	)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for i := 0; i < n; i++ {
		y := conc[i]
		if !(y > 0) || math.IsInf(y, 0) || math.IsNaN(seconds[i]) {
			lay.Skipped++
			continue
		}
		sec, frac := math.Modf(seconds[i])
		times = append(times, opts.Origin.Add(time.Duration(sec)*time.Second+time.Duration(frac*float64(time.Second))).UTC())
		logs = append(logs, math.Log10(y))
		minY = math.Min(minY, y)
		maxY = math.Max(maxY, y)
	}
	if lay.Skipped > 0 {
		monitor.Warnf("Skipped %d non-positive concentrations on the log axis", lay.Skipped)
	}
	lay.Points = len(times)
	if lay.Points == 0 {
		return chart.Chart{}, lay, diag.ErrEmptySeries
	}

	minT, maxT := times[0], times[0]
	for _, t := range times[1:] {
		if t.Before(minT) {
			minT = t
		}
		if t.After(maxT) {
			maxT = t
		}
	}
	lay.Ticks = makeNiceTimeTicks(minT, maxT, pickDateStep(maxT.Sub(minT)), format)
	xMin, xMax := lay.Ticks[0].Value, lay.Ticks[len(lay.Ticks)-1].Value
	if xMax <= xMin {
		// single day: widen by one step on the right
		next := time.Unix(0, int64(xMin)).Add(24 * time.Hour).UTC()
		lay.Ticks = append(lay.Ticks, chart.Tick{Value: float64(chart.TimeToFloat64(next)), Label: next.Format(format)})
		xMax = lay.Ticks[len(lay.Ticks)-1].Value
	}
	lo, hi := logBounds(minY, maxY)
	lay.XRange = chart.ContinuousRange{Min: xMin, Max: xMax}
	lay.YRange = chart.ContinuousRange{Min: lo, Max: hi}
	lay.YTicks = logTicks(lo, hi)

	// A lone point is drawn as a zero-length segment so the series has something to stroke.
	if len(times) == 1 {
		times = append(times, times[0])
		logs = append(logs, logs[0])
	}

	w, h := ChartDimensions(opts.Width, opts.Height)
	xr, yr := lay.XRange, lay.YRange
	ch := chart.Chart{
		Title:      opts.Title,
		Width:      w,
		Height:     h,
		Background: chart.Style{Padding: chart.Box{Top: 30, Left: 20, Right: 20, Bottom: 20}},
		XAxis: chart.XAxis{
			Name:      opts.XName,
			Range:     &xr,
			Ticks:     lay.Ticks,
			TickStyle: chart.Style{TextRotationDegrees: 45.0},
		},
		YAxis: chart.YAxis{Name: opts.YName, Range: &yr, Ticks: lay.YTicks},
		Series: []chart.Series{
			chart.TimeSeries{Name: "concentration", XValues: times, YValues: logs, Style: lineStyle()},
		},
	}
	return ch, lay, nil
}
