package render

import (
	"math"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/kevinlinxc/radonAnalysis/src/diag"
)

const (
	labelFontSize   = 8.0
	labelAngle      = math.Pi / 4
	labelOffsetFrac = 0.01 // label anchor below the axis minimum, as a fraction of the y span
	tickFrac        = 0.03 // tick mark height, as a fraction of the y span
	labelCharWidth  = 5.0  // rough glyph advance at labelFontSize, for padding only
)

// Layout describes the axes of a built chart. For the indexed variant Ticks holds one entry per
// point in input order; for the time variant it holds the date ticks.
type Layout struct {
	Points   int
	XRange   chart.ContinuousRange
	YRange   chart.ContinuousRange
	Ticks    []chart.Tick
	YTicks   []chart.Tick
	Skipped  int   // values a log axis cannot show
	Mismatch error // non-nil when the inputs had different lengths
}

// Indexed builds the indexed-axis chart: point i sits at x=i and carries labels[i] verbatim, so
// the x order is always the input order.
func Indexed(conc []float64, labels []string, opts Options) (chart.Chart, Layout, error) {
	n, mismatch := commonLength(len(conc), len(labels))
	lay := Layout{Points: n, Mismatch: mismatch}
	if n == 0 {
		return chart.Chart{}, lay, diag.ErrEmptySeries
	}
	xs := make([]float64, n)
	ys := make([]float64, n)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for i := 0; i < n; i++ {
		xs[i] = float64(i)
		ys[i] = conc[i]
		if math.IsNaN(ys[i]) || math.IsInf(ys[i], 0) {
			continue
		}
		minY = math.Min(minY, ys[i])
		maxY = math.Max(maxY, ys[i])
	}
	if math.IsInf(minY, 1) {
		return chart.Chart{}, lay, diag.ErrEmptySeries
	}
	yMin, yMax := niceAxisBounds(minY, maxY)
	lay.XRange = chart.ContinuousRange{Min: -0.5, Max: float64(n) - 0.5}
	lay.YRange = chart.ContinuousRange{Min: yMin, Max: yMax}
	lay.Ticks = indexedTicks(labels[:n])
	lay.YTicks = niceTicks(yMin, yMax, 6)

	w, h := ChartDimensions(opts.Width, opts.Height)
	xr, yr := lay.XRange, lay.YRange
	ch := chart.Chart{
		Title:  opts.Title,
		Width:  w,
		Height: h,
		Background: chart.Style{Padding: chart.Box{
			Top: 30, Left: 20, Right: 20, Bottom: labelPadding(labels[:n]),
		}},
		XAxis: chart.XAxis{Style: chart.Style{Hidden: true}, Range: &xr},
		YAxis: chart.YAxis{Name: opts.YName, Range: &yr, Ticks: lay.YTicks},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: "concentration", XValues: xs, YValues: ys, Style: lineStyle()},
		},
		Elements: []chart.Renderable{dateLabels(lay, ys)},
	}
	return ch, lay, nil
}

func indexedTicks(labels []string) []chart.Tick {
	ticks := make([]chart.Tick, len(labels))
	for i, l := range labels {
		ticks[i] = chart.Tick{Value: float64(i), Label: l}
	}
	return ticks
}

// labelPadding leaves room under the plot for the longest rotated label.
func labelPadding(labels []string) int {
	longest := 0
	for _, l := range labels {
		if len(l) > longest {
			longest = len(l)
		}
	}
	pad := 24 + int(float64(longest)*labelCharWidth*math.Sin(labelAngle))
	if pad > 200 {
		pad = 200
	}
	return pad
}

// dateLabels draws, for each point, a dotted guide from the axis minimum up to the point, a short
// tick, and the label rotated 45 degrees with its right end just below the tick.
func dateLabels(lay Layout, ys []float64) chart.Renderable {
	return func(r chart.Renderer, cb chart.Box, defaults chart.Style) {
		xspan := lay.XRange.Max - lay.XRange.Min
		dy := lay.YRange.Max - lay.YRange.Min
		if xspan <= 0 || dy <= 0 {
			return
		}
		px := func(x float64) int {
			return cb.Left + int(math.Round((x-lay.XRange.Min)/xspan*float64(cb.Width())))
		}
		py := func(y float64) int {
			return cb.Bottom - int(math.Round((y-lay.YRange.Min)/dy*float64(cb.Height())))
		}
		font := defaults.Font
		if font == nil {
			font, _ = chart.GetDefaultFont()
		}
		base := lay.YRange.Min
		for i, tk := range lay.Ticks {
			x := px(tk.Value)
			if i < len(ys) && !math.IsNaN(ys[i]) && !math.IsInf(ys[i], 0) {
				r.SetStrokeColor(gridColor)
				r.SetStrokeWidth(1)
				r.SetStrokeDashArray([]float64{2, 3})
				r.MoveTo(x, py(base))
				r.LineTo(x, py(ys[i]))
				r.Stroke()
			}
			r.SetStrokeDashArray(nil)
			r.SetStrokeColor(chart.ColorBlack)
			r.SetStrokeWidth(1)
			r.MoveTo(x, py(base))
			r.LineTo(x, py(base+tickFrac*dy))
			r.Stroke()

			if tk.Label == "" || font == nil {
				continue
			}
			r.SetFont(font)
			r.SetFontSize(labelFontSize)
			r.SetFontColor(chart.ColorBlack)
			tb := r.MeasureText(tk.Label)
			tw, th := float64(tb.Width()), float64(tb.Height())
			ax, ay := float64(x), float64(py(base-labelOffsetFrac*dy))
			sin, cos := math.Sincos(labelAngle)
			// Start so the text ends at the anchor, shifted half a line down to center it.
			sx := ax - tw*cos + th/2*sin
			sy := ay + tw*sin + th/2*cos
			r.SetTextRotation(-labelAngle)
			r.Text(tk.Label, int(math.Round(sx)), int(math.Round(sy)))
			r.ClearTextRotation()
		}
	}
}
