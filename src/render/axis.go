package render

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	chart "github.com/wcharczuk/go-chart/v2"
)

// ChartDimensions applies the width/height clamp rules used for charts. A non-positive height is
// derived from the width (~3:1).
func ChartDimensions(rawW, rawH int) (int, int) {
	w := rawW
	if w < 800 {
		w = 800
	}
	h := rawH
	if h <= 0 {
		h = int(float32(w) * 0.33)
	}
	if h < 280 {
		h = 280
	}
	if h > 1200 {
		h = 1200
	}
	return w, h
}

// niceStep picks a 1/2/2.5/5 x 10^k step that splits span into roughly n intervals.
func niceStep(span float64, n int) float64 {
	raw := span / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, c := range []float64{1, 2, 2.5, 5} {
		if raw <= c*mag {
			return c * mag
		}
	}
	return 10 * mag
}

// niceAxisBounds pads [min,max] by 5% per side and snaps both ends outward to a multiple of the
// tick step, so the data never touches the frame.
func niceAxisBounds(min, max float64) (float64, float64) {
	if math.IsNaN(min) || math.IsNaN(max) {
		return min, max
	}
	if max <= min {
		max = min + 1
	}
	pad := (max - min) * 0.05
	lo, hi := min-pad, max+pad
	step := niceStep(hi-lo, 5)
	if step <= 0 || math.IsInf(step, 0) || math.IsNaN(step) {
		return lo, hi
	}
	return math.Floor(lo/step) * step, math.Ceil(hi/step) * step
}

// niceTicks returns ticks at a nice step inside [min, max], aiming for about n of them.
func niceTicks(min, max float64, n int) []chart.Tick {
	if n < 2 || math.IsNaN(min) || math.IsNaN(max) {
		return nil
	}
	if max <= min {
		max = min + 1
	}
	step := niceStep(max-min, n-1)
	eps := step * 1e-9
	ticks := []chart.Tick{}
	for i := math.Ceil(min/step - 1e-9); i*step <= max+eps; i++ {
		v := i * step
		if math.Abs(v) < eps {
			v = 0
		}
		ticks = append(ticks, chart.Tick{Value: v, Label: formatTick(v)})
	}
	return ticks
}

func formatTick(v float64) string {
	if v == 0 {
		return "0"
	}
	av := math.Abs(v)
	switch {
	case av >= 100:
		return fmt.Sprintf("%.0f", v)
	case av >= 10:
		return fmt.Sprintf("%.1f", v)
	case av >= 0.01:
		return fmt.Sprintf("%.2f", v)
	default:
		return fmt.Sprintf("%.1e", v)
	}
}

// logBounds returns whole-decade bounds (in log10 units) covering [min, max] (both > 0).
func logBounds(min, max float64) (float64, float64) {
	lo := math.Floor(math.Log10(min))
	hi := math.Ceil(math.Log10(max))
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

// logTicks places ticks at each decade of [lo, hi] (log10 units), labeled in linear units. Spans
// of one or two decades also get 2x and 5x ticks.
func logTicks(lo, hi float64) []chart.Tick {
	ticks := []chart.Tick{}
	minor := hi-lo <= 2
	for k := lo; k <= hi; k++ {
		ticks = append(ticks, chart.Tick{Value: k, Label: humanize.FtoaWithDigits(math.Pow(10, k), 3)})
		if minor && k < hi {
			for _, m := range []float64{2, 5} {
				v := k + math.Log10(m)
				ticks = append(ticks, chart.Tick{Value: v, Label: humanize.FtoaWithDigits(math.Pow(10, v), 3)})
			}
		}
	}
	return ticks
}

// maxDateTicks bounds the number of intervals on a date axis.
const maxDateTicks = 20

// dateSteps are the preferred tick steps in days; spans beyond them use whole years.
var dateSteps = []int{1, 2, 7, 14, 30, 60, 90, 180, 365}

// pickDateStep returns the smallest whole-day step from dateSteps (or a multiple of 365 days)
// that splits span into at most maxDateTicks intervals.
func pickDateStep(span time.Duration) time.Duration {
	const day = 24 * time.Hour
	need := int(math.Ceil(span.Hours() / 24 / maxDateTicks))
	for _, d := range dateSteps {
		if d >= need {
			return time.Duration(d) * day
		}
	}
	years := (need + 364) / 365
	return time.Duration(years*365) * day
}

// makeNiceTimeTicks returns ticks from the step boundary at or before minT through the first
// boundary at or after maxT, labeled with labelFmt in UTC. The last tick never precedes maxT.
func makeNiceTimeTicks(minT, maxT time.Time, step time.Duration, labelFmt string) []chart.Tick {
	st := int64(step / time.Second)
	if st <= 0 {
		return nil
	}
	s := minT.UTC().Unix()
	aligned := time.Unix(s-((s%st)+st)%st, 0).UTC()
	ticks := []chart.Tick{}
	for t := aligned; ; t = t.Add(step) {
		ticks = append(ticks, chart.Tick{Value: float64(chart.TimeToFloat64(t)), Label: t.Format(labelFmt)})
		if !t.Before(maxT) {
			break
		}
	}
	return ticks
}
