package http

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// Chart geometry in SVG user units.
const (
	chartWidth   = 600
	chartHeight  = 300
	chartPadLeft = 60
	chartPadTop  = 20
	chartPadEnd  = 20
	chartPadBase = 40
	chartYTicks  = 4

	legendSpacing = 130
)

// chartSeries is one line of the summary chart.
type chartSeries struct {
	Name    string
	Color   string
	Points  string // polyline "x,y x,y"
	Dots    []chartPoint
	LegendX float64
}

type chartPoint struct {
	X, Y  float64
	Value string
}

type chartTick struct {
	Pos   float64
	Label string
}

// chartModel is everything the chart template needs to draw the SVG.
type chartModel struct {
	Width, Height int
	Left, Top     float64
	Right, Bottom float64
	LegendY       float64
	Series        []chartSeries
	XTicks        []chartTick
	YTicks        []chartTick
}

var seriesDefs = []struct {
	name  string
	color string
	value func(core.MonthlySummary) decimal.Decimal
}{
	{"income", "#8884d8", func(s core.MonthlySummary) decimal.Decimal { return s.Income }},
	{"totalExpenses", "#82ca9d", func(s core.MonthlySummary) decimal.Decimal { return s.TotalExpenses }},
	{"savings", "#ffc658", func(s core.MonthlySummary) decimal.Decimal { return s.Savings }},
}

// buildChart lays out income, totalExpenses and savings for summaries, one
// x position per summary labelled with its day.
func buildChart(summaries []core.MonthlySummary) chartModel {
	m := chartModel{
		Width:   chartWidth,
		Height:  chartHeight,
		Left:    chartPadLeft,
		Top:     chartPadTop,
		Right:   chartWidth - chartPadEnd,
		Bottom:  chartHeight - chartPadBase,
		LegendY: chartHeight - 14,
	}

	lo, hi := 0.0, 0.0
	for _, s := range summaries {
		for _, def := range seriesDefs {
			v := plotValue(def.value(s))
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	lo, hi, step := niceRange(lo, hi)

	y := func(v float64) float64 {
		return round2(m.Bottom - (v-lo)/(hi-lo)*(m.Bottom-m.Top))
	}
	x := func(i int) float64 {
		if len(summaries) == 1 {
			return round2((m.Left + m.Right) / 2)
		}
		return round2(m.Left + float64(i)*(m.Right-m.Left)/float64(len(summaries)-1))
	}

	for i, v := 0, lo; i <= 2*chartYTicks && v <= hi+step/2; i, v = i+1, v+step {
		m.YTicks = append(m.YTicks, chartTick{Pos: y(v), Label: strconv.FormatFloat(round2(v), 'f', -1, 64)})
	}
	for i, s := range summaries {
		m.XTicks = append(m.XTicks, chartTick{Pos: x(i), Label: core.DisplayDay(s.Date)})
	}

	for n, def := range seriesDefs {
		series := chartSeries{Name: def.name, Color: def.color, LegendX: m.Left + float64(n)*legendSpacing}
		for i, s := range summaries {
			v := def.value(s)
			p := chartPoint{X: x(i), Y: y(plotValue(v)), Value: formatSummaryAmount(v)}
			series.Dots = append(series.Dots, p)
			if series.Points != "" {
				series.Points += " "
			}
			series.Points += strconv.FormatFloat(p.X, 'f', -1, 64) + "," + strconv.FormatFloat(p.Y, 'f', -1, 64)
		}
		m.Series = append(m.Series, series)
	}
	return m
}

// plotLimit keeps chart coordinates finite after scaling by 100 in round2.
const plotLimit = 1e300

// plotValue converts an amount to a chart coordinate clamped to ±plotLimit.
func plotValue(d decimal.Decimal) float64 {
	v := d.InexactFloat64()
	switch {
	case math.IsNaN(v):
		return 0
	case v > plotLimit:
		return plotLimit
	case v < -plotLimit:
		return -plotLimit
	}
	return v
}

// niceRange widens [lo, hi] to multiples of a 1, 2 or 5 step.
// Non-finite bounds fall back to [0, 1].
func niceRange(lo, hi float64) (float64, float64, float64) {
	if math.IsNaN(lo) || math.IsInf(lo, 0) {
		lo = 0
	}
	if math.IsNaN(hi) || math.IsInf(hi, 0) || hi < lo {
		hi = lo
	}
	if hi-lo <= 0 {
		hi = lo + 1
	}
	raw := (hi - lo) / chartYTicks
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	step := 10 * mag
	for _, f := range []float64{1, 2, 5} {
		if raw <= f*mag {
			step = f * mag
			break
		}
	}
	return math.Floor(lo/step) * step, math.Ceil(hi/step) * step, step
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
