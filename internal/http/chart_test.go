package http

import (
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func summary(income, bills string, date string) core.MonthlySummary {
	return core.NewMonthlySummary(core.CategoryTotals{
		Income: decimal.RequireFromString(income),
		Bills:  decimal.RequireFromString(bills),
		Food:   decimal.Zero,
		Other:  decimal.Zero,
	}, date)
}

func TestBuildChartEmpty(t *testing.T) {
	m := buildChart(nil)

	require.Len(t, m.Series, 3)
	assert.Equal(t, []string{"income", "totalExpenses", "savings"},
		[]string{m.Series[0].Name, m.Series[1].Name, m.Series[2].Name})
	for _, s := range m.Series {
		assert.Empty(t, s.Points)
		assert.Empty(t, s.Dots)
	}
	assert.Empty(t, m.XTicks)
	assert.NotEmpty(t, m.YTicks)
}

func TestBuildChartSinglePoint(t *testing.T) {
	m := buildChart([]core.MonthlySummary{summary("100", "20", "07/15/2024")})

	require.Len(t, m.XTicks, 1)
	assert.Equal(t, "07/15/2024", m.XTicks[0].Label)
	assert.Equal(t, (m.Left+m.Right)/2, m.XTicks[0].Pos)

	income := m.Series[0]
	require.Len(t, income.Dots, 1)
	assert.Equal(t, "100.00", income.Dots[0].Value)
	// The highest value sits on the top tick.
	assert.Equal(t, m.Top, income.Dots[0].Y)
	assert.Equal(t, "80.00", m.Series[2].Dots[0].Value)
}

func TestBuildChartNegativeSavings(t *testing.T) {
	m := buildChart([]core.MonthlySummary{
		summary("10", "50", "07/01/2024"),
		summary("60", "50", "bad"),
	})

	assert.Equal(t, "Invalid Date", m.XTicks[1].Label)
	savings := m.Series[2]
	require.Len(t, savings.Dots, 2)
	assert.Greater(t, savings.Dots[0].Y, savings.Dots[1].Y, "negative savings plot lower")
	assert.Equal(t, 1, strings.Count(savings.Points, " "))

	labels := make([]string, len(m.YTicks))
	for i, tk := range m.YTicks {
		labels[i] = tk.Label
	}
	assert.Contains(t, labels, "0")
}

func TestNiceRange(t *testing.T) {
	tests := []struct {
		lo, hi             float64
		wantLo, wantHi, st float64
	}{
		{0, 0, 0, 1, 0.5},
		{0, 100, 0, 100, 50},
		{-40, 100, -50, 100, 50},
		{0, 7, 0, 8, 2},
	}
	for _, tt := range tests {
		lo, hi, step := niceRange(tt.lo, tt.hi)
		assert.InDelta(t, tt.wantLo, lo, 1e-9)
		assert.InDelta(t, tt.wantHi, hi, 1e-9)
		assert.InDelta(t, tt.st, step, 1e-9)
	}
}

func TestBuildChartHugeValuesStayFinite(t *testing.T) {
	m := buildChart([]core.MonthlySummary{
		summary("5e308", "1", "07/01/2024"),
		summary("1", "5e308", "07/02/2024"),
	})

	require.NotEmpty(t, m.YTicks)
	assert.LessOrEqual(t, len(m.YTicks), 2*chartYTicks+1)
	for _, tk := range m.YTicks {
		assert.False(t, math.IsNaN(tk.Pos) || math.IsInf(tk.Pos, 0), "tick %q at %v", tk.Label, tk.Pos)
	}
	for _, s := range m.Series {
		assert.NotContains(t, s.Points, "NaN")
		assert.NotContains(t, s.Points, "Inf")
		for _, d := range s.Dots {
			assert.GreaterOrEqual(t, d.Y, m.Top)
			assert.LessOrEqual(t, d.Y, m.Bottom)
		}
	}
}

func TestNiceRangeNonFinite(t *testing.T) {
	for _, in := range [][2]float64{
		{math.NaN(), 10},
		{0, math.Inf(1)},
		{math.Inf(-1), math.Inf(1)},
	} {
		lo, hi, step := niceRange(in[0], in[1])
		for _, v := range []float64{lo, hi, step} {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "niceRange(%v, %v) = %v, %v, %v", in[0], in[1], lo, hi, step)
		}
		assert.Greater(t, step, 0.0)
	}
}
