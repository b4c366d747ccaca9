package http

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/services"
)

func TestNewPageDataWithoutSelection(t *testing.T) {
	d := newPageData(services.LedgerView{
		Months: []services.MonthEntry{{Key: "06/2024", Label: "June 2024"}, {Key: "07/2024", Label: "July 2024"}},
	})

	assert.Equal(t, pageTitle, d.Title)
	assert.False(t, d.HasSelection)
	assert.Equal(t, "Summary Chart for ", d.ChartTitle)
	assert.Empty(t, d.Summaries)
	assert.Empty(t, d.Breakdown)
	require.Len(t, d.Months, 2)
	assert.False(t, d.Months[0].Selected)
}

func TestNewPageDataWithSelection(t *testing.T) {
	s := core.NewMonthlySummary(core.CategoryTotals{
		Income: decimal.RequireFromString("1500"),
		Bills:  decimal.RequireFromString("200"),
		Food:   decimal.RequireFromString("150"),
		Other:  decimal.RequireFromString("50"),
	}, "07/15/2024")
	d := newPageData(services.LedgerView{
		Months:        []services.MonthEntry{{Key: "07/2024", Label: "July 2024"}},
		Selected:      "07/2024",
		SelectedLabel: "July 2024",
		Summaries:     []core.MonthlySummary{s},
		Breakdown:     core.BreakdownOf([]core.MonthlySummary{s}),
	})

	assert.True(t, d.HasSelection)
	assert.True(t, d.Months[0].Selected)
	assert.Equal(t, "Summary Chart for July 2024", d.ChartTitle)
	require.Len(t, d.Summaries, 1)
	assert.Equal(t, summaryRow{Date: "07/15/2024", Income: "1500.00", TotalExpenses: "400.00", Savings: "1100.00"}, d.Summaries[0])
	assert.Equal(t, []string{
		"Bills: $200.00 from 1 entries",
		"Food: $150.00 from 1 entries",
		"Other: $50.00 from 1 entries",
	}, d.Breakdown)
}
