package http

import (
	"ledger/internal/core"
	"ledger/internal/services"
)

const pageTitle = "Income and Expense Tracker"

type monthItem struct {
	Key      string
	Label    string
	Selected bool
}

type summaryRow struct {
	Date          string
	Income        string
	TotalExpenses string
	Savings       string
}

// notice is an inline message rendered above the ledger.
type notice struct {
	Kind    NotificationType
	Message string
}

// pageData feeds both index.html and the ledger partial.
type pageData struct {
	Title         string
	Months        []monthItem
	HasSelection  bool
	Selected      string
	SelectedLabel string
	Summaries     []summaryRow
	Breakdown     []string
	ChartTitle    string
	Chart         chartModel
	Notice        *notice
}

func newPageData(v services.LedgerView) pageData {
	d := pageData{
		Title:         pageTitle,
		HasSelection:  v.HasSelection(),
		Selected:      v.Selected,
		SelectedLabel: v.SelectedLabel,
		ChartTitle:    "Summary Chart for " + v.SelectedLabel,
		Chart:         buildChart(v.Summaries),
	}

	for _, m := range v.Months {
		d.Months = append(d.Months, monthItem{Key: m.Key, Label: m.Label, Selected: m.Key == v.Selected})
	}
	if !d.HasSelection {
		return d
	}
	for _, s := range v.Summaries {
		d.Summaries = append(d.Summaries, summaryRow{
			Date:          core.DisplayDay(s.Date),
			Income:        formatSummaryAmount(s.Income),
			TotalExpenses: formatSummaryAmount(s.TotalExpenses),
			Savings:       formatSummaryAmount(s.Savings),
		})
	}
	for _, c := range core.ExpenseCategories() {
		d.Breakdown = append(d.Breakdown, formatBreakdownLine(categoryLabel(c), v.Breakdown.Get(c)))
	}
	return d
}
