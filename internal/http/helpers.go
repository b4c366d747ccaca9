package http

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// formatSummaryAmount renders a summary amount with two decimals; zero is "0".
func formatSummaryAmount(d decimal.Decimal) string {
	if d.IsZero() {
		return "0"
	}
	return core.FormatAmount(d)
}

// formatBreakdownLine renders e.g. "Bills: $20.00 from 1 entries".
func formatBreakdownLine(label string, stat core.CategoryStat) string {
	return fmt.Sprintf("%s: $%s from %d entries", label, core.FormatAmount(stat.Total), stat.Count)
}

// categoryLabel is the display name of a category.
func categoryLabel(c core.Category) string {
	s := string(c)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
