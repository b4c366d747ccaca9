package core

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income Category = "income"
	Bills  Category = "bills"
	Food   Category = "food"
	Other  Category = "other"
)

type (
	Category string

	// Clock returns the current instant. Production code uses time.Now.
	Clock func() time.Time

	// CategoryTotals are the running lifetime totals per category.
	CategoryTotals struct {
		Income decimal.Decimal
		Bills  decimal.Decimal
		Food   decimal.Decimal
		Other  decimal.Decimal
	}

	// EntryInput is a raw form submission; every field is free text.
	EntryInput struct {
		Income string
		Bills  string
		Food   string
		Other  string
	}

	// MonthlySummary is the snapshot recorded for a month. Build it with
	// NewMonthlySummary so TotalExpenses and Savings stay derived.
	MonthlySummary struct {
		Income        decimal.Decimal
		Bills         decimal.Decimal
		Food          decimal.Decimal
		Other         decimal.Decimal
		TotalExpenses decimal.Decimal
		Savings       decimal.Decimal
		Date          string // MM/dd/yyyy
	}
)

var (
	ErrUnknownMonth    = errors.New("unknown month")
	ErrInvalidMonthKey = errors.New("invalid month key")
)

// ExpenseCategories lists the categories that count towards expenses.
func ExpenseCategories() []Category {
	return []Category{Bills, Food, Other}
}

// ZeroTotals returns totals with every category at zero.
func ZeroTotals() CategoryTotals {
	return CategoryTotals{
		Income: decimal.Zero,
		Bills:  decimal.Zero,
		Food:   decimal.Zero,
		Other:  decimal.Zero,
	}
}

// Add returns t plus o, category by category.
func (t CategoryTotals) Add(o CategoryTotals) CategoryTotals {
	return CategoryTotals{
		Income: t.Income.Add(o.Income),
		Bills:  t.Bills.Add(o.Bills),
		Food:   t.Food.Add(o.Food),
		Other:  t.Other.Add(o.Other),
	}
}

// Equal reports whether both totals hold the same values.
func (t CategoryTotals) Equal(o CategoryTotals) bool {
	return t.Income.Equal(o.Income) &&
		t.Bills.Equal(o.Bills) &&
		t.Food.Equal(o.Food) &&
		t.Other.Equal(o.Other)
}

// Get returns the total of a single category. Unknown categories are zero.
func (t CategoryTotals) Get(c Category) decimal.Decimal {
	switch c {
	case Income:
		return t.Income
	case Bills:
		return t.Bills
	case Food:
		return t.Food
	case Other:
		return t.Other
	default:
		return decimal.Zero
	}
}

// Expenses returns bills + food + other.
func (t CategoryTotals) Expenses() decimal.Decimal {
	sum := decimal.Zero
	for _, c := range ExpenseCategories() {
		sum = sum.Add(t.Get(c))
	}
	return sum
}

// Parse converts a raw submission into per-category contributions.
// Malformed fields contribute zero.
func (in EntryInput) Parse() CategoryTotals {
	return CategoryTotals{
		Income: ParseAmount(in.Income),
		Bills:  ParseAmount(in.Bills),
		Food:   ParseAmount(in.Food),
		Other:  ParseAmount(in.Other),
	}
}

// NewMonthlySummary derives a summary from cumulative totals.
func NewMonthlySummary(t CategoryTotals, date string) MonthlySummary {
	expenses := t.Expenses()
	return MonthlySummary{
		Income:        t.Income,
		Bills:         t.Bills,
		Food:          t.Food,
		Other:         t.Other,
		TotalExpenses: expenses,
		Savings:       t.Income.Sub(expenses),
		Date:          date,
	}
}

// Totals returns the category values the summary was built from.
func (s MonthlySummary) Totals() CategoryTotals {
	return CategoryTotals{Income: s.Income, Bills: s.Bills, Food: s.Food, Other: s.Other}
}

type totalsJSON struct {
	Income decimal.Decimal `json:"income"`
	Bills  decimal.Decimal `json:"bills"`
	Food   decimal.Decimal `json:"food"`
	Other  decimal.Decimal `json:"other"`
}

type totalsWire struct {
	Income json.Number `json:"income"`
	Bills  json.Number `json:"bills"`
	Food   json.Number `json:"food"`
	Other  json.Number `json:"other"`
}

type summaryJSON struct {
	Income decimal.Decimal `json:"income"`
	Bills  decimal.Decimal `json:"bills"`
	Food   decimal.Decimal `json:"food"`
	Other  decimal.Decimal `json:"other"`
	Date   string          `json:"date"`
}

type summaryWire struct {
	Income        json.Number `json:"income"`
	Bills         json.Number `json:"bills"`
	Food          json.Number `json:"food"`
	Other         json.Number `json:"other"`
	TotalExpenses json.Number `json:"totalExpenses"`
	Savings       json.Number `json:"savings"`
	Date          string      `json:"date"`
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// MarshalJSON writes amounts as bare JSON numbers.
func (t CategoryTotals) MarshalJSON() ([]byte, error) {
	return json.Marshal(totalsWire{
		Income: number(t.Income),
		Bills:  number(t.Bills),
		Food:   number(t.Food),
		Other:  number(t.Other),
	})
}

func (t *CategoryTotals) UnmarshalJSON(data []byte) error {
	var raw totalsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = CategoryTotals(raw)
	return nil
}

func (s MonthlySummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(summaryWire{
		Income:        number(s.Income),
		Bills:         number(s.Bills),
		Food:          number(s.Food),
		Other:         number(s.Other),
		TotalExpenses: number(s.TotalExpenses),
		Savings:       number(s.Savings),
		Date:          s.Date,
	})
}

// UnmarshalJSON ignores stored totalExpenses and savings and derives them again.
func (s *MonthlySummary) UnmarshalJSON(data []byte) error {
	var raw summaryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	totals := CategoryTotals{Income: raw.Income, Bills: raw.Bills, Food: raw.Food, Other: raw.Other}
	*s = NewMonthlySummary(totals, raw.Date)
	return nil
}
