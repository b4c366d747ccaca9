package core

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SummaryStore maps a month key to the summaries recorded for it.
// Each month holds at most one summary: a new one replaces the old.
type SummaryStore map[string][]MonthlySummary

// CategoryStat aggregates one category over a month's summaries.
type CategoryStat struct {
	Total decimal.Decimal
	Count int // summaries with a strictly positive value
}

// Breakdown is the per-category view of a month.
type Breakdown struct {
	Bills CategoryStat `json:"bills"`
	Food  CategoryStat `json:"food"`
	Other CategoryStat `json:"other"`
}

func (c CategoryStat) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Total json.Number `json:"total"`
		Count int         `json:"count"`
	}{Total: number(c.Total), Count: c.Count})
}

// Get returns the stat of an expense category. Income and unknown categories are empty.
func (b Breakdown) Get(c Category) CategoryStat {
	switch c {
	case Bills:
		return b.Bills
	case Food:
		return b.Food
	case Other:
		return b.Other
	default:
		return CategoryStat{}
	}
}

// RecordEntry folds a submission into the running totals and returns the new
// totals together with the month's summary, stamped with now.
func RecordEntry(current CategoryTotals, in EntryInput, now time.Time) (CategoryTotals, MonthlySummary) {
	totals := current.Add(in.Parse())
	return totals, NewMonthlySummary(totals, DayStamp(now))
}

// Clone returns a copy that shares no slices with s.
func (s SummaryStore) Clone() SummaryStore {
	out := make(SummaryStore, len(s))
	for k, v := range s {
		out[k] = slices.Clone(v)
	}
	return out
}

// UpsertMonth returns a copy of store where monthKey holds only summary.
// Previous summaries of that month are discarded.
func UpsertMonth(store SummaryStore, monthKey string, summary MonthlySummary) SummaryStore {
	out := store.Clone()
	out[monthKey] = []MonthlySummary{summary}
	return out
}

// ListMonths returns the store's month keys in chronological order.
// Keys that do not parse as MM/yyyy come last.
func ListMonths(store SummaryStore) []string {
	ordered, _ := SortMonthKeys(slices.Collect(maps.Keys(store)))
	return ordered
}

// SortMonthKeys orders keys chronologically. Unparseable keys follow the valid
// ones in lexical order and are also returned in invalid.
func SortMonthKeys(keys []string) (ordered []string, invalid []string) {
	type parsed struct {
		key string
		at  time.Time
		ok  bool
	}
	items := make([]parsed, 0, len(keys))
	for _, k := range keys {
		at, ok := ParseMonthKey(k)
		items = append(items, parsed{key: k, at: at, ok: ok})
		if !ok {
			invalid = append(invalid, k)
		}
	}
	slices.SortFunc(items, func(a, b parsed) int {
		switch {
		case a.ok && b.ok:
			if c := a.at.Compare(b.at); c != 0 {
				return c
			}
			return strings.Compare(a.key, b.key)
		case a.ok:
			return -1
		case b.ok:
			return 1
		default:
			return strings.Compare(a.key, b.key)
		}
	})
	ordered = make([]string, len(items))
	for i, it := range items {
		ordered[i] = it.key
	}
	slices.Sort(invalid)
	return ordered, invalid
}

// BreakdownOf sums each expense category over summaries.
func BreakdownOf(summaries []MonthlySummary) Breakdown {
	b := Breakdown{
		Bills: CategoryStat{Total: decimal.Zero},
		Food:  CategoryStat{Total: decimal.Zero},
		Other: CategoryStat{Total: decimal.Zero},
	}
	for _, s := range summaries {
		b.Bills = b.Bills.add(s.Bills)
		b.Food = b.Food.add(s.Food)
		b.Other = b.Other.add(s.Other)
	}
	return b
}

func (c CategoryStat) add(v decimal.Decimal) CategoryStat {
	c.Total = c.Total.Add(v)
	if v.IsPositive() {
		c.Count++
	}
	return c
}

// Clear returns the empty state: no months and zero totals.
func Clear() (SummaryStore, CategoryTotals) {
	return SummaryStore{}, ZeroTotals()
}
