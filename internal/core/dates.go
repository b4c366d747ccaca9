package core

import "time"

const (
	// MonthKeyLayout is the canonical month identifier, e.g. "07/2024".
	MonthKeyLayout = "01/2006"
	// DayLayout stamps summaries, e.g. "07/15/2024".
	DayLayout = "01/02/2006"
	// MonthLabelLayout is the human readable month, e.g. "July 2024".
	MonthLabelLayout = "January 2006"
	// ShortDateLayout is the en-US short date shown for a day.
	ShortDateLayout = "01/02/2006"

	InvalidDate = "Invalid Date"

	// Parsing also accepts one-digit months and days, e.g. "7/2024".
	monthKeyParseLayout = "1/2006"
	dayParseLayout      = "1/2/2006"
)

// MonthKeyOf returns the key of the month containing t.
func MonthKeyOf(t time.Time) string {
	return StartOfMonth(t).Format(MonthKeyLayout)
}

// DayStamp returns the calendar day of t as MM/dd/yyyy.
func DayStamp(t time.Time) string {
	return t.Format(DayLayout)
}

// StartOfMonth returns midnight of the first day of t's month in t's location.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// ParseMonthKey parses a M/yyyy or MM/yyyy key into the first day of that
// month (UTC).
func ParseMonthKey(key string) (time.Time, bool) {
	t, err := time.Parse(monthKeyParseLayout, key)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseDay parses a MM/dd/yyyy stamp. One-digit fields are accepted.
func ParseDay(s string) (time.Time, bool) {
	t, err := time.Parse(dayParseLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DisplayMonth renders a month key as "July 2024", or InvalidDate.
func DisplayMonth(key string) string {
	t, ok := ParseMonthKey(key)
	if !ok {
		return InvalidDate
	}
	return t.Format(MonthLabelLayout)
}

// DisplayDay renders a MM/dd/yyyy stamp as a short date, or InvalidDate.
func DisplayDay(s string) string {
	t, ok := ParseDay(s)
	if !ok {
		return InvalidDate
	}
	return t.Format(ShortDateLayout)
}
