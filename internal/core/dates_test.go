package core

import (
	"testing"
	"time"
)

func TestMonthKeyAndDayStamp(t *testing.T) {
	at := time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC)
	if got := MonthKeyOf(at); got != "02/2024" {
		t.Fatalf("month key: got %q", got)
	}
	if got := DayStamp(at); got != "02/29/2024" {
		t.Fatalf("day stamp: got %q", got)
	}
}

func TestDisplayMonth(t *testing.T) {
	cases := map[string]string{
		"07/2024": "July 2024",
		"01/1999": "January 1999",
		"13/2024": InvalidDate,
		"00/2024": InvalidDate,
		"7/2024":  "July 2024",
		"7/24":    InvalidDate,
		"":        InvalidDate,
		"next":    InvalidDate,
	}
	for in, want := range cases {
		if got := DisplayMonth(in); got != want {
			t.Fatalf("DisplayMonth(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplayDay(t *testing.T) {
	cases := map[string]string{
		"07/15/2024": "07/15/2024",
		"7/5/2024":   "07/05/2024",
		"02/30/2024": InvalidDate,
		"2024-07-15": InvalidDate,
		"":           InvalidDate,
	}
	for in, want := range cases {
		if got := DisplayDay(in); got != want {
			t.Fatalf("DisplayDay(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseMonthKey(t *testing.T) {
	got, ok := ParseMonthKey("11/2023")
	if !ok || !got.Equal(time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected parse %v %v", got, ok)
	}
	if _, ok := ParseMonthKey("11-2023"); ok {
		t.Fatalf("expected failure")
	}
}
