package core

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"1", "1"},
		{"1.0", "1"},
		{"1.23", "1.23"},
		{" 2.50 ", "2.5"},
		{"5.5", "5.5"},
		{"-1", "-1"},
		{"+4", "4"},
		{".5", "0.5"},
		{"-.25", "-0.25"},
		{"1e2", "100"},
		{"12abc", "12"},
		{"1,23", "1"},
		{"0.1", "0.1"},
		{"abc", "0"},
		{"", "0"},
		{"   ", "0"},
		{"-", "0"},
		{".", "0"},
		{"1e999", "0"},
		{"1e65", "1e65"},
		{"0.1e-64", "1e-65"},
		{"1e308", "1e308"},
		{"1e309", "0"},
		{"1e-400", "0"},
		{"3.14159265358979323846264338327950288419716939937510", "3.141592653589793238462643383279503"},
		{strings.Repeat("9", 400), "0"},
	}
	for _, tc := range cases {
		got := ParseAmount(tc.in)
		want := decimal.RequireFromString(tc.out)
		if !got.Equal(want) {
			t.Fatalf("%q expected %s, got %s", tc.in, want, got)
		}
	}
}

func TestParseAmountSumsExactly(t *testing.T) {
	sum := ParseAmount("0.1").Add(ParseAmount("0.2"))
	if !sum.Equal(decimal.RequireFromString("0.3")) {
		t.Fatalf("expected 0.3, got %s", sum)
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[string]string{
		"0":     "0.00",
		"15.5":  "15.50",
		"-15.5": "-15.50",
		"1.005": "1.01",
	}
	for in, want := range cases {
		if got := FormatAmount(decimal.RequireFromString(in)); got != want {
			t.Fatalf("%s expected %q, got %q", in, want, got)
		}
	}
}
