// Package core provides amount parsing and formatting utilities.
//
// Form fields are free text. Parsing never fails: the longest leading number
// is taken and anything unreadable counts as zero.
package core

import (
	"math"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var leadingNumber = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d+)?|\.\d+)(?:[eE][+-]?\d+)?`)

// Amounts keep at most sigDigits significant digits. Magnitudes outside the
// float64 range read as zero.
const (
	sigDigits    = 34
	maxMagnitude = 309
	minMagnitude = -323
)

// ParseAmount reads a decimal amount from free text.
//
// Leading and trailing space is ignored and only the leading numeric part is
// used, so "12abc" reads as 12. Empty or non-numeric text reads as zero.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount(" -5 ")   -> -5
//	ParseAmount("1e2")    -> 100
//	ParseAmount("1e999")  -> 0
//	ParseAmount("abc")    -> 0
//	ParseAmount("")       -> 0
func ParseAmount(s string) decimal.Decimal {
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return decimal.Zero
	}
	sign := ""
	if m[0] == '+' || m[0] == '-' {
		if m[0] == '-' {
			sign = "-"
		}
		m = m[1:]
	}
	if strings.HasPrefix(m, ".") {
		m = "0" + m
	}
	d, err := decimal.NewFromString(sign + m)
	if err != nil {
		return decimal.Zero
	}
	if d.IsZero() {
		return decimal.Zero
	}
	digits := int64(len(new(big.Int).Abs(d.Coefficient()).String()))
	mag := int64(d.Exponent()) + digits
	switch {
	case mag > maxMagnitude:
		return decimal.Zero
	case mag == maxMagnitude && math.IsInf(d.InexactFloat64(), 0):
		return decimal.Zero
	case mag < minMagnitude:
		return decimal.Zero
	}
	if digits > sigDigits {
		d = d.Round(int32(sigDigits - mag))
	}
	return d
}

// FormatAmount renders an amount with two decimals, e.g. "15.50".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
