// Package money provides currency-safe helpers for the affordability
// calculations. Internals run on shopspring/decimal at full precision;
// go-money is used only at the presentation edge (EUR, 2 decimal places).
package money

import (
	"fmt"
	"regexp"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// EUR is the only currency this service deals with.
const EUR = "EUR"

// europeanNumber matches amounts like "1.234,56" or "56,00": dot as thousands
// separator, comma as decimal separator.
var europeanNumber = regexp.MustCompile(`\d{1,3}(?:\.\d{3})*,\d{2}|\d+,\d{2}`)

// ParseEuropean parses a European-format amount ("1.234,56" -> 1234.56).
func ParseEuropean(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// FirstEuropean returns the first European-format number found in s.
// The second return is false when s contains no such number.
func FirstEuropean(s string) (decimal.Decimal, bool) {
	match := europeanNumber.FindString(s)
	if match == "" {
		return decimal.Zero, false
	}
	d, err := ParseEuropean(match)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// OrZero coerces a single amount string, contributing zero instead of failing
// when it does not parse. Row aggregation skips non-numeric cells via
// FirstEuropean instead, so absence there does not shift positional fields.
func OrZero(s string) decimal.Decimal {
	if d, ok := FirstEuropean(s); ok {
		return d
	}
	if d, err := decimal.NewFromString(strings.TrimSpace(s)); err == nil {
		return d
	}
	return decimal.Zero
}

// Round2 rounds to 2 decimal places for presentation.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Display formats a decimal euro amount for humans, e.g. "€1,234.56".
func Display(d decimal.Decimal) string {
	cents := d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return gomoney.New(cents, EUR).Display()
}

// Percent formats a decimal fraction as a percentage string with the given
// number of decimals, e.g. Percent(0.0425, 3) -> "4.250%".
func Percent(d decimal.Decimal, places int32) string {
	return d.Mul(decimal.NewFromInt(100)).StringFixed(places) + "%"
}
