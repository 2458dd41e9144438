// Package money pins the rounding and formatting rules shared by every
// amount the app computes or persists.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits kept on stored amounts.
const Places = 2

// Round quantizes d to Places fractional digits, rounding ties away from
// zero. Amounts are rounded once, at the point they are produced.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Format renders d as a fixed two digit string, e.g. "35.40".
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// Parse reads a decimal amount from user or CSV input. Surrounding
// whitespace is ignored; the input scale is preserved.
func Parse(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}
