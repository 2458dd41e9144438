// Package billing computes the GST invoice totals for a cart.
package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/counterbill/counterbill/internal/cart"
	"github.com/counterbill/counterbill/internal/money"
)

// DefaultRateInput is the rate text applied when the entered rate cannot be
// parsed. Sessions write it back into the rate field so persisted invoices
// echo the normalized input.
const DefaultRateInput = "18.0"

// DefaultRatePercent is DefaultRateInput as a decimal.
var DefaultRatePercent = decimal.RequireFromString(DefaultRateInput)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// Totals is the tax breakdown for a cart at a given GST rate.
type Totals struct {
	Subtotal    decimal.Decimal
	RatePercent decimal.Decimal
	TaxTotal    decimal.Decimal
	CGST        decimal.Decimal
	SGST        decimal.Decimal
	GrandTotal  decimal.Decimal
}

// ParseRate reads a GST percentage from user input.
func ParseRate(input string) (decimal.Decimal, error) {
	rate, err := money.Parse(input)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse gst rate %q: %w", input, err)
	}
	return rate, nil
}

// FormatRate renders a rate with the scale it was entered with. Decimal's
// String trims trailing fractional zeros ("18.0" becomes "18").
func FormatRate(rate decimal.Decimal) string {
	if rate.Exponent() < 0 {
		return rate.StringFixed(-rate.Exponent())
	}
	return rate.String()
}

// Compute derives the totals from the cart lines. Line totals arrive
// quantized, so the subtotal is a plain sum. The GST total is rounded once;
// CGST is the rounded half and SGST is the exact remainder, so the two
// components always sum to the GST total.
func Compute(lines []cart.Line, ratePercent decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal)
	}
	taxTotal := money.Round(subtotal.Mul(ratePercent).Div(hundred))
	cgst := money.Round(taxTotal.Div(two))
	sgst := taxTotal.Sub(cgst)
	return Totals{
		Subtotal:    subtotal,
		RatePercent: ratePercent,
		TaxTotal:    taxTotal,
		CGST:        cgst,
		SGST:        sgst,
		GrandTotal:  money.Round(subtotal.Add(taxTotal)),
	}
}
