// Package cart holds the in-progress bill: an ordered list of product
// lines that merge by code.
package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/counterbill/counterbill/internal/catalog"
	"github.com/counterbill/counterbill/internal/money"
)

var (
	// ErrUnknownCode rejects adds for codes not present in the catalog.
	ErrUnknownCode = errors.New("product code not in catalog")
	// ErrInvalidQty rejects adds with a zero or negative quantity.
	ErrInvalidQty = errors.New("quantity must be positive")
)

// Line is one row of the bill. UnitPrice is captured from the catalog when
// the line is first added and kept for later merges, even if the catalog is
// reloaded in between.
type Line struct {
	Code      string
	Name      string
	UnitPrice decimal.Decimal
	Qty       int
	LineTotal decimal.Decimal
}

// Cart keeps lines in insertion order.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add puts qty of the coded product into the cart. Adding a code already
// present increments its quantity and recomputes the line total from the
// original unit price. The resulting line is returned.
func (c *Cart) Add(products catalog.Catalog, code string, qty int) (Line, error) {
	if qty <= 0 {
		return Line{}, fmt.Errorf("qty %d: %w", qty, ErrInvalidQty)
	}
	p, ok := products.Get(code)
	if !ok {
		return Line{}, fmt.Errorf("code %q: %w", code, ErrUnknownCode)
	}
	for i := range c.lines {
		if c.lines[i].Code == code {
			c.lines[i].Qty += qty
			c.lines[i].LineTotal = lineTotal(c.lines[i].UnitPrice, c.lines[i].Qty)
			return c.lines[i], nil
		}
	}
	line := Line{
		Code:      p.Code,
		Name:      p.Name,
		UnitPrice: p.UnitPrice,
		Qty:       qty,
		LineTotal: lineTotal(p.UnitPrice, qty),
	}
	c.lines = append(c.lines, line)
	return line, nil
}

func lineTotal(unit decimal.Decimal, qty int) decimal.Decimal {
	return money.Round(unit.Mul(decimal.NewFromInt(int64(qty))))
}

// Remove drops the line for code and reports whether one was present.
func (c *Cart) Remove(code string) bool {
	for i := range c.lines {
		if c.lines[i].Code == code {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Subtotal sums the line totals. Each line total is already quantized, so
// the sum is exact and is not rounded again.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.LineTotal)
	}
	return total
}
