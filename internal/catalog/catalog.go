// Package catalog loads and indexes the products CSV the app sells from.
package catalog

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Product is one sellable item from the products file.
type Product struct {
	Code      string
	Name      string
	UnitPrice decimal.Decimal
}

// Catalog indexes products by code.
type Catalog map[string]Product

// Get looks up a product by its code.
func (c Catalog) Get(code string) (Product, bool) {
	p, ok := c[code]
	return p, ok
}

// Sorted returns the products ordered by code for stable listings.
func (c Catalog) Sorted() []Product {
	out := make([]Product, 0, len(c))
	for _, p := range c {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Result reports the outcome of loading a products file. A missing file is
// not an error: the app starts with an empty catalog and the caller decides
// how to surface that.
type Result struct {
	Products Catalog
	Source   string
	Missing  bool
}
