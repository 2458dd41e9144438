// Package invoice numbers, persists and renders finalized bills.
package invoice

import (
	"github.com/counterbill/counterbill/internal/billing"
	"github.com/counterbill/counterbill/internal/cart"
)

// DateLayout is the timestamp format written into invoice files.
const DateLayout = "2006-01-02 15:04:05"

// Invoice is an immutable snapshot of a finalized bill.
type Invoice struct {
	Number       int
	Date         string
	CustomerName string
	Items        []cart.Line
	Totals       billing.Totals
}

// Saved reports where an invoice landed on disk.
type Saved struct {
	Number   int
	CSVPath  string
	HTMLPath string
}
