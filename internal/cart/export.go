package cart

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/counterbill/counterbill/internal/money"
)

// CSVHeader is the column order used by cart exports and invoice files.
var CSVHeader = []string{"code", "name", "price", "qty", "total"}

// Record renders the line in CSVHeader order with formatted amounts.
func (l Line) Record() []string {
	return []string{l.Code, l.Name, money.Format(l.UnitPrice), strconv.Itoa(l.Qty), money.Format(l.LineTotal)}
}

// WriteCSV streams the cart as a header row plus one row per line.
func (c *Cart) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	for _, l := range c.lines {
		if err := cw.Write(l.Record()); err != nil {
			return fmt.Errorf("write export row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush export: %w", err)
	}
	return nil
}
