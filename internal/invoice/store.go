package invoice

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/counterbill/counterbill/internal/billing"
	"github.com/counterbill/counterbill/internal/cart"
	"github.com/counterbill/counterbill/internal/money"
)

// Store persists invoices beneath a single directory.
type Store struct {
	Dir string
}

// PathsFor returns the csv, html and pdf paths for invoice n. The files
// may or may not exist yet.
func (s Store) PathsFor(n int) (csvPath, htmlPath, pdfPath string) {
	base := filepath.Join(s.Dir, filePrefix+strconv.Itoa(n))
	return base + csvExt, base + htmlExt, base + pdfExt
}

// Save writes the CSV and HTML renditions of inv.
func (s Store) Save(inv Invoice) (Saved, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return Saved{}, fmt.Errorf("create invoices dir: %w", err)
	}
	csvPath, htmlPath, _ := s.PathsFor(inv.Number)
	if err := writeCSV(csvPath, inv); err != nil {
		return Saved{}, err
	}
	if err := writeHTML(htmlPath, inv); err != nil {
		return Saved{}, err
	}
	return Saved{Number: inv.Number, CSVPath: csvPath, HTMLPath: htmlPath}, nil
}

func writeCSV(path string, inv Invoice) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create invoice csv: %w", err)
	}

	t := inv.Totals
	records := [][]string{
		{"invoice_number", strconv.Itoa(inv.Number)},
		{"date", inv.Date},
		{"customer_name", inv.CustomerName},
		{},
		cart.CSVHeader,
	}
	for _, item := range inv.Items {
		records = append(records, item.Record())
	}
	records = append(records,
		[]string{},
		[]string{"subtotal", money.Format(t.Subtotal)},
		[]string{"gst_percent", billing.FormatRate(t.RatePercent)},
		[]string{"gst_total", money.Format(t.TaxTotal)},
		[]string{"cgst", money.Format(t.CGST)},
		[]string{"sgst", money.Format(t.SGST)},
		[]string{"grand_total", money.Format(t.GrandTotal)},
	)

	if err := csv.NewWriter(f).WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("write invoice csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close invoice csv: %w", err)
	}
	return nil
}

func writeHTML(path string, inv Invoice) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create invoice html: %w", err)
	}
	if err := render(f, inv); err != nil {
		f.Close()
		return fmt.Errorf("render invoice html: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close invoice html: %w", err)
	}
	return nil
}
