package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/counterbill/counterbill/internal/money"
)

// Header aliases accepted for the product code and name columns.
var (
	codeAliases = []string{"code", "id", "sku"}
	nameAliases = []string{"name", "product"}
)

// Load reads the products CSV at path. The first row must be a header and
// column names are matched case-insensitively. Rows without a product code
// are skipped, an unparseable or absent price becomes zero, and a later row
// with the same code replaces the earlier one.
func Load(path string) (Result, error) {
	res := Result{Products: Catalog{}, Source: path}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			res.Missing = true
			return res, nil
		}
		return Result{}, fmt.Errorf("open products csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return res, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("read products header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("read products row: %w", err)
		}
		code := firstField(record, cols, codeAliases...)
		if code == "" {
			continue
		}
		price := decimal.Zero
		if raw := field(record, cols, "price"); raw != "" {
			if parsed, err := money.Parse(raw); err == nil {
				price = parsed
			}
		}
		res.Products[code] = Product{
			Code:      code,
			Name:      firstField(record, cols, nameAliases...),
			UnitPrice: price,
		}
	}
	return res, nil
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func firstField(record []string, cols map[string]int, names ...string) string {
	for _, n := range names {
		if v := field(record, cols, n); v != "" {
			return v
		}
	}
	return ""
}

// CopyFile replaces dst with the contents of src. Used when the user picks
// a products file elsewhere on disk: it is copied over the configured
// catalog path and reloaded from there, so restarts see the same data.
// The bytes go through a temp file renamed over dst, so a failed copy or
// a src that is dst under another spelling never truncates the original.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source csv: %w", err)
	}
	defer in.Close()
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".products-*")
	if err != nil {
		return fmt.Errorf("replace products csv: %w", err)
	}
	_ = tmp.Chmod(0o644)
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("copy products csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("flush products csv: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace products csv: %w", err)
	}
	return nil
}
