package invoice

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

const (
	filePrefix = "invoice_"
	csvExt     = ".csv"
	htmlExt    = ".html"
	pdfExt     = ".pdf"
)

// NextNumber returns one past the highest invoice number found in dir,
// creating the directory when needed. Only names of the exact form
// invoice_<number>.csv count, so stray files never disturb the sequence.
func NextNumber(dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create invoices dir: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("scan invoices dir: %w", err)
	}
	highest := 0
	for _, e := range entries {
		if n, ok := numberFromFilename(e.Name()); ok && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

// List returns the numbers of all persisted invoices in ascending order.
// A missing directory means no invoices yet.
func List(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan invoices dir: %w", err)
	}
	var numbers []int
	for _, e := range entries {
		if n, ok := numberFromFilename(e.Name()); ok {
			numbers = append(numbers, n)
		}
	}
	sort.Ints(numbers)
	return numbers, nil
}

func numberFromFilename(name string) (int, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, csvExt) {
		return 0, false
	}
	middle := name[len(filePrefix) : len(name)-len(csvExt)]
	n, err := strconv.Atoi(middle)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
