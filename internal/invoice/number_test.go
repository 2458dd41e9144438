package invoice_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/counterbill/counterbill/internal/invoice"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

func TestNextNumberCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "invoices")

	n, err := invoice.NextNumber(dir)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestNextNumberContinuesSequence(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"invoice_1.csv", "invoice_2.csv", "invoice_5.csv"} {
		touch(t, dir, name)
	}

	n, err := invoice.NextNumber(dir)
	require.NoError(t, err)
	require.Equal(t, 6, n)
}

func TestNextNumberIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"invoice_2.csv",
		"invoice_abc.csv",
		"invoice_12_old.csv",
		"invoice_3.html",
		"invoice_.csv",
		"invoice_-4.csv",
		"notes.txt",
	} {
		touch(t, dir, name)
	}

	n, err := invoice.NextNumber(dir)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestListReturnsSortedNumbers(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"invoice_5.csv", "invoice_1.csv", "invoice_2.csv", "invoice_x.csv"} {
		touch(t, dir, name)
	}

	numbers, err := invoice.List(dir)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 5}, numbers)
}

func TestListMissingDir(t *testing.T) {
	numbers, err := invoice.List(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	require.Empty(t, numbers)
}
