package session_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/counterbill/counterbill/internal/cart"
	"github.com/counterbill/counterbill/internal/session"
)

func fixedNow() time.Time {
	return time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
}

type sessionDirs struct {
	catalogPath string
	invoicesDir string
	exportsDir  string
}

func newSessionWith(t *testing.T, printer session.Printer) (*session.Session, sessionDirs) {
	t.Helper()
	dir := t.TempDir()
	dirs := sessionDirs{
		catalogPath: filepath.Join(dir, "products.csv"),
		invoicesDir: filepath.Join(dir, "invoices"),
		exportsDir:  filepath.Join(dir, "exports"),
	}
	csv := "code,name,price\nP001,Pen,10.00\nP002,Notebook,52.50\n"
	require.NoError(t, os.WriteFile(dirs.catalogPath, []byte(csv), 0o644))

	s, err := session.New(session.Config{
		CatalogPath: dirs.catalogPath,
		InvoicesDir: dirs.invoicesDir,
		ExportsDir:  dirs.exportsDir,
		Printer:     printer,
		Logger:      zerolog.Nop(),
		Now:         fixedNow,
	})
	require.NoError(t, err)
	return s, dirs
}

func newSession(t *testing.T) (*session.Session, sessionDirs) {
	t.Helper()
	return newSessionWith(t, nil)
}

func TestNewLoadsCatalog(t *testing.T) {
	s, dirs := newSession(t)

	st := s.State()
	require.Equal(t, dirs.catalogPath, st.CatalogPath)
	require.False(t, st.CatalogMissing)
	require.Len(t, st.Products, 2)
	require.Equal(t, "P001", st.Products[0].Code)
	require.Equal(t, "10.00", st.Products[0].UnitPrice)
	require.Equal(t, "18.0", st.RateInput)
	require.NoError(t, uuid.Validate(st.ConfirmToken))
}

func TestNewWithMissingCatalog(t *testing.T) {
	dir := t.TempDir()
	s, err := session.New(session.Config{
		CatalogPath: filepath.Join(dir, "absent.csv"),
		InvoicesDir: filepath.Join(dir, "invoices"),
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)

	st := s.State()
	require.True(t, st.CatalogMissing)
	require.Empty(t, st.Products)
}

func TestAddItemComputesTotals(t *testing.T) {
	s, _ := newSession(t)

	st, err := s.AddItem("P001", 3)
	require.NoError(t, err)
	require.Len(t, st.Lines, 1)
	require.Equal(t, 3, st.Lines[0].Qty)
	require.Equal(t, "30.00", st.Lines[0].LineTotal)
	require.Equal(t, "30.00", st.Totals.Subtotal)
	require.Equal(t, "5.40", st.Totals.TaxTotal)
	require.Equal(t, "2.70", st.Totals.CGST)
	require.Equal(t, "2.70", st.Totals.SGST)
	require.Equal(t, "35.40", st.Totals.GrandTotal)
}

func TestAddItemMergesLines(t *testing.T) {
	s, _ := newSession(t)

	_, err := s.AddItem("P001", 2)
	require.NoError(t, err)
	st, err := s.AddItem("P001", 3)
	require.NoError(t, err)
	require.Len(t, st.Lines, 1)
	require.Equal(t, 5, st.Lines[0].Qty)
	require.Equal(t, "50.00", st.Lines[0].LineTotal)
}

func TestAddItemRejections(t *testing.T) {
	s, _ := newSession(t)

	_, err := s.AddItem("NOPE", 1)
	require.ErrorIs(t, err, cart.ErrUnknownCode)

	_, err = s.AddItem("P001", 0)
	require.ErrorIs(t, err, cart.ErrInvalidQty)

	require.Empty(t, s.State().Lines)
}

func TestRemoveAndClear(t *testing.T) {
	s, _ := newSession(t)

	_, err := s.AddItem("P001", 1)
	require.NoError(t, err)
	_, err = s.AddItem("P002", 1)
	require.NoError(t, err)

	st := s.RemoveItem("P001")
	require.Len(t, st.Lines, 1)
	require.Equal(t, "P002", st.Lines[0].Code)

	st = s.RemoveItem("GHOST")
	require.Len(t, st.Lines, 1)

	st = s.ClearCart()
	require.Empty(t, st.Lines)
	require.Equal(t, "0.00", st.Totals.GrandTotal)
}

func TestSetDetailsRateFallback(t *testing.T) {
	s, _ := newSession(t)

	st := s.SetDetails("Asha", "12.5")
	require.False(t, st.RateFellBack)
	require.Equal(t, "12.5", st.RateInput)
	require.Equal(t, "Asha", st.CustomerName)

	st = s.SetDetails("Asha", "banana")
	require.True(t, st.RateFellBack)
	require.Equal(t, "18.0", st.RateInput)
	require.Equal(t, "18.0", st.Totals.RatePercent)

	// The normalized rate sticks; the flag does not.
	st = s.State()
	require.False(t, st.RateFellBack)
	require.Equal(t, "18.0", st.RateInput)
}

func TestGenerateInvoiceRoundTrip(t *testing.T) {
	s, dirs := newSession(t)

	_, err := s.AddItem("P001", 3)
	require.NoError(t, err)
	st := s.SetDetails("Asha", "18.0")

	saved, next, err := s.GenerateInvoice(st.ConfirmToken)
	require.NoError(t, err)
	require.Equal(t, 1, saved.Number)
	require.FileExists(t, saved.CSVPath)
	require.FileExists(t, saved.HTMLPath)

	csvBytes, err := os.ReadFile(saved.CSVPath)
	require.NoError(t, err)
	require.Contains(t, string(csvBytes), "invoice_number,1\n")
	require.Contains(t, string(csvBytes), "date,2026-01-15 10:30:00\n")
	require.Contains(t, string(csvBytes), "grand_total,35.40\n")

	require.Empty(t, next.Lines)
	require.NotEqual(t, st.ConfirmToken, next.ConfirmToken)

	// The sequence continues across invoices.
	_, err = s.AddItem("P002", 1)
	require.NoError(t, err)
	saved, _, err = s.GenerateInvoice(next.ConfirmToken)
	require.NoError(t, err)
	require.Equal(t, 2, saved.Number)
	require.Equal(t, filepath.Join(dirs.invoicesDir, "invoice_2.csv"), saved.CSVPath)
}

func TestGenerateInvoiceEmptyCart(t *testing.T) {
	s, _ := newSession(t)

	_, _, err := s.GenerateInvoice(s.State().ConfirmToken)
	require.ErrorIs(t, err, session.ErrEmptyCart)
}

func TestGenerateInvoiceStaleToken(t *testing.T) {
	s, _ := newSession(t)

	_, err := s.AddItem("P001", 1)
	require.NoError(t, err)
	token := s.State().ConfirmToken

	_, _, err = s.GenerateInvoice("not-the-token")
	require.ErrorIs(t, err, session.ErrStaleToken)

	_, _, err = s.GenerateInvoice(token)
	require.NoError(t, err)

	// Replaying the consumed token is rejected.
	_, err = s.AddItem("P001", 1)
	require.NoError(t, err)
	_, _, err = s.GenerateInvoice(token)
	require.ErrorIs(t, err, session.ErrStaleToken)
}

func TestExportCart(t *testing.T) {
	s, _ := newSession(t)

	var buf bytes.Buffer
	require.ErrorIs(t, s.ExportCart(&buf), session.ErrEmptyCart)

	_, err := s.AddItem("P001", 3)
	require.NoError(t, err)
	require.NoError(t, s.ExportCart(&buf))
	require.Equal(t, "code,name,price,qty,total\nP001,Pen,10.00,3,30.00\n", buf.String())

	// Exporting leaves the cart alone.
	require.Len(t, s.State().Lines, 1)
}

func TestExportCartFileDefaultPath(t *testing.T) {
	s, dirs := newSession(t)

	_, err := s.AddItem("P002", 2)
	require.NoError(t, err)

	path, err := s.ExportCartFile("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dirs.exportsDir, "cart_20260115_103000.csv"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "code,name,price,qty,total\nP002,Notebook,52.50,2,105.00\n", string(got))
}

func TestExportCartFileSameSecondKeepsBoth(t *testing.T) {
	s, dirs := newSession(t)

	_, err := s.AddItem("P001", 1)
	require.NoError(t, err)

	first, err := s.ExportCartFile("")
	require.NoError(t, err)
	second, err := s.ExportCartFile("")
	require.NoError(t, err)

	// The clock is frozen, so the second default name collides and takes
	// a suffix.
	require.Equal(t, filepath.Join(dirs.exportsDir, "cart_20260115_103000.csv"), first)
	require.Equal(t, filepath.Join(dirs.exportsDir, "cart_20260115_103000_2.csv"), second)

	for _, path := range []string{first, second} {
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, "code,name,price,qty,total\nP001,Pen,10.00,1,10.00\n", string(got))
	}
}

func TestExportCartFileBadPath(t *testing.T) {
	s, _ := newSession(t)

	_, err := s.AddItem("P001", 1)
	require.NoError(t, err)

	_, err = s.ExportCartFile(filepath.Join(t.TempDir(), "no", "such", "dir", "cart.csv"))
	require.Error(t, err)
	require.Len(t, s.State().Lines, 1)
}

func TestReloadCatalogFromPath(t *testing.T) {
	s, dirs := newSession(t)

	other := filepath.Join(t.TempDir(), "new-products.csv")
	contents := "code,name,price\nP001,Pen,11.00\nP003,Stapler,85.00\n"
	require.NoError(t, os.WriteFile(other, []byte(contents), 0o644))

	res, st, err := s.ReloadCatalog(other)
	require.NoError(t, err)
	require.Len(t, res.Products, 2)
	require.Len(t, st.Products, 2)

	// The picked file was copied over the configured path.
	got, err := os.ReadFile(dirs.catalogPath)
	require.NoError(t, err)
	require.Equal(t, contents, string(got))
}

func TestReloadCatalogFromAliasedPath(t *testing.T) {
	s, dirs := newSession(t)

	// The configured file under another spelling, which the plain path
	// comparison in ReloadCatalog does not recognize.
	aliased := filepath.Dir(dirs.catalogPath) + "/./" + filepath.Base(dirs.catalogPath)

	res, st, err := s.ReloadCatalog(aliased)
	require.NoError(t, err)
	require.Len(t, res.Products, 2)
	require.Len(t, st.Products, 2)

	// Copying the file onto itself must not empty it.
	got, err := os.ReadFile(dirs.catalogPath)
	require.NoError(t, err)
	require.Equal(t, "code,name,price\nP001,Pen,10.00\nP002,Notebook,52.50\n", string(got))
}

func TestReloadCatalogMissingSource(t *testing.T) {
	s, _ := newSession(t)

	_, _, err := s.ReloadCatalog(filepath.Join(t.TempDir(), "ghost.csv"))
	require.Error(t, err)

	// Previous catalog is kept.
	require.Len(t, s.State().Products, 2)
}

func TestReloadCatalogGoneMissing(t *testing.T) {
	s, dirs := newSession(t)
	require.NoError(t, os.Remove(dirs.catalogPath))

	res, st, err := s.ReloadCatalog("")
	require.NoError(t, err)
	require.True(t, res.Missing)
	require.True(t, st.CatalogMissing)
	require.Empty(t, st.Products)
}

func TestListInvoices(t *testing.T) {
	s, _ := newSession(t)

	numbers, err := s.ListInvoices()
	require.NoError(t, err)
	require.Empty(t, numbers)

	for i := 0; i < 2; i++ {
		_, err := s.AddItem("P001", 1)
		require.NoError(t, err)
		_, _, err = s.GenerateInvoice(s.State().ConfirmToken)
		require.NoError(t, err)
	}

	numbers, err = s.ListInvoices()
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, numbers)
}

type fakePrinter struct {
	gotHTML string
	gotPDF  string
	err     error
}

func (f *fakePrinter) Print(_ context.Context, htmlPath, pdfPath string) error {
	f.gotHTML = htmlPath
	f.gotPDF = pdfPath
	return f.err
}

func TestPrintInvoice(t *testing.T) {
	printer := &fakePrinter{}
	s, _ := newSessionWith(t, printer)

	_, err := s.AddItem("P001", 1)
	require.NoError(t, err)
	saved, _, err := s.GenerateInvoice(s.State().ConfirmToken)
	require.NoError(t, err)

	pdfPath, err := s.PrintInvoice(context.Background(), saved.Number)
	require.NoError(t, err)
	require.Equal(t, saved.HTMLPath, printer.gotHTML)
	require.Equal(t, pdfPath, printer.gotPDF)
}

func TestPrintInvoiceDisabled(t *testing.T) {
	s, _ := newSession(t)

	_, err := s.PrintInvoice(context.Background(), 1)
	require.ErrorIs(t, err, session.ErrPrintingDisabled)
}

func TestPrintInvoiceUnknownNumber(t *testing.T) {
	s, _ := newSessionWith(t, &fakePrinter{})

	_, err := s.PrintInvoice(context.Background(), 42)
	require.ErrorIs(t, err, session.ErrNoSuchInvoice)
}

func TestPrintInvoicePrinterFailure(t *testing.T) {
	printer := &fakePrinter{err: errors.New("chrome crashed")}
	s, _ := newSessionWith(t, printer)

	_, err := s.AddItem("P001", 1)
	require.NoError(t, err)
	saved, _, err := s.GenerateInvoice(s.State().ConfirmToken)
	require.NoError(t, err)

	_, err = s.PrintInvoice(context.Background(), saved.Number)
	require.Error(t, err)
}
