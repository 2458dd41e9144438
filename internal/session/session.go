// Package session owns the mutable billing state: one catalog, one cart
// and the invoice store, advanced by commands that return fresh snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/counterbill/counterbill/internal/billing"
	"github.com/counterbill/counterbill/internal/cart"
	"github.com/counterbill/counterbill/internal/catalog"
	"github.com/counterbill/counterbill/internal/invoice"
	"github.com/counterbill/counterbill/internal/money"
	"github.com/counterbill/counterbill/internal/obs"
)

var (
	// ErrEmptyCart rejects generating or exporting with nothing billed.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrStaleToken rejects a confirmation token that no longer matches,
	// typically a double-submitted generate request.
	ErrStaleToken = errors.New("stale confirmation token")
	// ErrPrintingDisabled reports that PDF rendering is switched off.
	ErrPrintingDisabled = errors.New("pdf printing is disabled")
	// ErrNoSuchInvoice reports a number with no stored invoice.
	ErrNoSuchInvoice = errors.New("invoice not found")
)

// Printer renders a stored invoice HTML file to PDF.
type Printer interface {
	Print(ctx context.Context, htmlPath, pdfPath string) error
}

// Config wires a session to its stores.
type Config struct {
	CatalogPath    string
	InvoicesDir    string
	ExportsDir     string
	DefaultTaxRate string
	Printer        Printer
	Logger         zerolog.Logger
	Now            func() time.Time
}

// Session serializes all billing commands behind one mutex. Handlers may
// call concurrently, but the bill advances one command at a time.
type Session struct {
	mu sync.Mutex

	id          string
	log         zerolog.Logger
	catalogPath string
	exportsDir  string
	store       invoice.Store
	printer     Printer
	now         func() time.Time

	catalog      catalog.Result
	cart         *cart.Cart
	customer     string
	rateInput    string
	confirmToken string
}

// New loads the catalog and opens a fresh session. A missing products file
// is logged and yields an empty catalog; an unreadable one does too, so a
// bad file never blocks startup.
func New(cfg Config) (*Session, error) {
	if cfg.CatalogPath == "" {
		return nil, errors.New("catalog path is required")
	}
	if cfg.InvoicesDir == "" {
		return nil, errors.New("invoices dir is required")
	}
	rateInput := cfg.DefaultTaxRate
	if rateInput == "" {
		rateInput = billing.DefaultRateInput
	}
	if _, err := billing.ParseRate(rateInput); err != nil {
		return nil, fmt.Errorf("default tax rate: %w", err)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	s := &Session{
		id:           uuid.NewString(),
		catalogPath:  cfg.CatalogPath,
		exportsDir:   cfg.ExportsDir,
		store:        invoice.Store{Dir: cfg.InvoicesDir},
		printer:      cfg.Printer,
		now:          now,
		cart:         cart.New(),
		rateInput:    rateInput,
		confirmToken: uuid.NewString(),
	}
	s.log = cfg.Logger.With().Str("session_id", s.id).Logger()

	res, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		s.log.Warn().Err(err).Str("path", cfg.CatalogPath).Msg("catalog unreadable, starting empty")
		res = catalog.Result{Products: catalog.Catalog{}, Source: cfg.CatalogPath}
	} else if res.Missing {
		s.log.Warn().Str("path", cfg.CatalogPath).Msg("products file missing, starting empty")
	}
	s.catalog = res
	if obs.CatalogProducts != nil {
		obs.CatalogProducts.Set(float64(len(res.Products)))
	}
	return s, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// State returns the current snapshot without changing anything.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// AddItem merges qty of the coded product into the cart.
func (s *Session) AddItem(code string, qty int) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line, err := s.cart.Add(s.catalog.Products, code, qty)
	if err != nil {
		if obs.CartMutationsTotal != nil {
			obs.CartMutationsTotal.WithLabelValues("add", "rejected").Inc()
		}
		return State{}, err
	}
	if obs.CartMutationsTotal != nil {
		obs.CartMutationsTotal.WithLabelValues("add", "ok").Inc()
	}
	s.log.Debug().Str("code", line.Code).Int("qty", line.Qty).
		Str("line_total", money.Format(line.LineTotal)).Msg("cart add")
	return s.snapshot(), nil
}

// RemoveItem drops the line for code. Removing an absent code is a no-op.
func (s *Session) RemoveItem(code string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart.Remove(code) {
		if obs.CartMutationsTotal != nil {
			obs.CartMutationsTotal.WithLabelValues("remove", "ok").Inc()
		}
		s.log.Debug().Str("code", code).Msg("cart remove")
	}
	return s.snapshot()
}

// ClearCart empties the cart.
func (s *Session) ClearCart() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
	if obs.CartMutationsTotal != nil {
		obs.CartMutationsTotal.WithLabelValues("clear", "ok").Inc()
	}
	s.log.Debug().Msg("cart cleared")
	return s.snapshot()
}

// SetDetails stores the customer name and GST rate for the next invoice.
// An unparseable rate falls back to the default; the normalized value is
// written back and flagged in the returned state.
func (s *Session) SetDetails(customer, rateInput string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customer = strings.TrimSpace(customer)

	trimmed := strings.TrimSpace(rateInput)
	fellBack := false
	if _, err := billing.ParseRate(trimmed); err != nil {
		s.log.Warn().Str("input", rateInput).
			Str("fallback", billing.DefaultRateInput).
			Msg("gst rate unparseable, using default")
		trimmed = billing.DefaultRateInput
		fellBack = true
	}
	s.rateInput = trimmed

	st := s.snapshot()
	st.RateFellBack = fellBack
	return st
}

// resolveRate parses the stored rate input. SetDetails normalizes the
// input, so the fallback here only covers a bad configured default.
func (s *Session) resolveRate() decimal.Decimal {
	rate, err := billing.ParseRate(s.rateInput)
	if err != nil {
		return billing.DefaultRatePercent
	}
	return rate
}

// GenerateInvoice persists the cart as the next numbered invoice. On
// success the cart is cleared and the confirmation token rotates, so a
// duplicate submit of the same token is rejected instead of double billed.
func (s *Session) GenerateInvoice(confirmToken string) (invoice.Saved, State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart.Len() == 0 {
		return invoice.Saved{}, State{}, ErrEmptyCart
	}
	if confirmToken != s.confirmToken {
		return invoice.Saved{}, State{}, ErrStaleToken
	}

	number, err := invoice.NextNumber(s.store.Dir)
	if err != nil {
		return invoice.Saved{}, State{}, err
	}
	lines := s.cart.Lines()
	inv := invoice.Invoice{
		Number:       number,
		Date:         s.now().Format(invoice.DateLayout),
		CustomerName: s.customer,
		Items:        lines,
		Totals:       billing.Compute(lines, s.resolveRate()),
	}
	saved, err := s.store.Save(inv)
	if err != nil {
		// Cart stays intact so the user can retry after fixing the cause.
		return invoice.Saved{}, State{}, err
	}

	s.cart.Clear()
	s.confirmToken = uuid.NewString()
	if obs.InvoicesGeneratedTotal != nil {
		obs.InvoicesGeneratedTotal.Inc()
	}
	s.log.Info().Int("invoice_number", saved.Number).
		Str("grand_total", money.Format(inv.Totals.GrandTotal)).
		Str("csv", saved.CSVPath).Str("html", saved.HTMLPath).
		Msg("invoice generated")
	return saved, s.snapshot(), nil
}

// ExportCart streams the cart rows as CSV. The cart is left untouched.
func (s *Session) ExportCart(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart.Len() == 0 {
		return ErrEmptyCart
	}
	return s.cart.WriteCSV(w)
}

// ExportCartFile writes the cart rows to path, or to a timestamped file
// under the exports dir when path is empty. The timestamp has one-second
// grain, so a colliding default name gets a numeric suffix rather than
// truncating the earlier export. An explicit path is written as given.
func (s *Session) ExportCartFile(path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart.Len() == 0 {
		return "", ErrEmptyCart
	}
	var f *os.File
	if path == "" {
		if s.exportsDir == "" {
			return "", errors.New("no export path given and no exports dir configured")
		}
		if err := os.MkdirAll(s.exportsDir, 0o755); err != nil {
			return "", fmt.Errorf("create exports dir: %w", err)
		}
		var err error
		f, path, err = s.newExportFile()
		if err != nil {
			return "", err
		}
	} else {
		var err error
		f, err = os.Create(path)
		if err != nil {
			return "", fmt.Errorf("create export file: %w", err)
		}
	}
	if err := s.cart.WriteCSV(f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	s.log.Info().Str("path", path).Msg("cart exported")
	return path, nil
}

// newExportFile opens a fresh default-named export under the exports dir.
func (s *Session) newExportFile() (*os.File, string, error) {
	stamp := s.now().Format("20060102_150405")
	for n := 1; ; n++ {
		name := fmt.Sprintf("cart_%s.csv", stamp)
		if n > 1 {
			name = fmt.Sprintf("cart_%s_%d.csv", stamp, n)
		}
		path := filepath.Join(s.exportsDir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !os.IsExist(err) {
			return nil, "", fmt.Errorf("create export file: %w", err)
		}
	}
}

// ReloadCatalog re-reads the products file. When fromPath is set the file
// is first copied over the configured catalog path, mirroring a user
// picking a CSV elsewhere on disk. On failure the previous catalog stays.
func (s *Session) ReloadCatalog(fromPath string) (catalog.Result, State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fromPath != "" && fromPath != s.catalogPath {
		if err := catalog.CopyFile(fromPath, s.catalogPath); err != nil {
			return catalog.Result{}, State{}, err
		}
	}
	res, err := catalog.Load(s.catalogPath)
	if err != nil {
		return catalog.Result{}, State{}, err
	}
	s.catalog = res
	if obs.CatalogProducts != nil {
		obs.CatalogProducts.Set(float64(len(res.Products)))
	}
	s.log.Info().Str("path", s.catalogPath).Int("products", len(res.Products)).
		Bool("missing", res.Missing).Msg("catalog reloaded")
	return res, s.snapshot(), nil
}

// ListInvoices returns the numbers of all persisted invoices, ascending.
func (s *Session) ListInvoices() ([]int, error) {
	return invoice.List(s.store.Dir)
}

// InvoiceHTMLPath resolves the stored HTML file for invoice n.
func (s *Session) InvoiceHTMLPath(n int) (string, error) {
	_, htmlPath, _ := s.store.PathsFor(n)
	if _, err := os.Stat(htmlPath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("invoice %d: %w", n, ErrNoSuchInvoice)
		}
		return "", fmt.Errorf("stat invoice html: %w", err)
	}
	return htmlPath, nil
}

// PrintInvoice renders invoice n to PDF beside its CSV and HTML files.
// The printer runs outside the session lock so a slow Chrome start does
// not block billing commands.
func (s *Session) PrintInvoice(ctx context.Context, n int) (string, error) {
	if s.printer == nil {
		return "", ErrPrintingDisabled
	}
	htmlPath, err := s.InvoiceHTMLPath(n)
	if err != nil {
		return "", err
	}
	_, _, pdfPath := s.store.PathsFor(n)
	if err := s.printer.Print(ctx, htmlPath, pdfPath); err != nil {
		if obs.PDFPrintsTotal != nil {
			obs.PDFPrintsTotal.WithLabelValues("error").Inc()
		}
		return "", err
	}
	if obs.PDFPrintsTotal != nil {
		obs.PDFPrintsTotal.WithLabelValues("ok").Inc()
	}
	s.log.Info().Int("invoice_number", n).Str("pdf", pdfPath).Msg("invoice printed")
	return pdfPath, nil
}
