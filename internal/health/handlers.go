package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	CheckCatalog(ctx context.Context) error
	CheckInvoiceDir(ctx context.Context) error
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker Checker
	Timeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on store probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.Checker == nil {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
	defer cancel()

	catalogStatus := "ok"
	if err := h.Checker.CheckCatalog(ctx); err != nil {
		catalogStatus = err.Error()
	}
	invoicesStatus := "ok"
	if err := h.Checker.CheckInvoiceDir(ctx); err != nil {
		invoicesStatus = err.Error()
	}
	status := map[string]string{
		"catalog":  catalogStatus,
		"invoices": invoicesStatus,
	}
	w.Header().Set("Content-Type", "application/json")
	if catalogStatus != "ok" || invoicesStatus != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 2 * time.Second
	}
	return h.Timeout
}

// StoreChecker probes the file stores the billing session depends on.
type StoreChecker struct {
	CatalogPath string
	InvoicesDir string
}

// CheckCatalog verifies the products file is readable. A missing file is
// healthy, the app runs with an empty catalog until one is loaded.
func (c StoreChecker) CheckCatalog(_ context.Context) error {
	f, err := os.Open(c.CatalogPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open catalog: %w", err)
	}
	return f.Close()
}

// CheckInvoiceDir verifies invoices can be written.
func (c StoreChecker) CheckInvoiceDir(_ context.Context) error {
	if err := os.MkdirAll(c.InvoicesDir, 0o755); err != nil {
		return fmt.Errorf("create invoices dir: %w", err)
	}
	f, err := os.CreateTemp(c.InvoicesDir, ".ready-*")
	if err != nil {
		return fmt.Errorf("write invoices dir: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
