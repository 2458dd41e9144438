package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/counterbill/counterbill/internal/health"
)

type stubChecker struct {
	catalogErr  error
	invoicesErr error
}

func (s stubChecker) CheckCatalog(_ context.Context) error {
	return s.catalogErr
}

func (s stubChecker) CheckInvoiceDir(_ context.Context) error {
	return s.invoicesErr
}

func TestLive(t *testing.T) {
	handler := health.Handler{}
	rr := httptest.NewRecorder()
	handler.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if body := rr.Body.String(); body != "ok" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestReadySuccess(t *testing.T) {
	handler := health.Handler{Checker: stubChecker{}}
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	var status map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status["catalog"] != "ok" || status["invoices"] != "ok" {
		t.Fatalf("unexpected status %#v", status)
	}
}

func TestReadyFailure(t *testing.T) {
	handler := health.Handler{Checker: stubChecker{invoicesErr: errors.New("disk full")}}
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rr.Code)
	}
	var status map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status["invoices"] != "disk full" {
		t.Fatalf("unexpected status %#v", status)
	}
}

func TestStoreCheckerHealthyDirs(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "products.csv")
	if err := os.WriteFile(catalogPath, []byte("code,name,price\n"), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	checker := health.StoreChecker{
		CatalogPath: catalogPath,
		InvoicesDir: filepath.Join(dir, "invoices"),
	}
	if err := checker.CheckCatalog(context.Background()); err != nil {
		t.Fatalf("CheckCatalog: %v", err)
	}
	if err := checker.CheckInvoiceDir(context.Background()); err != nil {
		t.Fatalf("CheckInvoiceDir: %v", err)
	}
}

func TestStoreCheckerMissingCatalogIsHealthy(t *testing.T) {
	dir := t.TempDir()
	checker := health.StoreChecker{
		CatalogPath: filepath.Join(dir, "absent.csv"),
		InvoicesDir: filepath.Join(dir, "invoices"),
	}
	if err := checker.CheckCatalog(context.Background()); err != nil {
		t.Fatalf("CheckCatalog: %v", err)
	}
}

func TestStoreCheckerUnwritableInvoicesDir(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "invoices")
	if err := os.WriteFile(blocked, []byte("not a dir"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	checker := health.StoreChecker{
		CatalogPath: filepath.Join(dir, "products.csv"),
		InvoicesDir: blocked,
	}
	if err := checker.CheckInvoiceDir(context.Background()); err == nil {
		t.Fatal("expected error for invoices path occupied by a file")
	}
}
