// Package shell exposes the loopback HTTP API and embedded page that
// drive a billing session.
package shell

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/counterbill/counterbill/internal/cart"
	"github.com/counterbill/counterbill/internal/common"
	"github.com/counterbill/counterbill/internal/invoice"
	"github.com/counterbill/counterbill/internal/session"
)

// Handler exposes HTTP handlers for the billing session endpoints.
type Handler struct {
	Session  *session.Session
	Validate *validator.Validate
	Log      zerolog.Logger
}

// NewHandler wires a handler with a fresh request validator.
func NewHandler(s *session.Session, log zerolog.Logger) *Handler {
	return &Handler{Session: s, Validate: validator.New(), Log: log}
}

type addItemRequest struct {
	Code string `json:"code" validate:"required,max=64"`
	Qty  int    `json:"qty" validate:"required,gt=0"`
}

type sessionRequest struct {
	CustomerName string `json:"customerName" validate:"max=200"`
	TaxRate      string `json:"taxRate" validate:"max=32"`
}

type generateRequest struct {
	ConfirmToken string `json:"confirmToken" validate:"required,uuid4"`
}

type exportRequest struct {
	Path string `json:"path" validate:"omitempty,max=4096"`
}

type reloadRequest struct {
	Path string `json:"path" validate:"omitempty,max=4096"`
}

// State handles GET /api/v1/state.
func (h *Handler) State(w http.ResponseWriter, _ *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "billing session not configured", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Session.State()})
}

// AddItem handles POST /api/v1/cart/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "billing session not configured", nil)
		return
	}
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	if err := h.validate(req); err != nil {
		h.writeError(w, err)
		return
	}
	st, err := h.Session.AddItem(req.Code, req.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": st})
}

// RemoveItem handles DELETE /api/v1/cart/items/{code}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "billing session not configured", nil)
		return
	}
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	st := h.Session.RemoveItem(code)
	common.JSON(w, http.StatusOK, map[string]any{"data": st})
}

// ClearCart handles POST /api/v1/cart/clear.
func (h *Handler) ClearCart(w http.ResponseWriter, _ *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "billing session not configured", nil)
		return
	}
	st := h.Session.ClearCart()
	common.JSON(w, http.StatusOK, map[string]any{"data": st})
}

// UpdateSession handles PUT /api/v1/session.
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "billing session not configured", nil)
		return
	}
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if err := h.validate(req); err != nil {
		h.writeError(w, err)
		return
	}
	st := h.Session.SetDetails(req.CustomerName, req.TaxRate)
	common.JSON(w, http.StatusOK, map[string]any{"data": st})
}

// GenerateInvoice handles POST /api/v1/invoices.
func (h *Handler) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "billing session not configured", nil)
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if err := h.validate(req); err != nil {
		h.writeError(w, err)
		return
	}
	saved, st, err := h.Session.GenerateInvoice(req.ConfirmToken)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{
			"number":     saved.Number,
			"csvPath":    saved.CSVPath,
			"htmlPath":   saved.HTMLPath,
			"previewUrl": previewURL(saved.Number),
			"state":      st,
		},
	})
}

// ListInvoices handles GET /api/v1/invoices.
func (h *Handler) ListInvoices(w http.ResponseWriter, _ *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "billing session not configured", nil)
		return
	}
	numbers, err := h.Session.ListInvoices()
	if err != nil {
		h.writeError(w, err)
		return
	}
	items := make([]map[string]any, 0, len(numbers))
	for _, n := range numbers {
		items = append(items, map[string]any{"number": n, "previewUrl": previewURL(n)})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// PreviewInvoice handles GET /invoices/{number} by serving the stored HTML.
func (h *Handler) PreviewInvoice(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "billing session not configured", nil)
		return
	}
	n, ok := invoiceNumber(r)
	if !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "invoice not found", nil)
		return
	}
	htmlPath, err := h.Session.InvoiceHTMLPath(n)
	if err != nil {
		h.writeError(w, err)
		return
	}
	http.ServeFile(w, r, htmlPath)
}

// PrintInvoicePDF handles POST /api/v1/invoices/{number}/pdf.
func (h *Handler) PrintInvoicePDF(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "billing session not configured", nil)
		return
	}
	n, ok := invoiceNumber(r)
	if !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "invoice not found", nil)
		return
	}
	pdfPath, err := h.Session.PrintInvoice(r.Context(), n)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"number": n, "pdfPath": pdfPath}})
}

// ExportCart handles GET /api/v1/cart/export as a CSV download.
func (h *Handler) ExportCart(w http.ResponseWriter, _ *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "billing session not configured", nil)
		return
	}
	var buf bytes.Buffer
	if err := h.Session.ExportCart(&buf); err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="cart.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// ExportCartFile handles POST /api/v1/cart/export, writing the CSV to disk.
// An empty body exports to a timestamped file under the exports dir.
func (h *Handler) ExportCartFile(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "billing session not configured", nil)
		return
	}
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if err := h.validate(req); err != nil {
		h.writeError(w, err)
		return
	}
	path, err := h.Session.ExportCartFile(strings.TrimSpace(req.Path))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"path": path}})
}

// ReloadCatalog handles POST /api/v1/catalog/reload. A path in the body
// replaces the configured products file before reloading.
func (h *Handler) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	if h.Session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "billing session not configured", nil)
		return
	}
	var req reloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if err := h.validate(req); err != nil {
		h.writeError(w, err)
		return
	}
	res, st, err := h.Session.ReloadCatalog(strings.TrimSpace(req.Path))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "RELOAD_FAILED", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"state":   st,
			"loaded":  len(res.Products),
			"missing": res.Missing,
		},
	})
}

func previewURL(n int) string {
	return fmt.Sprintf("/invoices/%d", n)
}

func invoiceNumber(r *http.Request) (int, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "number"))
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func (h *Handler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	err := h.Validate.Struct(payload)
	if err == nil {
		return nil
	}
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		details := make(map[string]string, len(invalid))
		for _, fe := range invalid {
			details[fe.Field()] = fe.Tag()
		}
		return &common.AppError{
			Code:       "VALIDATION",
			Message:    "invalid request",
			HTTPStatus: http.StatusBadRequest,
			Err:        err,
			Details:    details,
		}
	}
	return err
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		code := appErr.Code
		if code == "" {
			code = "BAD_REQUEST"
		}
		common.JSONError(w, status, code, appErr.Message, appErr.Details)
		return
	}
	switch {
	case errors.Is(err, cart.ErrInvalidQty):
		common.JSONError(w, http.StatusBadRequest, "INVALID_QTY", err.Error(), nil)
	case errors.Is(err, cart.ErrUnknownCode):
		common.JSONError(w, http.StatusNotFound, "UNKNOWN_CODE", err.Error(), nil)
	case errors.Is(err, session.ErrEmptyCart):
		common.JSONError(w, http.StatusConflict, "EMPTY_CART", err.Error(), nil)
	case errors.Is(err, session.ErrStaleToken):
		common.JSONError(w, http.StatusConflict, "STALE_TOKEN", err.Error(), nil)
	case errors.Is(err, session.ErrNoSuchInvoice):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, session.ErrPrintingDisabled), errors.Is(err, invoice.ErrChromeUnavailable):
		common.JSONError(w, http.StatusServiceUnavailable, "PRINTING_UNAVAILABLE", err.Error(), nil)
	default:
		h.Log.Error().Err(err).Msg("request failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
