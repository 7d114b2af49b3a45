package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"carestaff/internal/middleware"
	"carestaff/internal/services"

	"github.com/go-chi/chi/v5"
)

type createInvoiceRequest struct {
	CareHomeID   string    `json:"care_home_id"`
	TimesheetIDs []string  `json:"timesheet_ids"`
	PeriodStart  time.Time `json:"period_start"`
	PeriodEnd    time.Time `json:"period_end"`
	TaxRateBps   int64     `json:"tax_rate_bps"`
	DueDate      time.Time `json:"due_date"`
	Notes        string    `json:"notes"`
}

func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.CareHomeID == "" {
		respondError(w, http.StatusBadRequest, "care_home_id is required")
		return
	}
	invoice, err := h.invoices.Create(r.Context(), principal, services.CreateInvoiceRequest{
		CareHomeID:   req.CareHomeID,
		TimesheetIDs: req.TimesheetIDs,
		PeriodStart:  req.PeriodStart,
		PeriodEnd:    req.PeriodEnd,
		TaxRateBps:   req.TaxRateBps,
		DueDate:      req.DueDate,
		Notes:        req.Notes,
	})
	if err != nil {
		respondServiceError(w, err, "unable to create invoice")
		return
	}
	respondJSON(w, http.StatusCreated, invoice)
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	invoice, timesheets, err := h.invoices.Get(r.Context(), principal, chi.URLParam(r, "invoiceID"))
	if err != nil {
		respondServiceError(w, err, "unable to load invoice")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"invoice":    invoice,
		"timesheets": timesheets,
	})
}

func (h *Handler) SendInvoice(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	invoice, err := h.invoices.Send(r.Context(), principal, chi.URLParam(r, "invoiceID"))
	if err != nil {
		respondServiceError(w, err, "unable to send invoice")
		return
	}
	respondJSON(w, http.StatusOK, invoice)
}

func (h *Handler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	invoice, err := h.invoices.Cancel(r.Context(), principal, chi.URLParam(r, "invoiceID"))
	if err != nil {
		respondServiceError(w, err, "unable to cancel invoice")
		return
	}
	respondJSON(w, http.StatusOK, invoice)
}

type payInvoiceRequest struct {
	Confirm         bool    `json:"confirm"`
	ClientRequestID *string `json:"client_request_id"`
}

func (h *Handler) PayInvoice(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req payInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if !req.Confirm {
		respondError(w, http.StatusBadRequest, "confirmation_required")
		return
	}
	invoice, err := h.invoices.Pay(r.Context(), principal, services.PayInvoiceRequest{
		InvoiceID:       chi.URLParam(r, "invoiceID"),
		ClientRequestID: req.ClientRequestID,
	})
	if err != nil {
		respondServiceError(w, err, "unable to pay invoice")
		return
	}
	respondJSON(w, http.StatusOK, invoice)
}

func (h *Handler) ListCareHomeInvoices(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := parsePage(r.URL.Query())
	invoices, err := h.invoices.ListForCareHome(r.Context(), principal, chi.URLParam(r, "careHomeID"), limit, offset)
	if err != nil {
		respondServiceError(w, err, "unable to load invoices")
		return
	}
	respondJSON(w, http.StatusOK, invoices)
}
