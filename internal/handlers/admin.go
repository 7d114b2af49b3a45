package handlers

import (
	"net/http"

	"carestaff/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) AdminListWallets(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePage(r.URL.Query())
	wallets, err := h.walletRows.ListAll(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load wallets")
		return
	}
	respondJSON(w, http.StatusOK, wallets)
}

func (h *Handler) AdminCloseWallet(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	walletID := chi.URLParam(r, "walletID")
	if err := h.wallets.Close(r.Context(), principal, walletID); err != nil {
		respondServiceError(w, err, "unable to close wallet")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"wallet_id": walletID, "status": "closed"})
}

func (h *Handler) AdminListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePage(r.URL.Query())
	logs, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load audit logs")
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

func (h *Handler) AdminSweepOverdue(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	flipped, err := h.invoices.SweepOverdue(r.Context(), principal)
	if err != nil {
		respondServiceError(w, err, "unable to sweep invoices")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"flipped": flipped})
}
