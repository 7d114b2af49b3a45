package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"carestaff/internal/middleware"
	"carestaff/internal/models"
	"carestaff/internal/services"
	"carestaff/internal/websocket"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	kind, ok := parseOwnerKind(chi.URLParam(r, "ownerKind"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid owner kind")
		return
	}
	owner := models.OwnerRef{Kind: kind, ID: chi.URLParam(r, "ownerID")}
	wallet, err := h.wallets.GetWallet(r.Context(), principal, owner)
	if err != nil {
		respondServiceError(w, err, "unable to load wallet")
		return
	}
	respondJSON(w, http.StatusOK, wallet)
}

type mutationRequest struct {
	Amount          string            `json:"amount"`
	Category        string            `json:"category"`
	Description     string            `json:"description"`
	Reason          *string           `json:"reason"`
	Metadata        map[string]string `json:"metadata"`
	ClientRequestID *string           `json:"client_request_id"`
}

// parseMutation accepts either a JSON body or a multipart form carrying the
// same fields plus an optional proof file, which is stored to disk and
// referenced from the ledger entry.
func (h *Handler) parseMutation(r *http.Request) (mutationRequest, *string, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			return mutationRequest{}, nil, err
		}
		req := mutationRequest{
			Amount:      r.FormValue("amount"),
			Category:    r.FormValue("category"),
			Description: r.FormValue("description"),
		}
		if reason := r.FormValue("reason"); reason != "" {
			req.Reason = &reason
		}
		if clientRequestID := r.FormValue("client_request_id"); clientRequestID != "" {
			req.ClientRequestID = &clientRequestID
		}
		file, header, err := r.FormFile("proof")
		if err == http.ErrMissingFile {
			return req, nil, nil
		}
		if err != nil {
			return mutationRequest{}, nil, err
		}
		defer file.Close()
		path, err := h.storage.Save("proofs", header.Filename, file)
		if err != nil {
			return mutationRequest{}, nil, err
		}
		return req, &path, nil
	}
	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return mutationRequest{}, nil, err
	}
	return req, nil, nil
}

func (h *Handler) Credit(w http.ResponseWriter, r *http.Request) {
	h.mutateWallet(w, r, models.DirectionCredit)
}

func (h *Handler) Debit(w http.ResponseWriter, r *http.Request) {
	h.mutateWallet(w, r, models.DirectionDebit)
}

func (h *Handler) mutateWallet(w http.ResponseWriter, r *http.Request, direction string) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	kind, ok := parseOwnerKind(chi.URLParam(r, "ownerKind"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid owner kind")
		return
	}
	req, proofPath, err := h.parseMutation(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amountMinor, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	mutation := services.MutationRequest{
		Owner:           models.OwnerRef{Kind: kind, ID: chi.URLParam(r, "ownerID")},
		AmountMinor:     amountMinor,
		Category:        req.Category,
		Description:     req.Description,
		Reason:          req.Reason,
		ProofPath:       proofPath,
		Metadata:        req.Metadata,
		ClientRequestID: req.ClientRequestID,
	}
	var entry models.WalletTransaction
	if direction == models.DirectionCredit {
		entry, err = h.wallets.Credit(r.Context(), principal, mutation)
	} else {
		entry, err = h.wallets.Debit(r.Context(), principal, mutation)
	}
	if err != nil {
		respondServiceError(w, err, "wallet_mutation_failed")
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

func (h *Handler) WalletHistory(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := parsePage(r.URL.Query())
	entries, err := h.wallets.History(r.Context(), principal, chi.URLParam(r, "walletID"), limit, offset)
	if err != nil {
		respondServiceError(w, err, "unable to load transactions")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *Handler) ReconcileWallet(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	result, err := h.wallets.Reconcile(r.Context(), principal, chi.URLParam(r, "walletID"))
	if err != nil {
		respondServiceError(w, err, "unable to reconcile wallet")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// WSWallets subscribes the caller to balance pushes for a wallet owner. The
// token rides the query string because browsers cannot set headers on
// websocket dials.
func (h *Handler) WSWallets(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromToken(h.cfg.JWTSecret, r.URL.Query().Get("token"))
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	kind, ok := parseOwnerKind(r.URL.Query().Get("owner_kind"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid owner kind")
		return
	}
	owner := models.OwnerRef{Kind: kind, ID: r.URL.Query().Get("owner_id")}
	// A missing wallet is fine: the subscription outlives its creation.
	if _, err := h.wallets.GetWallet(r.Context(), principal, owner); err != nil && !errors.Is(err, services.ErrNotFound) {
		respondServiceError(w, err, "unable to subscribe")
		return
	}
	websocket.ServeWS(w, r, h.hub, services.OwnerKey(owner))
}
