package handlers

import (
	"encoding/json"
	"net/http"

	"carestaff/internal/middleware"
	"carestaff/internal/services"
)

type registerRequest struct {
	Username     string  `json:"username"`
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	Role         string  `json:"role"`
	CareHomeID   *string `json:"care_home_id"`
	CareHomeName *string `json:"care_home_name"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	user, err := h.auth.Register(r.Context(), services.RegisterRequest{
		Username:     req.Username,
		Email:        req.Email,
		Password:     req.Password,
		Role:         req.Role,
		CareHomeID:   req.CareHomeID,
		CareHomeName: req.CareHomeName,
	})
	if err != nil {
		respondServiceError(w, err, "registration_failed")
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, err, "login_failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.auth.Me(r.Context(), principal)
	if err != nil {
		respondServiceError(w, err, "unable to load user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *Handler) ListCareHomes(w http.ResponseWriter, r *http.Request) {
	homes, err := h.auth.ListCareHomes(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load care homes")
		return
	}
	respondJSON(w, http.StatusOK, homes)
}
