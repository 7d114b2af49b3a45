package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"carestaff/internal/middleware"
	"carestaff/internal/services"

	"github.com/go-chi/chi/v5"
)

type createShiftRequest struct {
	CareHomeID   string    `json:"care_home_id"`
	Title        string    `json:"title"`
	RoleRequired string    `json:"role_required"`
	ShiftDate    time.Time `json:"shift_date"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	HourlyRate   string    `json:"hourly_rate"`
	Description  string    `json:"description"`
	PublishNow   bool      `json:"publish_now"`
}

func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	hourlyRate, err := parseAmountMinor(req.HourlyRate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_hourly_rate")
		return
	}
	shift, err := h.shifts.Create(r.Context(), principal, services.CreateShiftRequest{
		CareHomeID:   req.CareHomeID,
		Title:        req.Title,
		RoleRequired: req.RoleRequired,
		ShiftDate:    req.ShiftDate,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		HourlyRate:   hourlyRate,
		Description:  req.Description,
		PublishNow:   req.PublishNow,
	})
	if err != nil {
		respondServiceError(w, err, "unable to create shift")
		return
	}
	respondJSON(w, http.StatusCreated, shift)
}

func (h *Handler) PublishShift(w http.ResponseWriter, r *http.Request) {
	h.moveShift(w, r, "publish")
}

func (h *Handler) CancelShift(w http.ResponseWriter, r *http.Request) {
	h.moveShift(w, r, "cancel")
}

func (h *Handler) CompleteShift(w http.ResponseWriter, r *http.Request) {
	h.moveShift(w, r, "complete")
}

func (h *Handler) moveShift(w http.ResponseWriter, r *http.Request, action string) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	shiftID := chi.URLParam(r, "shiftID")
	var move func() (any, error)
	switch action {
	case "publish":
		move = func() (any, error) { return h.shifts.Publish(r.Context(), principal, shiftID) }
	case "cancel":
		move = func() (any, error) { return h.shifts.Cancel(r.Context(), principal, shiftID) }
	default:
		move = func() (any, error) { return h.shifts.Complete(r.Context(), principal, shiftID) }
	}
	shift, err := move()
	if err != nil {
		respondServiceError(w, err, "unable to update shift")
		return
	}
	respondJSON(w, http.StatusOK, shift)
}

type applyRequest struct {
	CoverNote string `json:"cover_note"`
}

func (h *Handler) ApplyToShift(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	application, err := h.shifts.Apply(r.Context(), principal, chi.URLParam(r, "shiftID"), req.CoverNote)
	if err != nil {
		respondServiceError(w, err, "unable to apply")
		return
	}
	respondJSON(w, http.StatusCreated, application)
}

func (h *Handler) WithdrawApplication(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.shifts.Withdraw(r.Context(), principal, chi.URLParam(r, "applicationID")); err != nil {
		respondServiceError(w, err, "unable to withdraw application")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

func (h *Handler) AcceptApplication(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	application, err := h.shifts.Accept(r.Context(), principal, chi.URLParam(r, "applicationID"))
	if err != nil {
		respondServiceError(w, err, "unable to accept application")
		return
	}
	respondJSON(w, http.StatusOK, application)
}

func (h *Handler) RejectApplication(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	application, err := h.shifts.RejectApplication(r.Context(), principal, chi.URLParam(r, "applicationID"))
	if err != nil {
		respondServiceError(w, err, "unable to reject application")
		return
	}
	respondJSON(w, http.StatusOK, application)
}

func (h *Handler) ListOpenShifts(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePage(r.URL.Query())
	shifts, err := h.shifts.ListOpen(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load shifts")
		return
	}
	respondJSON(w, http.StatusOK, shifts)
}

func (h *Handler) ListCareHomeShifts(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := parsePage(r.URL.Query())
	shifts, err := h.shifts.ListForCareHome(r.Context(), principal, chi.URLParam(r, "careHomeID"), limit, offset)
	if err != nil {
		respondServiceError(w, err, "unable to load shifts")
		return
	}
	respondJSON(w, http.StatusOK, shifts)
}

func (h *Handler) ListShiftApplications(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	applications, err := h.shifts.ListApplications(r.Context(), principal, chi.URLParam(r, "shiftID"))
	if err != nil {
		respondServiceError(w, err, "unable to load applications")
		return
	}
	respondJSON(w, http.StatusOK, applications)
}

func (h *Handler) ListMyApplications(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := parsePage(r.URL.Query())
	applications, err := h.shifts.ListWorkerApplications(r.Context(), principal, limit, offset)
	if err != nil {
		respondServiceError(w, err, "unable to load applications")
		return
	}
	respondJSON(w, http.StatusOK, applications)
}
