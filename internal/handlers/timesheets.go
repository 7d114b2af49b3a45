package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"carestaff/internal/middleware"
	"carestaff/internal/services"

	"github.com/go-chi/chi/v5"
)

type startTimesheetRequest struct {
	ShiftID      string     `json:"shift_id"`
	ClockIn      *time.Time `json:"clock_in"`
	ClockOut     *time.Time `json:"clock_out"`
	BreakMinutes int        `json:"break_minutes"`
	WorkerNotes  string     `json:"worker_notes"`
	SubmitNow    bool       `json:"submit_now"`
}

func (h *Handler) StartTimesheet(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req startTimesheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.ShiftID == "" {
		respondError(w, http.StatusBadRequest, "shift_id is required")
		return
	}
	timesheet, err := h.timesheets.Start(r.Context(), principal, services.StartTimesheetRequest{
		ShiftID:      req.ShiftID,
		ClockIn:      req.ClockIn,
		ClockOut:     req.ClockOut,
		BreakMinutes: req.BreakMinutes,
		WorkerNotes:  req.WorkerNotes,
		SubmitNow:    req.SubmitNow,
	})
	if err != nil {
		respondServiceError(w, err, "unable to start timesheet")
		return
	}
	respondJSON(w, http.StatusCreated, timesheet)
}

type updateTimesheetRequest struct {
	ClockOut      *time.Time `json:"clock_out"`
	BreakMinutes  *int       `json:"break_minutes"`
	WorkerNotes   *string    `json:"worker_notes"`
	HasOvertime   *bool      `json:"has_overtime"`
	OvertimeHours *int64     `json:"overtime_hours_hundredths"`
	OvertimeRate  *int64     `json:"overtime_rate"`
	TotalHours    *int64     `json:"total_hours_hundredths"`
	TotalPay      *int64     `json:"total_pay"`
}

func (h *Handler) UpdateTimesheet(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req updateTimesheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	timesheet, err := h.timesheets.Update(r.Context(), principal, services.UpdateTimesheetRequest{
		TimesheetID:   chi.URLParam(r, "timesheetID"),
		ClockOut:      req.ClockOut,
		BreakMinutes:  req.BreakMinutes,
		WorkerNotes:   req.WorkerNotes,
		HasOvertime:   req.HasOvertime,
		OvertimeHours: req.OvertimeHours,
		OvertimeRate:  req.OvertimeRate,
		TotalHours:    req.TotalHours,
		TotalPay:      req.TotalPay,
	})
	if err != nil {
		respondServiceError(w, err, "unable to update timesheet")
		return
	}
	respondJSON(w, http.StatusOK, timesheet)
}

func (h *Handler) SubmitTimesheet(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	timesheet, err := h.timesheets.Submit(r.Context(), principal, chi.URLParam(r, "timesheetID"))
	if err != nil {
		respondServiceError(w, err, "unable to submit timesheet")
		return
	}
	respondJSON(w, http.StatusOK, timesheet)
}

func (h *Handler) ApproveTimesheet(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	timesheet, err := h.timesheets.Approve(r.Context(), principal, chi.URLParam(r, "timesheetID"))
	if err != nil {
		respondServiceError(w, err, "unable to approve timesheet")
		return
	}
	respondJSON(w, http.StatusOK, timesheet)
}

type managerNotesRequest struct {
	ManagerNotes string `json:"manager_notes"`
}

func (h *Handler) QueryTimesheet(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req managerNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	timesheet, err := h.timesheets.Query(r.Context(), principal, chi.URLParam(r, "timesheetID"), req.ManagerNotes)
	if err != nil {
		respondServiceError(w, err, "unable to query timesheet")
		return
	}
	respondJSON(w, http.StatusOK, timesheet)
}

func (h *Handler) RejectTimesheet(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req managerNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	timesheet, err := h.timesheets.Reject(r.Context(), principal, chi.URLParam(r, "timesheetID"), req.ManagerNotes)
	if err != nil {
		respondServiceError(w, err, "unable to reject timesheet")
		return
	}
	respondJSON(w, http.StatusOK, timesheet)
}

func (h *Handler) GetTimesheet(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	timesheet, err := h.timesheets.Get(r.Context(), principal, chi.URLParam(r, "timesheetID"))
	if err != nil {
		respondServiceError(w, err, "unable to load timesheet")
		return
	}
	respondJSON(w, http.StatusOK, timesheet)
}

func (h *Handler) ListMyTimesheets(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := parsePage(r.URL.Query())
	timesheets, err := h.timesheets.ListForWorker(r.Context(), principal, limit, offset)
	if err != nil {
		respondServiceError(w, err, "unable to load timesheets")
		return
	}
	respondJSON(w, http.StatusOK, timesheets)
}

func (h *Handler) ListCareHomeTimesheets(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := parsePage(r.URL.Query())
	timesheets, err := h.timesheets.ListForCareHome(r.Context(), principal,
		chi.URLParam(r, "careHomeID"), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		respondServiceError(w, err, "unable to load timesheets")
		return
	}
	respondJSON(w, http.StatusOK, timesheets)
}
