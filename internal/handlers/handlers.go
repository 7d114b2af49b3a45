package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"carestaff/internal/services"
	"carestaff/internal/store"
	"carestaff/internal/validator"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the services' sentinel errors onto HTTP statuses.
// fallback names the operation that failed when nothing more precise applies.
func respondServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, services.ErrAccessDenied):
		respondError(w, http.StatusForbidden, "access_denied")
	case errors.Is(err, services.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "invalid_amount")
	case errors.Is(err, services.ErrInvalidCategory):
		respondError(w, http.StatusBadRequest, "invalid_category")
	case errors.Is(err, services.ErrInsufficientBalance):
		respondError(w, http.StatusBadRequest, "insufficient_balance")
	case errors.Is(err, services.ErrWalletNotEmpty):
		respondError(w, http.StatusConflict, "wallet_not_empty")
	case errors.Is(err, services.ErrInvalidStateTransition):
		respondError(w, http.StatusConflict, "invalid_state_transition")
	case errors.Is(err, services.ErrTimesheetExists):
		respondError(w, http.StatusConflict, "timesheet_exists")
	case errors.Is(err, services.ErrNoAcceptedApplication):
		respondError(w, http.StatusForbidden, "no_accepted_application")
	case errors.Is(err, services.ErrClockOutBeforeClockIn):
		respondError(w, http.StatusBadRequest, "clock_out_before_clock_in")
	case errors.Is(err, services.ErrMissingClockTimes):
		respondError(w, http.StatusBadRequest, "clock_times_required")
	case errors.Is(err, services.ErrManagerNotesRequired):
		respondError(w, http.StatusBadRequest, "manager_notes_required")
	case errors.Is(err, services.ErrNoTimesheets):
		respondError(w, http.StatusBadRequest, "no_timesheets")
	case errors.Is(err, services.ErrTimesheetNotInvoiceable):
		respondError(w, http.StatusConflict, "timesheet_not_invoiceable")
	case errors.Is(err, services.ErrInvalidTaxRate):
		respondError(w, http.StatusBadRequest, "invalid_tax_rate")
	case errors.Is(err, services.ErrShiftNotOpen):
		respondError(w, http.StatusConflict, "shift_not_open")
	case errors.Is(err, services.ErrAlreadyApplied):
		respondError(w, http.StatusConflict, "already_applied")
	case errors.Is(err, services.ErrInvalidShiftTimes):
		respondError(w, http.StatusBadRequest, "invalid_shift_times")
	case errors.Is(err, services.ErrDuplicateUser):
		respondError(w, http.StatusConflict, "user_exists")
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid_credentials")
	case errors.Is(err, services.ErrCareHomeRequired):
		respondError(w, http.StatusBadRequest, "care_home_required")
	case errors.Is(err, validator.ErrInvalidEmail),
		errors.Is(err, validator.ErrInvalidUsername),
		errors.Is(err, validator.ErrInvalidPassword),
		errors.Is(err, validator.ErrInvalidRole):
		respondError(w, http.StatusBadRequest, err.Error())
	case store.IsUniqueViolation(err):
		respondError(w, http.StatusConflict, "duplicate_request")
	default:
		respondError(w, http.StatusInternalServerError, fallback)
	}
}
