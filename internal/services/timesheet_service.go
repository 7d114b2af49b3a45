package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"time"

	"carestaff/internal/db"
	"carestaff/internal/middleware"
	"carestaff/internal/models"
	"carestaff/internal/notify"
	"carestaff/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrTimesheetExists        = errors.New("timesheet already exists for this shift")
	ErrNoAcceptedApplication  = errors.New("no accepted application for this shift")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrClockOutBeforeClockIn  = errors.New("clock out must be after clock in")
	ErrMissingClockTimes      = errors.New("both clock in and clock out are required")
	ErrManagerNotesRequired   = errors.New("manager notes are required")
)

type TimesheetService struct {
	txRunner     db.TxRunner
	timesheets   TimesheetStore
	shifts       ShiftStore
	applications ApplicationStore
	audit        AuditStore
	notifier     notify.Notifier
}

func NewTimesheetService(txRunner db.TxRunner, timesheets TimesheetStore, shifts ShiftStore, applications ApplicationStore, audit AuditStore, notifier notify.Notifier) *TimesheetService {
	return &TimesheetService{
		txRunner:     txRunner,
		timesheets:   timesheets,
		shifts:       shifts,
		applications: applications,
		audit:        audit,
		notifier:     notifier,
	}
}

type StartTimesheetRequest struct {
	ShiftID      string
	ClockIn      *time.Time
	ClockOut     *time.Time
	BreakMinutes int
	WorkerNotes  string
	SubmitNow    bool
}

// Start creates a worker's timesheet for a shift they were accepted onto.
// The hourly rate is snapshotted from the shift at creation so later rate
// edits never reprice clocked work.
func (s *TimesheetService) Start(ctx context.Context, principal middleware.Principal, req StartTimesheetRequest) (models.Timesheet, error) {
	if !principal.IsWorker() {
		return models.Timesheet{}, ErrAccessDenied
	}
	shift, err := s.shifts.GetByID(ctx, req.ShiftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Timesheet{}, ErrNotFound
		}
		return models.Timesheet{}, err
	}
	accepted, err := s.applications.HasAccepted(ctx, req.ShiftID, principal.UserID)
	if err != nil {
		return models.Timesheet{}, err
	}
	if !accepted {
		return models.Timesheet{}, ErrNoAcceptedApplication
	}
	exists, err := s.timesheets.Exists(ctx, req.ShiftID, principal.UserID)
	if err != nil {
		return models.Timesheet{}, err
	}
	if exists {
		return models.Timesheet{}, ErrTimesheetExists
	}
	clockIn := time.Now().UTC()
	if req.ClockIn != nil {
		clockIn = req.ClockIn.UTC()
	}
	if req.SubmitNow && req.ClockOut == nil {
		return models.Timesheet{}, ErrMissingClockTimes
	}
	if req.ClockOut != nil && !req.ClockOut.After(clockIn) {
		return models.Timesheet{}, ErrClockOutBeforeClockIn
	}

	timesheet := models.Timesheet{
		ID:           uuid.NewString(),
		ShiftID:      shift.ID,
		WorkerID:     principal.UserID,
		CareHomeID:   shift.CareHomeID,
		ClockIn:      clockIn,
		BreakMinutes: req.BreakMinutes,
		HourlyRate:   shift.HourlyRate,
		Status:       models.TimesheetDraft,
		WorkerNotes:  req.WorkerNotes,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.timesheets.Create(ctx, tx, store.TimesheetInput{
			ID:           timesheet.ID,
			ShiftID:      timesheet.ShiftID,
			WorkerID:     timesheet.WorkerID,
			CareHomeID:   timesheet.CareHomeID,
			ClockIn:      timesheet.ClockIn,
			BreakMinutes: timesheet.BreakMinutes,
			HourlyRate:   timesheet.HourlyRate,
			Status:       models.TimesheetDraft,
			WorkerNotes:  timesheet.WorkerNotes,
		}); err != nil {
			return err
		}
		if req.ClockOut != nil {
			clockOut := req.ClockOut.UTC()
			timesheet.ClockOut = &clockOut
			deriveTotals(&timesheet, nil, nil)
			if _, err := s.timesheets.Update(ctx, tx, timesheet); err != nil {
				return err
			}
		}
		if req.SubmitNow {
			if _, err := s.timesheets.Submit(ctx, tx, timesheet.ID); err != nil {
				return err
			}
			timesheet.Status = models.TimesheetSubmitted
		}
		data, _ := json.Marshal(map[string]string{"shift_id": shift.ID})
		return s.audit.Log(ctx, tx, principal.UserID, "timesheet_start", "timesheet", timesheet.ID, string(data))
	})
	if err != nil {
		return models.Timesheet{}, err
	}
	return timesheet, nil
}

type UpdateTimesheetRequest struct {
	TimesheetID   string
	ClockOut      *time.Time
	BreakMinutes  *int
	WorkerNotes   *string
	HasOvertime   *bool
	OvertimeHours *int64 // hundredths
	OvertimeRate  *int64 // minor units; nil keeps the 1.5x default
	// Explicit totals override derivation for this update. Absent, both are
	// recomputed from the clock fields whenever clock out is known.
	TotalHours *int64
	TotalPay   *int64
}

// Update applies clock-out and related edits while the timesheet is still
// editable (draft, queried or submitted).
func (s *TimesheetService) Update(ctx context.Context, principal middleware.Principal, req UpdateTimesheetRequest) (models.Timesheet, error) {
	timesheet, err := s.getOwned(ctx, principal, req.TimesheetID)
	if err != nil {
		return models.Timesheet{}, err
	}
	if !timesheetEditable(timesheet.Status) {
		return models.Timesheet{}, ErrInvalidStateTransition
	}
	if req.ClockOut != nil {
		clockOut := req.ClockOut.UTC()
		if !clockOut.After(timesheet.ClockIn) {
			return models.Timesheet{}, ErrClockOutBeforeClockIn
		}
		timesheet.ClockOut = &clockOut
	}
	if req.BreakMinutes != nil {
		timesheet.BreakMinutes = *req.BreakMinutes
	}
	if req.WorkerNotes != nil {
		timesheet.WorkerNotes = *req.WorkerNotes
	}
	if req.HasOvertime != nil {
		timesheet.HasOvertime = *req.HasOvertime
	}
	if req.OvertimeHours != nil {
		timesheet.OvertimeHours = *req.OvertimeHours
	}
	if req.OvertimeRate != nil {
		timesheet.OvertimeRate = req.OvertimeRate
	}
	deriveTotals(&timesheet, req.TotalHours, req.TotalPay)

	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		moved, err := s.timesheets.Update(ctx, tx, timesheet)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrInvalidStateTransition
		}
		return s.audit.Log(ctx, tx, principal.UserID, "timesheet_update", "timesheet", timesheet.ID, "{}")
	})
	if err != nil {
		return models.Timesheet{}, err
	}
	return timesheet, nil
}

// Submit moves a draft or queried timesheet to submitted. Both clock times
// must be present so the manager reviews a priced sheet.
func (s *TimesheetService) Submit(ctx context.Context, principal middleware.Principal, timesheetID string) (models.Timesheet, error) {
	timesheet, err := s.getOwned(ctx, principal, timesheetID)
	if err != nil {
		return models.Timesheet{}, err
	}
	if timesheet.ClockOut == nil {
		return models.Timesheet{}, ErrMissingClockTimes
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		moved, err := s.timesheets.Submit(ctx, tx, timesheetID)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrInvalidStateTransition
		}
		return s.audit.Log(ctx, tx, principal.UserID, "timesheet_submit", "timesheet", timesheetID, "{}")
	})
	if err != nil {
		return models.Timesheet{}, err
	}
	timesheet.Status = models.TimesheetSubmitted
	return timesheet, nil
}

// Approve is manager-only and records who approved and when.
func (s *TimesheetService) Approve(ctx context.Context, principal middleware.Principal, timesheetID string) (models.Timesheet, error) {
	timesheet, err := s.getManaged(ctx, principal, timesheetID)
	if err != nil {
		return models.Timesheet{}, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		moved, err := s.timesheets.Approve(ctx, tx, timesheetID, principal.UserID)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrInvalidStateTransition
		}
		return s.audit.Log(ctx, tx, principal.UserID, "timesheet_approve", "timesheet", timesheetID, "{}")
	})
	if err != nil {
		return models.Timesheet{}, err
	}
	timesheet.Status = models.TimesheetApproved
	s.notifyWorker(ctx, timesheet, notify.TemplateTimesheetApproved, "")
	return timesheet, nil
}

// Query sends a timesheet back to the worker with the manager's concerns.
func (s *TimesheetService) Query(ctx context.Context, principal middleware.Principal, timesheetID, managerNotes string) (models.Timesheet, error) {
	if managerNotes == "" {
		return models.Timesheet{}, ErrManagerNotesRequired
	}
	timesheet, err := s.getManaged(ctx, principal, timesheetID)
	if err != nil {
		return models.Timesheet{}, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		moved, err := s.timesheets.MarkQueried(ctx, tx, timesheetID, managerNotes)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrInvalidStateTransition
		}
		return s.audit.Log(ctx, tx, principal.UserID, "timesheet_query", "timesheet", timesheetID, "{}")
	})
	if err != nil {
		return models.Timesheet{}, err
	}
	timesheet.Status = models.TimesheetQueried
	timesheet.ManagerNotes = managerNotes
	s.notifyWorker(ctx, timesheet, notify.TemplateTimesheetQueried, managerNotes)
	return timesheet, nil
}

// Reject is terminal; the timesheet can never be resubmitted or paid.
func (s *TimesheetService) Reject(ctx context.Context, principal middleware.Principal, timesheetID, managerNotes string) (models.Timesheet, error) {
	if managerNotes == "" {
		return models.Timesheet{}, ErrManagerNotesRequired
	}
	timesheet, err := s.getManaged(ctx, principal, timesheetID)
	if err != nil {
		return models.Timesheet{}, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		moved, err := s.timesheets.Reject(ctx, tx, timesheetID, managerNotes)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrInvalidStateTransition
		}
		return s.audit.Log(ctx, tx, principal.UserID, "timesheet_reject", "timesheet", timesheetID, "{}")
	})
	if err != nil {
		return models.Timesheet{}, err
	}
	timesheet.Status = models.TimesheetRejected
	timesheet.ManagerNotes = managerNotes
	s.notifyWorker(ctx, timesheet, notify.TemplateTimesheetRejected, managerNotes)
	return timesheet, nil
}

func (s *TimesheetService) Get(ctx context.Context, principal middleware.Principal, timesheetID string) (models.Timesheet, error) {
	timesheet, err := s.timesheets.GetByID(ctx, timesheetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Timesheet{}, ErrNotFound
		}
		return models.Timesheet{}, err
	}
	if principal.IsAdmin() || timesheet.WorkerID == principal.UserID || principal.ManagesCareHome(timesheet.CareHomeID) {
		return timesheet, nil
	}
	return models.Timesheet{}, ErrAccessDenied
}

func (s *TimesheetService) ListForWorker(ctx context.Context, principal middleware.Principal, limit, offset int) ([]models.Timesheet, error) {
	if !principal.IsWorker() {
		return nil, ErrAccessDenied
	}
	return s.timesheets.ListByWorker(ctx, principal.UserID, limit, offset)
}

func (s *TimesheetService) ListForCareHome(ctx context.Context, principal middleware.Principal, careHomeID, status string, limit, offset int) ([]models.Timesheet, error) {
	if !principal.ManagesCareHome(careHomeID) {
		return nil, ErrAccessDenied
	}
	return s.timesheets.ListByCareHome(ctx, careHomeID, status, limit, offset)
}

func (s *TimesheetService) getOwned(ctx context.Context, principal middleware.Principal, timesheetID string) (models.Timesheet, error) {
	timesheet, err := s.timesheets.GetByID(ctx, timesheetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Timesheet{}, ErrNotFound
		}
		return models.Timesheet{}, err
	}
	if timesheet.WorkerID != principal.UserID && !principal.IsAdmin() {
		return models.Timesheet{}, ErrAccessDenied
	}
	return timesheet, nil
}

func (s *TimesheetService) getManaged(ctx context.Context, principal middleware.Principal, timesheetID string) (models.Timesheet, error) {
	timesheet, err := s.timesheets.GetByID(ctx, timesheetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Timesheet{}, ErrNotFound
		}
		return models.Timesheet{}, err
	}
	if !principal.ManagesCareHome(timesheet.CareHomeID) {
		return models.Timesheet{}, ErrAccessDenied
	}
	return timesheet, nil
}

func (s *TimesheetService) notifyWorker(ctx context.Context, timesheet models.Timesheet, template, managerNotes string) {
	data := map[string]string{"timesheet_id": timesheet.ID}
	if managerNotes != "" {
		data["manager_notes"] = managerNotes
	}
	if err := s.notifier.Send(ctx, timesheet.WorkerID, template, data); err != nil {
		log.Printf("notification failed for timesheet %s: %v", timesheet.ID, err)
	}
}

func timesheetEditable(status string) bool {
	switch status {
	case models.TimesheetDraft, models.TimesheetQueried, models.TimesheetSubmitted:
		return true
	}
	return false
}

// deriveTotals computes hours and pay from the clock fields once clock out is
// known. Values explicitly supplied by the caller win over derivation.
func deriveTotals(t *models.Timesheet, explicitHours, explicitPay *int64) {
	if explicitHours != nil {
		t.TotalHours = explicitHours
	}
	if explicitPay != nil {
		t.TotalPay = explicitPay
	}
	if t.ClockOut == nil {
		return
	}
	if explicitHours == nil {
		hours := ComputeHours(t.ClockIn, *t.ClockOut, t.BreakMinutes)
		t.TotalHours = &hours
	}
	if explicitPay == nil {
		pay := ComputePay(*t.TotalHours, t.HourlyRate, t.HasOvertime, t.OvertimeHours, t.OvertimeRate)
		t.TotalPay = &pay
	}
}
