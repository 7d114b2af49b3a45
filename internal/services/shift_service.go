package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"carestaff/internal/db"
	"carestaff/internal/middleware"
	"carestaff/internal/models"
	"carestaff/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrShiftNotOpen      = errors.New("shift is not open for applications")
	ErrAlreadyApplied    = errors.New("already applied to this shift")
	ErrInvalidShiftTimes = errors.New("shift end must be after start")
)

type ShiftService struct {
	txRunner     db.TxRunner
	shifts       ShiftStore
	applications ApplicationStore
	audit        AuditStore
}

func NewShiftService(txRunner db.TxRunner, shifts ShiftStore, applications ApplicationStore, audit AuditStore) *ShiftService {
	return &ShiftService{
		txRunner:     txRunner,
		shifts:       shifts,
		applications: applications,
		audit:        audit,
	}
}

type CreateShiftRequest struct {
	CareHomeID   string
	Title        string
	RoleRequired string
	ShiftDate    time.Time
	StartTime    time.Time
	EndTime      time.Time
	HourlyRate   int64
	Description  string
	PublishNow   bool
}

func (s *ShiftService) Create(ctx context.Context, principal middleware.Principal, req CreateShiftRequest) (models.Shift, error) {
	if !principal.ManagesCareHome(req.CareHomeID) {
		return models.Shift{}, ErrAccessDenied
	}
	if req.HourlyRate <= 0 {
		return models.Shift{}, ErrInvalidAmount
	}
	if !req.EndTime.After(req.StartTime) {
		return models.Shift{}, ErrInvalidShiftTimes
	}
	status := models.ShiftDraft
	if req.PublishNow {
		status = models.ShiftPublished
	}
	shift := models.Shift{
		ID:           uuid.NewString(),
		CareHomeID:   req.CareHomeID,
		Title:        req.Title,
		RoleRequired: req.RoleRequired,
		ShiftDate:    req.ShiftDate,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		HourlyRate:   req.HourlyRate,
		Status:       status,
		Description:  req.Description,
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.shifts.Create(ctx, tx, store.ShiftInput{
			ID:           shift.ID,
			CareHomeID:   shift.CareHomeID,
			Title:        shift.Title,
			RoleRequired: shift.RoleRequired,
			ShiftDate:    shift.ShiftDate,
			StartTime:    shift.StartTime,
			EndTime:      shift.EndTime,
			HourlyRate:   shift.HourlyRate,
			Status:       shift.Status,
			Description:  shift.Description,
		}); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, principal.UserID, "shift_create", "shift", shift.ID, "{}")
	})
	if err != nil {
		return models.Shift{}, err
	}
	return shift, nil
}

func (s *ShiftService) Publish(ctx context.Context, principal middleware.Principal, shiftID string) (models.Shift, error) {
	return s.move(ctx, principal, shiftID, models.ShiftPublished, "shift_publish", models.ShiftDraft)
}

func (s *ShiftService) Cancel(ctx context.Context, principal middleware.Principal, shiftID string) (models.Shift, error) {
	return s.move(ctx, principal, shiftID, models.ShiftCancelled, "shift_cancel",
		models.ShiftDraft, models.ShiftPublished, models.ShiftFilled)
}

func (s *ShiftService) Complete(ctx context.Context, principal middleware.Principal, shiftID string) (models.Shift, error) {
	return s.move(ctx, principal, shiftID, models.ShiftCompleted, "shift_complete", models.ShiftFilled)
}

func (s *ShiftService) move(ctx context.Context, principal middleware.Principal, shiftID, status, action string, allowedFrom ...string) (models.Shift, error) {
	shift, err := s.getManaged(ctx, principal, shiftID)
	if err != nil {
		return models.Shift{}, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		moved, err := s.shifts.UpdateStatus(ctx, tx, shiftID, status, allowedFrom...)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrInvalidStateTransition
		}
		return s.audit.Log(ctx, tx, principal.UserID, action, "shift", shiftID, "{}")
	})
	if err != nil {
		return models.Shift{}, err
	}
	shift.Status = status
	return shift, nil
}

// Apply files a worker's application for a published shift. The unique index
// on (shift_id, worker_id) rejects a second application from the same worker.
func (s *ShiftService) Apply(ctx context.Context, principal middleware.Principal, shiftID, coverNote string) (models.Application, error) {
	if !principal.IsWorker() {
		return models.Application{}, ErrAccessDenied
	}
	shift, err := s.shifts.GetByID(ctx, shiftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Application{}, ErrNotFound
		}
		return models.Application{}, err
	}
	if shift.Status != models.ShiftPublished {
		return models.Application{}, ErrShiftNotOpen
	}
	application := models.Application{
		ID:        uuid.NewString(),
		ShiftID:   shiftID,
		WorkerID:  principal.UserID,
		Status:    models.ApplicationPending,
		CoverNote: coverNote,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.applications.Create(ctx, tx, application.ID, shiftID, principal.UserID, coverNote); err != nil {
			if store.IsUniqueViolation(err) {
				return ErrAlreadyApplied
			}
			return err
		}
		return s.audit.Log(ctx, tx, principal.UserID, "application_create", "application", application.ID, "{}")
	})
	if err != nil {
		return models.Application{}, err
	}
	return application, nil
}

func (s *ShiftService) Withdraw(ctx context.Context, principal middleware.Principal, applicationID string) error {
	if !principal.IsWorker() {
		return ErrAccessDenied
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		moved, err := s.applications.Withdraw(ctx, tx, applicationID, principal.UserID)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrInvalidStateTransition
		}
		return s.audit.Log(ctx, tx, principal.UserID, "application_withdraw", "application", applicationID, "{}")
	})
}

// Accept fills the shift with the chosen worker and closes out the other
// pending applications in the same transaction.
func (s *ShiftService) Accept(ctx context.Context, principal middleware.Principal, applicationID string) (models.Application, error) {
	application, shift, err := s.getDecidable(ctx, principal, applicationID)
	if err != nil {
		return models.Application{}, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		moved, err := s.applications.Decide(ctx, tx, applicationID, models.ApplicationAccepted, principal.UserID)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrInvalidStateTransition
		}
		if _, err := s.applications.RejectOtherPending(ctx, tx, shift.ID, applicationID, principal.UserID); err != nil {
			return err
		}
		moved, err = s.shifts.UpdateStatus(ctx, tx, shift.ID, models.ShiftFilled, models.ShiftPublished)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrInvalidStateTransition
		}
		data, _ := json.Marshal(map[string]string{"worker_id": application.WorkerID})
		return s.audit.Log(ctx, tx, principal.UserID, "application_accept", "application", applicationID, string(data))
	})
	if err != nil {
		return models.Application{}, err
	}
	application.Status = models.ApplicationAccepted
	return application, nil
}

func (s *ShiftService) RejectApplication(ctx context.Context, principal middleware.Principal, applicationID string) (models.Application, error) {
	application, _, err := s.getDecidable(ctx, principal, applicationID)
	if err != nil {
		return models.Application{}, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		moved, err := s.applications.Decide(ctx, tx, applicationID, models.ApplicationRejected, principal.UserID)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrInvalidStateTransition
		}
		return s.audit.Log(ctx, tx, principal.UserID, "application_reject", "application", applicationID, "{}")
	})
	if err != nil {
		return models.Application{}, err
	}
	application.Status = models.ApplicationRejected
	return application, nil
}

func (s *ShiftService) ListOpen(ctx context.Context, limit, offset int) ([]models.Shift, error) {
	return s.shifts.ListOpen(ctx, limit, offset)
}

func (s *ShiftService) ListForCareHome(ctx context.Context, principal middleware.Principal, careHomeID string, limit, offset int) ([]models.Shift, error) {
	if !principal.ManagesCareHome(careHomeID) {
		return nil, ErrAccessDenied
	}
	return s.shifts.ListByCareHome(ctx, careHomeID, limit, offset)
}

func (s *ShiftService) ListApplications(ctx context.Context, principal middleware.Principal, shiftID string) ([]models.Application, error) {
	if _, err := s.getManaged(ctx, principal, shiftID); err != nil {
		return nil, err
	}
	return s.applications.ListByShift(ctx, shiftID)
}

func (s *ShiftService) ListWorkerApplications(ctx context.Context, principal middleware.Principal, limit, offset int) ([]models.Application, error) {
	if !principal.IsWorker() {
		return nil, ErrAccessDenied
	}
	return s.applications.ListByWorker(ctx, principal.UserID, limit, offset)
}

func (s *ShiftService) getManaged(ctx context.Context, principal middleware.Principal, shiftID string) (models.Shift, error) {
	shift, err := s.shifts.GetByID(ctx, shiftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Shift{}, ErrNotFound
		}
		return models.Shift{}, err
	}
	if !principal.ManagesCareHome(shift.CareHomeID) {
		return models.Shift{}, ErrAccessDenied
	}
	return shift, nil
}

func (s *ShiftService) getDecidable(ctx context.Context, principal middleware.Principal, applicationID string) (models.Application, models.Shift, error) {
	application, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Application{}, models.Shift{}, ErrNotFound
		}
		return models.Application{}, models.Shift{}, err
	}
	shift, err := s.getManaged(ctx, principal, application.ShiftID)
	if err != nil {
		return models.Application{}, models.Shift{}, err
	}
	return application, shift, nil
}
