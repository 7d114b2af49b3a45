package store

import (
	"context"
	"time"

	"carestaff/internal/models"

	"github.com/lib/pq"
)

type TimesheetStore struct {
	db DB
}

func NewTimesheetStore(db DB) *TimesheetStore {
	return &TimesheetStore{db: db}
}

const timesheetColumns = `
	id, shift_id, worker_id, care_home_id, clock_in, clock_out, break_minutes,
	total_hours_hundredths, hourly_rate, total_pay, status, worker_notes, manager_notes,
	approved_by, submitted_at, approved_at, has_overtime, overtime_hours_hundredths, overtime_rate, created_at
`

type TimesheetInput struct {
	ID           string
	ShiftID      string
	WorkerID     string
	CareHomeID   string
	ClockIn      time.Time
	BreakMinutes int
	HourlyRate   int64
	Status       string
	WorkerNotes  string
}

func (s *TimesheetStore) Create(ctx context.Context, tx Execer, input TimesheetInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO timesheets (id, shift_id, worker_id, care_home_id, clock_in, break_minutes, hourly_rate, status, worker_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, input.ID, input.ShiftID, input.WorkerID, input.CareHomeID, input.ClockIn,
		input.BreakMinutes, input.HourlyRate, input.Status, input.WorkerNotes)
	return err
}

func (s *TimesheetStore) GetByID(ctx context.Context, timesheetID string) (models.Timesheet, error) {
	var timesheet models.Timesheet
	err := s.db.GetContext(ctx, &timesheet, `
		SELECT `+timesheetColumns+`
		FROM timesheets
		WHERE id = $1
	`, timesheetID)
	return timesheet, err
}

func (s *TimesheetStore) Exists(ctx context.Context, shiftID, workerID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM timesheets WHERE shift_id = $1 AND worker_id = $2)
	`, shiftID, workerID)
	return exists, err
}

// Update writes the mutable clocking fields. Guarded so that a timesheet can
// only change while it is still editable; approved, rejected and paid rows
// never move through here.
func (s *TimesheetStore) Update(ctx context.Context, tx Execer, t models.Timesheet) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE timesheets
		SET clock_out = $1, break_minutes = $2, total_hours_hundredths = $3, total_pay = $4,
		    worker_notes = $5, has_overtime = $6, overtime_hours_hundredths = $7, overtime_rate = $8,
		    updated_at = NOW()
		WHERE id = $9 AND status IN ('draft', 'queried', 'submitted')
	`, t.ClockOut, t.BreakMinutes, t.TotalHours, t.TotalPay,
		t.WorkerNotes, t.HasOvertime, t.OvertimeHours, t.OvertimeRate, t.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *TimesheetStore) Submit(ctx context.Context, tx Execer, timesheetID string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE timesheets
		SET status = 'submitted', submitted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('draft', 'queried')
	`, timesheetID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *TimesheetStore) Approve(ctx context.Context, tx Execer, timesheetID, approverID string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE timesheets
		SET status = 'approved', approved_by = $1, approved_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND status = 'submitted'
	`, approverID, timesheetID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *TimesheetStore) MarkQueried(ctx context.Context, tx Execer, timesheetID, managerNotes string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE timesheets
		SET status = 'queried', manager_notes = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ('submitted', 'queried')
	`, managerNotes, timesheetID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *TimesheetStore) Reject(ctx context.Context, tx Execer, timesheetID, managerNotes string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE timesheets
		SET status = 'rejected', manager_notes = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'submitted'
	`, managerNotes, timesheetID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// MarkPaid is invoked only by invoice settlement, inside its transaction.
func (s *TimesheetStore) MarkPaid(ctx context.Context, tx Execer, timesheetID string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE timesheets
		SET status = 'paid', updated_at = NOW()
		WHERE id = $1 AND status = 'approved'
	`, timesheetID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SelectInvoiceable returns, locked, the subset of the requested timesheets
// that are approved, belong to the care home, and are not yet on any invoice.
func (s *TimesheetStore) SelectInvoiceable(ctx context.Context, tx Selecter, careHomeID string, timesheetIDs []string) ([]models.Timesheet, error) {
	var rows []models.Timesheet
	err := tx.SelectContext(ctx, &rows, `
		SELECT `+timesheetColumns+`
		FROM timesheets t
		WHERE t.care_home_id = $1
		  AND t.id = ANY($2)
		  AND t.status = 'approved'
		  AND NOT EXISTS (SELECT 1 FROM invoice_timesheets it WHERE it.timesheet_id = t.id)
		ORDER BY t.clock_in
		FOR UPDATE OF t
	`, careHomeID, pq.StringArray(timesheetIDs))
	return rows, err
}

func (s *TimesheetStore) ListByWorker(ctx context.Context, workerID string, limit, offset int) ([]models.Timesheet, error) {
	var timesheets []models.Timesheet
	err := s.db.SelectContext(ctx, &timesheets, `
		SELECT `+timesheetColumns+`
		FROM timesheets
		WHERE worker_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, workerID, limit, offset)
	return timesheets, err
}

func (s *TimesheetStore) ListByCareHome(ctx context.Context, careHomeID, status string, limit, offset int) ([]models.Timesheet, error) {
	var timesheets []models.Timesheet
	query := `
		SELECT ` + timesheetColumns + `
		FROM timesheets
		WHERE care_home_id = $1
	`
	args := []any{careHomeID}
	if status != "" {
		query += " AND status = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4"
		args = append(args, status, limit, offset)
	} else {
		query += " ORDER BY created_at DESC LIMIT $2 OFFSET $3"
		args = append(args, limit, offset)
	}
	err := s.db.SelectContext(ctx, &timesheets, query, args...)
	return timesheets, err
}

