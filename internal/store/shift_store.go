package store

import (
	"context"
	"time"

	"carestaff/internal/models"
)

type ShiftStore struct {
	db DB
}

func NewShiftStore(db DB) *ShiftStore {
	return &ShiftStore{db: db}
}

type ShiftInput struct {
	ID           string
	CareHomeID   string
	Title        string
	RoleRequired string
	ShiftDate    time.Time
	StartTime    time.Time
	EndTime      time.Time
	HourlyRate   int64
	Status       string
	Description  string
}

func (s *ShiftStore) Create(ctx context.Context, tx Execer, input ShiftInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO shifts (id, care_home_id, title, role_required, shift_date, start_time, end_time, hourly_rate, status, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, input.ID, input.CareHomeID, input.Title, input.RoleRequired, input.ShiftDate,
		input.StartTime, input.EndTime, input.HourlyRate, input.Status, input.Description)
	return err
}

func (s *ShiftStore) GetByID(ctx context.Context, shiftID string) (models.Shift, error) {
	var shift models.Shift
	err := s.db.GetContext(ctx, &shift, `
		SELECT id, care_home_id, title, role_required, shift_date, start_time, end_time, hourly_rate, status, description, created_at
		FROM shifts
		WHERE id = $1
	`, shiftID)
	return shift, err
}

// UpdateStatus moves a shift between states, guarded by the set of states the
// transition is legal from. Returns the number of rows moved (0 or 1).
func (s *ShiftStore) UpdateStatus(ctx context.Context, tx Execer, shiftID, status string, allowedFrom ...string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE shifts
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)
	`, status, shiftID, stringArray(allowedFrom))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *ShiftStore) ListOpen(ctx context.Context, limit, offset int) ([]models.Shift, error) {
	var shifts []models.Shift
	err := s.db.SelectContext(ctx, &shifts, `
		SELECT id, care_home_id, title, role_required, shift_date, start_time, end_time, hourly_rate, status, description, created_at
		FROM shifts
		WHERE status = 'published'
		ORDER BY shift_date, start_time
		LIMIT $1 OFFSET $2
	`, limit, offset)
	return shifts, err
}

func (s *ShiftStore) ListByCareHome(ctx context.Context, careHomeID string, limit, offset int) ([]models.Shift, error) {
	var shifts []models.Shift
	err := s.db.SelectContext(ctx, &shifts, `
		SELECT id, care_home_id, title, role_required, shift_date, start_time, end_time, hourly_rate, status, description, created_at
		FROM shifts
		WHERE care_home_id = $1
		ORDER BY shift_date DESC, start_time DESC
		LIMIT $2 OFFSET $3
	`, careHomeID, limit, offset)
	return shifts, err
}
