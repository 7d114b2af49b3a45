package store

import (
	"context"

	"carestaff/internal/models"

	"github.com/lib/pq"
)

type ApplicationStore struct {
	db DB
}

func NewApplicationStore(db DB) *ApplicationStore {
	return &ApplicationStore{db: db}
}

func (s *ApplicationStore) Create(ctx context.Context, tx Execer, id, shiftID, workerID, coverNote string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO applications (id, shift_id, worker_id, status, cover_note)
		VALUES ($1, $2, $3, 'pending', $4)
	`, id, shiftID, workerID, coverNote)
	return err
}

func (s *ApplicationStore) GetByID(ctx context.Context, applicationID string) (models.Application, error) {
	var application models.Application
	err := s.db.GetContext(ctx, &application, `
		SELECT id, shift_id, worker_id, status, cover_note, applied_at, decided_at, decided_by
		FROM applications
		WHERE id = $1
	`, applicationID)
	return application, err
}

// HasAccepted reports whether the worker holds an accepted application for
// the shift, the precondition for starting a timesheet.
func (s *ApplicationStore) HasAccepted(ctx context.Context, shiftID, workerID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM applications
			WHERE shift_id = $1 AND worker_id = $2 AND status = 'accepted'
		)
	`, shiftID, workerID)
	return exists, err
}

// Decide records an accept/reject, guarded so only pending applications move.
func (s *ApplicationStore) Decide(ctx context.Context, tx Execer, applicationID, status, decidedBy string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE applications
		SET status = $1, decided_at = NOW(), decided_by = $2
		WHERE id = $3 AND status = 'pending'
	`, status, decidedBy, applicationID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// RejectOtherPending closes out the remaining pending applications once one
// has been accepted for the shift.
func (s *ApplicationStore) RejectOtherPending(ctx context.Context, tx Execer, shiftID, exceptApplicationID, decidedBy string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE applications
		SET status = 'rejected', decided_at = NOW(), decided_by = $1
		WHERE shift_id = $2 AND id <> $3 AND status = 'pending'
	`, decidedBy, shiftID, exceptApplicationID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *ApplicationStore) Withdraw(ctx context.Context, tx Execer, applicationID, workerID string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE applications
		SET status = 'withdrawn', decided_at = NOW()
		WHERE id = $1 AND worker_id = $2 AND status = 'pending'
	`, applicationID, workerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *ApplicationStore) ListByShift(ctx context.Context, shiftID string) ([]models.Application, error) {
	var applications []models.Application
	err := s.db.SelectContext(ctx, &applications, `
		SELECT id, shift_id, worker_id, status, cover_note, applied_at, decided_at, decided_by
		FROM applications
		WHERE shift_id = $1
		ORDER BY applied_at
	`, shiftID)
	return applications, err
}

func (s *ApplicationStore) ListByWorker(ctx context.Context, workerID string, limit, offset int) ([]models.Application, error) {
	var applications []models.Application
	err := s.db.SelectContext(ctx, &applications, `
		SELECT id, shift_id, worker_id, status, cover_note, applied_at, decided_at, decided_by
		FROM applications
		WHERE worker_id = $1
		ORDER BY applied_at DESC
		LIMIT $2 OFFSET $3
	`, workerID, limit, offset)
	return applications, err
}

func stringArray(values []string) pq.StringArray {
	return pq.StringArray(values)
}
