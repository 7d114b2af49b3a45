package store

import (
	"context"

	"carestaff/internal/models"
	"carestaff/internal/money"
)

// LedgerStore appends and reads wallet transactions. Completed entries are an
// append-only audit trail: there is no update method on purpose.
type LedgerStore struct {
	db DB
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

type LedgerEntryInput struct {
	ID              string
	WalletID        string
	Direction       string
	Amount          int64
	BalanceBefore   int64
	BalanceAfter    int64
	Category        string
	Description     string
	Reason          *string
	ProofPath       *string
	PerformedByType *string
	PerformedByID   *string
	InvoiceID       *string
	TimesheetID     *string
	Metadata        string
	ClientRequestID *string
}

func (s *LedgerStore) Insert(ctx context.Context, tx Execer, input LedgerEntryInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions (
			id, wallet_id, direction, amount, balance_before, balance_after,
			category, description, reason, proof_path, performed_by_type, performed_by_id,
			invoice_id, timesheet_id, status, metadata, client_request_id, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 'completed', $15, $16, NOW())
	`, input.ID, input.WalletID, input.Direction, input.Amount, input.BalanceBefore, input.BalanceAfter,
		input.Category, input.Description, input.Reason, input.ProofPath, input.PerformedByType, input.PerformedByID,
		input.InvoiceID, input.TimesheetID, input.Metadata, input.ClientRequestID)
	return err
}

func (s *LedgerStore) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.WalletTransaction, error) {
	var entries []models.WalletTransaction
	err := s.db.SelectContext(ctx, &entries, `
		SELECT id, wallet_id, direction, amount, balance_before, balance_after,
		       category, description, reason, proof_path, performed_by_type, performed_by_id,
		       invoice_id, timesheet_id, status, metadata, client_request_id, completed_at, created_at, deleted_at
		FROM wallet_transactions
		WHERE wallet_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	return entries, err
}

// SumByWallet recomputes the balance from the ledger, used by reconciliation
// to cross-check the stored balance. SUM over a bigint column comes back as
// numeric, which the driver scans as bytes, hence the coercion.
func (s *LedgerStore) SumByWallet(ctx context.Context, walletID string) (int64, error) {
	var sum any
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(CASE WHEN direction = 'credit' THEN amount ELSE -amount END), 0)
		FROM wallet_transactions
		WHERE wallet_id = $1 AND status = 'completed' AND deleted_at IS NULL
	`, walletID)
	if err != nil {
		return 0, err
	}
	return money.ValueToInt64(sum), nil
}
