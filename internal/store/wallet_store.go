package store

import (
	"context"

	"carestaff/internal/models"
)

type WalletStore struct {
	db DB
}

func NewWalletStore(db DB) *WalletStore {
	return &WalletStore{db: db}
}

func (s *WalletStore) Create(ctx context.Context, tx Execer, id string, owner models.OwnerRef, currency string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (id, owner_type, owner_id, currency)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_type, owner_id) DO NOTHING
	`, id, owner.Kind, owner.ID, currency)
	return err
}

// GetOrCreateForUpdate inserts the owner's wallet if it does not exist yet and
// returns the row locked for the remainder of the transaction. The unique
// constraint on (owner_type, owner_id) makes concurrent first-use safe.
func (s *WalletStore) GetOrCreateForUpdate(ctx context.Context, tx Tx, id string, owner models.OwnerRef, currency string) (models.Wallet, error) {
	if err := s.Create(ctx, tx, id, owner, currency); err != nil {
		return models.Wallet{}, err
	}
	var wallet models.Wallet
	err := tx.GetContext(ctx, &wallet, `
		SELECT id, owner_type, owner_id, balance, total_credited, total_debited, currency, created_at, deleted_at
		FROM wallets
		WHERE owner_type = $1 AND owner_id = $2 AND deleted_at IS NULL
		FOR UPDATE
	`, owner.Kind, owner.ID)
	return wallet, err
}

func (s *WalletStore) GetByOwner(ctx context.Context, owner models.OwnerRef) (models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.GetContext(ctx, &wallet, `
		SELECT id, owner_type, owner_id, balance, total_credited, total_debited, currency, created_at, deleted_at
		FROM wallets
		WHERE owner_type = $1 AND owner_id = $2 AND deleted_at IS NULL
	`, owner.Kind, owner.ID)
	return wallet, err
}

func (s *WalletStore) GetByID(ctx context.Context, walletID string) (models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.GetContext(ctx, &wallet, `
		SELECT id, owner_type, owner_id, balance, total_credited, total_debited, currency, created_at, deleted_at
		FROM wallets
		WHERE id = $1 AND deleted_at IS NULL
	`, walletID)
	return wallet, err
}

func (s *WalletStore) GetForUpdate(ctx context.Context, tx Getter, walletID string) (models.Wallet, error) {
	var wallet models.Wallet
	err := tx.GetContext(ctx, &wallet, `
		SELECT id, owner_type, owner_id, balance, total_credited, total_debited, currency, created_at, deleted_at
		FROM wallets
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`, walletID)
	return wallet, err
}

// ApplyMutation writes the post-move balance and running totals. Callers hold
// the row lock and have already appended the matching ledger entry.
func (s *WalletStore) ApplyMutation(ctx context.Context, tx Execer, walletID string, balance, totalCredited, totalDebited int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = $1, total_credited = $2, total_debited = $3, updated_at = NOW()
		WHERE id = $4
	`, balance, totalCredited, totalDebited, walletID)
	return err
}

// SoftDelete retires a wallet. The guard makes closing an already closed
// wallet report zero rows instead of moving deleted_at.
func (s *WalletStore) SoftDelete(ctx context.Context, tx Execer, walletID string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, walletID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *WalletStore) ListAll(ctx context.Context, limit, offset int) ([]models.Wallet, error) {
	var wallets []models.Wallet
	err := s.db.SelectContext(ctx, &wallets, `
		SELECT id, owner_type, owner_id, balance, total_credited, total_debited, currency, created_at, deleted_at
		FROM wallets
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	return wallets, err
}
