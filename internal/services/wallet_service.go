package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"

	"carestaff/internal/db"
	"carestaff/internal/middleware"
	"carestaff/internal/models"
	"carestaff/internal/money"
	"carestaff/internal/notify"
	"carestaff/internal/store"
	"carestaff/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidCategory     = errors.New("invalid transaction category")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAccessDenied        = errors.New("access denied")
	ErrNotFound            = errors.New("not found")
	ErrWalletNotEmpty      = errors.New("wallet not empty")
)

type WalletStore interface {
	GetOrCreateForUpdate(ctx context.Context, tx store.Tx, id string, owner models.OwnerRef, currency string) (models.Wallet, error)
	GetByOwner(ctx context.Context, owner models.OwnerRef) (models.Wallet, error)
	GetByID(ctx context.Context, walletID string) (models.Wallet, error)
	GetForUpdate(ctx context.Context, tx store.Getter, walletID string) (models.Wallet, error)
	ApplyMutation(ctx context.Context, tx store.Execer, walletID string, balance, totalCredited, totalDebited int64) error
	SoftDelete(ctx context.Context, tx store.Execer, walletID string) (int64, error)
}

type LedgerStore interface {
	Insert(ctx context.Context, tx store.Execer, input store.LedgerEntryInput) error
	ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.WalletTransaction, error)
	SumByWallet(ctx context.Context, walletID string) (int64, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type WalletHub interface {
	BroadcastWallet(ownerKey string, update websocket.WalletUpdate)
}

type WalletService struct {
	txRunner db.TxRunner
	wallets  WalletStore
	ledger   LedgerStore
	audit    AuditStore
	hub      WalletHub
	notifier notify.Notifier
	currency string
}

func NewWalletService(txRunner db.TxRunner, wallets WalletStore, ledger LedgerStore, audit AuditStore, hub WalletHub, notifier notify.Notifier, currency string) *WalletService {
	return &WalletService{
		txRunner: txRunner,
		wallets:  wallets,
		ledger:   ledger,
		audit:    audit,
		hub:      hub,
		notifier: notifier,
		currency: currency,
	}
}

// MutationRequest describes a single credit or debit against an owner's
// wallet. ClientRequestID, when supplied, dedupes retried requests via the
// unique index on wallet_transactions.client_request_id.
type MutationRequest struct {
	Owner           models.OwnerRef
	AmountMinor     int64
	Category        string
	Description     string
	Reason          *string
	ProofPath       *string
	Metadata        map[string]string
	ClientRequestID *string
}

// OwnerKey is the hub subscription key for a wallet owner.
func OwnerKey(owner models.OwnerRef) string {
	return owner.Kind + ":" + owner.ID
}

func manualCategory(category string) bool {
	switch category {
	case models.CategoryManualCredit, models.CategoryManualDebit,
		models.CategoryRefund, models.CategoryAdjustment:
		return true
	}
	return false
}

func validCreditCategory(category string) bool {
	switch category {
	case models.CategoryManualCredit, models.CategoryRefund, models.CategoryAdjustment,
		models.CategoryInvoicePayment, models.CategoryTimesheetPayment:
		return true
	}
	return false
}

func validDebitCategory(category string) bool {
	switch category {
	case models.CategoryManualDebit, models.CategoryAdjustment,
		models.CategoryInvoicePayment, models.CategoryWithdrawal:
		return true
	}
	return false
}

func (s *WalletService) Credit(ctx context.Context, principal middleware.Principal, req MutationRequest) (models.WalletTransaction, error) {
	if req.AmountMinor <= 0 {
		return models.WalletTransaction{}, ErrInvalidAmount
	}
	if !validCreditCategory(req.Category) {
		return models.WalletTransaction{}, ErrInvalidCategory
	}
	if manualCategory(req.Category) && !principal.IsAdmin() {
		return models.WalletTransaction{}, ErrAccessDenied
	}
	return s.mutate(ctx, principal, models.DirectionCredit, req)
}

func (s *WalletService) Debit(ctx context.Context, principal middleware.Principal, req MutationRequest) (models.WalletTransaction, error) {
	if req.AmountMinor <= 0 {
		return models.WalletTransaction{}, ErrInvalidAmount
	}
	if !validDebitCategory(req.Category) {
		return models.WalletTransaction{}, ErrInvalidCategory
	}
	if manualCategory(req.Category) && !principal.IsAdmin() {
		return models.WalletTransaction{}, ErrAccessDenied
	}
	if req.Category == models.CategoryWithdrawal && !principal.IsAdmin() {
		if req.Owner.Kind != models.OwnerWorker || req.Owner.ID != principal.UserID {
			return models.WalletTransaction{}, ErrAccessDenied
		}
	}
	return s.mutate(ctx, principal, models.DirectionDebit, req)
}

// mutate performs the balance check, the balance write and the ledger append
// as one locked unit. The wallet row lock taken by GetOrCreateForUpdate holds
// until commit, so concurrent debits serialize instead of racing a stale read.
func (s *WalletService) mutate(ctx context.Context, principal middleware.Principal, direction string, req MutationRequest) (models.WalletTransaction, error) {
	var entry models.WalletTransaction
	var ownerKey string
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		wallet, err := s.wallets.GetOrCreateForUpdate(ctx, tx, uuid.NewString(), req.Owner, s.currency)
		if err != nil {
			return err
		}
		entry, err = applyMutation(ctx, tx, s.wallets, s.ledger, wallet, mutation{
			Direction:       direction,
			Amount:          req.AmountMinor,
			Category:        req.Category,
			Description:     req.Description,
			Reason:          req.Reason,
			ProofPath:       req.ProofPath,
			PerformedBy:     &principal,
			Metadata:        req.Metadata,
			ClientRequestID: req.ClientRequestID,
		})
		if err != nil {
			return err
		}
		ownerKey = OwnerKey(req.Owner)
		data, _ := json.Marshal(map[string]string{
			"transaction_id": entry.ID,
			"direction":      direction,
			"amount":         money.FormatMinor(req.AmountMinor),
			"category":       req.Category,
		})
		return s.audit.Log(ctx, tx, principal.UserID, "wallet_"+direction, "wallet", wallet.ID, string(data))
	})
	if err != nil {
		return models.WalletTransaction{}, err
	}
	s.hub.BroadcastWallet(ownerKey, websocket.WalletUpdate{
		WalletID:  entry.WalletID,
		OwnerType: req.Owner.Kind,
		Balance:   money.FormatMinor(entry.BalanceAfter),
		Currency:  s.currency,
	})
	if req.Owner.Kind == models.OwnerWorker {
		template := notify.TemplateWalletCredited
		if direction == models.DirectionDebit {
			template = notify.TemplateWalletDebited
		}
		if err := s.notifier.Send(ctx, req.Owner.ID, template, map[string]string{
			"amount":  money.FormatMinor(req.AmountMinor),
			"balance": money.FormatMinor(entry.BalanceAfter),
		}); err != nil {
			log.Printf("notification failed for wallet %s: %v", entry.WalletID, err)
		}
	}
	return entry, nil
}

// GetWallet returns the owner's wallet, creating nothing. Owners see their
// own wallet; care-home managers their home's; admins any.
func (s *WalletService) GetWallet(ctx context.Context, principal middleware.Principal, owner models.OwnerRef) (models.Wallet, error) {
	if err := authorizeOwner(principal, owner); err != nil {
		return models.Wallet{}, err
	}
	wallet, err := s.wallets.GetByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Wallet{}, ErrNotFound
		}
		return models.Wallet{}, err
	}
	return wallet, nil
}

func (s *WalletService) History(ctx context.Context, principal middleware.Principal, walletID string, limit, offset int) ([]models.WalletTransaction, error) {
	wallet, err := s.wallets.GetByID(ctx, walletID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	owner := models.OwnerRef{Kind: wallet.OwnerType, ID: wallet.OwnerID}
	if err := authorizeOwner(principal, owner); err != nil {
		return nil, err
	}
	return s.ledger.ListByWallet(ctx, walletID, limit, offset)
}

// Reconcile cross-checks the stored balance against the ledger sum.
type Reconciliation struct {
	WalletID      string `json:"wallet_id"`
	StoredBalance int64  `json:"stored_balance"`
	LedgerSum     int64  `json:"ledger_sum"`
	Difference    int64  `json:"difference"`
}

func (s *WalletService) Reconcile(ctx context.Context, principal middleware.Principal, walletID string) (Reconciliation, error) {
	wallet, err := s.wallets.GetByID(ctx, walletID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Reconciliation{}, ErrNotFound
		}
		return Reconciliation{}, err
	}
	owner := models.OwnerRef{Kind: wallet.OwnerType, ID: wallet.OwnerID}
	if err := authorizeOwner(principal, owner); err != nil {
		return Reconciliation{}, err
	}
	sum, err := s.ledger.SumByWallet(ctx, walletID)
	if err != nil {
		return Reconciliation{}, err
	}
	return Reconciliation{
		WalletID:      walletID,
		StoredBalance: wallet.Balance,
		LedgerSum:     sum,
		Difference:    wallet.Balance - sum,
	}, nil
}

// Close soft-deletes an empty wallet. Only admins retire wallets, and only
// once the balance is back to zero so no ledger history ends up stranded.
// The row stays in place for the transaction trail; subsequent reads skip it.
func (s *WalletService) Close(ctx context.Context, principal middleware.Principal, walletID string) error {
	if !principal.IsAdmin() {
		return ErrAccessDenied
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		wallet, err := s.wallets.GetForUpdate(ctx, tx, walletID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if wallet.Balance != 0 {
			return ErrWalletNotEmpty
		}
		affected, err := s.wallets.SoftDelete(ctx, tx, walletID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}
		data, _ := json.Marshal(map[string]string{
			"owner_type": wallet.OwnerType,
			"owner_id":   wallet.OwnerID,
		})
		return s.audit.Log(ctx, tx, principal.UserID, "wallet_close", "wallet", walletID, string(data))
	})
}

func authorizeOwner(principal middleware.Principal, owner models.OwnerRef) error {
	if principal.IsAdmin() {
		return nil
	}
	switch owner.Kind {
	case models.OwnerWorker:
		if principal.IsWorker() && principal.UserID == owner.ID {
			return nil
		}
	case models.OwnerCareHome:
		if principal.ManagesCareHome(owner.ID) {
			return nil
		}
	}
	return ErrAccessDenied
}

// mutation is the shared locked-wallet move used by both direct credits and
// debits and by invoice settlement.
type mutation struct {
	Direction       string
	Amount          int64
	Category        string
	Description     string
	Reason          *string
	ProofPath       *string
	PerformedBy     *middleware.Principal
	InvoiceID       *string
	TimesheetID     *string
	Metadata        map[string]string
	ClientRequestID *string
}

// applyMutation mutates a locked wallet row and appends the matching ledger
// entry. Callers must hold the row lock (GetOrCreateForUpdate / GetForUpdate)
// in the same transaction.
func applyMutation(ctx context.Context, tx store.Tx, wallets WalletStore, ledger LedgerStore, wallet models.Wallet, m mutation) (models.WalletTransaction, error) {
	if m.Amount <= 0 {
		return models.WalletTransaction{}, ErrInvalidAmount
	}
	balanceBefore := wallet.Balance
	var balanceAfter int64
	totalCredited := wallet.TotalCredited
	totalDebited := wallet.TotalDebited
	switch m.Direction {
	case models.DirectionCredit:
		balanceAfter = balanceBefore + m.Amount
		totalCredited += m.Amount
	case models.DirectionDebit:
		if balanceBefore < m.Amount {
			return models.WalletTransaction{}, ErrInsufficientBalance
		}
		balanceAfter = balanceBefore - m.Amount
		totalDebited += m.Amount
	default:
		return models.WalletTransaction{}, ErrInvalidCategory
	}
	if err := wallets.ApplyMutation(ctx, tx, wallet.ID, balanceAfter, totalCredited, totalDebited); err != nil {
		return models.WalletTransaction{}, err
	}
	metadata := "{}"
	if len(m.Metadata) > 0 {
		raw, err := json.Marshal(m.Metadata)
		if err != nil {
			return models.WalletTransaction{}, err
		}
		metadata = string(raw)
	}
	var performedByType, performedByID *string
	if m.PerformedBy != nil {
		kind := "user"
		performedByType = &kind
		performedByID = &m.PerformedBy.UserID
	}
	entry := store.LedgerEntryInput{
		ID:              uuid.NewString(),
		WalletID:        wallet.ID,
		Direction:       m.Direction,
		Amount:          m.Amount,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    balanceAfter,
		Category:        m.Category,
		Description:     m.Description,
		Reason:          m.Reason,
		ProofPath:       m.ProofPath,
		PerformedByType: performedByType,
		PerformedByID:   performedByID,
		InvoiceID:       m.InvoiceID,
		TimesheetID:     m.TimesheetID,
		Metadata:        metadata,
		ClientRequestID: m.ClientRequestID,
	}
	if err := ledger.Insert(ctx, tx, entry); err != nil {
		return models.WalletTransaction{}, err
	}
	return models.WalletTransaction{
		ID:              entry.ID,
		WalletID:        wallet.ID,
		Direction:       m.Direction,
		Amount:          m.Amount,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    balanceAfter,
		Category:        m.Category,
		Description:     m.Description,
		Reason:          m.Reason,
		ProofPath:       m.ProofPath,
		PerformedByType: performedByType,
		PerformedByID:   performedByID,
		InvoiceID:       m.InvoiceID,
		TimesheetID:     m.TimesheetID,
		Status:          "completed",
		Metadata:        metadata,
		ClientRequestID: m.ClientRequestID,
	}, nil
}
