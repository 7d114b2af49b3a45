package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"carestaff/internal/middleware"
	"carestaff/internal/models"
	"carestaff/internal/store"
)

func adminPrincipal() middleware.Principal {
	return middleware.Principal{UserID: "admin-1", Role: models.RoleAdmin}
}

func workerPrincipal(id string) middleware.Principal {
	return middleware.Principal{UserID: id, Role: models.RoleHealthWorker}
}

func managerPrincipal(userID, careHomeID string) middleware.Principal {
	return middleware.Principal{UserID: userID, Role: models.RoleCareHomeAdmin, CareHomeID: &careHomeID}
}

func newWalletService(wallets stubWalletStore, ledger stubLedgerStore) *WalletService {
	return NewWalletService(fakeTxRunner{}, wallets, ledger, stubAuditStore{}, stubHub{}, stubNotifier{}, "GBP")
}

func TestCreditWritesBalancedLedgerEntry(t *testing.T) {
	var gotEntry store.LedgerEntryInput
	var gotBalance int64
	service := newWalletService(stubWalletStore{
		getOrCreateForUpdateFn: func(_ context.Context, _ store.Tx, _ string, owner models.OwnerRef, currency string) (models.Wallet, error) {
			return models.Wallet{ID: "w1", OwnerType: owner.Kind, OwnerID: owner.ID, Balance: 500, TotalCredited: 500, Currency: currency}, nil
		},
		applyMutationFn: func(_ context.Context, _ store.Execer, _ string, balance, _, _ int64) error {
			gotBalance = balance
			return nil
		},
	}, stubLedgerStore{
		insertFn: func(_ context.Context, _ store.Execer, input store.LedgerEntryInput) error {
			gotEntry = input
			return nil
		},
	})

	entry, err := service.Credit(context.Background(), adminPrincipal(), MutationRequest{
		Owner:       models.OwnerRef{Kind: models.OwnerWorker, ID: "worker-1"},
		AmountMinor: 1000,
		Category:    models.CategoryManualCredit,
		Description: "top up",
	})
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if gotBalance != 1500 {
		t.Fatalf("expected wallet balance 1500, got %d", gotBalance)
	}
	if gotEntry.BalanceBefore != 500 || gotEntry.BalanceAfter != 1500 {
		t.Fatalf("expected ledger snapshot 500 -> 1500, got %d -> %d", gotEntry.BalanceBefore, gotEntry.BalanceAfter)
	}
	if entry.Direction != models.DirectionCredit {
		t.Fatalf("expected credit direction, got %s", entry.Direction)
	}
}

func TestDebitInsufficientBalanceLeavesWalletUntouched(t *testing.T) {
	mutated := false
	inserted := false
	service := newWalletService(stubWalletStore{
		getOrCreateForUpdateFn: func(_ context.Context, _ store.Tx, _ string, owner models.OwnerRef, currency string) (models.Wallet, error) {
			return models.Wallet{ID: "w1", OwnerType: owner.Kind, OwnerID: owner.ID, Balance: 300, Currency: currency}, nil
		},
		applyMutationFn: func(context.Context, store.Execer, string, int64, int64, int64) error {
			mutated = true
			return nil
		},
	}, stubLedgerStore{
		insertFn: func(context.Context, store.Execer, store.LedgerEntryInput) error {
			inserted = true
			return nil
		},
	})

	_, err := service.Debit(context.Background(), adminPrincipal(), MutationRequest{
		Owner:       models.OwnerRef{Kind: models.OwnerWorker, ID: "worker-1"},
		AmountMinor: 500,
		Category:    models.CategoryManualDebit,
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if mutated || inserted {
		t.Fatal("rejected debit must not touch the wallet or the ledger")
	}
}

func TestManualCategoriesAreAdminOnly(t *testing.T) {
	service := newWalletService(stubWalletStore{}, stubLedgerStore{})
	_, err := service.Credit(context.Background(), workerPrincipal("worker-1"), MutationRequest{
		Owner:       models.OwnerRef{Kind: models.OwnerWorker, ID: "worker-1"},
		AmountMinor: 100,
		Category:    models.CategoryManualCredit,
	})
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for worker manual credit, got %v", err)
	}
}

func TestWithdrawalAllowedForOwnWalletOnly(t *testing.T) {
	service := newWalletService(stubWalletStore{
		getOrCreateForUpdateFn: func(_ context.Context, _ store.Tx, _ string, owner models.OwnerRef, currency string) (models.Wallet, error) {
			return models.Wallet{ID: "w1", OwnerType: owner.Kind, OwnerID: owner.ID, Balance: 10000, Currency: currency}, nil
		},
	}, stubLedgerStore{})

	if _, err := service.Debit(context.Background(), workerPrincipal("worker-1"), MutationRequest{
		Owner:       models.OwnerRef{Kind: models.OwnerWorker, ID: "worker-1"},
		AmountMinor: 2000,
		Category:    models.CategoryWithdrawal,
	}); err != nil {
		t.Fatalf("worker should withdraw from own wallet: %v", err)
	}

	if _, err := service.Debit(context.Background(), workerPrincipal("worker-2"), MutationRequest{
		Owner:       models.OwnerRef{Kind: models.OwnerWorker, ID: "worker-1"},
		AmountMinor: 2000,
		Category:    models.CategoryWithdrawal,
	}); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for another worker's wallet, got %v", err)
	}
}

func TestCreditRejectsInvalidAmountAndCategory(t *testing.T) {
	service := newWalletService(stubWalletStore{}, stubLedgerStore{})
	if _, err := service.Credit(context.Background(), adminPrincipal(), MutationRequest{
		Owner:       models.OwnerRef{Kind: models.OwnerWorker, ID: "worker-1"},
		AmountMinor: 0,
		Category:    models.CategoryManualCredit,
	}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := service.Credit(context.Background(), adminPrincipal(), MutationRequest{
		Owner:       models.OwnerRef{Kind: models.OwnerWorker, ID: "worker-1"},
		AmountMinor: 100,
		Category:    models.CategoryWithdrawal,
	}); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory for withdrawal credit, got %v", err)
	}
}

func TestGetWalletAuthorization(t *testing.T) {
	careHomeID := "home-1"
	service := newWalletService(stubWalletStore{
		getByOwnerFn: func(_ context.Context, owner models.OwnerRef) (models.Wallet, error) {
			return models.Wallet{ID: "w1", OwnerType: owner.Kind, OwnerID: owner.ID}, nil
		},
	}, stubLedgerStore{})

	if _, err := service.GetWallet(context.Background(), managerPrincipal("mgr-1", careHomeID),
		models.OwnerRef{Kind: models.OwnerCareHome, ID: careHomeID}); err != nil {
		t.Fatalf("manager should read own home wallet: %v", err)
	}
	if _, err := service.GetWallet(context.Background(), managerPrincipal("mgr-1", careHomeID),
		models.OwnerRef{Kind: models.OwnerCareHome, ID: "home-2"}); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for another home's wallet, got %v", err)
	}
	if _, err := service.GetWallet(context.Background(), workerPrincipal("worker-1"),
		models.OwnerRef{Kind: models.OwnerCareHome, ID: careHomeID}); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for worker reading home wallet, got %v", err)
	}
}

func TestReconcileReportsDifference(t *testing.T) {
	service := newWalletService(stubWalletStore{
		getByIDFn: func(context.Context, string) (models.Wallet, error) {
			return models.Wallet{ID: "w1", OwnerType: models.OwnerWorker, OwnerID: "worker-1", Balance: 900}, nil
		},
	}, stubLedgerStore{
		sumByWalletFn: func(context.Context, string) (int64, error) { return 850, nil },
	})

	result, err := service.Reconcile(context.Background(), adminPrincipal(), "w1")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Difference != 50 {
		t.Fatalf("expected difference 50, got %d", result.Difference)
	}
}

func TestCloseIsAdminOnly(t *testing.T) {
	locked := false
	service := newWalletService(stubWalletStore{
		getForUpdateFn: func(context.Context, store.Getter, string) (models.Wallet, error) {
			locked = true
			return models.Wallet{}, nil
		},
	}, stubLedgerStore{})

	if err := service.Close(context.Background(), workerPrincipal("worker-1"), "w1"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if locked {
		t.Fatal("wallet must not be touched for a denied close")
	}
}

func TestCloseRequiresZeroBalance(t *testing.T) {
	deleted := false
	service := newWalletService(stubWalletStore{
		getForUpdateFn: func(context.Context, store.Getter, string) (models.Wallet, error) {
			return models.Wallet{ID: "w1", OwnerType: models.OwnerWorker, OwnerID: "worker-1", Balance: 250}, nil
		},
		softDeleteFn: func(context.Context, store.Execer, string) (int64, error) {
			deleted = true
			return 1, nil
		},
	}, stubLedgerStore{})

	if err := service.Close(context.Background(), adminPrincipal(), "w1"); !errors.Is(err, ErrWalletNotEmpty) {
		t.Fatalf("expected ErrWalletNotEmpty, got %v", err)
	}
	if deleted {
		t.Fatal("wallet with a balance must not be soft-deleted")
	}
}

func TestCloseSoftDeletesEmptyWallet(t *testing.T) {
	var deletedID string
	service := newWalletService(stubWalletStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, walletID string) (models.Wallet, error) {
			return models.Wallet{ID: walletID, OwnerType: models.OwnerWorker, OwnerID: "worker-1"}, nil
		},
		softDeleteFn: func(_ context.Context, _ store.Execer, walletID string) (int64, error) {
			deletedID = walletID
			return 1, nil
		},
	}, stubLedgerStore{})

	if err := service.Close(context.Background(), adminPrincipal(), "w1"); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if deletedID != "w1" {
		t.Fatalf("expected wallet w1 soft-deleted, got %q", deletedID)
	}
}

func TestCloseUnknownWallet(t *testing.T) {
	service := newWalletService(stubWalletStore{
		getForUpdateFn: func(context.Context, store.Getter, string) (models.Wallet, error) {
			return models.Wallet{}, sql.ErrNoRows
		},
	}, stubLedgerStore{})

	if err := service.Close(context.Background(), adminPrincipal(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
