package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"carestaff/internal/models"
	"carestaff/internal/store"
)

func newInvoiceService(invoices stubInvoiceStore, timesheets stubTimesheetStore, wallets stubWalletStore, ledger stubLedgerStore) *InvoiceService {
	return NewInvoiceService(fakeTxRunner{}, invoices, timesheets, wallets, ledger, stubAuditStore{}, stubHub{}, stubNotifier{}, "GBP")
}

func approvedTimesheet(id, workerID string, pay int64) models.Timesheet {
	return models.Timesheet{
		ID:         id,
		WorkerID:   workerID,
		CareHomeID: "home-1",
		Status:     models.TimesheetApproved,
		TotalPay:   &pay,
	}
}

func TestCreateInvoiceComputesTotals(t *testing.T) {
	var created store.InvoiceInput
	var linked []string
	service := newInvoiceService(stubInvoiceStore{
		nextSequenceFn: func(context.Context, store.Getter, int) (int64, error) { return 7, nil },
		createFn: func(_ context.Context, _ store.Execer, input store.InvoiceInput) error {
			created = input
			return nil
		},
		linkTimesheetFn: func(_ context.Context, _ store.Execer, _, timesheetID string) error {
			linked = append(linked, timesheetID)
			return nil
		},
	}, stubTimesheetStore{
		selectInvoiceableFn: func(context.Context, store.Selecter, string, []string) ([]models.Timesheet, error) {
			return []models.Timesheet{
				approvedTimesheet("ts-1", "worker-1", 10000),
				approvedTimesheet("ts-2", "worker-2", 20000),
			}, nil
		},
	}, stubWalletStore{}, stubLedgerStore{})

	invoice, err := service.Create(context.Background(), managerPrincipal("mgr-1", "home-1"), CreateInvoiceRequest{
		CareHomeID:   "home-1",
		TimesheetIDs: []string{"ts-1", "ts-2"},
		TaxRateBps:   1500,
		DueDate:      time.Now().Add(14 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Subtotal != 30000 {
		t.Fatalf("expected subtotal 30000, got %d", created.Subtotal)
	}
	if created.TaxAmount != 4500 {
		t.Fatalf("expected tax 4500 at 15%%, got %d", created.TaxAmount)
	}
	if created.Total != 34500 {
		t.Fatalf("expected total 34500, got %d", created.Total)
	}
	if !strings.HasPrefix(invoice.Number, "INV-") || !strings.HasSuffix(invoice.Number, "-007") {
		t.Fatalf("expected number INV-<year>-007, got %s", invoice.Number)
	}
	if len(linked) != 2 {
		t.Fatalf("expected both timesheets linked, got %v", linked)
	}
}

func TestCreateInvoiceRejectsPartialSelection(t *testing.T) {
	service := newInvoiceService(stubInvoiceStore{}, stubTimesheetStore{
		selectInvoiceableFn: func(context.Context, store.Selecter, string, []string) ([]models.Timesheet, error) {
			// one of the two requested rows is already billed
			return []models.Timesheet{approvedTimesheet("ts-1", "worker-1", 10000)}, nil
		},
	}, stubWalletStore{}, stubLedgerStore{})

	_, err := service.Create(context.Background(), managerPrincipal("mgr-1", "home-1"), CreateInvoiceRequest{
		CareHomeID:   "home-1",
		TimesheetIDs: []string{"ts-1", "ts-2"},
	})
	if !errors.Is(err, ErrTimesheetNotInvoiceable) {
		t.Fatalf("expected ErrTimesheetNotInvoiceable, got %v", err)
	}
}

func TestCreateInvoiceRequiresTimesheets(t *testing.T) {
	service := newInvoiceService(stubInvoiceStore{}, stubTimesheetStore{}, stubWalletStore{}, stubLedgerStore{})
	_, err := service.Create(context.Background(), managerPrincipal("mgr-1", "home-1"), CreateInvoiceRequest{CareHomeID: "home-1"})
	if !errors.Is(err, ErrNoTimesheets) {
		t.Fatalf("expected ErrNoTimesheets, got %v", err)
	}
}

func settlementFixture() (stubInvoiceStore, stubTimesheetStore, map[string]int64, *[]store.LedgerEntryInput) {
	balances := map[string]int64{
		"w-home-1":   100000,
		"w-worker-1": 0,
		"w-worker-2": 0,
	}
	entries := &[]store.LedgerEntryInput{}
	invoice := models.Invoice{
		ID:         "inv-1",
		CareHomeID: "home-1",
		Number:     "INV-2025-001",
		Subtotal:   30000,
		TaxRateBps: 1500,
		TaxAmount:  4500,
		Total:      34500,
		Status:     models.InvoiceSent,
	}
	invoices := stubInvoiceStore{
		getByIDFn:      func(context.Context, string) (models.Invoice, error) { return invoice, nil },
		getForUpdateFn: func(context.Context, store.Getter, string) (models.Invoice, error) { return invoice, nil },
		listTimesheetsFn: func(context.Context, store.Selecter, string) ([]models.Timesheet, error) {
			return []models.Timesheet{
				approvedTimesheet("ts-1", "worker-1", 10000),
				approvedTimesheet("ts-2", "worker-2", 20000),
			}, nil
		},
	}
	timesheets := stubTimesheetStore{}
	return invoices, timesheets, balances, entries
}

func settlementWalletStore(balances map[string]int64) stubWalletStore {
	return stubWalletStore{
		getOrCreateForUpdateFn: func(_ context.Context, _ store.Tx, _ string, owner models.OwnerRef, currency string) (models.Wallet, error) {
			id := "w-" + owner.ID
			return models.Wallet{ID: id, OwnerType: owner.Kind, OwnerID: owner.ID, Balance: balances[id], Currency: currency}, nil
		},
		applyMutationFn: func(_ context.Context, _ store.Execer, walletID string, balance, _, _ int64) error {
			balances[walletID] = balance
			return nil
		},
	}
}

func TestPaySettlesAtomicallyAndConservesMoney(t *testing.T) {
	invoices, timesheets, balances, entries := settlementFixture()
	paidTimesheets := map[string]bool{}
	timesheets.markPaidFn = func(_ context.Context, _ store.Execer, timesheetID string) (int64, error) {
		paidTimesheets[timesheetID] = true
		return 1, nil
	}
	service := newInvoiceService(invoices, timesheets, settlementWalletStore(balances), stubLedgerStore{
		insertFn: func(_ context.Context, _ store.Execer, input store.LedgerEntryInput) error {
			*entries = append(*entries, input)
			return nil
		},
	})

	invoice, err := service.Pay(context.Background(), managerPrincipal("mgr-1", "home-1"), PayInvoiceRequest{InvoiceID: "inv-1"})
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	if invoice.Status != models.InvoicePaid {
		t.Fatalf("expected paid invoice, got %s", invoice.Status)
	}
	if balances["w-home-1"] != 100000-34500 {
		t.Fatalf("expected home balance 65500, got %d", balances["w-home-1"])
	}
	if balances["w-worker-1"] != 10000 || balances["w-worker-2"] != 20000 {
		t.Fatalf("expected worker credits 10000/20000, got %d/%d", balances["w-worker-1"], balances["w-worker-2"])
	}
	if !paidTimesheets["ts-1"] || !paidTimesheets["ts-2"] {
		t.Fatalf("expected both timesheets paid, got %v", paidTimesheets)
	}
	// One debit plus one credit per timesheet, every entry tied to the invoice.
	if len(*entries) != 3 {
		t.Fatalf("expected 3 ledger entries, got %d", len(*entries))
	}
	var debits, credits int64
	for _, entry := range *entries {
		if entry.InvoiceID == nil || *entry.InvoiceID != "inv-1" {
			t.Fatalf("ledger entry missing invoice reference: %+v", entry)
		}
		switch entry.Direction {
		case models.DirectionDebit:
			debits += entry.Amount
		case models.DirectionCredit:
			credits += entry.Amount
		}
	}
	if debits != 34500 || credits != 30000 {
		t.Fatalf("expected debit 34500 and credits 30000, got %d/%d", debits, credits)
	}
}

func TestPayInsufficientHomeBalanceAbortsEverything(t *testing.T) {
	invoices, timesheets, balances, _ := settlementFixture()
	balances["w-home-1"] = 1000
	paid := false
	timesheets.markPaidFn = func(context.Context, store.Execer, string) (int64, error) {
		paid = true
		return 1, nil
	}
	service := newInvoiceService(invoices, timesheets, settlementWalletStore(balances), stubLedgerStore{})

	_, err := service.Pay(context.Background(), managerPrincipal("mgr-1", "home-1"), PayInvoiceRequest{InvoiceID: "inv-1"})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if paid {
		t.Fatal("no timesheet may be marked paid when the debit fails")
	}
}

func TestPayRejectsSettledInvoice(t *testing.T) {
	invoices, timesheets, balances, _ := settlementFixture()
	paidInvoice := models.Invoice{ID: "inv-1", CareHomeID: "home-1", Status: models.InvoicePaid}
	invoices.getByIDFn = func(context.Context, string) (models.Invoice, error) { return paidInvoice, nil }
	invoices.getForUpdateFn = func(context.Context, store.Getter, string) (models.Invoice, error) { return paidInvoice, nil }
	service := newInvoiceService(invoices, timesheets, settlementWalletStore(balances), stubLedgerStore{})

	_, err := service.Pay(context.Background(), managerPrincipal("mgr-1", "home-1"), PayInvoiceRequest{InvoiceID: "inv-1"})
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestPayIsManagerScoped(t *testing.T) {
	invoices, timesheets, balances, _ := settlementFixture()
	service := newInvoiceService(invoices, timesheets, settlementWalletStore(balances), stubLedgerStore{})

	_, err := service.Pay(context.Background(), managerPrincipal("mgr-2", "home-2"), PayInvoiceRequest{InvoiceID: "inv-1"})
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestCancelReleasesTimesheets(t *testing.T) {
	unlinked := false
	service := newInvoiceService(stubInvoiceStore{
		getByIDFn: func(context.Context, string) (models.Invoice, error) {
			return models.Invoice{ID: "inv-1", CareHomeID: "home-1", Status: models.InvoicePending}, nil
		},
		unlinkTimesheetsFn: func(context.Context, store.Execer, string) error {
			unlinked = true
			return nil
		},
	}, stubTimesheetStore{}, stubWalletStore{}, stubLedgerStore{})

	invoice, err := service.Cancel(context.Background(), managerPrincipal("mgr-1", "home-1"), "inv-1")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if invoice.Status != models.InvoiceCancelled {
		t.Fatalf("expected cancelled, got %s", invoice.Status)
	}
	if !unlinked {
		t.Fatal("expected timesheet links released")
	}
}

func TestTaxForRounding(t *testing.T) {
	// 99.99 at 17.5% = 17.498 -> 17.50
	if got := taxFor(9999, 1750); got != 1750 {
		t.Fatalf("expected 1750, got %d", got)
	}
	if got := taxFor(10000, 0); got != 0 {
		t.Fatalf("expected 0 tax, got %d", got)
	}
	if got := taxFor(30000, 1500); got != 4500 {
		t.Fatalf("expected 4500, got %d", got)
	}
}
