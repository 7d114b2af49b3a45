package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"carestaff/internal/db"
	"carestaff/internal/middleware"
	"carestaff/internal/models"
	"carestaff/internal/money"
	"carestaff/internal/notify"
	"carestaff/internal/store"
	"carestaff/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var (
	ErrNoTimesheets            = errors.New("no timesheets supplied")
	ErrTimesheetNotInvoiceable = errors.New("timesheet is not invoiceable")
	ErrInvalidTaxRate          = errors.New("invalid tax rate")
)

type InvoiceService struct {
	txRunner   db.TxRunner
	invoices   InvoiceStore
	timesheets TimesheetStore
	wallets    WalletStore
	ledger     LedgerStore
	audit      AuditStore
	hub        WalletHub
	notifier   notify.Notifier
	currency   string
}

func NewInvoiceService(txRunner db.TxRunner, invoices InvoiceStore, timesheets TimesheetStore, wallets WalletStore, ledger LedgerStore, audit AuditStore, hub WalletHub, notifier notify.Notifier, currency string) *InvoiceService {
	return &InvoiceService{
		txRunner:   txRunner,
		invoices:   invoices,
		timesheets: timesheets,
		wallets:    wallets,
		ledger:     ledger,
		audit:      audit,
		hub:        hub,
		notifier:   notifier,
		currency:   currency,
	}
}

type CreateInvoiceRequest struct {
	CareHomeID   string
	TimesheetIDs []string
	PeriodStart  time.Time
	PeriodEnd    time.Time
	TaxRateBps   int64
	DueDate      time.Time
	Notes        string
}

// Create builds an invoice from approved, not-yet-billed timesheets. The
// timesheet rows are locked for the duration so a concurrent invoice cannot
// bill the same work; the unique link on timesheet_id backs that up.
func (s *InvoiceService) Create(ctx context.Context, principal middleware.Principal, req CreateInvoiceRequest) (models.Invoice, error) {
	if !principal.ManagesCareHome(req.CareHomeID) {
		return models.Invoice{}, ErrAccessDenied
	}
	if len(req.TimesheetIDs) == 0 {
		return models.Invoice{}, ErrNoTimesheets
	}
	if req.TaxRateBps < 0 || req.TaxRateBps > 10000 {
		return models.Invoice{}, ErrInvalidTaxRate
	}

	var invoice models.Invoice
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		timesheets, err := s.timesheets.SelectInvoiceable(ctx, tx, req.CareHomeID, req.TimesheetIDs)
		if err != nil {
			return err
		}
		if len(timesheets) != len(req.TimesheetIDs) {
			return ErrTimesheetNotInvoiceable
		}
		var subtotal int64
		for _, t := range timesheets {
			if t.TotalPay == nil {
				return ErrTimesheetNotInvoiceable
			}
			subtotal += *t.TotalPay
		}
		taxAmount := taxFor(subtotal, req.TaxRateBps)

		now := time.Now().UTC()
		seq, err := s.invoices.NextSequence(ctx, tx, now.Year())
		if err != nil {
			return err
		}
		invoice = models.Invoice{
			ID:          uuid.NewString(),
			CareHomeID:  req.CareHomeID,
			Number:      fmt.Sprintf("INV-%d-%03d", now.Year(), seq),
			InvoiceDate: now,
			PeriodStart: req.PeriodStart,
			PeriodEnd:   req.PeriodEnd,
			Subtotal:    subtotal,
			TaxRateBps:  req.TaxRateBps,
			TaxAmount:   taxAmount,
			Total:       subtotal + taxAmount,
			Status:      models.InvoicePending,
			DueDate:     req.DueDate,
			Notes:       req.Notes,
		}
		if err := s.invoices.Create(ctx, tx, store.InvoiceInput{
			ID:          invoice.ID,
			CareHomeID:  invoice.CareHomeID,
			Number:      invoice.Number,
			InvoiceDate: invoice.InvoiceDate,
			PeriodStart: invoice.PeriodStart,
			PeriodEnd:   invoice.PeriodEnd,
			Subtotal:    invoice.Subtotal,
			TaxRateBps:  invoice.TaxRateBps,
			TaxAmount:   invoice.TaxAmount,
			Total:       invoice.Total,
			Status:      invoice.Status,
			DueDate:     invoice.DueDate,
			Notes:       invoice.Notes,
		}); err != nil {
			return err
		}
		for _, t := range timesheets {
			if err := s.invoices.LinkTimesheet(ctx, tx, invoice.ID, t.ID); err != nil {
				return err
			}
		}
		data, _ := json.Marshal(map[string]any{
			"number":     invoice.Number,
			"timesheets": len(timesheets),
			"total":      money.FormatMinor(invoice.Total),
		})
		return s.audit.Log(ctx, tx, principal.UserID, "invoice_create", "invoice", invoice.ID, string(data))
	})
	if err != nil {
		return models.Invoice{}, err
	}
	return invoice, nil
}

func (s *InvoiceService) Send(ctx context.Context, principal middleware.Principal, invoiceID string) (models.Invoice, error) {
	invoice, err := s.getManaged(ctx, principal, invoiceID)
	if err != nil {
		return models.Invoice{}, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		moved, err := s.invoices.MarkSent(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrInvalidStateTransition
		}
		return s.audit.Log(ctx, tx, principal.UserID, "invoice_send", "invoice", invoiceID, "{}")
	})
	if err != nil {
		return models.Invoice{}, err
	}
	invoice.Status = models.InvoiceSent
	return invoice, nil
}

// Cancel voids a pending or sent invoice; its timesheets become invoiceable
// again once the links are released.
func (s *InvoiceService) Cancel(ctx context.Context, principal middleware.Principal, invoiceID string) (models.Invoice, error) {
	invoice, err := s.getManaged(ctx, principal, invoiceID)
	if err != nil {
		return models.Invoice{}, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		moved, err := s.invoices.MarkCancelled(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrInvalidStateTransition
		}
		if err := s.invoices.UnlinkTimesheets(ctx, tx, invoiceID); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, principal.UserID, "invoice_cancel", "invoice", invoiceID, "{}")
	})
	if err != nil {
		return models.Invoice{}, err
	}
	invoice.Status = models.InvoiceCancelled
	return invoice, nil
}

type PayInvoiceRequest struct {
	InvoiceID       string
	ClientRequestID *string
}

// settledWallet carries what Pay needs to broadcast after commit.
type settledWallet struct {
	owner models.OwnerRef
	entry models.WalletTransaction
}

// Pay settles an invoice in one transaction: the care home wallet is debited
// the invoice total and each worker is credited their timesheet pay, with the
// invoice and its timesheets marked paid under the same locks. Either the whole
// settlement lands or none of it does.
//
// Lock order is fixed: invoice row, then the care home wallet, then worker
// wallets in worker-id order, so concurrent settlements cannot deadlock.
func (s *InvoiceService) Pay(ctx context.Context, principal middleware.Principal, req PayInvoiceRequest) (models.Invoice, error) {
	if _, err := s.getManaged(ctx, principal, req.InvoiceID); err != nil {
		return models.Invoice{}, err
	}

	var invoice models.Invoice
	var settled []settledWallet
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		settled = settled[:0]
		var err error
		invoice, err = s.invoices.GetForUpdate(ctx, tx, req.InvoiceID)
		if err != nil {
			return err
		}
		if invoice.Status != models.InvoicePending && invoice.Status != models.InvoiceSent {
			return ErrInvalidStateTransition
		}
		timesheets, err := s.invoices.ListTimesheets(ctx, tx, invoice.ID)
		if err != nil {
			return err
		}

		homeOwner := models.OwnerRef{Kind: models.OwnerCareHome, ID: invoice.CareHomeID}
		homeWallet, err := s.wallets.GetOrCreateForUpdate(ctx, tx, uuid.NewString(), homeOwner, s.currency)
		if err != nil {
			return err
		}
		debit, err := applyMutation(ctx, tx, s.wallets, s.ledger, homeWallet, mutation{
			Direction:       models.DirectionDebit,
			Amount:          invoice.Total,
			Category:        models.CategoryInvoicePayment,
			Description:     "payment of invoice " + invoice.Number,
			PerformedBy:     &principal,
			InvoiceID:       &invoice.ID,
			ClientRequestID: req.ClientRequestID,
		})
		if err != nil {
			return err
		}
		settled = append(settled, settledWallet{owner: homeOwner, entry: debit})

		byWorker := make(map[string][]models.Timesheet)
		for _, t := range timesheets {
			byWorker[t.WorkerID] = append(byWorker[t.WorkerID], t)
		}
		workerIDs := make([]string, 0, len(byWorker))
		for id := range byWorker {
			workerIDs = append(workerIDs, id)
		}
		sort.Strings(workerIDs)

		for _, workerID := range workerIDs {
			workerOwner := models.OwnerRef{Kind: models.OwnerWorker, ID: workerID}
			workerWallet, err := s.wallets.GetOrCreateForUpdate(ctx, tx, uuid.NewString(), workerOwner, s.currency)
			if err != nil {
				return err
			}
			for _, t := range byWorker[workerID] {
				if t.TotalPay == nil {
					return ErrTimesheetNotInvoiceable
				}
				timesheetID := t.ID
				credit, err := applyMutation(ctx, tx, s.wallets, s.ledger, workerWallet, mutation{
					Direction:   models.DirectionCredit,
					Amount:      *t.TotalPay,
					Category:    models.CategoryTimesheetPayment,
					Description: "pay for timesheet on invoice " + invoice.Number,
					PerformedBy: &principal,
					InvoiceID:   &invoice.ID,
					TimesheetID: &timesheetID,
				})
				if err != nil {
					return err
				}
				workerWallet.Balance = credit.BalanceAfter
				workerWallet.TotalCredited += credit.Amount
				settled = append(settled, settledWallet{owner: workerOwner, entry: credit})
				moved, err := s.timesheets.MarkPaid(ctx, tx, t.ID)
				if err != nil {
					return err
				}
				if moved == 0 {
					return ErrInvalidStateTransition
				}
			}
		}

		moved, err := s.invoices.MarkPaid(ctx, tx, invoice.ID)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrInvalidStateTransition
		}
		data, _ := json.Marshal(map[string]string{
			"number": invoice.Number,
			"total":  money.FormatMinor(invoice.Total),
		})
		return s.audit.Log(ctx, tx, principal.UserID, "invoice_pay", "invoice", invoice.ID, string(data))
	})
	if err != nil {
		return models.Invoice{}, err
	}

	now := time.Now().UTC()
	invoice.Status = models.InvoicePaid
	invoice.PaidAt = &now
	for _, sw := range settled {
		s.hub.BroadcastWallet(OwnerKey(sw.owner), websocket.WalletUpdate{
			WalletID:  sw.entry.WalletID,
			OwnerType: sw.owner.Kind,
			Balance:   money.FormatMinor(sw.entry.BalanceAfter),
			Currency:  s.currency,
		})
		if sw.owner.Kind == models.OwnerWorker {
			if err := s.notifier.Send(ctx, sw.owner.ID, notify.TemplateTimesheetPaid, map[string]string{
				"amount":  money.FormatMinor(sw.entry.Amount),
				"invoice": invoice.Number,
			}); err != nil {
				log.Printf("notification failed for invoice %s: %v", invoice.ID, err)
			}
		}
	}
	return invoice, nil
}

func (s *InvoiceService) Get(ctx context.Context, principal middleware.Principal, invoiceID string) (models.Invoice, []models.Timesheet, error) {
	invoice, err := s.getManaged(ctx, principal, invoiceID)
	if err != nil {
		return models.Invoice{}, nil, err
	}
	timesheets, err := s.invoices.ListLinkedTimesheets(ctx, invoice.ID)
	if err != nil {
		return models.Invoice{}, nil, err
	}
	return invoice, timesheets, nil
}

func (s *InvoiceService) ListForCareHome(ctx context.Context, principal middleware.Principal, careHomeID string, limit, offset int) ([]models.Invoice, error) {
	if !principal.ManagesCareHome(careHomeID) {
		return nil, ErrAccessDenied
	}
	return s.invoices.ListByCareHome(ctx, careHomeID, limit, offset)
}

// SweepOverdue flips sent invoices past their due date to overdue. Admin only.
func (s *InvoiceService) SweepOverdue(ctx context.Context, principal middleware.Principal) (int64, error) {
	if !principal.IsAdmin() {
		return 0, ErrAccessDenied
	}
	var flipped int64
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		flipped, err = s.invoices.MarkOverdue(ctx, tx, time.Now().UTC())
		if err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]int64{"flipped": flipped})
		return s.audit.Log(ctx, tx, principal.UserID, "invoice_sweep_overdue", "invoice", "", string(data))
	})
	return flipped, err
}

func (s *InvoiceService) getManaged(ctx context.Context, principal middleware.Principal, invoiceID string) (models.Invoice, error) {
	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Invoice{}, ErrNotFound
		}
		return models.Invoice{}, err
	}
	if !principal.ManagesCareHome(invoice.CareHomeID) {
		return models.Invoice{}, ErrAccessDenied
	}
	return invoice, nil
}

// taxFor computes tax in minor units from a rate in basis points, rounded to
// the nearest minor unit.
func taxFor(subtotal, rateBps int64) int64 {
	return money.MinorFromDecimal(
		money.DecimalFromMinor(subtotal).
			Mul(decimal.NewFromInt(rateBps)).
			Div(decimal.NewFromInt(10000)).
			Round(2))
}
