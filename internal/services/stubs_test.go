package services

import (
	"context"
	"time"

	"carestaff/internal/models"
	"carestaff/internal/store"
	"carestaff/internal/websocket"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubWalletStore struct {
	getOrCreateForUpdateFn func(ctx context.Context, tx store.Tx, id string, owner models.OwnerRef, currency string) (models.Wallet, error)
	getByOwnerFn           func(ctx context.Context, owner models.OwnerRef) (models.Wallet, error)
	getByIDFn              func(ctx context.Context, walletID string) (models.Wallet, error)
	getForUpdateFn         func(ctx context.Context, tx store.Getter, walletID string) (models.Wallet, error)
	applyMutationFn        func(ctx context.Context, tx store.Execer, walletID string, balance, totalCredited, totalDebited int64) error
	softDeleteFn           func(ctx context.Context, tx store.Execer, walletID string) (int64, error)
}

func (s stubWalletStore) GetOrCreateForUpdate(ctx context.Context, tx store.Tx, id string, owner models.OwnerRef, currency string) (models.Wallet, error) {
	if s.getOrCreateForUpdateFn == nil {
		return models.Wallet{ID: "w-" + owner.ID, OwnerType: owner.Kind, OwnerID: owner.ID, Currency: currency}, nil
	}
	return s.getOrCreateForUpdateFn(ctx, tx, id, owner, currency)
}

func (s stubWalletStore) GetByOwner(ctx context.Context, owner models.OwnerRef) (models.Wallet, error) {
	if s.getByOwnerFn == nil {
		return models.Wallet{}, nil
	}
	return s.getByOwnerFn(ctx, owner)
}

func (s stubWalletStore) GetByID(ctx context.Context, walletID string) (models.Wallet, error) {
	if s.getByIDFn == nil {
		return models.Wallet{}, nil
	}
	return s.getByIDFn(ctx, walletID)
}

func (s stubWalletStore) GetForUpdate(ctx context.Context, tx store.Getter, walletID string) (models.Wallet, error) {
	if s.getForUpdateFn == nil {
		return models.Wallet{ID: walletID}, nil
	}
	return s.getForUpdateFn(ctx, tx, walletID)
}

func (s stubWalletStore) ApplyMutation(ctx context.Context, tx store.Execer, walletID string, balance, totalCredited, totalDebited int64) error {
	if s.applyMutationFn == nil {
		return nil
	}
	return s.applyMutationFn(ctx, tx, walletID, balance, totalCredited, totalDebited)
}

func (s stubWalletStore) SoftDelete(ctx context.Context, tx store.Execer, walletID string) (int64, error) {
	if s.softDeleteFn == nil {
		return 1, nil
	}
	return s.softDeleteFn(ctx, tx, walletID)
}

type stubLedgerStore struct {
	insertFn       func(ctx context.Context, tx store.Execer, input store.LedgerEntryInput) error
	listByWalletFn func(ctx context.Context, walletID string, limit, offset int) ([]models.WalletTransaction, error)
	sumByWalletFn  func(ctx context.Context, walletID string) (int64, error)
}

func (s stubLedgerStore) Insert(ctx context.Context, tx store.Execer, input store.LedgerEntryInput) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, input)
}

func (s stubLedgerStore) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.WalletTransaction, error) {
	if s.listByWalletFn == nil {
		return nil, nil
	}
	return s.listByWalletFn(ctx, walletID, limit, offset)
}

func (s stubLedgerStore) SumByWallet(ctx context.Context, walletID string) (int64, error) {
	if s.sumByWalletFn == nil {
		return 0, nil
	}
	return s.sumByWalletFn(ctx, walletID)
}

type stubAuditStore struct {
	logFn func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

type stubHub struct {
	broadcastFn func(ownerKey string, update websocket.WalletUpdate)
}

func (s stubHub) BroadcastWallet(ownerKey string, update websocket.WalletUpdate) {
	if s.broadcastFn != nil {
		s.broadcastFn(ownerKey, update)
	}
}

type stubNotifier struct {
	sendFn func(ctx context.Context, recipientUserID, template string, data map[string]string) error
}

func (s stubNotifier) Send(ctx context.Context, recipientUserID, template string, data map[string]string) error {
	if s.sendFn == nil {
		return nil
	}
	return s.sendFn(ctx, recipientUserID, template, data)
}

type stubTimesheetStore struct {
	createFn            func(ctx context.Context, tx store.Execer, input store.TimesheetInput) error
	getByIDFn           func(ctx context.Context, timesheetID string) (models.Timesheet, error)
	existsFn            func(ctx context.Context, shiftID, workerID string) (bool, error)
	updateFn            func(ctx context.Context, tx store.Execer, t models.Timesheet) (int64, error)
	submitFn            func(ctx context.Context, tx store.Execer, timesheetID string) (int64, error)
	approveFn           func(ctx context.Context, tx store.Execer, timesheetID, approverID string) (int64, error)
	markQueriedFn       func(ctx context.Context, tx store.Execer, timesheetID, managerNotes string) (int64, error)
	rejectFn            func(ctx context.Context, tx store.Execer, timesheetID, managerNotes string) (int64, error)
	markPaidFn          func(ctx context.Context, tx store.Execer, timesheetID string) (int64, error)
	selectInvoiceableFn func(ctx context.Context, tx store.Selecter, careHomeID string, timesheetIDs []string) ([]models.Timesheet, error)
	listByWorkerFn      func(ctx context.Context, workerID string, limit, offset int) ([]models.Timesheet, error)
	listByCareHomeFn    func(ctx context.Context, careHomeID, status string, limit, offset int) ([]models.Timesheet, error)
}

func (s stubTimesheetStore) Create(ctx context.Context, tx store.Execer, input store.TimesheetInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubTimesheetStore) GetByID(ctx context.Context, timesheetID string) (models.Timesheet, error) {
	if s.getByIDFn == nil {
		return models.Timesheet{}, nil
	}
	return s.getByIDFn(ctx, timesheetID)
}

func (s stubTimesheetStore) Exists(ctx context.Context, shiftID, workerID string) (bool, error) {
	if s.existsFn == nil {
		return false, nil
	}
	return s.existsFn(ctx, shiftID, workerID)
}

func (s stubTimesheetStore) Update(ctx context.Context, tx store.Execer, t models.Timesheet) (int64, error) {
	if s.updateFn == nil {
		return 1, nil
	}
	return s.updateFn(ctx, tx, t)
}

func (s stubTimesheetStore) Submit(ctx context.Context, tx store.Execer, timesheetID string) (int64, error) {
	if s.submitFn == nil {
		return 1, nil
	}
	return s.submitFn(ctx, tx, timesheetID)
}

func (s stubTimesheetStore) Approve(ctx context.Context, tx store.Execer, timesheetID, approverID string) (int64, error) {
	if s.approveFn == nil {
		return 1, nil
	}
	return s.approveFn(ctx, tx, timesheetID, approverID)
}

func (s stubTimesheetStore) MarkQueried(ctx context.Context, tx store.Execer, timesheetID, managerNotes string) (int64, error) {
	if s.markQueriedFn == nil {
		return 1, nil
	}
	return s.markQueriedFn(ctx, tx, timesheetID, managerNotes)
}

func (s stubTimesheetStore) Reject(ctx context.Context, tx store.Execer, timesheetID, managerNotes string) (int64, error) {
	if s.rejectFn == nil {
		return 1, nil
	}
	return s.rejectFn(ctx, tx, timesheetID, managerNotes)
}

func (s stubTimesheetStore) MarkPaid(ctx context.Context, tx store.Execer, timesheetID string) (int64, error) {
	if s.markPaidFn == nil {
		return 1, nil
	}
	return s.markPaidFn(ctx, tx, timesheetID)
}

func (s stubTimesheetStore) SelectInvoiceable(ctx context.Context, tx store.Selecter, careHomeID string, timesheetIDs []string) ([]models.Timesheet, error) {
	if s.selectInvoiceableFn == nil {
		return nil, nil
	}
	return s.selectInvoiceableFn(ctx, tx, careHomeID, timesheetIDs)
}

func (s stubTimesheetStore) ListByWorker(ctx context.Context, workerID string, limit, offset int) ([]models.Timesheet, error) {
	if s.listByWorkerFn == nil {
		return nil, nil
	}
	return s.listByWorkerFn(ctx, workerID, limit, offset)
}

func (s stubTimesheetStore) ListByCareHome(ctx context.Context, careHomeID, status string, limit, offset int) ([]models.Timesheet, error) {
	if s.listByCareHomeFn == nil {
		return nil, nil
	}
	return s.listByCareHomeFn(ctx, careHomeID, status, limit, offset)
}

type stubShiftStore struct {
	createFn         func(ctx context.Context, tx store.Execer, input store.ShiftInput) error
	getByIDFn        func(ctx context.Context, shiftID string) (models.Shift, error)
	updateStatusFn   func(ctx context.Context, tx store.Execer, shiftID, status string, allowedFrom ...string) (int64, error)
	listOpenFn       func(ctx context.Context, limit, offset int) ([]models.Shift, error)
	listByCareHomeFn func(ctx context.Context, careHomeID string, limit, offset int) ([]models.Shift, error)
}

func (s stubShiftStore) Create(ctx context.Context, tx store.Execer, input store.ShiftInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubShiftStore) GetByID(ctx context.Context, shiftID string) (models.Shift, error) {
	if s.getByIDFn == nil {
		return models.Shift{}, nil
	}
	return s.getByIDFn(ctx, shiftID)
}

func (s stubShiftStore) UpdateStatus(ctx context.Context, tx store.Execer, shiftID, status string, allowedFrom ...string) (int64, error) {
	if s.updateStatusFn == nil {
		return 1, nil
	}
	return s.updateStatusFn(ctx, tx, shiftID, status, allowedFrom...)
}

func (s stubShiftStore) ListOpen(ctx context.Context, limit, offset int) ([]models.Shift, error) {
	if s.listOpenFn == nil {
		return nil, nil
	}
	return s.listOpenFn(ctx, limit, offset)
}

func (s stubShiftStore) ListByCareHome(ctx context.Context, careHomeID string, limit, offset int) ([]models.Shift, error) {
	if s.listByCareHomeFn == nil {
		return nil, nil
	}
	return s.listByCareHomeFn(ctx, careHomeID, limit, offset)
}

type stubApplicationStore struct {
	createFn             func(ctx context.Context, tx store.Execer, id, shiftID, workerID, coverNote string) error
	getByIDFn            func(ctx context.Context, applicationID string) (models.Application, error)
	hasAcceptedFn        func(ctx context.Context, shiftID, workerID string) (bool, error)
	decideFn             func(ctx context.Context, tx store.Execer, applicationID, status, decidedBy string) (int64, error)
	rejectOtherPendingFn func(ctx context.Context, tx store.Execer, shiftID, exceptApplicationID, decidedBy string) (int64, error)
	withdrawFn           func(ctx context.Context, tx store.Execer, applicationID, workerID string) (int64, error)
	listByShiftFn        func(ctx context.Context, shiftID string) ([]models.Application, error)
	listByWorkerFn       func(ctx context.Context, workerID string, limit, offset int) ([]models.Application, error)
}

func (s stubApplicationStore) Create(ctx context.Context, tx store.Execer, id, shiftID, workerID, coverNote string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, shiftID, workerID, coverNote)
}

func (s stubApplicationStore) GetByID(ctx context.Context, applicationID string) (models.Application, error) {
	if s.getByIDFn == nil {
		return models.Application{}, nil
	}
	return s.getByIDFn(ctx, applicationID)
}

func (s stubApplicationStore) HasAccepted(ctx context.Context, shiftID, workerID string) (bool, error) {
	if s.hasAcceptedFn == nil {
		return true, nil
	}
	return s.hasAcceptedFn(ctx, shiftID, workerID)
}

func (s stubApplicationStore) Decide(ctx context.Context, tx store.Execer, applicationID, status, decidedBy string) (int64, error) {
	if s.decideFn == nil {
		return 1, nil
	}
	return s.decideFn(ctx, tx, applicationID, status, decidedBy)
}

func (s stubApplicationStore) RejectOtherPending(ctx context.Context, tx store.Execer, shiftID, exceptApplicationID, decidedBy string) (int64, error) {
	if s.rejectOtherPendingFn == nil {
		return 0, nil
	}
	return s.rejectOtherPendingFn(ctx, tx, shiftID, exceptApplicationID, decidedBy)
}

func (s stubApplicationStore) Withdraw(ctx context.Context, tx store.Execer, applicationID, workerID string) (int64, error) {
	if s.withdrawFn == nil {
		return 1, nil
	}
	return s.withdrawFn(ctx, tx, applicationID, workerID)
}

func (s stubApplicationStore) ListByShift(ctx context.Context, shiftID string) ([]models.Application, error) {
	if s.listByShiftFn == nil {
		return nil, nil
	}
	return s.listByShiftFn(ctx, shiftID)
}

func (s stubApplicationStore) ListByWorker(ctx context.Context, workerID string, limit, offset int) ([]models.Application, error) {
	if s.listByWorkerFn == nil {
		return nil, nil
	}
	return s.listByWorkerFn(ctx, workerID, limit, offset)
}

type stubInvoiceStore struct {
	nextSequenceFn         func(ctx context.Context, tx store.Getter, year int) (int64, error)
	createFn               func(ctx context.Context, tx store.Execer, input store.InvoiceInput) error
	linkTimesheetFn        func(ctx context.Context, tx store.Execer, invoiceID, timesheetID string) error
	getByIDFn              func(ctx context.Context, invoiceID string) (models.Invoice, error)
	getForUpdateFn         func(ctx context.Context, tx store.Getter, invoiceID string) (models.Invoice, error)
	listByCareHomeFn       func(ctx context.Context, careHomeID string, limit, offset int) ([]models.Invoice, error)
	listTimesheetsFn       func(ctx context.Context, selecter store.Selecter, invoiceID string) ([]models.Timesheet, error)
	listLinkedTimesheetsFn func(ctx context.Context, invoiceID string) ([]models.Timesheet, error)
	unlinkTimesheetsFn     func(ctx context.Context, tx store.Execer, invoiceID string) error
	markSentFn             func(ctx context.Context, tx store.Execer, invoiceID string) (int64, error)
	markCancelledFn        func(ctx context.Context, tx store.Execer, invoiceID string) (int64, error)
	markPaidFn             func(ctx context.Context, tx store.Execer, invoiceID string) (int64, error)
	markOverdueFn          func(ctx context.Context, tx store.Execer, asOf time.Time) (int64, error)
}

func (s stubInvoiceStore) NextSequence(ctx context.Context, tx store.Getter, year int) (int64, error) {
	if s.nextSequenceFn == nil {
		return 1, nil
	}
	return s.nextSequenceFn(ctx, tx, year)
}

func (s stubInvoiceStore) Create(ctx context.Context, tx store.Execer, input store.InvoiceInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubInvoiceStore) LinkTimesheet(ctx context.Context, tx store.Execer, invoiceID, timesheetID string) error {
	if s.linkTimesheetFn == nil {
		return nil
	}
	return s.linkTimesheetFn(ctx, tx, invoiceID, timesheetID)
}

func (s stubInvoiceStore) GetByID(ctx context.Context, invoiceID string) (models.Invoice, error) {
	if s.getByIDFn == nil {
		return models.Invoice{}, nil
	}
	return s.getByIDFn(ctx, invoiceID)
}

func (s stubInvoiceStore) GetForUpdate(ctx context.Context, tx store.Getter, invoiceID string) (models.Invoice, error) {
	if s.getForUpdateFn == nil {
		return models.Invoice{}, nil
	}
	return s.getForUpdateFn(ctx, tx, invoiceID)
}

func (s stubInvoiceStore) ListByCareHome(ctx context.Context, careHomeID string, limit, offset int) ([]models.Invoice, error) {
	if s.listByCareHomeFn == nil {
		return nil, nil
	}
	return s.listByCareHomeFn(ctx, careHomeID, limit, offset)
}

func (s stubInvoiceStore) ListTimesheets(ctx context.Context, selecter store.Selecter, invoiceID string) ([]models.Timesheet, error) {
	if s.listTimesheetsFn == nil {
		return nil, nil
	}
	return s.listTimesheetsFn(ctx, selecter, invoiceID)
}

func (s stubInvoiceStore) ListLinkedTimesheets(ctx context.Context, invoiceID string) ([]models.Timesheet, error) {
	if s.listLinkedTimesheetsFn == nil {
		return nil, nil
	}
	return s.listLinkedTimesheetsFn(ctx, invoiceID)
}

func (s stubInvoiceStore) UnlinkTimesheets(ctx context.Context, tx store.Execer, invoiceID string) error {
	if s.unlinkTimesheetsFn == nil {
		return nil
	}
	return s.unlinkTimesheetsFn(ctx, tx, invoiceID)
}

func (s stubInvoiceStore) MarkSent(ctx context.Context, tx store.Execer, invoiceID string) (int64, error) {
	if s.markSentFn == nil {
		return 1, nil
	}
	return s.markSentFn(ctx, tx, invoiceID)
}

func (s stubInvoiceStore) MarkCancelled(ctx context.Context, tx store.Execer, invoiceID string) (int64, error) {
	if s.markCancelledFn == nil {
		return 1, nil
	}
	return s.markCancelledFn(ctx, tx, invoiceID)
}

func (s stubInvoiceStore) MarkPaid(ctx context.Context, tx store.Execer, invoiceID string) (int64, error) {
	if s.markPaidFn == nil {
		return 1, nil
	}
	return s.markPaidFn(ctx, tx, invoiceID)
}

func (s stubInvoiceStore) MarkOverdue(ctx context.Context, tx store.Execer, asOf time.Time) (int64, error) {
	if s.markOverdueFn == nil {
		return 0, nil
	}
	return s.markOverdueFn(ctx, tx, asOf)
}
