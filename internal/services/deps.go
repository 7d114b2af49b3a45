package services

import (
	"context"
	"time"

	"carestaff/internal/models"
	"carestaff/internal/store"
)

// Store dependencies are declared here, on the consumer side, so services can
// be exercised with stubs and binaries wire the sqlx-backed implementations.

type TimesheetStore interface {
	Create(ctx context.Context, tx store.Execer, input store.TimesheetInput) error
	GetByID(ctx context.Context, timesheetID string) (models.Timesheet, error)
	Exists(ctx context.Context, shiftID, workerID string) (bool, error)
	Update(ctx context.Context, tx store.Execer, t models.Timesheet) (int64, error)
	Submit(ctx context.Context, tx store.Execer, timesheetID string) (int64, error)
	Approve(ctx context.Context, tx store.Execer, timesheetID, approverID string) (int64, error)
	MarkQueried(ctx context.Context, tx store.Execer, timesheetID, managerNotes string) (int64, error)
	Reject(ctx context.Context, tx store.Execer, timesheetID, managerNotes string) (int64, error)
	MarkPaid(ctx context.Context, tx store.Execer, timesheetID string) (int64, error)
	SelectInvoiceable(ctx context.Context, tx store.Selecter, careHomeID string, timesheetIDs []string) ([]models.Timesheet, error)
	ListByWorker(ctx context.Context, workerID string, limit, offset int) ([]models.Timesheet, error)
	ListByCareHome(ctx context.Context, careHomeID, status string, limit, offset int) ([]models.Timesheet, error)
}

type ShiftStore interface {
	Create(ctx context.Context, tx store.Execer, input store.ShiftInput) error
	GetByID(ctx context.Context, shiftID string) (models.Shift, error)
	UpdateStatus(ctx context.Context, tx store.Execer, shiftID, status string, allowedFrom ...string) (int64, error)
	ListOpen(ctx context.Context, limit, offset int) ([]models.Shift, error)
	ListByCareHome(ctx context.Context, careHomeID string, limit, offset int) ([]models.Shift, error)
}

type ApplicationStore interface {
	Create(ctx context.Context, tx store.Execer, id, shiftID, workerID, coverNote string) error
	GetByID(ctx context.Context, applicationID string) (models.Application, error)
	HasAccepted(ctx context.Context, shiftID, workerID string) (bool, error)
	Decide(ctx context.Context, tx store.Execer, applicationID, status, decidedBy string) (int64, error)
	RejectOtherPending(ctx context.Context, tx store.Execer, shiftID, exceptApplicationID, decidedBy string) (int64, error)
	Withdraw(ctx context.Context, tx store.Execer, applicationID, workerID string) (int64, error)
	ListByShift(ctx context.Context, shiftID string) ([]models.Application, error)
	ListByWorker(ctx context.Context, workerID string, limit, offset int) ([]models.Application, error)
}

type InvoiceStore interface {
	NextSequence(ctx context.Context, tx store.Getter, year int) (int64, error)
	Create(ctx context.Context, tx store.Execer, input store.InvoiceInput) error
	LinkTimesheet(ctx context.Context, tx store.Execer, invoiceID, timesheetID string) error
	GetByID(ctx context.Context, invoiceID string) (models.Invoice, error)
	GetForUpdate(ctx context.Context, tx store.Getter, invoiceID string) (models.Invoice, error)
	ListByCareHome(ctx context.Context, careHomeID string, limit, offset int) ([]models.Invoice, error)
	ListTimesheets(ctx context.Context, selecter store.Selecter, invoiceID string) ([]models.Timesheet, error)
	ListLinkedTimesheets(ctx context.Context, invoiceID string) ([]models.Timesheet, error)
	UnlinkTimesheets(ctx context.Context, tx store.Execer, invoiceID string) error
	MarkSent(ctx context.Context, tx store.Execer, invoiceID string) (int64, error)
	MarkCancelled(ctx context.Context, tx store.Execer, invoiceID string) (int64, error)
	MarkPaid(ctx context.Context, tx store.Execer, invoiceID string) (int64, error)
	MarkOverdue(ctx context.Context, tx store.Execer, asOf time.Time) (int64, error)
}
