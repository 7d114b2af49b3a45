package handlers

import (
	"context"

	"carestaff/internal/middleware"
	"carestaff/internal/models"
	"carestaff/internal/services"
	"carestaff/internal/store"
)

// Service dependencies are declared on the consumer side so handler tests can
// stub them without a database.

type AuthService interface {
	Register(ctx context.Context, req services.RegisterRequest) (models.User, error)
	Login(ctx context.Context, email, password string) (services.LoginResult, error)
	Me(ctx context.Context, principal middleware.Principal) (models.User, error)
	ListCareHomes(ctx context.Context) ([]models.CareHome, error)
}

type WalletService interface {
	Credit(ctx context.Context, principal middleware.Principal, req services.MutationRequest) (models.WalletTransaction, error)
	Debit(ctx context.Context, principal middleware.Principal, req services.MutationRequest) (models.WalletTransaction, error)
	GetWallet(ctx context.Context, principal middleware.Principal, owner models.OwnerRef) (models.Wallet, error)
	History(ctx context.Context, principal middleware.Principal, walletID string, limit, offset int) ([]models.WalletTransaction, error)
	Reconcile(ctx context.Context, principal middleware.Principal, walletID string) (services.Reconciliation, error)
	Close(ctx context.Context, principal middleware.Principal, walletID string) error
}

type TimesheetService interface {
	Start(ctx context.Context, principal middleware.Principal, req services.StartTimesheetRequest) (models.Timesheet, error)
	Update(ctx context.Context, principal middleware.Principal, req services.UpdateTimesheetRequest) (models.Timesheet, error)
	Submit(ctx context.Context, principal middleware.Principal, timesheetID string) (models.Timesheet, error)
	Approve(ctx context.Context, principal middleware.Principal, timesheetID string) (models.Timesheet, error)
	Query(ctx context.Context, principal middleware.Principal, timesheetID, managerNotes string) (models.Timesheet, error)
	Reject(ctx context.Context, principal middleware.Principal, timesheetID, managerNotes string) (models.Timesheet, error)
	Get(ctx context.Context, principal middleware.Principal, timesheetID string) (models.Timesheet, error)
	ListForWorker(ctx context.Context, principal middleware.Principal, limit, offset int) ([]models.Timesheet, error)
	ListForCareHome(ctx context.Context, principal middleware.Principal, careHomeID, status string, limit, offset int) ([]models.Timesheet, error)
}

type InvoiceService interface {
	Create(ctx context.Context, principal middleware.Principal, req services.CreateInvoiceRequest) (models.Invoice, error)
	Send(ctx context.Context, principal middleware.Principal, invoiceID string) (models.Invoice, error)
	Cancel(ctx context.Context, principal middleware.Principal, invoiceID string) (models.Invoice, error)
	Pay(ctx context.Context, principal middleware.Principal, req services.PayInvoiceRequest) (models.Invoice, error)
	Get(ctx context.Context, principal middleware.Principal, invoiceID string) (models.Invoice, []models.Timesheet, error)
	ListForCareHome(ctx context.Context, principal middleware.Principal, careHomeID string, limit, offset int) ([]models.Invoice, error)
	SweepOverdue(ctx context.Context, principal middleware.Principal) (int64, error)
}

type ShiftService interface {
	Create(ctx context.Context, principal middleware.Principal, req services.CreateShiftRequest) (models.Shift, error)
	Publish(ctx context.Context, principal middleware.Principal, shiftID string) (models.Shift, error)
	Cancel(ctx context.Context, principal middleware.Principal, shiftID string) (models.Shift, error)
	Complete(ctx context.Context, principal middleware.Principal, shiftID string) (models.Shift, error)
	Apply(ctx context.Context, principal middleware.Principal, shiftID, coverNote string) (models.Application, error)
	Withdraw(ctx context.Context, principal middleware.Principal, applicationID string) error
	Accept(ctx context.Context, principal middleware.Principal, applicationID string) (models.Application, error)
	RejectApplication(ctx context.Context, principal middleware.Principal, applicationID string) (models.Application, error)
	ListOpen(ctx context.Context, limit, offset int) ([]models.Shift, error)
	ListForCareHome(ctx context.Context, principal middleware.Principal, careHomeID string, limit, offset int) ([]models.Shift, error)
	ListApplications(ctx context.Context, principal middleware.Principal, shiftID string) ([]models.Application, error)
	ListWorkerApplications(ctx context.Context, principal middleware.Principal, limit, offset int) ([]models.Application, error)
}

type AuditStore interface {
	List(ctx context.Context, limit, offset int) ([]store.AuditLog, error)
}

type WalletAdminStore interface {
	ListAll(ctx context.Context, limit, offset int) ([]models.Wallet, error)
}
