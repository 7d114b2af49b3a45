package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carestaff/internal/auth"
	"carestaff/internal/config"
	"carestaff/internal/middleware"
	"carestaff/internal/models"
	"carestaff/internal/services"
	"carestaff/internal/store"
	"carestaff/internal/websocket"
)

const testSecret = "test-secret"

type stubAuthService struct {
	registerFn      func(ctx context.Context, req services.RegisterRequest) (models.User, error)
	loginFn         func(ctx context.Context, email, password string) (services.LoginResult, error)
	meFn            func(ctx context.Context, principal middleware.Principal) (models.User, error)
	listCareHomesFn func(ctx context.Context) ([]models.CareHome, error)
}

func (s stubAuthService) Register(ctx context.Context, req services.RegisterRequest) (models.User, error) {
	if s.registerFn == nil {
		return models.User{}, nil
	}
	return s.registerFn(ctx, req)
}

func (s stubAuthService) Login(ctx context.Context, email, password string) (services.LoginResult, error) {
	if s.loginFn == nil {
		return services.LoginResult{}, nil
	}
	return s.loginFn(ctx, email, password)
}

func (s stubAuthService) Me(ctx context.Context, principal middleware.Principal) (models.User, error) {
	if s.meFn == nil {
		return models.User{ID: principal.UserID, Role: principal.Role}, nil
	}
	return s.meFn(ctx, principal)
}

func (s stubAuthService) ListCareHomes(ctx context.Context) ([]models.CareHome, error) {
	if s.listCareHomesFn == nil {
		return nil, nil
	}
	return s.listCareHomesFn(ctx)
}

type stubWalletService struct {
	creditFn    func(ctx context.Context, principal middleware.Principal, req services.MutationRequest) (models.WalletTransaction, error)
	debitFn     func(ctx context.Context, principal middleware.Principal, req services.MutationRequest) (models.WalletTransaction, error)
	getWalletFn func(ctx context.Context, principal middleware.Principal, owner models.OwnerRef) (models.Wallet, error)
	historyFn   func(ctx context.Context, principal middleware.Principal, walletID string, limit, offset int) ([]models.WalletTransaction, error)
	reconcileFn func(ctx context.Context, principal middleware.Principal, walletID string) (services.Reconciliation, error)
	closeFn     func(ctx context.Context, principal middleware.Principal, walletID string) error
}

func (s stubWalletService) Credit(ctx context.Context, principal middleware.Principal, req services.MutationRequest) (models.WalletTransaction, error) {
	if s.creditFn == nil {
		return models.WalletTransaction{}, nil
	}
	return s.creditFn(ctx, principal, req)
}

func (s stubWalletService) Debit(ctx context.Context, principal middleware.Principal, req services.MutationRequest) (models.WalletTransaction, error) {
	if s.debitFn == nil {
		return models.WalletTransaction{}, nil
	}
	return s.debitFn(ctx, principal, req)
}

func (s stubWalletService) GetWallet(ctx context.Context, principal middleware.Principal, owner models.OwnerRef) (models.Wallet, error) {
	if s.getWalletFn == nil {
		return models.Wallet{}, nil
	}
	return s.getWalletFn(ctx, principal, owner)
}

func (s stubWalletService) History(ctx context.Context, principal middleware.Principal, walletID string, limit, offset int) ([]models.WalletTransaction, error) {
	if s.historyFn == nil {
		return nil, nil
	}
	return s.historyFn(ctx, principal, walletID, limit, offset)
}

func (s stubWalletService) Reconcile(ctx context.Context, principal middleware.Principal, walletID string) (services.Reconciliation, error) {
	if s.reconcileFn == nil {
		return services.Reconciliation{}, nil
	}
	return s.reconcileFn(ctx, principal, walletID)
}

func (s stubWalletService) Close(ctx context.Context, principal middleware.Principal, walletID string) error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn(ctx, principal, walletID)
}

type stubTimesheetService struct {
	startFn           func(ctx context.Context, principal middleware.Principal, req services.StartTimesheetRequest) (models.Timesheet, error)
	updateFn          func(ctx context.Context, principal middleware.Principal, req services.UpdateTimesheetRequest) (models.Timesheet, error)
	submitFn          func(ctx context.Context, principal middleware.Principal, timesheetID string) (models.Timesheet, error)
	approveFn         func(ctx context.Context, principal middleware.Principal, timesheetID string) (models.Timesheet, error)
	queryFn           func(ctx context.Context, principal middleware.Principal, timesheetID, managerNotes string) (models.Timesheet, error)
	rejectFn          func(ctx context.Context, principal middleware.Principal, timesheetID, managerNotes string) (models.Timesheet, error)
	getFn             func(ctx context.Context, principal middleware.Principal, timesheetID string) (models.Timesheet, error)
	listForWorkerFn   func(ctx context.Context, principal middleware.Principal, limit, offset int) ([]models.Timesheet, error)
	listForCareHomeFn func(ctx context.Context, principal middleware.Principal, careHomeID, status string, limit, offset int) ([]models.Timesheet, error)
}

func (s stubTimesheetService) Start(ctx context.Context, principal middleware.Principal, req services.StartTimesheetRequest) (models.Timesheet, error) {
	if s.startFn == nil {
		return models.Timesheet{}, nil
	}
	return s.startFn(ctx, principal, req)
}

func (s stubTimesheetService) Update(ctx context.Context, principal middleware.Principal, req services.UpdateTimesheetRequest) (models.Timesheet, error) {
	if s.updateFn == nil {
		return models.Timesheet{}, nil
	}
	return s.updateFn(ctx, principal, req)
}

func (s stubTimesheetService) Submit(ctx context.Context, principal middleware.Principal, timesheetID string) (models.Timesheet, error) {
	if s.submitFn == nil {
		return models.Timesheet{}, nil
	}
	return s.submitFn(ctx, principal, timesheetID)
}

func (s stubTimesheetService) Approve(ctx context.Context, principal middleware.Principal, timesheetID string) (models.Timesheet, error) {
	if s.approveFn == nil {
		return models.Timesheet{}, nil
	}
	return s.approveFn(ctx, principal, timesheetID)
}

func (s stubTimesheetService) Query(ctx context.Context, principal middleware.Principal, timesheetID, managerNotes string) (models.Timesheet, error) {
	if s.queryFn == nil {
		return models.Timesheet{}, nil
	}
	return s.queryFn(ctx, principal, timesheetID, managerNotes)
}

func (s stubTimesheetService) Reject(ctx context.Context, principal middleware.Principal, timesheetID, managerNotes string) (models.Timesheet, error) {
	if s.rejectFn == nil {
		return models.Timesheet{}, nil
	}
	return s.rejectFn(ctx, principal, timesheetID, managerNotes)
}

func (s stubTimesheetService) Get(ctx context.Context, principal middleware.Principal, timesheetID string) (models.Timesheet, error) {
	if s.getFn == nil {
		return models.Timesheet{}, nil
	}
	return s.getFn(ctx, principal, timesheetID)
}

func (s stubTimesheetService) ListForWorker(ctx context.Context, principal middleware.Principal, limit, offset int) ([]models.Timesheet, error) {
	if s.listForWorkerFn == nil {
		return nil, nil
	}
	return s.listForWorkerFn(ctx, principal, limit, offset)
}

func (s stubTimesheetService) ListForCareHome(ctx context.Context, principal middleware.Principal, careHomeID, status string, limit, offset int) ([]models.Timesheet, error) {
	if s.listForCareHomeFn == nil {
		return nil, nil
	}
	return s.listForCareHomeFn(ctx, principal, careHomeID, status, limit, offset)
}

type stubInvoiceService struct {
	createFn          func(ctx context.Context, principal middleware.Principal, req services.CreateInvoiceRequest) (models.Invoice, error)
	sendFn            func(ctx context.Context, principal middleware.Principal, invoiceID string) (models.Invoice, error)
	cancelFn          func(ctx context.Context, principal middleware.Principal, invoiceID string) (models.Invoice, error)
	payFn             func(ctx context.Context, principal middleware.Principal, req services.PayInvoiceRequest) (models.Invoice, error)
	getFn             func(ctx context.Context, principal middleware.Principal, invoiceID string) (models.Invoice, []models.Timesheet, error)
	listForCareHomeFn func(ctx context.Context, principal middleware.Principal, careHomeID string, limit, offset int) ([]models.Invoice, error)
	sweepOverdueFn    func(ctx context.Context, principal middleware.Principal) (int64, error)
}

func (s stubInvoiceService) Create(ctx context.Context, principal middleware.Principal, req services.CreateInvoiceRequest) (models.Invoice, error) {
	if s.createFn == nil {
		return models.Invoice{}, nil
	}
	return s.createFn(ctx, principal, req)
}

func (s stubInvoiceService) Send(ctx context.Context, principal middleware.Principal, invoiceID string) (models.Invoice, error) {
	if s.sendFn == nil {
		return models.Invoice{}, nil
	}
	return s.sendFn(ctx, principal, invoiceID)
}

func (s stubInvoiceService) Cancel(ctx context.Context, principal middleware.Principal, invoiceID string) (models.Invoice, error) {
	if s.cancelFn == nil {
		return models.Invoice{}, nil
	}
	return s.cancelFn(ctx, principal, invoiceID)
}

func (s stubInvoiceService) Pay(ctx context.Context, principal middleware.Principal, req services.PayInvoiceRequest) (models.Invoice, error) {
	if s.payFn == nil {
		return models.Invoice{}, nil
	}
	return s.payFn(ctx, principal, req)
}

func (s stubInvoiceService) Get(ctx context.Context, principal middleware.Principal, invoiceID string) (models.Invoice, []models.Timesheet, error) {
	if s.getFn == nil {
		return models.Invoice{}, nil, nil
	}
	return s.getFn(ctx, principal, invoiceID)
}

func (s stubInvoiceService) ListForCareHome(ctx context.Context, principal middleware.Principal, careHomeID string, limit, offset int) ([]models.Invoice, error) {
	if s.listForCareHomeFn == nil {
		return nil, nil
	}
	return s.listForCareHomeFn(ctx, principal, careHomeID, limit, offset)
}

func (s stubInvoiceService) SweepOverdue(ctx context.Context, principal middleware.Principal) (int64, error) {
	if s.sweepOverdueFn == nil {
		return 0, nil
	}
	return s.sweepOverdueFn(ctx, principal)
}

type stubShiftService struct {
	createFn                 func(ctx context.Context, principal middleware.Principal, req services.CreateShiftRequest) (models.Shift, error)
	publishFn                func(ctx context.Context, principal middleware.Principal, shiftID string) (models.Shift, error)
	cancelFn                 func(ctx context.Context, principal middleware.Principal, shiftID string) (models.Shift, error)
	completeFn               func(ctx context.Context, principal middleware.Principal, shiftID string) (models.Shift, error)
	applyFn                  func(ctx context.Context, principal middleware.Principal, shiftID, coverNote string) (models.Application, error)
	withdrawFn               func(ctx context.Context, principal middleware.Principal, applicationID string) error
	acceptFn                 func(ctx context.Context, principal middleware.Principal, applicationID string) (models.Application, error)
	rejectApplicationFn      func(ctx context.Context, principal middleware.Principal, applicationID string) (models.Application, error)
	listOpenFn               func(ctx context.Context, limit, offset int) ([]models.Shift, error)
	listForCareHomeFn        func(ctx context.Context, principal middleware.Principal, careHomeID string, limit, offset int) ([]models.Shift, error)
	listApplicationsFn       func(ctx context.Context, principal middleware.Principal, shiftID string) ([]models.Application, error)
	listWorkerApplicationsFn func(ctx context.Context, principal middleware.Principal, limit, offset int) ([]models.Application, error)
}

func (s stubShiftService) Create(ctx context.Context, principal middleware.Principal, req services.CreateShiftRequest) (models.Shift, error) {
	if s.createFn == nil {
		return models.Shift{}, nil
	}
	return s.createFn(ctx, principal, req)
}

func (s stubShiftService) Publish(ctx context.Context, principal middleware.Principal, shiftID string) (models.Shift, error) {
	if s.publishFn == nil {
		return models.Shift{}, nil
	}
	return s.publishFn(ctx, principal, shiftID)
}

func (s stubShiftService) Cancel(ctx context.Context, principal middleware.Principal, shiftID string) (models.Shift, error) {
	if s.cancelFn == nil {
		return models.Shift{}, nil
	}
	return s.cancelFn(ctx, principal, shiftID)
}

func (s stubShiftService) Complete(ctx context.Context, principal middleware.Principal, shiftID string) (models.Shift, error) {
	if s.completeFn == nil {
		return models.Shift{}, nil
	}
	return s.completeFn(ctx, principal, shiftID)
}

func (s stubShiftService) Apply(ctx context.Context, principal middleware.Principal, shiftID, coverNote string) (models.Application, error) {
	if s.applyFn == nil {
		return models.Application{}, nil
	}
	return s.applyFn(ctx, principal, shiftID, coverNote)
}

func (s stubShiftService) Withdraw(ctx context.Context, principal middleware.Principal, applicationID string) error {
	if s.withdrawFn == nil {
		return nil
	}
	return s.withdrawFn(ctx, principal, applicationID)
}

func (s stubShiftService) Accept(ctx context.Context, principal middleware.Principal, applicationID string) (models.Application, error) {
	if s.acceptFn == nil {
		return models.Application{}, nil
	}
	return s.acceptFn(ctx, principal, applicationID)
}

func (s stubShiftService) RejectApplication(ctx context.Context, principal middleware.Principal, applicationID string) (models.Application, error) {
	if s.rejectApplicationFn == nil {
		return models.Application{}, nil
	}
	return s.rejectApplicationFn(ctx, principal, applicationID)
}

func (s stubShiftService) ListOpen(ctx context.Context, limit, offset int) ([]models.Shift, error) {
	if s.listOpenFn == nil {
		return nil, nil
	}
	return s.listOpenFn(ctx, limit, offset)
}

func (s stubShiftService) ListForCareHome(ctx context.Context, principal middleware.Principal, careHomeID string, limit, offset int) ([]models.Shift, error) {
	if s.listForCareHomeFn == nil {
		return nil, nil
	}
	return s.listForCareHomeFn(ctx, principal, careHomeID, limit, offset)
}

func (s stubShiftService) ListApplications(ctx context.Context, principal middleware.Principal, shiftID string) ([]models.Application, error) {
	if s.listApplicationsFn == nil {
		return nil, nil
	}
	return s.listApplicationsFn(ctx, principal, shiftID)
}

func (s stubShiftService) ListWorkerApplications(ctx context.Context, principal middleware.Principal, limit, offset int) ([]models.Application, error) {
	if s.listWorkerApplicationsFn == nil {
		return nil, nil
	}
	return s.listWorkerApplicationsFn(ctx, principal, limit, offset)
}

type stubAuditReader struct {
	listFn func(ctx context.Context, limit, offset int) ([]store.AuditLog, error)
}

func (s stubAuditReader) List(ctx context.Context, limit, offset int) ([]store.AuditLog, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubWalletAdminStore struct {
	listAllFn func(ctx context.Context, limit, offset int) ([]models.Wallet, error)
}

func (s stubWalletAdminStore) ListAll(ctx context.Context, limit, offset int) ([]models.Wallet, error) {
	if s.listAllFn == nil {
		return nil, nil
	}
	return s.listAllFn(ctx, limit, offset)
}

type memStorage struct {
	saved []string
}

func (m *memStorage) Save(dir, filename string, r io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	path := dir + "/" + filename
	m.saved = append(m.saved, path)
	return path, nil
}

type testDeps struct {
	auth       stubAuthService
	wallets    stubWalletService
	timesheets stubTimesheetService
	invoices   stubInvoiceService
	shifts     stubShiftService
	audit      stubAuditReader
	walletRows stubWalletAdminStore
}

func newTestHandler(deps testDeps) http.Handler {
	cfg := config.Config{
		JWTSecret:      testSecret,
		AllowedOrigins: "*",
		Currency:       "GBP",
	}
	h := New(cfg, deps.auth, deps.wallets, deps.timesheets, deps.invoices, deps.shifts,
		deps.audit, deps.walletRows, &memStorage{}, websocket.NewHub())
	return h.Routes()
}

func tokenFor(t *testing.T, userID, role string, careHomeID *string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, userID, role, careHomeID, time.Hour)
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}
	return token
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), into); err != nil {
		t.Fatalf("decode response: %v (%s)", err, recorder.Body.String())
	}
}
