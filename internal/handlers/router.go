package handlers

import (
	"net/http"

	"carestaff/internal/config"
	"carestaff/internal/middleware"
	"carestaff/internal/models"
	"carestaff/internal/storage"
	"carestaff/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handler struct {
	cfg        config.Config
	auth       AuthService
	wallets    WalletService
	timesheets TimesheetService
	invoices   InvoiceService
	shifts     ShiftService
	audit      AuditStore
	walletRows WalletAdminStore
	storage    storage.Storage
	hub        *websocket.Hub
}

func New(cfg config.Config, auth AuthService, wallets WalletService, timesheets TimesheetService, invoices InvoiceService, shifts ShiftService, audit AuditStore, walletRows WalletAdminStore, fileStorage storage.Storage, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:        cfg,
		auth:       auth,
		wallets:    wallets,
		timesheets: timesheets,
		invoices:   invoices,
		shifts:     shifts,
		audit:      audit,
		walletRows: walletRows,
		storage:    fileStorage,
		hub:        hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/me", h.Me)
	})
	router.Get("/care-homes", h.ListCareHomes)

	router.Route("/wallets", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Get("/by-owner/{ownerKind}/{ownerID}", h.GetWallet)
		r.Post("/by-owner/{ownerKind}/{ownerID}/credit", h.Credit)
		r.Post("/by-owner/{ownerKind}/{ownerID}/debit", h.Debit)
		r.Get("/{walletID}/transactions", h.WalletHistory)
		r.Get("/{walletID}/reconcile", h.ReconcileWallet)
	})

	router.Route("/shifts", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Get("/", h.ListOpenShifts)
		r.With(middleware.RequireRole(models.RoleAdmin, models.RoleCareHomeAdmin)).Post("/", h.CreateShift)
		r.With(middleware.RequireRole(models.RoleAdmin, models.RoleCareHomeAdmin)).Post("/{shiftID}/publish", h.PublishShift)
		r.With(middleware.RequireRole(models.RoleAdmin, models.RoleCareHomeAdmin)).Post("/{shiftID}/cancel", h.CancelShift)
		r.With(middleware.RequireRole(models.RoleAdmin, models.RoleCareHomeAdmin)).Post("/{shiftID}/complete", h.CompleteShift)
		r.With(middleware.RequireRole(models.RoleHealthWorker)).Post("/{shiftID}/apply", h.ApplyToShift)
		r.Get("/{shiftID}/applications", h.ListShiftApplications)
	})

	router.Route("/applications", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.With(middleware.RequireRole(models.RoleHealthWorker)).Get("/", h.ListMyApplications)
		r.With(middleware.RequireRole(models.RoleHealthWorker)).Post("/{applicationID}/withdraw", h.WithdrawApplication)
		r.With(middleware.RequireRole(models.RoleAdmin, models.RoleCareHomeAdmin)).Post("/{applicationID}/accept", h.AcceptApplication)
		r.With(middleware.RequireRole(models.RoleAdmin, models.RoleCareHomeAdmin)).Post("/{applicationID}/reject", h.RejectApplication)
	})

	router.Route("/timesheets", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.With(middleware.RequireRole(models.RoleHealthWorker)).Post("/", h.StartTimesheet)
		r.With(middleware.RequireRole(models.RoleHealthWorker)).Get("/", h.ListMyTimesheets)
		r.Get("/{timesheetID}", h.GetTimesheet)
		r.Put("/{timesheetID}", h.UpdateTimesheet)
		r.Post("/{timesheetID}/submit", h.SubmitTimesheet)
		r.With(middleware.RequireRole(models.RoleAdmin, models.RoleCareHomeAdmin)).Post("/{timesheetID}/approve", h.ApproveTimesheet)
		r.With(middleware.RequireRole(models.RoleAdmin, models.RoleCareHomeAdmin)).Post("/{timesheetID}/query", h.QueryTimesheet)
		r.With(middleware.RequireRole(models.RoleAdmin, models.RoleCareHomeAdmin)).Post("/{timesheetID}/reject", h.RejectTimesheet)
	})

	router.Route("/care-homes/{careHomeID}", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Get("/shifts", h.ListCareHomeShifts)
		r.Get("/timesheets", h.ListCareHomeTimesheets)
		r.Get("/invoices", h.ListCareHomeInvoices)
	})

	router.Route("/invoices", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.With(middleware.RequireRole(models.RoleAdmin, models.RoleCareHomeAdmin)).Post("/", h.CreateInvoice)
		r.Get("/{invoiceID}", h.GetInvoice)
		r.With(middleware.RequireRole(models.RoleAdmin, models.RoleCareHomeAdmin)).Post("/{invoiceID}/send", h.SendInvoice)
		r.With(middleware.RequireRole(models.RoleAdmin, models.RoleCareHomeAdmin)).Post("/{invoiceID}/cancel", h.CancelInvoice)
		r.With(middleware.RequireRole(models.RoleAdmin, models.RoleCareHomeAdmin)).Post("/{invoiceID}/pay", h.PayInvoice)
	})

	router.Get("/ws/wallets", h.WSWallets)

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Use(middleware.RequireRole(models.RoleAdmin))
		r.Get("/wallets", h.AdminListWallets)
		r.Post("/wallets/{walletID}/close", h.AdminCloseWallet)
		r.Get("/audit", h.AdminListAuditLogs)
		r.Post("/invoices/sweep-overdue", h.AdminSweepOverdue)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
