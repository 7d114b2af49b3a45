package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carestaff/internal/config"
	"carestaff/internal/db"
	"carestaff/internal/handlers"
	"carestaff/internal/notify"
	"carestaff/internal/services"
	"carestaff/internal/storage"
	"carestaff/internal/store"
	"carestaff/internal/websocket"
)

func main() {
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	users := store.NewUserStore(database)
	careHomes := store.NewCareHomeStore(database)
	wallets := store.NewWalletStore(database)
	ledger := store.NewLedgerStore(database)
	shifts := store.NewShiftStore(database)
	applications := store.NewApplicationStore(database)
	timesheets := store.NewTimesheetStore(database)
	invoices := store.NewInvoiceStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()
	notifier := notify.LogNotifier{}
	proofStorage := storage.NewDisk(cfg.ProofDir)

	authService := services.NewAuthService(txRunner, users, careHomes, audit, cfg.JWTSecret, cfg.TokenTTL)
	walletService := services.NewWalletService(txRunner, wallets, ledger, audit, hub, notifier, cfg.Currency)
	timesheetService := services.NewTimesheetService(txRunner, timesheets, shifts, applications, audit, notifier)
	invoiceService := services.NewInvoiceService(txRunner, invoices, timesheets, wallets, ledger, audit, hub, notifier, cfg.Currency)
	shiftService := services.NewShiftService(txRunner, shifts, applications, audit)

	handler := handlers.New(cfg, authService, walletService, timesheetService, invoiceService, shiftService, audit, wallets, proofStorage, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("carestaff API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
