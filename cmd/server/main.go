package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Farkhat1984/Trai-on/configs"
	"github.com/Farkhat1984/Trai-on/internal/generation"
	"github.com/Farkhat1984/Trai-on/internal/handlers"
	"github.com/Farkhat1984/Trai-on/internal/ledger"
	"github.com/Farkhat1984/Trai-on/internal/logger"
	"github.com/Farkhat1984/Trai-on/internal/moderation"
	"github.com/Farkhat1984/Trai-on/internal/notify"
	"github.com/Farkhat1984/Trai-on/internal/payments"
	"github.com/Farkhat1984/Trai-on/internal/platform"
	"github.com/Farkhat1984/Trai-on/internal/quota"
	"github.com/Farkhat1984/Trai-on/internal/refunds"
	"github.com/Farkhat1984/Trai-on/internal/rental"
	"github.com/Farkhat1984/Trai-on/internal/routes"
	"github.com/Farkhat1984/Trai-on/internal/seed"
	"github.com/Farkhat1984/Trai-on/internal/store"
)

func main() {
	logger.Init(false)
	defer logger.Log.Sync()

	configs.LoadConfig()
	if configs.AppConfig.Debug {
		logger.Init(true)
	}

	store.NewDB()
	store.DBMigrate()
	seed.Run()

	db := store.DB
	log := logger.Log

	settings := platform.NewSettings(db)
	ledgerSvc := ledger.New(db, log)
	gate := quota.NewGate(db, ledgerSvc, settings, log)

	var sender notify.Sender = &notify.LogSender{Log: log}
	if smtp := configs.AppConfig.SMTP; smtp.User != "" {
		sender = &notify.SMTPSender{
			Host:     smtp.Host,
			Port:     smtp.Port,
			User:     smtp.User,
			Password: smtp.Password,
			From:     smtp.From,
		}
	}

	moderationWf := moderation.NewWorkflow(db, sender, log)
	rentalLc := rental.NewLifecycle(db, settings, log)
	paymentsSvc := payments.NewService(db, ledgerSvc, rentalLc, settings, payments.SandboxProvider{}, log)
	refundsWf := refunds.NewWorkflow(db, ledgerSvc, settings, log)
	generationSvc := generation.NewService(db, gate, generation.StubAI{}, log)

	sweeper := rental.NewSweeper(rentalLc, log)
	if err := sweeper.Start(configs.AppConfig.Rent.SweepSchedule); err != nil {
		log.Fatal("failed to start rent sweeper", zap.Error(err))
	}

	api := &handlers.API{
		DB:         db,
		Ledger:     ledgerSvc,
		Moderation: moderationWf,
		Rental:     rentalLc,
		Payments:   paymentsSvc,
		Refunds:    refundsWf,
		Generation: generationSvc,
		Settings:   settings,
	}
	router := routes.NewRoutes(api)

	srv := &http.Server{
		Addr:         configs.AppConfig.Server.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info("shutting down server...")

	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}

	sqlDB, err := store.DB.DB()
	if err != nil {
		log.Error("db close skipped, reason:", zap.Error(err))
	} else {
		sqlDB.Close()
		log.Info("db closed")
	}

	log.Info("server stopped")
}
