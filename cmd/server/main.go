package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/account-auth/internal/api"
	"github.com/dom/account-auth/internal/config"
	"github.com/dom/account-auth/internal/mail"
	"github.com/dom/account-auth/internal/repository/postgres"
	"github.com/dom/account-auth/internal/service"
	"gorm.io/gorm/logger"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	dbLogLevel := logger.Warn
	if cfg.IsDevelopment() {
		dbLogLevel = logger.Info
	}

	// Initialize database
	db, err := postgres.NewConnection(cfg.DatabaseURL, dbLogLevel)
	if err != nil {
		log.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}

	repos := postgres.NewRepositories(db)
	mailer := mail.NewSMTPMailer(cfg)

	services, err := service.NewServices(repos, mailer, cfg, log)
	if err != nil {
		log.Error("failed to initialize services", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher := mail.NewDispatcher(repos.Outbox, mailer, cfg.MailRetryInterval, log)
	dispatcherDone := make(chan struct{})
	go func() {
		dispatcher.Run(ctx)
		close(dispatcherDone)
	}()

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      api.NewRouter(services, cfg, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", slog.String("port", cfg.Port), slog.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", slog.Any("error", err))
	}
	<-dispatcherDone

	log.Info("server stopped")
}
