// Package main is the entry point for the subscription demo API server.
//
// It loads configuration, opens the Postgres pool and ensures the schema,
// wires the domain services into the HTTP chassis, and runs the server and
// the wait-window sweeper side by side until a shutdown signal arrives.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"subtrack/internal/account"
	"subtrack/internal/api/handlers"
	"subtrack/internal/auth"
	"subtrack/internal/config"
	"subtrack/internal/core"
	"subtrack/internal/db"
	"subtrack/internal/subscription"
	"subtrack/internal/types"
	"subtrack/internal/webhookwait"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("subscription demo API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)
	logEffectiveConfig(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage.
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database pool: %w", err)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}

	sessionRepo := db.NewSessionRepository(pool)
	subscriptionRepo := db.NewSubscriptionRepository(pool, logger)
	waitRepo := db.NewWebhookWaitRepository(pool, logger)

	// Domain services.
	clock := types.RealClock{}
	sessions := auth.NewSessionService(sessionRepo, auth.NewCryptoTokenGenerator(), clock, logger)
	tracker := webhookwait.NewTracker(waitRepo, webhookwait.Config{
		Backdate: cfg.Wait.Backdate,
		Window:   cfg.Wait.Window,
	}, clock, logger)
	reconciler := subscription.NewReconciler(subscriptionRepo, tracker, cfg.Webhook.Secret, clock, logger)
	accounts := account.NewService(sessions, subscriptionRepo, tracker, clock, logger)
	sweeper := webhookwait.NewSweeper(waitRepo, cfg.Wait.SweepInterval, clock, logger)

	// HTTP chassis.
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.HealthProbes = append(srv.HealthProbes, db.NewPoolProbe(pool))

	authHandler := handlers.NewAuthHandler(sessions, logger)
	userHandler := handlers.NewUserHandler(accounts, sessions, tracker, logger)
	webhookHandler := handlers.NewWebhookHandler(reconciler, logger)
	contentHandler := handlers.NewContentHandler(accounts, logger)

	srv.RouteRegistrars = append(srv.RouteRegistrars,
		authHandler.RegisterRoutes,
		userHandler.RegisterRoutes,
		webhookHandler.RegisterRoutes,
		contentHandler.RegisterRoutes,
	)
	srv.MountRoutes()

	return serve(ctx, cfg, logger, srv, sweeper)
}

// serve runs the HTTP server and the wait-window sweeper until the context
// is cancelled, then shuts the server down gracefully.
func serve(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	srv *core.Server,
	sweeper *webhookwait.Sweeper,
) error {
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// Returns ctx.Err() on cancellation; sweep failures are logged,
		// not fatal.
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("sweeper: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("server stopped cleanly")
	return nil
}

// logEffectiveConfig dumps the effective configuration at debug level.
// Secret fields redact themselves via their String method.
func logEffectiveConfig(logger *slog.Logger, cfg *config.Config) {
	logger.Debug("effective configuration",
		"route_prefix", cfg.Server.RoutePrefix,
		"cors_allowed_origins", cfg.Server.CorsAllowedOrigins,
		"shutdown_timeout", cfg.Server.ShutdownTimeout,
		"database_url", cfg.Database.URL.String(),
		"db_max_conns", cfg.Database.MaxConns,
		"db_min_conns", cfg.Database.MinConns,
		"webhook_secret", cfg.Webhook.Secret.String(),
		"wait_backdate", cfg.Wait.Backdate,
		"wait_window", cfg.Wait.Window,
		"wait_sweep_interval", cfg.Wait.SweepInterval,
	)
}

// newLogger creates a structured JSON logger at the configured level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
