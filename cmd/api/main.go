// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

// Command api is the entry point for the Zaffran Foods HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/zaffranfoods/zaffran/internal/api"
	"github.com/zaffranfoods/zaffran/internal/notify"
	"github.com/zaffranfoods/zaffran/internal/platform/config"
	"github.com/zaffranfoods/zaffran/internal/platform/constants"
	"github.com/zaffranfoods/zaffran/internal/platform/metrics"
	"github.com/zaffranfoods/zaffran/internal/platform/migration"
	pgstore "github.com/zaffranfoods/zaffran/internal/platform/postgres"
	redisstore "github.com/zaffranfoods/zaffran/internal/platform/redis"
	"github.com/zaffranfoods/zaffran/internal/platform/sec"
	"github.com/zaffranfoods/zaffran/internal/users/account"
	"github.com/zaffranfoods/zaffran/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[Zaffran] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Token Service ──────────────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(log,
		api.ProbeTarget{Name: "postgres", Check: func() error {
			return pgstore.Ping(context.Background(), pool)
		}},
		api.ProbeTarget{Name: "redis", Check: func() error {
			return redisstore.Ping(context.Background(), rdb)
		}},
	)

	// ── 8. Outbound Delivery ──────────────────────────────────────────────
	// Breaker-wrapped senders so a dead relay fails fast.
	mailer := notify.NewBreakerMailer(notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, cfg.PublicBaseURL), log)

	smsSender := notify.NewBreakerSMSSender(notify.NewHTTPSMSSender(notify.SMSConfig{
		APIURL: cfg.SMSAPIURL,
		APIKey: cfg.SMSAPIKey,
		Sender: cfg.SMSSender,
	}), log)

	// ── 9. Domain Wiring ──────────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)
	sessionRepository := auth.NewSessionRepository(pool)
	verifyTokenRepository := auth.NewVerificationTokenRepository(rdb)
	resetTokenRepository := auth.NewResetTokenRepository(rdb)
	otpRepository := auth.NewOTPRepository(rdb)

	authService := auth.NewService(
		userRepository, sessionRepository,
		verifyTokenRepository, resetTokenRepository, otpRepository,
		jwtSvc, mailer, smsSender,
	)
	authHandler := auth.NewHandler(authService, auth.CookiePolicy{
		Secure: cfg.IsProduction(),
		Domain: cookieDomain(cfg),
	})

	addressRepository := account.NewAddressRepository(pool)
	accountRepository := account.NewAccountRepository(pool)
	accountService := account.NewService(
		userRepository, sessionRepository, addressRepository, accountRepository, log,
	)
	accountHandler := account.NewHandler(accountService)

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	m := metrics.New()

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Account:   accountHandler,
	}

	// The server context outlives startup: it owns long-running helpers
	// like the rate limiter's cleanup goroutine.
	server := api.NewServer(context.Background(), cfg, log, jwtSvc, m, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// cookieDomain scopes auth cookies only in production; development stays
// host-only so localhost works.
func cookieDomain(cfg *config.Config) string {
	if cfg.IsProduction() {
		return cfg.CookieDomain
	}
	return ""
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
