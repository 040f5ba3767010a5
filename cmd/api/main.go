package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"setlist/internal/auth"
	"setlist/internal/config"
	transporthttp "setlist/internal/http"
	"setlist/internal/platform/database"
	"setlist/internal/platform/logging"
	"setlist/internal/platform/migrate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set; sign-in will fail until it is configured")
	}

	repo, limiter, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	providers := buildProviders(ctx, cfg, logger)
	if len(providers) == 0 {
		logger.Warn("no OAuth providers configured")
	}

	router := transporthttp.NewRouter(cfg, transporthttp.Dependencies{
		Service: auth.NewService(repo, providers, logger),
		Limiter: limiter,
		State:   auth.NewStateCodec(cfg.StateSecret(), cfg.DefaultLanguage),
		Tokens:  auth.NewTokenIssuer(cfg.JWTSecret),
	}, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	go func() {
		logger.Info("Setlist API listening", "addr", srv.Addr, "store", cfg.DataStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (auth.Repository, auth.RateLimiter, func(), error) {
	if cfg.UseInMemoryStore() {
		logger.Info("using in-memory repository")
		repo := auth.NewInMemoryRepository()
		seedLocalAccounts(ctx, repo, logger)
		return repo, auth.NewMemoryRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow), nil, nil
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := migrate.Apply(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}

	limiter := auth.NewPostgresRateLimiter(db, cfg.RateLimitRequests, cfg.RateLimitWindow)
	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	go runRateLimitCleanup(cleanupCtx, limiter, 10*cfg.RateLimitWindow, logger)

	cleanup := func() {
		stopCleanup()
		_ = db.Close()
	}

	logger.Info("connected to postgres")
	return auth.NewPostgresRepository(db), limiter, cleanup, nil
}

// runRateLimitCleanup prunes expired rate-limit windows until ctx is done.
func runRateLimitCleanup(ctx context.Context, limiter *auth.PostgresRateLimiter, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := limiter.Cleanup(ctx)
			if err != nil {
				logger.Error("rate limit cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Debug("rate limit windows pruned", "count", removed)
			}
		}
	}
}
