// Command keygate-server starts the keygate HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/costwise/keygate/internal/config"
	"github.com/costwise/keygate/internal/costengine"
	"github.com/costwise/keygate/internal/lock"
	"github.com/costwise/keygate/internal/migrate"
	"github.com/costwise/keygate/internal/repository/postgres"
	"github.com/costwise/keygate/internal/server/httpapi"
	"github.com/costwise/keygate/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and starts the HTTP server.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// DB pool
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	// Repositories
	db := &postgres.DB{Pool: pool}
	secretRepo := postgres.NewSecretRepo(db)
	tokenRepo := postgres.NewTokenRepo(db)
	queueRepo := postgres.NewQueueRepo(db)
	compRepo := postgres.NewCompensationRepo(db)
	dirRepo := postgres.NewDirectoryRepo(db)

	// Rotation lock: durable first, in-process only when the store is down
	locker := lock.NewFailover(
		lock.NewPG(pool, cfg.LockTTL),
		lock.NewMemory(cfg.LockTTL),
		logger,
	)

	engine := costengine.New(costengine.Config{
		BaseURL:      cfg.Engine.BaseURL,
		RootKey:      cfg.Engine.RootKey,
		ProbeTimeout: cfg.Engine.ProbeTimeout,
		CallTimeout:  cfg.Engine.CallTimeout,
	})

	// Services
	revealSvc := service.NewRevealService(tokenRepo, secretRepo, cfg.RevealTTL)
	rotationSvc := service.NewRotationService(locker, secretRepo, engine, revealSvc, logger)
	onboardingSvc := service.NewOnboardingService(engine, secretRepo, revealSvc, dirRepo, compRepo, logger)
	billingSvc := service.NewBillingSyncService(queueRepo, engine, logger)

	app := httpapi.New(onboardingSvc, rotationSvc, revealSvc, billingSvc, logger)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.Router(app, []byte(cfg.JWTKey), logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
