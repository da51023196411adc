// Command keygate-syncworker drains the billing sync queue once and exits.
// Intended to run on a schedule (cron, k8s CronJob). It also sweeps expired
// reveal tokens as part of the same pass.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/costwise/keygate/internal/costengine"
	"github.com/costwise/keygate/internal/repository/postgres"
	"github.com/costwise/keygate/internal/service"
)

func main() {
	dsn := flag.String("dsn", os.Getenv("KEYGATE_DATABASE_URL"), "PostgreSQL DSN")
	engineURL := flag.String("engine-url", os.Getenv("KEYGATE_ENGINE_BASE_URL"), "cost engine base URL")
	rootKey := flag.String("root-key", os.Getenv("KEYGATE_ENGINE_ROOT_KEY"), "cost engine root credential")
	limit := flag.Int("limit", 50, "max queue entries per drain")
	sweep := flag.Bool("sweep-tokens", true, "delete expired reveal tokens")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall run deadline")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if *dsn == "" || *engineURL == "" {
		logger.Fatal("missing -dsn or -engine-url")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, *dsn)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	db := &postgres.DB{Pool: pool}
	queueRepo := postgres.NewQueueRepo(db)
	tokenRepo := postgres.NewTokenRepo(db)

	engine := costengine.New(costengine.Config{BaseURL: *engineURL, RootKey: *rootKey})
	billing := service.NewBillingSyncService(queueRepo, engine, logger)

	rep, err := billing.Drain(ctx, *limit)
	if err != nil {
		logger.Fatal("drain", zap.Error(err))
	}
	logger.Info("drain finished",
		zap.Int("processed", rep.Processed),
		zap.Int("succeeded", rep.Succeeded),
		zap.Int("failed", rep.Failed),
	)
	for _, e := range rep.Errors {
		logger.Warn("entry failed", zap.String("detail", e))
	}

	if *sweep {
		n, err := tokenRepo.DeleteExpired(ctx)
		if err != nil {
			logger.Error("token sweep", zap.Error(err))
		} else if n > 0 {
			logger.Info("expired reveal tokens removed", zap.Int64("count", n))
		}
	}
}
