package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow_backend/internal/audit"
	"leadflow_backend/internal/classifier"
	leadrepo "leadflow_backend/internal/leads/repository"
	leadservice "leadflow_backend/internal/leads/service"
	"leadflow_backend/internal/scheduler"
	"leadflow_backend/internal/settings"
	"leadflow_backend/internal/webhook"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	// ========================================================================
	// Classification pipeline wiring
	// ========================================================================

	settingsStore := settings.NewStore(settings.NewRepository(pool), settings.DefaultCacheTTL, log)

	chain := classifier.NewChain([]classifier.Provider{
		classifier.NewGeminiProvider(settingsStore, cfg, log),
		classifier.NewRuleProvider(),
	}, cfg.GetClassifierTimeout(), log)

	leadRepo := leadrepo.New(pool)
	machine := leadservice.New(leadRepo, log)
	messages := webhook.NewRepository(pool)
	recorder := audit.NewRecorder(audit.NewRepository(pool), log)

	worker, err := scheduler.NewWorker(cfg, cfg.GetClassifierHistorySize(), scheduler.WorkerDeps{
		Messages: messages,
		Leads:    leadRepo,
		Machine:  machine,
		Chain:    chain,
		Auditor:  recorder,
	}, log)
	if err != nil {
		log.Error("failed to initialize classification worker", "error", err)
		panic("failed to initialize classification worker: " + err.Error())
	}

	purger := scheduler.NewPurger(pool, cfg, log)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		worker.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		return purger.Run(groupCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker stopped", "error", err)
	}
	log.Info("worker shut down")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
