package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	analysisrepo "marketscope_backend/internal/analysis/repository"
	analysisservice "marketscope_backend/internal/analysis/service"
	datasetsrepo "marketscope_backend/internal/datasets/repository"
	"marketscope_backend/internal/email"
	"marketscope_backend/internal/events"
	"marketscope_backend/internal/notification"
	"marketscope_backend/internal/scheduler"
	"marketscope_backend/platform/config"
	"marketscope_backend/platform/db"
	"marketscope_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting analysis worker", "env", cfg.Env, "queue", cfg.AsynqQueueName)

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

	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	datasetRepo := datasetsrepo.New(pool)

	notificationModule := notification.New(sender, cfg, cfg.GetNotifyAddress(), log)
	notificationModule.SetDatasetNameReader(datasetRepo)
	notificationModule.RegisterHandlers(eventBus)

	analysisSvc := analysisservice.New(analysisrepo.New(pool), datasetRepo, cfg, log)
	analysisSvc.SetEventBus(eventBus)

	worker, err := scheduler.NewWorker(cfg, analysisSvc, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
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
