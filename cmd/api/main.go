package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketscope_backend/internal/analysis"
	"marketscope_backend/internal/datasets"
	"marketscope_backend/internal/email"
	"marketscope_backend/internal/events"
	"marketscope_backend/internal/geo"
	apphttp "marketscope_backend/internal/http"
	"marketscope_backend/internal/http/router"
	"marketscope_backend/internal/notification"
	"marketscope_backend/internal/scheduler"
	"marketscope_backend/internal/storage"
	"marketscope_backend/migrations"
	"marketscope_backend/platform/config"
	"marketscope_backend/platform/db"
	"marketscope_backend/platform/logger"
	"marketscope_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Offline ZIP centroid table (embedded seed plus optional external CSV)
	centroids, err := geo.LoadTable(cfg.GetZipCentroidsPath())
	if err != nil {
		log.Error("failed to load zip centroid table", "error", err)
		panic("failed to load zip centroid table: " + err.Error())
	}
	log.Info("zip centroid table loaded", "zips", centroids.Len())

	runClient, closeRunClient := initRunScheduler(cfg, log)
	if closeRunClient != nil {
		defer closeRunClient()
	}

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(sender, cfg, cfg.GetNotifyAddress(), log)
	notificationModule.RegisterHandlers(eventBus)

	datasetsModule := datasets.NewModule(pool, centroids, eventBus, val, log)
	notificationModule.SetDatasetNameReader(datasetsModule.Repository())

	// Optional MinIO archive for raw uploads
	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		ensureBucket(ctx, log, storageSvc, "dataset-uploads", cfg.GetMinioBucketDatasetUploads())
		datasetsModule.SetArchiveStorage(storageSvc, cfg.GetMinioBucketDatasetUploads())
		log.Info("storage service initialized", "datasetUploadsBucket", cfg.GetMinioBucketDatasetUploads())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; raw upload archiving disabled")
	}

	analysisModule := analysis.NewModule(pool, datasetsModule.Repository(), cfg, eventBus, val, log)
	if runClient != nil {
		analysisModule.SetEnqueuer(runClient)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			datasetsModule,
			analysisModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// ensureBucket wraps the retry logic for verifying a MinIO bucket exists.
func ensureBucket(ctx context.Context, log *logger.Logger, storageSvc storage.Service, name, bucket string) {
	if err := withRetry(ctx, log, "ensure "+name+" bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
}

func initRunScheduler(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.RunEnqueuer, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; analysis runs execute inline")
		return nil, nil
	}

	runClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize run scheduler client", "error", err)
		return nil, nil
	}

	return runClient, func() {
		_ = runClient.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
