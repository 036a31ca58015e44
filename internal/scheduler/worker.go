package scheduler

import (
	"context"
	"fmt"

	"marketscope_backend/platform/config"
	"marketscope_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// RunExecutor executes one queued analysis run end to end.
// Implemented by the analysis service; the indirection keeps the worker free
// of an import back into the analysis module.
type RunExecutor interface {
	Execute(ctx context.Context, runID uuid.UUID) error
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	executor RunExecutor
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, executor RunExecutor, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 4
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		executor: executor,
		log:      log,
	}

	mux.HandleFunc(TaskAnalysisRun, w.handleAnalysisRun)

	return w, nil
}

func (w *Worker) handleAnalysisRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAnalysisRunPayload(task)
	if err != nil {
		return err
	}

	runID, err := uuid.Parse(payload.RunID)
	if err != nil {
		return err
	}

	w.log.Info("analysis run dequeued", "run_id", payload.RunID, "dataset_id", payload.DatasetID, "focus", payload.Focus)

	if err := w.executor.Execute(ctx, runID); err != nil {
		w.log.Error("analysis run failed", "run_id", payload.RunID, "error", err)
		return err
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
