// Package service contains the analysis run lifecycle: creating runs,
// executing the scoring pipeline in the worker, and exposing results.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"marketscope_backend/internal/analysis/repository"
	"marketscope_backend/internal/analysis/transport"
	datasetsrepo "marketscope_backend/internal/datasets/repository"
	"marketscope_backend/internal/events"
	"marketscope_backend/internal/scheduler"
	"marketscope_backend/internal/scoring"
	"marketscope_backend/internal/validate"
	"marketscope_backend/platform/apperr"
	"marketscope_backend/platform/config"
	"marketscope_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	msgDatasetNotFound = "dataset not found"
	msgRunNotFound     = "analysis run not found"
)

// Service orchestrates analysis runs over uploaded datasets.
type Service struct {
	repo     *repository.Repository
	datasets *datasetsrepo.Repository
	enqueuer scheduler.RunEnqueuer
	bus      events.Bus
	seed     int64
	topN     int
	log      *logger.Logger
}

// New creates the analysis service.
func New(repo *repository.Repository, datasets *datasetsrepo.Repository, cfg config.ScoringConfig, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		datasets: datasets,
		seed:     cfg.GetScoringSeed(),
		topN:     cfg.GetTopSegments(),
		log:      log,
	}
}

// SetEnqueuer wires the scheduler client. When absent, runs execute inline in
// a background goroutine instead of through the queue.
func (s *Service) SetEnqueuer(enqueuer scheduler.RunEnqueuer) {
	s.enqueuer = enqueuer
}

// SetEventBus wires the domain event bus.
func (s *Service) SetEventBus(bus events.Bus) {
	s.bus = bus
}

// CreateRun validates the request, persists a pending run, and hands it to
// the worker queue.
func (s *Service) CreateRun(ctx context.Context, req transport.CreateRunRequest) (*transport.RunResponse, error) {
	ds, err := s.datasets.GetByID(ctx, req.DatasetID)
	if err != nil {
		if errors.Is(err, datasetsrepo.ErrDatasetNotFound) {
			return nil, apperr.NotFound(msgDatasetNotFound)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load dataset", err)
	}

	if _, err := scoring.FocusRuleFor(scoring.Vertical(ds.Vertical), req.Focus); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	run, err := s.repo.Create(ctx, ds.ID, req.Focus)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create analysis run", err)
	}

	s.log.AnalysisEvent("run_created", run.ID.String(), ds.ID.String())

	if s.enqueuer != nil {
		payload := scheduler.AnalysisRunPayload{
			RunID:     run.ID.String(),
			DatasetID: ds.ID.String(),
			Focus:     run.Focus,
		}
		if err := s.enqueuer.EnqueueAnalysisRun(ctx, payload); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to enqueue analysis run", err)
		}
	} else {
		// No queue configured; execute in the background so the request
		// still returns immediately.
		go func() {
			if err := s.Execute(context.Background(), run.ID); err != nil {
				s.log.Error("inline analysis run failed", "run_id", run.ID.String(), "error", err)
			}
		}()
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.AnalysisRunQueued{
			BaseEvent: events.NewBaseEvent(),
			RunID:     run.ID,
			DatasetID: ds.ID,
			Focus:     run.Focus,
		})
	}

	resp := toRunResponse(run, false)
	return &resp, nil
}

// Execute runs the scoring pipeline for a queued run. Pipeline-level failures
// (unusable input) are recorded on the run and not returned, so the queue does
// not retry deterministic errors; infrastructure failures are returned.
func (s *Service) Execute(ctx context.Context, runID uuid.UUID) (err error) {
	run, err := s.repo.GetByID(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status == repository.StatusDone {
		return nil
	}

	// A panic anywhere in the pipeline must leave the run in the error state,
	// never stuck in running.
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("analysis run panicked", "run_id", run.ID.String(), "panic", r)
			err = s.failRun(ctx, run, fmt.Errorf("internal pipeline failure: %v", r))
		}
	}()

	if err := s.repo.MarkRunning(ctx, run.ID); err != nil {
		return err
	}
	s.log.AnalysisEvent("run_started", run.ID.String(), run.DatasetID.String())

	in, err := s.loadInput(ctx, run)
	if err != nil {
		return err
	}

	result, err := scoring.Run(in, s.log)
	if err != nil {
		return s.failRun(ctx, run, err)
	}

	doc, err := json.Marshal(toResultDocument(result))
	if err != nil {
		return fmt.Errorf("marshal run result: %w", err)
	}
	if err := s.repo.MarkDone(ctx, run.ID, doc); err != nil {
		return err
	}

	s.log.AnalysisEvent("run_completed", run.ID.String(), run.DatasetID.String())

	if s.bus != nil {
		topZip := ""
		if len(result.TopSegments) > 0 {
			topZip = result.TopSegments[0].Zip
		}
		s.bus.Publish(ctx, events.AnalysisRunCompleted{
			BaseEvent:       events.NewBaseEvent(),
			RunID:           run.ID,
			DatasetID:       run.DatasetID,
			Focus:           run.Focus,
			TopZip:          topZip,
			ConfidenceLevel: result.Confidence.Level,
			ZipCount:        len(result.ZipScores),
		})
	}
	return nil
}

func (s *Service) failRun(ctx context.Context, run repository.Run, cause error) error {
	s.log.AnalysisEvent("run_failed", run.ID.String(), run.DatasetID.String())

	if err := s.repo.MarkError(ctx, run.ID, cause.Error()); err != nil {
		return err
	}
	if s.bus != nil {
		s.bus.Publish(ctx, events.AnalysisRunFailed{
			BaseEvent: events.NewBaseEvent(),
			RunID:     run.ID,
			DatasetID: run.DatasetID,
			Focus:     run.Focus,
			Message:   cause.Error(),
		})
	}
	return nil
}

// GetRun returns one run including its result document when complete.
func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*transport.RunResponse, error) {
	run, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			return nil, apperr.NotFound(msgRunNotFound)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load analysis run", err)
	}
	resp := toRunResponse(run, true)
	return &resp, nil
}

// ListRuns returns all runs for a dataset, newest first.
func (s *Service) ListRuns(ctx context.Context, datasetID uuid.UUID) (*transport.RunListResponse, error) {
	if _, err := s.datasets.GetByID(ctx, datasetID); err != nil {
		if errors.Is(err, datasetsrepo.ErrDatasetNotFound) {
			return nil, apperr.NotFound(msgDatasetNotFound)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load dataset", err)
	}

	runs, err := s.repo.ListByDataset(ctx, datasetID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list analysis runs", err)
	}

	items := make([]transport.RunResponse, 0, len(runs))
	for _, run := range runs {
		items = append(items, toRunResponse(run, false))
	}
	return &transport.RunListResponse{Items: items, Total: len(items)}, nil
}

// Holdout measures train/test concordance for a dataset without persisting a
// run.
func (s *Service) Holdout(ctx context.Context, req transport.HoldoutRequest) (*validate.HoldoutReport, error) {
	ds, err := s.datasets.GetByID(ctx, req.DatasetID)
	if err != nil {
		if errors.Is(err, datasetsrepo.ErrDatasetNotFound) {
			return nil, apperr.NotFound(msgDatasetNotFound)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load dataset", err)
	}

	if _, err := scoring.FocusRuleFor(scoring.Vertical(ds.Vertical), req.Focus); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	in, err := s.buildInput(ctx, ds, req.Focus, "")
	if err != nil {
		return nil, err
	}

	report, err := validate.Holdout(in, s.log)
	if err != nil {
		if errors.Is(err, validate.ErrTooFewZips) {
			return nil, apperr.Validation("customer history spans too few zips for a holdout split")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "holdout evaluation failed", err)
	}
	return &report, nil
}

func (s *Service) loadInput(ctx context.Context, run repository.Run) (scoring.PipelineInput, error) {
	ds, err := s.datasets.GetByID(ctx, run.DatasetID)
	if err != nil {
		return scoring.PipelineInput{}, fmt.Errorf("load dataset for run: %w", err)
	}
	return s.buildInput(ctx, ds, run.Focus, run.ID.String())
}

func (s *Service) buildInput(ctx context.Context, ds datasetsrepo.Dataset, focus, runID string) (scoring.PipelineInput, error) {
	customers, err := s.datasets.LoadCustomers(ctx, ds.ID)
	if err != nil {
		return scoring.PipelineInput{}, err
	}
	competitors, err := s.datasets.LoadCompetitors(ctx, ds.ID)
	if err != nil {
		return scoring.PipelineInput{}, err
	}
	zips, err := s.datasets.LoadDemographics(ctx, ds.ID)
	if err != nil {
		return scoring.PipelineInput{}, err
	}

	return scoring.PipelineInput{
		Customers:   customers,
		Zips:        zips,
		Competitors: competitors,
		Config: scoring.PipelineConfig{
			RunID:       runID,
			Vertical:    ds.Vertical,
			Focus:       focus,
			PracticeZip: ds.PracticeZip,
			Seed:        s.seed,
			TopN:        s.topN,
		},
	}, nil
}

func toRunResponse(run repository.Run, includeResult bool) transport.RunResponse {
	resp := transport.RunResponse{
		ID:           run.ID,
		DatasetID:    run.DatasetID,
		Focus:        run.Focus,
		Status:       run.Status,
		ErrorMessage: run.ErrorMessage,
		CreatedAt:    run.CreatedAt,
		StartedAt:    run.StartedAt,
		CompletedAt:  run.CompletedAt,
	}
	if includeResult && len(run.Result) > 0 {
		resp.Result = json.RawMessage(run.Result)
	}
	return resp
}

// resultDocument is the persisted JSON shape of a completed run.
type resultDocument struct {
	Headline             scoring.HeadlineMetrics `json:"headline"`
	ZipScores            []scoring.ZipScore      `json:"zip_scores"`
	TopSegments          []scoring.ZipScore      `json:"top_segments"`
	MapPoints            []scoring.MapPoint      `json:"map_points"`
	Confidence           scoring.Confidence      `json:"confidence"`
	CohortMethod         string                  `json:"cohort_method"`
	CohortFallbackReason string                  `json:"cohort_fallback_reason,omitempty"`
	ModelAvailable       bool                    `json:"model_available"`
	ModelReason          string                  `json:"model_reason,omitempty"`
}

func toResultDocument(result *scoring.PipelineResult) resultDocument {
	return resultDocument{
		Headline:             result.Headline,
		ZipScores:            result.ZipScores,
		TopSegments:          result.TopSegments,
		MapPoints:            result.MapPoints,
		Confidence:           result.Confidence,
		CohortMethod:         string(result.CohortMethod),
		CohortFallbackReason: result.CohortFallbackReason,
		ModelAvailable:       result.ModelAvailable,
		ModelReason:          result.ModelReason,
	}
}
