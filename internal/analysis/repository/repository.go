// Package repository provides data access for analysis runs.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Run statuses. A run moves pending -> running -> done|error.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusError   = "error"
)

// ErrRunNotFound is returned when an analysis run does not exist.
var ErrRunNotFound = errors.New("analysis run not found")

// Run represents one analysis run over a dataset. Result holds the raw
// pipeline output document as JSON once the run reaches the done state.
type Run struct {
	ID           uuid.UUID
	DatasetID    uuid.UUID
	Focus        string
	Status       string
	ErrorMessage *string
	Result       []byte
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// Repository handles analysis run persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new analysis repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending run and returns it with generated fields.
func (r *Repository) Create(ctx context.Context, datasetID uuid.UUID, focus string) (Run, error) {
	run := Run{DatasetID: datasetID, Focus: focus, Status: StatusPending}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO analysis_runs (dataset_id, focus, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		datasetID, focus, StatusPending,
	).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("create analysis run: %w", err)
	}
	return run, nil
}

// MarkRunning transitions a run to the running state and stamps started_at.
func (r *Repository) MarkRunning(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE analysis_runs
		SET status = $2, started_at = now(), error_message = NULL
		WHERE id = $1`,
		id, StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// MarkDone stores the result document and transitions the run to done.
func (r *Repository) MarkDone(ctx context.Context, id uuid.UUID, result []byte) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE analysis_runs
		SET status = $2, result = $3, completed_at = now()
		WHERE id = $1`,
		id, StatusDone, result,
	)
	if err != nil {
		return fmt.Errorf("mark run done: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// MarkError transitions the run to the error state with a message.
func (r *Repository) MarkError(ctx context.Context, id uuid.UUID, message string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE analysis_runs
		SET status = $2, error_message = $3, completed_at = now()
		WHERE id = $1`,
		id, StatusError, message,
	)
	if err != nil {
		return fmt.Errorf("mark run error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetByID retrieves a single run including its result document.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Run, error) {
	var run Run
	err := r.pool.QueryRow(ctx, `
		SELECT id, dataset_id, focus, status, error_message, result,
		       created_at, started_at, completed_at
		FROM analysis_runs
		WHERE id = $1`,
		id,
	).Scan(
		&run.ID, &run.DatasetID, &run.Focus, &run.Status, &run.ErrorMessage,
		&run.Result, &run.CreatedAt, &run.StartedAt, &run.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, fmt.Errorf("get analysis run: %w", err)
	}
	return run, nil
}

// ListByDataset retrieves all runs for a dataset, newest first. The result
// document is excluded to keep list responses small.
func (r *Repository) ListByDataset(ctx context.Context, datasetID uuid.UUID) ([]Run, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, dataset_id, focus, status, error_message,
		       created_at, started_at, completed_at
		FROM analysis_runs
		WHERE dataset_id = $1
		ORDER BY created_at DESC`,
		datasetID,
	)
	if err != nil {
		return nil, fmt.Errorf("list analysis runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID, &run.DatasetID, &run.Focus, &run.Status, &run.ErrorMessage,
			&run.CreatedAt, &run.StartedAt, &run.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan analysis run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
