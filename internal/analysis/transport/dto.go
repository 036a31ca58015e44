// Package transport defines request and response DTOs for the analysis API.
package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CreateRunRequest starts an analysis run over a dataset.
type CreateRunRequest struct {
	DatasetID uuid.UUID `json:"dataset_id" validate:"required"`
	Focus     string    `json:"focus" validate:"required,focus"`
}

// HoldoutRequest asks for a train/test concordance measurement.
type HoldoutRequest struct {
	DatasetID uuid.UUID `json:"dataset_id" validate:"required"`
	Focus     string    `json:"focus" validate:"required,focus"`
}

// RunResponse is the API shape of an analysis run. Result is the raw pipeline
// output document and is only present on completed runs.
type RunResponse struct {
	ID           uuid.UUID       `json:"id"`
	DatasetID    uuid.UUID       `json:"dataset_id"`
	Focus        string          `json:"focus"`
	Status       string          `json:"status"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// RunListResponse wraps a list of runs.
type RunListResponse struct {
	Items []RunResponse `json:"items"`
	Total int           `json:"total"`
}
