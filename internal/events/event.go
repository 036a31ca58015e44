// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"marketscope_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Dataset Domain Events
// =============================================================================

// DatasetUploaded is published when a dataset upload is accepted and stored.
type DatasetUploaded struct {
	BaseEvent
	DatasetID    uuid.UUID `json:"datasetId"`
	Name         string    `json:"name"`
	Vertical     string    `json:"vertical"`
	CustomerRows int       `json:"customerRows"`
	WarningCount int       `json:"warningCount"`
}

func (e DatasetUploaded) EventName() string { return "datasets.dataset.uploaded" }

// =============================================================================
// Analysis Domain Events
// =============================================================================

// AnalysisRunQueued is published when a run is created and enqueued.
type AnalysisRunQueued struct {
	BaseEvent
	RunID     uuid.UUID `json:"runId"`
	DatasetID uuid.UUID `json:"datasetId"`
	Focus     string    `json:"focus"`
}

func (e AnalysisRunQueued) EventName() string { return "analysis.run.queued" }

// AnalysisRunCompleted is published when the scoring pipeline finishes and the
// run reaches the done state.
type AnalysisRunCompleted struct {
	BaseEvent
	RunID           uuid.UUID `json:"runId"`
	DatasetID       uuid.UUID `json:"datasetId"`
	Focus           string    `json:"focus"`
	TopZip          string    `json:"topZip"`
	ConfidenceLevel string    `json:"confidenceLevel"`
	ZipCount        int       `json:"zipCount"`
}

func (e AnalysisRunCompleted) EventName() string { return "analysis.run.completed" }

// AnalysisRunFailed is published when the pipeline raises a run-level error
// and the run reaches the error state.
type AnalysisRunFailed struct {
	BaseEvent
	RunID     uuid.UUID `json:"runId"`
	DatasetID uuid.UUID `json:"datasetId"`
	Focus     string    `json:"focus"`
	Message   string    `json:"message"`
}

func (e AnalysisRunFailed) EventName() string { return "analysis.run.failed" }
