// Package notification provides event handlers for sending notifications in
// response to domain events. The module subscribes to events and inverts the
// dependency: the analysis module never needs to know about email providers
// or templates.
package notification

import (
	"context"
	"fmt"
	"strings"

	"marketscope_backend/internal/email"
	"marketscope_backend/internal/events"
	"marketscope_backend/platform/config"
	"marketscope_backend/platform/logger"

	"github.com/google/uuid"
)

// DatasetNameReader resolves a dataset's display name for email subjects.
type DatasetNameReader interface {
	DatasetName(ctx context.Context, id uuid.UUID) (string, error)
}

// Module handles all notification-related event subscriptions.
type Module struct {
	sender        email.Sender
	cfg           config.NotificationConfig
	notifyAddress string
	datasets      DatasetNameReader
	log           *logger.Logger
}

// New creates a new notification module. notifyAddress is the operator inbox
// that receives run lifecycle emails; when empty all sends are skipped.
func New(sender email.Sender, cfg config.NotificationConfig, notifyAddress string, log *logger.Logger) *Module {
	return &Module{
		sender:        sender,
		cfg:           cfg,
		notifyAddress: notifyAddress,
		log:           log,
	}
}

// SetDatasetNameReader injects the dataset name resolver.
func (m *Module) SetDatasetNameReader(reader DatasetNameReader) {
	m.datasets = reader
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.DatasetUploaded{}.EventName(), m)
	bus.Subscribe(events.AnalysisRunCompleted{}.EventName(), m)
	bus.Subscribe(events.AnalysisRunFailed{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.DatasetUploaded:
		return m.handleDatasetUploaded(ctx, e)
	case events.AnalysisRunCompleted:
		return m.handleRunCompleted(ctx, e)
	case events.AnalysisRunFailed:
		return m.handleRunFailed(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleDatasetUploaded(_ context.Context, e events.DatasetUploaded) error {
	// Upload confirmations stay in the app; just record the event.
	m.log.Info("dataset uploaded",
		"datasetId", e.DatasetID,
		"name", e.Name,
		"vertical", e.Vertical,
		"customerRows", e.CustomerRows,
		"warnings", e.WarningCount,
	)
	return nil
}

func (m *Module) handleRunCompleted(ctx context.Context, e events.AnalysisRunCompleted) error {
	if m.notifyAddress == "" {
		return nil
	}

	summary := email.RunSummary{
		RunID:           e.RunID.String(),
		DatasetName:     m.resolveDatasetName(ctx, e.DatasetID),
		Focus:           e.Focus,
		TopZip:          e.TopZip,
		ConfidenceLevel: e.ConfidenceLevel,
		ZipCount:        e.ZipCount,
		ResultURL:       m.buildRunURL(e.RunID),
	}

	if err := m.sender.SendRunCompletedEmail(ctx, m.notifyAddress, summary); err != nil {
		m.log.Error("failed to send run completed email",
			"runId", e.RunID,
			"datasetId", e.DatasetID,
			"error", err,
		)
		return err
	}
	m.log.Info("run completed email sent", "runId", e.RunID, "to", m.notifyAddress)
	return nil
}

func (m *Module) handleRunFailed(ctx context.Context, e events.AnalysisRunFailed) error {
	if m.notifyAddress == "" {
		return nil
	}

	summary := email.RunSummary{
		RunID:       e.RunID.String(),
		DatasetName: m.resolveDatasetName(ctx, e.DatasetID),
		Focus:       e.Focus,
		ResultURL:   m.buildRunURL(e.RunID),
	}

	if err := m.sender.SendRunFailedEmail(ctx, m.notifyAddress, summary, e.Message); err != nil {
		m.log.Error("failed to send run failed email",
			"runId", e.RunID,
			"datasetId", e.DatasetID,
			"error", err,
		)
		return err
	}
	m.log.Info("run failed email sent", "runId", e.RunID, "to", m.notifyAddress)
	return nil
}

func (m *Module) resolveDatasetName(ctx context.Context, datasetID uuid.UUID) string {
	if m.datasets == nil {
		return ""
	}
	name, err := m.datasets.DatasetName(ctx, datasetID)
	if err != nil {
		m.log.Warn("failed to resolve dataset name", "datasetId", datasetID, "error", err)
		return ""
	}
	return name
}

func (m *Module) buildRunURL(runID uuid.UUID) string {
	base := strings.TrimRight(m.cfg.GetAppBaseURL(), "/")
	return fmt.Sprintf("%s/runs/%s", base, runID)
}
