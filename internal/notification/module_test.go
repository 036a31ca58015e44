package notification

import (
	"context"
	"errors"
	"testing"

	"marketscope_backend/internal/email"
	"marketscope_backend/internal/events"
	"marketscope_backend/platform/logger"

	"github.com/google/uuid"
)

type testNotificationConfig struct{}

func (testNotificationConfig) GetAppBaseURL() string { return "https://app.example.com/" }

type testSender struct {
	completedCalls int
	failedCalls    int
	lastTo         string
	lastSummary    email.RunSummary
	lastError      string
}

func (s *testSender) SendRunCompletedEmail(_ context.Context, to string, summary email.RunSummary) error {
	s.completedCalls++
	s.lastTo = to
	s.lastSummary = summary
	return nil
}

func (s *testSender) SendRunFailedEmail(_ context.Context, to string, summary email.RunSummary, errorMessage string) error {
	s.failedCalls++
	s.lastTo = to
	s.lastSummary = summary
	s.lastError = errorMessage
	return nil
}

type testDatasetNames struct {
	name string
	err  error
}

func (r testDatasetNames) DatasetName(context.Context, uuid.UUID) (string, error) {
	return r.name, r.err
}

func TestHandleRunCompletedSendsToOperatorInbox(t *testing.T) {
	sender := &testSender{}
	m := New(sender, testNotificationConfig{}, "ops@example.com", logger.New("development"))
	m.SetDatasetNameReader(testDatasetNames{name: "Q1 Ledger"})

	runID := uuid.New()
	err := m.Handle(context.Background(), events.AnalysisRunCompleted{
		RunID:           runID,
		DatasetID:       uuid.New(),
		Focus:           "surgical",
		TopZip:          "78701",
		ConfidenceLevel: "high",
		ZipCount:        42,
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if sender.completedCalls != 1 {
		t.Fatalf("expected 1 completed email, got %d", sender.completedCalls)
	}
	if sender.lastTo != "ops@example.com" {
		t.Fatalf("expected operator inbox, got %s", sender.lastTo)
	}
	if sender.lastSummary.DatasetName != "Q1 Ledger" {
		t.Fatalf("expected resolved dataset name, got %q", sender.lastSummary.DatasetName)
	}
	want := "https://app.example.com/runs/" + runID.String()
	if sender.lastSummary.ResultURL != want {
		t.Fatalf("expected run URL %s, got %s", want, sender.lastSummary.ResultURL)
	}
}

func TestHandleRunCompletedSkipsWithoutNotifyAddress(t *testing.T) {
	sender := &testSender{}
	m := New(sender, testNotificationConfig{}, "", logger.New("development"))

	err := m.Handle(context.Background(), events.AnalysisRunCompleted{RunID: uuid.New()})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if sender.completedCalls != 0 {
		t.Fatalf("expected no emails without a notify address, got %d", sender.completedCalls)
	}
}

func TestHandleRunFailedForwardsErrorMessage(t *testing.T) {
	sender := &testSender{}
	m := New(sender, testNotificationConfig{}, "ops@example.com", logger.New("development"))

	err := m.Handle(context.Background(), events.AnalysisRunFailed{
		RunID:     uuid.New(),
		DatasetID: uuid.New(),
		Focus:     "surgical",
		Message:   "no geocoded zips in the dataset",
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if sender.failedCalls != 1 {
		t.Fatalf("expected 1 failed email, got %d", sender.failedCalls)
	}
	if sender.lastError != "no geocoded zips in the dataset" {
		t.Fatalf("unexpected error message: %q", sender.lastError)
	}
}

func TestHandleRunCompletedToleratesNameLookupFailure(t *testing.T) {
	sender := &testSender{}
	m := New(sender, testNotificationConfig{}, "ops@example.com", logger.New("development"))
	m.SetDatasetNameReader(testDatasetNames{err: errors.New("dataset gone")})

	err := m.Handle(context.Background(), events.AnalysisRunCompleted{RunID: uuid.New()})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if sender.completedCalls != 1 {
		t.Fatal("expected email despite name lookup failure")
	}
	if sender.lastSummary.DatasetName != "" {
		t.Fatalf("expected empty dataset name, got %q", sender.lastSummary.DatasetName)
	}
}

func TestHandleDatasetUploadedIsLogOnly(t *testing.T) {
	sender := &testSender{}
	m := New(sender, testNotificationConfig{}, "ops@example.com", logger.New("development"))

	err := m.Handle(context.Background(), events.DatasetUploaded{
		DatasetID:    uuid.New(),
		Name:         "Q1 Ledger",
		Vertical:     "medspa",
		CustomerRows: 120,
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if sender.completedCalls != 0 || sender.failedCalls != 0 {
		t.Fatal("expected no emails for upload events")
	}
}
