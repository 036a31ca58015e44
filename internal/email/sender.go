// Package email sends analysis lifecycle notifications over the tenant's own
// SMTP server.
package email

import (
	"context"

	"marketscope_backend/platform/config"
)

// RunSummary carries the fields rendered into run notification emails.
type RunSummary struct {
	RunID           string
	DatasetName     string
	Focus           string
	TopZip          string
	ConfidenceLevel string
	ZipCount        int
	ResultURL       string
}

// Sender delivers analysis notifications.
type Sender interface {
	SendRunCompletedEmail(ctx context.Context, toEmail string, summary RunSummary) error
	SendRunFailedEmail(ctx context.Context, toEmail string, summary RunSummary, errorMessage string) error
}

// NoopSender is used when email is not configured; sends are silently skipped.
type NoopSender struct{}

func (NoopSender) SendRunCompletedEmail(context.Context, string, RunSummary) error {
	return nil
}

func (NoopSender) SendRunFailedEmail(context.Context, string, RunSummary, string) error {
	return nil
}

// NewSender creates the configured Sender, or a no-op when email is disabled.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
