package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection
// via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendRunCompletedEmail(ctx context.Context, toEmail string, summary RunSummary) error {
	subject := fmt.Sprintf(subjectRunCompletedFmt, summary.DatasetName)
	content, err := renderEmailTemplate("run_completed.html", runCompletedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Analysis complete",
			Heading:  "Your market analysis is ready",
			CTALabel: "View results",
			CTAURL:   summary.ResultURL,
		},
		DatasetName:     summary.DatasetName,
		Focus:           summary.Focus,
		TopZip:          summary.TopZip,
		ConfidenceLevel: summary.ConfidenceLevel,
		ZipCount:        summary.ZipCount,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendRunFailedEmail(ctx context.Context, toEmail string, summary RunSummary, errorMessage string) error {
	subject := fmt.Sprintf(subjectRunFailedFmt, summary.DatasetName)
	content, err := renderEmailTemplate("run_failed.html", runFailedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Analysis failed",
			Heading: "Your market analysis could not be completed",
		},
		DatasetName:  summary.DatasetName,
		Focus:        summary.Focus,
		ErrorMessage: errorMessage,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}
