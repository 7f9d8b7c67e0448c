// Package mail delivers transactional e-mails such as password reset codes.
package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"
)

// Mailer sends plain-text e-mail
type Mailer interface {
	Send(ctx context.Context, to, subject, text string) error
}

// Resend delivers through the Resend API
type Resend struct {
	client *resend.Client
	sender string
	logger logrus.FieldLogger
}

// NewResend creates a Resend mailer sending from sender
func NewResend(apiKey, sender string, logger logrus.FieldLogger) *Resend {
	return &Resend{client: resend.NewClient(apiKey), sender: sender, logger: logger}
}

func (m *Resend) Send(ctx context.Context, to, subject, text string) error {
	params := &resend.SendEmailRequest{
		From:    m.sender,
		To:      []string{to},
		Subject: subject,
		Text:    text,
	}
	resp, err := m.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	m.logger.WithFields(logrus.Fields{"to": to, "id": resp.Id}).Info("Email sent")
	return nil
}

// Log only logs messages; used when no e-mail provider is configured
type Log struct {
	logger logrus.FieldLogger
}

// NewLog creates a mailer that writes to the log
func NewLog(logger logrus.FieldLogger) *Log {
	return &Log{logger: logger}
}

func (m *Log) Send(_ context.Context, to, subject, text string) error {
	m.logger.WithFields(logrus.Fields{"to": to, "subject": subject}).Info(text)
	return nil
}
