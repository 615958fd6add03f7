// Package mailer sends the transactional emails around a submission.
package mailer

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"github.com/padraicbc/trainerpages/config"
)

// Message is one outbound email.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers a message.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// New returns a Resend-backed mailer, or a log-only one when no API key is set.
func New(cfg config.MailConfig, log *zap.Logger) Mailer {
	if cfg.APIKey == "" {
		return &LogMailer{log: log}
	}
	return &Resend{client: resend.NewClient(cfg.APIKey)}
}

// Resend sends through the Resend API.
type Resend struct {
	client *resend.Client
}

func (r *Resend) Send(ctx context.Context, m Message) error {
	req := &resend.SendEmailRequest{
		From:    m.From,
		To:      m.To,
		Subject: m.Subject,
		Html:    m.HTML,
		Text:    m.Text,
		ReplyTo: m.ReplyTo,
	}
	if _, err := r.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("send email %q: %w", m.Subject, err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	log *zap.Logger
}

func (l *LogMailer) Send(_ context.Context, m Message) error {
	l.log.Info("email not sent, no mail provider configured",
		zap.Strings("to", m.To),
		zap.String("subject", m.Subject),
	)
	return nil
}
