// Package mailer sends transactional email through SendGrid. Callers treat
// delivery as best-effort; an error here never aborts the triggering action.
package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/edubridge/edubridge-api/pkg/config"
)

// Email is a minimal outbound message.
type Email struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// SendgridMailer delivers email through the SendGrid v3 API.
type SendgridMailer struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

// NewSendgrid constructs a SendgridMailer from mail config.
func NewSendgrid(cfg config.MailConfig) *SendgridMailer {
	return &SendgridMailer{
		client: sendgrid.NewSendClient(cfg.SendgridKey),
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
	}
}

// Send delivers a single message synchronously.
func (m *SendgridMailer) Send(ctx context.Context, email Email) error {
	to := sgmail.NewEmail(email.ToName, email.To)
	msg := sgmail.NewSingleEmail(m.from, email.Subject, to, email.Body, email.Body)

	res, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// Nop is a mailer that silently drops everything; used when email is
// disabled by config.
type Nop struct{}

// Send implements the mailer contract without side effects.
func (Nop) Send(context.Context, Email) error { return nil }
