// Package mail delivers transactional email. The rest of the application
// only sees the Sender interface; the SendGrid implementation lives here
// so transport can be swapped without touching handlers.
package mail

import (
	"context"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender sends a single plain-text message. Implementations must treat a
// returned error as undelivered; there are no retries in the caller.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	client *sendgrid.Client
	from   string
}

// NewSendGridSender builds a sender using the given API key and from
// address.
func NewSendGridSender(apiKey, from string) *SendGridSender {
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey), from: from}
}

// Send delivers one message. A 4xx/5xx response from SendGrid is an error.
func (s *SendGridSender) Send(ctx context.Context, to, subject, body string) error {
	from := sgmail.NewEmail("Fundoo Notes", s.from)
	msg := sgmail.NewSingleEmail(from, subject, sgmail.NewEmail("", to), body, "")

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: status %d", resp.StatusCode)
	}
	return nil
}

// LogSender writes messages to the process log instead of sending them.
// Used in dev environments without a SendGrid key.
type LogSender struct{}

func (LogSender) Send(_ context.Context, to, subject, body string) error {
	log.Printf("mail (dev): to=%s subject=%q body=%q", to, subject, body)
	return nil
}
