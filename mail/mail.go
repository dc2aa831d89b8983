// Package mail sends transactional email through Resend or SMTP.
package mail

import (
	"context"
	"fmt"
	"html"

	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
	"gopkg.in/gomail.v2"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type Resend struct {
	client *resend.Client
	from   string
}

func NewResend(apiKey, from string) *Resend {
	return &Resend{client: resend.NewClient(apiKey), from: from}
}

func (r *Resend) Send(ctx context.Context, msg Message) error {
	_, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return errors.Wrapf(err, "resend to %s", msg.To)
	}
	return nil
}

type SMTP struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTP(host string, port int, username, password, from string) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send dials the server for every message. gomail has no context support,
// so ctx is only checked before dialing.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return errors.Wrapf(err, "smtp to %s", msg.To)
	}
	return nil
}

// Noop drops every message.
type Noop struct{}

func (Noop) Send(context.Context, Message) error { return nil }

func Welcome(to, name string) Message {
	if name == "" {
		name = "poet"
	}
	return Message{
		To:      to,
		Subject: "Welcome to Kavyalok",
		HTML: fmt.Sprintf(`<h2>Welcome, %s!</h2>
<p>Your Kavyalok profile is ready. Share your first poem, follow writers you love and join a competition.</p>`,
			html.EscapeString(name)),
	}
}

func CompetitionConfirmation(to, competition, txnID string) Message {
	return Message{
		To:      to,
		Subject: "You're registered: " + competition,
		HTML: fmt.Sprintf(`<h2>Registration confirmed</h2>
<p>Your entry fee for <strong>%s</strong> was received.</p>
<p>Transaction reference: <code>%s</code></p>`,
			html.EscapeString(competition), html.EscapeString(txnID)),
	}
}
