// Package notify is the outbound notification gateway. Every send is
// best-effort: failures are logged by callers and never roll back the store
// mutation that triggered them.
package notify

import (
	"context"
	"log"
	"strings"

	"github.com/wneessen/go-mail"
)

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes messages to the process log instead of delivering them.
// Used in dev and in any environment without SMTP credentials.
type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, msg Message) error {
	log.Printf("notify (log only): to=%s subject=%q", MaskEmail(msg.To), msg.Subject)
	return nil
}

// SMTPNotifier delivers messages over SMTP.
type SMTPNotifier struct {
	client *mail.Client
	from   string
}

func NewSMTPNotifier(host string, port int, username, password, from string) (*SMTPNotifier, error) {
	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(username),
		mail.WithPassword(password),
	)
	if err != nil {
		return nil, err
	}
	return &SMTPNotifier{client: client, from: from}, nil
}

func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.From(n.from); err != nil {
		return err
	}
	if err := m.To(msg.To); err != nil {
		return err
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return n.client.DialAndSendWithContext(ctx, m)
}

// MaskEmail hides most of the local part so addresses can be logged without
// leaking PII, e.g. "j***@example.com".
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}
	if len(local) > 1 {
		local = local[:1] + "***"
	}
	return local + "@" + domain
}
