// Package email sends transactional mail through Postmark, with a file-based
// sender for local development.
package email

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrSendFailed    = errors.New("email: failed to send")
	ErrInvalidConfig = errors.New("email: invalid configuration")
	ErrInvalidParams = errors.New("email: invalid send parameters")
)

// emailRegex is a permissive shape check. Deliverability is Postmark's
// problem, this only rejects obvious garbage.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Config is the environment-driven mail setup. The Postmark token is
// optional so development environments can run with the file sender.
type Config struct {
	PostmarkServerToken string `env:"POSTMARK_SERVER_TOKEN"`
	SenderEmail         string `env:"SENDER_EMAIL" envDefault:"hello@leadhustle.pro"`
	SupportEmail        string `env:"SUPPORT_EMAIL" envDefault:"support@leadhustle.pro"`
	DevDir              string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`
}

// Sender delivers a single transactional message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is one outbound email.
type Message struct {
	To       string
	Subject  string
	BodyHTML string
	Tag      string
}

// Validate checks the message is deliverable in principle.
func (m Message) Validate() error {
	if m.To == "" || !emailRegex.MatchString(m.To) {
		return fmt.Errorf("%w: recipient %q", ErrInvalidParams, m.To)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: empty subject", ErrInvalidParams)
	}
	if m.BodyHTML == "" {
		return fmt.Errorf("%w: empty body", ErrInvalidParams)
	}
	return nil
}

// NewFromConfig returns the Postmark sender when a server token is
// configured and the development file sender otherwise.
func NewFromConfig(cfg Config) (Sender, error) {
	if cfg.PostmarkServerToken != "" {
		return NewPostmarkSender(cfg)
	}
	return NewDevSender(cfg.DevDir), nil
}
