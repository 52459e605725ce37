// Package mail sends transactional email. Sends are always fire-and-forget
// relative to the request that triggered them: failures are logged, never
// surfaced to the caller.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends email through a plain SMTP relay.
type SMTPSender struct {
	Addr string // host:port
	From string
}

// NewSMTPSender returns a sender that relays through addr with the given From address.
func NewSMTPSender(addr, from string) *SMTPSender {
	return &SMTPSender{Addr: addr, From: from}
}

// Send delivers the message. ctx is accepted for interface symmetry; net/smtp
// has no context support, so cancellation is not observed mid-send.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if s.Addr == "" {
		return fmt.Errorf("mail: SMTP address not configured")
	}
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(s.Addr, nil, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("mail: send to %s failed: %w", to, err)
	}
	return nil
}

// LogSender logs email instead of delivering it. Used in development when no
// SMTP relay is configured.
type LogSender struct {
	Log *zap.SugaredLogger
}

// Send logs the message and reports success.
func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	if s.Log != nil {
		s.Log.Infow("mail: would send", "to", to, "subject", subject)
	}
	return nil
}

// SendAsync delivers the message in a background goroutine. Failures are
// logged and never fail the parent operation.
func SendAsync(log *zap.SugaredLogger, sender Sender, to, subject, body string) {
	go func() {
		if err := sender.Send(context.Background(), to, subject, body); err != nil && log != nil {
			log.Warnw("mail: delivery failed", "to", to, "subject", subject, "error", err)
		}
	}()
}
