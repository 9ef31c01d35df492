// Package mailer sends transactional e-mail.
package mailer

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"passagens/internal/utils"
)

// Sender delivers a plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTP(host string, port int, user, pass, from string) *SMTPMailer {
	if from == "" {
		from = user
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, pass),
		from:   from,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogMailer only logs the recipient and subject. Used when SMTP is not configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to, subject, _ string) error {
	utils.LogEvent("", "mailer", "send_skipped", fmt.Sprintf("to=%s subject=%q", to, subject))
	return nil
}

// New returns an SMTP sender, or a LogMailer when host is empty.
func New(host string, port int, user, pass, from string) Sender {
	if host == "" {
		return LogMailer{}
	}
	return NewSMTP(host, port, user, pass, from)
}
