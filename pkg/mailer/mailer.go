// Package mailer delivers outbound mail for the notification boundary.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/edutrack/attendance-api/pkg/config"
)

// Message is a rendered plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends a single message. Delivery failures are surfaced to the
// caller so the job queue can retry.
type Mailer interface {
	Send(msg Message) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	addr   string
	auth   smtp.Auth
	sender string
}

// NewSMTP builds a mailer from notification config.
func NewSMTP(cfg config.NotificationConfig) *SMTPMailer {
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPMailer{
		addr:   fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		auth:   auth,
		sender: cfg.Sender,
	}
}

// Send delivers the message synchronously.
func (m *SMTPMailer) Send(msg Message) error {
	payload := strings.Join([]string{
		"From: " + m.sender,
		"To: " + msg.To,
		"Subject: " + msg.Subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		msg.Body,
	}, "\r\n")

	if err := smtp.SendMail(m.addr, m.auth, m.sender, []string{msg.To}, []byte(payload)); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

// LogMailer logs messages instead of delivering them. Used when SMTP is
// not configured so the notification pipeline stays exercisable in dev.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds a mailer that only logs.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send records the message at info level.
func (m *LogMailer) Send(msg Message) error {
	m.logger.Info("mail_suppressed",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
