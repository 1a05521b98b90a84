// Package mailer sends HTML emails over SMTP.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/brightpath-foundation/backend/config"
)

// Mailer sends mail through the configured SMTP relay.
type Mailer struct {
	cfg config.EmailConfig
}

// New creates a mailer. Returns nil when SMTP_HOST is unset so callers can
// treat email as disabled.
func New(cfg config.EmailConfig) *Mailer {
	if cfg.SMTPHost == "" {
		return nil
	}
	return &Mailer{cfg: cfg}
}

// Send delivers one HTML email.
func (m *Mailer) Send(to, subject, bodyHTML string) error {
	from := m.cfg.FromAddress
	headers := []string{
		fmt.Sprintf("From: %s <%s>", m.cfg.FromName, from),
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
	}
	msg := strings.Join(headers, "\r\n") + "\r\n\r\n" + bodyHTML

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	var auth smtp.Auth
	if m.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)
	}
	if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
