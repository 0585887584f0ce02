// Package mailer sends plain-text notifications to the admin address.
// When SMTP is unconfigured every send is a logged no-op; mail is never
// load-bearing.
package mailer

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// Mailer delivers admin notifications over SMTP.
type Mailer struct {
	host     string
	port     int
	user     string
	password string
	from     string
	to       string
	logger   *zap.Logger
}

// New constructs a mailer. to is the admin address.
func New(host string, port int, user, password, from, to string, logger *zap.Logger) *Mailer {
	if from == "" {
		from = user
	}
	return &Mailer{host: host, port: port, user: user, password: password, from: from, to: to, logger: logger}
}

// Configured reports whether enough SMTP settings are present to send.
func (m *Mailer) Configured() bool {
	return m.host != "" && m.user != "" && m.password != "" && m.to != ""
}

// Send delivers one plain-text message to the admin address.
func (m *Mailer) Send(subject, body string) error {
	if !m.Configured() {
		m.logger.Debug("smtp not configured, skipping mail", zap.String("subject", subject))
		return nil
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.from, m.to, subject, body)
	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	return smtp.SendMail(addr, auth, m.from, []string{m.to}, []byte(msg))
}
