// Package mailer renders a fixed set of email templates and delivers
// them over SMTP. Delivery is strictly best-effort: every failure maps
// to a false result, never an error the caller must handle.
package mailer

import (
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// Mailer holds SMTP configuration. The zero value (no host) is a valid
// unconfigured mailer whose sends succeed without delivering, so the
// system degrades gracefully in environments without credentials.
type Mailer struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	ClientURL string
}

// FromEnv builds a Mailer from SMTP_HOST, SMTP_PORT, SMTP_USER,
// SMTP_PASS, and CLIENT_URL.
func FromEnv() *Mailer {
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if port == 0 {
		port = 587
	}

	clientURL := os.Getenv("CLIENT_URL")
	if clientURL == "" {
		clientURL = "http://localhost:3000"
	}

	return &Mailer{
		Host:      os.Getenv("SMTP_HOST"),
		Port:      port,
		Username:  os.Getenv("SMTP_USER"),
		Password:  os.Getenv("SMTP_PASS"),
		From:      os.Getenv("SMTP_USER"),
		ClientURL: clientURL,
	}
}

// Configured reports whether SMTP credentials are present.
func (m *Mailer) Configured() bool {
	return m.Host != "" && m.Username != "" && m.Password != ""
}

// Send renders the named template with positional args and delivers it
// to the recipient. An unknown template fails this call only. Without
// credentials the send is skipped and reported as success. Transport
// and authentication failures are logged and reported as false; there
// is no retry here (the outbox worker owns retries).
func (m *Mailer) Send(to, templateName string, args []string) bool {
	render, ok := templates[templateName]
	if !ok {
		slog.Error("unknown email template", "template", templateName)
		return false
	}

	if !m.Configured() {
		slog.Info("email credentials not configured, skipping send", "to", to, "template", templateName)
		return true
	}

	subject, body := render(m, args)

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.From, "Campus Lost & Found")
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	// DialAndSend verifies connectivity and authentication before the
	// message goes out, so a dead or misconfigured server surfaces here.
	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	if err := dialer.DialAndSend(msg); err != nil {
		slog.Warn("email delivery failed", "to", to, "template", templateName, "error", err)
		return false
	}

	slog.Info("email sent", "to", to, "template", templateName)
	return true
}
