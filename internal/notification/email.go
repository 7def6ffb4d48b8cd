// Package notification sends operational email to admin users: password
// reset links, MFA enrollment notices. Delivery is best-effort from the
// caller's point of view; the auth service treats a failed send as an error
// on the operation that requested it, nothing is queued or retried.
package notification

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// SMTPConfig holds SMTP connection parameters. The password usually arrives
// via the secrets resolver rather than plain config.
type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
	TLS      bool   `json:"tls"` // Implicit TLS (port 465 style). Plain submission otherwise.
}

// SMTPMailer sends mail over SMTP. It satisfies auth.Mailer.
type SMTPMailer struct {
	config SMTPConfig
	logger *slog.Logger
}

// NewSMTPMailer creates an SMTP mailer.
func NewSMTPMailer(cfg SMTPConfig, logger *slog.Logger) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{config: cfg, logger: logger}
}

// Send delivers one plain-text message to a single recipient.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	addr := net.JoinHostPort(m.config.Host, strconv.Itoa(m.config.Port))
	payload := buildMessage(m.config.From, to, subject, body)

	var auth smtp.Auth
	if m.config.Username != "" && m.config.Password != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	var err error
	if m.config.TLS {
		err = m.sendTLS(addr, auth, to, payload)
	} else {
		err = smtp.SendMail(addr, auth, m.config.From, []string{to}, payload)
	}
	if err != nil {
		m.logger.ErrorContext(ctx, "email delivery failed",
			slog.String("to", to), slog.String("subject", subject),
			slog.String("error", err.Error()))
		return fmt.Errorf("sending email to %s: %w", to, err)
	}
	m.logger.DebugContext(ctx, "email sent",
		slog.String("to", to), slog.String("subject", subject))
	return nil
}

func (m *SMTPMailer) sendTLS(addr string, auth smtp.Auth, to string, body []byte) error {
	tlsConfig := &tls.Config{
		ServerName: m.config.Host,
		MinVersion: tls.VersionTLS12,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("tls dial %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(m.config.From); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp RCPT TO %s: %w", to, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}

	return client.Quit()
}

func buildMessage(from, to, subject, text string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(text)
	return []byte(b.String())
}

// LogMailer writes messages to the log instead of sending them. Used when
// SMTP is not configured, so local setups still surface reset links.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a log-only mailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.logger.InfoContext(ctx, "email (smtp not configured)",
		slog.String("to", to), slog.String("subject", subject),
		slog.String("body", body))
	return nil
}
