package notification

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestBuildMessageHeaders(t *testing.T) {
	msg := string(buildMessage("noreply@rewardhub.io", "admin@acme.com", "Reset your password", "Use this link."))

	for _, want := range []string{
		"From: noreply@rewardhub.io\r\n",
		"To: admin@acme.com\r\n",
		"Subject: Reset your password\r\n",
		"Content-Type: text/plain; charset=\"utf-8\"\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing header %q:\n%s", want, msg)
		}
	}
	if !strings.HasSuffix(msg, "\r\n\r\nUse this link.") {
		t.Fatalf("body not separated from headers:\n%s", msg)
	}
}

func TestLogMailerNeverFails(t *testing.T) {
	m := NewLogMailer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := m.Send(context.Background(), "admin@acme.com", "MFA enabled", "body"); err != nil {
		t.Fatalf("log mailer returned error: %v", err)
	}
}

func TestDefaultPort(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "mail.example.com"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if m.config.Port != 587 {
		t.Fatalf("default port = %d, want 587", m.config.Port)
	}
}
