// Copyright (c) 2026 FileMyTax. All rights reserved.

/*
Package mailer delivers transactional email for the platform.

It selects a delivery backend at startup based on available credentials:

  - Resend: Preferred HTTP API delivery when RESEND_API_KEY is configured.
  - SMTP: Fallback delivery via wneessen/go-mail when SMTP_HOST is configured.
  - Log: Development fallback that writes the message to the structured log.

Credentials that still contain scaffold placeholders ("your@", "changeme", ...)
are treated as absent, so a half-filled .env never sends real mail.
*/
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/resend/resend-go/v2"
	gomail "github.com/wneessen/go-mail"

	"github.com/filemytax/filemytax/internal/platform/config"
	"github.com/filemytax/filemytax/internal/platform/constants"
)

// defaultFrom is used when no sender address is configured.
const defaultFrom = "FileMyTax <no-reply@filemytax.app>"

// Sender delivers a single email message.
type Sender interface {
	Send(context context.Context, to string, subject string, htmlBody string) error
}

// Mailer composes transactional messages and hands them to a [Sender].
type Mailer struct {
	sender Sender
	logger *slog.Logger
}

// New selects the best available delivery backend from the configuration.
func New(cfg *config.Config, logger *slog.Logger) *Mailer {
	mailerLogger := logger.With(slog.String("component", "mailer"))

	sender := selectSender(cfg, mailerLogger)

	return &Mailer{
		sender: sender,
		logger: mailerLogger,
	}
}

// selectSender walks the backend preference chain.
func selectSender(cfg *config.Config, logger *slog.Logger) Sender {
	if isConfigured(cfg.ResendAPIKey) {
		logger.Info("mailer_backend_selected", slog.String("backend", "resend"))
		return &resendSender{
			client: resend.NewClient(cfg.ResendAPIKey),
			from:   senderAddress(cfg.ResendFrom),
		}
	}

	if isConfigured(cfg.SMTPHost) {
		logger.Info("mailer_backend_selected",
			slog.String("backend", "smtp"),
			slog.String("host", cfg.SMTPHost),
		)
		return &smtpSender{
			host:     cfg.SMTPHost,
			port:     cfg.SMTPPort,
			username: cfg.SMTPUser,
			password: cfg.SMTPPass,
			from:     senderAddress(cfg.SMTPFrom),
		}
	}

	logger.Warn("mailer_backend_selected",
		slog.String("backend", "log"),
		slog.String("reason", "no mail credentials configured"),
	)
	return &logSender{logger: logger}
}

// SendPasswordReset emails the reset link for a requested password reset.
func (m *Mailer) SendPasswordReset(context context.Context, toEmail string, resetURL string) error {
	subject := "Reset your " + constants.AppName + " password"
	body := passwordResetHTML(resetURL)

	if err := m.sender.Send(context, toEmail, subject, body); err != nil {
		return fmt.Errorf("mailer_send_failed: %w", err)
	}

	return nil
}

// passwordResetHTML renders the reset message body.
func passwordResetHTML(resetURL string) string {
	var builder strings.Builder
	builder.WriteString(`<h2>Password Reset</h2>`)
	builder.WriteString(`<p>We received a request to reset your FileMyTax password.</p>`)
	builder.WriteString(`<p><a href="` + resetURL + `">Reset your password</a></p>`)
	builder.WriteString(`<p>This link expires in 1 hour. If you did not request a reset, you can ignore this email.</p>`)
	return builder.String()
}

// # Placeholder Detection

// placeholderMarkers are substrings that indicate a scaffold value was never
// replaced with a real credential.
var placeholderMarkers = []string{
	"xxxx-xxxx",
	"your@",
	"your_",
	"example.com",
	"changeme",
	"placeholder",
}

// isConfigured reports whether a credential value is usable.
func isConfigured(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}

	lowered := strings.ToLower(trimmed)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lowered, marker) {
			return false
		}
	}

	return true
}

// senderAddress falls back to the default From when none is configured.
func senderAddress(configured string) string {
	if isConfigured(configured) {
		return configured
	}
	return defaultFrom
}

// # Delivery Backends

// resendSender delivers via the Resend HTTP API.
type resendSender struct {
	client *resend.Client
	from   string
}

func (s *resendSender) Send(context context.Context, to string, subject string, htmlBody string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	}

	if _, err := s.client.Emails.SendWithContext(context, params); err != nil {
		return fmt.Errorf("resend_send_failed: %w", err)
	}

	return nil
}

// smtpSender delivers via an authenticated SMTP relay.
type smtpSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func (s *smtpSender) Send(context context.Context, to string, subject string, htmlBody string) error {
	message := gomail.NewMsg()
	if err := message.From(s.from); err != nil {
		return fmt.Errorf("smtp_invalid_from: %w", err)
	}
	if err := message.To(to); err != nil {
		return fmt.Errorf("smtp_invalid_recipient: %w", err)
	}
	message.Subject(subject)
	message.SetBodyString(gomail.TypeTextHTML, htmlBody)

	options := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if s.username != "" {
		options = append(options,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, options...)
	if err != nil {
		return fmt.Errorf("smtp_client_failed: %w", err)
	}

	if err := client.DialAndSendWithContext(context, message); err != nil {
		return fmt.Errorf("smtp_send_failed: %w", err)
	}

	return nil
}

// logSender writes the message to the log instead of delivering it.
// Used in development so the reset link is visible in the console.
type logSender struct {
	logger *slog.Logger
}

func (s *logSender) Send(context context.Context, to string, subject string, htmlBody string) error {
	s.logger.InfoContext(context, "mail_logged_instead_of_sent",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", htmlBody),
	)
	return nil
}
