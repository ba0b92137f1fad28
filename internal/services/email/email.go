// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email sends the authentication emails: confirmation links,
// two-factor sign-in codes and password reset links.
package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"codeberg.org/oliverandrich/go-auth-service/internal/config"
)

// Service sends mail via SMTP using go-mail. Links in the messages point at
// the frontend, which forwards the embedded token back to this service.
type Service struct {
	cfg         *config.SMTPConfig
	frontendURL string
}

// NewService creates a new email service.
func NewService(cfg *config.SMTPConfig, frontendURL string) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Service{
		cfg:         cfg,
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
	}, nil
}

// SendConfirmation mails the account confirmation link.
func (s *Service) SendConfirmation(ctx context.Context, toEmail, name, token string) error {
	confirmURL := fmt.Sprintf("%s/auth/confirm/%s", s.frontendURL, token)

	body := fmt.Sprintf(
		"Hello %s,\n\nWelcome! Please confirm your email address by opening the link below:\n\n%s\n\nThe link expires in 24 hours.\n",
		name, confirmURL)

	return s.send(ctx, toEmail, "Confirm your email", body)
}

// SendAccessCode mails the one-time two-factor sign-in code.
func (s *Service) SendAccessCode(ctx context.Context, toEmail, name, code string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour sign-in code is:\n\n%s\n\nIf you did not try to sign in, you can ignore this email.\n",
		name, code)

	return s.send(ctx, toEmail, "Your sign-in code", body)
}

// SendPasswordReset mails the password reset link.
func (s *Service) SendPasswordReset(ctx context.Context, toEmail, name, token string) error {
	resetURL := fmt.Sprintf("%s/auth/reset/%s", s.frontendURL, token)

	body := fmt.Sprintf(
		"Hello %s,\n\nA password reset was requested for your account. Open the link below to choose a new password:\n\n%s\n\nThe link expires in 30 minutes. If you did not request a reset, you can ignore this email.\n",
		name, resetURL)

	return s.send(ctx, toEmail, "Reset your password", body)
}

// send sends an email via SMTP using go-mail.
func (s *Service) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()

	if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("setting from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}
	if s.cfg.User != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.User),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
