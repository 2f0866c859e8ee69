package auth

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/evcraddock/smartrent/internal/config"
	"github.com/evcraddock/smartrent/internal/email"
)

// CodeSender delivers a one-time code to an email address or phone number.
type CodeSender interface {
	SendCode(ctx context.Context, target, code string) error
}

// Mailer sends sign-in codes by email, or prints them in dev mode.
type Mailer struct {
	smtp    config.SMTPConfig
	devMode bool
	out     io.Writer
}

// NewMailer creates a mailer. In dev mode codes go to stdout.
func NewMailer(smtp config.SMTPConfig, devMode bool) *Mailer {
	return &Mailer{smtp: smtp, devMode: devMode, out: os.Stdout}
}

// SendCode emails code to target. Phone targets are only supported in dev
// mode, since there is no local SMS gateway.
func (m *Mailer) SendCode(_ context.Context, target, code string) error {
	if m.devMode {
		_, err := fmt.Fprintf(m.out, "[DEV] Sign-in code for %s: %s\n", target, code)
		return err
	}
	if !strings.Contains(target, "@") {
		return fmt.Errorf("sending SMS codes: %w", ErrUnsupported)
	}

	body := fmt.Sprintf(
		"Your SmartRent sign-in code is:\n\n    %s\n\nThis code expires in 15 minutes and can only be used once.",
		code,
	)
	if err := email.Send(m.smtp, email.Message{
		To:      []string{target},
		Subject: "SmartRent sign-in code",
		Body:    body,
	}); err != nil {
		return fmt.Errorf("sending code: %w", err)
	}
	return nil
}
