package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/domodwyer/mailyak/v3"
	"go.uber.org/zap"

	"github.com/cgsmith/user-service/internal/config"
)

// SMTPMailer delivers lifecycle emails over SMTP
type SMTPMailer struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

// New creates a new SMTP mailer
func New(cfg config.SMTPConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// SendConfirmation sends the email confirmation message
func (m *SMTPMailer) SendConfirmation(ctx context.Context, email, token string) error {
	body := fmt.Sprintf(`
		<h1>Confirm your email address</h1>
		<p>Please click the link below to confirm your email address:</p>
		<p><a href="%s/confirm?token=%s">Confirm Email</a></p>
		<p>If you did not create an account, you can ignore this message.</p>
	`, m.cfg.BaseURL, token)

	return m.send(ctx, email, "Confirm your email address", body)
}

// SendRecovery sends the password recovery message
func (m *SMTPMailer) SendRecovery(ctx context.Context, email, token string) error {
	body := fmt.Sprintf(`
		<h1>Reset your password</h1>
		<p>Please click the link below to choose a new password:</p>
		<p><a href="%s/recover?token=%s">Reset Password</a></p>
		<p>If you did not request a password reset, you can ignore this message.</p>
	`, m.cfg.BaseURL, token)

	return m.send(ctx, email, "Reset your password", body)
}

// SendEmailChange sends the confirmation message to a new address
func (m *SMTPMailer) SendEmailChange(ctx context.Context, email, token string) error {
	body := fmt.Sprintf(`
		<h1>Confirm your new email address</h1>
		<p>Please click the link below to confirm this address for your account:</p>
		<p><a href="%s/settings/confirm-email?token=%s">Confirm New Email</a></p>
	`, m.cfg.BaseURL, token)

	return m.send(ctx, email, "Confirm your new email address", body)
}

// SendEmailChangeNotice warns the old address that a change was requested
func (m *SMTPMailer) SendEmailChangeNotice(ctx context.Context, oldEmail, newEmail string) error {
	body := fmt.Sprintf(`
		<h1>Email change requested</h1>
		<p>A request was made to change your account email to %s.</p>
		<p>If this was not you, please reset your password immediately.</p>
	`, newEmail)

	return m.send(ctx, oldEmail, "Email change requested", body)
}

// SendWelcome sends a welcome message carrying a generated password
func (m *SMTPMailer) SendWelcome(ctx context.Context, email, generatedPassword string) error {
	body := fmt.Sprintf(`
		<h1>Welcome</h1>
		<p>An account has been created for this address.</p>
		<p>Your password is: <strong>%s</strong></p>
		<p>Please sign in and change it as soon as possible.</p>
	`, generatedPassword)

	return m.send(ctx, email, "Your new account", body)
}

// SendBlockedNotice tells a user their account was blocked
func (m *SMTPMailer) SendBlockedNotice(ctx context.Context, email string) error {
	body := `
		<h1>Account blocked</h1>
		<p>Your account has been blocked by an administrator.</p>
		<p>If you believe this is a mistake, please contact support.</p>
	`

	return m.send(ctx, email, "Your account has been blocked", body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, htmlBody string) error {
	mail := mailyak.New(fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port),
		smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host))

	mail.To(to)
	mail.From(m.cfg.From)
	mail.FromName(m.cfg.FromName)
	mail.Subject(subject)
	mail.HTML().Set(htmlBody)

	// Send with context cancellation
	done := make(chan error, 1)
	go func() {
		done <- mail.Send()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send %q email: %w", subject, err)
		}
	}

	m.logger.Debug("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
