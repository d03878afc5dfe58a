package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"

	"courtbook/api/internal/config"
	"courtbook/api/internal/models"
)

// Mailer delivers OTP codes. Delivery is best-effort: a failed send never
// invalidates the challenge that was already issued.
type Mailer interface {
	SendOTP(ctx context.Context, email string, code string, purpose models.OTPPurpose) error
}

var purposeSubjects = map[models.OTPPurpose]string{
	models.OTPPurposeEmailVerification: "Verify your email address",
	models.OTPPurposePasswordReset:     "Reset your password",
	models.OTPPurposeLoginVerification: "Confirm your login",
}

// New returns an SMTP mailer when an SMTP host is configured and a
// log-only mailer otherwise, so development environments work without a
// mail relay.
func New(cfg config.SMTPConfig, log zerolog.Logger) Mailer {
	if cfg.Host == "" {
		return &logMailer{log: log}
	}
	return &smtpMailer{cfg: cfg}
}

type smtpMailer struct {
	cfg config.SMTPConfig
}

func (m *smtpMailer) SendOTP(ctx context.Context, email string, code string, purpose models.OTPPurpose) error {
	subject, ok := purposeSubjects[purpose]
	if !ok {
		subject = "Your verification code"
	}

	body := fmt.Sprintf("Subject: %s\r\nFrom: %s\r\nTo: %s\r\n\r\nYour verification code is %s. It expires in 10 minutes.\r\n",
		subject, m.cfg.From, email, code)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{email}, []byte(body)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

type logMailer struct {
	log zerolog.Logger
}

func (m *logMailer) SendOTP(ctx context.Context, email string, code string, purpose models.OTPPurpose) error {
	m.log.Info().
		Str("email", email).
		Str("purpose", string(purpose)).
		Str("code", code).
		Msg("otp dispatch (log mailer)")
	return nil
}
