package models

import "time"

type OTPPurpose string

const (
	OTPPurposeEmailVerification OTPPurpose = "email_verification"
	OTPPurposePasswordReset     OTPPurpose = "password_reset"
	OTPPurposeLoginVerification OTPPurpose = "login_verification"
)

// ValidOTPPurpose reports whether purpose names a known challenge kind.
func ValidOTPPurpose(purpose OTPPurpose) bool {
	switch purpose {
	case OTPPurposeEmailVerification, OTPPurposePasswordReset, OTPPurposeLoginVerification:
		return true
	}
	return false
}

// OTPChallenge is a short-lived numeric code bound to one user and one
// purpose. At most one unused challenge per (user, purpose) is live at a
// time: issuing a new one retires all prior unused challenges.
type OTPChallenge struct {
	ID          string
	UserID      int64
	Code        string
	Purpose     OTPPurpose
	Used        bool
	Attempts    int
	MaxAttempts int
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Expired reports whether the challenge window has closed.
func (c OTPChallenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Exhausted reports whether the guess budget has been spent.
func (c OTPChallenge) Exhausted() bool {
	return c.Attempts >= c.MaxAttempts
}
