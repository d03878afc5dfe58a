package models

import "time"

// Audit action tags. One per externally observable authentication event.
const (
	AuditActionSignup        = "auth.signup"
	AuditActionLogin         = "auth.login"
	AuditActionLogout        = "auth.logout"
	AuditActionRevokeAll     = "auth.sessions_revoked"
	AuditActionAccountLocked = "auth.account_locked"
	AuditActionOTPGenerate   = "otp.generate"
	AuditActionOTPVerify     = "otp.verify"
)

// AuditEntry is an append-only record of a security-relevant event.
// Entries are never updated or deleted by this service.
type AuditEntry struct {
	ID        string
	UserID    *int64
	Action    string
	IPAddress string
	UserAgent string
	Success   bool
	Detail    string
	CreatedAt time.Time
}
