package models

import "time"

// Session is the server-side record backing a signed session token.
// Validation always consults this row, not just the token signature, so
// logout and revocation take effect even for a leaked token. A session is
// either active or permanently retired; rows are never reactivated.
type Session struct {
	ID               string
	UserID           int64
	Token            string
	RefreshToken     string
	IPAddress        string
	UserAgent        string
	IsActive         bool
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
	CreatedAt        time.Time
}

// Live reports whether the session can still authenticate requests.
func (s Session) Live(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}
