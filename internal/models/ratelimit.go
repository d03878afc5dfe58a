package models

import "time"

// RateLimitRecord tracks the most recent OTP issuance per recipient email.
// It protects an inbox from flooding; coarser per-IP throttling happens at
// the transport layer.
type RateLimitRecord struct {
	Email      string
	LastSentAt time.Time
	ResetAt    time.Time
}
