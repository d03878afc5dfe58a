package service

import (
	"math"
	"time"

	"courtbook/api/internal/models"
)

// CanIssue reports whether a new OTP may be sent to the record's email at
// now. A missing record (zero LastSentAt) always permits issuance.
func CanIssue(record models.RateLimitRecord, now time.Time, cooldown time.Duration) bool {
	if record.LastSentAt.IsZero() {
		return true
	}
	return !now.Before(record.LastSentAt.Add(cooldown))
}

// SecondsLeft returns the remaining cooldown in whole seconds, rounded up
// so clients never retry a moment too early. Zero means no wait.
func SecondsLeft(record models.RateLimitRecord, now time.Time, cooldown time.Duration) int {
	if CanIssue(record, now, cooldown) {
		return 0
	}
	remaining := record.LastSentAt.Add(cooldown).Sub(now)
	return int(math.Ceil(remaining.Seconds()))
}
