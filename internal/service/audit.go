package service

import (
	"context"

	"github.com/rs/zerolog"

	"courtbook/api/internal/ids"
	"courtbook/api/internal/models"
)

// ClientContext describes where a request came from, for session records
// and audit entries.
type ClientContext struct {
	IPAddress string
	UserAgent string
}

type AuditStore interface {
	Insert(ctx context.Context, entry models.AuditEntry) error
	ListRecent(ctx context.Context, limit, offset int) ([]models.AuditEntry, error)
}

// AuditRecorder appends security events. Record never propagates failure:
// losing one telemetry row must not fail a login that already succeeded.
type AuditRecorder struct {
	store AuditStore
	log   zerolog.Logger
}

func NewAuditRecorder(store AuditStore, log zerolog.Logger) *AuditRecorder {
	return &AuditRecorder{store: store, log: log}
}

func (a *AuditRecorder) Record(ctx context.Context, userID *int64, action string, client ClientContext, success bool, detail string) {
	entry := models.AuditEntry{
		ID:        ids.New(),
		UserID:    userID,
		Action:    action,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Success:   success,
		Detail:    detail,
	}

	if err := a.store.Insert(ctx, entry); err != nil {
		a.log.Warn().Err(err).Str("action", action).Msg("audit write failed")
	}
}

// ListRecent exposes the stored entries for admin review.
func (a *AuditRecorder) ListRecent(ctx context.Context, limit, offset int) ([]models.AuditEntry, error) {
	return a.store.ListRecent(ctx, limit, offset)
}
