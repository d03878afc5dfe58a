package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"courtbook/api/internal/models"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Insert appends one entry. There is no update or delete path; the table
// is append-only for this service.
func (r *AuditRepository) Insert(ctx context.Context, entry models.AuditEntry) error {
	const query = `
		INSERT INTO audit_logs (
			id, user_id, action, ip_address, user_agent, success, detail, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Action,
		entry.IPAddress,
		entry.UserAgent,
		entry.Success,
		entry.Detail,
	)
	return err
}

// ListRecent pages through entries newest first, for admin review.
func (r *AuditRepository) ListRecent(ctx context.Context, limit, offset int) ([]models.AuditEntry, error) {
	const query = `
		SELECT id, user_id, action, ip_address, user_agent, success, detail, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var entry models.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Action,
			&entry.IPAddress,
			&entry.UserAgent,
			&entry.Success,
			&entry.Detail,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
