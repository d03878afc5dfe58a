package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"courtbook/api/internal/models"
)

var ErrRateLimitNotFound = errors.New("rate limit record not found")

type RateLimitRepository struct {
	pool *pgxpool.Pool
}

func NewRateLimitRepository(pool *pgxpool.Pool) *RateLimitRepository {
	return &RateLimitRepository{pool: pool}
}

// Reserve claims the cooldown slot for email if it is free and reports
// whether the claim succeeded. The conditional upsert decides and stamps in
// one statement, so two concurrent issuers cannot both pass a read-then-write
// check.
func (r *RateLimitRepository) Reserve(ctx context.Context, email string, cooldown time.Duration) (bool, error) {
	const query = `
		INSERT INTO rate_limits (email, last_sent_at, reset_at)
		VALUES ($1, NOW(), NOW() + make_interval(secs => $2))
		ON CONFLICT (email) DO UPDATE
		SET last_sent_at = NOW(),
		    reset_at = NOW() + make_interval(secs => $2)
		WHERE rate_limits.last_sent_at <= NOW() - make_interval(secs => $2)
	`

	cmd, err := r.pool.Exec(ctx, query, email, cooldown.Seconds())
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// Get reads the record without mutating it, for countdown rendering.
func (r *RateLimitRepository) Get(ctx context.Context, email string) (models.RateLimitRecord, error) {
	const query = `
		SELECT email, last_sent_at, reset_at FROM rate_limits WHERE email = $1
	`

	var record models.RateLimitRecord
	err := r.pool.QueryRow(ctx, query, email).Scan(&record.Email, &record.LastSentAt, &record.ResetAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RateLimitRecord{}, ErrRateLimitNotFound
		}
		return models.RateLimitRecord{}, err
	}
	return record, nil
}
