package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"courtbook/api/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

const sessionColumns = `id, user_id, token, refresh_token, ip_address, user_agent,
	is_active, expires_at, refresh_expires_at, created_at`

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, session models.Session) error {
	const query = `
		INSERT INTO sessions (
			id, user_id, token, refresh_token, ip_address, user_agent,
			is_active, expires_at, refresh_expires_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, TRUE, $7, $8, NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.Token,
		session.RefreshToken,
		session.IPAddress,
		session.UserAgent,
		session.ExpiresAt,
		session.RefreshExpiresAt,
	)
	return err
}

// FindActiveByToken returns the live session row for a token. Expiry is
// filtered here so a revoked or stale row can never authenticate even when
// the token signature still verifies.
func (r *SessionRepository) FindActiveByToken(ctx context.Context, token string) (models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE token = $1 AND is_active = TRUE AND expires_at > NOW()
	`
	return r.scanSession(r.pool.QueryRow(ctx, query, token))
}

// FindActiveByRefreshToken returns the live session row for a refresh
// token, filtered on the longer refresh expiry.
func (r *SessionRepository) FindActiveByRefreshToken(ctx context.Context, refreshToken string) (models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE refresh_token = $1 AND is_active = TRUE AND refresh_expires_at > NOW()
	`
	return r.scanSession(r.pool.QueryRow(ctx, query, refreshToken))
}

// Deactivate retires the session holding token. Retiring an already
// retired or unknown token is a no-op; logout is idempotent.
func (r *SessionRepository) Deactivate(ctx context.Context, token string) error {
	const query = `UPDATE sessions SET is_active = FALSE WHERE token = $1`
	_, err := r.pool.Exec(ctx, query, token)
	return err
}

// DeactivateAllForUser retires every session a user holds, for ban/unban
// style revocation by external collaborators.
func (r *SessionRepository) DeactivateAllForUser(ctx context.Context, userID int64) error {
	const query = `UPDATE sessions SET is_active = FALSE WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

// DeleteExpired purges rows whose refresh window has also closed. Storage
// hygiene only: reads already filter on expiry.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM sessions WHERE refresh_expires_at < NOW()`
	cmd, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *SessionRepository) scanSession(row pgx.Row) (models.Session, error) {
	var session models.Session
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.RefreshToken,
		&session.IPAddress,
		&session.UserAgent,
		&session.IsActive,
		&session.ExpiresAt,
		&session.RefreshExpiresAt,
		&session.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}
