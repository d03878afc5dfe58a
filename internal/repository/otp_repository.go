package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"courtbook/api/internal/models"
)

var ErrChallengeNotFound = errors.New("otp challenge not found")

const challengeColumns = `id, user_id, code, purpose, used, attempts, max_attempts, expires_at, created_at`

type OTPRepository struct {
	pool *pgxpool.Pool
}

func NewOTPRepository(pool *pgxpool.Pool) *OTPRepository {
	return &OTPRepository{pool: pool}
}

// CreateInvalidatingPrior retires every unused challenge for the same
// (user, purpose) and inserts the new one inside one transaction, which is
// what keeps at most one live challenge per pair even under concurrent
// issuance.
func (r *OTPRepository) CreateInvalidatingPrior(ctx context.Context, challenge models.OTPChallenge) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin otp tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const invalidate = `
		UPDATE otp_challenges SET used = TRUE
		WHERE user_id = $1 AND purpose = $2 AND used = FALSE
	`
	if _, err := tx.Exec(ctx, invalidate, challenge.UserID, challenge.Purpose); err != nil {
		return err
	}

	const insert = `
		INSERT INTO otp_challenges (
			id, user_id, code, purpose, used, attempts, max_attempts, expires_at, created_at
		) VALUES (
			$1, $2, $3, $4, FALSE, 0, $5, $6, NOW()
		)
	`
	if _, err := tx.Exec(ctx, insert,
		challenge.ID,
		challenge.UserID,
		challenge.Code,
		challenge.Purpose,
		challenge.MaxAttempts,
		challenge.ExpiresAt,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// FindLive returns the newest unused, unexpired challenge matching the
// submitted code.
func (r *OTPRepository) FindLive(ctx context.Context, userID int64, code string, purpose models.OTPPurpose) (models.OTPChallenge, error) {
	const query = `
		SELECT ` + challengeColumns + `
		FROM otp_challenges
		WHERE user_id = $1 AND code = $2 AND purpose = $3
		  AND used = FALSE AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`

	var ch models.OTPChallenge
	err := r.pool.QueryRow(ctx, query, userID, code, purpose).Scan(
		&ch.ID,
		&ch.UserID,
		&ch.Code,
		&ch.Purpose,
		&ch.Used,
		&ch.Attempts,
		&ch.MaxAttempts,
		&ch.ExpiresAt,
		&ch.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.OTPChallenge{}, ErrChallengeNotFound
		}
		return models.OTPChallenge{}, err
	}
	return ch, nil
}

// PenalizeGuesses charges one attempt to every live challenge for the pair.
// Wrong codes cost budget even though they match no row.
func (r *OTPRepository) PenalizeGuesses(ctx context.Context, userID int64, purpose models.OTPPurpose) error {
	const query = `
		UPDATE otp_challenges SET attempts = attempts + 1
		WHERE user_id = $1 AND purpose = $2 AND used = FALSE AND expires_at > NOW()
	`
	_, err := r.pool.Exec(ctx, query, userID, purpose)
	return err
}

// Consume retires a challenge on successful verification. The used guard
// in the predicate is what makes consumption single-shot: of two
// concurrent verifiers only one update matches the row, the other gets
// ErrChallengeNotFound.
func (r *OTPRepository) Consume(ctx context.Context, id string) error {
	const query = `UPDATE otp_challenges SET used = TRUE WHERE id = $1 AND used = FALSE`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrChallengeNotFound
	}
	return nil
}

// Retire kills a challenge unconditionally, used when the guess budget is
// spent. Retiring an already retired row is a no-op.
func (r *OTPRepository) Retire(ctx context.Context, id string) error {
	const query = `UPDATE otp_challenges SET used = TRUE WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// DeleteDead purges used and expired challenges.
func (r *OTPRepository) DeleteDead(ctx context.Context) (int64, error) {
	const query = `DELETE FROM otp_challenges WHERE used = TRUE OR expires_at < NOW()`
	cmd, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
