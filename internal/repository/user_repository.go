package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"courtbook/api/internal/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

const pgUniqueViolation = "23505"

const userColumns = `id, email, password_hash, full_name, role, phone, is_verified, is_active,
	failed_login_attempts, locked_until, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts the user and returns the assigned id. The unique index on
// LOWER(email) closes the create-create race that a prior existence check
// cannot; a 23505 from either writer surfaces as ErrDuplicateEmail.
func (r *UserRepository) Create(ctx context.Context, user models.User) (int64, error) {
	const query = `
		INSERT INTO users (
			email, password_hash, full_name, role, phone, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, NOW(), NOW()
		)
		RETURNING id
	`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Role,
		user.Phone,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, ErrDuplicateEmail
		}
		return 0, err
	}
	return id, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users WHERE LOWER(email) = LOWER($1)
	`
	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users WHERE id = $1
	`
	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

// RecordLoginFailure bumps the failed-attempt counter and, once the counter
// reaches threshold, stamps locked_until in the same statement. A single
// UPDATE keeps two concurrent failures from under-counting. The mutated
// counters are returned so the caller can audit the transition.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, id int64, threshold int, lockFor time.Duration) (int, *time.Time, error) {
	const query = `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE
		        WHEN failed_login_attempts + 1 >= $2
		        THEN NOW() + make_interval(secs => $3)
		        ELSE locked_until
		    END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING failed_login_attempts, locked_until
	`

	var (
		attempts    int
		lockedUntil *time.Time
	)
	err := r.pool.QueryRow(ctx, query, id, threshold, lockFor.Seconds()).Scan(&attempts, &lockedUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, ErrUserNotFound
		}
		return 0, nil, err
	}
	return attempts, lockedUntil, nil
}

// ResetLoginFailures clears the counter and any lock unconditionally.
func (r *UserRepository) ResetLoginFailures(ctx context.Context, id int64) error {
	const query = `
		UPDATE users
		SET failed_login_attempts = 0, locked_until = NULL, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *UserRepository) MarkVerified(ctx context.Context, id int64) error {
	const query = `
		UPDATE users SET is_verified = TRUE, updated_at = NOW() WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.Role,
		&user.Phone,
		&user.IsVerified,
		&user.IsActive,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
