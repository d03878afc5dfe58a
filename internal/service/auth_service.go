package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"courtbook/api/internal/config"
	"courtbook/api/internal/ids"
	"courtbook/api/internal/models"
	"courtbook/api/internal/repository"
	"courtbook/api/internal/security"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password;
	// the two are never distinguished to callers.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password too weak")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionInvalid     = errors.New("session invalid")
)

// decoyHash is hashed once at startup and verified against on the
// unknown-email login path, so a lookup miss pays the same argon2 cost
// as a wrong password and the two are not separable by response time.
var decoyHash string

func init() {
	h, err := security.HashPassword("decoy-never-matches")
	if err == nil {
		decoyHash = h
	}
}

type UserStore interface {
	Create(ctx context.Context, user models.User) (int64, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	RecordLoginFailure(ctx context.Context, id int64, threshold int, lockFor time.Duration) (int, *time.Time, error)
	ResetLoginFailures(ctx context.Context, id int64) error
	MarkVerified(ctx context.Context, id int64) error
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	FindActiveByToken(ctx context.Context, token string) (models.Session, error)
	FindActiveByRefreshToken(ctx context.Context, refreshToken string) (models.Session, error)
	Deactivate(ctx context.Context, token string) error
	DeactivateAllForUser(ctx context.Context, userID int64) error
}

type AuthService struct {
	users    UserStore
	sessions SessionStore
	audit    *AuditRecorder
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewAuthService(
	users UserStore,
	sessions SessionStore,
	audit *AuditRecorder,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		audit:    audit,
		cfg:      cfg,
		log:      log,
	}
}

type SignupInput struct {
	Email    string
	Password string
	FullName string
	Role     models.UserRole
	Phone    *string
	Client   ClientContext
}

// Signup creates a credential record. The plaintext password exists only in
// this call frame; it is hashed before anything persists and never logged.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (int64, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Email == "" || input.FullName == "" {
		return 0, fmt.Errorf("email and full name required")
	}
	if len(input.Password) < s.cfg.Auth.MinPasswordLength {
		return 0, ErrWeakPassword
	}
	if input.Role == "" {
		input.Role = models.UserRoleUser
	}
	if !models.ValidRole(input.Role) {
		return 0, ErrInvalidRole
	}

	// Pre-check gives a clean error for the common case; the unique index
	// on LOWER(email) is what actually closes the create-create race.
	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return 0, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return 0, err
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return 0, err
	}

	userID, err := s.users.Create(ctx, models.User{
		Email:        input.Email,
		PasswordHash: passwordHash,
		FullName:     input.FullName,
		Role:         input.Role,
		Phone:        input.Phone,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return 0, ErrDuplicateEmail
		}
		return 0, err
	}

	s.audit.Record(ctx, &userID, models.AuditActionSignup, input.Client, true, "account created")
	return userID, nil
}

type LoginInput struct {
	Email    string
	Password string
	Client   ClientContext
}

type LoginResult struct {
	User         models.PublicProfile
	SessionToken string
	RefreshToken string
	ExpiresAt    time.Time
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_, _ = security.VerifyPassword(input.Password, decoyHash)
			s.audit.Record(ctx, nil, models.AuditActionLogin, input.Client, false, "unknown email")
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if !user.IsActive {
		s.audit.Record(ctx, &user.ID, models.AuditActionLogin, input.Client, false, "account deactivated")
		return LoginResult{}, ErrAccountDeactivated
	}

	now := time.Now()
	if user.Locked(now) {
		// fail fast without paying the hash cost
		s.audit.Record(ctx, &user.ID, models.AuditActionLogin, input.Client, false, "account locked")
		return LoginResult{}, ErrAccountLocked
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		s.recordFailure(ctx, user, input.Client)
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := s.users.ResetLoginFailures(ctx, user.ID); err != nil {
		return LoginResult{}, err
	}

	result, err := s.issueSession(ctx, user, input.Client)
	if err != nil {
		return LoginResult{}, err
	}

	s.audit.Record(ctx, &user.ID, models.AuditActionLogin, input.Client, true, "login ok")
	return result, nil
}

func (s *AuthService) recordFailure(ctx context.Context, user models.User, client ClientContext) {
	attempts, lockedUntil, err := s.users.RecordLoginFailure(ctx, user.ID,
		s.cfg.Auth.MaxFailedLogins, s.cfg.Auth.LockoutDuration)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("record login failure")
		s.audit.Record(ctx, &user.ID, models.AuditActionLogin, client, false, "wrong password")
		return
	}

	detail := fmt.Sprintf("wrong password (attempt %d)", attempts)
	s.audit.Record(ctx, &user.ID, models.AuditActionLogin, client, false, detail)

	if lockedUntil != nil && time.Now().Before(*lockedUntil) && attempts == s.cfg.Auth.MaxFailedLogins {
		s.audit.Record(ctx, &user.ID, models.AuditActionAccountLocked, client, true,
			fmt.Sprintf("locked until %s", lockedUntil.Format(time.RFC3339)))
	}
}

func (s *AuthService) issueSession(ctx context.Context, user models.User, client ClientContext) (LoginResult, error) {
	sessionID := ids.New()
	now := time.Now()
	expiresAt := now.Add(s.cfg.Auth.SessionTTL)

	sessionToken, err := security.MintToken(s.cfg.Auth.SessionSecret,
		security.TokenKindSession, user.ID, sessionID, s.cfg.Auth.SessionTTL)
	if err != nil {
		return LoginResult{}, err
	}
	refreshToken, err := security.MintToken(s.cfg.Auth.RefreshSecret,
		security.TokenKindRefresh, user.ID, sessionID, s.cfg.Auth.RefreshTTL)
	if err != nil {
		return LoginResult{}, err
	}

	session := models.Session{
		ID:               sessionID,
		UserID:           user.ID,
		Token:            sessionToken,
		RefreshToken:     refreshToken,
		IPAddress:        client.IPAddress,
		UserAgent:        client.UserAgent,
		IsActive:         true,
		ExpiresAt:        expiresAt,
		RefreshExpiresAt: now.Add(s.cfg.Auth.RefreshTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		User:         user.Public(),
		SessionToken: sessionToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// Refresh exchanges a live refresh token for a brand-new session. The old
// session row is retired, never reused: rotation preserves the rule that a
// retired session cannot come back.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client ClientContext) (LoginResult, error) {
	claims, err := security.ParseToken(refreshToken, s.cfg.Auth.RefreshSecret, security.TokenKindRefresh)
	if err != nil {
		return LoginResult{}, ErrInvalidToken
	}

	session, err := s.sessions.FindActiveByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return LoginResult{}, ErrSessionInvalid
		}
		return LoginResult{}, err
	}
	if session.UserID != claims.UserID {
		return LoginResult{}, ErrSessionInvalid
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return LoginResult{}, ErrSessionInvalid
		}
		return LoginResult{}, err
	}
	if !user.IsActive {
		return LoginResult{}, ErrSessionInvalid
	}

	if err := s.sessions.Deactivate(ctx, session.Token); err != nil {
		return LoginResult{}, err
	}

	return s.issueSession(ctx, user, client)
}

// ValidateSession checks the token signature and kind, then requires a
// matching live session row. The row check is what makes logout and
// revocation stick for leaked-but-revoked tokens.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (models.PublicProfile, error) {
	claims, err := security.ParseToken(token, s.cfg.Auth.SessionSecret, security.TokenKindSession)
	if err != nil {
		return models.PublicProfile{}, ErrInvalidToken
	}

	session, err := s.sessions.FindActiveByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return models.PublicProfile{}, ErrSessionInvalid
		}
		return models.PublicProfile{}, err
	}
	if session.UserID != claims.UserID {
		return models.PublicProfile{}, ErrSessionInvalid
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.PublicProfile{}, ErrSessionInvalid
		}
		return models.PublicProfile{}, err
	}
	if !user.IsActive {
		return models.PublicProfile{}, ErrSessionInvalid
	}

	return user.Public(), nil
}

// RevokeUserSessions retires every session a user holds at once, for
// administrative bans and compromise response. Takes effect on the next
// request of each session since validity always checks the row.
func (s *AuthService) RevokeUserSessions(ctx context.Context, userID int64, client ClientContext) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.sessions.DeactivateAllForUser(ctx, userID); err != nil {
		return err
	}

	s.audit.Record(ctx, &userID, models.AuditActionRevokeAll, client, true, "all sessions revoked")
	return nil
}

// Logout retires the session behind token. Idempotent: retiring an
// already retired or unknown token succeeds.
func (s *AuthService) Logout(ctx context.Context, token string, client ClientContext) error {
	if err := s.sessions.Deactivate(ctx, token); err != nil {
		return err
	}

	var userID *int64
	if claims, err := security.ParseToken(token, s.cfg.Auth.SessionSecret, security.TokenKindSession); err == nil {
		userID = &claims.UserID
	}
	s.audit.Record(ctx, userID, models.AuditActionLogout, client, true, "logout")
	return nil
}
