package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"courtbook/api/internal/config"
	"courtbook/api/internal/models"
	"courtbook/api/internal/security"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		Auth: config.AuthConfig{
			SessionSecret:     "test-session-secret",
			RefreshSecret:     "test-refresh-secret",
			SessionTTL:        24 * time.Hour,
			RefreshTTL:        7 * 24 * time.Hour,
			MinPasswordLength: 8,
			MaxFailedLogins:   5,
			LockoutDuration:   30 * time.Minute,
		},
		OTP: config.OTPConfig{
			Cooldown:    30 * time.Second,
			TTL:         10 * time.Minute,
			MaxAttempts: 3,
		},
	}
}

type authFixture struct {
	svc   *AuthService
	users *fakeUserStore
	audit *fakeAuditStore
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	users := newFakeUserStore()
	audit := &fakeAuditStore{}
	svc := NewAuthService(users, newFakeSessionStore(),
		NewAuditRecorder(audit, zerolog.Nop()), testConfig(), zerolog.Nop())
	return authFixture{svc: svc, users: users, audit: audit}
}

func (f authFixture) signup(t *testing.T, email, password string) int64 {
	t.Helper()
	id, err := f.svc.Signup(context.Background(), SignupInput{
		Email:    email,
		Password: password,
		FullName: "Alice Example",
		Role:     models.UserRoleUser,
	})
	require.NoError(t, err)
	return id
}

func TestSignupDuplicateEmailIsCaseInsensitive(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "alice@example.com", "Passw0rd!")

	_, err := f.svc.Signup(context.Background(), SignupInput{
		Email:    "ALICE@Example.COM",
		Password: "Passw0rd!",
		FullName: "Alice Again",
	})
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestSignupRejectsShortPassword(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Signup(context.Background(), SignupInput{
		Email:    "bob@example.com",
		Password: "short",
		FullName: "Bob",
	})
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestSignupRejectsUnknownRole(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Signup(context.Background(), SignupInput{
		Email:    "bob@example.com",
		Password: "Passw0rd!",
		FullName: "Bob",
		Role:     models.UserRole("superuser"),
	})
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestLoginSuccessReturnsTokens(t *testing.T) {
	f := newAuthFixture(t)
	id := f.signup(t, "alice@example.com", "Passw0rd!")

	result, err := f.svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "Passw0rd!",
	})
	require.NoError(t, err)
	require.Equal(t, id, result.User.ID)
	require.NotEmpty(t, result.SessionToken)
	require.NotEmpty(t, result.RefreshToken)
	require.NotEqual(t, result.SessionToken, result.RefreshToken)
	require.True(t, result.ExpiresAt.After(time.Now()))
}

func TestLoginUnknownEmailAndWrongPasswordLookAlike(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "alice@example.com", "Passw0rd!")

	_, errUnknown := f.svc.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "Passw0rd!",
	})
	_, errWrong := f.svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "not-the-password",
	})

	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, ErrInvalidCredentials)
	require.Equal(t, errUnknown.Error(), errWrong.Error())
}

// The unknown-email branch verifies against a decoy hash so both failure
// paths pay the same key-derivation cost. The decoy has to be a real,
// parseable hash or the compare would bail out early.
func TestLoginDecoyHashIsWellFormed(t *testing.T) {
	require.NotEmpty(t, decoyHash)

	ok, err := security.VerifyPassword("anything at all", decoyHash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoginLockoutAfterFiveFailures(t *testing.T) {
	f := newAuthFixture(t)
	id := f.signup(t, "alice@example.com", "Passw0rd!")

	for i := 0; i < 5; i++ {
		_, err := f.svc.Login(context.Background(), LoginInput{
			Email:    "alice@example.com",
			Password: "wrong",
		})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// sixth attempt fails fast even with the correct password
	_, err := f.svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "Passw0rd!",
	})
	require.ErrorIs(t, err, ErrAccountLocked)

	user, err := f.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 5, user.FailedLoginAttempts)
	require.NotNil(t, user.LockedUntil)
}

func TestLoginLockReopensAfterWindow(t *testing.T) {
	f := newAuthFixture(t)
	id := f.signup(t, "alice@example.com", "Passw0rd!")

	for i := 0; i < 5; i++ {
		_, _ = f.svc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "wrong"})
	}

	// expire the lock by hand
	f.users.mu.Lock()
	past := time.Now().Add(-time.Second)
	f.users.byID[id].LockedUntil = &past
	f.users.mu.Unlock()

	result, err := f.svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "Passw0rd!",
	})
	require.NoError(t, err)
	require.Equal(t, id, result.User.ID)

	user, err := f.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Zero(t, user.FailedLoginAttempts)
	require.Nil(t, user.LockedUntil)
}

func TestLoginSuccessResetsFailureCounter(t *testing.T) {
	f := newAuthFixture(t)
	id := f.signup(t, "alice@example.com", "Passw0rd!")

	for i := 0; i < 3; i++ {
		_, _ = f.svc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "wrong"})
	}

	_, err := f.svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "Passw0rd!",
	})
	require.NoError(t, err)

	user, err := f.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Zero(t, user.FailedLoginAttempts)
}

func TestLoginDeactivatedAccount(t *testing.T) {
	f := newAuthFixture(t)
	id := f.signup(t, "alice@example.com", "Passw0rd!")

	f.users.mu.Lock()
	f.users.byID[id].IsActive = false
	f.users.mu.Unlock()

	_, err := f.svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "Passw0rd!",
	})
	require.ErrorIs(t, err, ErrAccountDeactivated)
}

func TestValidateSessionLifecycle(t *testing.T) {
	f := newAuthFixture(t)
	id := f.signup(t, "alice@example.com", "Passw0rd!")

	result, err := f.svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "Passw0rd!",
	})
	require.NoError(t, err)

	profile, err := f.svc.ValidateSession(context.Background(), result.SessionToken)
	require.NoError(t, err)
	require.Equal(t, id, profile.ID)

	require.NoError(t, f.svc.Logout(context.Background(), result.SessionToken, ClientContext{}))

	_, err = f.svc.ValidateSession(context.Background(), result.SessionToken)
	require.ErrorIs(t, err, ErrSessionInvalid)
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "alice@example.com", "Passw0rd!")

	result, err := f.svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "Passw0rd!",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), result.SessionToken, ClientContext{}))
	require.NoError(t, f.svc.Logout(context.Background(), result.SessionToken, ClientContext{}))
	require.NoError(t, f.svc.Logout(context.Background(), "unknown-token", ClientContext{}))
}

func TestRevokeUserSessionsKillsEverySession(t *testing.T) {
	f := newAuthFixture(t)
	id := f.signup(t, "alice@example.com", "Passw0rd!")

	first, err := f.svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "Passw0rd!",
	})
	require.NoError(t, err)
	second, err := f.svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "Passw0rd!",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.RevokeUserSessions(context.Background(), id, ClientContext{}))

	_, err = f.svc.ValidateSession(context.Background(), first.SessionToken)
	require.ErrorIs(t, err, ErrSessionInvalid)
	_, err = f.svc.ValidateSession(context.Background(), second.SessionToken)
	require.ErrorIs(t, err, ErrSessionInvalid)

	require.Contains(t, f.audit.actions(), models.AuditActionRevokeAll)
}

func TestRevokeUserSessionsUnknownUser(t *testing.T) {
	f := newAuthFixture(t)
	err := f.svc.RevokeUserSessions(context.Background(), 404, ClientContext{})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestRefreshRotatesSession(t *testing.T) {
	f := newAuthFixture(t)
	id := f.signup(t, "alice@example.com", "Passw0rd!")

	first, err := f.svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "Passw0rd!",
	})
	require.NoError(t, err)

	second, err := f.svc.Refresh(context.Background(), first.RefreshToken, ClientContext{})
	require.NoError(t, err)
	require.Equal(t, id, second.User.ID)
	require.NotEqual(t, first.SessionToken, second.SessionToken)

	// the retired session never comes back
	_, err = f.svc.ValidateSession(context.Background(), first.SessionToken)
	require.ErrorIs(t, err, ErrSessionInvalid)

	_, err = f.svc.ValidateSession(context.Background(), second.SessionToken)
	require.NoError(t, err)
}

func TestRefreshRejectsSessionToken(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "alice@example.com", "Passw0rd!")

	result, err := f.svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "Passw0rd!",
	})
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), result.SessionToken, ClientContext{})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRejectsRetiredSession(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "alice@example.com", "Passw0rd!")

	result, err := f.svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "Passw0rd!",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), result.SessionToken, ClientContext{}))

	_, err = f.svc.Refresh(context.Background(), result.RefreshToken, ClientContext{})
	require.ErrorIs(t, err, ErrSessionInvalid)
}

func TestValidateSessionRejectsRefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "alice@example.com", "Passw0rd!")

	result, err := f.svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "Passw0rd!",
	})
	require.NoError(t, err)

	_, err = f.svc.ValidateSession(context.Background(), result.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateSessionRejectsGarbageToken(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.ValidateSession(context.Background(), "garbage")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestLoginFailuresAreAudited(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "alice@example.com", "Passw0rd!")

	_, _ = f.svc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "wrong"})

	actions := f.audit.actions()
	require.Contains(t, actions, models.AuditActionSignup)
	require.Contains(t, actions, models.AuditActionLogin)
}

func TestLockTransitionEmitsAuditEntry(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "alice@example.com", "Passw0rd!")

	for i := 0; i < 5; i++ {
		_, _ = f.svc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "wrong"})
	}

	require.Contains(t, f.audit.actions(), models.AuditActionAccountLocked)
}
