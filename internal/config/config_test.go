package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "development", cfg.Environment)
	require.False(t, cfg.Production())

	require.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	require.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	require.Equal(t, 8, cfg.Auth.MinPasswordLength)
	require.Equal(t, 5, cfg.Auth.MaxFailedLogins)
	require.Equal(t, 30*time.Minute, cfg.Auth.LockoutDuration)

	require.Equal(t, 30*time.Second, cfg.OTP.Cooldown)
	require.Equal(t, 10*time.Minute, cfg.OTP.TTL)
	require.Equal(t, 3, cfg.OTP.MaxAttempts)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("COURTBOOK_ENVIRONMENT", "production")
	t.Setenv("COURTBOOK_AUTH_SESSIONSECRET", "s1")
	t.Setenv("COURTBOOK_AUTH_REFRESHSECRET", "s2")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.Production())
	require.Equal(t, "s1", cfg.Auth.SessionSecret)
}
