package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMintAndParseToken(t *testing.T) {
	token, err := MintToken("secret", TokenKindSession, 42, "sess-1", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, "secret", TokenKindSession)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, "sess-1", claims.ID)
}

func TestParseTokenRejectsWrongKind(t *testing.T) {
	refresh, err := MintToken("secret", TokenKindRefresh, 42, "sess-1", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(refresh, "secret", TokenKindSession)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := MintToken("secret", TokenKindSession, 42, "sess-1", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret", TokenKindSession)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := MintToken("secret", TokenKindSession, 42, "sess-1", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "secret", TokenKindSession)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	_, err := ParseToken("not.a.jwt", "secret", TokenKindSession)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateOTPCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateOTPCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9')
		}
		seen[code] = true
	}
	// 50 draws from a million-value space collide with negligible odds
	require.Greater(t, len(seen), 45)
}
