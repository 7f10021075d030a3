package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestJWT_Roundtrip(t *testing.T) {
	j := NewJWT("secret", time.Hour)

	signed, expires, err := j.Issue("user-1")
	require.NoError(t, err)
	require.NotEmpty(t, signed)
	require.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	userID, err := j.Parse(signed)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)
}

func TestJWT_RejectsForeignSecret(t *testing.T) {
	signed, _, err := NewJWT("secret", time.Hour).Issue("user-1")
	require.NoError(t, err)

	_, err = NewJWT("other", time.Hour).Parse(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_Expiry(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	j := NewJWTWithClock("secret", time.Minute, clock)

	signed, _, err := j.Issue("user-1")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = j.Parse(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_RejectsGarbageAndWrongType(t *testing.T) {
	j := NewJWT("secret", time.Hour)

	_, err := j.Parse("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID:    "user-1",
		TokenType: "refresh",
	})
	signed, err := forged.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = j.Parse(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_IssueRequiresUser(t *testing.T) {
	_, _, err := NewJWT("secret", 0).Issue("")
	require.Error(t, err)
}
