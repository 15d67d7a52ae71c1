package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	p := Principal{UserID: "u-1", Username: "alice", Email: "alice@campus.edu", Role: RoleStudent}

	token, err := m.Generate(p)
	require.NoError(t, err)

	got, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.False(t, got.IsAdmin())
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("one", time.Hour).Generate(Principal{UserID: "u-1", Role: RoleAdmin})
	require.NoError(t, err)

	_, err = NewTokenManager("two", time.Hour).Verify(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := NewTokenManager("secret", -time.Minute)
	token, err := m.Generate(Principal{UserID: "u-1", Role: RoleAdmin})
	require.NoError(t, err)

	_, err = m.Verify(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, UserClaims{UserID: "u-1"})
	s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Hour).Verify(s)

	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("correct horse", hash))
	assert.False(t, CheckPasswordHash("wrong horse", hash))
}

func TestRoleIsValid(t *testing.T) {
	assert.True(t, RoleStaff.IsValid())
	assert.False(t, Role("janitor").IsValid())
}
