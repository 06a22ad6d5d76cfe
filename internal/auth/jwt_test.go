package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventpass/server/internal/model"
)

func TestJWTService_signAndVerify(t *testing.T) {
	s := NewJWTService("secret-one", 0)
	token, expiresAt, err := s.SignAccessToken(model.Account{ID: "acc-1", ShortID: "abc123", Email: "a@b.com"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := s.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.Subject)
	assert.Equal(t, "eventpass", claims.Issuer)
	assert.NotEmpty(t, claims.ID)

	_, err = NewJWTService("secret-two", 0).VerifyToken(token)
	assert.Error(t, err)
}

func TestJWTService_expired(t *testing.T) {
	s := NewJWTService("secret-one", time.Minute)
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := s.SignAccessToken(model.Account{ID: "acc-1", Email: "a@b.com"})
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.VerifyToken(token)
	assert.Error(t, err)
}

func TestJWTService_missingSubject(t *testing.T) {
	s := NewJWTService("secret-one", time.Minute)
	token, _, err := s.SignAccessToken(model.Account{Email: "a@b.com"})
	require.NoError(t, err)

	_, err = s.VerifyToken(token)
	assert.Error(t, err)
}

func TestSessionHandle(t *testing.T) {
	h1, hash1, err := GenerateSessionHandle()
	require.NoError(t, err)
	h2, _, err := GenerateSessionHandle()
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.Len(t, hash1, 64)
	assert.Equal(t, hash1, HashSessionHandle(h1))
}
