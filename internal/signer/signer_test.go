package signer

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestSignProducesVerifiableToken(t *testing.T) {
	key := generateKey(t)
	s := &Signer{Key: key}

	token, err := s.Sign(map[string]any{"path": "a.txt"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := jwt.ParseWithClaims(token, &PayloadClaims{}, func(*jwt.Token) (any, error) {
		return &key.PublicKey, nil
	})
	require.NoError(t, err)
	claims, ok := parsed.Claims.(*PayloadClaims)
	require.True(t, ok)
	assert.Equal(t, "a.txt", claims.Payload["path"])
}

func TestSignEmptyPayload(t *testing.T) {
	s := &Signer{Key: generateKey(t)}
	token, err := s.Sign(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestSignPanicsWhenNotReady(t *testing.T) {
	var s *Signer
	assert.Panics(t, func() {
		_, _ = s.Sign(map[string]any{})
	})

	s2 := &Signer{}
	assert.Panics(t, func() {
		_, _ = s2.Sign(map[string]any{})
	})
}
