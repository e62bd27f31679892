// Package signer is the client's JWT-signing capability: it turns an
// arbitrary request payload into a signed token using the client's private
// key, the way internal/apiclient's request builder needs for every
// outgoing call. The RSA signing mechanics are grounded on
// gigurra-tofu's cmd/jwt create path (jwt.NewWithClaims +
// token.SignedString(rsaKey)); the claim-embedding shape follows syftsdk's
// AuthClaims (a typed struct embedding jwt.RegisteredClaims).
package signer

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PayloadClaims wraps an arbitrary request payload as JWT custom claims
// alongside the registered issued-at claim, so every signed request carries
// a freshness signal even when jwtPayload is empty.
type PayloadClaims struct {
	Payload map[string]any `json:"payload"`
	jwt.RegisteredClaims
}

// Signer signs request payloads with an RSA private key. A zero-value
// Signer is deliberately not ready to use — Key must be set — so callers
// that forget to initialise it fail loudly rather than silently emitting
// unsigned requests.
type Signer struct {
	Key *rsa.PrivateKey
}

// errNotReady is the value Sign panics with when no private key has been
// configured. Per the error-handling design, this is a programming error,
// not a user-facing taxonomy member, so it is never returned as an error.
var errNotReady = fmt.Errorf("signer: not ready, no private key configured")

// Sign produces a compact JWT whose claims carry payload, signed with
// RS256. A nil or empty payload is encoded as an empty object.
func (s *Signer) Sign(payload map[string]any) (string, error) {
	if s == nil || s.Key == nil {
		panic(errNotReady)
	}
	if payload == nil {
		payload = map[string]any{}
	}

	claims := PayloadClaims{
		Payload: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.Key)
	if err != nil {
		return "", fmt.Errorf("signer: sign: %w", err)
	}
	return signed, nil
}

// LoadPrivateKeyPEM parses a PKCS#1 or PKCS#8 RSA private key in PEM form,
// the same format the reference client stores at privateKey.pem.
func LoadPrivateKeyPEM(pemBytes []byte) (*rsa.PrivateKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("signer: parse private key: %w", err)
	}
	return key, nil
}
