// Package token mints and verifies the bearer tokens the gateway accepts.
// Identity exchange with the external OAuth provider happens elsewhere; by
// the time a token reaches this package it is a locally issued HMAC JWT
// whose subject is the identity string attached to the connection.
package token

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
)

// Scopes a token can carry
const (
	ScopeConnect = "connect" // open a websocket and join scopes
	ScopeNotify  = "notify"  // publish domain events via the notify API
)

// Token represents the claims in a realtime bearer token
type Token struct {

	// Scopes controlling what the bearer may do; one or both of
	// "connect" and "notify"
	Scopes []string `json:"scopes"`

	jwt.RegisteredClaims
}

// New returns a Token for the given identity, valid between nbf and exp
func New(audience, subject string, scopes []string, iat, nbf, exp int64) Token {

	return Token{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(unix(iat)),
			NotBefore: jwt.NewNumericDate(unix(nbf)),
			ExpiresAt: jwt.NewNumericDate(unix(exp)),
			Audience:  []string{audience},
			Subject:   subject,
		},
	}
}

func unix(t int64) time.Time {
	return time.Unix(t, 0)
}

// Sign returns the signed string form of the token
func Sign(token Token, secret string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, token).SignedString([]byte(secret))
}

// HasRequiredClaims returns false if the Token is missing any required element
func HasRequiredClaims(token Token) bool {

	if token.Subject == "" ||
		len(token.Scopes) == 0 ||
		len(token.RegisteredClaims.Audience) == 0 ||
		token.RegisteredClaims.ExpiresAt == nil {
		return false
	}
	return true
}

// HasScope returns true if the token carries the named scope
func (t Token) HasScope(scope string) bool {
	for _, s := range t.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Verify parses and validates a signed token string, checking the signature,
// the standard time claims, and that the audience matches
func Verify(bearer, secret, audience string) (Token, error) {

	claims := &Token{}

	parsed, err := jwt.ParseWithClaims(bearer, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return Token{}, err
	}

	if !parsed.Valid {
		return Token{}, errors.New("token invalid")
	}

	if !HasRequiredClaims(*claims) {
		return Token{}, errors.New("token missing required claims")
	}

	audok := false
	for _, aud := range claims.Audience {
		if aud == audience {
			audok = true
		}
	}
	if !audok {
		return Token{}, errors.New("token audience does not match")
	}

	return *claims, nil
}
