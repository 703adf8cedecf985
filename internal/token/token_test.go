package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignVerifyRoundTrip(t *testing.T) {

	audience := "https://realtime.example.io"
	secret := "somesecret"

	iat := time.Now().Unix() - 1
	exp := time.Now().Unix() + 30

	tok := New(audience, "alice", []string{ScopeConnect}, iat, iat, exp)

	bearer, err := Sign(tok, secret)
	assert.NoError(t, err)
	assert.NotEmpty(t, bearer)

	got, err := Verify(bearer, secret, audience)
	assert.NoError(t, err)
	assert.Equal(t, "alice", got.Subject)
	assert.True(t, got.HasScope(ScopeConnect))
	assert.False(t, got.HasScope(ScopeNotify))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {

	audience := "https://realtime.example.io"

	iat := time.Now().Unix() - 1
	exp := time.Now().Unix() + 30

	tok := New(audience, "alice", []string{ScopeConnect}, iat, iat, exp)

	bearer, err := Sign(tok, "somesecret")
	assert.NoError(t, err)

	_, err = Verify(bearer, "othersecret", audience)
	assert.Error(t, err)
}

func TestVerifyRejectsWrongAudience(t *testing.T) {

	iat := time.Now().Unix() - 1
	exp := time.Now().Unix() + 30

	tok := New("https://a.example.io", "alice", []string{ScopeConnect}, iat, iat, exp)

	bearer, err := Sign(tok, "somesecret")
	assert.NoError(t, err)

	_, err = Verify(bearer, "somesecret", "https://b.example.io")
	assert.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {

	audience := "https://realtime.example.io"

	iat := time.Now().Unix() - 120
	exp := time.Now().Unix() - 60

	tok := New(audience, "alice", []string{ScopeConnect}, iat, iat, exp)

	bearer, err := Sign(tok, "somesecret")
	assert.NoError(t, err)

	_, err = Verify(bearer, "somesecret", audience)
	assert.Error(t, err)
}

func TestHasRequiredClaims(t *testing.T) {

	iat := time.Now().Unix() - 1
	exp := time.Now().Unix() + 30

	ok := New("aud", "alice", []string{ScopeConnect}, iat, iat, exp)
	assert.True(t, HasRequiredClaims(ok))

	noSubject := New("aud", "", []string{ScopeConnect}, iat, iat, exp)
	assert.False(t, HasRequiredClaims(noSubject))

	noScopes := New("aud", "alice", []string{}, iat, iat, exp)
	assert.False(t, HasRequiredClaims(noScopes))
}
