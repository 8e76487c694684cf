package jwt

import (
	"testing"
	"time"

	jwtx "github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerifyAndInspect(t *testing.T) {
	m := NewManager("dev-secret", time.Hour)
	tok, err := m.Generate(CreateJwtParams{Subject: "42", Username: "mario", Email: "mario@example.com", Issuer: "http://sso"})
	require.NoError(t, err)

	claims, err := m.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "mario", claims.DisplayName())
	assert.False(t, claims.Expired(time.Now()))
	assert.True(t, claims.Expired(time.Now().Add(2*time.Hour)))

	inspected, err := Inspect(tok)
	require.NoError(t, err)
	assert.Equal(t, claims.Subject, inspected.Subject)
	assert.Equal(t, "http://sso", inspected.Issuer)
}

func TestVerifyRejectsOtherKey(t *testing.T) {
	tok, err := NewManager("one", time.Hour).Generate(CreateJwtParams{Subject: "1"})
	require.NoError(t, err)

	_, err = NewManager("two", time.Hour).Verify(tok)
	assert.Error(t, err)

	// Inspection does not care about the key.
	_, err = Inspect(tok)
	assert.NoError(t, err)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{RegisteredClaims: jwtx.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwtx.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwtx.NewWithClaims(jwtx.SigningMethodHS512, claims).SignedString([]byte("dev-secret"))
	require.NoError(t, err)

	_, err = NewManager("dev-secret", time.Hour).Verify(tok)
	assert.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	tok, err := NewManager("dev-secret", -time.Minute).Generate(CreateJwtParams{Subject: "1"})
	require.NoError(t, err)

	_, err = NewManager("dev-secret", time.Hour).Verify(tok)
	assert.ErrorContains(t, err, "verify platform token")
}

func TestInspectOpaqueToken(t *testing.T) {
	_, err := Inspect("not-a-jwt")
	assert.Error(t, err)
}

func TestDisplayNameFallbacks(t *testing.T) {
	c := &Claims{Email: "a@b.c"}
	assert.Equal(t, "a@b.c", c.DisplayName())
	c = &Claims{}
	c.Subject = "sub"
	assert.Equal(t, "sub", c.DisplayName())
	assert.False(t, c.Expired(time.Now()))
}
