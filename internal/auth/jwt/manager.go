package jwt

import (
	"fmt"
	"time"

	jwtx "github.com/golang-jwt/jwt/v4"
)

// Inspect decodes the claims of a platform access token without verifying its signature.
// The linker only forwards the token, so the claims are informational (who logged in,
// when it expires). Opaque tokens return an error and should simply be passed through.
func Inspect(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwtx.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Manager handles JWT creation and verification using a secret key and token duration.
// The development identity provider uses it to mint and check platform access tokens.
type Manager struct {
	secretKey     string
	tokenDuration time.Duration
}

// NewManager creates a new JWT Manager with the given secret key and token duration.
func NewManager(secretKey string, tokenDuration time.Duration) *Manager {
	return &Manager{
		secretKey:     secretKey,
		tokenDuration: tokenDuration,
	}
}

// Duration returns the lifetime given to issued tokens.
func (m *Manager) Duration() time.Duration {
	return m.tokenDuration
}

// Generate creates a signed JWT token string using the provided parameters.
func (m *Manager) Generate(params CreateJwtParams) (string, error) {
	now := time.Now()
	claims := &Claims{
		PreferredUsername: params.Username,
		Email:             params.Email,
		RegisteredClaims: jwtx.RegisteredClaims{
			Subject:   params.Subject,
			Issuer:    params.Issuer,
			ExpiresAt: jwtx.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwtx.NewNumericDate(now),
		},
	}
	token := jwtx.NewWithClaims(jwtx.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.secretKey))
}

// Verify checks the HS256 signature and expiry of a token minted by Generate.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parser := jwtx.NewParser(jwtx.WithValidMethods([]string{jwtx.SigningMethodHS256.Alg()}))
	if _, err := parser.ParseWithClaims(tokenStr, claims, m.signingKey); err != nil {
		return nil, fmt.Errorf("verify platform token: %w", err)
	}
	return claims, nil
}

func (m *Manager) signingKey(*jwtx.Token) (interface{}, error) {
	return []byte(m.secretKey), nil
}
