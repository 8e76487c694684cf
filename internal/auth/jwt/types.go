package jwt

import (
	"time"

	jwtx "github.com/golang-jwt/jwt/v4"
)

// Claims represents the claims the WiiLink identity provider puts in its access tokens.
type Claims struct {
	PreferredUsername     string `json:"preferred_username,omitempty"` // Account username
	Email                 string `json:"email,omitempty"`              // Account email address
	Name                  string `json:"name,omitempty"`               // Display name
	jwtx.RegisteredClaims        // Embedded standard JWT claims
}

// Expired reports whether the token carries an expiry at or before now.
func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// DisplayName returns the most human-friendly identifier in the claims.
func (c *Claims) DisplayName() string {
	switch {
	case c.PreferredUsername != "":
		return c.PreferredUsername
	case c.Name != "":
		return c.Name
	case c.Email != "":
		return c.Email
	default:
		return c.Subject
	}
}

// CreateJwtParams contains the parameters required to issue an access token.
type CreateJwtParams struct {
	Subject  string // Unique account identifier
	Username string // preferred_username
	Email    string // Account email address
	Issuer   string // Token issuer
}
