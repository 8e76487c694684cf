package provider

import (
	"errors"
	"time"

	"golang.org/x/oauth2"
)

var errMissingCodes = errors.New("device_code or user_code missing")

// DeviceCodeGrantType is the grant_type sent while polling the token endpoint.
const DeviceCodeGrantType = "urn:ietf:params:oauth:grant-type:device_code"

// OAuth error codes returned by the token endpoint while the user has not finished.
const (
	errAuthorizationPending = "authorization_pending"
	errSlowDown             = "slow_down"
)

const (
	defaultPollInterval = 5 * time.Second
	slowDownIncrement   = 5 * time.Second
)

// PollInterval returns how long to wait between token polls for the challenge.
func PollInterval(challenge *oauth2.DeviceAuthResponse) time.Duration {
	if challenge == nil || challenge.Interval <= 0 {
		return defaultPollInterval
	}
	return time.Duration(challenge.Interval) * time.Second
}

// tokenPollResponse is the union of the token endpoint's success and error bodies.
type tokenPollResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	IDToken          string `json:"id_token"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (r *tokenPollResponse) token(now time.Time) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    r.TokenType,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    r.ExpiresIn,
	}
	if r.ExpiresIn > 0 {
		tok.Expiry = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	extra := map[string]interface{}{}
	if r.IDToken != "" {
		extra["id_token"] = r.IDToken
	}
	if r.Scope != "" {
		extra["scope"] = r.Scope
	}
	if len(extra) > 0 {
		tok = tok.WithExtra(extra)
	}
	return tok
}

// UserInfo contains the profile the identity provider returns for the logged-in user.
type UserInfo struct {
	Subject  string // Provider-specific user ID
	Username string // preferred_username
	Name     string // Display name
	Email    string // User email address
}

// DisplayName returns the most human-friendly identifier available.
func (u *UserInfo) DisplayName() string {
	switch {
	case u == nil:
		return ""
	case u.Username != "":
		return u.Username
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	default:
		return u.Subject
	}
}
