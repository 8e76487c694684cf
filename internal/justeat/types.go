package justeat

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

// LoginTarget is the server-assigned description of a Just Eat login request:
// where to send it, which headers to use and the base form payload.
type LoginTarget struct {
	URL     string            `json:"url"`
	Header  map[string]string `json:"header"`
	Payload map[string]any    `json:"payload"`
}

// UnmarshalJSON keeps payload numbers as json.Number so large integers reach Just Eat
// exactly as the backend sent them.
func (t *LoginTarget) UnmarshalJSON(data []byte) error {
	type plain LoginTarget
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode((*plain)(t))
}

// FormPayload returns the payload as form values. Lists repeat the key once per element.
func (t *LoginTarget) FormPayload() url.Values {
	out := make(url.Values, len(t.Payload))
	for k, v := range t.Payload {
		if list, ok := v.([]any); ok {
			for _, item := range list {
				out.Add(k, formValue(item))
			}
			continue
		}
		out.Set(k, formValue(v))
	}
	return out
}

func formValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// clonePayload copies form values without sharing the value slices.
func clonePayload(v url.Values) url.Values {
	if v == nil {
		return nil
	}
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// LoginResult tags the outcome of a credential submission.
type LoginResult int

const (
	// LoginSucceeded means Just Eat issued tokens straight away.
	LoginSucceeded LoginResult = iota
	// LoginInvalidCredentials means Just Eat rejected the username or password.
	LoginInvalidCredentials
	// LoginSecondFactorRequired means a code must be submitted to finish the login.
	LoginSecondFactorRequired
)

func (r LoginResult) String() string {
	switch r {
	case LoginSucceeded:
		return "success"
	case LoginInvalidCredentials:
		return "invalid_credentials"
	case LoginSecondFactorRequired:
		return "second_factor_required"
	default:
		return "unknown"
	}
}

// LoginOutcome is the decided result of Login.
type LoginOutcome struct {
	Result LoginResult
	Status int

	// Set when Result is LoginSucceeded.
	Tokens *oauth2.Token

	// Set when Result is LoginSecondFactorRequired.
	MFAToken string
	Payload  url.Values
}

// LinkRequest carries everything the WiiLink backend needs to bind a Just Eat session to a Wii.
type LinkRequest struct {
	WiiNumber     string
	PlatformToken string
	Tokens        *oauth2.Token
	DeviceModel   string
	Attestation   string
}

// tokenResponse is the body Just Eat returns from a successful login or 2FA submission.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (r *tokenResponse) token(now time.Time) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		ExpiresIn:    r.ExpiresIn,
		Expiry:       now.Add(time.Duration(r.ExpiresIn) * time.Second),
	}
}

// loginErrorResponse is the body of a rejected login.
type loginErrorResponse struct {
	Error    string `json:"error"`
	MFAToken string `json:"mfa_token"`
}

const errInvalidGrant = "invalid_grant"

var errMissingAccessToken = errors.New("access_token missing")
