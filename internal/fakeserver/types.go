package fakeserver

import "time"

// Account is the WiiLink account the fake identity provider logs in.
type Account struct {
	Subject  string
	Username string
	Email    string
	Name     string
}

// Options controls how the fake services behave.
type Options struct {
	ClientID  string        // Device-code client accepted by the SSO
	JWTSecret string        // Key used to sign platform access tokens
	TokenTTL  time.Duration // Lifetime of platform access tokens
	Interval  int64         // Poll interval advertised with the device code, in seconds

	// PendingPolls is the number of authorization_pending answers before a device
	// code is approved.
	PendingPolls int

	Account Account
	Wiis    []string // Wii numbers linked to the account

	JustEatUsername string
	JustEatPassword string
	SecondFactor    bool   // Whether Just Eat demands an OTP after the password
	OTP             string // The only accepted OTP

	// FailLinks is the number of /link calls rejected with 502 before one succeeds.
	FailLinks int
}

// DefaultOptions returns a single account with one Wii and 2FA disabled.
func DefaultOptions() Options {
	return Options{
		ClientID:     "ChGKaNcTcArxLCWSxAbvXXtbWKsM1xcy6x7k8ssn",
		JWTSecret:    "devservices-secret",
		TokenTTL:     time.Hour,
		Interval:     1,
		PendingPolls: 1,
		Account: Account{
			Subject:  "8f1b0c6e-1f4a-4c1e-9d7a-2a8e5b7c9d10",
			Username: "wiilink-dev",
			Email:    "dev@wiilink.local",
			Name:     "WiiLink Developer",
		},
		Wiis:            []string{"1234567890123456"},
		JustEatUsername: "eater@example.com",
		JustEatPassword: "password",
		OTP:             "123456",
	}
}

// LoginCall records one request to the fake Just Eat token endpoint.
type LoginCall struct {
	Country   string
	GrantType string
	Username  string
	Acr       string
	Status    int
}

// LinkCall records one request to the fake /link endpoint.
type LinkCall struct {
	Authorization string
	WiiNumber     string
	EatAuth       string
	RefreshToken  string
	ExpireTime    string
	DeviceModel   string
	Acr           string
	Status        int
}

type deviceGrant struct {
	userCode string
	scope    string
	polls    int
}
