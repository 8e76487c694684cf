package flow

import (
	"github.com/Gkemhcs/justeat-linker/internal/justeat"
	"golang.org/x/oauth2"
)

// Step is a position in the linking flow.
type Step int

const (
	StepAccountLogin Step = iota
	StepLoadHardware
	StepSelectHardware
	StepNoHardware
	StepSelectCountry
	StepCredentials
	StepSecondFactor
	StepLink
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepAccountLogin:
		return "account_login"
	case StepLoadHardware:
		return "load_hardware"
	case StepSelectHardware:
		return "select_hardware"
	case StepNoHardware:
		return "no_hardware"
	case StepSelectCountry:
		return "select_country"
	case StepCredentials:
		return "credentials"
	case StepSecondFactor:
		return "second_factor"
	case StepLink:
		return "link"
	case StepDone:
		return "done"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further operation is possible from s.
func (s Step) Terminal() bool {
	return s == StepNoHardware || s == StepDone
}

// SessionState is the data carried forward between steps.
type SessionState struct {
	// AccessToken is the WiiLink platform token, set once by the account login.
	AccessToken string
	// WiiNumber is the confirmed console; it does not change afterwards.
	WiiNumber string
	Country   string

	Attempt *justeat.Attempt

	// DeliveryTokens are held only until the backend link succeeds.
	DeliveryTokens *oauth2.Token
}

// snapshot returns a deep copy safe to hand to callers.
func (s SessionState) snapshot() SessionState {
	out := s
	if s.Attempt != nil {
		out.Attempt = s.Attempt.Clone()
	}
	if s.DeliveryTokens != nil {
		t := *s.DeliveryTokens
		out.DeliveryTokens = &t
	}
	return out
}
