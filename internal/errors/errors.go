package errors

import (
	"errors"
	"fmt"
)

// LinkError represents a structured failure of one of the linking steps.
// Includes a code, a user-facing message and, for protocol rejections, the HTTP status.
type LinkError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface for LinkError.
func (e *LinkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause, if any.
func (e *LinkError) Unwrap() error {
	return e.Err
}

// Is matches any LinkError carrying the same code, so callers can test
// errors.Is(err, ErrTokenHTTP) regardless of the status it carries.
func (e *LinkError) Is(target error) bool {
	t, ok := target.(*LinkError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewLinkError creates a new LinkError with the given code, message and status.
func NewLinkError(code, message string, status int) *LinkError {
	return &LinkError{Code: code, Message: message, Status: status}
}

const (
	CodeVerificationURL    = "verification_url_error"
	CodeTokenHTTP          = "token_http_error"
	CodeAttributeRetrieval = "attribute_retrieval_error"
	CodeJustEatData        = "just_eat_data_error"
	CodeJustEatLogin       = "just_eat_login_error"
	CodeJustEat2FA         = "just_eat_2fa_error"
	CodeJustEatLink        = "just_eat_link_error"
	CodeTransport          = "transport_error"
	CodeInvalidCredentials = "invalid_credentials"
	CodeWrongStep          = "wrong_step"
	CodeStepInFlight       = "step_in_flight"
	CodeNoAccessToken      = "no_access_token"
	CodeNoHardware         = "no_hardware"
	CodeUnknownHardware    = "unknown_hardware"
	CodeUnknownCountry     = "unknown_country"
	CodeMalformedResponse  = "malformed_response"
	CodeNoPendingChallenge = "no_pending_challenge"
	CodeNoPendingLink      = "no_pending_link"
	CodePollingNotStarted  = "polling_not_started"
)

// Kind sentinels, usable as errors.Is targets for errors produced by the constructors below.
var (
	ErrVerificationURL    = NewLinkError(CodeVerificationURL, "Failed to retrieve verification URL", 0)
	ErrTokenHTTP          = NewLinkError(CodeTokenHTTP, "Failed to retrieve token", 0)
	ErrAttributeRetrieval = NewLinkError(CodeAttributeRetrieval, "Failed to retrieve WiiLink account attributes", 0)
	ErrJustEatData        = NewLinkError(CodeJustEatData, "Failed to retrieve Just Eat login data", 0)
	ErrJustEatLogin       = NewLinkError(CodeJustEatLogin, "Just Eat login failed", 0)
	ErrJustEat2FA         = NewLinkError(CodeJustEat2FA, "Failed to authenticate with the 2FA code", 0)
	ErrJustEatLink        = NewLinkError(CodeJustEatLink, "Your Just Eat account could not be linked", 0)
	ErrTransport          = NewLinkError(CodeTransport, "Unable to reach the remote server", 0)
	ErrMalformedResponse  = NewLinkError(CodeMalformedResponse, "Unexpected response from the remote server", 0)

	ErrInvalidCredentials = NewLinkError(CodeInvalidCredentials, "Please enter the correct credentials for your Just Eat account", 0)
	ErrWrongStep          = NewLinkError(CodeWrongStep, "This step is not available right now", 0)
	ErrStepInFlight       = NewLinkError(CodeStepInFlight, "A request for this step is already in progress", 0)
	ErrNoAccessToken      = NewLinkError(CodeNoAccessToken, "Not logged in to a WiiLink account", 0)
	ErrNoHardware         = NewLinkError(CodeNoHardware, "There are no Wii consoles linked to this WiiLink account", 0)
	ErrUnknownHardware    = NewLinkError(CodeUnknownHardware, "That Wii number is not linked to this WiiLink account", 0)
	ErrUnknownCountry     = NewLinkError(CodeUnknownCountry, "That country is not supported", 0)
	ErrNoPendingChallenge = NewLinkError(CodeNoPendingChallenge, "There is no two-factor challenge in progress", 0)
	ErrNoPendingLink      = NewLinkError(CodeNoPendingLink, "There is no pending link to retry", 0)
	ErrPollingNotStarted  = NewLinkError(CodePollingNotStarted, "The WiiLink login has not been started", 0)
)

func statusError(code, what string, status int) *LinkError {
	return &LinkError{
		Code:    code,
		Message: fmt.Sprintf("%s with status code %d", what, status),
		Status:  status,
	}
}

// NewVerificationURLError reports a non-200 device-authorization response.
func NewVerificationURLError(status int) *LinkError {
	return statusError(CodeVerificationURL, "Failed to retrieve verification URL", status)
}

// NewTokenHTTPError reports a fatal device-token poll response.
func NewTokenHTTPError(status int) *LinkError {
	return statusError(CodeTokenHTTP, "Failed to retrieve token", status)
}

// NewTokenGrantError reports a device-token poll rejected with an OAuth error code
// other than authorization_pending or slow_down.
func NewTokenGrantError(status int, oauthErr, description string) *LinkError {
	e := statusError(CodeTokenHTTP, "Failed to retrieve token", status)
	e.Err = fmt.Errorf("%s: %s", oauthErr, description)
	return e
}

// NewAttributeRetrievalError reports a non-200 linked-hardware response.
func NewAttributeRetrievalError(status int) *LinkError {
	return statusError(CodeAttributeRetrieval, "Failed to retrieve WiiLink account attributes", status)
}

// NewJustEatDataError reports a non-200 login-target broker response.
func NewJustEatDataError(status int) *LinkError {
	return statusError(CodeJustEatData, "Failed to retrieve Just Eat login data", status)
}

// NewJustEatLoginError reports a login response that is neither a success,
// an invalid grant nor a usable second-factor challenge.
func NewJustEatLoginError(status int) *LinkError {
	return statusError(CodeJustEatLogin, "Just Eat login failed", status)
}

// NewJustEat2FAError reports a non-200 second-factor response.
func NewJustEat2FAError(status int) *LinkError {
	return statusError(CodeJustEat2FA, "Failed to authenticate with the 2FA code", status)
}

// NewJustEatLinkError reports a non-200 backend link response.
func NewJustEatLinkError(status int) *LinkError {
	return statusError(CodeJustEatLink, "Your Just Eat account could not be linked", status)
}

// NewTransportError wraps a connectivity failure towards the named service.
func NewTransportError(service string, err error) *LinkError {
	return &LinkError{
		Code:    CodeTransport,
		Message: fmt.Sprintf("Unable to connect to %s", service),
		Err:     err,
	}
}

// NewMalformedResponseError wraps a body that could not be decoded.
func NewMalformedResponseError(service string, status int, err error) *LinkError {
	return &LinkError{
		Code:    CodeMalformedResponse,
		Message: fmt.Sprintf("Unexpected response from %s", service),
		Status:  status,
		Err:     err,
	}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var le *LinkError
	if errors.As(err, &le) {
		return le.Status
	}
	return 0
}

// IsTransport reports whether err is a connectivity failure that the user may retry.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
