package justeat

import (
	"context"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Gkemhcs/justeat-linker/internal/accounts"
	apperrors "github.com/Gkemhcs/justeat-linker/internal/errors"
	"github.com/Gkemhcs/justeat-linker/internal/httpclient"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// LinkerService logs in to Just Eat on the user's behalf and hands the resulting
// session to the WiiLink backend.
type LinkerService struct {
	wiilink    *httpclient.Client
	delivery   *httpclient.Client
	baseURL    string
	authScheme string
	devices    []string
	pickDevice DevicePicker
	newID      func() string
	now        func() time.Time
	logger     *logrus.Logger
}

// LinkerOption configures a LinkerService.
type LinkerOption func(*LinkerService)

// WithDevicePicker replaces the random device choice (primarily for testing).
func WithDevicePicker(p DevicePicker) LinkerOption {
	return func(s *LinkerService) {
		s.pickDevice = p
	}
}

// WithDeviceIDGenerator replaces the per-attempt DeviceId generator (primarily for testing).
func WithDeviceIDGenerator(gen func() string) LinkerOption {
	return func(s *LinkerService) {
		s.newID = gen
	}
}

// WithNowTime sets the clock used for token expiry (primarily for testing).
func WithNowTime(now func() time.Time) LinkerOption {
	return func(s *LinkerService) {
		s.now = now
	}
}

// WithAuthScheme sets the scheme prefixed to the WiiLink access token on /link.
func WithAuthScheme(scheme string) LinkerOption {
	return func(s *LinkerService) {
		s.authScheme = scheme
	}
}

// NewLinkerService creates a LinkerService. wiilink talks to the WiiLink backend at
// baseURL; delivery talks to the Just Eat endpoints the backend assigns.
func NewLinkerService(wiilink, delivery *httpclient.Client, baseURL string, logger *logrus.Logger, opts ...LinkerOption) *LinkerService {
	s := &LinkerService{
		wiilink:    wiilink,
		delivery:   delivery,
		baseURL:    strings.TrimRight(baseURL, "/"),
		devices:    DeviceModels,
		pickDevice: RandomDevice,
		newID:      uuid.NewString,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewAttempt starts a login attempt for the country: a device model is drawn from the
// pool, a fresh DeviceId generated and the attestation computed once.
func (s *LinkerService) NewAttempt(country string) (*Attempt, error) {
	if _, ok := LookupCountry(country); !ok {
		return nil, apperrors.ErrUnknownCountry
	}
	model := s.pickDevice(s.devices)
	deviceID := s.newID()
	acr, err := BuildAttestation(country, model, deviceID)
	if err != nil {
		return nil, err
	}
	s.logger.Debugf("New login attempt: country=%s device=%s", country, model)
	return &Attempt{
		Country:     country,
		DeviceModel: model,
		DeviceID:    deviceID,
		Attestation: acr,
	}, nil
}

// Login submits the Just Eat credentials and decides the outcome from the response:
// 200 is a success, 400 with invalid_grant is a credential failure, and anything else
// is treated as a second-factor challenge.
func (s *LinkerService) Login(ctx context.Context, attempt *Attempt, username, password string) (*LoginOutcome, error) {
	s.logger.Infof("Logging in to Just Eat (%s)", attempt.Country)
	target, err := s.fetchTarget(ctx, loginTargetPath, attempt)
	if err != nil {
		return nil, err
	}

	payload := target.FormPayload()
	payload.Set("acr", attempt.Attestation)
	payload.Set("username", username)
	payload.Set("password", password)

	resp, err := s.delivery.PostForm(ctx, target.URL, target.Header, payload)
	if err != nil {
		return nil, err
	}

	if resp.OK() {
		tokens, err := s.decodeTokens(resp)
		if err != nil {
			return nil, err
		}
		s.logger.Info("Just Eat login succeeded without a second factor")
		return &LoginOutcome{Result: LoginSucceeded, Status: resp.Status, Tokens: tokens}, nil
	}

	var body loginErrorResponse
	decodeErr := resp.JSON(&body)
	if resp.Status == http.StatusBadRequest && decodeErr == nil && body.Error == errInvalidGrant {
		s.logger.Warn("Just Eat rejected the credentials")
		return &LoginOutcome{Result: LoginInvalidCredentials, Status: resp.Status}, nil
	}

	// Every other status is read as a 2FA challenge, which also swallows genuine
	// server errors; a body without mfa_token is reported as a login failure.
	if !looksLikeChallenge(resp.Status) {
		s.logger.Warnf("Treating unexpected Just Eat login status %d as a second-factor challenge", resp.Status)
	}
	if decodeErr != nil || body.MFAToken == "" {
		s.logger.Errorf("Just Eat login status %d carried no mfa_token", resp.Status)
		return nil, apperrors.NewJustEatLoginError(resp.Status)
	}
	s.logger.Info("Just Eat requires a second factor")
	return &LoginOutcome{
		Result:   LoginSecondFactorRequired,
		Status:   resp.Status,
		MFAToken: body.MFAToken,
		Payload:  payload,
	}, nil
}

// SubmitSecondFactor completes an outstanding challenge with the user's code. A fresh
// 2FA target is fetched on every call and merged into a copy of the carried payload.
func (s *LinkerService) SubmitSecondFactor(ctx context.Context, attempt *Attempt, code string) (*oauth2.Token, error) {
	if !attempt.AwaitingSecondFactor() {
		return nil, apperrors.ErrNoPendingChallenge
	}
	s.logger.Info("Submitting Just Eat 2FA code")
	target, err := s.fetchTarget(ctx, secondFactorTargetPath, attempt)
	if err != nil {
		return nil, err
	}

	payload := clonePayload(attempt.Payload)
	if payload == nil {
		payload = url.Values{}
	}
	maps.Copy(payload, target.FormPayload())
	payload.Set("mfa_token", attempt.MFAToken)
	payload.Set("otp", code)

	resp, err := s.delivery.PostForm(ctx, target.URL, target.Header, payload)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		s.logger.Errorf("Just Eat 2FA failed with status %d", resp.Status)
		return nil, apperrors.NewJustEat2FAError(resp.Status)
	}
	return s.decodeTokens(resp)
}

// Link binds the Just Eat session to the Wii on the WiiLink backend.
func (s *LinkerService) Link(ctx context.Context, req LinkRequest) error {
	if req.PlatformToken == "" {
		return apperrors.ErrNoAccessToken
	}
	s.logger.Infof("Linking Just Eat account to Wii %s", req.WiiNumber)

	form := url.Values{}
	form.Set("wii_number", req.WiiNumber)
	form.Set("eat_auth", "Bearer "+req.Tokens.AccessToken)
	form.Set("refresh_token", req.Tokens.RefreshToken)
	form.Set("expire_time", strconv.FormatInt(s.expireTime(req.Tokens), 10))
	form.Set("device_model", req.DeviceModel)
	form.Set("acr", req.Attestation)

	resp, err := s.wiilink.PostForm(ctx, s.baseURL+linkPath, map[string]string{
		"Authorization": accounts.AuthorizationValue(s.authScheme, req.PlatformToken),
	}, form)
	if err != nil {
		return err
	}
	if !resp.OK() {
		s.logger.Errorf("Link failed with status %d: %s", resp.Status, truncate(resp.Body, 200))
		return apperrors.NewJustEatLinkError(resp.Status)
	}
	s.logger.Infof("Just Eat account linked to Wii %s", req.WiiNumber)
	return nil
}

func (s *LinkerService) expireTime(tokens *oauth2.Token) int64 {
	if tokens.ExpiresIn > 0 {
		return s.now().Unix() + tokens.ExpiresIn
	}
	return tokens.Expiry.Unix()
}

func (s *LinkerService) decodeTokens(resp *httpclient.Response) (*oauth2.Token, error) {
	var body tokenResponse
	if err := resp.JSON(&body); err != nil {
		return nil, apperrors.NewMalformedResponseError(s.delivery.Service(), resp.Status, err)
	}
	if body.AccessToken == "" {
		return nil, apperrors.NewMalformedResponseError(s.delivery.Service(), resp.Status, errMissingAccessToken)
	}
	return body.token(s.now()), nil
}

// looksLikeChallenge reports statuses Just Eat is known to use for step-up.
func looksLikeChallenge(status int) bool {
	switch status {
	case http.StatusAccepted, http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
