package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/Gkemhcs/justeat-linker/internal/errors"
	"github.com/Gkemhcs/justeat-linker/internal/httpclient"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the default Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SSOProvider implements DeviceCodeProvider against the WiiLink authentik SSO.
type SSOProvider struct {
	config *oauth2.Config
	client *httpclient.Client
	sleep  Sleeper
	now    func() time.Time
	logger *logrus.Logger
}

// SSOOption configures an SSOProvider.
type SSOOption func(*SSOProvider)

// WithSleeper replaces the wait between polls (primarily for testing).
func WithSleeper(s Sleeper) SSOOption {
	return func(p *SSOProvider) {
		p.sleep = s
	}
}

// WithNowTime sets the clock used to compute token expiry (primarily for testing).
func WithNowTime(now func() time.Time) SSOOption {
	return func(p *SSOProvider) {
		p.now = now
	}
}

// NewSSOProvider creates an SSOProvider. cfg must carry the client ID, scopes and an
// endpoint with DeviceAuthURL and TokenURL.
func NewSSOProvider(cfg *oauth2.Config, client *httpclient.Client, logger *logrus.Logger, opts ...SSOOption) *SSOProvider {
	p := &SSOProvider{
		config: cfg,
		client: client,
		sleep:  ContextSleep,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RequestChallenge initiates the device authorization flow and returns the device/user
// codes and the verification URI. Any status other than 200 is a VerificationURLError.
func (p *SSOProvider) RequestChallenge(ctx context.Context) (*oauth2.DeviceAuthResponse, error) {
	form := url.Values{}
	form.Set("client_id", p.config.ClientID)
	form.Set("scope", strings.Join(p.config.Scopes, " "))

	resp, err := p.client.PostForm(ctx, p.config.Endpoint.DeviceAuthURL, nil, form)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, apperrors.NewVerificationURLError(resp.Status)
	}

	var challenge oauth2.DeviceAuthResponse
	if err := resp.JSON(&challenge); err != nil {
		return nil, apperrors.NewMalformedResponseError(p.client.Service(), resp.Status, err)
	}
	if challenge.DeviceCode == "" || challenge.UserCode == "" {
		return nil, apperrors.NewMalformedResponseError(p.client.Service(), resp.Status, errMissingCodes)
	}
	return &challenge, nil
}

// PollToken polls the token endpoint with the device code. A 400 carrying
// authorization_pending means wait one interval and ask again; slow_down additionally
// widens the interval. Any other OAuth error, such as access_denied or expired_token,
// ends the poll with a TokenHTTPError carrying the error code instead of polling on.
// There is no attempt cap otherwise; ctx bounds the loop.
func (p *SSOProvider) PollToken(ctx context.Context, challenge *oauth2.DeviceAuthResponse) (*oauth2.Token, error) {
	form := url.Values{}
	form.Set("grant_type", DeviceCodeGrantType)
	form.Set("client_id", p.config.ClientID)
	form.Set("device_code", challenge.DeviceCode)

	interval := PollInterval(challenge)
	for {
		resp, err := p.client.PostForm(ctx, p.config.Endpoint.TokenURL, nil, form)
		if err != nil {
			return nil, err
		}
		if !resp.OK() && resp.Status != http.StatusBadRequest {
			return nil, apperrors.NewTokenHTTPError(resp.Status)
		}

		var body tokenPollResponse
		if err := resp.JSON(&body); err != nil {
			return nil, apperrors.NewMalformedResponseError(p.client.Service(), resp.Status, err)
		}
		if body.AccessToken != "" {
			return body.token(p.now()), nil
		}

		switch body.Error {
		case errAuthorizationPending:
		case errSlowDown:
			interval += slowDownIncrement
			p.logger.Debugf("identity provider asked to slow down, polling every %s", interval)
		default:
			return nil, apperrors.NewTokenGrantError(resp.Status, body.Error, body.ErrorDescription)
		}

		if err := p.sleep(ctx, interval); err != nil {
			return nil, err
		}
	}
}
