package auth

import (
	"context"
	"time"

	"github.com/Gkemhcs/justeat-linker/internal/auth/jwt"
	"github.com/Gkemhcs/justeat-linker/internal/auth/provider"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// AuthService drives the WiiLink device-code login on top of a DeviceCodeProvider.
type AuthService struct {
	provider provider.DeviceCodeProvider
	userInfo provider.UserInfoProvider
	logger   *logrus.Logger
	nowTime  func() time.Time
}

// AuthServiceOption configures an AuthService.
type AuthServiceOption func(*AuthService)

// WithUserInfo enables the post-login profile lookup.
func WithUserInfo(u provider.UserInfoProvider) AuthServiceOption {
	return func(s *AuthService) {
		s.userInfo = u
	}
}

// WithNowTime sets the clock used when checking token expiry (primarily for testing).
func WithNowTime(now func() time.Time) AuthServiceOption {
	return func(s *AuthService) {
		s.nowTime = now
	}
}

// NewAuthService creates a new AuthService with the given provider and logger.
func NewAuthService(p provider.DeviceCodeProvider, logger *logrus.Logger, opts ...AuthServiceOption) *AuthService {
	s := &AuthService{
		provider: p,
		logger:   logger,
		nowTime:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartDeviceFlow requests a verification challenge from the identity provider.
func (s *AuthService) StartDeviceFlow(ctx context.Context) (*oauth2.DeviceAuthResponse, error) {
	s.logger.Info("Starting device flow with WiiLink SSO")
	challenge, err := s.provider.RequestChallenge(ctx)
	if err != nil {
		s.logger.Errorf("Device flow start error: %v", err)
		return nil, err
	}
	s.logger.Infof("Device flow started: verification_uri=%s user_code=%s interval=%ds",
		challenge.VerificationURI, challenge.UserCode, challenge.Interval)
	return challenge, nil
}

// PollDeviceToken blocks until the user finishes the browser login or polling fails.
func (s *AuthService) PollDeviceToken(ctx context.Context, challenge *oauth2.DeviceAuthResponse) (*oauth2.Token, error) {
	s.logger.Debugf("Polling device token every %s", provider.PollInterval(challenge))
	token, err := s.provider.PollToken(ctx, challenge)
	if err != nil {
		s.logger.Errorf("Device token polling error: %v", err)
		return nil, err
	}
	if claims, err := jwt.Inspect(token.AccessToken); err == nil {
		if claims.Expired(s.nowTime()) {
			s.logger.Warnf("WiiLink access token for %s is already expired", claims.DisplayName())
		} else {
			s.logger.Infof("WiiLink login completed for subject=%s", claims.Subject)
		}
	} else {
		s.logger.Info("WiiLink login completed")
	}
	return token, nil
}

// StartPolling runs PollDeviceToken on its own goroutine. The token reaches the caller
// only through the returned handle.
func (s *AuthService) StartPolling(ctx context.Context, challenge *oauth2.DeviceAuthResponse) *PollHandle {
	return RunPoll(ctx, func(ctx context.Context) (*oauth2.Token, error) {
		return s.PollDeviceToken(ctx, challenge)
	})
}

// Describe returns a display name for the logged-in account, or "" when unknown.
// The userinfo endpoint is preferred; JWT claims are the fallback.
func (s *AuthService) Describe(ctx context.Context, token *oauth2.Token) string {
	if s.userInfo != nil {
		info, err := s.userInfo.UserInfo(ctx, token)
		if err == nil {
			return info.DisplayName()
		}
		s.logger.Warnf("userinfo lookup failed: %v", err)
	}
	if claims, err := jwt.Inspect(token.AccessToken); err == nil {
		return claims.DisplayName()
	}
	return ""
}
