// Package app wires the linking services from configuration.
package app

import (
	"context"
	"net/http"

	"github.com/Gkemhcs/justeat-linker/internal/accounts"
	"github.com/Gkemhcs/justeat-linker/internal/auth"
	"github.com/Gkemhcs/justeat-linker/internal/auth/provider"
	"github.com/Gkemhcs/justeat-linker/internal/config"
	"github.com/Gkemhcs/justeat-linker/internal/flow"
	"github.com/Gkemhcs/justeat-linker/internal/httpclient"
	"github.com/Gkemhcs/justeat-linker/internal/justeat"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// Option tunes the wiring.
type Option func(*options)

type options struct {
	sso    []provider.SSOOption
	linker []justeat.LinkerOption
}

// WithSSOOptions forwards options to the device-code provider.
func WithSSOOptions(opts ...provider.SSOOption) Option {
	return func(o *options) {
		o.sso = append(o.sso, opts...)
	}
}

// WithLinkerOptions forwards options to the Just Eat linker.
func WithLinkerOptions(opts ...justeat.LinkerOption) Option {
	return func(o *options) {
		o.linker = append(o.linker, opts...)
	}
}

// Build constructs a Flow backed by the real services described by cfg. When an OIDC
// issuer is configured its endpoints and userinfo are used; a failed discovery falls
// back to the configured endpoints.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger, opts ...Option) *flow.Flow {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	wiilink := httpclient.New("WiiLink", cfg.HTTPTimeout, logger, httpclient.WithUserAgent(cfg.UserAgent))

	endpoint := oauth2.Endpoint{
		DeviceAuthURL: cfg.SSODeviceURL,
		TokenURL:      cfg.SSOTokenURL,
	}
	var authOpts []auth.AuthServiceOption
	if cfg.OIDCIssuer != "" {
		discovered, err := provider.Discover(ctx, cfg.OIDCIssuer, &http.Client{Timeout: cfg.HTTPTimeout})
		if err != nil {
			logger.Warnf("OIDC discovery failed, using configured endpoints: %v", err)
		} else {
			endpoint = discovered.Endpoint(endpoint)
			authOpts = append(authOpts, auth.WithUserInfo(discovered))
			logger.Debugf("Discovered device endpoint %s", endpoint.DeviceAuthURL)
		}
	}

	sso := provider.NewSSOProvider(&oauth2.Config{
		ClientID: cfg.SSOClientID,
		Scopes:   cfg.SSOScopes,
		Endpoint: endpoint,
	}, wiilink, logger, o.sso...)

	delivery := httpclient.NewBrowserLike("Just Eat", cfg.HTTPTimeout, cfg.DeliveryUserAgent, logger)
	linkerOpts := append([]justeat.LinkerOption{justeat.WithAuthScheme(cfg.PlatformAuthScheme)}, o.linker...)

	return flow.New(
		auth.NewAuthService(sso, logger, authOpts...),
		accounts.NewAccountsService(wiilink, cfg.AccountsURL, cfg.PlatformAuthScheme, logger),
		justeat.NewLinkerService(wiilink, delivery, cfg.LinkServerURL, logger, linkerOpts...),
		logger,
	)
}
