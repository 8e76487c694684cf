package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCProvider wraps a discovered OpenID Connect issuer.
type OIDCProvider struct {
	provider *oidc.Provider
	http     *http.Client
}

// Discover fetches the issuer's discovery document using hc.
func Discover(ctx context.Context, issuer string, hc *http.Client) (*OIDCProvider, error) {
	p, err := oidc.NewProvider(oidc.ClientContext(ctx, hc), issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %s: %w", issuer, err)
	}
	return &OIDCProvider{provider: p, http: hc}, nil
}

// Endpoint returns the discovered endpoints, falling back to fallback for any the
// issuer does not advertise.
func (o *OIDCProvider) Endpoint(fallback oauth2.Endpoint) oauth2.Endpoint {
	var extra struct {
		DeviceAuthURL string `json:"device_authorization_endpoint"`
	}
	ep := o.provider.Endpoint()
	if err := o.provider.Claims(&extra); err == nil && extra.DeviceAuthURL != "" {
		ep.DeviceAuthURL = extra.DeviceAuthURL
	}
	if ep.DeviceAuthURL == "" {
		ep.DeviceAuthURL = fallback.DeviceAuthURL
	}
	if ep.TokenURL == "" {
		ep.TokenURL = fallback.TokenURL
	}
	return ep
}

// UserInfo implements UserInfoProvider using the issuer's userinfo endpoint.
func (o *OIDCProvider) UserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	ctx = oidc.ClientContext(ctx, o.http)
	info, err := o.provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, fmt.Errorf("userinfo: %w", err)
	}
	var claims struct {
		PreferredUsername string `json:"preferred_username"`
		Name              string `json:"name"`
	}
	// Missing optional claims are fine.
	_ = info.Claims(&claims)

	return &UserInfo{
		Subject:  info.Subject,
		Username: claims.PreferredUsername,
		Name:     claims.Name,
		Email:    info.Email,
	}, nil
}
