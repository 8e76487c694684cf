package fakeserver

import (
	"net/http"
	"strings"

	"github.com/Gkemhcs/justeat-linker/internal/auth/jwt"
	"github.com/Gkemhcs/justeat-linker/internal/auth/provider"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// deviceCode handles POST /application/o/device/.
func (s *Server) deviceCode(c *gin.Context) {
	if c.PostForm("client_id") != s.opts.ClientID {
		oauthError(c, http.StatusBadRequest, "invalid_client", "unknown client_id")
		return
	}

	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	userCode := code[:4] + "-" + code[4:8]
	deviceCode := uuid.NewString()

	s.mu.Lock()
	s.grants[deviceCode] = &deviceGrant{userCode: userCode, scope: c.PostForm("scope")}
	s.mu.Unlock()
	s.log.Infof("Issued device code for user code %s", userCode)

	verify := baseURL(c) + "/device"
	c.JSON(http.StatusOK, gin.H{
		"device_code":               deviceCode,
		"user_code":                 userCode,
		"verification_uri":          verify,
		"verification_uri_complete": verify + "?code=" + userCode,
		"expires_in":                600,
		"interval":                  s.opts.Interval,
	})
}

// deviceToken handles POST /application/o/token/. Each device code is answered with
// authorization_pending PendingPolls times and then approved once.
func (s *Server) deviceToken(c *gin.Context) {
	if c.PostForm("grant_type") != provider.DeviceCodeGrantType {
		oauthError(c, http.StatusBadRequest, "unsupported_grant_type", "only the device code grant is supported")
		return
	}
	if c.PostForm("client_id") != s.opts.ClientID {
		oauthError(c, http.StatusBadRequest, "invalid_client", "unknown client_id")
		return
	}

	s.mu.Lock()
	grant, ok := s.grants[c.PostForm("device_code")]
	if !ok {
		s.mu.Unlock()
		oauthError(c, http.StatusBadRequest, "expired_token", "unknown or used device_code")
		return
	}
	if grant.polls < s.opts.PendingPolls {
		grant.polls++
		s.mu.Unlock()
		oauthError(c, http.StatusBadRequest, "authorization_pending", "waiting for the user")
		return
	}
	delete(s.grants, c.PostForm("device_code"))
	s.mu.Unlock()

	access, err := s.jwter.Generate(jwt.CreateJwtParams{
		Subject:  s.opts.Account.Subject,
		Username: s.opts.Account.Username,
		Email:    s.opts.Account.Email,
		Issuer:   baseURL(c) + IssuerPath,
	})
	if err != nil {
		s.log.Errorf("Token signing failed: %v", err)
		oauthError(c, http.StatusInternalServerError, "server_error", "token signing failed")
		return
	}
	s.log.Infof("Approved device code for %s", grant.userCode)
	c.JSON(http.StatusOK, gin.H{
		"access_token": access,
		"token_type":   "Bearer",
		"expires_in":   int64(s.jwter.Duration().Seconds()),
		"id_token":     access,
		"scope":        grant.scope,
	})
}

// discovery serves the OpenID Connect discovery document for IssuerPath.
func (s *Server) discovery(c *gin.Context) {
	base := baseURL(c)
	c.JSON(http.StatusOK, gin.H{
		"issuer":                                base + IssuerPath,
		"authorization_endpoint":                base + ssoPrefix + "/authorize/",
		"token_endpoint":                        base + TokenPath,
		"device_authorization_endpoint":         base + DevicePath,
		"userinfo_endpoint":                     base + ssoPrefix + "/userinfo/",
		"jwks_uri":                              base + IssuerPath + "jwks/",
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"HS256"},
		"grant_types_supported":                 []string{"authorization_code", provider.DeviceCodeGrantType},
	})
}

// userInfo handles GET /application/o/userinfo/.
func (s *Server) userInfo(c *gin.Context) {
	claims := c.MustGet("claims").(*jwt.Claims)
	c.JSON(http.StatusOK, gin.H{
		"sub":                claims.Subject,
		"email":              claims.Email,
		"email_verified":     true,
		"preferred_username": claims.PreferredUsername,
		"name":               s.opts.Account.Name,
	})
}
