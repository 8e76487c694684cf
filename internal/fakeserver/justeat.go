package fakeserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const deliveryTokenTTL = 3600

// justEatToken handles POST /je/:country/token for both the password and the
// mfa_otp grants.
func (s *Server) justEatToken(c *gin.Context) {
	country := strings.ToUpper(c.Param("country"))
	call := LoginCall{
		Country:   country,
		GrantType: c.PostForm("grant_type"),
		Username:  c.PostForm("username"),
		Acr:       c.PostForm("acr"),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		call.Status = c.Writer.Status()
		s.logins = append(s.logins, call)
	}()

	if c.PostForm("client_id") != deliveryClientID {
		oauthError(c, http.StatusBadRequest, "invalid_client", "unknown client_id")
		return
	}
	if !strings.HasPrefix(call.Acr, "tenant:"+country+" ") {
		oauthError(c, http.StatusBadRequest, "invalid_request", "acr does not match the tenant")
		return
	}

	switch call.GrantType {
	case "password":
		s.passwordGrant(c, call)
	case "mfa_otp":
		s.otpGrant(c, call)
	default:
		oauthError(c, http.StatusBadRequest, "unsupported_grant_type", call.GrantType)
	}
}

func (s *Server) passwordGrant(c *gin.Context, call LoginCall) {
	if call.Username != s.opts.JustEatUsername || c.PostForm("password") != s.opts.JustEatPassword {
		oauthError(c, http.StatusBadRequest, "invalid_grant", "invalid username or password")
		return
	}
	if s.opts.SecondFactor {
		mfa := uuid.NewString()
		s.challenges[mfa] = call.Acr
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":             "mfa_required",
			"error_description": "Multifactor authentication required",
			"mfa_token":         mfa,
		})
		return
	}
	s.issueTokens(c)
}

// otpGrant exchanges an mfa_token once. It must come from the same device identity
// that started the login.
func (s *Server) otpGrant(c *gin.Context, call LoginCall) {
	mfa := c.PostForm("mfa_token")
	acr, ok := s.challenges[mfa]
	if !ok {
		oauthError(c, http.StatusBadRequest, "invalid_grant", "unknown or used mfa_token")
		return
	}
	if acr != call.Acr {
		oauthError(c, http.StatusBadRequest, "invalid_request", "device changed during login")
		return
	}
	if c.PostForm("otp") != s.opts.OTP {
		oauthError(c, http.StatusBadRequest, "invalid_otp", "the code is not valid")
		return
	}
	delete(s.challenges, mfa)
	s.issueTokens(c)
}

// issueTokens must be called with s.mu held.
func (s *Server) issueTokens(c *gin.Context) {
	access := "je-" + uuid.NewString()
	s.issued[access] = true
	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": "je-refresh-" + uuid.NewString(),
		"token_type":    "Bearer",
		"expires_in":    deliveryTokenTTL,
	})
}
