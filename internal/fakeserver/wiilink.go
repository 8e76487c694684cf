package fakeserver

import (
	"net/http"
	"slices"
	"strings"

	"github.com/Gkemhcs/justeat-linker/internal/justeat"
	"github.com/gin-gonic/gin"
)

const deliveryClientID = "consumer_android_je"

// linkedUser handles GET /link/user. An account without Wiis answers with empty
// attributes, the same as the real accounts service.
func (s *Server) linkedUser(c *gin.Context) {
	attributes := gin.H{}
	if len(s.opts.Wiis) > 0 {
		attributes["wiis"] = s.opts.Wiis
	}
	c.JSON(http.StatusOK, gin.H{"attributes": attributes})
}

// loginData handles GET /userdatalogin.json.
func (s *Server) loginData(c *gin.Context) {
	s.target(c, map[string]any{
		"client_id":  deliveryClientID,
		"grant_type": "password",
		"scope":      "openid mobile_scope offline_access",
	})
}

// secondFactorData handles GET /2fadata.json.
func (s *Server) secondFactorData(c *gin.Context) {
	s.target(c, map[string]any{
		"client_id":  deliveryClientID,
		"grant_type": "mfa_otp",
	})
}

func (s *Server) target(c *gin.Context, payload map[string]any) {
	deviceID := c.Query("device_id")
	country := c.Query("country")
	if deviceID == "" || country == "" {
		rejectRequest(c, http.StatusBadRequest, "missing_parameter", "device_id and country are required")
		return
	}
	if _, ok := justeat.LookupCountry(country); !ok {
		rejectRequest(c, http.StatusNotFound, "unknown_country", "unsupported country "+country)
		return
	}

	c.JSON(http.StatusOK, justeat.LoginTarget{
		URL: baseURL(c) + "/je/" + strings.ToLower(country) + "/token",
		Header: map[string]string{
			"Accept-Language": "en-GB",
			"X-Je-Device":     deviceID,
		},
		Payload: payload,
	})
}

// link handles POST /link. The first FailLinks calls are rejected with 502.
func (s *Server) link(c *gin.Context) {
	call := LinkCall{
		Authorization: c.GetHeader("Authorization"),
		WiiNumber:     c.PostForm("wii_number"),
		EatAuth:       c.PostForm("eat_auth"),
		RefreshToken:  c.PostForm("refresh_token"),
		ExpireTime:    c.PostForm("expire_time"),
		DeviceModel:   c.PostForm("device_model"),
		Acr:           c.PostForm("acr"),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	status, code, msg := http.StatusOK, "", ""
	switch {
	case !slices.Contains(s.opts.Wiis, call.WiiNumber):
		status, code, msg = http.StatusBadRequest, "unknown_wii", "Wii is not linked to this account"
	case !strings.HasPrefix(call.EatAuth, "Bearer ") || !s.issued[strings.TrimPrefix(call.EatAuth, "Bearer ")]:
		status, code, msg = http.StatusBadRequest, "invalid_eat_auth", "Just Eat token was not issued by Just Eat"
	case call.Acr == "" || call.DeviceModel == "" || call.ExpireTime == "":
		status, code, msg = http.StatusBadRequest, "missing_parameter", "acr, device_model and expire_time are required"
	case s.failLinks > 0:
		s.failLinks--
		status, code, msg = http.StatusBadGateway, "upstream_error", "Just Eat could not be reached"
	}
	call.Status = status
	s.links = append(s.links, call)

	if status != http.StatusOK {
		s.log.Warnf("Rejected link for Wii %s: %s", call.WiiNumber, code)
		rejectRequest(c, status, code, msg)
		return
	}
	s.log.Infof("Linked Just Eat account to Wii %s", call.WiiNumber)
	c.JSON(http.StatusOK, linkResult{WiiNumber: call.WiiNumber, DeviceModel: call.DeviceModel})
}
