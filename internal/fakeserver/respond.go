package fakeserver

import (
	"github.com/gin-gonic/gin"
)

// backendError is the body the WiiLink backend sends when it turns a request down.
type backendError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// linkResult is the body of an accepted /link call.
type linkResult struct {
	WiiNumber   string `json:"wii_number"`
	DeviceModel string `json:"device_model"`
}

func rejectRequest(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, backendError{ErrorCode: code, Message: message})
}

// oauthError answers in the RFC 6749 error format used by the SSO and Just Eat endpoints.
func oauthError(c *gin.Context, status int, code, description string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":             code,
		"error_description": description,
	})
}
