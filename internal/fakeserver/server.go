// Package fakeserver emulates every remote service the linker talks to: the WiiLink
// SSO (device code, token, discovery, userinfo), the accounts service, the Just Eat
// login brokers and link endpoint, and Just Eat's own token endpoint. It backs the
// end-to-end tests and cmd/devservices.
package fakeserver

import (
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Gkemhcs/justeat-linker/internal/auth/jwt"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	ssoPrefix = "/application/o"
	// IssuerPath is appended to the server URL to form the OIDC issuer.
	IssuerPath = ssoPrefix + "/wiilink/"
	// DevicePath and TokenPath are the SSO device-code endpoints.
	DevicePath = ssoPrefix + "/device/"
	TokenPath  = ssoPrefix + "/token/"
)

// Server is the fake collaborator stack.
type Server struct {
	opts   Options
	log    *logrus.Logger
	engine *gin.Engine
	jwter  *jwt.Manager

	mu         sync.Mutex
	grants     map[string]*deviceGrant
	challenges map[string]string // mfa_token -> acr of the login that issued it
	issued     map[string]bool   // Just Eat access tokens
	failLinks  int
	logins     []LoginCall
	links      []LinkCall
}

// New creates a Server with all routes registered.
func New(opts Options, log *logrus.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(log))

	s := &Server{
		opts:       opts,
		log:        log,
		engine:     engine,
		jwter:      jwt.NewManager(opts.JWTSecret, opts.TokenTTL),
		grants:     map[string]*deviceGrant{},
		challenges: map[string]string{},
		issued:     map[string]bool{},
		failLinks:  opts.FailLinks,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "WiiLink dev services are healthy",
		})
	})

	sso := s.engine.Group(ssoPrefix)
	{
		sso.POST("/device/", s.deviceCode)
		sso.POST("/token/", s.deviceToken)
		sso.GET("/wiilink/.well-known/openid-configuration", s.discovery)
		sso.GET("/userinfo/", s.authenticate(), s.userInfo)
	}

	s.engine.GET("/link/user", s.authenticate(), s.linkedUser)
	s.engine.GET("/userdatalogin.json", s.loginData)
	s.engine.GET("/2fadata.json", s.secondFactorData)
	s.engine.POST("/link", s.authenticate(), s.link)

	s.engine.POST("/je/:country/token", s.justEatToken)
}

// Handler exposes the router, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on addr until the process exits.
func (s *Server) Start(addr string) error {
	s.log.Infof("starting dev services on %s", addr)
	return s.engine.Run(addr)
}

// Logins returns the recorded Just Eat token requests.
func (s *Server) Logins() []LoginCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.logins)
}

// Links returns the recorded /link requests.
func (s *Server) Links() []LinkCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.links)
}

// authenticate verifies the platform access token. The WiiLink backend accepts the
// token with or without a Bearer prefix.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			rejectRequest(c, http.StatusUnauthorized, "missing_token", "Missing Authorization header")
			return
		}
		claims, err := s.jwter.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			rejectRequest(c, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
			return
		}
		c.Set("claims", claims)
		c.Next()
	}
}

func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"component": "devservices",
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
		}).Debug("Handled request")
	}
}

// baseURL reconstructs the externally visible origin of the request.
func baseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
