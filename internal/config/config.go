package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values for the linker, loaded from a .env file,
// environment variables and defaults.
type Config struct {
	Env      string // Application environment (e.g., development, production)
	LogLevel string // Optional logrus level override

	UserAgent   string        // User-Agent sent to WiiLink services
	HTTPTimeout time.Duration // Per-request timeout for every outbound call

	SSOClientID  string   // Device-code OAuth client ID
	SSOScopes    []string // Scopes requested with the device code
	SSODeviceURL string   // Device-authorization endpoint
	SSOTokenURL  string   // Token endpoint polled with the device code
	OIDCIssuer   string   // Optional issuer; when set the endpoints are discovered

	AccountsURL        string // WiiLink accounts base URL (linked Wii numbers)
	PlatformAuthScheme string // Optional scheme prefixed to the WiiLink access token, e.g. "Bearer"

	LinkServerURL     string // WiiLink Just Eat backend base URL (login brokers and /link)
	DeliveryUserAgent string // User-Agent presented to Just Eat

	DevServicesPort string // Port used by cmd/devservices
}

// Load reads configuration from the given .env file (if present) and environment variables.
// An empty path defaults to ".env"; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = ".env"
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return FromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "production")
	v.SetDefault("USER_AGENT", "WiiLink Just Eat Linker v0.1")
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 30)
	v.SetDefault("SSO_CLIENT_ID", "ChGKaNcTcArxLCWSxAbvXXtbWKsM1xcy6x7k8ssn")
	v.SetDefault("SSO_SCOPES", "openid email profile goauthentik.io/api")
	v.SetDefault("SSO_DEVICE_URL", "https://sso.riiconnect24.net/application/o/device/")
	v.SetDefault("SSO_TOKEN_URL", "https://sso.riiconnect24.net/application/o/token/")
	v.SetDefault("ACCOUNTS_URL", "https://accounts.wiilink.ca")
	v.SetDefault("LINK_SERVER_URL", "https://just-eat.wiilink.ca")
	v.SetDefault("DELIVERY_USER_AGENT", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15")
	v.SetDefault("DEV_SERVICES_PORT", "8090")
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Env:                v.GetString("ENV"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		UserAgent:          v.GetString("USER_AGENT"),
		HTTPTimeout:        time.Duration(v.GetInt("HTTP_TIMEOUT_SECONDS")) * time.Second,
		SSOClientID:        v.GetString("SSO_CLIENT_ID"),
		SSOScopes:          strings.Fields(v.GetString("SSO_SCOPES")),
		SSODeviceURL:       v.GetString("SSO_DEVICE_URL"),
		SSOTokenURL:        v.GetString("SSO_TOKEN_URL"),
		OIDCIssuer:         v.GetString("OIDC_ISSUER"),
		AccountsURL:        strings.TrimRight(v.GetString("ACCOUNTS_URL"), "/"),
		PlatformAuthScheme: v.GetString("PLATFORM_AUTH_SCHEME"),
		LinkServerURL:      strings.TrimRight(v.GetString("LINK_SERVER_URL"), "/"),
		DeliveryUserAgent:  v.GetString("DELIVERY_USER_AGENT"),
		DevServicesPort:    v.GetString("DEV_SERVICES_PORT"),
	}
}

// IsDevelopment reports whether the linker runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
