package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "WiiLink Just Eat Linker v0.1", cfg.UserAgent)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, []string{"openid", "email", "profile", "goauthentik.io/api"}, cfg.SSOScopes)
	assert.Equal(t, "https://just-eat.wiilink.ca", cfg.LinkServerURL)
	assert.Empty(t, cfg.PlatformAuthScheme)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linker.env")
	content := "ENV=development\nLINK_SERVER_URL=http://localhost:8090/\nHTTP_TIMEOUT_SECONDS=5\nSSO_SCOPES=openid email\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "http://localhost:8090", cfg.LinkServerURL)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, []string{"openid", "email"}, cfg.SSOScopes)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linker.env")
	require.NoError(t, os.WriteFile(path, []byte("ACCOUNTS_URL=http://file.example\n"), 0o600))
	t.Setenv("ACCOUNTS_URL", "http://env.example")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env.example", cfg.AccountsURL)
}
