package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "storefront.access_token", cfg.Vault.SlotKey)
	assert.Equal(t, "bbolt", cfg.Vault.Backend)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, []int{400, 200}, cfg.Bridge.FallbackStatuses)
	assert.Equal(t, "/products", cfg.Bridge.LandingRoute)
	assert.Equal(t, "/login", cfg.Bridge.LoginRoute)
	assert.True(t, cfg.Bridge.ClearVaultOnLogout)
	assert.Equal(t, "ignore", cfg.Bridge.SessionLostPolicy)
	assert.Empty(t, cfg.API.AuthScheme)

	assert.ErrorIs(t, cfg.Validate(), ErrMissingEncryptionKey)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("STOREFRONT_VAULT_ENCRYPTION_KEY", "env-key")
	t.Setenv("STOREFRONT_API_TIMEOUT", "5s")
	t.Setenv("STOREFRONT_VAULT_BACKEND", "memory")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Vault.EncryptionKey)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "memory", cfg.Vault.Backend)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
api:
  base_url: https://shop.example.com/api
  auth_scheme: Bearer
vault:
  encryption_key: file-key
  backend: redis
bridge:
  fallback_statuses: [409]
  session_lost_policy: invalidate
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, "Bearer", cfg.API.AuthScheme)
	assert.Equal(t, "redis", cfg.Vault.Backend)
	assert.Equal(t, []int{409}, cfg.Bridge.FallbackStatuses)
	assert.Equal(t, "invalidate", cfg.Bridge.SessionLostPolicy)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate_RejectsUnknownValues(t *testing.T) {
	cfg := &Config{
		API:    APIConfig{BaseURL: "http://x"},
		Vault:  VaultConfig{EncryptionKey: "k", Backend: "floppy"},
		Bridge: BridgeConfig{SessionLostPolicy: "ignore"},
	}
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownBackend)

	cfg.Vault.Backend = "memory"
	cfg.Bridge.SessionLostPolicy = "panic"
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownPolicy)
}
