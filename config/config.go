package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	AppName   = "storefront"
	EnvPrefix = "STOREFRONT"
)

// Config holds all configuration of the storefront client.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Vault    VaultConfig    `mapstructure:"vault"`
	Provider ProviderConfig `mapstructure:"provider"`
	Bridge   BridgeConfig   `mapstructure:"bridge"`
	Log      LogConfig      `mapstructure:"log"`
	Trace    TraceConfig    `mapstructure:"trace"`
}

// APIConfig describes the remote catalog API.
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	AuthScheme string        `mapstructure:"auth_scheme"` // empty sends the raw token
	Timeout    time.Duration `mapstructure:"timeout"`
}

// VaultConfig describes where and how the access token is kept at rest.
type VaultConfig struct {
	EncryptionKey string        `mapstructure:"encryption_key"`
	SlotKey       string        `mapstructure:"slot_key"`
	Backend       string        `mapstructure:"backend"` // bbolt, redis or memory
	Path          string        `mapstructure:"path"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisDB       int           `mapstructure:"redis_db"`
	RedisPrefix   string        `mapstructure:"redis_prefix"`
	TTL           time.Duration `mapstructure:"ttl"` // zero keeps the record until cleared
}

// ProviderConfig is the GitHub OAuth application used for federated login.
type ProviderConfig struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Scopes       []string      `mapstructure:"scopes"`
	CallbackAddr string        `mapstructure:"callback_addr"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// BridgeConfig tunes the federated login to backend session bridge.
type BridgeConfig struct {
	ProvisioningSecret string        `mapstructure:"provisioning_secret"`
	FallbackStatuses   []int         `mapstructure:"fallback_statuses"`
	LandingRoute       string        `mapstructure:"landing_route"`
	LoginRoute         string        `mapstructure:"login_route"`
	ClearVaultOnLogout bool          `mapstructure:"clear_vault_on_logout"`
	SessionLostPolicy  string        `mapstructure:"session_lost_policy"` // ignore or invalidate
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// TraceConfig enables span export to stderr.
type TraceConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

var (
	ErrMissingEncryptionKey = errors.New("vault.encryption_key is required")
	ErrMissingBaseURL       = errors.New("api.base_url is required")
	ErrUnknownBackend       = errors.New("unknown vault backend")
	ErrUnknownPolicy        = errors.New("unknown session lost policy")
)

func defaultVaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("."+AppName, "vault.db")
	}
	return filepath.Join(home, "."+AppName, "vault.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080/api/v1")
	v.SetDefault("api.auth_scheme", "")
	v.SetDefault("api.timeout", 15*time.Second)

	v.SetDefault("vault.encryption_key", "")
	v.SetDefault("vault.slot_key", "storefront.access_token")
	v.SetDefault("vault.backend", "bbolt")
	v.SetDefault("vault.path", defaultVaultPath())
	v.SetDefault("vault.redis_addr", "localhost:6379")
	v.SetDefault("vault.redis_db", 0)
	v.SetDefault("vault.redis_prefix", AppName)
	v.SetDefault("vault.ttl", time.Duration(0))

	v.SetDefault("provider.client_id", "")
	v.SetDefault("provider.client_secret", "")
	v.SetDefault("provider.scopes", []string{"read:user", "user:email"})
	v.SetDefault("provider.callback_addr", "127.0.0.1:8765")
	v.SetDefault("provider.timeout", 30*time.Second)

	v.SetDefault("bridge.provisioning_secret", "")
	v.SetDefault("bridge.fallback_statuses", []int{400, 200})
	v.SetDefault("bridge.landing_route", "/products")
	v.SetDefault("bridge.login_route", "/login")
	v.SetDefault("bridge.clear_vault_on_logout", true)
	v.SetDefault("bridge.session_lost_policy", "ignore")
	v.SetDefault("bridge.request_timeout", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)

	v.SetDefault("trace.enabled", false)
}

// LoadConfig reads configuration from an optional file, the environment and
// defaults. An explicit cfgFile must exist; the default search paths may not.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/" + AppName + "/")
		v.AddConfigPath("$HOME/." + AppName)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}

// Validate reports the first configuration problem that prevents the vault
// and the API client from being built.
func (c *Config) Validate() error {
	if c.Vault.EncryptionKey == "" {
		return ErrMissingEncryptionKey
	}
	if c.API.BaseURL == "" {
		return ErrMissingBaseURL
	}
	switch c.Vault.Backend {
	case "bbolt", "redis", "memory":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Vault.Backend)
	}
	switch c.Bridge.SessionLostPolicy {
	case "ignore", "invalidate":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPolicy, c.Bridge.SessionLostPolicy)
	}
	return nil
}
