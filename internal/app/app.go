// Package app is the composition root of the storefront client. It owns the
// lifecycle of every long-lived component; nothing is kept in package state.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.pilab.hu/storefront/api"
	"go.pilab.hu/storefront/config"
	"go.pilab.hu/storefront/identity"
	"go.pilab.hu/storefront/internal/metrics"
	"go.pilab.hu/storefront/log"
	"go.pilab.hu/storefront/session"
	"go.pilab.hu/storefront/storage"
	redisstore "go.pilab.hu/storefront/storage/redis"
	"go.pilab.hu/storefront/vault"
)

// ErrFederationDisabled is returned by federated operations when no provider
// application or provisioning secret is configured.
var ErrFederationDisabled = errors.New("federated login is not configured")

// App holds the wired components.
type App struct {
	Config *config.Config
	Logger log.Logger
	Store  storage.Store
	Vault  *vault.Vault
	API    *api.Client

	// Metrics holds the bridge counters; the host process decides whether
	// to expose it.
	Metrics *prometheus.Registry

	// Provider and Bridge are nil when federated login is not configured.
	Provider identity.Provider
	Bridge   *session.Bridge
}

// New wires storage, vault, API client, identity provider and session bridge.
// opener presents the provider consent URL to the user.
func New(ctx context.Context, cfg *config.Config, logger log.Logger, opener identity.Opener) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Nop()
	}

	store, err := openStore(ctx, cfg.Vault)
	if err != nil {
		return nil, err
	}

	sealer, err := vault.NewSealer(cfg.Vault.EncryptionKey)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	v := vault.New(store, sealer, vault.WithSlotKey(cfg.Vault.SlotKey), vault.WithLogger(logger))

	client, err := api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(logger),
		api.WithAuthorizer(v, cfg.API.AuthScheme),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Vault:   v,
		API:     client,
		Metrics: prometheus.NewRegistry(),
	}

	if cfg.Provider.ClientID == "" || cfg.Bridge.ProvisioningSecret == "" {
		logger.Debug(ctx, "Federated login disabled")
		return a, nil
	}

	provider, err := identity.NewGitHubProvider(identity.GitHubConfig{
		ClientID:     cfg.Provider.ClientID,
		ClientSecret: cfg.Provider.ClientSecret,
		Scopes:       cfg.Provider.Scopes,
		CallbackAddr: cfg.Provider.CallbackAddr,
		Timeout:      cfg.Provider.Timeout,
	}, opener, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	recorder, err := metrics.NewBridge(a.Metrics)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	bridge, err := session.New(client, v, provider, session.Config{
		ProvisioningSecret: cfg.Bridge.ProvisioningSecret,
		FallbackStatuses:   cfg.Bridge.FallbackStatuses,
		LandingRoute:       cfg.Bridge.LandingRoute,
		LoginRoute:         cfg.Bridge.LoginRoute,
		ClearVaultOnLogout: cfg.Bridge.ClearVaultOnLogout,
		SessionLostPolicy:  session.SessionLostPolicy(cfg.Bridge.SessionLostPolicy),
		RequestTimeout:     cfg.Bridge.RequestTimeout,
		Recorder:           recorder,
	}, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	bridge.Observe()

	a.Provider = provider
	a.Bridge = bridge
	return a, nil
}

// Close releases the session subscription and the storage backend.
func (a *App) Close() error {
	if a.Bridge != nil {
		a.Bridge.Close()
	}
	return a.Store.Close()
}

// FederatedBridge returns the bridge or ErrFederationDisabled.
func (a *App) FederatedBridge() (*session.Bridge, error) {
	if a.Bridge == nil {
		return nil, ErrFederationDisabled
	}
	return a.Bridge, nil
}

func openStore(ctx context.Context, cfg config.VaultConfig) (storage.Store, error) {
	switch cfg.Backend {
	case "bbolt":
		return storage.NewBoltStore(cfg.Path, storage.BoltOptions{})
	case "memory":
		return storage.NewMemoryStore(cfg.TTL), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("%w: redis %s: %v", storage.ErrUnavailable, cfg.RedisAddr, err)
		}
		return redisstore.NewStore(client, cfg.RedisPrefix, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
	}
}
