// Package session bridges a third-party identity provider login to a backend
// session: it provisions the account, falls back to login when the account
// already exists, and hands the resulting token to the credential vault.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.pilab.hu/storefront/api"
	"go.pilab.hu/storefront/identity"
	"go.pilab.hu/storefront/log"
)

const tracerName = "go.pilab.hu/storefront/session"

const (
	DefaultLandingRoute   = "/products"
	DefaultLoginRoute     = "/login"
	DefaultRequestTimeout = 15 * time.Second
)

// DefaultFallbackStatuses are the register statuses answered with a login:
// the duplicate account rejection and the already-processed success.
var DefaultFallbackStatuses = []int{400, 200}

// Backend is the subset of the backend API the bridge calls.
type Backend interface {
	Register(ctx context.Context, req api.RegisterRequest) (*api.Account, error)
	Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error)
}

// TokenStore persists the backend token. The credential vault implements it.
type TokenStore interface {
	Store(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Recorder observes flow outcomes, e.g. for metrics.
type Recorder interface {
	LoginFinished(outcome string)
	FallbackLogin()
	SessionLost()
}

// Outcome labels passed to Recorder.LoginFinished.
const (
	OutcomeAuthenticated = "authenticated"
	OutcomeNoToken       = "no_token"
	OutcomeFailed        = "failed"
)

type nopRecorder struct{}

func (nopRecorder) LoginFinished(string) {}
func (nopRecorder) FallbackLogin()       {}
func (nopRecorder) SessionLost()         {}

// Config tunes a Bridge.
type Config struct {
	ProvisioningSecret string
	FallbackStatuses   []int
	LandingRoute       string
	LoginRoute         string
	ClearVaultOnLogout bool
	SessionLostPolicy  SessionLostPolicy
	RequestTimeout     time.Duration
	Recorder           Recorder
}

// Outcome is where the user should be taken after a login attempt.
type Outcome struct {
	Route         string
	Authenticated bool
}

// Snapshot is the observable state of the bridge.
type Snapshot struct {
	State    State
	Pending  bool
	Err      error
	Identity *identity.Identity
}

// Bridge runs the federated login flow. It is safe for concurrent use; when
// flows overlap only the most recently started one is reflected in Snapshot
// and stores its token.
type Bridge struct {
	backend  Backend
	tokens   TokenStore
	provider identity.Provider
	cfg      Config
	logger   log.Logger
	tracer   trace.Tracer

	mu          sync.Mutex
	generation  uint64
	snap        Snapshot
	signingOut  bool
	closed      bool
	unsubscribe func()

	// tokenMu orders vault writes against generation bumps so a superseded
	// flow never stores after the clear that superseded it.
	tokenMu sync.Mutex
}

// New creates a Bridge.
func New(backend Backend, tokens TokenStore, provider identity.Provider, cfg Config, logger log.Logger) (*Bridge, error) {
	if cfg.ProvisioningSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.FallbackStatuses == nil {
		cfg.FallbackStatuses = DefaultFallbackStatuses
	}
	if cfg.LandingRoute == "" {
		cfg.LandingRoute = DefaultLandingRoute
	}
	if cfg.LoginRoute == "" {
		cfg.LoginRoute = DefaultLoginRoute
	}
	if cfg.SessionLostPolicy == "" {
		cfg.SessionLostPolicy = PolicyIgnore
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if logger == nil {
		logger = log.Nop()
	}

	return &Bridge{
		backend:  backend,
		tokens:   tokens,
		provider: provider,
		cfg:      cfg,
		logger:   logger.With(log.Fields{"component": "session_bridge"}),
		tracer:   otel.Tracer(tracerName),
	}, nil
}

// Snapshot returns the current state.
func (b *Bridge) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap
}

// LoginWithProvider runs the whole flow: provider consent, registration,
// fallback login and token storage. Failures are returned and also recorded
// in the snapshot as the Failed state.
func (b *Bridge) LoginWithProvider(ctx context.Context) (Outcome, error) {
	ctx, span := b.tracer.Start(ctx, "session.LoginWithProvider")
	defer span.End()

	flow := b.begin()

	id, err := b.provider.Login(ctx)
	if err != nil {
		return b.fail(ctx, span, flow, nil, providerError(err))
	}
	b.advance(flow, Provisioning, id)

	creds := DeriveCredentials(id.Email, b.cfg.ProvisioningSecret)
	logger := b.logger.With(log.Fields{"provider_user_id": id.ProviderUserID})

	if err := b.register(ctx, id, creds); err != nil {
		status := api.StatusOf(err)
		if status == 0 || !slices.Contains(b.cfg.FallbackStatuses, status) {
			return b.fail(ctx, span, flow, id, backendError(err))
		}
		logger.Info(ctx, "Account already provisioned, falling back to login", log.Fields{"status": status})
		b.cfg.Recorder.FallbackLogin()
	}
	b.advance(flow, AwaitingFallbackLogin, id)

	resp, err := b.login(ctx, id.Email, creds)
	if err != nil {
		return b.fail(ctx, span, flow, id, backendError(err))
	}
	if resp.AccessToken == "" {
		logger.Warn(ctx, "Login returned no access token")
		b.cfg.Recorder.LoginFinished(OutcomeNoToken)
		b.settle(flow, Snapshot{State: Idle, Identity: id})
		span.SetAttributes(attribute.Bool("authenticated", false))
		return Outcome{Route: b.cfg.LoginRoute}, nil
	}

	if err := b.storeToken(ctx, flow, resp.AccessToken); err != nil {
		return b.fail(ctx, span, flow, id, err)
	}

	b.settle(flow, Snapshot{State: Authenticated, Identity: id})
	b.cfg.Recorder.LoginFinished(OutcomeAuthenticated)
	span.SetAttributes(attribute.Bool("authenticated", true))
	logger.Info(ctx, "Backend session established")
	return Outcome{Route: b.cfg.LandingRoute, Authenticated: true}, nil
}

// storeToken writes token unless flow was superseded by a newer flow, a
// logout or a session invalidation.
func (b *Bridge) storeToken(ctx context.Context, flow uint64, token string) error {
	b.tokenMu.Lock()
	defer b.tokenMu.Unlock()

	b.mu.Lock()
	current := flow == b.generation
	b.mu.Unlock()
	if !current {
		return ErrSuperseded
	}
	if err := b.tokens.Store(ctx, token); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

func (b *Bridge) clearTokens(ctx context.Context) error {
	b.tokenMu.Lock()
	defer b.tokenMu.Unlock()
	return b.tokens.Clear(ctx)
}

func (b *Bridge) register(ctx context.Context, id *identity.Identity, creds Credentials) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.RequestTimeout)
	defer cancel()
	ctx, span := b.tracer.Start(ctx, "session.register")
	defer span.End()

	_, err := b.backend.Register(ctx, api.RegisterRequest{
		Username:        creds.Username,
		PhoneNumber:     id.PhoneNumber,
		Email:           id.Email,
		Password:        creds.Password,
		ConfirmPassword: creds.Password,
		Profile:         id.PhotoURL,
	})
	if err != nil {
		span.SetAttributes(attribute.Int("status", api.StatusOf(err)))
	}
	return err
}

func (b *Bridge) login(ctx context.Context, email string, creds Credentials) (*api.LoginResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.RequestTimeout)
	defer cancel()
	ctx, span := b.tracer.Start(ctx, "session.login")
	defer span.End()

	return b.backend.Login(ctx, api.LoginRequest{Email: email, Password: creds.Password})
}

// Logout signs out of the provider and resets the bridge. The stored token is
// cleared too unless the bridge is configured to keep it.
func (b *Bridge) Logout(ctx context.Context) error {
	ctx, span := b.tracer.Start(ctx, "session.Logout")
	defer span.End()

	b.mu.Lock()
	b.signingOut = true
	b.mu.Unlock()

	err := b.provider.SignOut(ctx)

	b.mu.Lock()
	b.signingOut = false
	if err == nil {
		// Supersede any flow still in progress.
		b.generation++
		b.snap = Snapshot{State: Idle}
	}
	b.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sign out failed")
		return fmt.Errorf("%w: sign out: %w", ErrProvider, err)
	}

	if b.cfg.ClearVaultOnLogout {
		if err := b.clearTokens(ctx); err != nil {
			span.RecordError(err)
			return fmt.Errorf("%w: %w", ErrStorage, err)
		}
	}
	b.logger.Info(ctx, "Logged out", log.Fields{"vault_cleared": b.cfg.ClearVaultOnLogout})
	return nil
}

// Observe subscribes the bridge to the provider's session stream. The
// returned func releases the subscription; Close releases it as well.
func (b *Bridge) Observe() (stop func()) {
	b.mu.Lock()
	if b.closed || b.unsubscribe != nil {
		b.mu.Unlock()
		return b.stopObserving
	}
	b.mu.Unlock()

	unsubscribe := b.provider.Subscribe(b.handleEvent)

	b.mu.Lock()
	if b.closed || b.unsubscribe != nil {
		b.mu.Unlock()
		unsubscribe()
		return b.stopObserving
	}
	b.unsubscribe = unsubscribe
	b.mu.Unlock()
	return b.stopObserving
}

func (b *Bridge) stopObserving() {
	b.mu.Lock()
	unsubscribe := b.unsubscribe
	b.unsubscribe = nil
	b.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Close releases the session subscription. Events delivered afterwards are
// dropped.
func (b *Bridge) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.stopObserving()
}

// handleEvent is the session stream input. A Present event records the
// identity; an Absent event after a known identity is a lost provider
// session, handled per the configured policy.
func (b *Bridge) handleEvent(ev identity.Event) {
	ctx := context.Background()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if ev.Kind == identity.Present {
		if !b.snap.Pending {
			b.snap.Identity = ev.Identity
		}
		b.mu.Unlock()
		return
	}
	if b.signingOut || b.snap.Identity == nil {
		b.mu.Unlock()
		return
	}

	invalidate := b.cfg.SessionLostPolicy == PolicyInvalidate
	if invalidate {
		// Supersede any flow still in progress.
		b.generation++
		b.snap = Snapshot{State: Idle, Err: ErrProviderSessionLost}
	} else {
		b.snap.Identity = nil
		b.snap.Err = ErrProviderSessionLost
	}
	b.mu.Unlock()

	b.logger.Warn(ctx, "Provider session lost", log.Fields{"policy": string(b.cfg.SessionLostPolicy)})
	b.cfg.Recorder.SessionLost()
	if !invalidate {
		return
	}
	if err := b.clearTokens(ctx); err != nil {
		b.logger.Error(ctx, "Failed to clear token after provider session loss", err)
	}
}

// begin starts a new flow and returns its generation.
func (b *Bridge) begin() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generation++
	b.snap = Snapshot{State: AwaitingProvider, Pending: true}
	return b.generation
}

func (b *Bridge) advance(flow uint64, state State, id *identity.Identity) {
	b.settle(flow, Snapshot{State: state, Pending: true, Identity: id})
}

// settle replaces the snapshot if flow is still the newest one.
func (b *Bridge) settle(flow uint64, snap Snapshot) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if flow != b.generation {
		return false
	}
	b.snap = snap
	return true
}

// fail records err for flow. id is the identity the flow itself obtained, nil
// when the provider step failed.
func (b *Bridge) fail(ctx context.Context, span trace.Span, flow uint64, id *identity.Identity, err error) (Outcome, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	b.cfg.Recorder.LoginFinished(OutcomeFailed)

	if !b.settle(flow, Snapshot{State: Failed, Err: err, Identity: id}) {
		b.logger.Debug(ctx, "Superseded login flow failed", log.Fields{"error": err.Error()})
		return Outcome{}, err
	}

	b.logger.Warn(ctx, "Federated login failed", log.Fields{"error": err.Error()})
	return Outcome{}, err
}

func providerError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %w", ErrProvider, ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrProvider, err)
}

// backendError maps an api client failure onto the bridge taxonomy.
func backendError(err error) error {
	switch {
	case errors.Is(err, api.ErrTimeout):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, api.ErrTransport):
		return fmt.Errorf("%w: %w", ErrTransport, err)
	default:
		return fmt.Errorf("%w: %w", ErrProvisioning, err)
	}
}
