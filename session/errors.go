package session

import "errors"

var (
	// ErrProvider is returned when the identity provider flow is cancelled or
	// fails. No backend call has been made.
	ErrProvider = errors.New("identity provider error")
	// ErrProvisioning is a backend rejection other than the configured
	// fallback statuses. It wraps the *api.Error.
	ErrProvisioning = errors.New("provisioning rejected")
	ErrTransport    = errors.New("backend unreachable")
	ErrTimeout      = errors.New("backend call timed out")
	ErrStorage      = errors.New("token could not be stored")
	// ErrProviderSessionLost is recorded when the provider reports that its
	// session ended without a local logout.
	ErrProviderSessionLost = errors.New("identity provider session lost")
	// ErrSuperseded is returned by a flow that obtained a token after a newer
	// flow, a logout or a session invalidation took over. The token is dropped.
	ErrSuperseded = errors.New("login superseded")

	ErrMissingSecret = errors.New("provisioning secret is required")
)
