package identity

import "errors"

var (
	// ErrCancelled is returned when the user declines consent or the login
	// context ends before the provider answers.
	ErrCancelled             = errors.New("provider login cancelled")
	ErrLoginFailed           = errors.New("provider login failed")
	ErrInvalidAuthState      = errors.New("invalid auth state parameter")
	ErrNoVerifiedEmail       = errors.New("provider account has no verified email")
	ErrProviderMisconfigured = errors.New("provider is misconfigured")
)
