package api

import (
	"context"
	"net/http"

	"go.pilab.hu/storefront/log"
)

// AuthorizationHeader is the header every authenticated request carries.
const AuthorizationHeader = "authorization"

// TokenSource yields the current access token. found is false when no session
// exists. The credential vault implements it.
type TokenSource interface {
	Retrieve(ctx context.Context) (token string, found bool, err error)
}

// Authorizer is an http.RoundTripper that asks its TokenSource for the token on
// every request and sets the authorization header when one exists.
type Authorizer struct {
	base   http.RoundTripper
	tokens TokenSource
	scheme string
	logger log.Logger
}

// NewAuthorizer wraps base (http.DefaultTransport when nil). With an empty
// scheme the header value is the raw token, without a "Bearer " prefix.
func NewAuthorizer(base http.RoundTripper, tokens TokenSource, scheme string, logger log.Logger) *Authorizer {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Authorizer{base: base, tokens: tokens, scheme: scheme, logger: logger}
}

// RoundTrip implements http.RoundTripper.
func (a *Authorizer) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	token, found, err := a.tokens.Retrieve(ctx)
	if err != nil {
		// An unreadable or undecryptable record means no valid session; the
		// request goes out unauthenticated and the backend decides.
		a.logger.Warn(ctx, "Access token unavailable, sending request unauthenticated", log.Fields{
			"error": err.Error(),
			"path":  req.URL.Path,
		})
		return a.base.RoundTrip(req)
	}
	if !found {
		return a.base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	authed := req.Clone(ctx)
	value := token
	if a.scheme != "" {
		value = a.scheme + " " + token
	}
	authed.Header.Set(AuthorizationHeader, value)
	return a.base.RoundTrip(authed)
}

var _ http.RoundTripper = (*Authorizer)(nil)
