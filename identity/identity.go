// Package identity is the boundary to the third-party identity provider used
// for federated login: an interactive consent flow, an ambient session stream
// and sign-out.
package identity

import "context"

// Identity is the user as reported by the provider. Email is always set for a
// successful login; the other fields are best effort.
type Identity struct {
	ProviderUserID string
	Email          string
	Username       string
	Name           string
	PhoneNumber    string
	PhotoURL       string
}

// EventKind tags a session event.
type EventKind int

const (
	Absent EventKind = iota
	Present
)

func (k EventKind) String() string {
	if k == Present {
		return "present"
	}
	return "absent"
}

// Event reports the provider's current session. Identity is nil when Kind is
// Absent.
type Event struct {
	Kind     EventKind
	Identity *Identity
}

// Provider is an identity provider.
type Provider interface {
	// Login runs the interactive consent flow and blocks until the user
	// completes it, cancels it or ctx is done.
	Login(ctx context.Context) (*Identity, error)

	// SignOut ends the provider session.
	SignOut(ctx context.Context) error

	// Subscribe registers fn for session events. fn receives the current
	// state immediately. The returned func releases the subscription and is
	// safe to call more than once.
	Subscribe(fn func(Event)) (unsubscribe func())
}
