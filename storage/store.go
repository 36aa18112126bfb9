// Package storage provides the persistent key-value slot backends the
// credential vault writes its encrypted record into.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable wraps every failure of the underlying backend (disk full,
	// permission denied, connection refused).
	ErrUnavailable = errors.New("storage unavailable")
	ErrClosed      = errors.New("storage closed")
)

// Store is a string key/value store holding opaque values.
type Store interface {
	// Get returns the value under key. A missing key is reported with found
	// false and a nil error.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	Close() error
}
