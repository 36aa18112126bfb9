// Package vault keeps the backend access token encrypted at rest and hands the
// plaintext back to request-building code on demand.
package vault

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.pilab.hu/storefront/log"
	"go.pilab.hu/storefront/storage"
)

// DefaultSlotKey names the single slot holding the encrypted record.
const DefaultSlotKey = "storefront.access_token"

const tracerName = "go.pilab.hu/storefront/vault"

// Vault is the only writer of the token slot. It holds no token state of its
// own; the storage backend is the state.
type Vault struct {
	// mu serializes Store and Clear; overlapping writers resolve last-writer-wins.
	mu     sync.Mutex
	store  storage.Store
	sealer *Sealer
	slot   string
	logger log.Logger
	tracer trace.Tracer
}

// Option configures a Vault.
type Option func(*Vault)

// WithSlotKey overrides DefaultSlotKey.
func WithSlotKey(key string) Option {
	return func(v *Vault) {
		if key != "" {
			v.slot = key
		}
	}
}

func WithLogger(logger log.Logger) Option {
	return func(v *Vault) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New creates a Vault writing into store.
func New(store storage.Store, sealer *Sealer, opts ...Option) *Vault {
	v := &Vault{
		store:  store,
		sealer: sealer,
		slot:   DefaultSlotKey,
		logger: log.Nop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With(log.Fields{"component": "vault", "slot": v.slot})
	return v
}

// SlotKey returns the storage key the record is written under.
func (v *Vault) SlotKey() string { return v.slot }

// Store encrypts token and overwrites the slot.
func (v *Vault) Store(ctx context.Context, token string) error {
	ctx, span := v.tracer.Start(ctx, "vault.Store")
	defer span.End()

	if token == "" {
		return ErrEmptyToken
	}

	record, err := v.sealer.Seal(token, []byte(v.slot))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("seal token: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.store.Set(ctx, v.slot, record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage write failed")
		v.logger.Error(ctx, "Failed to persist access token", err)
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	v.logger.Debug(ctx, "Access token stored")
	return nil
}

// Retrieve returns the plaintext token. An empty slot reports found false with
// a nil error. A record that does not open under the configured key returns
// ErrDecryption.
func (v *Vault) Retrieve(ctx context.Context) (string, bool, error) {
	ctx, span := v.tracer.Start(ctx, "vault.Retrieve")
	defer span.End()

	record, found, err := v.store.Get(ctx, v.slot)
	if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	span.SetAttributes(attribute.Bool("vault.found", found))
	if !found || record == "" {
		return "", false, nil
	}

	token, err := v.sealer.Open(record, []byte(v.slot))
	if err != nil {
		span.RecordError(err)
		v.logger.Warn(ctx, "Stored access token could not be decrypted", log.Fields{"error": err.Error()})
		return "", false, err
	}
	return token, true, nil
}

// Clear removes the record.
func (v *Vault) Clear(ctx context.Context) error {
	ctx, span := v.tracer.Start(ctx, "vault.Clear")
	defer span.End()

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.store.Remove(ctx, v.slot); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	v.logger.Debug(ctx, "Access token cleared")
	return nil
}
