package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

// DefaultBucketName is the bbolt bucket holding vault records.
const DefaultBucketName = "vault"

// BoltStore is a file-backed Store on top of bbolt.
type BoltStore struct {
	mu     sync.RWMutex
	db     *bbolt.DB
	bucket []byte
}

// BoltOptions tunes NewBoltStore.
type BoltOptions struct {
	Bucket      string        // defaults to DefaultBucketName
	OpenTimeout time.Duration // waiting for the file lock; defaults to 5s
}

// NewBoltStore opens (or creates) the database file at path. The parent
// directory is created with owner-only permissions.
func NewBoltStore(path string, opts BoltOptions) (*BoltStore, error) {
	if opts.Bucket == "" {
		opts.Bucket = DefaultBucketName
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 5 * time.Second
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: create database directory %s: %v", ErrUnavailable, dir, err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: opts.OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("%w: open bbolt db at %s: %v", ErrUnavailable, path, err)
	}

	bucket := []byte(opts.Bucket)
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create bucket %s: %v", ErrUnavailable, opts.Bucket, err)
	}

	return &BoltStore{db: db, bucket: bucket}, nil
}

func (s *BoltStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return "", false, ErrClosed
	}

	var (
		value string
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		// Bytes are only valid inside the transaction; string() copies.
		if raw := b.Get([]byte(key)); raw != nil {
			value = string(raw)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("%w: read key %s: %v", ErrUnavailable, key, err)
	}
	return value, found, nil
}

func (s *BoltStore) Set(_ context.Context, key, value string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return errors.New("bucket missing")
		}
		return b.Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("%w: write key %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

func (s *BoltStore) Remove(_ context.Context, key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("%w: delete key %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// Close releases the file lock. Further calls fail with ErrClosed.
func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

var _ Store = (*BoltStore)(nil)
