package vault

import "errors"

var (
	// ErrStorage is returned when the persistent slot cannot be read or written.
	ErrStorage = errors.New("vault storage error")
	// ErrDecryption is returned when the stored record cannot be opened under
	// the configured key. Callers treat it as "no session" for authorization.
	ErrDecryption = errors.New("vault decryption error")
	ErrEmptyToken = errors.New("token is empty")
	ErrEmptyKey   = errors.New("encryption key is empty")
)
