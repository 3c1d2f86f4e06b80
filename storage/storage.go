package storage

import (
	"context"
	"errors"
)

// Sentinel errors for storage operations.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrKeyNotFound indicates no value is stored under the requested key id.
	ErrKeyNotFound = errors.New("storage key not found")

	// ErrEmptyKeyID indicates an empty key id was supplied.
	ErrEmptyKeyID = errors.New("storage key id is empty")

	// ErrStoreClosed indicates the store has been closed and can no longer
	// serve requests.
	ErrStoreClosed = errors.New("storage is closed")
)

// PlatformStorage is the durable key-value byte storage capability the
// cryptographic core depends on. Implementations must guarantee that a value
// is retrievable immediately after Store returns for the same key id, and
// must provide their own concurrency control: concurrent Store/Delete on the
// same key id from different callers must not corrupt state or leave a key
// partially written.
type PlatformStorage interface {
	// Store persists data under keyID, replacing any previous value.
	Store(ctx context.Context, keyID string, data []byte) error

	// Retrieve returns a copy of the value stored under keyID, or
	// ErrKeyNotFound if none exists.
	Retrieve(ctx context.Context, keyID string) ([]byte, error)

	// Delete removes the value stored under keyID. Deleting a missing key
	// returns ErrKeyNotFound.
	Delete(ctx context.Context, keyID string) error

	// Exists reports whether a value is stored under keyID.
	Exists(ctx context.Context, keyID string) (bool, error)

	// ListKeys returns the ids of all stored values.
	ListKeys(ctx context.Context) ([]string, error)
}
