package storage

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// MemoryStorage is an in-memory PlatformStorage implementation. It is the
// reference implementation for the capability contract and the storage double
// used throughout the test suite. Values are copied on the way in and out so
// callers can zeroize their own buffers without affecting stored state, and
// stored buffers are overwritten before removal.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		values: make(map[string][]byte),
	}
}

// Store persists a copy of data under keyID.
func (m *MemoryStorage) Store(ctx context.Context, keyID string, data []byte) error {
	if keyID == "" {
		return ErrEmptyKeyID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	if old, ok := m.values[keyID]; ok {
		wipe(old)
	}
	m.values[keyID] = buf
	m.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Store",
		"key_id":   keyID,
		"size":     len(data),
	}).Debug("Stored value in memory storage")

	return nil
}

// Retrieve returns a copy of the value stored under keyID.
func (m *MemoryStorage) Retrieve(ctx context.Context, keyID string) ([]byte, error) {
	if keyID == "" {
		return nil, ErrEmptyKeyID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	stored, ok := m.values[keyID]
	if !ok {
		m.mu.RUnlock()
		return nil, ErrKeyNotFound
	}
	buf := make([]byte, len(stored))
	copy(buf, stored)
	m.mu.RUnlock()

	return buf, nil
}

// Delete overwrites and removes the value stored under keyID.
func (m *MemoryStorage) Delete(ctx context.Context, keyID string) error {
	if keyID == "" {
		return ErrEmptyKeyID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	stored, ok := m.values[keyID]
	if !ok {
		m.mu.Unlock()
		return ErrKeyNotFound
	}
	wipe(stored)
	delete(m.values, keyID)
	m.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Delete",
		"key_id":   keyID,
	}).Debug("Deleted value from memory storage")

	return nil
}

// Exists reports whether a value is stored under keyID.
func (m *MemoryStorage) Exists(ctx context.Context, keyID string) (bool, error) {
	if keyID == "" {
		return false, ErrEmptyKeyID
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	_, ok := m.values[keyID]
	m.mu.RUnlock()
	return ok, nil
}

// ListKeys returns the ids of all stored values.
func (m *MemoryStorage) ListKeys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	return keys, nil
}

// wipe overwrites a buffer with zeros before it is released.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
