package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStorage(t *testing.T) *EncryptedFileStorage {
	t.Helper()
	store, err := NewEncryptedFileStorage(t.TempDir(), []byte("test passphrase"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEncryptedFileStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStorage(t)

	require.NoError(t, store.Store(ctx, "wallet-main", []byte("key material")))

	got, err := store.Retrieve(ctx, "wallet-main")
	require.NoError(t, err)
	assert.Equal(t, []byte("key material"), got)

	exists, err := store.Exists(ctx, "wallet-main")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestEncryptedFileStorageEncryptsAtRest(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewEncryptedFileStorage(dir, []byte("passphrase"))
	require.NoError(t, err)
	defer store.Close()

	plaintext := []byte("super secret key bytes")
	require.NoError(t, store.Store(ctx, "k", plaintext))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == ".salt" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		require.NoError(t, err)
		assert.NotContains(t, string(raw), string(plaintext),
			"plaintext must never appear on disk")
	}
}

func TestEncryptedFileStoragePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewEncryptedFileStorage(dir, []byte("passphrase"))
	require.NoError(t, err)
	require.NoError(t, store.Store(ctx, "persistent", []byte("survives")))
	require.NoError(t, store.Close())

	reopened, err := NewEncryptedFileStorage(dir, []byte("passphrase"))
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Retrieve(ctx, "persistent")
	require.NoError(t, err)
	assert.Equal(t, []byte("survives"), got)
}

func TestEncryptedFileStorageWrongPassphrase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewEncryptedFileStorage(dir, []byte("right"))
	require.NoError(t, err)
	require.NoError(t, store.Store(ctx, "k", []byte("value")))
	require.NoError(t, store.Close())

	wrong, err := NewEncryptedFileStorage(dir, []byte("wrong"))
	require.NoError(t, err)
	defer wrong.Close()

	_, err = wrong.Retrieve(ctx, "k")
	require.Error(t, err, "wrong passphrase must fail closed")
}

func TestEncryptedFileStorageMissingKey(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStorage(t)

	_, err := store.Retrieve(ctx, "missing")
	assert.True(t, errors.Is(err, ErrKeyNotFound))

	err = store.Delete(ctx, "missing")
	assert.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestEncryptedFileStorageDeleteAndList(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStorage(t)

	require.NoError(t, store.Store(ctx, "first", []byte("1")))
	require.NoError(t, store.Store(ctx, "second/with/slashes", []byte("2")))

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"first", "second/with/slashes"}, keys)

	require.NoError(t, store.Delete(ctx, "first"))

	exists, err := store.Exists(ctx, "first")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestEncryptedFileStorageEmptyPassphrase(t *testing.T) {
	_, err := NewEncryptedFileStorage(t.TempDir(), nil)
	require.Error(t, err)
}

func TestEncryptedFileStorageClosed(t *testing.T) {
	ctx := context.Background()
	store, err := NewEncryptedFileStorage(t.TempDir(), []byte("passphrase"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.True(t, errors.Is(store.Store(ctx, "k", []byte("v")), ErrStoreClosed))
	_, err = store.Retrieve(ctx, "k")
	assert.True(t, errors.Is(err, ErrStoreClosed))
}

func TestEncryptedFileStorageConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStorage(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = store.Store(ctx, "contested", []byte{byte(n)})
				_, _ = store.Retrieve(ctx, "contested")
			}
		}(i)
	}
	wg.Wait()

	got, err := store.Retrieve(ctx, "contested")
	require.NoError(t, err)
	assert.Len(t, got, 1, "no torn writes under contention")
}
