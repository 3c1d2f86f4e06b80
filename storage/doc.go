// Package storage defines the platform storage capability consumed by the
// wallet cryptographic core.
//
// The core never writes key material to disk itself; it delegates durable
// byte storage to a PlatformStorage implementation supplied by the host
// environment (file, OS keychain, or an in-memory double for tests). This
// package provides the capability interface plus two implementations:
// MemoryStorage for tests and ephemeral use, and EncryptedFileStorage for
// directory-backed storage with encryption at rest.
//
// Example:
//
//	store := storage.NewMemoryStorage()
//	if err := store.Store(ctx, "wallet-main", keyBytes); err != nil {
//	    log.Fatal(err)
//	}
package storage
