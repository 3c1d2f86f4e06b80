package walletcore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/walletcore/crypto"
	"github.com/opd-ai/walletcore/storage"
)

// CryptoManager owns one instance of each manager in the crypto subpackage
// and hands out shared handles to them. It performs no cryptography itself;
// it is the capability-composition seam between the embedding application
// and the core.
type CryptoManager struct {
	options *Options

	keys       *crypto.KeyManager
	signatures *crypto.SignatureManager
	encryption *crypto.EncryptionManager
	hashes     *crypto.HashManager
	passwords  *crypto.PasswordHasher

	mu          sync.Mutex
	initialized bool
}

// New creates a CryptoManager from options. A nil options value means
// DefaultOptions. The instance is not usable until Init succeeds.
func New(options *Options) (*CryptoManager, error) {
	if options == nil {
		options = DefaultOptions()
	}
	if options.Storage == nil {
		options.Storage = storage.NewMemoryStorage()
	}

	passwords, err := crypto.NewPasswordHasher(options.Password)
	if err != nil {
		return nil, fmt.Errorf("invalid password config: %w", err)
	}

	keys := crypto.NewKeyManager(options.Storage)

	return &CryptoManager{
		options:    options,
		keys:       keys,
		signatures: crypto.NewSignatureManager(keys),
		encryption: crypto.NewEncryptionManager(),
		hashes:     crypto.NewHashManager(),
		passwords:  passwords,
	}, nil
}

// Init readies the core for use. It probes the storage capability so a
// misconfigured backend surfaces here rather than on the first key
// operation. Init fails if any sub-manager cannot initialize.
func (m *CryptoManager) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return nil
	}

	if _, err := m.options.Storage.ListKeys(ctx); err != nil {
		return fmt.Errorf("storage capability probe failed: %w", err)
	}

	m.initialized = true

	logrus.WithFields(logrus.Fields{
		"function": "Init",
	}).Info("Crypto manager initialized")

	return nil
}

// Cleanup releases resources held by the sub-managers. It runs best-effort
// for every sub-manager even if one fails, and returns the aggregated
// errors. The instance must not be used after Cleanup.
func (m *CryptoManager) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if closer, ok := m.options.Storage.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage close failed: %w", err))
		}
	}
	m.initialized = false

	logrus.WithFields(logrus.Fields{
		"function": "Cleanup",
		"errors":   len(errs),
	}).Info("Crypto manager cleaned up")

	return errors.Join(errs...)
}

// Keys returns the key lifecycle manager.
func (m *CryptoManager) Keys() *crypto.KeyManager {
	return m.keys
}

// Signatures returns the signing and verification manager.
func (m *CryptoManager) Signatures() *crypto.SignatureManager {
	return m.signatures
}

// Encryption returns the authenticated encryption manager.
func (m *CryptoManager) Encryption() *crypto.EncryptionManager {
	return m.encryption
}

// Hashes returns the digest manager.
func (m *CryptoManager) Hashes() *crypto.HashManager {
	return m.hashes
}

// Passwords returns the password hasher.
func (m *CryptoManager) Passwords() *crypto.PasswordHasher {
	return m.passwords
}
