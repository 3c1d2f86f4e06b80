package crypto

import (
	"context"
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"github.com/tyler-smith/go-bip39"

	"github.com/opd-ai/walletcore/storage"
)

// DefaultDerivationPath is the BIP-44 path used when the caller does not
// supply one: Ethereum coin type, first external address.
const DefaultDerivationPath = "m/44'/60'/0'/0/0"

// privateKeySize is the secp256k1 scalar length.
const privateKeySize = 32

// KeyManager generates, derives, and brokers access to secp256k1 private
// keys. Key material reaches disk only through the injected PlatformStorage;
// the manager itself holds no secret state between calls, so one instance is
// safely shared across goroutines.
type KeyManager struct {
	store storage.PlatformStorage
}

// NewKeyManager creates a KeyManager over the given storage capability.
func NewKeyManager(store storage.PlatformStorage) *KeyManager {
	return &KeyManager{store: store}
}

// Generate draws a fresh random secp256k1 private key, persists it under
// keyID, and returns an opaque handle. The local copy of the scalar is
// zeroized before returning.
func (m *KeyManager) Generate(ctx context.Context, keyID string) (*SecurePrivateKey, error) {
	buf := make([]byte, privateKeySize)
	defer ZeroBytes(buf)

	// Rejection-sample until the bytes form a valid scalar. Values at or
	// above the group order (or zero) are astronomically rare but must not
	// be persisted.
	for {
		if _, err := rand.Read(buf); err != nil {
			return nil, newError(KindCrypto, "Generate", fmt.Errorf("failed to read random bytes: %w", err))
		}
		if validScalar(buf) {
			break
		}
	}

	if err := m.store.Store(ctx, keyID, buf); err != nil {
		return nil, newError(KindStorage, "Generate", fmt.Errorf("failed to persist key: %w", err))
	}

	logrus.WithFields(logrus.Fields{
		"function": "Generate",
		"key_id":   keyID,
	}).Info("Generated new private key")

	return &SecurePrivateKey{keyID: keyID}, nil
}

// DeriveFromSeed validates the mnemonic, derives a BIP-32 extended key along
// path (DefaultDerivationPath if empty), persists the resulting scalar under
// keyID, and returns a handle. A mnemonic failing its checksum is a
// validation error; derivation failures are crypto errors.
func (m *KeyManager) DeriveFromSeed(ctx context.Context, phrase *SecureSeedPhrase, keyID, path string) (*SecurePrivateKey, error) {
	if phrase == nil {
		return nil, newError(KindValidation, "DeriveFromSeed", fmt.Errorf("seed phrase is nil"))
	}
	if path == "" {
		path = DefaultDerivationPath
	}

	indices, err := parseDerivationPath(path)
	if err != nil {
		return nil, err
	}

	err = phrase.WithPhrase(func(mnemonic []byte) error {
		sentence := string(mnemonic)
		if !bip39.IsMnemonicValid(sentence) {
			return newError(KindValidation, "DeriveFromSeed", ErrInvalidMnemonic)
		}

		seed := bip39.NewSeed(sentence, "")
		defer ZeroBytes(seed)

		master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
		if err != nil {
			return newError(KindCrypto, "DeriveFromSeed", fmt.Errorf("failed to build master key: %w", err))
		}
		defer master.Zero()

		key := master
		for _, index := range indices {
			child, err := key.Derive(index)
			if key != master {
				key.Zero()
			}
			if err != nil {
				return newError(KindCrypto, "DeriveFromSeed", fmt.Errorf("derivation failed: %w", err))
			}
			key = child
		}
		defer key.Zero()

		priv, err := key.ECPrivKey()
		if err != nil {
			return newError(KindCrypto, "DeriveFromSeed", fmt.Errorf("failed to extract private key: %w", err))
		}
		scalar := priv.Serialize()
		defer ZeroBytes(scalar)
		priv.Zero()

		if err := m.store.Store(ctx, keyID, scalar); err != nil {
			return newError(KindStorage, "DeriveFromSeed", fmt.Errorf("failed to persist key: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "DeriveFromSeed",
		"key_id":   keyID,
		"path":     path,
	}).Info("Derived private key from seed")

	return &SecurePrivateKey{keyID: keyID}, nil
}

// WithKey loads the key bytes for keyID into a transient buffer, validates
// the length, invokes fn, and zeroizes the buffer before returning. This is
// the only sanctioned way to read key material. A missing key id is a
// storage error, never an empty buffer.
func (m *KeyManager) WithKey(ctx context.Context, keyID string, fn func(key []byte) error) error {
	buf, err := m.store.Retrieve(ctx, keyID)
	if err != nil {
		return newError(KindStorage, "WithKey", fmt.Errorf("failed to load key %q: %w", keyID, err))
	}
	defer ZeroBytes(buf)

	if len(buf) != privateKeySize {
		return newError(KindCrypto, "WithKey",
			fmt.Errorf("%w: stored key is %d bytes, want %d", ErrInvalidKeyLength, len(buf), privateKeySize))
	}
	return fn(buf)
}

// Open returns a handle for an already-stored key, or a storage error if no
// key exists under keyID.
func (m *KeyManager) Open(ctx context.Context, keyID string) (*SecurePrivateKey, error) {
	ok, err := m.store.Exists(ctx, keyID)
	if err != nil {
		return nil, newError(KindStorage, "Open", err)
	}
	if !ok {
		return nil, newError(KindStorage, "Open",
			fmt.Errorf("key %q: %w", keyID, storage.ErrKeyNotFound))
	}
	return &SecurePrivateKey{keyID: keyID}, nil
}

// PublicKeyFor computes the uncompressed 65-byte secp256k1 public key for
// the stored private key. The private scalar never leaves the scoped access.
func (m *KeyManager) PublicKeyFor(ctx context.Context, keyID string) ([]byte, error) {
	var pub []byte
	err := m.WithKey(ctx, keyID, func(key []byte) error {
		priv := secp256k1.PrivKeyFromBytes(key)
		defer priv.Zero()
		pub = priv.PubKey().SerializeUncompressed()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pub, nil
}

// AddressFor derives the EIP-55 checksummed Ethereum address for a secp256k1
// public key in compressed or uncompressed form.
func (m *KeyManager) AddressFor(publicKey []byte) (string, error) {
	pub, err := secp256k1.ParsePubKey(publicKey)
	if err != nil {
		return "", newError(KindValidation, "AddressFor", fmt.Errorf("invalid public key: %w", err))
	}
	return ethcrypto.PubkeyToAddress(*pub.ToECDSA()).Hex(), nil
}

// Delete removes the stored key for keyID.
func (m *KeyManager) Delete(ctx context.Context, keyID string) error {
	if err := m.store.Delete(ctx, keyID); err != nil {
		return newError(KindStorage, "Delete", err)
	}
	logrus.WithFields(logrus.Fields{
		"function": "Delete",
		"key_id":   keyID,
	}).Info("Deleted private key")
	return nil
}

// Exists reports whether a key is stored under keyID.
func (m *KeyManager) Exists(ctx context.Context, keyID string) (bool, error) {
	ok, err := m.store.Exists(ctx, keyID)
	if err != nil {
		return false, newError(KindStorage, "Exists", err)
	}
	return ok, nil
}

// validScalar reports whether b is a canonical nonzero secp256k1 scalar.
func validScalar(b []byte) bool {
	if len(b) != privateKeySize {
		return false
	}
	var s secp256k1.ModNScalar
	overflow := s.SetByteSlice(b)
	valid := !overflow && !s.IsZero()
	s.Zero()
	return valid
}

// parseDerivationPath converts a BIP-32 path such as m/44'/60'/0'/0/0 into
// child indices with the hardened offset applied.
func parseDerivationPath(path string) ([]uint32, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(path, "m/"), "M/")
	if trimmed == "" {
		return nil, newError(KindValidation, "parseDerivationPath",
			fmt.Errorf("invalid derivation path %q", path))
	}

	parts := strings.Split(trimmed, "/")
	indices := make([]uint32, 0, len(parts))
	for _, part := range parts {
		hardened := strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h") || strings.HasSuffix(part, "H")
		if hardened {
			part = part[:len(part)-1]
		}
		value, err := strconv.ParseUint(part, 10, 32)
		if err != nil || value >= hdkeychain.HardenedKeyStart {
			return nil, newError(KindValidation, "parseDerivationPath",
				fmt.Errorf("invalid derivation path component %q", part))
		}
		index := uint32(value)
		if hardened {
			index += hdkeychain.HardenedKeyStart
		}
		indices = append(indices, index)
	}
	return indices, nil
}
