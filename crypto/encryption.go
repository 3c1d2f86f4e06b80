package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/chacha20poly1305"
)

// EncryptionAlgorithm selects an AEAD cipher. Both supported ciphers take a
// 32-byte key, a 12-byte nonce, and produce a 16-byte authentication tag.
type EncryptionAlgorithm uint8

const (
	AES256GCM EncryptionAlgorithm = iota
	ChaCha20Poly1305
)

// String returns the algorithm's canonical name.
func (a EncryptionAlgorithm) String() string {
	switch a {
	case AES256GCM:
		return "aes-256-gcm"
	case ChaCha20Poly1305:
		return "chacha20-poly1305"
	default:
		return "unknown"
	}
}

const (
	// SymmetricKeySize is the key length both AEAD ciphers require.
	SymmetricKeySize = 32
	// NonceSize is the AEAD nonce length.
	NonceSize = 12
	// TagSize is the AEAD authentication tag length.
	TagSize = 16
)

// EncryptedData is the wire shape of an authenticated ciphertext. The fields
// are carried separately, not as one concatenated blob, so a receiver can
// validate lengths before attempting AEAD open. In memory the AEAD output is
// arranged as ciphertext || tag and split at the tag boundary.
type EncryptedData struct {
	Algorithm  EncryptionAlgorithm `json:"algorithm"`
	Ciphertext []byte              `json:"ciphertext"`
	Nonce      []byte              `json:"nonce"`
	Tag        []byte              `json:"tag"`
}

// EncryptionManager performs authenticated symmetric encryption for wallet
// backups and local blob protection. It is stateless and safe for concurrent
// use.
type EncryptionManager struct{}

// NewEncryptionManager creates an EncryptionManager.
func NewEncryptionManager() *EncryptionManager {
	return &EncryptionManager{}
}

// aead constructs the AEAD for the given algorithm and 32-byte key.
func (m *EncryptionManager) aead(key []byte, algorithm EncryptionAlgorithm) (cipher.AEAD, error) {
	if len(key) != SymmetricKeySize {
		return nil, newError(KindCrypto, "aead",
			fmt.Errorf("%w: got %d, want %d", ErrInvalidKeyLength, len(key), SymmetricKeySize))
	}

	switch algorithm {
	case AES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, newError(KindCrypto, "aead", err)
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, newError(KindCrypto, "aead", err)
		}
		return gcm, nil
	case ChaCha20Poly1305:
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, newError(KindCrypto, "aead", err)
		}
		return aead, nil
	default:
		return nil, newError(KindCrypto, "aead",
			fmt.Errorf("unsupported encryption algorithm: %s", algorithm))
	}
}

// Encrypt seals data under key with a fresh random nonce. The nonce comes
// from the CSPRNG on every call, never from a counter; nonce reuse under the
// same key is the critical failure mode of both ciphers.
func (m *EncryptionManager) Encrypt(data, key []byte, algorithm EncryptionAlgorithm) (*EncryptedData, error) {
	aead, err := m.aead(key, algorithm)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, newError(KindCrypto, "Encrypt", fmt.Errorf("failed to generate nonce: %w", err))
	}

	// Seal output is ciphertext || tag; split at the tag boundary so the
	// two travel as independent fields.
	sealed := aead.Seal(nil, nonce, data, nil)
	boundary := len(sealed) - TagSize

	logrus.WithFields(logrus.Fields{
		"function":  "Encrypt",
		"algorithm": algorithm.String(),
		"size":      len(data),
	}).Debug("Encrypted payload")

	return &EncryptedData{
		Algorithm:  algorithm,
		Ciphertext: sealed[:boundary],
		Nonce:      nonce,
		Tag:        sealed[boundary:],
	}, nil
}

// Decrypt opens encrypted under key. Any verification failure (wrong key,
// corrupted ciphertext, tampered tag or nonce) fails closed: no partial
// plaintext is ever returned.
func (m *EncryptionManager) Decrypt(encrypted *EncryptedData, key []byte) ([]byte, error) {
	if encrypted == nil {
		return nil, newError(KindValidation, "Decrypt", fmt.Errorf("encrypted data is nil"))
	}
	if len(encrypted.Nonce) != NonceSize {
		return nil, newError(KindCrypto, "Decrypt",
			fmt.Errorf("invalid nonce length: got %d, want %d", len(encrypted.Nonce), NonceSize))
	}
	if len(encrypted.Tag) != TagSize {
		return nil, newError(KindCrypto, "Decrypt",
			fmt.Errorf("invalid tag length: got %d, want %d", len(encrypted.Tag), TagSize))
	}

	aead, err := m.aead(key, encrypted.Algorithm)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(encrypted.Ciphertext)+len(encrypted.Tag))
	sealed = append(sealed, encrypted.Ciphertext...)
	sealed = append(sealed, encrypted.Tag...)

	plaintext, err := aead.Open(nil, encrypted.Nonce, sealed, nil)
	if err != nil {
		return nil, newError(KindCrypto, "Decrypt", ErrDecryptionFailed)
	}
	return plaintext, nil
}
