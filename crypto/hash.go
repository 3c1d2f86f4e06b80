package crypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// HashAlgorithm selects a digest function. The set is closed; every dispatch
// site matches it exhaustively and rejects unknown values.
type HashAlgorithm uint8

const (
	SHA256 HashAlgorithm = iota
	SHA512
	Keccak256
	Keccak512
)

// String returns the algorithm's canonical name.
func (a HashAlgorithm) String() string {
	switch a {
	case SHA256:
		return "sha256"
	case SHA512:
		return "sha512"
	case Keccak256:
		return "keccak256"
	case Keccak512:
		return "keccak512"
	default:
		return "unknown"
	}
}

// Size returns the digest length in bytes, or 0 for unknown algorithms.
func (a HashAlgorithm) Size() int {
	switch a {
	case SHA256, Keccak256:
		return 32
	case SHA512, Keccak512:
		return 64
	default:
		return 0
	}
}

// HashManager computes digests. It is stateless and safe for concurrent use.
type HashManager struct{}

// NewHashManager creates a HashManager.
func NewHashManager() *HashManager {
	return &HashManager{}
}

// Hash computes the digest of data under the given algorithm. Output length
// is fixed per algorithm regardless of input length, including empty input.
func (h *HashManager) Hash(data []byte, algorithm HashAlgorithm) ([]byte, error) {
	switch algorithm {
	case SHA256:
		sum := sha256.Sum256(data)
		return sum[:], nil
	case SHA512:
		sum := sha512.Sum512(data)
		return sum[:], nil
	case Keccak256:
		d := sha3.NewLegacyKeccak256()
		d.Write(data)
		return d.Sum(nil), nil
	case Keccak512:
		d := sha3.NewLegacyKeccak512()
		d.Write(data)
		return d.Sum(nil), nil
	default:
		return nil, newError(KindCrypto, "Hash", fmt.Errorf("unsupported hash algorithm: %s", algorithm))
	}
}

// HashHex computes the digest and returns it hex-encoded.
func (h *HashManager) HashHex(data []byte, algorithm HashAlgorithm) (string, error) {
	sum, err := h.Hash(data, algorithm)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}

// SHA256 computes the SHA-256 digest of data.
func (h *HashManager) SHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// SHA512 computes the SHA-512 digest of data.
func (h *HashManager) SHA512(data []byte) []byte {
	sum := sha512.Sum512(data)
	return sum[:]
}

// Keccak256 computes the legacy Keccak-256 digest of data. This is the
// Ethereum digest function, not the finalized SHA-3.
func (h *HashManager) Keccak256(data []byte) []byte {
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	return d.Sum(nil)
}

// Keccak512 computes the legacy Keccak-512 digest of data.
func (h *HashManager) Keccak512(data []byte) []byte {
	d := sha3.NewLegacyKeccak512()
	d.Write(data)
	return d.Sum(nil)
}

// DoubleSHA256 computes SHA-256 applied twice, the Bitcoin-style checksum
// construction.
func (h *HashManager) DoubleSHA256(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

// TransactionHash returns the canonical 0x-prefixed Keccak-256 digest used
// as the signing input for transactions.
func (h *HashManager) TransactionHash(data []byte) string {
	return "0x" + hex.EncodeToString(h.Keccak256(data))
}

// MessageHash returns the canonical 0x-prefixed Keccak-256 digest used as
// the signing input for messages.
func (h *HashManager) MessageHash(data []byte) string {
	return "0x" + hex.EncodeToString(h.Keccak256(data))
}
