package crypto

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so callers can decide between retrying,
// regenerating, and aborting without string-matching error text.
type ErrorKind uint8

const (
	// KindCrypto indicates a cipher, signature, or hash operation failed, or
	// a key had an invalid length or format.
	KindCrypto ErrorKind = iota
	// KindValidation indicates malformed input: an empty password, an invalid
	// mnemonic, a bad address or length.
	KindValidation
	// KindStorage indicates a PlatformStorage I/O failure, including a
	// missing key id.
	KindStorage
	// KindAuthentication indicates a password or signature verification
	// returned false where the caller required success.
	KindAuthentication
	// KindSerialization indicates encoding or decoding of a structured
	// record failed.
	KindSerialization
)

// String returns the kind's name for logging.
func (k ErrorKind) String() string {
	switch k {
	case KindCrypto:
		return "crypto"
	case KindValidation:
		return "validation"
	case KindStorage:
		return "storage"
	case KindAuthentication:
		return "authentication"
	case KindSerialization:
		return "serialization"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by all fallible operations in this
// package. It carries the failing operation and a kind for classification;
// the wrapped cause remains reachable through errors.Is/As.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError wraps err with an operation name and kind.
func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the ErrorKind from err, reporting ok=false when err does
// not carry one.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Sentinel errors for crypto operations.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrInvalidKeyLength indicates a symmetric or private key was not the
	// required 32 bytes.
	ErrInvalidKeyLength = errors.New("invalid key length")

	// ErrEmptyPassword indicates an empty password was supplied where a
	// non-empty one is required.
	ErrEmptyPassword = errors.New("password cannot be empty")

	// ErrInvalidMnemonic indicates a seed phrase failed BIP-39 validation.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")

	// ErrDecryptionFailed indicates AEAD open failed: wrong key, corrupted
	// ciphertext, or tampered tag. No plaintext is ever returned alongside it.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrMalformedHash indicates an encoded password hash string could not
	// be parsed.
	ErrMalformedHash = errors.New("malformed encoded hash")

	// ErrInvalidSignature indicates a signature had an invalid length or
	// could not be decoded.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrSecretDestroyed indicates a secret wrapper was used after Destroy.
	ErrSecretDestroyed = errors.New("secret has been destroyed")
)
