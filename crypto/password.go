package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// PasswordAlgorithm selects the password hashing function.
type PasswordAlgorithm uint8

const (
	Argon2id PasswordAlgorithm = iota
	PBKDF2SHA256
)

// String returns the algorithm's canonical name.
func (a PasswordAlgorithm) String() string {
	switch a {
	case Argon2id:
		return "argon2id"
	case PBKDF2SHA256:
		return "pbkdf2-sha256"
	default:
		return "unknown"
	}
}

// PasswordConfig carries the work factors for password hashing. MemoryKB and
// Parallelism only apply to Argon2id.
type PasswordConfig struct {
	Algorithm   PasswordAlgorithm
	Iterations  uint32
	MemoryKB    uint32
	Parallelism uint8
	SaltLength  int
}

// DefaultPasswordConfig returns Argon2id parameters suitable for interactive
// login on current hardware.
func DefaultPasswordConfig() PasswordConfig {
	return PasswordConfig{
		Algorithm:   Argon2id,
		Iterations:  3,
		MemoryKB:    64 * 1024,
		Parallelism: 4,
		SaltLength:  16,
	}
}

// derivedKeySize is the length of the derived hash for both algorithms.
const derivedKeySize = 32

// phcEncoding is the base64 variant PHC strings use: standard alphabet,
// no padding.
var phcEncoding = base64.RawStdEncoding

// PasswordHasher turns human passwords into verifiable salted hashes encoded
// as self-describing strings. Safe for concurrent use.
type PasswordHasher struct {
	config PasswordConfig
}

// NewPasswordHasher creates a hasher with the given config. Invalid work
// factors are rejected here rather than at first use.
func NewPasswordHasher(config PasswordConfig) (*PasswordHasher, error) {
	if config.SaltLength <= 0 {
		return nil, newError(KindValidation, "NewPasswordHasher",
			fmt.Errorf("salt length must be positive, got %d", config.SaltLength))
	}
	if config.Iterations == 0 {
		return nil, newError(KindValidation, "NewPasswordHasher",
			fmt.Errorf("iterations must be positive"))
	}
	if config.Algorithm == Argon2id && (config.MemoryKB == 0 || config.Parallelism == 0) {
		return nil, newError(KindValidation, "NewPasswordHasher",
			fmt.Errorf("argon2id requires memory and parallelism"))
	}
	return &PasswordHasher{config: config}, nil
}

// HashPassword derives a salted hash of password and returns it in encoded
// form. Empty passwords are rejected rather than silently hashed.
//
// Encodings:
//
//	$pbkdf2-sha256$<iterations>$<b64(salt)>$<b64(dk)>
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<b64(salt)>$<b64(hash)>
func (p *PasswordHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", newError(KindValidation, "HashPassword", ErrEmptyPassword)
	}

	salt := make([]byte, p.config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", newError(KindCrypto, "HashPassword", fmt.Errorf("failed to generate salt: %w", err))
	}

	var encoded string
	switch p.config.Algorithm {
	case Argon2id:
		derived := argon2.IDKey([]byte(password), salt, p.config.Iterations,
			p.config.MemoryKB, p.config.Parallelism, derivedKeySize)
		encoded = fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
			argon2.Version, p.config.MemoryKB, p.config.Iterations, p.config.Parallelism,
			phcEncoding.EncodeToString(salt), phcEncoding.EncodeToString(derived))
		ZeroBytes(derived)
	case PBKDF2SHA256:
		derived := pbkdf2.Key([]byte(password), salt, int(p.config.Iterations), derivedKeySize, sha256.New)
		encoded = fmt.Sprintf("$pbkdf2-sha256$%d$%s$%s",
			p.config.Iterations, phcEncoding.EncodeToString(salt), phcEncoding.EncodeToString(derived))
		ZeroBytes(derived)
	default:
		return "", newError(KindCrypto, "HashPassword",
			fmt.Errorf("unsupported password algorithm: %s", p.config.Algorithm))
	}

	logrus.WithFields(logrus.Fields{
		"function":  "HashPassword",
		"algorithm": p.config.Algorithm.String(),
	}).Debug("Hashed password")

	return encoded, nil
}

// VerifyPassword re-derives password using the parameters embedded in the
// encoded string and compares in constant time. A malformed encoded string
// is an error, distinct from a clean "does not match" false. The hasher's
// own config plays no part: any consumer of stored hashes can verify either
// encoding form.
func (p *PasswordHasher) VerifyPassword(password, encoded string) (bool, error) {
	params, err := parseEncodedHash(encoded)
	if err != nil {
		return false, err
	}
	defer ZeroBytes(params.hash)

	var derived []byte
	switch params.algorithm {
	case Argon2id:
		derived = argon2.IDKey([]byte(password), params.salt, params.iterations,
			params.memoryKB, params.parallelism, uint32(len(params.hash)))
	case PBKDF2SHA256:
		derived = pbkdf2.Key([]byte(password), params.salt, int(params.iterations),
			len(params.hash), sha256.New)
	}
	defer ZeroBytes(derived)

	return subtle.ConstantTimeCompare(derived, params.hash) == 1, nil
}

// hashParams is the parse result of an encoded hash string.
type hashParams struct {
	algorithm   PasswordAlgorithm
	iterations  uint32
	memoryKB    uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

// parseEncodedHash decodes either supported PHC-style form.
func parseEncodedHash(encoded string) (*hashParams, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) < 2 || parts[0] != "" {
		return nil, newError(KindCrypto, "parseEncodedHash", ErrMalformedHash)
	}

	switch parts[1] {
	case "pbkdf2-sha256":
		return parsePBKDF2Hash(parts)
	case "argon2id":
		return parseArgon2Hash(parts)
	default:
		return nil, newError(KindCrypto, "parseEncodedHash",
			fmt.Errorf("%w: unknown algorithm tag %q", ErrMalformedHash, parts[1]))
	}
}

// parsePBKDF2Hash parses $pbkdf2-sha256$<iterations>$<b64 salt>$<b64 dk>.
func parsePBKDF2Hash(parts []string) (*hashParams, error) {
	if len(parts) != 5 {
		return nil, newError(KindCrypto, "parsePBKDF2Hash", ErrMalformedHash)
	}
	iterations, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil || iterations == 0 {
		return nil, newError(KindCrypto, "parsePBKDF2Hash",
			fmt.Errorf("%w: bad iteration count", ErrMalformedHash))
	}
	salt, err := phcEncoding.DecodeString(parts[3])
	if err != nil {
		return nil, newError(KindCrypto, "parsePBKDF2Hash",
			fmt.Errorf("%w: bad salt encoding", ErrMalformedHash))
	}
	hash, err := phcEncoding.DecodeString(parts[4])
	if err != nil || len(hash) == 0 {
		return nil, newError(KindCrypto, "parsePBKDF2Hash",
			fmt.Errorf("%w: bad hash encoding", ErrMalformedHash))
	}
	return &hashParams{
		algorithm:  PBKDF2SHA256,
		iterations: uint32(iterations),
		salt:       salt,
		hash:       hash,
	}, nil
}

// parseArgon2Hash parses $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<b64 salt>$<b64 hash>.
func parseArgon2Hash(parts []string) (*hashParams, error) {
	if len(parts) != 6 {
		return nil, newError(KindCrypto, "parseArgon2Hash", ErrMalformedHash)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, newError(KindCrypto, "parseArgon2Hash",
			fmt.Errorf("%w: unsupported argon2 version", ErrMalformedHash))
	}

	var memoryKB, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memoryKB, &iterations, &parallelism); err != nil {
		return nil, newError(KindCrypto, "parseArgon2Hash",
			fmt.Errorf("%w: bad cost parameters", ErrMalformedHash))
	}
	if memoryKB == 0 || iterations == 0 || parallelism == 0 {
		return nil, newError(KindCrypto, "parseArgon2Hash",
			fmt.Errorf("%w: zero cost parameter", ErrMalformedHash))
	}

	salt, err := phcEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, newError(KindCrypto, "parseArgon2Hash",
			fmt.Errorf("%w: bad salt encoding", ErrMalformedHash))
	}
	hash, err := phcEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return nil, newError(KindCrypto, "parseArgon2Hash",
			fmt.Errorf("%w: bad hash encoding", ErrMalformedHash))
	}
	return &hashParams{
		algorithm:   Argon2id,
		iterations:  iterations,
		memoryKB:    memoryKB,
		parallelism: parallelism,
		salt:        salt,
		hash:        hash,
	}, nil
}
