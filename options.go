package walletcore

import (
	"github.com/opd-ai/walletcore/crypto"
	"github.com/opd-ai/walletcore/storage"
)

// Options configures a CryptoManager. The zero value is not usable; start
// from DefaultOptions and override fields as needed.
type Options struct {
	// Storage is the platform capability that persists key material. If nil,
	// an in-memory store is used; keys are then lost when the process exits.
	Storage storage.PlatformStorage

	// Password carries the work factors for the password hasher.
	Password crypto.PasswordConfig
}

// DefaultOptions creates Options with an in-memory store and Argon2id
// password hashing.
func DefaultOptions() *Options {
	return &Options{
		Storage:  storage.NewMemoryStorage(),
		Password: crypto.DefaultPasswordConfig(),
	}
}
