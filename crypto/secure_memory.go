package crypto

import (
	"crypto/subtle"
	"errors"
	"runtime"
)

// SecureWipe attempts to securely erase the contents of a byte slice
// containing sensitive data. It returns an error if the byte slice is nil.
func SecureWipe(data []byte) error {
	if data == nil {
		return errors.New("cannot wipe nil data")
	}

	// Overwrite the data with zeros. The ConstantTimeCompare call touches
	// both buffers so the compiler cannot prove the zeroing is dead code
	// and eliminate it.
	zeros := make([]byte, len(data))
	subtle.ConstantTimeCompare(data, zeros)
	copy(data, zeros)

	runtime.KeepAlive(data)
	runtime.KeepAlive(zeros)

	return nil
}

// ZeroBytes erases the contents of a byte slice containing sensitive data.
// This is a convenience function that ignores the error from SecureWipe.
func ZeroBytes(data []byte) {
	_ = SecureWipe(data)
}

// WithSecret invokes fn with buf and zeroizes buf before returning, on every
// exit path including error propagation. This is the scoped-access primitive
// underlying all secret handling in this package: secret bytes are visible
// only inside the callback and never escape as an owned value.
func WithSecret(buf []byte, fn func([]byte) error) error {
	defer ZeroBytes(buf)
	return fn(buf)
}
