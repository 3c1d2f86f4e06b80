package crypto

import (
	"strings"
	"sync"
)

// bip39WordCounts are the mnemonic lengths permitted by BIP-39.
var bip39WordCounts = map[int]bool{12: true, 15: true, 18: true, 21: true, 24: true}

// SecurePrivateKey is an opaque handle to a secp256k1 private key held in
// platform storage. The 32-byte scalar is never a field of this type; it is
// fetched from storage only inside KeyManager.WithKey and zeroized as soon as
// the scoped accessor returns.
type SecurePrivateKey struct {
	keyID string
}

// KeyID returns the storage identifier of the key this handle refers to.
func (k *SecurePrivateKey) KeyID() string {
	return k.keyID
}

// SecureSeedPhrase holds a BIP-39 mnemonic as individually wipeable word
// slots. Destroy overwrites every slot; after Destroy all accessors fail
// with ErrSecretDestroyed.
type SecureSeedPhrase struct {
	mu        sync.Mutex
	words     [][]byte
	destroyed bool
}

// NewSecureSeedPhrase wraps a mnemonic sentence. Only the BIP-39-valid word
// counts (12, 15, 18, 21, 24) are accepted; checksum validation happens later
// at derivation time, not here.
func NewSecureSeedPhrase(mnemonic string) (*SecureSeedPhrase, error) {
	fields := strings.Fields(mnemonic)
	if !bip39WordCounts[len(fields)] {
		return nil, newError(KindValidation, "NewSecureSeedPhrase", ErrInvalidMnemonic)
	}

	words := make([][]byte, len(fields))
	for i, w := range fields {
		words[i] = []byte(w)
	}
	return &SecureSeedPhrase{words: words}, nil
}

// Len returns the number of words in the phrase.
func (s *SecureSeedPhrase) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.words)
}

// WithPhrase assembles the mnemonic sentence into a transient buffer,
// invokes fn with it, and zeroizes the buffer before returning. The phrase
// never escapes the callback as an owned value. Callers that must hand the
// sentence to a string-based API should convert inside the callback and keep
// the converted value equally short-lived.
func (s *SecureSeedPhrase) WithPhrase(fn func(mnemonic []byte) error) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return newError(KindValidation, "WithPhrase", ErrSecretDestroyed)
	}

	size := 0
	for _, w := range s.words {
		size += len(w) + 1
	}
	buf := make([]byte, 0, size)
	for i, w := range s.words {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, w...)
	}
	s.mu.Unlock()

	defer ZeroBytes(buf)
	return fn(buf)
}

// Destroy overwrites every word slot with zeros and marks the phrase as
// unusable. Calling Destroy more than once is harmless.
func (s *SecureSeedPhrase) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.words {
		ZeroBytes(s.words[i])
		s.words[i] = nil
	}
	s.words = nil
	s.destroyed = true
}

// Destroyed reports whether the phrase has been destroyed.
func (s *SecureSeedPhrase) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}
