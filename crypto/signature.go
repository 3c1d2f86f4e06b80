package crypto

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

// signatureSize is the length of a recoverable signature: r || s || recovery id.
const signatureSize = 65

// Signature is a recoverable secp256k1 signature over the Keccak-256 digest
// of a message. V is the raw recovery id (0 or 1), not the Ethereum
// transaction v byte.
type Signature struct {
	R   string `json:"r"`
	S   string `json:"s"`
	V   uint8  `json:"v"`
	Hex string `json:"signature"`
}

// Bytes returns the 65-byte r || s || v form, or an error if the hex fields
// were tampered with.
func (s *Signature) Bytes() ([]byte, error) {
	raw, err := hex.DecodeString(strip0x(s.Hex))
	if err != nil || len(raw) != signatureSize {
		return nil, newError(KindSerialization, "Bytes", ErrInvalidSignature)
	}
	return raw, nil
}

// SignatureManager signs and verifies messages with secp256k1 keys brokered
// by a KeyManager. It never sees key material outside the scoped accessor
// and holds no mutable state, so one instance is safely shared.
type SignatureManager struct {
	keys   *KeyManager
	hashes *HashManager
}

// NewSignatureManager creates a SignatureManager over the given KeyManager.
func NewSignatureManager(keys *KeyManager) *SignatureManager {
	return &SignatureManager{
		keys:   keys,
		hashes: NewHashManager(),
	}
}

// SignMessage signs the Keccak-256 digest of message with the key behind the
// handle. The private scalar is visible only inside the scoped access and is
// zeroized before this function returns.
func (m *SignatureManager) SignMessage(ctx context.Context, message []byte, key *SecurePrivateKey) (*Signature, error) {
	if key == nil {
		return nil, newError(KindValidation, "SignMessage", fmt.Errorf("private key handle is nil"))
	}

	digest := m.hashes.Keccak256(message)

	var raw []byte
	err := m.keys.WithKey(ctx, key.KeyID(), func(scalar []byte) error {
		priv, err := ethcrypto.ToECDSA(scalar)
		if err != nil {
			return newError(KindCrypto, "SignMessage", fmt.Errorf("invalid private key: %w", err))
		}
		defer zeroECDSA(priv)

		raw, err = ethcrypto.Sign(digest, priv)
		if err != nil {
			return newError(KindCrypto, "SignMessage", fmt.Errorf("signing failed: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "SignMessage",
		"key_id":   key.KeyID(),
		"msg_size": len(message),
	}).Debug("Signed message")

	return signatureFromRaw(raw), nil
}

// VerifySignature checks sig against the Keccak-256 digest of message and
// the supplied public key (compressed or uncompressed). It never requires
// the private key.
func (m *SignatureManager) VerifySignature(message []byte, sig *Signature, publicKey []byte) bool {
	if sig == nil {
		return false
	}
	raw, err := sig.Bytes()
	if err != nil {
		return false
	}
	digest := m.hashes.Keccak256(message)
	// Drop the recovery id; VerifySignature takes the 64-byte r || s form.
	return ethcrypto.VerifySignature(publicKey, digest, raw[:64])
}

// RecoverPublicKey recovers the signer's uncompressed public key from a
// recoverable signature over message. Callers use it to check a signature
// against a claimed address without holding the public key out-of-band.
func (m *SignatureManager) RecoverPublicKey(message []byte, sig *Signature) ([]byte, error) {
	if sig == nil {
		return nil, newError(KindValidation, "RecoverPublicKey", ErrInvalidSignature)
	}
	raw, err := sig.Bytes()
	if err != nil {
		return nil, err
	}
	digest := m.hashes.Keccak256(message)
	pub, err := ethcrypto.Ecrecover(digest, raw)
	if err != nil {
		return nil, newError(KindCrypto, "RecoverPublicKey", fmt.Errorf("recovery failed: %w", err))
	}
	return pub, nil
}

// SignBLEPayment signs a payment payload exchanged over the Bluetooth
// transport. The payload is domain-separated from plain messages before
// signing; no other logic is added over SignMessage.
func (m *SignatureManager) SignBLEPayment(ctx context.Context, payload []byte, key *SecurePrivateKey) (*Signature, error) {
	return m.SignMessage(ctx, domainSeparated("ble-payment", payload), key)
}

// VerifyBLEPayment verifies a signature produced by SignBLEPayment.
func (m *SignatureManager) VerifyBLEPayment(payload []byte, sig *Signature, publicKey []byte) bool {
	return m.VerifySignature(domainSeparated("ble-payment", payload), sig, publicKey)
}

// SignQRPayment signs a payment payload embedded in a QR code.
func (m *SignatureManager) SignQRPayment(ctx context.Context, payload []byte, key *SecurePrivateKey) (*Signature, error) {
	return m.SignMessage(ctx, domainSeparated("qr-payment", payload), key)
}

// VerifyQRPayment verifies a signature produced by SignQRPayment.
func (m *SignatureManager) VerifyQRPayment(payload []byte, sig *Signature, publicKey []byte) bool {
	return m.VerifySignature(domainSeparated("qr-payment", payload), sig, publicKey)
}

// domainSeparated prefixes payload with a domain tag so payment signatures
// can never be replayed as plain message signatures.
func domainSeparated(domain string, payload []byte) []byte {
	out := make([]byte, 0, len(domain)+1+len(payload))
	out = append(out, domain...)
	out = append(out, ':')
	return append(out, payload...)
}

// signatureFromRaw converts a 65-byte r || s || v signature into the
// Signature record.
func signatureFromRaw(raw []byte) *Signature {
	return &Signature{
		R:   "0x" + hex.EncodeToString(raw[:32]),
		S:   "0x" + hex.EncodeToString(raw[32:64]),
		V:   raw[64],
		Hex: "0x" + hex.EncodeToString(raw),
	}
}

// strip0x removes an optional 0x prefix from a hex string.
func strip0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// zeroECDSA overwrites the private scalar inside an ecdsa key. The big.Int
// word slice is the only place the scalar lives after ToECDSA.
func zeroECDSA(priv *ecdsa.PrivateKey) {
	if priv == nil || priv.D == nil {
		return
	}
	words := priv.D.Bits()
	for i := range words {
		words[i] = 0
	}
	priv.D.SetInt64(0)
}
