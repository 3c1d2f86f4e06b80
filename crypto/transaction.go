package crypto

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sirupsen/logrus"
)

// Transaction is a legacy Ethereum transaction awaiting signature. To is the
// 0x-prefixed recipient address, or empty for contract creation.
type Transaction struct {
	Nonce    uint64   `json:"nonce"`
	GasPrice *big.Int `json:"gas_price"`
	GasLimit uint64   `json:"gas_limit"`
	To       string   `json:"to"`
	Value    *big.Int `json:"value"`
	Data     []byte   `json:"data"`
	ChainID  *big.Int `json:"chain_id"`
}

// TransactionSignature carries the three ECDSA components plus the
// EIP-155 recovery value v = recoveryId + chainId*2 + 35. V is wide enough
// for any chain id; the historical pre-EIP-155 v of 27/28 is never produced.
type TransactionSignature struct {
	R         string `json:"r"`
	S         string `json:"s"`
	V         uint64 `json:"v"`
	Signature string `json:"signature"`
}

// rlpTransaction is the 9-element RLP list shared by the unsigned and signed
// forms. Unsigned: [nonce, gasPrice, gasLimit, to, value, data, chainId, 0, 0].
// Signed: the trailing three fields are replaced with v, r, s.
type rlpTransaction struct {
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	To       []byte
	Value    *big.Int
	Data     []byte
	Field7   *big.Int
	Field8   *big.Int
	Field9   *big.Int
}

// encodeTransaction serializes the 9-element list.
func encodeTransaction(tx *Transaction, field7, field8, field9 *big.Int) ([]byte, error) {
	to, err := addressBytes(tx.To)
	if err != nil {
		return nil, err
	}

	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}
	gasPrice := tx.GasPrice
	if gasPrice == nil {
		gasPrice = new(big.Int)
	}

	encoded, err := rlp.EncodeToBytes(&rlpTransaction{
		Nonce:    tx.Nonce,
		GasPrice: gasPrice,
		GasLimit: tx.GasLimit,
		To:       to,
		Value:    value,
		Data:     tx.Data,
		Field7:   field7,
		Field8:   field8,
		Field9:   field9,
	})
	if err != nil {
		return nil, newError(KindSerialization, "encodeTransaction", fmt.Errorf("rlp encoding failed: %w", err))
	}
	return encoded, nil
}

// EncodeUnsignedTransaction produces the EIP-155 unsigned RLP form
// [nonce, gasPrice, gasLimit, to, value, data, chainId, 0, 0] whose
// Keccak-256 digest is the signing input.
func (m *SignatureManager) EncodeUnsignedTransaction(tx *Transaction) ([]byte, error) {
	if err := validateTransaction(tx); err != nil {
		return nil, err
	}
	return encodeTransaction(tx, tx.ChainID, new(big.Int), new(big.Int))
}

// SignTransaction signs tx with the key behind the handle and returns the
// signature with its chain-bound recovery value. The digest is the
// Keccak-256 of the EIP-155 unsigned encoding; v is
// recoveryId + chainId*2 + 35 so the signature cannot be replayed on
// another chain.
func (m *SignatureManager) SignTransaction(ctx context.Context, tx *Transaction, key *SecurePrivateKey) (*TransactionSignature, error) {
	if key == nil {
		return nil, newError(KindValidation, "SignTransaction", fmt.Errorf("private key handle is nil"))
	}
	unsigned, err := m.EncodeUnsignedTransaction(tx)
	if err != nil {
		return nil, err
	}

	digest := m.hashes.Keccak256(unsigned)

	var raw []byte
	err = m.keys.WithKey(ctx, key.KeyID(), func(scalar []byte) error {
		priv, err := ethcrypto.ToECDSA(scalar)
		if err != nil {
			return newError(KindCrypto, "SignTransaction", fmt.Errorf("invalid private key: %w", err))
		}
		defer zeroECDSA(priv)

		raw, err = ethcrypto.Sign(digest, priv)
		if err != nil {
			return newError(KindCrypto, "SignTransaction", fmt.Errorf("signing failed: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recoveryID := uint64(raw[64])
	v := recoveryID + tx.ChainID.Uint64()*2 + 35

	logrus.WithFields(logrus.Fields{
		"function": "SignTransaction",
		"key_id":   key.KeyID(),
		"chain_id": tx.ChainID.String(),
		"nonce":    tx.Nonce,
	}).Info("Signed transaction")

	return &TransactionSignature{
		R:         "0x" + hex.EncodeToString(raw[:32]),
		S:         "0x" + hex.EncodeToString(raw[32:64]),
		V:         v,
		Signature: "0x" + hex.EncodeToString(raw),
	}, nil
}

// EncodeSignedTransaction produces the broadcast-ready RLP form
// [nonce, gasPrice, gasLimit, to, value, data, v, r, s].
func (m *SignatureManager) EncodeSignedTransaction(tx *Transaction, sig *TransactionSignature) ([]byte, error) {
	if err := validateTransaction(tx); err != nil {
		return nil, err
	}
	if sig == nil {
		return nil, newError(KindValidation, "EncodeSignedTransaction", fmt.Errorf("signature is nil"))
	}

	r, ok := new(big.Int).SetString(strip0x(sig.R), 16)
	if !ok {
		return nil, newError(KindSerialization, "EncodeSignedTransaction",
			fmt.Errorf("%w: bad r component", ErrInvalidSignature))
	}
	s, ok := new(big.Int).SetString(strip0x(sig.S), 16)
	if !ok {
		return nil, newError(KindSerialization, "EncodeSignedTransaction",
			fmt.Errorf("%w: bad s component", ErrInvalidSignature))
	}

	return encodeTransaction(tx, new(big.Int).SetUint64(sig.V), r, s)
}

// validateTransaction rejects transactions that cannot be encoded.
func validateTransaction(tx *Transaction) error {
	if tx == nil {
		return newError(KindValidation, "validateTransaction", fmt.Errorf("transaction is nil"))
	}
	if tx.ChainID == nil || tx.ChainID.Sign() <= 0 {
		return newError(KindValidation, "validateTransaction", fmt.Errorf("chain id must be positive"))
	}
	if tx.GasPrice != nil && tx.GasPrice.Sign() < 0 {
		return newError(KindValidation, "validateTransaction", fmt.Errorf("gas price cannot be negative"))
	}
	if tx.Value != nil && tx.Value.Sign() < 0 {
		return newError(KindValidation, "validateTransaction", fmt.Errorf("value cannot be negative"))
	}
	return nil
}

// addressBytes decodes a 0x-prefixed hex address into its 20-byte form. An
// empty address (contract creation) encodes as an empty byte string.
func addressBytes(addr string) ([]byte, error) {
	if addr == "" {
		return nil, nil
	}
	if !common.IsHexAddress(addr) {
		return nil, newError(KindValidation, "addressBytes", fmt.Errorf("invalid address %q", addr))
	}
	parsed := common.HexToAddress(addr)
	return parsed.Bytes(), nil
}
