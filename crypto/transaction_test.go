package crypto

import (
	"context"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/walletcore/storage"
)

// eip155TestTransaction is the worked example from the EIP-155 specification.
func eip155TestTransaction() *Transaction {
	return &Transaction{
		Nonce:    9,
		GasPrice: big.NewInt(20000000000),
		GasLimit: 21000,
		To:       "0x3535353535353535353535353535353535353535",
		Value:    new(big.Int).SetUint64(1000000000000000000),
		Data:     nil,
		ChainID:  big.NewInt(1),
	}
}

// storeFixedKey seeds storage with a caller-chosen private key so signing is
// reproducible against published vectors.
func storeFixedKey(t *testing.T, store storage.PlatformStorage, keyID, hexKey string) *SecurePrivateKey {
	t.Helper()
	raw, err := hex.DecodeString(hexKey)
	require.NoError(t, err)
	require.NoError(t, store.Store(context.Background(), keyID, raw))
	return &SecurePrivateKey{keyID: keyID}
}

func TestEncodeUnsignedTransactionEIP155Vector(t *testing.T) {
	_, sigs := newTestSignatureManager()

	encoded, err := sigs.EncodeUnsignedTransaction(eip155TestTransaction())
	require.NoError(t, err)

	want := "ec098504a817c800825208943535353535353535353535353535353535353535880de0b6b3a764000080018080"
	assert.Equal(t, want, hex.EncodeToString(encoded))

	digest := sigs.hashes.Keccak256(encoded)
	assert.Equal(t,
		"daf5a779ae972f972197303d7b574746c7ef83eadac0f2791ad23db92e4c8e53",
		hex.EncodeToString(digest))
}

func TestSignTransactionEIP155Vector(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	keys := NewKeyManager(store)
	sigs := NewSignatureManager(keys)

	key := storeFixedKey(t, store, "vector",
		"4646464646464646464646464646464646464646464646464646464646464646")

	sig, err := sigs.SignTransaction(ctx, eip155TestTransaction(), key)
	require.NoError(t, err)

	assert.Equal(t, uint64(37), sig.V)
	assert.Equal(t, "0x28ef61340bd939bc2195fe537567866003e1a15d3c71ff63e1590620aa636276", sig.R)
	assert.Equal(t, "0x67cbe9d8997f761aecb703304b3800ccf555c9f3dc64214b297fb1966a3b6d83", sig.S)
}

func TestEncodeSignedTransactionEIP155Vector(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	keys := NewKeyManager(store)
	sigs := NewSignatureManager(keys)

	key := storeFixedKey(t, store, "vector",
		"4646464646464646464646464646464646464646464646464646464646464646")

	tx := eip155TestTransaction()
	sig, err := sigs.SignTransaction(ctx, tx, key)
	require.NoError(t, err)

	raw, err := sigs.EncodeSignedTransaction(tx, sig)
	require.NoError(t, err)

	want := "f86c098504a817c800825208943535353535353535353535353535353535353535880de0b6b3a764000080" +
		"25" +
		"a028ef61340bd939bc2195fe537567866003e1a15d3c71ff63e1590620aa636276" +
		"a067cbe9d8997f761aecb703304b3800ccf555c9f3dc64214b297fb1966a3b6d83"
	assert.Equal(t, want, hex.EncodeToString(raw))
}

func TestSignTransactionChainIDBoundV(t *testing.T) {
	ctx := context.Background()
	keys, sigs := newTestSignatureManager()

	handle, err := keys.Generate(ctx, "signer")
	require.NoError(t, err)

	for _, chainID := range []int64{1, 5, 137, 1337} {
		tx := eip155TestTransaction()
		tx.ChainID = big.NewInt(chainID)

		sig, err := sigs.SignTransaction(ctx, tx, handle)
		require.NoError(t, err)

		base := uint64(chainID)*2 + 35
		assert.Contains(t, []uint64{base, base + 1}, sig.V,
			"v must be recoveryId + chainId*2 + 35 for chain %d", chainID)
	}
}

func TestSignTransactionContractCreation(t *testing.T) {
	ctx := context.Background()
	keys, sigs := newTestSignatureManager()

	handle, err := keys.Generate(ctx, "deployer")
	require.NoError(t, err)

	tx := &Transaction{
		Nonce:    0,
		GasPrice: big.NewInt(1),
		GasLimit: 100000,
		To:       "", // contract creation encodes an empty recipient
		Value:    new(big.Int),
		Data:     []byte{0x60, 0x60, 0x60},
		ChainID:  big.NewInt(1),
	}

	sig, err := sigs.SignTransaction(ctx, tx, handle)
	require.NoError(t, err)

	raw, err := sigs.EncodeSignedTransaction(tx, sig)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}

func TestSignTransactionValidation(t *testing.T) {
	ctx := context.Background()
	keys, sigs := newTestSignatureManager()

	handle, err := keys.Generate(ctx, "signer")
	require.NoError(t, err)

	tests := []struct {
		name string
		tx   *Transaction
	}{
		{name: "nil transaction", tx: nil},
		{name: "missing chain id", tx: &Transaction{Nonce: 1, GasPrice: big.NewInt(1)}},
		{name: "zero chain id", tx: &Transaction{ChainID: new(big.Int)}},
		{
			name: "bad recipient",
			tx:   &Transaction{ChainID: big.NewInt(1), To: "not-an-address"},
		},
		{
			name: "negative value",
			tx:   &Transaction{ChainID: big.NewInt(1), Value: big.NewInt(-5)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sigs.SignTransaction(ctx, tt.tx, handle)
			require.Error(t, err)
			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, KindValidation, kind)
		})
	}
}

func TestEncodeSignedTransactionRejectsBadSignature(t *testing.T) {
	_, sigs := newTestSignatureManager()
	tx := eip155TestTransaction()

	_, err := sigs.EncodeSignedTransaction(tx, nil)
	require.Error(t, err)

	_, err = sigs.EncodeSignedTransaction(tx, &TransactionSignature{R: "0xzz", S: "0x00", V: 37})
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, KindSerialization, kind)
}
