package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFixedOutputLengths(t *testing.T) {
	manager := NewHashManager()

	inputs := [][]byte{
		nil,
		{},
		[]byte("a"),
		make([]byte, 1<<16),
	}
	algorithms := []struct {
		algorithm HashAlgorithm
		size      int
	}{
		{SHA256, 32},
		{SHA512, 64},
		{Keccak256, 32},
		{Keccak512, 64},
	}

	for _, alg := range algorithms {
		for _, input := range inputs {
			sum, err := manager.Hash(input, alg.algorithm)
			require.NoError(t, err)
			assert.Len(t, sum, alg.size,
				"algorithm %s input length %d", alg.algorithm, len(input))
			assert.Equal(t, alg.size, alg.algorithm.Size())
		}
	}
}

func TestHashKnownVectors(t *testing.T) {
	manager := NewHashManager()

	tests := []struct {
		name      string
		algorithm HashAlgorithm
		input     string
		want      string
	}{
		{
			name:      "sha256 abc",
			algorithm: SHA256,
			input:     "abc",
			want:      "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
		{
			name:      "sha256 empty",
			algorithm: SHA256,
			input:     "",
			want:      "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:      "keccak256 empty",
			algorithm: Keccak256,
			input:     "",
			want:      "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		},
		{
			name:      "keccak256 abc",
			algorithm: Keccak256,
			input:     "abc",
			want:      "4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := manager.HashHex([]byte(tt.input), tt.algorithm)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHashUnknownAlgorithm(t *testing.T) {
	manager := NewHashManager()

	_, err := manager.Hash([]byte("data"), HashAlgorithm(99))
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindCrypto, kind)
}

func TestDoubleSHA256(t *testing.T) {
	manager := NewHashManager()

	// sha256(sha256("hello")) reference value.
	want := "9595c9df90075148eb06860365df33584b75bff782a510c6cd4883a419833d50"
	got := hex.EncodeToString(manager.DoubleSHA256([]byte("hello")))
	assert.Equal(t, want, got)

	direct := manager.SHA256(manager.SHA256([]byte("hello")))
	assert.Equal(t, direct, manager.DoubleSHA256([]byte("hello")))
}

func TestTransactionAndMessageHashPrefix(t *testing.T) {
	manager := NewHashManager()

	txHash := manager.TransactionHash([]byte("payload"))
	msgHash := manager.MessageHash([]byte("payload"))

	assert.Equal(t, txHash, msgHash)
	assert.Equal(t, "0x", txHash[:2])
	assert.Len(t, txHash, 2+64)

	raw := manager.Keccak256([]byte("payload"))
	assert.Equal(t, "0x"+hex.EncodeToString(raw), txHash)
}
