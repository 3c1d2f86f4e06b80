package crypto

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

func TestSecureWipe(t *testing.T) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		t.Fatalf("Failed to fill buffer: %v", err)
	}

	allZeroInitially := true
	for _, b := range buf {
		if b != 0 {
			allZeroInitially = false
			break
		}
	}
	if allZeroInitially {
		t.Fatalf("Buffer is all zeros before wiping, test cannot proceed")
	}

	if err := SecureWipe(buf); err != nil {
		t.Fatalf("SecureWipe failed: %v", err)
	}

	if !bytes.Equal(buf, make([]byte, 32)) {
		t.Fatalf("Buffer was not securely wiped by SecureWipe")
	}
}

func TestSecureWipeNil(t *testing.T) {
	if err := SecureWipe(nil); err == nil {
		t.Fatal("SecureWipe(nil) should return an error")
	}
}

func TestSecureWipeEmpty(t *testing.T) {
	if err := SecureWipe([]byte{}); err != nil {
		t.Fatalf("SecureWipe on empty slice failed: %v", err)
	}
}

func TestZeroBytes(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	ZeroBytes(buf)
	if !bytes.Equal(buf, []byte{0, 0, 0, 0}) {
		t.Fatal("ZeroBytes did not zero the buffer")
	}
}

func TestWithSecretZeroizesOnReturn(t *testing.T) {
	buf := []byte{0xde, 0xad, 0xbe, 0xef}
	var seen []byte

	err := WithSecret(buf, func(b []byte) error {
		seen = append([]byte(nil), b...)
		return nil
	})
	if err != nil {
		t.Fatalf("WithSecret failed: %v", err)
	}
	if !bytes.Equal(seen, []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Fatal("Callback did not observe the secret bytes")
	}
	if !bytes.Equal(buf, make([]byte, 4)) {
		t.Fatal("Buffer was not zeroized after WithSecret returned")
	}
}

func TestWithSecretZeroizesOnError(t *testing.T) {
	buf := []byte{1, 2, 3}
	wantErr := errors.New("callback failed")

	err := WithSecret(buf, func([]byte) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected callback error, got %v", err)
	}
	if !bytes.Equal(buf, make([]byte, 3)) {
		t.Fatal("Buffer was not zeroized on the error path")
	}
}
