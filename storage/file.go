package storage

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// pbkdf2Iterations is the iteration count for master key derivation.
	pbkdf2Iterations = 100000
	// fileFormatVersion is the current on-disk encryption format version.
	fileFormatVersion = 1
	// masterSaltSize is the size of the PBKDF2 salt stored beside the keys.
	masterSaltSize = 32
	// keyFileSuffix marks files managed by this store.
	keyFileSuffix = ".key"
)

// EncryptedFileStorage is a directory-backed PlatformStorage with encryption
// at rest. Every value is sealed with AES-256-GCM under a master key derived
// from a passphrase via PBKDF2, so key material remains protected even if the
// filesystem is compromised.
//
// On-disk layout per value: [version:2][nonce:12][ciphertext+tag:N].
// A salt file beside the values holds the PBKDF2 salt; it is generated on
// first use and must not be deleted while values exist.
type EncryptedFileStorage struct {
	masterKey [32]byte
	dataDir   string
	saltFile  string
	closed    bool

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEncryptedFileStorage creates a file store rooted at dataDir. passphrase
// is wiped before this function returns; callers must not reuse it.
func NewEncryptedFileStorage(dataDir string, passphrase []byte) (*EncryptedFileStorage, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	fs := &EncryptedFileStorage{
		dataDir:  dataDir,
		saltFile: filepath.Join(dataDir, ".salt"),
		locks:    make(map[string]*sync.Mutex),
	}

	salt, err := fs.loadOrGenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize salt: %w", err)
	}

	derived := pbkdf2.Key(passphrase, salt, pbkdf2Iterations, 32, sha256.New)
	copy(fs.masterKey[:], derived)

	zeroize(derived)
	zeroize(passphrase)

	logrus.WithFields(logrus.Fields{
		"function": "NewEncryptedFileStorage",
		"data_dir": dataDir,
	}).Debug("Initialized encrypted file storage")

	return fs, nil
}

// loadOrGenerateSalt loads the existing PBKDF2 salt or generates a new one.
func (fs *EncryptedFileStorage) loadOrGenerateSalt() ([]byte, error) {
	data, err := os.ReadFile(fs.saltFile)
	if err == nil {
		if len(data) != masterSaltSize {
			return nil, fmt.Errorf("invalid salt file size: got %d, want %d", len(data), masterSaltSize)
		}
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read salt file: %w", err)
	}

	salt := make([]byte, masterSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if err := os.WriteFile(fs.saltFile, salt, 0o600); err != nil {
		return nil, fmt.Errorf("failed to save salt: %w", err)
	}
	return salt, nil
}

// keyLock returns the per-key mutex for keyID so that concurrent Store and
// Delete on the same key id cannot interleave mid-write.
func (fs *EncryptedFileStorage) keyLock(keyID string) *sync.Mutex {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	l, ok := fs.locks[keyID]
	if !ok {
		l = &sync.Mutex{}
		fs.locks[keyID] = l
	}
	return l
}

// fileFor maps a key id to a filesystem-safe file name.
func (fs *EncryptedFileStorage) fileFor(keyID string) string {
	return filepath.Join(fs.dataDir, hex.EncodeToString([]byte(keyID))+keyFileSuffix)
}

// Store encrypts data and writes it atomically under keyID.
func (fs *EncryptedFileStorage) Store(ctx context.Context, keyID string, data []byte) error {
	if keyID == "" {
		return ErrEmptyKeyID
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if fs.closed {
		return ErrStoreClosed
	}

	lock := fs.keyLock(keyID)
	lock.Lock()
	defer lock.Unlock()

	block, err := aes.NewCipher(fs.masterKey[:])
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, data, nil)

	output := make([]byte, 2+len(nonce)+len(ciphertext))
	binary.BigEndian.PutUint16(output[0:2], fileFormatVersion)
	copy(output[2:2+len(nonce)], nonce)
	copy(output[2+len(nonce):], ciphertext)

	// Atomic write via temporary file + rename so a crash never leaves a
	// partially written key on disk.
	finalFile := fs.fileFor(keyID)
	tmpFile := finalFile + ".tmp"

	if err := os.WriteFile(tmpFile, output, 0o600); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmpFile, finalFile); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Store",
		"key_id":   keyID,
		"size":     len(data),
	}).Debug("Stored encrypted value")

	return nil
}

// Retrieve reads and decrypts the value stored under keyID.
func (fs *EncryptedFileStorage) Retrieve(ctx context.Context, keyID string) ([]byte, error) {
	if keyID == "" {
		return nil, ErrEmptyKeyID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fs.closed {
		return nil, ErrStoreClosed
	}

	data, err := os.ReadFile(fs.fileFor(keyID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	// Minimum size: version + nonce + tag.
	if len(data) < 2+12+16 {
		return nil, fmt.Errorf("key file too short: %d bytes", len(data))
	}

	version := binary.BigEndian.Uint16(data[0:2])
	if version != fileFormatVersion {
		return nil, fmt.Errorf("unsupported encryption version: %d (expected %d)", version, fileFormatVersion)
	}

	block, err := aes.NewCipher(fs.masterKey[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	nonce := data[2 : 2+nonceSize]
	ciphertext := data[2+nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (wrong passphrase or corrupted data): %w", err)
	}
	return plaintext, nil
}

// Delete overwrites the key file with zeros and removes it.
func (fs *EncryptedFileStorage) Delete(ctx context.Context, keyID string) error {
	if keyID == "" {
		return ErrEmptyKeyID
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if fs.closed {
		return ErrStoreClosed
	}

	lock := fs.keyLock(keyID)
	lock.Lock()
	defer lock.Unlock()

	filePath := fs.fileFor(keyID)
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("failed to stat key file: %w", err)
	}

	// Best-effort secure deletion: overwrite with zeros before unlinking.
	zeros := make([]byte, info.Size())
	if err := os.WriteFile(filePath, zeros, 0o600); err != nil {
		return os.Remove(filePath)
	}
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to remove key file: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Delete",
		"key_id":   keyID,
	}).Debug("Deleted encrypted value")

	return nil
}

// Exists reports whether a value is stored under keyID.
func (fs *EncryptedFileStorage) Exists(ctx context.Context, keyID string) (bool, error) {
	if keyID == "" {
		return false, ErrEmptyKeyID
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if fs.closed {
		return false, ErrStoreClosed
	}

	_, err := os.Stat(fs.fileFor(keyID))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat key file: %w", err)
	}
	return true, nil
}

// ListKeys returns the ids of all stored values.
func (fs *EncryptedFileStorage) ListKeys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fs.closed {
		return nil, ErrStoreClosed
	}

	entries, err := os.ReadDir(fs.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list data directory: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, keyFileSuffix) {
			continue
		}
		raw, err := hex.DecodeString(strings.TrimSuffix(name, keyFileSuffix))
		if err != nil {
			continue // not one of ours
		}
		keys = append(keys, string(raw))
	}
	return keys, nil
}

// Close wipes the master key from memory. The store must not be used after
// Close returns.
func (fs *EncryptedFileStorage) Close() error {
	zeroize(fs.masterKey[:])
	fs.closed = true
	return nil
}

// zeroize overwrites a buffer with zeros, guarding against the compiler
// optimizing the writes away.
func zeroize(b []byte) {
	if len(b) == 0 {
		return
	}
	zeros := make([]byte, len(b))
	subtle.ConstantTimeCompare(b, zeros)
	copy(b, zeros)
	runtime.KeepAlive(b)
}
