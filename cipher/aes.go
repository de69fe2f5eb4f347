// Package cipher implements the symmetric primitive used to wrap data
// keys and cluster keys: AES-256-GCM-SIV. GCM-SIV is nonce-misuse
// resistant, which matters here because cluster keys encrypt a high
// volume of data keys over a long rotation period.
package cipher

import (
	"crypto/aes"
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/cipher/gcmsiv"
)

const (
	// KeyLength is the size, in bytes, of an AES-256 key.
	KeyLength = 32
	// NonceLength is the size, in bytes, of a GCM-SIV nonce.
	NonceLength = 12
)

// EncodeError wraps a failure from the underlying AEAD.
type EncodeError struct {
	Op  string
	Err error
}

func (e *EncodeError) Error() string { return fmt.Sprintf("cipher: %s: %v", e.Op, e.Err) }
func (e *EncodeError) Unwrap() error { return e.Err }

// GenerateKey returns a fresh random AES-256 key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, &EncodeError{Op: "generate_key", Err: err}
	}
	return key, nil
}

func newAEAD(key []byte) (interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
}, error) {
	if len(key) != KeyLength {
		return nil, fmt.Errorf("key size not matched: got %d want %d", len(key), KeyLength)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return gcmsiv.NewGCMSIV(block)
}

// Encrypt seals content under key and returns nonce||ciphertext, where
// the nonce occupies the first NonceLength bytes.
func Encrypt(key, content []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, &EncodeError{Op: "encrypt", Err: err}
	}

	nonce := make([]byte, NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, &EncodeError{Op: "encrypt", Err: err}
	}

	sealed := aead.Seal(nil, nonce, content, nil)
	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt reverses Encrypt. content must be at least NonceLength+1
// bytes, and its first NonceLength bytes must be the nonce produced by
// Encrypt.
func Decrypt(key, content []byte) ([]byte, error) {
	if len(content) <= NonceLength {
		return nil, &EncodeError{Op: "decrypt", Err: fmt.Errorf("content too short: %d bytes", len(content))}
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, &EncodeError{Op: "decrypt", Err: err}
	}

	nonce := content[:NonceLength]
	ciphertext := content[NonceLength:]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, &EncodeError{Op: "decrypt", Err: err}
	}
	return plain, nil
}
