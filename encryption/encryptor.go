package encryption

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"
)

// Cipher seals and opens whole buffers with an AEAD. Sealed output is the
// random nonce followed by the ciphertext and tag.
type Cipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
	Algorithm() Algorithm
}

// Algorithm represents supported encryption algorithms.
type Algorithm string

const (
	// AlgorithmAESGCM is AES-256-GCM (default, widely supported).
	AlgorithmAESGCM Algorithm = "aes-256-gcm"

	// AlgorithmChaCha20 is ChaCha20-Poly1305 (modern, fast on CPUs without AES-NI).
	AlgorithmChaCha20 Algorithm = "chacha20-poly1305"
)

// ParseAlgorithm accepts the canonical names plus the short forms "aes" and "chacha20".
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "aes", string(AlgorithmAESGCM):
		return AlgorithmAESGCM, nil
	case "chacha20", string(AlgorithmChaCha20):
		return AlgorithmChaCha20, nil
	default:
		return "", fmt.Errorf("unknown algorithm %q", s)
	}
}

// Option configures the cipher.
type Option func(*options)

type options struct {
	algorithm Algorithm
}

// WithAlgorithm selects the encryption algorithm (default: AES-256-GCM).
func WithAlgorithm(alg Algorithm) Option {
	return func(o *options) { o.algorithm = alg }
}

// New creates a Cipher from a passphrase. The passphrase is hashed with
// SHA-256 to the 32-byte key both algorithms take.
func New(key string, opts ...Option) (Cipher, error) {
	o := &options{algorithm: AlgorithmAESGCM}
	for _, opt := range opts {
		opt(o)
	}

	switch o.algorithm {
	case AlgorithmChaCha20:
		return NewChaCha20(key)
	case AlgorithmAESGCM:
		return NewAESGCM(key)
	default:
		return nil, fmt.Errorf("unknown algorithm %q", o.algorithm)
	}
}

func deriveKey(key string) []byte {
	sum := sha256.Sum256([]byte(key))
	return sum[:]
}

type aeadCipher struct {
	alg  Algorithm
	aead cipher.AEAD
}

func (c *aeadCipher) Algorithm() Algorithm { return c.alg }

// Seal encrypts plaintext under a fresh random nonce.
func (c *aeadCipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open authenticates and decrypts output of Seal.
func (c *aeadCipher) Open(sealed []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize+c.aead.Overhead() {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, data := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, data, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}
