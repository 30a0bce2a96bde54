package encryption

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// NewChaCha20 creates a ChaCha20-Poly1305 cipher. It performs well on CPUs
// without AES hardware acceleration (ARM devices, older processors).
func NewChaCha20(key string) (Cipher, error) {
	aead, err := chacha20poly1305.New(deriveKey(key))
	if err != nil {
		return nil, fmt.Errorf("create chacha20: %w", err)
	}

	return &aeadCipher{alg: AlgorithmChaCha20, aead: aead}, nil
}
