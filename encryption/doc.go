// Package encryption seals whole buffers with an AEAD cipher.
//
// Keys are derived from passphrases with SHA-256. AES-256-GCM is the
// default; ChaCha20-Poly1305 comes from golang.org/x/crypto.
//
// # Usage
//
//	c, err := encryption.New("my-secret-passphrase", encryption.WithAlgorithm(encryption.AlgorithmChaCha20))
//	sealed, err := c.Seal(plaintext)
//	plaintext, err := c.Open(sealed)
package encryption
