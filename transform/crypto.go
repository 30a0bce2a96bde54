package transform

import (
	"github.com/kbukum/bufferstream/bufferstream"
	"github.com/kbukum/bufferstream/encryption"
	"github.com/kbukum/bufferstream/errors"
)

// Seal encrypts the whole aggregate with c. No data seals an empty buffer.
func Seal(c encryption.Cipher) bufferstream.TransformFunc {
	return Bytes(func(in []byte) ([]byte, error) {
		return c.Seal(in)
	})
}

// Open decrypts output of Seal. Authentication failures raise INVALID_INPUT.
func Open(c encryption.Cipher) bufferstream.TransformFunc {
	return Bytes(func(in []byte) ([]byte, error) {
		out, err := c.Open(in)
		if err != nil {
			return nil, errors.InvalidInput("ciphertext", err.Error()).WithCause(err)
		}
		return out, nil
	})
}
