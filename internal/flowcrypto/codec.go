// Package flowcrypto implements the encrypted Flow data-exchange channel:
// an RSA-OAEP wrapped AES-256 key and AES-GCM payloads whose response nonce
// is the bitwise complement of the request IV.
package flowcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	dErrors "flowgate/pkg/domain-errors"
)

const (
	// KeySize is the AES-256 key length unwrapped from the envelope.
	KeySize = 32
	// IVSize is the initial vector length the platform sends.
	IVSize = 16
	// TagSize is the GCM authentication tag appended to every ciphertext.
	TagSize = 16
)

// ErrCrypto marks every failure of the channel. The exchange cannot be
// answered once it occurs.
var ErrCrypto = dErrors.New(dErrors.CodeCrypto, "flow payload could not be processed")

// FlipIV returns a copy of iv with every bit inverted.
func FlipIV(iv []byte) []byte {
	flipped := make([]byte, len(iv))
	for i, b := range iv {
		flipped[i] = ^b
	}
	return flipped
}

// Seal encrypts plaintext with AES-GCM and returns ciphertext || tag.
func Seal(key, nonce, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key, nonce)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// Open authenticates and decrypts ciphertext || tag.
func Open(key, nonce, sealed []byte) ([]byte, error) {
	if len(sealed) < TagSize {
		return nil, fmt.Errorf("%w: sealed data shorter than tag", ErrCrypto)
	}
	aead, err := newGCM(key, nonce)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCrypto, err)
	}
	return plaintext, nil
}

func newGCM(key, nonce []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrCrypto, KeySize, len(key))
	}
	if len(nonce) == 0 {
		return nil, fmt.Errorf("%w: empty nonce", ErrCrypto)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCrypto, err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, len(nonce))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCrypto, err)
	}
	return aead, nil
}
