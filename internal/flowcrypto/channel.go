package flowcrypto

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Envelope is the encrypted body of a Flow data-exchange request.
type Envelope struct {
	EncryptedAESKey   string `json:"encrypted_aes_key"`
	EncryptedFlowData string `json:"encrypted_flow_data"`
	InitialVector     string `json:"initial_vector"`
}

// Material is the symmetric key and IV recovered from one envelope.
// It lives only for the request that produced it.
type Material struct {
	Key []byte
	IV  []byte
}

// ResponseNonce is the nonce used to encrypt the reply.
func (m *Material) ResponseNonce() []byte {
	return FlipIV(m.IV)
}

// Channel decrypts Flow requests with the service's private key and
// encrypts the matching responses.
type Channel struct {
	key *rsa.PrivateKey
}

// New returns a Channel bound to key.
func New(key *rsa.PrivateKey) *Channel {
	return &Channel{key: key}
}

// DecryptRequest unwraps the AES key, authenticates the payload and
// unmarshals it into dst. Every failure wraps ErrCrypto.
func (c *Channel) DecryptRequest(env Envelope, dst any) (*Material, error) {
	wrappedKey, err := decodeField("encrypted_aes_key", env.EncryptedAESKey)
	if err != nil {
		return nil, err
	}
	sealed, err := decodeField("encrypted_flow_data", env.EncryptedFlowData)
	if err != nil {
		return nil, err
	}
	iv, err := decodeField("initial_vector", env.InitialVector)
	if err != nil {
		return nil, err
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w: initial_vector must be %d bytes, got %d", ErrCrypto, IVSize, len(iv))
	}

	key, err := rsa.DecryptOAEP(sha256.New(), nil, c.key, wrappedKey, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: unwrap aes key: %w", ErrCrypto, err)
	}

	plaintext, err := Open(key, iv, sealed)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(plaintext, dst); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %w", ErrCrypto, err)
	}
	return &Material{Key: key, IV: iv}, nil
}

// EncryptResponse marshals v, seals it under the flipped IV and returns the
// base64 body the platform expects.
func (c *Channel) EncryptResponse(v any, m *Material) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: encode response: %w", ErrCrypto, err)
	}
	sealed, err := Seal(m.Key, m.ResponseNonce(), plaintext)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func decodeField(name, value string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not base64: %w", ErrCrypto, name, err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrCrypto, name)
	}
	return b, nil
}
