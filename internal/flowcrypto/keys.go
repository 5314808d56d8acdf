package flowcrypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/youmark/pkcs8"

	"flowgate/pkg/platform/sentinel"
)

// LoadPrivateKey parses the configured private key. The value is a
// base64-encoded PEM (raw PEM is also accepted). PKCS#1, PKCS#8, legacy
// OpenSSL-encrypted PEM and encrypted PKCS#8 are supported.
func LoadPrivateKey(encoded, passphrase string) (*rsa.PrivateKey, error) {
	if strings.TrimSpace(encoded) == "" {
		return nil, fmt.Errorf("private key: %w", sentinel.ErrNotConfigured)
	}
	block, err := decodePEM(encoded)
	if err != nil {
		return nil, err
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		der := block.Bytes
		//nolint:staticcheck // "Proc-Type: 4,ENCRYPTED" keys
		if x509.IsEncryptedPEMBlock(block) {
			//nolint:staticcheck
			der, err = x509.DecryptPEMBlock(block, []byte(passphrase))
			if err != nil {
				return nil, fmt.Errorf("%w: decrypt pem: %w", ErrCrypto, err)
			}
		}
		key, err := x509.ParsePKCS1PrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("%w: parse pkcs1: %w", ErrCrypto, err)
		}
		return key, nil

	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse pkcs8: %w", ErrCrypto, err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: private key is %T, want RSA", ErrCrypto, parsed)
		}
		return key, nil

	case "ENCRYPTED PRIVATE KEY":
		if passphrase == "" {
			return nil, fmt.Errorf("private key passphrase: %w", sentinel.ErrNotConfigured)
		}
		key, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("%w: decrypt pkcs8: %w", ErrCrypto, err)
		}
		return key, nil

	default:
		return nil, fmt.Errorf("%w: unsupported pem block %q", ErrCrypto, block.Type)
	}
}

// PublicKeyPEM returns the PEM text of a configured base64 public key.
func PublicKeyPEM(encoded string) (string, error) {
	if strings.TrimSpace(encoded) == "" {
		return "", fmt.Errorf("public key: %w", sentinel.ErrNotConfigured)
	}
	block, err := decodePEM(encoded)
	if err != nil {
		return "", err
	}
	if _, err := x509.ParsePKIXPublicKey(block.Bytes); err != nil {
		return "", fmt.Errorf("%w: parse public key: %w", ErrCrypto, err)
	}
	return string(pem.EncodeToMemory(block)), nil
}

// EncodePublicKey renders pub as a PKIX "PUBLIC KEY" PEM.
func EncodePublicKey(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// EncodePrivateKey renders key as PKCS#8 PEM, encrypted when passphrase is set.
func EncodePrivateKey(key *rsa.PrivateKey, passphrase string) (string, error) {
	if passphrase != "" {
		der, err := pkcs8.MarshalPrivateKey(key, []byte(passphrase), nil)
		if err != nil {
			return "", fmt.Errorf("encrypt private key: %w", err)
		}
		return string(pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: der})), nil
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", fmt.Errorf("marshal private key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})), nil
}

// GenerateKey creates a fresh RSA key pair for the Flow endpoint.
func GenerateKey(bits int) (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, bits)
}

func decodePEM(encoded string) (*pem.Block, error) {
	raw := []byte(strings.TrimSpace(encoded))
	if !strings.HasPrefix(string(raw), "-----BEGIN") {
		decoded, err := base64.StdEncoding.DecodeString(string(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: key is neither PEM nor base64 PEM: %w", ErrCrypto, err)
		}
		raw = decoded
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrCrypto)
	}
	return block, nil
}
