package flowcrypto

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "flowgate/pkg/domain-errors"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestFlipIV(t *testing.T) {
	t.Run("every byte differs and flipping twice restores", func(t *testing.T) {
		for n := 0; n < 100; n++ {
			iv := randomBytes(t, IVSize)
			flipped := FlipIV(iv)

			require.Len(t, flipped, IVSize)
			for i := range iv {
				assert.Equal(t, iv[i]^0xFF, flipped[i])
				assert.NotEqual(t, iv[i], flipped[i])
			}
			assert.Equal(t, iv, FlipIV(flipped))
		}
	})

	t.Run("does not modify input", func(t *testing.T) {
		iv := bytes.Repeat([]byte{0x0F}, IVSize)
		_ = FlipIV(iv)
		assert.Equal(t, bytes.Repeat([]byte{0x0F}, IVSize), iv)
	})

	t.Run("known vector", func(t *testing.T) {
		iv := []byte{0x00, 0xFF, 0xA5, 0x5A, 0x01, 0x80, 0x7F, 0xFE, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
		want := []byte{0xFF, 0x00, 0x5A, 0xA5, 0xFE, 0x7F, 0x80, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
		assert.Equal(t, want, FlipIV(iv))
	})
}

func TestSealOpen(t *testing.T) {
	t.Run("round trips", func(t *testing.T) {
		for _, size := range []int{0, 1, 15, 16, 17, 1024} {
			key := randomBytes(t, KeySize)
			nonce := randomBytes(t, IVSize)
			plaintext := randomBytes(t, size)

			sealed, err := Seal(key, nonce, plaintext)
			require.NoError(t, err)
			assert.Len(t, sealed, size+TagSize)

			opened, err := Open(key, nonce, sealed)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(plaintext, opened))
		}
	})

	t.Run("any flipped byte fails authentication", func(t *testing.T) {
		key := randomBytes(t, KeySize)
		nonce := randomBytes(t, IVSize)
		sealed, err := Seal(key, nonce, []byte(`{"action":"ping"}`))
		require.NoError(t, err)

		for i := range sealed {
			tampered := bytes.Clone(sealed)
			tampered[i] ^= 0x01

			opened, err := Open(key, nonce, tampered)
			require.Error(t, err, "byte %d", i)
			assert.Nil(t, opened)
			assert.True(t, errors.Is(err, ErrCrypto))
		}
	})

	t.Run("wrong nonce fails", func(t *testing.T) {
		key := randomBytes(t, KeySize)
		nonce := randomBytes(t, IVSize)
		sealed, err := Seal(key, nonce, []byte("hello"))
		require.NoError(t, err)

		_, err = Open(key, FlipIV(nonce), sealed)
		require.ErrorIs(t, err, ErrCrypto)
	})

	t.Run("short input and bad key", func(t *testing.T) {
		_, err := Open(randomBytes(t, KeySize), randomBytes(t, IVSize), randomBytes(t, TagSize-1))
		require.ErrorIs(t, err, ErrCrypto)

		_, err = Seal(randomBytes(t, 16), randomBytes(t, IVSize), []byte("x"))
		require.ErrorIs(t, err, ErrCrypto)

		_, err = Seal(randomBytes(t, KeySize), nil, []byte("x"))
		require.ErrorIs(t, err, ErrCrypto)
	})

	t.Run("failures carry the crypto code", func(t *testing.T) {
		_, err := Open(randomBytes(t, KeySize), randomBytes(t, IVSize), randomBytes(t, 40))
		assert.Equal(t, dErrors.CodeCrypto, dErrors.CodeOf(err))
	})
}
