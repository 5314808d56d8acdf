package main

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowgate/internal/flowcrypto"
)

func envLines(t *testing.T, out string) map[string]string {
	t.Helper()
	lines := map[string]string{}
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		if k, v, ok := strings.Cut(sc.Text(), "="); ok && !strings.HasPrefix(k, "#") {
			lines[k] = v
		}
	}
	return lines
}

func TestGenerate(t *testing.T) {
	t.Run("plain key pair loads back", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, run([]string{"generate"}, &out))

		env := envLines(t, out.String())
		key, err := flowcrypto.LoadPrivateKey(env["WHATSAPP_PRIVATE_KEY"], "")
		require.NoError(t, err)
		assert.Equal(t, 2048, key.N.BitLen())

		pemText, err := flowcrypto.PublicKeyPEM(env["WHATSAPP_PUBLIC_KEY"])
		require.NoError(t, err)
		assert.Contains(t, pemText, "BEGIN PUBLIC KEY")
	})

	t.Run("passphrase protects the private key", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, run([]string{"generate", "--passphrase", "s3cret"}, &out))

		env := envLines(t, out.String())
		raw, err := base64.StdEncoding.DecodeString(env["WHATSAPP_PRIVATE_KEY"])
		require.NoError(t, err)
		assert.Contains(t, string(raw), "ENCRYPTED PRIVATE KEY")

		_, err = flowcrypto.LoadPrivateKey(env["WHATSAPP_PRIVATE_KEY"], "s3cret")
		assert.NoError(t, err)
		assert.Contains(t, out.String(), "WHATSAPP_PRIVATE_KEY_PASSPHRASE")
	})

	t.Run("rejects weak keys", func(t *testing.T) {
		assert.Error(t, run([]string{"generate", "--bits", "1024"}, &bytes.Buffer{}))
	})
}

func TestUpload(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotKey = r.PostForm.Get("business_public_key")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	var keys bytes.Buffer
	require.NoError(t, run([]string{"generate"}, &keys))
	public := envLines(t, keys.String())["WHATSAPP_PUBLIC_KEY"]

	t.Setenv("WHATSAPP_GRAPH_URL", srv.URL)
	t.Setenv("WHATSAPP_ACCESS_TOKEN", "token")
	t.Setenv("WHATSAPP_PUBLIC_KEY", public)

	var out bytes.Buffer
	require.NoError(t, run([]string{"upload", "--phone-number-id", "1234"}, &out))
	assert.Contains(t, gotKey, "BEGIN PUBLIC KEY")
	assert.Contains(t, out.String(), `{"success":true}`)
}

func TestUnknownSubcommand(t *testing.T) {
	assert.Error(t, run(nil, &bytes.Buffer{}))
	assert.Error(t, run([]string{"rotate"}, &bytes.Buffer{}))
	assert.NoError(t, run([]string{"help"}, &bytes.Buffer{}))
}
