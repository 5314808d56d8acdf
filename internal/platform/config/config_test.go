package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults when unset", func(t *testing.T) {
		t.Setenv("FLOWGATE_ADDR", "")
		t.Setenv("WHATSAPP_GRAPH_VERSION", "")
		t.Setenv("DIRECTORY_API_URL", "")
		t.Setenv("DIRECTORY_TIMEOUT", "")
		t.Setenv("WHATSAPP_ACCESS_TOKEN", "")

		cfg := FromEnv()

		assert.Equal(t, DefaultAddr, cfg.Server.Addr)
		assert.Equal(t, DefaultGraphVersion, cfg.WhatsApp.GraphVersion)
		assert.Equal(t, DefaultGraphURL, cfg.WhatsApp.GraphURL)
		assert.Equal(t, DefaultDirectoryURL, cfg.Directory.BaseURL)
		assert.Equal(t, 15*time.Second, cfg.Directory.Timeout)
		assert.False(t, cfg.WhatsApp.MessagingConfigured())
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("FLOWGATE_ADDR", ":9090")
		t.Setenv("WHATSAPP_ACCESS_TOKEN", "token")
		t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "12345")
		t.Setenv("DIRECTORY_EMAIL", "bot@example.com")
		t.Setenv("DIRECTORY_PASSWORD", "secret")
		t.Setenv("DIRECTORY_TIMEOUT", "2s")
		t.Setenv("REDIS_POOL_SIZE", "25")

		cfg := FromEnv()

		assert.Equal(t, ":9090", cfg.Server.Addr)
		assert.True(t, cfg.WhatsApp.MessagingConfigured())
		assert.True(t, cfg.Directory.Configured())
		assert.Equal(t, 2*time.Second, cfg.Directory.Timeout)
		assert.Equal(t, 25, cfg.Redis.PoolSize)
	})

	t.Run("malformed numbers fall back", func(t *testing.T) {
		t.Setenv("DIRECTORY_TIMEOUT", "soon")
		t.Setenv("REDIS_POOL_SIZE", "-3")

		cfg := FromEnv()

		assert.Equal(t, 15*time.Second, cfg.Directory.Timeout)
		assert.Equal(t, 10, cfg.Redis.PoolSize)
	})
}
