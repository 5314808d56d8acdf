//go:build integration

// Package containers starts throwaway backing services for integration tests.
package containers

import (
	"context"
	"testing"
	"time"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"flowgate/internal/platform/config"
	platformredis "flowgate/internal/platform/redis"
)

const redisImage = "redis:7-alpine"

// Redis is a disposable Redis server reached through the same client
// constructor the server uses.
type Redis struct {
	*platformredis.Client
	URL string
}

// StartRedis runs a Redis container for the lifetime of t.
func StartRedis(t *testing.T) *Redis {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcredis.Run(ctx, redisImage)
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("redis connection string: %v", err)
	}

	client, err := platformredis.New(ctx, config.RedisConfig{URL: url, DialTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return &Redis{Client: client, URL: url}
}

// Reset drops every key so tests sharing a container start clean.
func (r *Redis) Reset(ctx context.Context) error {
	return r.FlushAll(ctx).Err()
}
