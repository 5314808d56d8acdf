package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"flowgate/pkg/platform/sentinel"
)

const (
	defaultKeyPrefix = "flowgate:directory:"
	tokenKey         = "token"
	rolesKey         = "roles"
)

// RedisStore shares one directory identity between instances. Each record
// is a JSON value whose key expires with the record.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix namespaces the keys, e.g. per environment.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithRedisClock overrides the clock used to compute key TTLs.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) {
		s.now = now
	}
}

// NewRedisStore builds a store on an existing client.
func NewRedisStore(client redis.Cmdable, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: defaultKeyPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Token(ctx context.Context) (*AccessToken, error) {
	var t AccessToken
	if err := s.get(ctx, tokenKey, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *RedisStore) SaveToken(ctx context.Context, t *AccessToken) error {
	return s.set(ctx, tokenKey, t, t.ExpiresAt)
}

func (s *RedisStore) Roles(ctx context.Context) (*RoleTable, error) {
	var r RoleTable
	if err := s.get(ctx, rolesKey, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RedisStore) SaveRoles(ctx context.Context, r *RoleTable) error {
	return s.set(ctx, rolesKey, r, r.ExpiresAt)
}

func (s *RedisStore) get(ctx context.Context, key string, dst any) error {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// set writes v with a TTL matching expiresAt. Records already past expiry
// are not written.
func (s *RedisStore) set(ctx context.Context, key string, v any, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
