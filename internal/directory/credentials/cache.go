// Package credentials caches the directory API bearer token and role table.
package credentials

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"flowgate/internal/platform/metrics"
	"flowgate/pkg/platform/sentinel"
	"flowgate/pkg/requestcontext"
)

const (
	// ExpiryMargin is subtracted from the declared token lifetime.
	ExpiryMargin = 5 * time.Minute
	// DefaultLifetime applies when the login response omits one.
	DefaultLifetime = time.Hour
	// RolesTTL is how long a fetched role table is reused.
	RolesTTL = 24 * time.Hour
)

// Store persists the cached records.
type Store interface {
	Token(ctx context.Context) (*AccessToken, error)
	SaveToken(ctx context.Context, t *AccessToken) error
	Roles(ctx context.Context) (*RoleTable, error)
	SaveRoles(ctx context.Context, r *RoleTable) error
}

// Grant is the result of one login exchange.
type Grant struct {
	Token    string
	Lifetime time.Duration
}

// LoginFunc exchanges the service credentials for a token.
type LoginFunc func(ctx context.Context) (*Grant, error)

// FetchRolesFunc loads the full role table from the directory.
type FetchRolesFunc func(ctx context.Context) (map[string]string, error)

// Cache returns cached credentials and refreshes them when stale.
// No lock is held across refreshes; overlapping callers each log in and
// the store keeps whichever record is written last.
type Cache struct {
	store   Store
	login   LoginFunc
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Cache.
type Option func(*Cache)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithClock overrides the wall clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache builds a Cache over store. A nil store gets a MemoryStore.
func NewCache(store Store, login LoginFunc, opts ...Option) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Cache{
		store:  store,
		login:  login,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns a valid token, logging in again when none is cached, the
// cached one has expired, or force is set.
func (c *Cache) Token(ctx context.Context, force bool) (*AccessToken, error) {
	if !force {
		if t := c.cachedToken(ctx); t.Valid(c.now()) {
			return t, nil
		}
	}

	grant, err := c.login(ctx)
	if err != nil {
		return nil, err
	}
	lifetime := grant.Lifetime
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	t := &AccessToken{Value: grant.Token, ExpiresAt: c.now().Add(usableLifetime(lifetime))}

	if err := c.store.SaveToken(ctx, t); err != nil {
		c.logger.WarnContext(ctx, "failed to store directory token",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	c.metrics.IncrementCredentialRefresh("token")
	c.logger.DebugContext(ctx, "directory token refreshed",
		"request_id", requestcontext.RequestID(ctx),
		"forced", force,
		"expires_at", t.ExpiresAt,
	)
	return t, nil
}

// usableLifetime subtracts ExpiryMargin, or half the lifetime when the
// token is too short-lived for the full margin.
func usableLifetime(lifetime time.Duration) time.Duration {
	if lifetime <= ExpiryMargin {
		return lifetime / 2
	}
	return lifetime - ExpiryMargin
}

// Roles returns the role table, calling fetch when it is missing, stale or
// force is set.
func (c *Cache) Roles(ctx context.Context, force bool, fetch FetchRolesFunc) (*RoleTable, error) {
	if !force {
		if r := c.cachedRoles(ctx); r.Valid(c.now()) {
			return r, nil
		}
	}

	ids, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	r := NewRoleTable(ids, c.now().Add(RolesTTL))

	if err := c.store.SaveRoles(ctx, r); err != nil {
		c.logger.WarnContext(ctx, "failed to store directory roles",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	c.metrics.IncrementCredentialRefresh("roles")
	return r, nil
}

// cachedToken treats store failures as a miss.
func (c *Cache) cachedToken(ctx context.Context) *AccessToken {
	t, err := c.store.Token(ctx)
	if err != nil {
		c.logStoreMiss(ctx, "token", err)
		return nil
	}
	return t
}

func (c *Cache) cachedRoles(ctx context.Context) *RoleTable {
	r, err := c.store.Roles(ctx)
	if err != nil {
		c.logStoreMiss(ctx, "roles", err)
		return nil
	}
	return r
}

func (c *Cache) logStoreMiss(ctx context.Context, kind string, err error) {
	if errors.Is(err, sentinel.ErrNotFound) {
		return
	}
	c.logger.WarnContext(ctx, "credential store read failed",
		"request_id", requestcontext.RequestID(ctx),
		"kind", kind,
		"error", err,
	)
}
