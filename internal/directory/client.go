// Package directory is the client for the Terrago user directory API:
// phone lookups, role resolution and guardian/dependant registration.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"flowgate/internal/directory/credentials"
	"flowgate/internal/platform/config"
	"flowgate/internal/platform/metrics"
	"flowgate/pkg/platform/sentinel"
	"flowgate/pkg/requestcontext"
)

// ParentRoleName is the directory role assigned to registered guardians.
const ParentRoleName = "Parent"

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 1 << 20

// Client talks to the directory API. Authenticated calls are retried once
// with a fresh token when the directory answers 401; nothing else is retried
// because registration has no idempotency key.
type Client struct {
	baseURL      string
	email        string
	password     string
	parentRoleID string

	httpClient *http.Client
	creds      *credentials.Cache
	store      credentials.Store
	now        func() time.Time
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithHTTPClient replaces the default client built from the configured timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCredentialStore shares cached credentials through store, e.g. Redis.
func WithCredentialStore(store credentials.Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithClock overrides the clock used for credential expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New builds a Client from the directory configuration.
func New(cfg config.Directory, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		email:        cfg.Email,
		password:     cfg.Password,
		parentRoleID: cfg.ParentRoleID,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		now:          time.Now,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:       otel.Tracer("flowgate/internal/directory"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.creds = credentials.NewCache(c.store, c.Login,
		credentials.WithLogger(c.logger),
		credentials.WithMetrics(c.metrics),
		credentials.WithClock(c.now),
	)
	return c
}

// Login exchanges the service credentials for a bearer token.
func (c *Client) Login(ctx context.Context) (*credentials.Grant, error) {
	if c.baseURL == "" || c.email == "" || c.password == "" {
		return nil, fmt.Errorf("directory credentials: %w", sentinel.ErrNotConfigured)
	}

	ctx, span := c.tracer.Start(ctx, "directory.login")
	defer span.End()
	start := time.Now()

	body := map[string]string{"email": c.email, "password": c.password}
	status, raw, err := c.send(ctx, http.MethodPost, "/auth/access-token", body, "")
	c.metrics.ObserveDirectoryCall("login", status, time.Since(start))
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if !isSuccess(status) {
		err := &APIError{Op: "login", StatusCode: status, Body: string(raw)}
		c.logger.ErrorContext(ctx, "directory login failed",
			"request_id", requestcontext.RequestID(ctx),
			"status", status,
			"response", string(raw),
		)
		recordSpanError(span, err)
		return nil, err
	}

	var resp envelope[loginData]
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("directory: decode login response: %w", err)
	}
	if resp.Data.AccessToken == "" {
		return nil, fmt.Errorf("directory: login response carried no access token")
	}

	c.logger.InfoContext(ctx, "directory access token issued",
		"request_id", requestcontext.RequestID(ctx),
		"token_type", resp.Data.TokenType,
		"expires_in", resp.Data.ExpiresIn,
	)
	return &credentials.Grant{
		Token:    resp.Data.AccessToken,
		Lifetime: time.Duration(resp.Data.ExpiresIn) * time.Second,
	}, nil
}

// GetUserByPhone looks a user up by phone number. A 404 is reported as
// found == false with a nil error.
func (c *Client) GetUserByPhone(ctx context.Context, phone string) (*User, bool, error) {
	raw, err := c.do(ctx, "get_user_by_phone", http.MethodGet, "/users/show-by-phone/"+url.PathEscape(phone), nil)
	if IsNotFound(err) {
		c.logger.InfoContext(ctx, "directory user not found",
			"request_id", requestcontext.RequestID(ctx),
			"phone", phone,
		)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var resp envelope[User]
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false, fmt.Errorf("directory: decode user: %w", err)
	}
	c.logger.InfoContext(ctx, "directory user found",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", resp.Data.ID,
	)
	return &resp.Data, true, nil
}

// GetRoles returns the cached role table, refreshing it when stale or forced.
func (c *Client) GetRoles(ctx context.Context, force bool) (*credentials.RoleTable, error) {
	return c.creds.Roles(ctx, force, c.fetchRoles)
}

func (c *Client) fetchRoles(ctx context.Context) (map[string]string, error) {
	raw, err := c.do(ctx, "get_roles", http.MethodGet, "/roles", nil)
	if err != nil {
		return nil, err
	}
	var resp envelope[[]roleData]
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("directory: decode roles: %w", err)
	}
	ids := make(map[string]string, len(resp.Data))
	for _, r := range resp.Data {
		ids[r.Name] = string(r.ID)
	}
	c.logger.InfoContext(ctx, "directory roles loaded",
		"request_id", requestcontext.RequestID(ctx),
		"total_roles", len(ids),
	)
	return ids, nil
}

// GetRoleIDByName resolves a role name case-insensitively. Lookup failures
// are logged and reported as not found.
func (c *Client) GetRoleIDByName(ctx context.Context, name string) (string, bool) {
	roles, err := c.GetRoles(ctx, false)
	if err != nil {
		c.logger.ErrorContext(ctx, "no directory roles available",
			"request_id", requestcontext.RequestID(ctx),
			"role_name", name,
			"error", err,
		)
		return "", false
	}
	id, ok := roles.Lookup(name)
	if !ok {
		c.logger.WarnContext(ctx, "directory role not found",
			"request_id", requestcontext.RequestID(ctx),
			"role_name", name,
		)
	}
	return id, ok
}

// RoleMapping returns role name to id, empty when roles are unavailable.
func (c *Client) RoleMapping(ctx context.Context) map[string]string {
	roles, err := c.GetRoles(ctx, false)
	if err != nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(roles.IDs))
	for name, id := range roles.IDs {
		out[name] = id
	}
	return out
}

// RegisterGuardian creates the guardian account with the Parent role.
func (c *Client) RegisterGuardian(ctx context.Context, in GuardianInput) (*Guardian, error) {
	roleID, ok := c.GetRoleIDByName(ctx, ParentRoleName)
	if !ok {
		roleID = c.parentRoleID
		c.logger.WarnContext(ctx, "using fallback parent role id",
			"request_id", requestcontext.RequestID(ctx),
			"role_id", roleID,
		)
	}

	raw, err := c.do(ctx, "register_guardian", http.MethodPost, "/users/register", newGuardianPayload(in, roleID))
	if err != nil {
		return nil, err
	}
	var resp envelope[Guardian]
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("directory: decode guardian: %w", err)
	}
	c.logger.InfoContext(ctx, "guardian registered",
		"request_id", requestcontext.RequestID(ctx),
		"guardian_id", resp.Data.ID,
	)
	return &resp.Data, nil
}

// RegisterDependant creates a child record under parentID.
func (c *Client) RegisterDependant(ctx context.Context, in DependantInput, parentID ID) (*Dependant, error) {
	raw, err := c.do(ctx, "register_dependant", http.MethodPost, "/dependants/add", newDependantPayload(in, string(parentID)))
	if err != nil {
		return nil, err
	}
	var resp envelope[Dependant]
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("directory: decode dependant: %w", err)
	}
	c.logger.InfoContext(ctx, "dependant registered",
		"request_id", requestcontext.RequestID(ctx),
		"parent_id", parentID,
		"dependant_id", resp.Data.ID,
	)
	return &resp.Data, nil
}

// do runs one authenticated call. A 401 triggers a forced token refresh and
// exactly one retry; any other non-2xx becomes an *APIError.
func (c *Client) do(ctx context.Context, op, method, path string, body any) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "directory."+op, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("directory.op", op),
	))
	defer span.End()
	start := time.Now()

	status, raw, err := c.attempt(ctx, method, path, body, false)
	if err == nil && status == http.StatusUnauthorized {
		c.logger.InfoContext(ctx, "directory token rejected, refreshing",
			"request_id", requestcontext.RequestID(ctx),
			"op", op,
		)
		span.AddEvent("token_refresh")
		status, raw, err = c.attempt(ctx, method, path, body, true)
	}
	c.metrics.ObserveDirectoryCall(op, status, time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", status))

	if err != nil {
		c.logger.ErrorContext(ctx, "directory request failed",
			"request_id", requestcontext.RequestID(ctx),
			"op", op,
			"error", err,
		)
		recordSpanError(span, err)
		return nil, err
	}
	if !isSuccess(status) {
		apiErr := &APIError{Op: op, StatusCode: status, Body: string(raw)}
		if status != http.StatusNotFound {
			c.logger.ErrorContext(ctx, "directory returned error",
				"request_id", requestcontext.RequestID(ctx),
				"op", op,
				"status", status,
				"response", string(raw),
			)
			recordSpanError(span, apiErr)
		}
		return nil, apiErr
	}
	return raw, nil
}

func (c *Client) attempt(ctx context.Context, method, path string, body any, forceRefresh bool) (int, []byte, error) {
	token, err := c.creds.Token(ctx, forceRefresh)
	if err != nil {
		return 0, nil, fmt.Errorf("directory: access token: %w", err)
	}
	return c.send(ctx, method, path, body, token.Value)
}

// send performs one HTTP exchange and returns the status and raw body.
func (c *Client) send(ctx context.Context, method, path string, body any, token string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("directory: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("directory: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("directory: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("directory: read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
