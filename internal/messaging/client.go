// Package messaging sends outbound WhatsApp Cloud API messages.
package messaging

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

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"flowgate/internal/platform/config"
	"flowgate/internal/platform/metrics"
	"flowgate/pkg/platform/sentinel"
	"flowgate/pkg/requestcontext"
)

const (
	flowMessageVersion = "3"
	defaultFlowAction  = "navigate"
	defaultFlowCTA     = "Continue"
	maxBodyBytes       = 1 << 20
)

// Client sends messages from one business phone number.
type Client struct {
	graphURL      string
	version       string
	phoneNumberID string
	accessToken   string

	httpClient *http.Client
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

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New builds a Client from the WhatsApp configuration.
func New(cfg config.WhatsApp, opts ...Option) *Client {
	c := &Client{
		graphURL:      strings.TrimRight(cfg.GraphURL, "/"),
		version:       cfg.GraphVersion,
		phoneNumberID: cfg.PhoneNumberID,
		accessToken:   cfg.AccessToken,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:        otel.Tracer("flowgate/internal/messaging"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, to, body string, previewURL bool) (*Result, error) {
	return c.send(ctx, "text", outbound{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             &textBody{PreviewURL: previewURL, Body: body},
	})
}

// SendFlow sends an interactive Flow invitation.
func (c *Client) SendFlow(ctx context.Context, to string, msg FlowMessage) (*Result, error) {
	if msg.FlowToken == "" {
		msg.FlowToken = NewFlowToken()
	}
	if msg.Action == "" {
		msg.Action = defaultFlowAction
	}
	if msg.CTA == "" {
		msg.CTA = defaultFlowCTA
	}

	in := &interactive{
		Type: "flow",
		Body: textOnly{Text: msg.Body},
		Action: interaction{
			Name: "flow",
			Parameters: flowParameters{
				FlowMessageVersion: flowMessageVersion,
				FlowToken:          msg.FlowToken,
				FlowID:             msg.FlowID,
				FlowCTA:            msg.CTA,
				FlowAction:         msg.Action,
				FlowActionPayload:  msg.ActionPayload,
			},
		},
	}
	if msg.Header != "" {
		in.Header = &header{Type: "text", Text: msg.Header}
	}
	if msg.Footer != "" {
		in.Footer = &textOnly{Text: msg.Footer}
	}

	res, err := c.send(ctx, "flow", outbound{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "interactive",
		Interactive:      in,
	})
	if err != nil {
		return nil, err
	}
	res.FlowToken = msg.FlowToken
	return res, nil
}

// UploadPublicKey registers the Flow endpoint's public key for this number.
func (c *Client) UploadPublicKey(ctx context.Context, publicKeyPEM string) (*Result, error) {
	if err := c.configured(); err != nil {
		return nil, err
	}
	form := url.Values{"business_public_key": {publicKeyPEM}}
	status, raw, err := c.post(ctx, "whatsapp_business_encryption",
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &APIError{Op: "upload_public_key", StatusCode: status, Body: string(raw)}
	}
	return &Result{Success: true, Data: raw}, nil
}

// NewFlowToken returns an opaque correlation token for a Flow invitation.
func NewFlowToken() string {
	return "flow_" + uuid.NewString()
}

func (c *Client) configured() error {
	if c.accessToken == "" || c.phoneNumberID == "" {
		return fmt.Errorf("whatsapp credentials: %w", sentinel.ErrNotConfigured)
	}
	return nil
}

func (c *Client) send(ctx context.Context, kind string, msg outbound) (*Result, error) {
	requestID := requestcontext.RequestID(ctx)
	if err := c.configured(); err != nil {
		c.logger.ErrorContext(ctx, "whatsapp credentials not configured",
			"request_id", requestID,
			"kind", kind,
		)
		c.metrics.IncrementOutbound(kind, "not_configured")
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "messaging.send", trace.WithAttributes(
		attribute.String("messaging.kind", kind),
	))
	defer span.End()

	encoded, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("messaging: encode %s message: %w", kind, err)
	}
	status, raw, err := c.post(ctx, "messages", "application/json", bytes.NewReader(encoded))
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to send message",
			"request_id", requestID,
			"kind", kind,
			"to", msg.To,
			"error", err,
		)
		c.metrics.IncrementOutbound(kind, "failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if status < 200 || status >= 300 {
		apiErr := &APIError{Op: "send_" + kind, StatusCode: status, Body: string(raw)}
		c.logger.ErrorContext(ctx, "whatsapp rejected message",
			"request_id", requestID,
			"kind", kind,
			"to", msg.To,
			"status", status,
			"response", string(raw),
		)
		c.metrics.IncrementOutbound(kind, "rejected")
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, apiErr.Error())
		return nil, apiErr
	}

	res := &Result{Success: true, Data: raw}
	var parsed sendResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && len(parsed.Messages) > 0 {
		res.MessageID = parsed.Messages[0].ID
	}
	c.logger.InfoContext(ctx, "message sent",
		"request_id", requestID,
		"kind", kind,
		"to", msg.To,
		"message_id", res.MessageID,
	)
	c.metrics.IncrementOutbound(kind, "sent")
	return res, nil
}

func (c *Client) post(ctx context.Context, edge, contentType string, body io.Reader) (int, []byte, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/%s", c.graphURL, c.version, c.phoneNumberID, edge)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return 0, nil, fmt.Errorf("messaging: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("messaging: post %s: %w", edge, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("messaging: read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}
