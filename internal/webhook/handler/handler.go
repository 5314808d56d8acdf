// Package handler exposes the WhatsApp webhook and Flow endpoints over chi.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"

	"flowgate/internal/flowcrypto"
	"flowgate/internal/platform/metrics"
	"flowgate/internal/platform/middleware"
	"flowgate/internal/webhook/service"
	dErrors "flowgate/pkg/domain-errors"
	"flowgate/pkg/platform/httputil"
)

// Acknowledgment is the body every delivery receives.
const Acknowledgment = "EVENT_RECEIVED"

const (
	maxDeliveryBody = 1 << 20
	requestTimeout  = 30 * time.Second
)

// Service defines the webhook operations the handler needs.
type Service interface {
	Verify(mode, token, challenge string) (string, error)
	HandleDelivery(ctx context.Context, evt service.Event) error
	ExchangeFlow(ctx context.Context, env flowcrypto.Envelope) (string, error)
}

// Handler serves the webhook routes.
type Handler struct {
	logger    *slog.Logger
	webhook   Service
	metrics   *metrics.Metrics
	appSecret string
	publicKey string
}

// New creates a webhook Handler. An empty appSecret disables delivery
// signature checks; an empty publicKey makes the key endpoint return 404.
func New(
	webhook Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	appSecret string,
	publicKey string) *Handler {
	return &Handler{
		logger:    logger,
		webhook:   webhook,
		metrics:   metrics,
		appSecret: appSecret,
		publicKey: publicKey,
	}
}

// Register mounts the webhook routes on r.
func (h *Handler) Register(r chi.Router) {
	webhookRouter := chi.NewRouter()
	webhookRouter.Use(middleware.Recovery(h.logger))
	webhookRouter.Use(middleware.RequestID)
	webhookRouter.Use(middleware.Logger(h.logger))
	webhookRouter.Use(middleware.Timeout(requestTimeout))
	webhookRouter.Use(middleware.LatencyMiddleware(h.metrics))
	webhookRouter.Get("/", h.handleVerify)
	webhookRouter.With(middleware.RequireSignature(h.appSecret, h.logger)).Post("/", h.handleDelivery)
	webhookRouter.Post("/validation", h.handleFlowExchange)
	webhookRouter.Get("/public-key", h.handlePublicKey)

	r.Mount("/webhook", webhookRouter)
}

// handleVerify answers the subscription handshake with the raw challenge.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	challenge, err := h.webhook.Verify(
		firstOf(q.Get("hub_mode"), q.Get("hub.mode")),
		firstOf(q.Get("hub_verify_token"), q.Get("hub.verify_token")),
		firstOf(q.Get("hub_challenge"), q.Get("hub.challenge")),
	)
	if err != nil {
		h.logger.WarnContext(ctx, "webhook verification rejected",
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteText(w, http.StatusOK, challenge)
}

// handleDelivery always acknowledges. Failures, including panics, are
// logged with their kind and never change the response.
func (h *Handler) handleDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	if err := h.deliver(r); err != nil {
		kind := service.Classify(err)
		var pe *panicError
		if dErrors.As(err, &pe) {
			kind = service.FailurePanic
		}
		h.logger.ErrorContext(ctx, "webhook delivery failed",
			"request_id", requestID,
			"kind", string(kind),
			"error", err,
		)
		h.metrics.IncrementWebhookFailure(string(kind))
	}
	httputil.WriteText(w, http.StatusOK, Acknowledgment)
}

type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

func (h *Handler) deliver(r *http.Request) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pe := &panicError{value: rec, stack: debug.Stack()}
			h.logger.ErrorContext(r.Context(), "panic while handling delivery",
				"request_id", middleware.GetRequestID(r.Context()),
				"stack", string(pe.stack),
			)
			err = pe
		}
	}()

	var evt service.Event
	if err := json.NewDecoder(io.LimitReader(r.Body, maxDeliveryBody)).Decode(&evt); err != nil {
		return fmt.Errorf("%w: decode delivery: %w", service.ErrMalformedEvent, err)
	}
	return h.webhook.HandleDelivery(r.Context(), evt)
}

// handleFlowExchange serves the encrypted Flow data endpoint. The reply is
// a bare base64 string; failures get a generic JSON error.
func (h *Handler) handleFlowExchange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var env flowcrypto.Envelope
	if err := json.NewDecoder(io.LimitReader(r.Body, maxDeliveryBody)).Decode(&env); err != nil {
		h.logger.WarnContext(ctx, "invalid flow exchange body",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	encoded, err := h.webhook.ExchangeFlow(ctx, env)
	if err != nil {
		h.logger.ErrorContext(ctx, "flow exchange failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "internal server error"))
		return
	}
	httputil.WriteText(w, http.StatusOK, encoded)
}

// handlePublicKey returns the PEM public key registered with the platform.
func (h *Handler) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	if h.publicKey == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "public key not configured"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"public_key": h.publicKey})
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
