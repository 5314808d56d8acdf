// Package service routes inbound WhatsApp deliveries and Flow data exchanges.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"flowgate/internal/catalog"
	"flowgate/internal/directory"
	"flowgate/internal/flowcrypto"
	"flowgate/internal/messaging"
	"flowgate/internal/platform/metrics"
	"flowgate/internal/wizard"
	dErrors "flowgate/pkg/domain-errors"
	"flowgate/pkg/platform/sentinel"
	"flowgate/pkg/requestcontext"
)

type Directory interface {
	GetUserByPhone(ctx context.Context, phone string) (*directory.User, bool, error)
	RegisterGuardian(ctx context.Context, in directory.GuardianInput) (*directory.Guardian, error)
	RegisterDependant(ctx context.Context, in directory.DependantInput, parentID directory.ID) (*directory.Dependant, error)
}

type Messenger interface {
	SendText(ctx context.Context, to, body string, previewURL bool) (*messaging.Result, error)
	SendFlow(ctx context.Context, to string, msg messaging.FlowMessage) (*messaging.Result, error)
}

type Wizard interface {
	Handle(ctx context.Context, req wizard.Request) wizard.Response
}

type Channel interface {
	DecryptRequest(env flowcrypto.Envelope, dst any) (*flowcrypto.Material, error)
	EncryptResponse(v any, material *flowcrypto.Material) (string, error)
}

// FailureKind labels why a delivery did not complete cleanly.
type FailureKind string

const (
	FailureExternalAPI    FailureKind = "external_api"
	FailureConfiguration  FailureKind = "configuration"
	FailureMalformedEvent FailureKind = "malformed_event"
	FailurePanic          FailureKind = "panic"
)

var (
	ErrVerificationFailed = dErrors.New(dErrors.CodeForbidden, "webhook verification failed")
	ErrMalformedEvent     = errors.New("malformed event")
	ErrChannelUnavailable = dErrors.Wrap(sentinel.ErrNotConfigured, dErrors.CodeNotConfigured, "flow encryption is not configured")
)

// Classify maps a delivery error to its failure kind.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, sentinel.ErrNotConfigured):
		return FailureConfiguration
	case errors.Is(err, ErrMalformedEvent):
		return FailureMalformedEvent
	default:
		return FailureExternalAPI
	}
}

// Config holds the orchestrator's static settings.
type Config struct {
	VerifyToken string
	FlowID      string
}

// Service is the webhook orchestrator. It holds no per-conversation state.
type Service struct {
	directory Directory
	messenger Messenger
	wizard    Wizard
	channel   Channel
	catalog   catalog.Provider
	cfg       Config

	logger       *slog.Logger
	metrics      *metrics.Metrics
	sessionToken func() string
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithChannel enables encrypted Flow data exchange.
func WithChannel(ch Channel) Option {
	return func(s *Service) {
		s.channel = ch
	}
}

// WithSessionTokens overrides the Flow invitation token generator.
func WithSessionTokens(fn func() string) Option {
	return func(s *Service) {
		s.sessionToken = fn
	}
}

func New(dir Directory, messenger Messenger, wiz Wizard, schools catalog.Provider, cfg Config, opts ...Option) *Service {
	s := &Service{
		directory:    dir,
		messenger:    messenger,
		wizard:       wiz,
		catalog:      schools,
		cfg:          cfg,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		sessionToken: newSessionToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newSessionToken() string {
	return "guardian-" + uuid.NewString() + "-session"
}

// Verify answers the platform's subscription handshake.
func (s *Service) Verify(mode, token, challenge string) (string, error) {
	if mode != "subscribe" || s.cfg.VerifyToken == "" {
		return "", ErrVerificationFailed
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.VerifyToken)) != 1 {
		return "", ErrVerificationFailed
	}
	return challenge, nil
}

// HandleDelivery processes one webhook event. Deliveries without a message
// are a no-op. A returned error has already been answered to the user where
// possible; callers log it and still acknowledge the delivery.
func (s *Service) HandleDelivery(ctx context.Context, evt Event) error {
	msg, ok := evt.FirstMessage()
	if !ok {
		s.metrics.IncrementDelivery("none", "ignored")
		return nil
	}
	ctx = requestcontext.WithSender(ctx, msg.From)

	var err error
	switch msg.Type {
	case MessageTypeText:
		err = s.handleText(ctx, msg)
	case MessageTypeInteractive:
		err = s.handleInteractive(ctx, msg)
	default:
		s.logger.WarnContext(ctx, "unsupported message type",
			"request_id", requestcontext.RequestID(ctx),
			"from", msg.From,
			"type", msg.Type,
		)
		s.metrics.IncrementDelivery("other", "ignored")
		return nil
	}

	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	s.metrics.IncrementDelivery(msg.Type, outcome)
	return err
}

// ExchangeFlow decrypts a Flow data-exchange request, runs the wizard and
// returns the encrypted reply.
func (s *Service) ExchangeFlow(ctx context.Context, env flowcrypto.Envelope) (string, error) {
	if s.channel == nil {
		return "", ErrChannelUnavailable
	}
	var req wizard.Request
	material, err := s.channel.DecryptRequest(env, &req)
	if err != nil {
		s.logger.WarnContext(ctx, "flow request could not be decrypted",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return "", err
	}

	resp := s.wizard.Handle(ctx, req)

	encoded, err := s.channel.EncryptResponse(resp, material)
	if err != nil {
		s.logger.ErrorContext(ctx, "flow response could not be encrypted",
			"request_id", requestcontext.RequestID(ctx),
			"action", string(req.Action),
			"screen", string(req.Screen),
			"error", err,
		)
		return "", err
	}
	return encoded, nil
}

// lookup checks whether the sender already has an account. On failure the
// user gets an apology and the caller stops.
func (s *Service) lookup(ctx context.Context, from string) (*directory.User, bool, error) {
	user, found, err := s.directory.GetUserByPhone(ctx, from)
	if err == nil {
		return user, found, nil
	}
	s.logger.ErrorContext(ctx, "sender lookup failed",
		"request_id", requestcontext.RequestID(ctx),
		"from", from,
		"error", err,
	)
	return nil, false, errors.Join(
		fmt.Errorf("look up sender: %w", err),
		s.sendText(ctx, from, apologyText),
	)
}

func (s *Service) sendText(ctx context.Context, to, body string) error {
	_, err := s.messenger.SendText(ctx, to, body, false)
	return err
}
