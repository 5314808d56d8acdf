// Package wizard implements the screen-by-screen registration Flow.
//
// Each data_exchange request carries the current screen and everything the
// user has entered so far. The wizard validates the current screen and either
// re-renders it with field errors or advances, carrying every accepted field
// forward untouched. Nothing is stored between requests.
package wizard

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"time"

	"flowgate/internal/catalog"
	"flowgate/internal/platform/metrics"
	"flowgate/pkg/requestcontext"
)

// Wizard handles decrypted Flow requests.
type Wizard struct {
	catalog catalog.Provider
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Wizard.
type Option func(*Wizard)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Wizard) {
		w.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Wizard) {
		w.metrics = m
	}
}

// New returns a Wizard that offers the schools from provider.
func New(provider catalog.Provider, opts ...Option) *Wizard {
	w := &Wizard{
		catalog: provider,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Handle dispatches on the request action. Validation failures are
// ordinary responses, never errors.
func (w *Wizard) Handle(ctx context.Context, req Request) Response {
	var resp Response
	switch req.Action {
	case ActionPing:
		resp = ping()
	case ActionInit:
		resp = w.init(req)
	case ActionDataExchange:
		resp = w.exchange(ctx, req)
	default:
		w.logger.WarnContext(ctx, "unknown flow action",
			"request_id", requestcontext.RequestID(ctx),
			"action", string(req.Action),
		)
		resp = Response{Data: map[string]any{"error_message": "Unknown action"}}
	}
	w.metrics.IncrementFlowExchange(actionLabel(req.Action), screenLabel(req.Screen), outcome(resp))
	return resp
}

func ping() Response {
	return Response{
		Version: Version,
		Data:    map[string]any{"status": "active"},
	}
}

func (w *Wizard) init(req Request) Response {
	screen := req.Screen
	if screen == "" {
		screen = ScreenGuardianDetails
	}
	return Response{
		Version: Version,
		Screen:  screen,
		Data:    map[string]any{"schools": w.catalog.Schools()},
	}
}

func (w *Wizard) exchange(ctx context.Context, req Request) Response {
	data := req.Data
	if data == nil {
		data = map[string]any{}
	}
	today := truncateDay(requestcontext.Now(ctx))

	switch req.Screen {
	case ScreenGuardianDetails:
		return w.guardianDetails(ctx, data, today)
	case ScreenChildDetails:
		return w.childDetails(ctx, data, today)
	case ScreenSchoolSelection:
		return w.schoolSelection(ctx, req)
	default:
		w.logger.WarnContext(ctx, "unknown flow screen",
			"request_id", requestcontext.RequestID(ctx),
			"screen", string(req.Screen),
		)
		return Response{Version: Version, Data: map[string]any{}}
	}
}

func (w *Wizard) guardianDetails(ctx context.Context, data map[string]any, today time.Time) Response {
	if errs := ValidateGuardian(data, today); len(errs) > 0 {
		w.logger.InfoContext(ctx, "guardian validation failed",
			"request_id", requestcontext.RequestID(ctx),
			"fields", fieldNames(errs),
		)
		return Response{
			Version: Version,
			Screen:  ScreenGuardianDetails,
			Data: map[string]any{
				errorMessagesKey: errs,
				"schools":        w.catalog.Schools(),
			},
		}
	}

	next := map[string]any{"schools": w.catalog.Schools()}
	carry(next, data, guardianFields, "guardian_")
	return Response{Version: Version, Screen: ScreenChildDetails, Data: next}
}

func (w *Wizard) childDetails(ctx context.Context, data map[string]any, today time.Time) Response {
	errs := ValidateChild(data, today)

	next := map[string]any{"schools": w.catalog.Schools()}
	carry(next, data, prefixed(guardianFields, "guardian_"), "")
	if len(errs) > 0 {
		w.logger.InfoContext(ctx, "child validation failed",
			"request_id", requestcontext.RequestID(ctx),
			"fields", fieldNames(errs),
		)
		next[errorMessagesKey] = errs
		return Response{Version: Version, Screen: ScreenChildDetails, Data: next}
	}

	carry(next, data, childFields, "")
	return Response{Version: Version, Screen: ScreenSchoolSelection, Data: next}
}

// schoolSelection closes the Flow. Registration happens later, when the
// completed Flow arrives as an nfm_reply webhook.
func (w *Wizard) schoolSelection(ctx context.Context, req Request) Response {
	w.logger.InfoContext(ctx, "registration flow completed",
		"request_id", requestcontext.RequestID(ctx),
		"flow_token", req.FlowToken,
	)
	return Response{
		Version: Version,
		Data: map[string]any{
			"extension_message_response": map[string]any{
				"params": map[string]any{
					"flow_token":          req.FlowToken,
					"registration_status": "success",
				},
			},
		},
	}
}

// carry copies keys from src into dst verbatim, renamed with prefix.
// Missing keys become empty strings so the next screen always sees them.
func carry(dst, src map[string]any, keys []string, prefix string) {
	for _, key := range keys {
		if v, ok := src[key]; ok && v != nil {
			dst[prefix+key] = v
		} else {
			dst[prefix+key] = ""
		}
	}
}

func prefixed(keys []string, prefix string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = prefix + k
	}
	return out
}

func fieldNames(errs FieldErrors) []string {
	names := make([]string, 0, len(errs))
	for k := range errs {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

func actionLabel(a Action) string {
	switch a {
	case ActionPing, ActionInit, ActionDataExchange:
		return string(a)
	default:
		return "unknown"
	}
}

func screenLabel(s Screen) string {
	switch s {
	case "", ScreenGuardianDetails, ScreenChildDetails, ScreenSchoolSelection:
		return string(s)
	default:
		return "unknown"
	}
}

func outcome(resp Response) string {
	if _, ok := resp.Data[errorMessagesKey]; ok {
		return "invalid"
	}
	if _, ok := resp.Data["error_message"]; ok {
		return "rejected"
	}
	return "ok"
}
