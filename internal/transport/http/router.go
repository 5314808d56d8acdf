// Package httptransport assembles the public HTTP surface.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flowgate/pkg/platform/httputil"
	"flowgate/pkg/platform/middleware/metadata"
	"flowgate/pkg/platform/middleware/requesttime"
)

const healthTimeout = 2 * time.Second

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Router holds what NewRouter needs beyond the route groups.
type Router struct {
	Logger   *slog.Logger
	Gatherer prometheus.Gatherer
	Checks   map[string]HealthCheck
}

// NewRouter wires the shared middleware, health and metrics endpoints, then
// lets each registrar mount its routes.
func NewRouter(cfg Router, registrars ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/health", healthHandler(cfg.Logger, cfg.Checks))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	for _, reg := range registrars {
		reg.Register(r)
	}
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(logger *slog.Logger, checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed",
					"check", name,
					"error", err,
				)
				if resp.Checks == nil {
					resp.Checks = map[string]string{}
				}
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
			}
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	}
}
