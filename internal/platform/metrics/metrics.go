package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
// Every method is safe on a nil receiver so components can run unmetered.
type Metrics struct {
	// Inbound deliveries by message type and outcome
	WebhookDeliveries *prometheus.CounterVec

	// Failures swallowed at the webhook boundary, by kind
	WebhookFailures *prometheus.CounterVec

	// Encrypted Flow exchanges by action, screen and outcome
	FlowExchanges *prometheus.CounterVec

	// Directory API calls by operation and HTTP status
	DirectoryCalls   *prometheus.CounterVec
	DirectoryLatency *prometheus.HistogramVec

	// Credential refreshes by record kind ("token", "roles")
	CredentialRefreshes *prometheus.CounterVec

	// Outbound chat messages by kind and outcome
	OutboundMessages *prometheus.CounterVec

	// HTTP request latency by route pattern
	RequestLatency *prometheus.HistogramVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the metrics on reg. Tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		WebhookDeliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgate_webhook_deliveries_total",
			Help: "Inbound webhook deliveries by message type and outcome",
		}, []string{"type", "outcome"}),

		WebhookFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgate_webhook_failures_total",
			Help: "Failures recovered at the webhook boundary by kind",
		}, []string{"kind"}),

		FlowExchanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgate_flow_exchanges_total",
			Help: "Encrypted Flow data exchanges by action, screen and outcome",
		}, []string{"action", "screen", "outcome"}),

		DirectoryCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgate_directory_calls_total",
			Help: "Directory API calls by operation and status code",
		}, []string{"op", "status"}),

		DirectoryLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowgate_directory_call_duration_seconds",
			Help:    "Duration of directory API calls including the auth retry",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),

		CredentialRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgate_credential_refreshes_total",
			Help: "Directory credential refreshes by record kind",
		}, []string{"kind"}),

		OutboundMessages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgate_outbound_messages_total",
			Help: "Outbound chat messages by kind and outcome",
		}, []string{"kind", "outcome"}),

		RequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowgate_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route"}),
	}
}

// IncrementDelivery records an inbound webhook delivery.
func (m *Metrics) IncrementDelivery(messageType, outcome string) {
	if m != nil {
		m.WebhookDeliveries.WithLabelValues(messageType, outcome).Inc()
	}
}

// IncrementWebhookFailure records a failure swallowed before acknowledgment.
func (m *Metrics) IncrementWebhookFailure(kind string) {
	if m != nil {
		m.WebhookFailures.WithLabelValues(kind).Inc()
	}
}

// IncrementFlowExchange records one encrypted Flow exchange.
func (m *Metrics) IncrementFlowExchange(action, screen, outcome string) {
	if m != nil {
		m.FlowExchanges.WithLabelValues(action, screen, outcome).Inc()
	}
}

// ObserveDirectoryCall records a directory call's final status and duration.
// status 0 means the request never produced a response.
func (m *Metrics) ObserveDirectoryCall(op string, status int, d time.Duration) {
	if m != nil {
		m.DirectoryCalls.WithLabelValues(op, statusLabel(status)).Inc()
		m.DirectoryLatency.WithLabelValues(op).Observe(d.Seconds())
	}
}

// IncrementCredentialRefresh records a token or role-table refresh.
func (m *Metrics) IncrementCredentialRefresh(kind string) {
	if m != nil {
		m.CredentialRefreshes.WithLabelValues(kind).Inc()
	}
}

// IncrementOutbound records an outbound message attempt.
func (m *Metrics) IncrementOutbound(kind, outcome string) {
	if m != nil {
		m.OutboundMessages.WithLabelValues(kind, outcome).Inc()
	}
}

// ObserveRequestLatency records the duration of one HTTP request.
func (m *Metrics) ObserveRequestLatency(route string, d time.Duration) {
	if m != nil {
		m.RequestLatency.WithLabelValues(route).Observe(d.Seconds())
	}
}

func statusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}
