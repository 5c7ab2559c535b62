package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the auth module.
type Metrics struct {
	// Authentication outcomes by result
	AuthOutcome *prometheus.CounterVec

	// Tokens minted by class and grant path
	TokensIssued *prometheus.CounterVec

	// Overall authenticate latency including the registry round-trip
	AuthenticateLatency prometheus.Histogram
}

// New creates a new Metrics instance with all auth module metrics registered.
func New() *Metrics {
	return &Metrics{
		AuthOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgergate_auth_outcomes_total",
			Help: "Total authentication attempts by outcome",
		}, []string{"outcome"}), // outcome: "success", "invalid_request", "unauthorized", "upstream_error", "error"

		TokensIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgergate_tokens_issued_total",
			Help: "Total tokens minted by class and grant",
		}, []string{"class", "grant"}), // grant: "authenticate", "refresh"

		AuthenticateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledgergate_authenticate_duration_seconds",
			Help:    "Duration of full authentication including registry verification",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// IncrementOutcome records an authentication outcome.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.AuthOutcome.WithLabelValues(outcome).Inc()
	}
}

// IncrementTokensIssued records a minted token.
func (m *Metrics) IncrementTokensIssued(class, grant string) {
	if m != nil {
		m.TokensIssued.WithLabelValues(class, grant).Inc()
	}
}

// ObserveAuthenticateLatency records the total authentication duration.
func (m *Metrics) ObserveAuthenticateLatency(d time.Duration) {
	if m != nil {
		m.AuthenticateLatency.Observe(d.Seconds())
	}
}
