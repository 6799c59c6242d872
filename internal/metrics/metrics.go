// Package metrics exposes Prometheus counters for access decisions and grants.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the download flow. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Access decisions by policy mode and reason
	Decisions *prometheus.CounterVec

	// Issuance outcomes: granted, not_found, storage_error
	Grants *prometheus.CounterVec

	// Existence check plus signing
	IssueLatency prometheus.Histogram
}

// New registers the metrics with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "explorer_access_decisions_total",
			Help: "Access policy decisions by mode and reason",
		}, []string{"mode", "reason"}),

		Grants: f.NewCounterVec(prometheus.CounterOpts{
			Name: "explorer_download_grants_total",
			Help: "Signed URL issuance outcomes",
		}, []string{"outcome"}),

		IssueLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "explorer_issue_duration_seconds",
			Help:    "Duration of existence check and signing against the storage backend",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// IncDecision records an access decision.
func (m *Metrics) IncDecision(mode, reason string) {
	if m != nil {
		m.Decisions.WithLabelValues(mode, reason).Inc()
	}
}

// IncGrant records an issuance outcome.
func (m *Metrics) IncGrant(outcome string) {
	if m != nil {
		m.Grants.WithLabelValues(outcome).Inc()
	}
}

// ObserveIssue records the issuance duration.
func (m *Metrics) ObserveIssue(d time.Duration) {
	if m != nil {
		m.IssueLatency.Observe(d.Seconds())
	}
}
