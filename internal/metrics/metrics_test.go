package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncDecision("network", "Denied")
	m.IncDecision("network", "Denied")
	m.IncGrant("granted")
	m.ObserveIssue(20 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Decisions.WithLabelValues("network", "Denied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Grants.WithLabelValues("granted")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.IssueLatency))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncDecision("groups", "StaffGroup")
		m.IncGrant("not_found")
		m.ObserveIssue(time.Second)
	})
}
