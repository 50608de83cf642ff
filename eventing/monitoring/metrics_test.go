package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "test")

	m.IncEventPublished("user.registered")
	m.IncEventPublished("user.registered")
	m.ObserveHandler("user.registered", "welcome", OutcomeSuccess, 10*time.Millisecond)
	m.ObserveHandler("user.registered", "welcome", OutcomeError, time.Millisecond)
	m.ObserveHandler("user.registered", "audit", OutcomeIgnored, time.Millisecond)
	m.ObserveRepository("account", "add", OutcomeSuccess, time.Millisecond)
	m.IncRelayForwarded("redis", OutcomeSuccess)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("user.registered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HandlerInvocations.WithLabelValues("user.registered", "welcome", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HandlerInvocations.WithLabelValues("user.registered", "audit", OutcomeIgnored)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RepositoryOps.WithLabelValues("account", "add", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelayForwarded.WithLabelValues("redis", OutcomeSuccess)))

	n, err := testutil.GatherAndCount(reg, "test_events_handler_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncEventPublished("x")
		m.ObserveHandler("x", "h", OutcomeSuccess, time.Second)
		m.ObserveRepository("e", "op", OutcomeSuccess, time.Second)
		m.IncRelayForwarded("nats", OutcomeError)
	})
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, Outcome(nil))
	assert.Equal(t, OutcomeError, Outcome(errors.New("x")))
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg, "dup")
	assert.Panics(t, func() { NewMetrics(reg, "dup") })
}
