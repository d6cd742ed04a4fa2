package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveUpstreamCall("getTrace", time.Second, nil)
		m.ObserveRetry("getTrace")
		m.ObserveBuild(time.Second, 3, nil)
		m.ObserveSubRecordFailure("candidate", "not deployed")
	})
}

func TestObserve(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry(), "test")

	m.ObserveUpstreamCall("raffleData", 10*time.Millisecond, nil)
	m.ObserveUpstreamCall("raffleData", 10*time.Millisecond, errors.New("boom"))
	m.ObserveRetry("raffleData")
	m.ObserveRetry("raffleData")
	m.ObserveBuild(time.Second, 3, nil)
	m.ObserveSubRecordFailure("candidate", "not deployed")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamCallsTotal.WithLabelValues("raffleData", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamCallsTotal.WithLabelValues("raffleData", OutcomeFailure)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UpstreamRetriesTotal.WithLabelValues("raffleData")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BuildsTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RafflesDiscoveredTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubRecordFailuresTotal.WithLabelValues("candidate", "not deployed")))
}
