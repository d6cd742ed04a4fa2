package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the Prometheus instruments of the reconstruction worker.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	UpstreamCallsTotal     *prometheus.CounterVec
	UpstreamRetriesTotal   *prometheus.CounterVec
	UpstreamCallDuration   *prometheus.HistogramVec
	BuildsTotal            *prometheus.CounterVec
	BuildDuration          prometheus.Histogram
	RafflesDiscoveredTotal prometheus.Counter
	SubRecordFailuresTotal *prometheus.CounterVec
}

// NewMetrics creates the instruments and registers them with registerer
// (prometheus.DefaultRegisterer when nil).
func NewMetrics(registerer prometheus.Registerer, namespace string) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "raffles"
	}

	factory := promauto.With(registerer)

	return &Metrics{
		UpstreamCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "calls_total",
			Help:      "Ledger API calls by method and outcome, retries excluded",
		}, []string{"method", "outcome"}),
		UpstreamRetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "retries_total",
			Help:      "Ledger API retry attempts by method",
		}, []string{"method"}),
		UpstreamCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "call_duration_seconds",
			Help:      "Ledger API call duration including retries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		BuildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "builds_total",
			Help:      "Blockchain data builds by outcome",
		}, []string{"outcome"}),
		BuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "build_duration_seconds",
			Help:      "Duration of a full blockchain data build",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		RafflesDiscoveredTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "raffles_discovered_total",
			Help:      "Raffle entries appended to built aggregates",
		}),
		SubRecordFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "sub_record_failures_total",
			Help:      "Candidate and participant records left absent, by record and reason",
		}, []string{"record", "reason"}),
	}
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

func (m *Metrics) ObserveUpstreamCall(method string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	m.UpstreamCallsTotal.WithLabelValues(method, outcome(err)).Inc()
	m.UpstreamCallDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (m *Metrics) ObserveRetry(method string) {
	if m == nil {
		return
	}

	m.UpstreamRetriesTotal.WithLabelValues(method).Inc()
}

func (m *Metrics) ObserveBuild(duration time.Duration, raffles int, err error) {
	if m == nil {
		return
	}

	m.BuildsTotal.WithLabelValues(outcome(err)).Inc()
	m.BuildDuration.Observe(duration.Seconds())
	m.RafflesDiscoveredTotal.Add(float64(raffles))
}

func (m *Metrics) ObserveSubRecordFailure(record string, reason string) {
	if m == nil {
		return
	}

	m.SubRecordFailuresTotal.WithLabelValues(record, reason).Inc()
}
