package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink records intake pipeline metrics. Implementations must be
// fire-and-forget: never block, never propagate errors.
type Sink interface {
	// Outcome counts one finished request by terminal outcome kind.
	Outcome(kind string)
	// LedgerReadFailure counts a failed duplicate-check read (fail-open path).
	LedgerReadFailure()
	// AppendObserved records one ledger append attempt and its duration.
	AppendObserved(d time.Duration, err error)
}

// PrometheusSink implements Sink on a Prometheus registry.
type PrometheusSink struct {
	outcomes       *prometheus.CounterVec
	readFailures   prometheus.Counter
	appendDuration prometheus.Histogram
	appendErrors   prometheus.Counter
}

// NewPrometheusSink registers the intake metrics on reg.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_requests_total",
			Help: "Intake requests by terminal outcome.",
		}, []string{"outcome"}),
		readFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intake_ledger_read_failures_total",
			Help: "Duplicate-check ledger reads that failed (fail-open).",
		}),
		appendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "intake_ledger_append_duration_seconds",
			Help:    "Latency of ledger append calls.",
			Buckets: prometheus.DefBuckets,
		}),
		appendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intake_ledger_append_errors_total",
			Help: "Ledger append calls that failed.",
		}),
	}
	reg.MustRegister(s.outcomes, s.readFailures, s.appendDuration, s.appendErrors)
	return s
}

func (s *PrometheusSink) Outcome(kind string) {
	s.outcomes.WithLabelValues(kind).Inc()
}

func (s *PrometheusSink) LedgerReadFailure() {
	s.readFailures.Inc()
}

func (s *PrometheusSink) AppendObserved(d time.Duration, err error) {
	s.appendDuration.Observe(d.Seconds())
	if err != nil {
		s.appendErrors.Inc()
	}
}

// NoopSink is used when metrics are disabled, and by unit tests, to avoid
// nil checks at call sites.
type NoopSink struct{}

func NewNoopSink() *NoopSink { return &NoopSink{} }

func (*NoopSink) Outcome(string)                      {}
func (*NoopSink) LedgerReadFailure()                  {}
func (*NoopSink) AppendObserved(time.Duration, error) {}

var (
	_ Sink = (*PrometheusSink)(nil)
	_ Sink = (*NoopSink)(nil)
)
