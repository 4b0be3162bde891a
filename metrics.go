package packrat

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const MetricsSubsystem = "session"

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of matches, labelled by outcome (accepted or rejected).
	Matches metrics.Counter
	// Number of rule applications that missed the memo table.
	RuleEvaluations metrics.Counter
	// Number of rule applications served from the memo table.
	MemoHits metrics.Counter
	// Histogram of input lengths, in characters.
	InputLength metrics.Histogram
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
func PrometheusMetrics(namespace string) *Metrics {
	return &Metrics{
		Matches: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "matches",
			Help:      "Number of matches by outcome.",
		}, []string{"outcome"}),
		RuleEvaluations: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "rule_evaluations",
			Help:      "Number of rule applications evaluated (memo misses).",
		}, []string{}),
		MemoHits: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "memo_hits",
			Help:      "Number of rule applications served from the memo table.",
		}, []string{}),
		InputLength: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "input_length",
			Help:      "Input lengths in characters.",
			Buckets:   stdprometheus.ExponentialBuckets(1, 4, 12),
		}, []string{}),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Matches:         discard.NewCounter(),
		RuleEvaluations: discard.NewCounter(),
		MemoHits:        discard.NewCounter(),
		InputLength:     discard.NewHistogram(),
	}
}
