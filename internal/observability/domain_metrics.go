package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabletalk_turns_total",
			Help: "Total number of conversation turns by terminal state.",
		},
		[]string{"state"},
	)
	completionLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tabletalk_completion_latency_seconds",
			Help:    "Chat-completion call latency in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)
	parseMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tabletalk_parse_misses_total",
			Help: "Total number of assistant replies with no extractable SELECT statement.",
		},
	)
	rejectedStatementsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tabletalk_rejected_statements_total",
			Help: "Total number of generated statements refused by the read-only gate.",
		},
	)
	exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabletalk_exports_total",
			Help: "Total number of result-set exports by format.",
		},
		[]string{"format"},
	)
	authFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabletalk_auth_failures_total",
			Help: "Total number of rejected API requests by failure reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		turnsTotal,
		completionLatencySeconds,
		parseMissesTotal,
		rejectedStatementsTotal,
		exportsTotal,
		authFailuresTotal,
	)
}

func IncTurn(state string) {
	turnsTotal.WithLabelValues(state).Inc()
}

func ObserveCompletionLatency(duration time.Duration) {
	completionLatencySeconds.Observe(duration.Seconds())
}

func IncParseMiss() {
	parseMissesTotal.Inc()
}

func IncRejectedStatement() {
	rejectedStatementsTotal.Inc()
}

func IncExport(format string) {
	exportsTotal.WithLabelValues(format).Inc()
}

func IncAuthFailure(reason string) {
	authFailuresTotal.WithLabelValues(reason).Inc()
}
