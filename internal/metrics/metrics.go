// Package metrics provides Prometheus metrics for the fetch pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "briefing"

// Article outcomes.
const (
	OutcomeSaved     = "saved"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
)

// External call kinds.
const (
	KindSearch  = "search"
	KindSummary = "summary"
)

var (
	// RunsTotal counts orchestrator runs by final status.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of fetch runs",
		},
		[]string{"status"},
	)

	// RunDuration measures whole-run duration.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of fetch runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// ArticlesTotal counts candidate articles by outcome.
	ArticlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_total",
			Help:      "Candidate articles processed, by outcome",
		},
		[]string{"outcome"},
	)

	// SummariesTotal counts summarizer calls by status.
	SummariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Summarizer calls, by status",
		},
		[]string{"status"},
	)

	// ExternalCallDuration measures search and summary API latency.
	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_call_duration_seconds",
			Help:      "Duration of external API calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind", "status"},
	)
)

// RecordRun records a finished run.
func RecordRun(status string, d time.Duration) {
	RunsTotal.WithLabelValues(status).Inc()
	RunDuration.Observe(d.Seconds())
}

// RecordArticle records the outcome of one candidate article.
func RecordArticle(outcome string) {
	ArticlesTotal.WithLabelValues(outcome).Inc()
}

// RecordCall records one external call.
func RecordCall(kind, status string, d time.Duration) {
	ExternalCallDuration.WithLabelValues(kind, status).Observe(d.Seconds())
	if kind == KindSummary {
		SummariesTotal.WithLabelValues(status).Inc()
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
