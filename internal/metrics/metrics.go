// Package metrics exposes the Prometheus instrumentation for the matchmaking
// core. Collectors are registered on the default registry and served through
// Handler on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	// ModelCalls counts generative-model invocations by operation
	// (score, chat) and outcome.
	ModelCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "startuphub_model_calls_total",
		Help: "Generative model invocations by operation and outcome.",
	}, []string{"operation", "outcome"})

	// ModelCallDuration observes wall time of model invocations.
	ModelCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "startuphub_model_call_duration_seconds",
		Help:    "Latency of generative model invocations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// ParseFailures counts model responses that could not be coerced into
	// their expected JSON contract.
	ParseFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "startuphub_response_parse_failures_total",
		Help: "Model responses rejected by the normalizer.",
	}, []string{"operation"})

	// MatchRuns counts orchestration batches by pivot type.
	MatchRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "startuphub_match_runs_total",
		Help: "Match orchestration runs by pivot type.",
	}, []string{"pivot"})

	// MatchUpsertFailures counts persistence errors during match runs.
	MatchUpsertFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "startuphub_match_upsert_failures_total",
		Help: "Failed match result upserts.",
	})
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
