// Package metrics provides Prometheus instrumentation for the EduMind risk core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PredictionsTotal counts primary prediction attempts by outcome.
	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edumind",
			Name:      "predictions_total",
			Help:      "Total risk prediction requests by outcome (success, validation_error, transport_error, service_error, stale).",
		},
		[]string{"outcome"},
	)

	// PredictionDuration observes round-trip latency of prediction requests.
	PredictionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "edumind",
			Name:      "prediction_duration_seconds",
			Help:      "Risk prediction request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// TransportRetriesTotal counts transport-level retries issued by the client.
	TransportRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "edumind",
			Name:      "transport_retries_total",
			Help:      "Total transport retries across prediction requests.",
		},
	)

	// SimulationsTotal counts what-if simulations by outcome.
	SimulationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edumind",
			Name:      "simulations_total",
			Help:      "Total what-if scenario simulations by outcome.",
		},
		[]string{"outcome"},
	)

	// DraftSavesTotal counts debounced draft autosaves.
	DraftSavesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "edumind",
			Name:      "draft_saves_total",
			Help:      "Total form drafts persisted by the autosave timer.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		PredictionsTotal,
		PredictionDuration,
		TransportRetriesTotal,
		SimulationsTotal,
		DraftSavesTotal,
	)
}
