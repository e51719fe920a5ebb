package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Prediction endpoint
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of prediction requests by outcome",
		},
		[]string{"outcome"}, // "ok", "validation_error", "upstream_error"
	)

	PredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prediction_duration_seconds",
			Help:    "End-to-end prediction latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	RepurchaseSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prediction_days_suppressed_total",
			Help: "Predictions whose day estimate was replaced by the low-probability sentinel",
		},
	)

	// Scoring backends
	ModelScoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_score_duration_seconds",
			Help:    "Duration of a single model scoring call in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	ModelScoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_score_errors_total",
			Help: "Total number of failed model scoring calls",
		},
		[]string{"model"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Recommendations
	RecommendationLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_lookups_total",
			Help: "Recommendation lookups by result",
		},
		[]string{"result"}, // "personalized", "fallback"
	)

	RecommendationTableSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommendation_table_customers",
			Help: "Number of customers with personalized routes loaded at startup",
		},
	)

	// Prediction log persistence
	PredictionLogErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prediction_log_errors_total",
			Help: "Prediction log rows that failed to persist",
		},
	)
)
