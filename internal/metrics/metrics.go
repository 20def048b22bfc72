// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_submission_decisions_total",
			Help: "Submission gate decisions by outcome",
		},
		[]string{"scope", "decision"},
	)

	CurrentPhaseGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "review_current_phase",
			Help: "Current review phase per team as last computed",
		},
		[]string{"scope", "team"},
	)

	MarksPercentHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "review_cumulative_marks_percent",
			Help:    "Distribution of cumulative mark percentages served",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"scope"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
