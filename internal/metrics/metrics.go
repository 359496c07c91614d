// Package metrics defines the Prometheus metrics exposed by the API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Grading metrics
var (
	// GradesComputedTotal tracks risk grade computations by entity type
	// and resulting grade.
	GradesComputedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_grades_computed_total",
			Help: "Total number of risk grade computations by entity type and grade",
		},
		[]string{"entity_type", "grade"},
	)

	// GradeComputeDuration tracks grade computation duration.
	GradeComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "risk_grade_compute_duration_seconds",
			Help:    "Risk grade computation duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"entity_type"},
	)
)

// Rule engine metrics
var (
	// RuleEvaluationsTotal tracks rule evaluations by scope and outcome.
	RuleEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_evaluations_total",
			Help: "Total number of rule evaluations by scope and outcome",
		},
		[]string{"scope", "matched"},
	)

	// NotificationsTotal tracks notification dispatches by provider and
	// delivery status.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of notification dispatches by provider and status",
		},
		[]string{"provider", "status"},
	)

	// NotificationDuration tracks outbound notification call duration.
	NotificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_duration_seconds",
			Help:    "Notification dispatch duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30},
		},
		[]string{"provider"},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal tracks HTTP requests by method, path and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request duration.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
