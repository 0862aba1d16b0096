// Package metrics provides Prometheus metrics for the Clover service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestJobTransitionsTotal tracks ingest job lifecycle transitions
	IngestJobTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "ingest",
			Name:      "job_transitions_total",
			Help:      "Total number of ingest job status transitions",
		},
		[]string{"tenant_id", "to_status"},
	)

	// IngestJobRetriesTotal tracks ingest job retry requeues
	IngestJobRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "ingest",
			Name:      "job_retries_total",
			Help:      "Total number of ingest jobs requeued for retry",
		},
		[]string{"tenant_id", "error_code"},
	)

	// ParserRequestDuration tracks menu parser call duration
	ParserRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "parser",
			Name:      "request_duration_seconds",
			Help:      "Duration of menu parser requests in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"status"},
	)

	// ItemsPublishedTotal tracks menu items published from staging
	ItemsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "publish",
			Name:      "items_total",
			Help:      "Total number of menu items published from staging",
		},
		[]string{"tenant_id"},
	)

	// ItemsDefaultedPricesTotal tracks published items with defaulted prices
	ItemsDefaultedPricesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "publish",
			Name:      "defaulted_prices_total",
			Help:      "Total number of published items whose price was defaulted",
		},
		[]string{"tenant_id"},
	)

	// ClaimDecisionsTotal tracks venue claim decisions
	ClaimDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "claims",
			Name:      "decisions_total",
			Help:      "Total number of venue claim decisions",
		},
		[]string{"tenant_id", "decision"},
	)

	// OnboardingDecisionsTotal tracks onboarding request decisions
	OnboardingDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "onboarding",
			Name:      "decisions_total",
			Help:      "Total number of onboarding request decisions",
		},
		[]string{"tenant_id", "decision"},
	)

	// ApprovalResolutionsTotal tracks approval request resolutions
	ApprovalResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "approvals",
			Name:      "resolutions_total",
			Help:      "Total number of approval request resolutions",
		},
		[]string{"tenant_id", "status"},
	)

	// ApprovalsExpiredTotal tracks approval requests expired by the sweeper
	ApprovalsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "approvals",
			Name:      "expired_total",
			Help:      "Total number of approval requests expired by the sweeper",
		},
	)

	// WorkerJobsInFlight tracks ingest jobs currently being processed
	WorkerJobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clover",
			Subsystem: "worker",
			Name:      "jobs_in_flight",
			Help:      "Number of ingest jobs currently being processed",
		},
	)

	// WorkerCyclesTotal tracks worker poll cycles by outcome
	WorkerCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "worker",
			Name:      "cycles_total",
			Help:      "Total number of worker poll cycles",
		},
		[]string{"worker", "status"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordJobTransition records an ingest job status transition
func RecordJobTransition(tenantID, toStatus string) {
	IngestJobTransitionsTotal.WithLabelValues(tenantID, toStatus).Inc()
}

// RecordJobRetry records an ingest job retry requeue
func RecordJobRetry(tenantID, errorCode string) {
	IngestJobRetriesTotal.WithLabelValues(tenantID, errorCode).Inc()
}

// RecordParserRequest records a menu parser call
func RecordParserRequest(status string, durationSeconds float64) {
	ParserRequestDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordPublish records a completed publish
func RecordPublish(tenantID string, published, defaultedPrices int) {
	ItemsPublishedTotal.WithLabelValues(tenantID).Add(float64(published))
	ItemsDefaultedPricesTotal.WithLabelValues(tenantID).Add(float64(defaultedPrices))
}

// RecordClaimDecision records a venue claim decision
func RecordClaimDecision(tenantID, decision string) {
	ClaimDecisionsTotal.WithLabelValues(tenantID, decision).Inc()
}

// RecordOnboardingDecision records an onboarding request decision
func RecordOnboardingDecision(tenantID, decision string) {
	OnboardingDecisionsTotal.WithLabelValues(tenantID, decision).Inc()
}

// RecordApprovalResolution records an approval request resolution
func RecordApprovalResolution(tenantID, status string) {
	ApprovalResolutionsTotal.WithLabelValues(tenantID, status).Inc()
}
