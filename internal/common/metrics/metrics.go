package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HandlerRequestsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_handler_requests_completed_total",
			Help: "Total number of requests completed by handler",
		},
		[]string{"handler"},
	)

	HandlerRequestsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_handler_requests_failed_total",
			Help: "Total number of requests failed by handler",
		},
		[]string{"handler", "error_code"},
	)

	HandlerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "onboarding_handler_request_duration_seconds",
			Help: "Duration of request processing in seconds",
		},
		[]string{"handler"},
	)

	SagaStepsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_saga_steps_executed_total",
			Help: "Total number of entity-creation steps executed against the platform",
		},
		[]string{"step"},
	)

	SagaStepsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_saga_steps_skipped_total",
			Help: "Total number of entity-creation steps skipped because the entity already exists",
		},
		[]string{"step"},
	)

	WebhookItemsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_webhook_items_accepted_total",
			Help: "Total number of notification items accepted and published",
		},
		[]string{"category"},
	)

	WebhookItemsDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onboarding_webhook_items_deduplicated_total",
			Help: "Total number of notification items dropped as duplicate psp references",
		},
	)

	WebhookBatchesRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onboarding_webhook_batches_rejected_total",
			Help: "Total number of notification batches rejected by authenticity checks",
		},
	)

	SweepsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onboarding_sweeps_created_total",
			Help: "Total number of payout sweeps created",
		},
	)

	MerchantsOnboarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onboarding_merchants_onboarded_total",
			Help: "Total number of merchants transitioned to ONBOARDED",
		},
	)
)
