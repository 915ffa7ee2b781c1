package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	// APIRequestsTotal counts requests by route and status
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorix_api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutorix_api_request_duration_seconds",
			Help:    "API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorix_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"path"},
	)
)

// Payment metrics
var (
	// OrdersCreatedTotal counts gateway orders by kind (single, multi)
	OrdersCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorix_payment_orders_created_total",
			Help: "Gateway orders created",
		},
		[]string{"kind"},
	)

	// PaymentsVerifiedTotal counts verifications by outcome
	// (credited, already_processed, signature_invalid)
	PaymentsVerifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorix_payments_verified_total",
			Help: "Payment verifications by outcome",
		},
		[]string{"kind", "outcome"},
	)

	SignatureFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorix_signature_failures_total",
			Help: "Rejected checkout or webhook signatures",
		},
		[]string{"source"},
	)

	AmountCollectedRupees = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tutorix_amount_collected_rupees_total",
			Help: "Amount credited to fee records through the gateway",
		},
	)

	RefundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorix_refunds_total",
			Help: "Online refunds by outcome",
		},
		[]string{"outcome"},
	)

	OrdersFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tutorix_payment_orders_failed_total",
			Help: "Orders marked failed",
		},
	)

	GatewayErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorix_gateway_errors_total",
			Help: "Gateway calls that failed",
		},
		[]string{"operation"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorix_webhook_events_total",
			Help: "Webhook deliveries by event and status",
		},
		[]string{"event", "status"},
	)
)
