package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookRequestsTotal,
		webhookDuration,
		signatureResultsTotal,
		rateLimitDropsTotal,
	)
}

var (
	// Count of webhook deliveries grouped by final outcome
	// (activated|already_active|duplicate|throttled|ignored|...).
	webhookRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_requests_total",
			Help: "Count of /webhook/tap deliveries by final outcome.",
		},
		[]string{"outcome"},
	)

	// Latency of the full pipeline grouped by outcome.
	webhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_duration_seconds",
			Help:    "Duration of the webhook pipeline in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"outcome"},
	)

	// Signature checks by result (valid|invalid|unverifiable|error_bypassed).
	signatureResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_signature_results_total",
			Help: "Signature verification results on inbound notifications.",
		},
		[]string{"result"},
	)

	// Requests shed by the rate limiter, by bounded reason.
	rateLimitDropsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_rate_limit_drops_total",
			Help: "Webhook deliveries shed by the rate limiter, by reason.",
		},
		[]string{"reason"},
	)
)

func IncWebhook(outcome string) {
	webhookRequestsTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObserveWebhookDuration(outcome string, seconds float64) {
	webhookDuration.WithLabelValues(norm(outcome)).Observe(seconds)
}

func IncSignatureResult(result string) {
	signatureResultsTotal.WithLabelValues(norm(result)).Inc()
}

func IncRateLimitDrop(reason string) {
	rateLimitDropsTotal.WithLabelValues(norm(reason)).Inc()
}
