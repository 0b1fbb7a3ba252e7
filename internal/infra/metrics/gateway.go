package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		gatewayVerifyTotal,
		gatewayVerifyDuration,
	)
}

var (
	// Authoritative charge fetches by result (ok|error).
	gatewayVerifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_verify_total",
			Help: "Outbound authoritative charge fetches by result.",
		},
		[]string{"result"},
	)

	gatewayVerifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_verify_duration_seconds",
			Help:    "Duration of the authoritative charge fetch in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"result"},
	)
)

func IncGatewayVerify(result string) {
	gatewayVerifyTotal.WithLabelValues(norm(result)).Inc()
}

func ObserveGatewayVerify(result string, seconds float64) {
	gatewayVerifyDuration.WithLabelValues(norm(result)).Observe(seconds)
}
