package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	submissionsTotal      *prometheus.CounterVec
	deliveryAttemptsTotal *prometheus.CounterVec
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the intake pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Total contact submissions by final outcome.",
		}, []string{"outcome"})

		deliveryAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_delivery_attempts_total",
			Help: "Delivery channel attempts by channel and result.",
		}, []string{"channel", "result"})

		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_api_requests_total",
			Help: "Total API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contact_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		prometheus.MustRegister(submissionsTotal, deliveryAttemptsTotal, apiRequestsTotal, apiLatencySeconds)
	})
}

// Submissions exposes the counter for submission outcomes.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// DeliveryAttempts exposes the counter for per-channel delivery attempts.
func DeliveryAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return deliveryAttemptsTotal
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}
