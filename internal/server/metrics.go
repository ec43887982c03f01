package server

import "github.com/prometheus/client_golang/prometheus"

const prometheusMetricNamespace = "awsmcp"

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: prometheusMetricNamespace,
			Name:      "requests_total",
			Help:      "Dispatched requests by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: prometheusMetricNamespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of dispatched requests.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(requestDuration)
}
