package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "signalfusion",
			Subsystem: "upstream",
			Name:      "latency_seconds",
			Help:      "Latency of calls to external data sources",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	UpstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signalfusion",
			Subsystem: "upstream",
			Name:      "errors_total",
			Help:      "Failed calls by external data source",
		},
		[]string{"source"},
	)

	EndpointLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "signalfusion",
			Subsystem: "api",
			Name:      "endpoint_latency_seconds",
			Help:      "Latency of prediction API endpoints",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	EndpointErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signalfusion",
			Subsystem: "api",
			Name:      "endpoint_errors_total",
			Help:      "Prediction API errors by endpoint and kind",
		},
		[]string{"endpoint", "kind"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(UpstreamLatency, UpstreamErrors, EndpointLatency, EndpointErrors)
	})
}

// ObserveEndpoint records one API call started at start.
func ObserveEndpoint(endpoint string, start time.Time) {
	EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// EndpointError counts a failed API call.
func EndpointError(endpoint, kind string) {
	EndpointErrors.WithLabelValues(endpoint, kind).Inc()
}

// Observe records one upstream call started at start.
func Observe(source string, start time.Time, err error) {
	UpstreamLatency.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		UpstreamErrors.WithLabelValues(source).Inc()
	}
}
