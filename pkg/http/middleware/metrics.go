package middleware

import (
	"strconv"
	"sync"
	"time"

	applogger "SignalFusion/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalfusion_http_requests_total",
			Help: "HTTP requests by route template and status.",
		},
		[]string{"route", "method", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signalfusion_http_request_duration_seconds",
			Help:    "HTTP request latency. WebSocket sessions are excluded.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"route", "method", "class"},
	)
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "signalfusion_http_in_flight_requests",
		Help: "Requests currently being served, WebSocket sessions included.",
	})
	httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signalfusion_http_response_size_bytes",
			Help:    "Response body size.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"route"},
	)

	regOnce sync.Once
)

// Metrics records per-route metrics labelled by echo's route template, so
// /api/prediction/BTC/1h and /api/prediction/ETH/4h share one series. 5xx
// responses are logged as errors and requests over slow as warnings.
func Metrics(l *applogger.Logger, slow time.Duration) echo.MiddlewareFunc {
	regOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, httpInFlight, httpResponseSize)
	})
	if l == nil {
		l = applogger.Nop()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			httpInFlight.Inc()
			start := time.Now()
			err := next(c)
			httpInFlight.Dec()
			if err != nil {
				// Let echo write the response so the recorded status is final.
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			req, res := c.Request(), c.Response()
			status := res.Status
			elapsed := time.Since(start)

			httpRequests.WithLabelValues(route, req.Method, strconv.Itoa(status)).Inc()
			if !c.IsWebSocket() {
				httpDuration.WithLabelValues(route, req.Method, statusClass(status)).Observe(elapsed.Seconds())
				httpResponseSize.WithLabelValues(route).Observe(float64(res.Size))
			}

			fields := []applogger.Field{
				applogger.String("route", route),
				applogger.String("method", req.Method),
				applogger.Int("status", status),
				applogger.Duration("duration_ms", elapsed),
			}
			switch {
			case status >= 500:
				l.Error("http request failed", fields...)
			case slow > 0 && elapsed >= slow && !c.IsWebSocket():
				l.Warn("http request slow", fields...)
			}
			return nil
		}
	}
}

func statusClass(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
