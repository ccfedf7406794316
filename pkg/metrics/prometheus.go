package metrics

import (
	"SignalFusion/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	messagesSent *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
	predictions  *prometheus.CounterVec
	confidence   *prometheus.HistogramVec
	layerLatency *prometheus.HistogramVec
	layerSignals *prometheus.CounterVec
}

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the recorder on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		messagesSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfusion_candles_sent_total",
				Help: "Closed candles forwarded to a storage backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfusion_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalfusion_last_price",
				Help: "Last close seen for a coin",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalfusion_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfusion_predictions_total",
				Help: "Final decisions by series and signal",
			},
			[]string{"coin", "timeframe", "signal"},
		),
		confidence: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalfusion_prediction_confidence",
				Help:    "Final decision confidence",
				Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 75, 80, 90, 100},
			},
			[]string{"signal"},
		),
		layerLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalfusion_layer_duration_seconds",
				Help:    "Time spent producing each signal layer",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"layer"},
		),
		layerSignals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfusion_layer_signals_total",
				Help: "Layer outputs by signal",
			},
			[]string{"layer", "signal"},
		),
	}
}

// RecordMessageSent records a candle sent to a backend.
func (r *Recorder) RecordMessageSent(backend, symbol string) {
	r.messagesSent.WithLabelValues(backend, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordPrediction(coin, timeframe string, signal models.Signal, confidence float64) {
	r.predictions.WithLabelValues(coin, timeframe, string(signal)).Inc()
	r.confidence.WithLabelValues(string(signal)).Observe(confidence)
}

func (r *Recorder) RecordLayer(layer string, signal models.Signal, seconds float64) {
	r.layerLatency.WithLabelValues(layer).Observe(seconds)
	r.layerSignals.WithLabelValues(layer, string(signal)).Inc()
}
