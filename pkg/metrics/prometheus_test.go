package metrics

import (
	"testing"

	"SignalFusion/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCountsPredictions(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordPrediction("BTC", "1h", models.SignalBuy, 72)
	r.RecordPrediction("BTC", "1h", models.SignalBuy, 64)
	r.RecordLayer("strategy", models.SignalSell, 0.01)
	r.RecordLastPrice("BTC", 50000)

	if got := testutil.ToFloat64(r.predictions.WithLabelValues("BTC", "1h", "BUY")); got != 2 {
		t.Fatalf("predictions=%v", got)
	}
	if got := testutil.ToFloat64(r.layerSignals.WithLabelValues("strategy", "SELL")); got != 1 {
		t.Fatalf("layer signals=%v", got)
	}
	if got := testutil.ToFloat64(r.lastPrice.WithLabelValues("BTC")); got != 50000 {
		t.Fatalf("last price=%v", got)
	}
}
