package decision

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"SignalFusion/internal/domain/models"
	"SignalFusion/internal/services/fusion"
)

func mustEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func trend(n int, slope float64) []models.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := range out {
		p := 43000 + slope*float64(i) + 150*math.Sin(float64(i)/3)
		out[i] = models.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      p - 20,
			High:      p + 250,
			Low:       p - 250,
			Close:     p,
			Volume:    1000 + 50*math.Cos(float64(i)),
		}
	}
	return out
}

func TestDecideEmptyCandles(t *testing.T) {
	e := mustEngine(t, DefaultConfig())
	d := e.Decide(nil, nil, nil, 60)
	if !errors.Is(d.Err, models.ErrNoPriceData) {
		t.Fatalf("expected ErrNoPriceData, got %v", d.Err)
	}
	if d.Fused.FinalSignal != models.SignalNeutral || d.Fused.FinalConfidence != 0 {
		t.Fatalf("got %+v", d.Fused)
	}
	if d.Target.HasTarget() || d.MeetsThreshold {
		t.Fatalf("empty decision must not carry a target")
	}
}

func TestDecideDeterministic(t *testing.T) {
	e := mustEngine(t, DefaultConfig())
	candles := trend(100, 25)
	votes := []models.ClassifierVote{
		{ModelID: "logistic_regression", Signal: models.SignalBuy, Confidence: 64},
		{ModelID: "random_forest", Signal: models.SignalBuy, Confidence: 71},
		{ModelID: "xgboost", Signal: models.SignalSell, Confidence: 55},
	}
	readings := []models.SentimentReading{{Source: models.SourceFearGreed, Score: 0.3, Confidence: 30}}

	a := e.Decide(candles, votes, readings, 60)
	b := e.Decide(candles, votes, readings, 60)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("decisions differ")
	}
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Fatalf("serialized decisions differ")
	}
}

func TestDecideConfidenceInRange(t *testing.T) {
	e := mustEngine(t, DefaultConfig())
	for _, slope := range []float64{-80, -10, 0, 10, 80} {
		d := e.Decide(trend(100, slope), nil, nil, 60)
		for _, l := range []models.LayerResult{d.Strategy, d.ML, d.News} {
			if l.Confidence < 0 || l.Confidence > 100 || !l.Signal.Valid() {
				t.Fatalf("layer out of range: %+v", l)
			}
		}
		if c := d.Fused.FinalConfidence; c < 0 || c > 100 {
			t.Fatalf("final confidence %v", c)
		}
		for _, r := range d.Strategy.Records {
			if r.Confidence < 0 || r.Confidence > 100 {
				t.Fatalf("%s confidence %v", r.Name, r.Confidence)
			}
		}
	}
}

func TestFinalizeUnanimousBuyGetsTarget(t *testing.T) {
	e := mustEngine(t, DefaultConfig())
	candles := trend(100, 10)
	set := e.Indicators(candles)
	d := e.Finalize(candles, set,
		models.LayerResult{Signal: models.SignalBuy, Confidence: 80},
		models.LayerResult{Signal: models.SignalBuy, Confidence: 75},
		models.LayerResult{Signal: models.SignalBuy, Confidence: 70},
		60,
	)
	if d.Fused.FinalSignal != models.SignalBuy || d.Fused.FinalConfidence != 90.75 {
		t.Fatalf("got %+v", d.Fused)
	}
	if !d.Target.HasTarget() || *d.Target.Type != models.TargetHigh {
		t.Fatalf("expected HIGH target, got %+v", d.Target)
	}
	price, _ := d.CurrentPrice.Get()
	tgt, _ := d.Target.Price.Get()
	stop, ok := d.StopLoss.Get()
	if !ok || tgt <= price || stop >= price {
		t.Fatalf("price=%v target=%v stop=%v", price, tgt, stop)
	}
	if !d.MeetsThreshold {
		t.Fatalf("expected threshold to be met")
	}
}

func TestFinalizeMLUnavailable(t *testing.T) {
	e := mustEngine(t, DefaultConfig())
	candles := trend(100, 10)
	set := e.Indicators(candles)
	d := e.Finalize(candles, set,
		models.LayerResult{Signal: models.SignalBuy, Confidence: 70},
		models.NeutralLayer(),
		models.NeutralLayer(),
		60,
	)
	if d.Fused.FinalSignal != models.SignalBuy || d.Fused.FinalConfidence != 28 {
		t.Fatalf("got %+v", d.Fused)
	}
	if d.Target.HasTarget() || d.StopLoss.Valid {
		t.Fatalf("low confidence must not produce a target")
	}
}

func TestNewEngineRejectsZeroWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights = fusion.Weights{}
	_, err := NewEngine(cfg)
	var ce *models.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestNewEngineRejectsInvertedRSIBands(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategies.RSIOversold = 80
	if _, err := NewEngine(cfg); err == nil {
		t.Fatalf("expected error")
	}
}

func TestConfigReturnsNormalizedWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights = fusion.Weights{Strategy: 2, ML: 1, News: 1}
	w := mustEngine(t, cfg).Config().Weights
	if w.Strategy != 0.5 || w.ML != 0.25 || w.News != 0.25 {
		t.Fatalf("unexpected weights %+v", w)
	}
}
