package sentiment

import (
	"testing"

	"SignalFusion/internal/domain/models"
)

func TestFearGreedReading(t *testing.T) {
	r := FearGreedReading(75, "Greed")
	if r.Score != 0.5 || r.Confidence != 50 {
		t.Fatalf("got %+v", r)
	}
	r = FearGreedReading(10, "Extreme Fear")
	if r.Score != -0.8 || r.Confidence != 80 {
		t.Fatalf("got %+v", r)
	}
}

func TestNewsReadingFloor(t *testing.T) {
	r := NewsReading(0.4, 0.1)
	if r.Confidence != 20 {
		t.Fatalf("confidence=%v want 20", r.Confidence)
	}
}

func TestAggregateBlend(t *testing.T) {
	a := NewAggregator(DefaultWeights())
	res := a.Aggregate([]models.SentimentReading{
		FearGreedReading(75, "Greed"),
		NewsReading(0.4, 0.5),
		NewsReading(0, 0.3),
	})
	if res.Signal != models.SignalBuy {
		t.Fatalf("signal=%s", res.Signal)
	}
	// weighted confidences: 50*0.3=15 and 40*0.7=28
	if res.Confidence != 21.5 {
		t.Fatalf("confidence=%v want 21.5", res.Confidence)
	}
	if s, _ := res.Score.Get(); s != 0.435 {
		t.Fatalf("score=%v want 0.435", s)
	}
	if res.Sources != 2 {
		t.Fatalf("sources=%d", res.Sources)
	}
}

func TestAggregateNewsWithoutOpinionIsSkipped(t *testing.T) {
	a := NewAggregator(DefaultWeights())
	res := a.Aggregate([]models.SentimentReading{
		FearGreedReading(20, "Fear"),
		NewsReading(0, 0.9),
	})
	if res.Sources != 1 || res.Signal != models.SignalSell {
		t.Fatalf("got %+v", res)
	}
}

func TestAggregateZeroWeightIsNeutral(t *testing.T) {
	a := NewAggregator(DefaultWeights())
	res := a.Aggregate([]models.SentimentReading{FearGreedReading(50, "Neutral")})
	if res.Signal != models.SignalNeutral || res.Confidence != 0 {
		t.Fatalf("got %s %.2f", res.Signal, res.Confidence)
	}
	if res.Score.Valid {
		t.Fatalf("score should be unavailable")
	}
}

func TestAggregateEmpty(t *testing.T) {
	res := NewAggregator(DefaultWeights()).Aggregate(nil)
	if res.Signal != models.SignalNeutral || res.Confidence != 0 || res.Sources != 0 {
		t.Fatalf("got %+v", res)
	}
}
