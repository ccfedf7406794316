package usecase

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"SignalFusion/internal/domain/models"
	"SignalFusion/internal/repository"
	"SignalFusion/internal/services/ensemble"
	"SignalFusion/internal/services/sentiment"
	"SignalFusion/pkg/cache"
)

func buyVotes() []models.ClassifierVote {
	return []models.ClassifierVote{
		ensemble.NewVote("logistic_regression", 1, []float64{0.2, 0.8}),
		ensemble.NewVote("random_forest", 1, []float64{0.25, 0.75}),
		ensemble.NewVote("xgboost", 1, []float64{0.3, 0.7}),
	}
}

type fixture struct {
	svc       *PredictionService
	candles   *fakeCandles
	history   *repository.MemoryPredictionHistory
	publisher *fakePublisher
	metrics   *fakeMetrics
	cache     *cache.MemoryCache
}

func newFixture(t *testing.T, mutate func(*PredictionDeps, *PredictionOptions)) *fixture {
	t.Helper()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	f := &fixture{
		candles:   &fakeCandles{candles: trend(150, 25)},
		history:   repository.NewMemoryPredictionHistory(10),
		publisher: &fakePublisher{},
		metrics:   newFakeMetrics(),
		cache:     mc,
	}
	deps := PredictionDeps{
		Engine:     mustEngine(t),
		Candles:    f.candles,
		Classifier: &fakeClassifier{votes: buyVotes()},
		FearGreed:  &fakeFearGreed{reading: sentiment.FearGreedReading(72, "Greed")},
		News:       &fakeNews{readings: []models.SentimentReading{sentiment.NewsReading(0.6, 0.8)}},
		Cache:      repository.NewPredictionCache(mc, time.Minute, nil),
		History:    f.history,
		Publisher:  f.publisher,
		Metrics:    f.metrics,
	}
	opts := PredictionOptions{MLTimeout: time.Second, NewsTimeout: time.Second}
	if mutate != nil {
		mutate(&deps, &opts)
	}
	svc, err := NewPredictionService(deps, opts)
	if err != nil {
		t.Fatalf("NewPredictionService: %v", err)
	}
	f.svc = svc
	return f
}

func TestNewPredictionServiceRequiresEngineAndCandles(t *testing.T) {
	if _, err := NewPredictionService(PredictionDeps{}, PredictionOptions{}); err == nil {
		t.Fatalf("expected error for missing deps")
	}
}

func TestPredictFusesAllLayers(t *testing.T) {
	f := newFixture(t, nil)
	p, err := f.svc.Predict(context.Background(), "btc", "1H", 60)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if p.ID == "" || p.Coin != "BTC" || p.Timeframe != "1h" {
		t.Fatalf("identity wrong: %+v", p)
	}
	if p.Error != "" || len(p.Errors) != 0 {
		t.Fatalf("unexpected errors: %q %v", p.Error, p.Errors)
	}
	if p.Strategy == nil || p.Strategy.Total == 0 {
		t.Fatalf("strategy layer missing")
	}
	if p.ML == nil || p.ML.Signal != models.SignalBuy || p.ML.Total != 3 {
		t.Fatalf("ml layer=%+v", p.ML)
	}
	if p.News == nil || p.News.Signal != models.SignalBuy || p.News.NumSources != 2 {
		t.Fatalf("news layer=%+v", p.News)
	}
	if p.CurrentPrice <= 0 || p.Breakdown == nil || p.Target == nil {
		t.Fatalf("incomplete prediction: %+v", p)
	}
	if f.candles.limits[0] != 100 {
		t.Fatalf("candle limit=%d want 100", f.candles.limits[0])
	}
	if f.metrics.predictions != 1 || f.metrics.layers["strategy"] != 1 || f.metrics.layers["ml"] != 1 || f.metrics.layers["news"] != 1 {
		t.Fatalf("metrics not recorded: %+v", f.metrics)
	}
	if len(f.publisher.got) != 1 {
		t.Fatalf("published %d", len(f.publisher.got))
	}
	hist, _ := f.history.Recent(context.Background(), "BTC", "1h", 10)
	if len(hist) != 1 || hist[0].ID != p.ID {
		t.Fatalf("history=%v", hist)
	}
}

func TestPredictServesFromCache(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	first, _ := f.svc.Predict(ctx, "ETH", "4h", 60)
	second, _ := f.svc.Predict(ctx, "ETH", "4h", 60)
	if first.ID != second.ID || f.candles.calls != 1 {
		t.Fatalf("expected cache hit, calls=%d", f.candles.calls)
	}

	third, _ := f.svc.Refresh(ctx, "ETH", "4h", 60)
	if third.ID == first.ID || f.candles.calls != 2 {
		t.Fatalf("refresh must recompute")
	}
	fourth, _ := f.svc.Predict(ctx, "ETH", "4h", 60)
	if fourth.ID != third.ID {
		t.Fatalf("refresh must overwrite cache")
	}
}

func TestPredictRejectsUnsupportedSeries(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.svc.Predict(context.Background(), "PEPE", "1h", 60); !errors.Is(err, ErrUnsupportedCoin) {
		t.Fatalf("err=%v", err)
	}
	if _, err := f.svc.Predict(context.Background(), "BTC", "7m", 60); !errors.Is(err, ErrUnsupportedTimeframe) {
		t.Fatalf("err=%v", err)
	}
}

func TestPredictWithoutCandlesReturnsEmptyShape(t *testing.T) {
	f := newFixture(t, nil)
	f.candles.err = &models.UpstreamUnavailableError{Source: "binance", Err: errors.New("down")}

	p, err := f.svc.Predict(context.Background(), "BTC", "1h", 60)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if p.Error == "" || p.Final.Signal != models.SignalNeutral || p.Final.Confidence != 0 || p.CurrentPrice != 0 {
		t.Fatalf("want empty prediction, got %+v", p)
	}
	if p.Final.TargetPrice.Valid || p.Final.TargetType != nil {
		t.Fatalf("target must be null")
	}
	_, _ = f.svc.Predict(context.Background(), "BTC", "1h", 60)
	if f.candles.calls != 2 {
		t.Fatalf("failed predictions must not be cached")
	}
	if len(f.publisher.got) != 0 {
		t.Fatalf("failed predictions must not be published")
	}
}

func TestPredictDegradesFailedClassifier(t *testing.T) {
	f := newFixture(t, func(d *PredictionDeps, _ *PredictionOptions) {
		d.Classifier = &fakeClassifier{err: &models.UpstreamUnavailableError{Source: "analytics", Err: errors.New("503")}}
	})
	p, _ := f.svc.Predict(context.Background(), "BTC", "1h", 60)
	if p.ML.Signal != models.SignalNeutral || p.ML.Confidence != 0 {
		t.Fatalf("ml layer=%+v", p.ML)
	}
	if len(p.Errors) != 1 || !strings.HasPrefix(p.Errors[0], "ml: ") {
		t.Fatalf("layer errors=%v", p.Errors)
	}
	if p.Error != "" {
		t.Fatalf("partial failure is not a total failure")
	}
}

func TestPredictBoundsSlowClassifier(t *testing.T) {
	f := newFixture(t, func(d *PredictionDeps, o *PredictionOptions) {
		d.Classifier = &fakeClassifier{block: true}
		o.MLTimeout = 20 * time.Millisecond
	})
	start := time.Now()
	p, _ := f.svc.Predict(context.Background(), "BTC", "1h", 60)
	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout not applied")
	}
	if p.ML.Signal != models.SignalNeutral || len(p.Errors) != 1 {
		t.Fatalf("ml=%+v errors=%v", p.ML, p.Errors)
	}
}

func TestPredictRecoversLayerPanic(t *testing.T) {
	f := newFixture(t, func(d *PredictionDeps, _ *PredictionOptions) {
		d.Classifier = &fakeClassifier{panic: true}
	})
	p, _ := f.svc.Predict(context.Background(), "BTC", "1h", 60)
	if p.ML.Signal != models.SignalNeutral || len(p.Errors) != 1 || !strings.Contains(p.Errors[0], "panic") {
		t.Fatalf("ml=%+v errors=%v", p.ML, p.Errors)
	}
}

func TestPredictSentimentSources(t *testing.T) {
	f := newFixture(t, func(d *PredictionDeps, _ *PredictionOptions) {
		d.FearGreed = &fakeFearGreed{err: errors.New("alternative.me down")}
	})
	p, _ := f.svc.Predict(context.Background(), "BTC", "1h", 60)
	if p.News.NumSources != 1 || len(p.Errors) != 0 {
		t.Fatalf("one source should remain: %+v %v", p.News, p.Errors)
	}

	f = newFixture(t, func(d *PredictionDeps, _ *PredictionOptions) {
		d.FearGreed = &fakeFearGreed{err: errors.New("down")}
		d.News = &fakeNews{err: errors.New("down")}
	})
	p, _ = f.svc.Predict(context.Background(), "BTC", "1h", 60)
	if p.News.Signal != models.SignalNeutral || len(p.Errors) != 1 || !strings.HasPrefix(p.Errors[0], "news: ") {
		t.Fatalf("news=%+v errors=%v", p.News, p.Errors)
	}
}

func TestPredictWithoutCollaborators(t *testing.T) {
	f := newFixture(t, func(d *PredictionDeps, _ *PredictionOptions) {
		d.Classifier, d.FearGreed, d.News = nil, nil, nil
		d.Cache, d.History, d.Publisher = nil, nil, nil
	})
	p, err := f.svc.Predict(context.Background(), "SOL", "15m", 60)
	if err != nil || p.Error != "" {
		t.Fatalf("err=%v p.Error=%q", err, p.Error)
	}
	if p.ML.Total != 0 || p.News.NumSources != 0 {
		t.Fatalf("absent collaborators should give empty layers")
	}
	hist, err := f.svc.History(context.Background(), "", "", 10)
	if err != nil || len(hist) != 0 {
		t.Fatalf("history without store: %v %v", hist, err)
	}
	if f.svc.Health(context.Background()) != nil {
		t.Fatalf("health without store should pass")
	}
}

func TestReplayIsDeterministicAndSideEffectFree(t *testing.T) {
	f := newFixture(t, nil)
	candles := trend(100, -30)
	// reversed input is sorted back into time order
	reversed := make([]models.Candle, len(candles))
	for i, c := range candles {
		reversed[len(candles)-1-i] = c
	}
	req := models.ReplayRequest{Coin: "btc", Timeframe: "1h", Candles: candles, Votes: buyVotes(), MinConfidence: models.Float(60)}
	a := f.svc.Replay(context.Background(), req)
	req.Candles = reversed
	b := f.svc.Replay(context.Background(), req)

	if a.ID == b.ID {
		t.Fatalf("replays should get fresh ids")
	}
	if !reflect.DeepEqual(a.Final, b.Final) || !reflect.DeepEqual(a.Breakdown, b.Breakdown) {
		t.Fatalf("replay not deterministic:\n%+v\n%+v", a.Final, b.Final)
	}
	if a.Coin != "BTC" {
		t.Fatalf("coin=%s", a.Coin)
	}
	if f.candles.calls != 0 || len(f.publisher.got) != 0 {
		t.Fatalf("replay must not touch sources or sinks")
	}
}
