package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"SignalFusion/internal/domain/models"
	domrepo "SignalFusion/internal/domain/repository"
	"SignalFusion/pkg/cache"
)

type fakeSource struct {
	candles []models.Candle
	err     error
	calls   int
}

func (f *fakeSource) GetCandles(context.Context, string, domrepo.Timeframe, int) ([]models.Candle, error) {
	f.calls++
	return f.candles, f.err
}

type fakeStore struct {
	domrepo.CandleStore
	candles []models.Candle
	err     error
}

func (f *fakeStore) GetLatestNCandles(context.Context, string, int, domrepo.Timeframe) ([]models.Candle, error) {
	return f.candles, f.err
}

func sampleCandles() []models.Candle {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []models.Candle{{Timestamp: ts, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}}
}

func TestCandleTTL(t *testing.T) {
	cases := map[domrepo.Timeframe]time.Duration{
		domrepo.TF1s: 5 * time.Second,
		domrepo.TF1m: 30 * time.Second,
		domrepo.TF5m: 150 * time.Second,
		domrepo.TF1h: 5 * time.Minute,
		domrepo.TF1M: 5 * time.Minute,
	}
	for tf, want := range cases {
		if got := CandleTTL(tf); got != want {
			t.Fatalf("%s: got %v want %v", tf, got, want)
		}
	}
}

func TestCachedCandleSourceCachesPrimary(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	src := &fakeSource{candles: sampleCandles()}
	s := NewCachedCandleSource(src, mc, nil, nil)

	for i := 0; i < 2; i++ {
		got, err := s.GetCandles(context.Background(), "BTC", domrepo.TF1h, 100)
		if err != nil || len(got) != 1 || got[0].Close != 1.5 {
			t.Fatalf("got %v err %v", got, err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("primary called %d times", src.calls)
	}
}

func TestCachedCandleSourceFallsBackToStore(t *testing.T) {
	src := &fakeSource{err: &models.UpstreamUnavailableError{Source: "binance", Err: errors.New("down")}}
	store := &fakeStore{candles: sampleCandles()}
	s := NewCachedCandleSource(src, nil, store, nil)

	got, err := s.GetCandles(context.Background(), "BTC", domrepo.TF1h, 100)
	if err != nil || len(got) != 1 {
		t.Fatalf("got %v err %v", got, err)
	}
}

func TestCachedCandleSourceEmptyEverywhere(t *testing.T) {
	s := NewCachedCandleSource(&fakeSource{}, nil, &fakeStore{}, nil)
	_, err := s.GetCandles(context.Background(), "BTC", domrepo.TF1h, 100)
	if !errors.Is(err, models.ErrNoPriceData) {
		t.Fatalf("err=%v", err)
	}
}

func TestMemoryPredictionHistory(t *testing.T) {
	h := NewMemoryPredictionHistory(3)
	ctx := context.Background()
	for i, coin := range []string{"BTC", "ETH", "BTC", "BTC"} {
		p := models.Prediction{ID: string(rune('a' + i)), Coin: coin, Timeframe: "1h"}
		_ = h.Save(ctx, &p)
	}

	all, _ := h.Recent(ctx, "", "", 10)
	if len(all) != 3 || all[0].ID != "d" {
		t.Fatalf("all=%v", all)
	}
	btc, _ := h.Recent(ctx, "btc", "1h", 10)
	if len(btc) != 2 || btc[0].ID != "d" || btc[1].ID != "c" {
		t.Fatalf("btc=%v", btc)
	}
	one, _ := h.Recent(ctx, "", "", 1)
	if len(one) != 1 {
		t.Fatalf("limit ignored")
	}
}

func TestPredictionRowFlattensLayers(t *testing.T) {
	high := models.TargetHigh
	p := &models.Prediction{
		ID:       "id-1",
		Coin:     "BTC",
		Strategy: &models.LayerView{Signal: models.SignalBuy, Confidence: 70},
		Final: models.FinalView{
			Signal:      models.SignalBuy,
			Confidence:  66,
			TargetPrice: models.Float(101.5),
			TargetType:  &high,
		},
	}
	row, err := newPredictionRow(p)
	if err != nil {
		t.Fatalf("newPredictionRow: %v", err)
	}
	if row.StrategySignal == nil || *row.StrategySignal != "BUY" || row.MLSignal != nil {
		t.Fatalf("layer columns wrong: %+v", row)
	}
	if row.TargetPrice == nil || *row.TargetPrice != 101.5 || row.TargetType == nil || *row.TargetType != "HIGH" {
		t.Fatalf("target columns wrong")
	}
	if row.StopLoss != nil {
		t.Fatalf("stop loss should be NULL")
	}
}

func TestPredictionCache(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	pc := NewPredictionCache(mc, time.Minute, nil)
	ctx := context.Background()

	p := &models.Prediction{ID: "x", Coin: "BTC", Timeframe: "1h", MinConfidence: 60}
	if err := pc.Set(ctx, p); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, ok := pc.Get(ctx, "btc", "1h", 60); !ok || got.ID != "x" {
		t.Fatalf("miss")
	}
	if _, ok := pc.Get(ctx, "BTC", "1h", 70); ok {
		t.Fatalf("threshold must be part of the key")
	}

	_ = pc.Invalidate(ctx, "BTC", "1h")
	if _, ok := pc.Get(ctx, "BTC", "1h", 60); ok {
		t.Fatalf("invalidate failed")
	}

	failed := &models.Prediction{ID: "y", Coin: "ETH", Timeframe: "1h", Error: "no data"}
	_ = pc.Set(ctx, failed)
	if _, ok := pc.Get(ctx, "ETH", "1h", 0); ok {
		t.Fatalf("failed predictions must not be cached")
	}
}
