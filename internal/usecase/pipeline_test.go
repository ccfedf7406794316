package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"SignalFusion/internal/domain/models"
	mid "SignalFusion/internal/middleware"
	"SignalFusion/internal/repository"
	"SignalFusion/pkg/cache"
)

func TestCandleProcessorKafkaPublishesEachCandle(t *testing.T) {
	pub := &fakeCandlePublisher{}
	m := newFakeMetrics()
	p := NewCandleProcessor(pub, nil, m, nil, BackendKafka, 10, time.Second)

	if err := p.Process(context.Background(), streamCandle("BTC", "1m", true)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(pub.sent) != 1 || m.sent != 1 {
		t.Fatalf("sent=%d metrics=%d", len(pub.sent), m.sent)
	}
	if err := p.Process(context.Background(), nil); err == nil {
		t.Fatalf("nil candle must fail")
	}
}

func TestCandleProcessorBatchesClickHouseInserts(t *testing.T) {
	store := &fakeStore{}
	p := NewCandleProcessor(nil, store, newFakeMetrics(), nil, BackendClickHouse, 3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_ = p.Process(ctx, streamCandle("BTC", "1m", true))
	}
	if store.count() != 0 || p.Pending() != 2 {
		t.Fatalf("flushed too early: stored=%d pending=%d", store.count(), p.Pending())
	}
	_ = p.Process(ctx, streamCandle("ETH", "1m", true))
	if store.count() != 3 || p.Pending() != 0 {
		t.Fatalf("batch not flushed: stored=%d", store.count())
	}

	_ = p.Process(ctx, streamCandle("SOL", "1m", true))
	if err := p.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if store.count() != 4 {
		t.Fatalf("close must flush the partial batch")
	}
}

func TestCandleProcessorKeepsBatchOnFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("clickhouse down")}
	p := NewCandleProcessor(nil, store, newFakeMetrics(), nil, BackendClickHouse, 1, time.Hour)
	if err := p.Process(context.Background(), streamCandle("BTC", "1m", true)); err == nil {
		t.Fatalf("expected store error")
	}
	if p.Pending() != 1 {
		t.Fatalf("failed batch must be kept, pending=%d", p.Pending())
	}
	store.err = nil
	if err := p.Flush(context.Background()); err != nil || store.count() != 1 {
		t.Fatalf("retry flush failed: %v", err)
	}
}

func TestCandleProcessorUnknownBackend(t *testing.T) {
	p := NewCandleProcessor(nil, nil, newFakeMetrics(), nil, "s3", 1, time.Second)
	if err := p.Process(context.Background(), streamCandle("BTC", "1m", true)); err == nil {
		t.Fatalf("expected error")
	}
}

type fakeStream struct {
	mu         sync.Mutex
	batches    [][]*models.StreamCandle
	reads      int
	reconnects int
	connected  bool
}

func (s *fakeStream) Connect(context.Context) error {
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	return nil
}

// Read replays one batch per call, then reports a dropped connection.
func (s *fakeStream) Read(ctx context.Context) (<-chan *models.StreamCandle, <-chan error) {
	s.mu.Lock()
	var batch []*models.StreamCandle
	if s.reads < len(s.batches) {
		batch = s.batches[s.reads]
	}
	s.reads++
	s.mu.Unlock()

	out := make(chan *models.StreamCandle)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errs)
		for _, c := range batch {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
		if batch == nil {
			<-ctx.Done()
			return
		}
		errs <- errors.New("connection reset")
	}()
	return out, errs
}

func (s *fakeStream) Reconnect(context.Context) error {
	s.mu.Lock()
	s.reconnects++
	s.mu.Unlock()
	return nil
}

func (s *fakeStream) Close() error { return nil }

func (s *fakeStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func TestCandleCollectorForwardsClosedBarsAndReconnects(t *testing.T) {
	stream := &fakeStream{batches: [][]*models.StreamCandle{
		{streamCandle("BTC", "1m", false), streamCandle("BTC", "1m", true)},
		{streamCandle("ETH", "1m", true)},
	}}
	pub := &fakeCandlePublisher{}
	m := newFakeMetrics()
	proc := NewCandleProcessor(pub, nil, m, nil, BackendKafka, 1, time.Hour)
	pipe := mid.NewCandlePipeline(proc, m)
	c := NewCandleCollector(stream, proc, m, pipe, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		pub.mu.Lock()
		n := len(pub.sent)
		pub.mu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	pub.mu.Lock()
	sent := len(pub.sent)
	pub.mu.Unlock()
	if sent != 2 {
		t.Fatalf("closed bars forwarded=%d want 2", sent)
	}
	stream.mu.Lock()
	reconnects := stream.reconnects
	stream.mu.Unlock()
	if reconnects < 1 {
		t.Fatalf("expected reconnect after drop")
	}
	if k, ok := c.Latest("BTC", "1m"); !ok || !k.Closed {
		t.Fatalf("latest bar not tracked")
	}
	if !c.IsConnected() {
		t.Fatalf("should report connected")
	}
	cancel()
	_ = c.Shutdown(context.Background())
}

func TestKafkaCandlesHandlerStoresAndEnqueues(t *testing.T) {
	store := &fakeStore{}
	q := &fakeQueue{}
	mc := cache.NewMemoryCache()
	defer mc.Close()
	pc := repository.NewPredictionCache(mc, time.Minute, nil)
	ctx := context.Background()
	for _, p := range []models.Prediction{
		{Coin: "BTC", Timeframe: "1h", MinConfidence: 60},
		{Coin: "BTC", Timeframe: "1h", MinConfidence: 0},
		{Coin: "ETH", Timeframe: "1h", MinConfidence: 60},
	} {
		if err := pc.Set(ctx, &p); err != nil {
			t.Fatalf("seed cache: %v", err)
		}
	}

	h := NewKafkaCandlesHandler("candles", store, pc, q, newFakeMetrics(), nil)
	if h.Topic() != "candles" {
		t.Fatalf("topic=%s", h.Topic())
	}

	b, _ := json.Marshal(streamCandle("BTC", "1h", true))
	if err := h.Handle(ctx, b); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if _, ok := pc.Get(ctx, "BTC", "1h", 60); ok {
		t.Fatalf("cached BTC/1h prediction should be invalidated")
	}
	if _, ok := pc.Get(ctx, "BTC", "1h", 0); ok {
		t.Fatalf("every threshold for the series should be invalidated")
	}
	if _, ok := pc.Get(ctx, "ETH", "1h", 60); !ok {
		t.Fatalf("other series must stay cached")
	}
	if store.count() != 1 || q.count() != 1 {
		t.Fatalf("stored=%d enqueued=%d", store.count(), q.count())
	}
	if q.msgs[0].msgType != RefreshJobType || q.msgs[0].payload.Coin != "BTC" || q.msgs[0].payload.Timeframe != "1h" {
		t.Fatalf("job=%+v", q.msgs[0])
	}

	if err := h.Handle(context.Background(), []byte("{")); err == nil {
		t.Fatalf("bad json must be retried/dead-lettered")
	}
	if err := h.Handle(context.Background(), []byte(`{"coin":""}`)); err != nil {
		t.Fatalf("invalid candle should be dropped, got %v", err)
	}

	store.err = errors.New("insert failed")
	if err := h.Handle(context.Background(), b); err == nil {
		t.Fatalf("store failure must surface")
	}
	if q.count() != 1 {
		t.Fatalf("refresh must not be enqueued when storing failed")
	}
}

type fakeRefresher struct {
	calls []RefreshPayload
	pred  models.Prediction
	err   error
}

func (f *fakeRefresher) Refresh(_ context.Context, coin, tf string, minConf float64) (models.Prediction, error) {
	f.calls = append(f.calls, RefreshPayload{Coin: coin, Timeframe: tf, MinConfidence: minConf})
	return f.pred, f.err
}

func TestRefreshJob(t *testing.T) {
	r := &fakeRefresher{pred: models.Prediction{Coin: "BTC", Timeframe: "1h"}}
	j := NewRefreshJob(r, 60, nil)
	if j.Type() != RefreshJobType || j.Name() == "" {
		t.Fatalf("job identity wrong")
	}

	if err := j.Handle(context.Background(), json.RawMessage(`{"coin":"BTC","timeframe":"1h"}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if r.calls[0].MinConfidence != 60 {
		t.Fatalf("default threshold not applied: %+v", r.calls[0])
	}

	r.pred.Error = "no price data available"
	if err := j.Handle(context.Background(), json.RawMessage(`{"coin":"BTC","timeframe":"1h","min_confidence":70}`)); err == nil {
		t.Fatalf("failed prediction should be retried")
	}
	if r.calls[1].MinConfidence != 70 {
		t.Fatalf("payload threshold ignored")
	}

	r.err = ErrUnsupportedCoin
	if err := j.Handle(context.Background(), json.RawMessage(`{"coin":"PEPE","timeframe":"1h"}`)); err != nil {
		t.Fatalf("unsupported series must not retry: %v", err)
	}
	if err := j.Handle(context.Background(), nil); err == nil {
		t.Fatalf("empty payload must fail")
	}
}

type fakeLock struct{ held bool }

func (l *fakeLock) TryLock(context.Context, string, time.Duration) (bool, error) {
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func TestSchedulerTick(t *testing.T) {
	q := &fakeQueue{}
	lock := &fakeLock{}
	s := NewScheduler(q, lock, []string{"BTC", "ETH"}, []string{"1m", "1h"}, time.Minute, nil)

	if n := s.Tick(context.Background()); n != 4 || q.count() != 4 {
		t.Fatalf("enqueued=%d", n)
	}
	if n := s.Tick(context.Background()); n != 0 {
		t.Fatalf("lock held by another replica, enqueued=%d", n)
	}

	q2 := &fakeQueue{err: errors.New("redis down")}
	s2 := NewScheduler(q2, nil, []string{"BTC"}, []string{"1h"}, time.Minute, nil)
	if n := s2.Tick(context.Background()); n != 0 {
		t.Fatalf("failed enqueues should not count")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	q := &fakeQueue{}
	s := NewScheduler(q, nil, []string{"BTC"}, []string{"1h"}, 10*time.Millisecond, nil)
	s.Start(context.Background())
	s.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for q.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()
	s.Stop()
	if q.count() < 2 {
		t.Fatalf("scheduler did not tick, enqueued=%d", q.count())
	}
}

func TestMarketData(t *testing.T) {
	src := &fakeCandles{candles: trend(300, 10)}
	uc := NewMarketDataUseCase(src, mustEngine(t))

	md, err := uc.GetMarketData(context.Background(), GetMarketDataParams{Coin: "eth", Timeframe: "1h"})
	if err != nil {
		t.Fatalf("GetMarketData: %v", err)
	}
	if md.Coin != "ETH" || md.Count != DefaultMarketLimit || md.Candles[0].Indicators != nil {
		t.Fatalf("md=%+v", md)
	}
	if s := md.Summary; s.ChangePct <= 0 || s.High <= s.Low || s.RealizedVolatility <= 0 || !s.Last.After(s.First) {
		t.Fatalf("summary %+v", s)
	}

	md, _ = uc.GetMarketData(context.Background(), GetMarketDataParams{Coin: "ETH", Timeframe: "1h", Limit: 50, IncludeIndicators: true})
	if md.Count != 50 {
		t.Fatalf("count=%d", md.Count)
	}
	if md.Candles[0].Indicators == nil || md.Candles[0].Indicators.RSI.Valid {
		t.Fatalf("first bar must carry null warm-up indicators")
	}
	if !md.Candles[49].Indicators.RSI.Valid || !md.Candles[49].Indicators.ATR.Valid {
		t.Fatalf("last bar indicators must be populated")
	}

	_, _ = uc.GetMarketData(context.Background(), GetMarketDataParams{Coin: "ETH", Timeframe: "1h", Limit: 5000})
	if got := src.limits[len(src.limits)-1]; got != MaxMarketLimit {
		t.Fatalf("limit not capped: %d", got)
	}
	if _, err := uc.GetMarketData(context.Background(), GetMarketDataParams{Coin: "XYZ", Timeframe: "1h"}); !errors.Is(err, ErrUnsupportedCoin) {
		t.Fatalf("err=%v", err)
	}
}
