package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"SignalFusion/internal/domain/models"
	domrepo "SignalFusion/internal/domain/repository"
	"SignalFusion/internal/services/decision"
)

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

func mustEngine(t *testing.T) *decision.Engine {
	t.Helper()
	e, err := decision.NewEngine(decision.DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

type fakeCandles struct {
	mu      sync.Mutex
	candles []models.Candle
	err     error
	calls   int
	limits  []int
}

func (f *fakeCandles) GetCandles(_ context.Context, _ string, _ domrepo.Timeframe, limit int) ([]models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.candles) {
		return f.candles[len(f.candles)-limit:], nil
	}
	return f.candles, nil
}

type fakeClassifier struct {
	votes []models.ClassifierVote
	err   error
	block bool
	panic bool
}

func (f *fakeClassifier) Predict(ctx context.Context, _, _ string, features models.FeatureRow) ([]models.ClassifierVote, error) {
	if f.panic {
		panic("classifier exploded")
	}
	if f.block {
		<-ctx.Done()
		return nil, &models.UpstreamUnavailableError{Source: "analytics", Err: ctx.Err()}
	}
	if len(features) != len(models.FeatureColumns) {
		return nil, errors.New("incomplete feature row")
	}
	return f.votes, f.err
}

type fakeFearGreed struct {
	reading models.SentimentReading
	err     error
}

func (f *fakeFearGreed) FearGreed(context.Context) (models.SentimentReading, error) {
	return f.reading, f.err
}

type fakeNews struct {
	readings []models.SentimentReading
	err      error
}

func (f *fakeNews) NewsSentiment(context.Context, string, time.Duration) ([]models.SentimentReading, error) {
	return f.readings, f.err
}

type fakePublisher struct {
	mu  sync.Mutex
	got []models.Prediction
	err error
}

func (f *fakePublisher) PublishPrediction(_ context.Context, p *models.Prediction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, *p)
	return f.err
}

type fakeMetrics struct {
	mu          sync.Mutex
	errors      map[string]int
	sent        int
	predictions int
	layers      map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{errors: map[string]int{}, layers: map[string]int{}}
}

func (m *fakeMetrics) RecordMessageSent(string, string) {
	m.mu.Lock()
	m.sent++
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordLastPrice(string, float64) {}
func (m *fakeMetrics) RecordLatency(string, float64)   {}
func (m *fakeMetrics) RecordPrediction(string, string, models.Signal, float64) {
	m.mu.Lock()
	m.predictions++
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordLayer(layer string, _ models.Signal, _ float64) {
	m.mu.Lock()
	m.layers[layer]++
	m.mu.Unlock()
}

type fakeStore struct {
	domrepo.CandleStore
	mu     sync.Mutex
	stored []*models.StreamCandle
	err    error
}

func (f *fakeStore) StoreBatch(_ context.Context, candles []*models.StreamCandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, candles...)
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stored)
}

type fakeCandlePublisher struct {
	mu   sync.Mutex
	sent []*models.StreamCandle
	err  error
}

func (f *fakeCandlePublisher) PublishCandle(_ context.Context, c *models.StreamCandle) error {
	return f.PublishCandles(context.Background(), []*models.StreamCandle{c})
}

func (f *fakeCandlePublisher) PublishCandles(_ context.Context, cs []*models.StreamCandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, cs...)
	return nil
}

type enqueued struct {
	msgType string
	payload RefreshPayload
}

type fakeQueue struct {
	mu   sync.Mutex
	msgs []enqueued
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, msgType string, payload interface{}) error {
	if q.err != nil {
		return q.err
	}
	b, _ := json.Marshal(payload)
	var p RefreshPayload
	_ = json.Unmarshal(b, &p)
	q.mu.Lock()
	q.msgs = append(q.msgs, enqueued{msgType: msgType, payload: p})
	q.mu.Unlock()
	return nil
}

func (q *fakeQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}

func streamCandle(coin, tf string, closed bool) *models.StreamCandle {
	return &models.StreamCandle{
		Candle: models.Candle{
			Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Open:      100, High: 110, Low: 95, Close: 105, Volume: 12,
		},
		Coin:      coin,
		Timeframe: tf,
		Closed:    closed,
	}
}
