package repository

import (
	"context"
	"time"

	"SignalFusion/internal/domain/models"
)

// CandleSource returns the latest candles for a series, ascending by time.
type CandleSource interface {
	GetCandles(ctx context.Context, coin string, tf Timeframe, limit int) ([]models.Candle, error)
}

// CandleStore persists closed candles and serves them back as a fallback source.
type CandleStore interface {
	Init(ctx context.Context) error
	StoreBatch(ctx context.Context, candles []*models.StreamCandle) error
	GetLatestNCandles(ctx context.Context, coin string, n int, tf Timeframe) ([]models.Candle, error)
	GetCandles(ctx context.Context, coin string, from, to time.Time, tf Timeframe) ([]models.Candle, error)
	Health(ctx context.Context) error
	Close() error
}

// CandleStream is a live source of candles.
type CandleStream interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.StreamCandle, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// CandlePublisher forwards closed candles to the message bus.
type CandlePublisher interface {
	PublishCandle(ctx context.Context, c *models.StreamCandle) error
	PublishCandles(ctx context.Context, candles []*models.StreamCandle) error
}

// PredictionPublisher emits finished predictions to downstream consumers.
type PredictionPublisher interface {
	PublishPrediction(ctx context.Context, p *models.Prediction) error
}

// PredictionHistory records predictions for later inspection.
type PredictionHistory interface {
	Save(ctx context.Context, p *models.Prediction) error
	Recent(ctx context.Context, coin, timeframe string, limit int) ([]models.Prediction, error)
	Health(ctx context.Context) error
}

// PredictionCache holds the latest prediction per series.
type PredictionCache interface {
	Get(ctx context.Context, coin, timeframe string, minConfidence float64) (*models.Prediction, bool)
	Set(ctx context.Context, p *models.Prediction) error
	Invalidate(ctx context.Context, coin, timeframe string) error
}

type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordPrediction(coin, timeframe string, signal models.Signal, confidence float64)
	RecordLayer(layer string, signal models.Signal, seconds float64)
}
