package service

import (
	"context"
	"time"

	"SignalFusion/internal/domain/models"
)

// ClassifierEnsemble asks the trained models for their votes on the latest feature row.
type ClassifierEnsemble interface {
	Predict(ctx context.Context, coin, timeframe string, features models.FeatureRow) ([]models.ClassifierVote, error)
}

// FearGreedProvider returns the current market-wide fear and greed reading.
type FearGreedProvider interface {
	FearGreed(ctx context.Context) (models.SentimentReading, error)
}

// NewsSentimentProvider returns one reading per recent news item for a coin.
type NewsSentimentProvider interface {
	NewsSentiment(ctx context.Context, coin string, lookback time.Duration) ([]models.SentimentReading, error)
}
