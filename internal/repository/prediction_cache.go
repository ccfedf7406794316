package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	"SignalFusion/internal/domain/models"
	domrepo "SignalFusion/internal/domain/repository"
	"SignalFusion/pkg/cache"
	applogger "SignalFusion/pkg/logger"
)

// PredictionCache keeps the latest prediction per series and threshold.
type PredictionCache struct {
	c   cache.Service
	ttl time.Duration
	l   *applogger.Logger
}

func NewPredictionCache(c cache.Service, ttl time.Duration, l *applogger.Logger) *PredictionCache {
	if l == nil {
		l = applogger.Nop()
	}
	return &PredictionCache{c: c, ttl: ttl, l: l}
}

func predictionKey(coin, timeframe string, minConfidence float64) string {
	return cache.Key("prediction", strings.ToUpper(coin), timeframe,
		strconv.FormatFloat(minConfidence, 'f', -1, 64))
}

func (p *PredictionCache) Get(ctx context.Context, coin, timeframe string, minConfidence float64) (*models.Prediction, bool) {
	if p.ttl <= 0 {
		return nil, false
	}
	var pr models.Prediction
	if err := p.c.Get(ctx, predictionKey(coin, timeframe, minConfidence), &pr); err != nil {
		return nil, false
	}
	return &pr, true
}

// Set skips failed predictions so an outage is not served from cache.
func (p *PredictionCache) Set(ctx context.Context, pr *models.Prediction) error {
	if p.ttl <= 0 || pr.Error != "" {
		return nil
	}
	return p.c.Set(ctx, predictionKey(pr.Coin, pr.Timeframe, pr.MinConfidence), pr, p.ttl)
}

// Invalidate drops every cached threshold for a series.
func (p *PredictionCache) Invalidate(ctx context.Context, coin, timeframe string) error {
	return p.c.DeleteByPattern(ctx, cache.Key("prediction", strings.ToUpper(coin), timeframe)+":*")
}

var _ domrepo.PredictionCache = (*PredictionCache)(nil)
