package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalFusion/internal/domain/models"
	domrepo "SignalFusion/internal/domain/repository"
	"SignalFusion/pkg/cache"
	applogger "SignalFusion/pkg/logger"
	"SignalFusion/pkg/util"
)

const (
	minCandleTTL = 5 * time.Second
	maxCandleTTL = 5 * time.Minute
)

// CachedCandleSource fronts the exchange with a short-lived cache and falls
// back to the candle store when the exchange is unreachable.
type CachedCandleSource struct {
	primary  domrepo.CandleSource
	cache    cache.Service
	fallback domrepo.CandleStore
	l        *applogger.Logger
}

// NewCachedCandleSource wires the layers; c and fallback may be nil.
func NewCachedCandleSource(primary domrepo.CandleSource, c cache.Service, fallback domrepo.CandleStore, l *applogger.Logger) *CachedCandleSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &CachedCandleSource{primary: primary, cache: c, fallback: fallback, l: l}
}

// CandleTTL is half a bar, clamped to [5s, 5m].
func CandleTTL(tf domrepo.Timeframe) time.Duration {
	return util.ClampDuration(tf.Duration()/2, minCandleTTL, maxCandleTTL)
}

func candleKey(coin string, tf domrepo.Timeframe, limit int) string {
	return cache.Key("candles", coin, tf, limit)
}

func (s *CachedCandleSource) GetCandles(ctx context.Context, coin string, tf domrepo.Timeframe, limit int) ([]models.Candle, error) {
	key := candleKey(coin, tf, limit)
	if s.cache != nil {
		var cached []models.Candle
		if err := s.cache.Get(ctx, key, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	candles, err := s.primary.GetCandles(ctx, coin, tf, limit)
	if err == nil && len(candles) > 0 {
		if s.cache != nil {
			if cerr := s.cache.Set(ctx, key, candles, CandleTTL(tf)); cerr != nil {
				s.l.Warn("candle cache set failed", applogger.String("key", key), applogger.Error(cerr))
			}
		}
		return candles, nil
	}
	if err == nil {
		err = models.ErrNoPriceData
	}

	if s.fallback == nil {
		return nil, err
	}
	s.l.Warn("exchange candles unavailable, using store",
		applogger.String("coin", coin),
		applogger.String("tf", tf.String()),
		applogger.Error(err))

	stored, ferr := s.fallback.GetLatestNCandles(ctx, coin, limit, tf)
	if ferr != nil {
		return nil, fmt.Errorf("%w (fallback: %v)", err, ferr)
	}
	if len(stored) == 0 {
		return nil, errors.Join(err, models.ErrNoPriceData)
	}
	return stored, nil
}

var _ domrepo.CandleSource = (*CachedCandleSource)(nil)
