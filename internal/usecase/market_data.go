package usecase

import (
	"context"
	"fmt"

	"SignalFusion/internal/domain/models"
	domrepo "SignalFusion/internal/domain/repository"
	"SignalFusion/internal/services/decision"
	"SignalFusion/internal/services/features"
	"SignalFusion/internal/services/indicators"
)

const (
	DefaultMarketLimit = 100
	MaxMarketLimit     = 1000
)

// MarketCandle is a candle with its optional indicator snapshot.
type MarketCandle struct {
	models.Candle
	Indicators *indicators.Row `json:"indicators,omitempty"`
}

type MarketData struct {
	Coin      string           `json:"coin"`
	Timeframe string           `json:"timeframe"`
	Count     int              `json:"count"`
	Summary   features.Summary `json:"summary"`
	Candles   []MarketCandle   `json:"candles"`
}

// MarketDataUseCase serves candles, optionally decorated with indicators.
type MarketDataUseCase struct {
	candles domrepo.CandleSource
	engine  *decision.Engine
}

func NewMarketDataUseCase(candles domrepo.CandleSource, engine *decision.Engine) *MarketDataUseCase {
	return &MarketDataUseCase{candles: candles, engine: engine}
}

type GetMarketDataParams struct {
	Coin              string
	Timeframe         string
	Limit             int
	IncludeIndicators bool
}

func (uc *MarketDataUseCase) GetMarketData(ctx context.Context, p GetMarketDataParams) (*MarketData, error) {
	coin, tf, err := ValidateSeries(p.Coin, p.Timeframe)
	if err != nil {
		return nil, err
	}
	if p.Limit <= 0 {
		p.Limit = DefaultMarketLimit
	}
	if p.Limit > MaxMarketLimit {
		p.Limit = MaxMarketLimit
	}

	candles, err := uc.candles.GetCandles(ctx, coin, tf, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}

	out := make([]MarketCandle, len(candles))
	var set *indicators.Set
	if p.IncludeIndicators && uc.engine != nil && len(candles) > 0 {
		set = uc.engine.Indicators(candles)
	}
	for i, c := range candles {
		out[i] = MarketCandle{Candle: c}
		if set != nil {
			row := set.RowAt(i)
			out[i].Indicators = &row
		}
	}

	return &MarketData{
		Coin:      coin,
		Timeframe: tf.String(),
		Count:     len(out),
		Summary:   features.Summarize(candles, tf.Duration()),
		Candles:   out,
	}, nil
}
