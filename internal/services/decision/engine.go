// Package decision composes the indicator, strategy, ensemble, sentiment, fusion and
// target packages into one pure decision function.
package decision

import (
	"fmt"

	"SignalFusion/internal/domain/models"
	"SignalFusion/internal/services/ensemble"
	"SignalFusion/internal/services/features"
	"SignalFusion/internal/services/fusion"
	"SignalFusion/internal/services/indicators"
	"SignalFusion/internal/services/sentiment"
	"SignalFusion/internal/services/strategies"
	"SignalFusion/internal/services/target"
	"SignalFusion/pkg/util"
)

// Config is the immutable engine configuration.
type Config struct {
	Weights          fusion.Weights
	MinConfidence    float64
	HighConfidence   float64
	Indicators       indicators.Params
	Strategies       strategies.Config
	SentimentWeights sentiment.Weights
	StopLossPct      float64
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		Weights:          fusion.DefaultWeights(),
		MinConfidence:    60,
		HighConfidence:   75,
		Indicators:       indicators.DefaultParams(),
		Strategies:       strategies.DefaultConfig(),
		SentimentWeights: sentiment.DefaultWeights(),
		StopLossPct:      3,
	}
}

// Engine is safe for concurrent use; it holds no mutable state.
type Engine struct {
	cfg       Config
	manager   *strategies.Manager
	sentiment *sentiment.Aggregator
	combiner  *fusion.Combiner
	target    *target.Calculator
}

// NewEngine validates cfg and builds the engine. Invalid settings return a
// *models.ConfigurationError.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Indicators.Validate(); err != nil {
		return nil, err
	}
	if cfg.MinConfidence < 0 || cfg.MinConfidence > 100 {
		return nil, &models.ConfigurationError{Field: "min_confidence", Reason: fmt.Sprintf("must be within [0, 100], got %v", cfg.MinConfidence)}
	}
	if !(cfg.StopLossPct > 0) {
		return nil, &models.ConfigurationError{Field: "stop_loss_pct", Reason: "must be positive"}
	}
	if cfg.Strategies.RSIOversold >= cfg.Strategies.RSIOverbought {
		return nil, &models.ConfigurationError{Field: "rsi_oversold", Reason: "must be below rsi_overbought"}
	}
	if cfg.SentimentWeights.FearGreed < 0 || cfg.SentimentWeights.News < 0 {
		return nil, &models.ConfigurationError{Field: "sentiment_weights", Reason: "must be non-negative"}
	}
	combiner, err := fusion.NewCombiner(cfg.Weights)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:       cfg,
		manager:   strategies.NewManager(cfg.Strategies),
		sentiment: sentiment.NewAggregator(cfg.SentimentWeights),
		combiner:  combiner,
		target:    target.NewCalculator(cfg.StopLossPct),
	}, nil
}

// Config returns the engine configuration with normalized weights.
func (e *Engine) Config() Config {
	c := e.cfg
	c.Weights = e.combiner.Weights()
	return c
}

// EnabledStrategies lists the strategy keys that run.
func (e *Engine) EnabledStrategies() []string { return e.manager.Enabled() }

// Indicators computes the indicator set for candles.
func (e *Engine) Indicators(candles []models.Candle) *indicators.Set {
	return indicators.Compute(candles, e.cfg.Indicators)
}

// Features returns the latest classifier input row.
func (e *Engine) Features(candles []models.Candle, set *indicators.Set) (models.FeatureRow, error) {
	return features.LatestRow(candles, set)
}

// StrategyLayer evaluates the technical strategies.
func (e *Engine) StrategyLayer(candles []models.Candle, set *indicators.Set) models.LayerResult {
	if len(candles) == 0 {
		return models.NeutralLayer()
	}
	return e.manager.Evaluate(candles, set)
}

// MLLayer aggregates classifier votes.
func (e *Engine) MLLayer(votes []models.ClassifierVote) models.LayerResult {
	return ensemble.Aggregate(votes)
}

// NewsLayer aggregates sentiment readings.
func (e *Engine) NewsLayer(readings []models.SentimentReading) models.LayerResult {
	return e.sentiment.Aggregate(readings)
}

// Finalize fuses the three layer results and derives target and stop loss.
// It is the synchronization point after the layers were computed independently.
func (e *Engine) Finalize(candles []models.Candle, set *indicators.Set, strategy, ml, news models.LayerResult, minConfidence float64) models.Decision {
	if len(candles) == 0 {
		return e.empty(models.ErrNoPriceData)
	}
	price := candles[len(candles)-1].Close
	atr := set.ATR.Last()

	fused := e.combiner.Combine(strategy, ml, news)
	tp := e.target.Calculate(price, atr, fused.FinalSignal, fused.FinalConfidence, minConfidence)
	stop := models.Null()
	if tp.HasTarget() {
		stop = e.target.StopLoss(price, atr, fused.FinalSignal)
	}
	return models.Decision{
		Strategy:       strategy,
		ML:             ml,
		News:           news,
		Fused:          fused,
		Target:         tp,
		StopLoss:       stop,
		CurrentPrice:   models.Float(util.RoundPrice(price)),
		MeetsThreshold: fused.FinalConfidence >= minConfidence,
	}
}

// Decide runs the whole pipeline synchronously. Identical inputs give identical output.
func (e *Engine) Decide(candles []models.Candle, votes []models.ClassifierVote, readings []models.SentimentReading, minConfidence float64) models.Decision {
	if len(candles) == 0 {
		return e.empty(models.ErrNoPriceData)
	}
	set := e.Indicators(candles)
	return e.Finalize(candles, set,
		e.StrategyLayer(candles, set),
		e.MLLayer(votes),
		e.NewsLayer(readings),
		minConfidence,
	)
}

func (e *Engine) empty(err error) models.Decision {
	n := models.NeutralLayer()
	return models.Decision{
		Strategy: n,
		ML:       n,
		News:     n,
		Fused:    e.combiner.Combine(n, n, n),
		Target:   models.TargetPrice{Reason: err.Error()},
		Err:      err,
	}
}
