// Package fusion combines the three layer results into the final decision.
package fusion

import (
	"fmt"
	"math"

	"SignalFusion/internal/domain/models"
	"SignalFusion/pkg/util"
)

const (
	buyThreshold     = 0.15
	sellThreshold    = -0.15
	unanimityBonus   = 15.0
	conflictPenalty  = 20.0
	confidencePlaces = 2
	scorePlaces      = 3
)

// Weights are the relative layer weights. They are normalized at construction.
type Weights struct {
	Strategy float64
	ML       float64
	News     float64
}

// DefaultWeights returns 0.40 / 0.35 / 0.25.
func DefaultWeights() Weights {
	return Weights{Strategy: 0.40, ML: 0.35, News: 0.25}
}

// Combiner fuses layer results with immutable, normalized weights.
type Combiner struct {
	w Weights
}

// NewCombiner validates and normalizes w. Negative, non-finite or zero-sum weights
// are rejected with a *models.ConfigurationError.
func NewCombiner(w Weights) (*Combiner, error) {
	for name, v := range map[string]float64{"strategy": w.Strategy, "ml": w.ML, "news": w.News} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, &models.ConfigurationError{Field: "weights." + name, Reason: fmt.Sprintf("must be a non-negative number, got %v", v)}
		}
	}
	total := w.Strategy + w.ML + w.News
	if total <= 0 {
		return nil, &models.ConfigurationError{Field: "weights", Reason: "must sum to a positive value"}
	}
	return &Combiner{w: Weights{
		Strategy: w.Strategy / total,
		ML:       w.ML / total,
		News:     w.News / total,
	}}, nil
}

// Weights returns the normalized weights.
func (c *Combiner) Weights() Weights { return c.w }

// Combine fuses the layers. It never blocks and is deterministic.
func (c *Combiner) Combine(strategy, ml, news models.LayerResult) models.FusedDecision {
	type part struct {
		sig  models.Signal
		conf float64
		w    float64
	}
	parts := [3]part{
		{strategy.Signal, models.ClampConfidence(strategy.Confidence), c.w.Strategy},
		{ml.Signal, models.ClampConfidence(ml.Confidence), c.w.ML},
		{news.Signal, models.ClampConfidence(news.Confidence), c.w.News},
	}

	var score, conf float64
	for _, p := range parts {
		score += p.sig.Score() * (p.conf / 100) * p.w
		conf += p.conf * p.w
	}

	final := models.SignalNeutral
	switch {
	case score > buyThreshold:
		final = models.SignalBuy
	case score < sellThreshold:
		final = models.SignalSell
	}

	allAgree := strategy.Signal != models.SignalNeutral &&
		strategy.Signal == ml.Signal && ml.Signal == news.Signal
	if allAgree {
		conf = math.Min(100, conf+unanimityBonus)
	}
	// News is deliberately left out of the conflict check.
	conflict := strategy.Signal.Opposes(ml.Signal)
	if conflict {
		conf = math.Max(0, conf-conflictPenalty)
	}

	return models.FusedDecision{
		FinalSignal:     final,
		FinalConfidence: util.Round(models.ClampConfidence(conf), confidencePlaces),
		FinalScore:      util.Round(score, scorePlaces),
		Breakdown: models.Breakdown{
			Strategy: models.SourceBreakdown{Signal: strategy.Signal, Confidence: parts[0].conf, Weight: c.w.Strategy},
			ML:       models.SourceBreakdown{Signal: ml.Signal, Confidence: parts[1].conf, Weight: c.w.ML},
			News:     models.SourceBreakdown{Signal: news.Signal, Confidence: parts[2].conf, Weight: c.w.News},
		},
		AllAgree:           allAgree,
		StrategyMLConflict: conflict,
	}
}
