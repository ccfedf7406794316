// Package sentiment blends fear/greed and news readings into the news layer result.
package sentiment

import (
	"math"

	"SignalFusion/internal/domain/models"
	"SignalFusion/pkg/util"
)

const (
	buyThreshold  = 0.2
	sellThreshold = -0.2
	newsConfFloor = 20.0
)

// Weights are the fixed per-source blend weights.
type Weights struct {
	FearGreed float64
	News      float64
}

// DefaultWeights returns 0.3 for fear/greed and 0.7 for news.
func DefaultWeights() Weights {
	return Weights{FearGreed: 0.3, News: 0.7}
}

// FearGreedReading converts a 0..100 index into a reading. 50 is neutral.
func FearGreedReading(value float64, label string) models.SentimentReading {
	return models.SentimentReading{
		Source:     models.SourceFearGreed,
		Score:      clampScore((value - 50) / 50),
		Confidence: models.ClampConfidence(math.Abs(value-50) * 2),
		Label:      label,
	}
}

// NewsReading converts a scored headline (polarity in [-1, 1], subjectivity in [0, 1]).
func NewsReading(polarity, subjectivity float64) models.SentimentReading {
	return models.SentimentReading{
		Source:     models.SourceNews,
		Score:      clampScore(polarity),
		Confidence: models.ClampConfidence(math.Max(newsConfFloor, subjectivity*100)),
	}
}

// Aggregator blends readings with fixed source weights.
type Aggregator struct {
	weights Weights
}

func NewAggregator(w Weights) *Aggregator {
	return &Aggregator{weights: w}
}

type sourceScore struct {
	source models.SentimentSource
	score  float64
	conf   float64
	weight float64
}

func (a *Aggregator) sources(readings []models.SentimentReading) []sourceScore {
	var fgScore, fgConf float64
	var fgCount int
	var newsScoreSum, newsConfSum float64
	var newsNonZero, newsCount int

	for _, r := range readings {
		score := clampScore(r.Score)
		conf := models.ClampConfidence(r.Confidence)
		switch r.Source {
		case models.SourceFearGreed:
			fgScore += score
			fgConf += conf
			fgCount++
		case models.SourceNews:
			newsConfSum += conf
			newsCount++
			if score != 0 {
				newsScoreSum += score
				newsNonZero++
			}
		}
	}

	var out []sourceScore
	if fgCount > 0 {
		out = append(out, sourceScore{
			source: models.SourceFearGreed,
			score:  fgScore / float64(fgCount),
			conf:   fgConf / float64(fgCount),
			weight: a.weights.FearGreed,
		})
	}
	// News only counts when at least one item carried an opinion.
	if newsNonZero > 0 {
		out = append(out, sourceScore{
			source: models.SourceNews,
			score:  newsScoreSum / float64(newsNonZero),
			conf:   newsConfSum / float64(newsCount),
			weight: a.weights.News,
		})
	}
	return out
}

// Aggregate computes the confidence weighted score and the news layer result.
// No sources, or sources with no weighted confidence, give NEUTRAL with 0 confidence.
func (a *Aggregator) Aggregate(readings []models.SentimentReading) models.LayerResult {
	srcs := a.sources(readings)
	if len(srcs) == 0 {
		return models.NeutralLayer()
	}

	records := make([]models.SignalRecord, 0, len(srcs))
	var weightedScore, totalWeight float64
	for _, s := range srcs {
		wc := s.conf * s.weight
		weightedScore += s.score * wc
		totalWeight += wc
		records = append(records, models.SignalRecord{
			Kind:       models.KindSentiment,
			Name:       string(s.source),
			Signal:     classify(s.score),
			Confidence: util.Round(s.conf, 2),
			Details: models.Details{
				"score":  models.Float(util.Round(s.score, 3)),
				"weight": s.weight,
			},
		})
	}
	if totalWeight <= 0 {
		res := models.NeutralLayer()
		res.Records = records
		res.Sources = len(srcs)
		return res
	}

	score := weightedScore / totalWeight
	// Layer confidence is the mean of the weighted source confidences.
	conf := totalWeight / float64(len(srcs))

	t := models.CountSignals(records)
	return models.LayerResult{
		Signal:       classify(score),
		Confidence:   util.Round(models.ClampConfidence(conf), 2),
		Records:      records,
		BuyCount:     t.Buy,
		SellCount:    t.Sell,
		NeutralCount: t.Neutral,
		Total:        len(records),
		Score:        models.Float(util.Round(score, 3)),
		Sources:      len(srcs),
	}
}

func classify(score float64) models.Signal {
	switch {
	case score > buyThreshold:
		return models.SignalBuy
	case score < sellThreshold:
		return models.SignalSell
	default:
		return models.SignalNeutral
	}
}

func clampScore(s float64) float64 {
	if math.IsNaN(s) {
		return 0
	}
	return math.Max(-1, math.Min(1, s))
}
