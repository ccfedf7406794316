// Package ensemble reduces classifier votes into the ML layer result.
package ensemble

import (
	"math"

	"SignalFusion/internal/domain/models"
	"SignalFusion/pkg/util"
)

const (
	agreementBoost  = 15.0
	neutralPenalty  = 20.0
	neutralFloor    = 20.0
	defaultVoteConf = 60.0
)

// Models the classifier service is expected to vote with.
var Models = []string{"logistic_regression", "random_forest", "xgboost"}

// NewVote builds a vote from a raw binary prediction and class probabilities.
// Prediction 1 means up (BUY), anything else SELL. Confidence is the top class
// probability in percent, or 60 when no probabilities are reported.
func NewVote(model string, prediction int, probabilities []float64) models.ClassifierVote {
	sig := models.SignalSell
	if prediction == 1 {
		sig = models.SignalBuy
	}
	conf := defaultVoteConf
	if len(probabilities) > 0 {
		top := math.Inf(-1)
		for _, p := range probabilities {
			top = math.Max(top, p)
		}
		conf = top * 100
	}
	return models.ClassifierVote{
		ModelID:       model,
		Signal:        sig,
		Confidence:    util.Round(models.ClampConfidence(conf), 2),
		RawPrediction: prediction,
		Probabilities: probabilities,
	}
}

// Aggregate folds votes with the plurality rule. A BUY or SELL winner gains
// (count/n)*15; a NEUTRAL outcome loses a flat 20 points but keeps at least 20.
func Aggregate(votes []models.ClassifierVote) models.LayerResult {
	n := len(votes)
	if n == 0 {
		return models.NeutralLayer()
	}
	records := make([]models.SignalRecord, n)
	for i, v := range votes {
		records[i] = v.Record()
	}
	t := models.CountSignals(records)
	res := models.LayerResult{
		Records:      records,
		BuyCount:     t.Buy,
		SellCount:    t.Sell,
		NeutralCount: t.Neutral,
		Total:        n,
		Signal:       t.Winner(),
	}
	var conf float64
	if res.Signal == models.SignalNeutral {
		conf = math.Max(neutralFloor, t.AvgConfidence-neutralPenalty)
	} else {
		conf = math.Min(100, t.AvgConfidence+float64(t.Count(res.Signal))/float64(n)*agreementBoost)
	}
	res.Confidence = util.Round(models.ClampConfidence(conf), 2)
	return res
}
