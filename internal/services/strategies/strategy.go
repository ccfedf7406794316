// Package strategies holds the technical evaluators and the layer that aggregates them.
package strategies

import (
	"math"

	"SignalFusion/internal/domain/models"
	"SignalFusion/internal/services/indicators"
	"SignalFusion/pkg/util"
)

// Strategy keys, also used in the enabled map.
const (
	KeyRSI               = "rsi"
	KeyEMACrossover      = "ema_crossover"
	KeyMACD              = "macd"
	KeyBollinger         = "bollinger"
	KeyVolumeSpike       = "volume_spike"
	KeySupportResistance = "support_resistance"
)

// Keys lists all strategies in evaluation order.
var Keys = []string{KeyRSI, KeyEMACrossover, KeyMACD, KeyBollinger, KeyVolumeSpike, KeySupportResistance}

// Evaluator turns a candle window and its indicators into one signal record.
// Implementations are pure and never fail; missing inputs give NEUTRAL with 0 confidence.
type Evaluator interface {
	Key() string
	Name() string
	Evaluate(candles []models.Candle, set *indicators.Set) models.SignalRecord
}

// Config holds strategy thresholds. Indicator lengths live in indicators.Params.
type Config struct {
	RSIOverbought         float64
	RSIOversold           float64
	VolumeSpikeMultiplier float64
	SRLookback            int
	SRClusterThreshold    float64
	Enabled               map[string]bool
}

// DefaultConfig returns the standard thresholds with every strategy enabled.
func DefaultConfig() Config {
	return Config{
		RSIOverbought:         70,
		RSIOversold:           30,
		VolumeSpikeMultiplier: 2,
		SRLookback:            50,
		SRClusterThreshold:    0.02,
	}
}

func record(ev Evaluator, sig models.Signal, conf float64, d models.Details) models.SignalRecord {
	return models.SignalRecord{
		Kind:       models.KindStrategy,
		Name:       ev.Name(),
		Signal:     sig,
		Confidence: util.Round(models.ClampConfidence(conf), 2),
		Details:    d,
	}
}

func insufficient(ev Evaluator, indicator string, required, available int) models.SignalRecord {
	return models.NeutralRecord(models.KindStrategy, ev.Name(), &models.DataInsufficientError{
		Indicator: indicator,
		Required:  required,
		Available: available,
	})
}

func r2(v float64) models.NullFloat { return models.Float(util.Round(v, 2)) }

func r3(v float64) models.NullFloat { return models.Float(util.Round(v, 3)) }

func lastClose(candles []models.Candle) float64 {
	return candles[len(candles)-1].Close
}

func pctDiff(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return (a - b) / b * 100
}

func abs(v float64) float64 { return math.Abs(v) }
