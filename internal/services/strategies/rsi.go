package strategies

import (
	"math"

	"SignalFusion/internal/domain/models"
	"SignalFusion/internal/services/indicators"
)

// RSIStrategy buys oversold and sells overbought markets.
type RSIStrategy struct {
	overbought float64
	oversold   float64
}

func NewRSIStrategy(overbought, oversold float64) *RSIStrategy {
	return &RSIStrategy{overbought: overbought, oversold: oversold}
}

func (s *RSIStrategy) Key() string  { return KeyRSI }
func (s *RSIStrategy) Name() string { return "RSI" }

func (s *RSIStrategy) Evaluate(candles []models.Candle, set *indicators.Set) models.SignalRecord {
	rsi, ok := set.RSI.Last().Get()
	if !ok {
		return insufficient(s, "rsi", set.Params.RSIPeriod, len(candles))
	}
	d := models.Details{
		"value":      r2(rsi),
		"overbought": s.overbought,
		"oversold":   s.oversold,
	}
	switch {
	case rsi <= s.oversold:
		return record(s, models.SignalBuy, math.Min(100, 50+(s.oversold-rsi)*2), d)
	case rsi >= s.overbought:
		return record(s, models.SignalSell, math.Min(100, 50+(rsi-s.overbought)*2), d)
	default:
		return record(s, models.SignalNeutral, math.Max(20, abs(rsi-50)), d)
	}
}
