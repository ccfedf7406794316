package strategies

import (
	"math"

	"SignalFusion/internal/domain/models"
	"SignalFusion/internal/services/indicators"
)

// MACDStrategy trades signal line crosses and histogram direction.
type MACDStrategy struct{}

func NewMACDStrategy() *MACDStrategy { return &MACDStrategy{} }

func (s *MACDStrategy) Key() string  { return KeyMACD }
func (s *MACDStrategy) Name() string { return "MACD" }

func (s *MACDStrategy) Evaluate(candles []models.Candle, set *indicators.Set) models.SignalRecord {
	macd, okM := set.MACD.Last().Get()
	sig, okS := set.MACDSignal.Last().Get()
	hist, okH := set.MACDHist.Last().Get()
	if !okM || !okS || !okH {
		p := set.Params
		return insufficient(s, "macd", p.MACDSlow+p.MACDSignal-1, len(candles))
	}

	var bullish, bearish bool
	prevMACD, okPM := set.MACD.Back(1).Get()
	prevSig, okPS := set.MACDSignal.Back(1).Get()
	if okPM && okPS {
		bullish = prevMACD <= prevSig && macd > sig
		bearish = prevMACD >= prevSig && macd < sig
	}

	d := models.Details{
		"macd":          models.Float(roundTo(macd, 4)),
		"signal_line":   models.Float(roundTo(sig, 4)),
		"histogram":     models.Float(roundTo(hist, 4)),
		"bullish_cross": bullish,
		"bearish_cross": bearish,
	}
	switch {
	case bullish || (macd > sig && hist > 0):
		return record(s, models.SignalBuy, math.Min(100, 50+abs(hist)*5), d)
	case bearish || (macd < sig && hist < 0):
		return record(s, models.SignalSell, math.Min(100, 50+abs(hist)*5), d)
	default:
		return record(s, models.SignalNeutral, math.Max(20, 40-abs(hist)*2), d)
	}
}
