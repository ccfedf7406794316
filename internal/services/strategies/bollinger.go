package strategies

import (
	"math"

	"SignalFusion/internal/domain/models"
	"SignalFusion/internal/services/indicators"
)

// BollingerStrategy fades moves to and beyond the bands.
type BollingerStrategy struct{}

func NewBollingerStrategy() *BollingerStrategy { return &BollingerStrategy{} }

func (s *BollingerStrategy) Key() string  { return KeyBollinger }
func (s *BollingerStrategy) Name() string { return "Bollinger Bands" }

func (s *BollingerStrategy) Evaluate(candles []models.Candle, set *indicators.Set) models.SignalRecord {
	upper, okU := set.BBUpper.Last().Get()
	middle, okM := set.BBMiddle.Last().Get()
	lower, okL := set.BBLower.Last().Get()
	if !okU || !okM || !okL || len(candles) == 0 {
		return insufficient(s, "bollinger", set.Params.BollingerPeriod, len(candles))
	}
	price := lastClose(candles)

	position := 0.5
	if upper != lower {
		position = (price - lower) / (upper - lower)
	}
	var width float64
	if middle != 0 {
		width = (upper - lower) / middle * 100
	}
	d := models.Details{
		"price":      r2(price),
		"upper":      r2(upper),
		"middle":     r2(middle),
		"lower":      r2(lower),
		"position":   r3(position),
		"band_width": r2(width),
	}

	switch {
	case price <= lower:
		below := 0.0
		if lower != 0 {
			below = (lower - price) / lower * 100
		}
		return record(s, models.SignalBuy, math.Min(100, 60+below*20), d)
	case price >= upper:
		above := 0.0
		if upper != 0 {
			above = (price - upper) / upper * 100
		}
		return record(s, models.SignalSell, math.Min(100, 60+above*20), d)
	case price < middle && position < 0.3:
		return record(s, models.SignalBuy, 40+(0.3-position)*50, d)
	case price > middle && position > 0.7:
		return record(s, models.SignalSell, 40+(position-0.7)*50, d)
	default:
		return record(s, models.SignalNeutral, math.Max(20, 40-abs(position-0.5)*40), d)
	}
}
