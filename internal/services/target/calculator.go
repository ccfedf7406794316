// Package target derives ATR-scaled price targets and stop losses from a fused decision.
package target

import (
	"fmt"
	"math"

	"SignalFusion/internal/domain/models"
	"SignalFusion/pkg/util"
)

const (
	baseFactor      = 0.5
	factorRange     = 1.5
	stopATRMultiple = 1.5
)

// Calculator turns a final signal into a target price and stop loss.
type Calculator struct {
	stopLossPct float64
}

// NewCalculator builds a calculator capping stop distance at stopLossPct percent of price.
func NewCalculator(stopLossPct float64) *Calculator {
	return &Calculator{stopLossPct: stopLossPct}
}

// Calculate returns the target for signal at confidence. The target is null (with a
// reason) when confidence is under minConfidence, the signal is NEUTRAL, ATR is not
// usable, or the rounded target would not lie strictly beyond the current price.
func (c *Calculator) Calculate(price float64, atr models.NullFloat, signal models.Signal, confidence, minConfidence float64) models.TargetPrice {
	out := models.TargetPrice{
		CurrentPrice: models.Float(util.RoundPrice(price)),
		ATR:          atr.Map(util.RoundPrice),
	}
	if confidence < minConfidence {
		out.Reason = fmt.Sprintf("Confidence below threshold (%s%%)", formatPct(minConfidence))
		return out
	}
	if signal != models.SignalBuy && signal != models.SignalSell {
		out.Reason = "Signal is NEUTRAL"
		return out
	}
	a, ok := atr.Get()
	if !ok || a <= 0 {
		out.Reason = "ATR unavailable"
		return out
	}

	factor := baseFactor + confidence/100*factorRange
	movement := a * factor
	var raw float64
	var typ models.TargetType
	if signal == models.SignalBuy {
		raw, typ = price+movement, models.TargetHigh
	} else {
		raw, typ = price-movement, models.TargetLow
	}
	rounded := util.Round(raw, util.PricePlaces(price))
	if (typ == models.TargetHigh && rounded <= price) || (typ == models.TargetLow && (rounded >= price || rounded <= 0)) {
		out.Reason = "Target too close to current price"
		return out
	}

	out.Price = models.Float(rounded)
	out.Type = &typ
	out.ConfidenceFactor = models.Float(util.Round(factor, 2))
	out.PriceMovement = models.Float(util.RoundPrice(movement))
	if price != 0 {
		out.PctMove = models.Float(util.Round(movement/price*100, 2))
	}
	return out
}

// StopLoss is the tighter of 1.5 ATR and the percentage cap, on the losing side of
// the entry. NEUTRAL signals and unusable ATR give no stop.
func (c *Calculator) StopLoss(price float64, atr models.NullFloat, signal models.Signal) models.NullFloat {
	a, ok := atr.Get()
	if !ok || a <= 0 || price <= 0 {
		return models.Null()
	}
	byATR := stopATRMultiple * a
	switch signal {
	case models.SignalBuy:
		return models.Float(util.RoundPrice(math.Max(price-byATR, price*(1-c.stopLossPct/100))))
	case models.SignalSell:
		return models.Float(util.RoundPrice(math.Min(price+byATR, price*(1+c.stopLossPct/100))))
	default:
		return models.Null()
	}
}

func formatPct(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int(v))
	}
	return fmt.Sprintf("%g", v)
}
