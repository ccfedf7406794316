package strategies

import (
	"math"

	"SignalFusion/internal/domain/models"
	"SignalFusion/internal/services/indicators"
)

// sustainedGapPct is the fast/slow gap that counts as a trend without a fresh cross.
const sustainedGapPct = 0.5

// EMACrossoverStrategy follows fast/slow EMA crosses and sustained gaps.
type EMACrossoverStrategy struct{}

func NewEMACrossoverStrategy() *EMACrossoverStrategy { return &EMACrossoverStrategy{} }

func (s *EMACrossoverStrategy) Key() string  { return KeyEMACrossover }
func (s *EMACrossoverStrategy) Name() string { return "EMA Crossover" }

func (s *EMACrossoverStrategy) Evaluate(candles []models.Candle, set *indicators.Set) models.SignalRecord {
	fast, okF := set.EMAFast.Last().Get()
	slow, okS := set.EMASlow.Last().Get()
	if !okF || !okS {
		return insufficient(s, "ema", max(set.Params.EMAFast, set.Params.EMASlow), len(candles))
	}

	// A missing previous bar means no cross can be observed yet.
	var golden, death bool
	prevFast, okPF := set.EMAFast.Back(1).Get()
	prevSlow, okPS := set.EMASlow.Back(1).Get()
	if okPF && okPS {
		golden = prevFast <= prevSlow && fast > slow
		death = prevFast >= prevSlow && fast < slow
	}

	diff := pctDiff(fast, slow)
	d := models.Details{
		"ema_fast":     r2(fast),
		"ema_slow":     r2(slow),
		"diff_percent": r3(diff),
		"golden_cross": golden,
		"death_cross":  death,
	}
	switch {
	case golden || (fast > slow && abs(diff) > sustainedGapPct):
		return record(s, models.SignalBuy, math.Min(100, 50+abs(diff)*10), d)
	case death || (fast < slow && abs(diff) > sustainedGapPct):
		return record(s, models.SignalSell, math.Min(100, 50+abs(diff)*10), d)
	default:
		return record(s, models.SignalNeutral, math.Max(20, 40-abs(diff)*5), d)
	}
}
