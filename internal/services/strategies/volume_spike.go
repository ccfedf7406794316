package strategies

import (
	"math"

	"SignalFusion/internal/domain/models"
	"SignalFusion/internal/services/indicators"
)

// VolumeSpikeStrategy follows price moves confirmed by unusual volume.
type VolumeSpikeStrategy struct {
	multiplier float64
}

func NewVolumeSpikeStrategy(multiplier float64) *VolumeSpikeStrategy {
	return &VolumeSpikeStrategy{multiplier: multiplier}
}

func (s *VolumeSpikeStrategy) Key() string  { return KeyVolumeSpike }
func (s *VolumeSpikeStrategy) Name() string { return "Volume Spike" }

func (s *VolumeSpikeStrategy) Evaluate(candles []models.Candle, set *indicators.Set) models.SignalRecord {
	avg, ok := set.VolumeSMA.Last().Get()
	if !ok || len(candles) < 2 {
		return insufficient(s, "volume_sma", max(set.Params.VolumePeriod, 2), len(candles))
	}
	last := candles[len(candles)-1]
	prev := candles[len(candles)-2]

	ratio := 1.0
	if avg > 0 {
		ratio = last.Volume / avg
	}
	change := pctDiff(last.Close, prev.Close)
	spike := ratio >= s.multiplier

	d := models.Details{
		"current_volume":   r2(last.Volume),
		"avg_volume":       r2(avg),
		"volume_ratio":     r2(ratio),
		"price_change_pct": r2(change),
		"is_spike":         spike,
	}

	if spike {
		conf := math.Min(100, 50+(ratio-s.multiplier)*15+abs(change)*3)
		switch {
		case change > 1:
			return record(s, models.SignalBuy, conf, d)
		case change < -1:
			return record(s, models.SignalSell, conf, d)
		default:
			return record(s, models.SignalNeutral, 30, d)
		}
	}
	if ratio > 1.2 && abs(change) > 0.5 {
		sig := models.SignalSell
		if change > 0 {
			sig = models.SignalBuy
		}
		return record(s, sig, math.Max(20, 30+(ratio-1)*20), d)
	}
	return record(s, models.SignalNeutral, math.Max(10, 25-abs(1-ratio)*10), d)
}
