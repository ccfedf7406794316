package strategies

import (
	"math"
	"sort"

	"SignalFusion/internal/domain/models"
	"SignalFusion/internal/services/indicators"
)

const (
	srMinCandles = 5
	srPivotSpan  = 2
	srNearPct    = 1.0
)

// SupportResistanceStrategy trades bounces off and breaks through clustered pivot levels.
type SupportResistanceStrategy struct {
	lookback  int
	threshold float64
}

func NewSupportResistanceStrategy(lookback int, threshold float64) *SupportResistanceStrategy {
	return &SupportResistanceStrategy{lookback: lookback, threshold: threshold}
}

func (s *SupportResistanceStrategy) Key() string  { return KeySupportResistance }
func (s *SupportResistanceStrategy) Name() string { return "Support/Resistance" }

// PivotLevels finds pivot lows (support) and pivot highs (resistance): bars strictly
// beyond the srPivotSpan bars on each side.
func PivotLevels(candles []models.Candle) (supports, resistances []float64) {
	for i := srPivotSpan; i < len(candles)-srPivotSpan; i++ {
		isHigh, isLow := true, true
		for k := 1; k <= srPivotSpan; k++ {
			if !(candles[i].High > candles[i-k].High && candles[i].High > candles[i+k].High) {
				isHigh = false
			}
			if !(candles[i].Low < candles[i-k].Low && candles[i].Low < candles[i+k].Low) {
				isLow = false
			}
		}
		if isHigh {
			resistances = append(resistances, candles[i].High)
		}
		if isLow {
			supports = append(supports, candles[i].Low)
		}
	}
	return supports, resistances
}

// ClusterLevels merges sorted levels whose relative gap to the previous member is within
// threshold; each cluster is replaced by its mean.
func ClusterLevels(levels []float64, threshold float64) []float64 {
	if len(levels) == 0 {
		return nil
	}
	sorted := append([]float64(nil), levels...)
	sort.Float64s(sorted)

	var out []float64
	cluster := []float64{sorted[0]}
	flush := func() {
		var sum float64
		for _, v := range cluster {
			sum += v
		}
		out = append(out, sum/float64(len(cluster)))
	}
	for _, v := range sorted[1:] {
		last := cluster[len(cluster)-1]
		if last != 0 && (v-last)/last <= threshold {
			cluster = append(cluster, v)
			continue
		}
		flush()
		cluster = []float64{v}
	}
	flush()
	return out
}

func (s *SupportResistanceStrategy) Evaluate(candles []models.Candle, set *indicators.Set) models.SignalRecord {
	if len(candles) < srMinCandles {
		return insufficient(s, "pivots", srMinCandles, len(candles))
	}
	window := candles
	if s.lookback > 0 && len(window) > s.lookback {
		window = window[len(window)-s.lookback:]
	}
	price := lastClose(window)

	rawSup, rawRes := PivotLevels(window)
	supports := ClusterLevels(rawSup, s.threshold)
	resistances := ClusterLevels(rawRes, s.threshold)

	nearestSup, nearestRes := models.Null(), models.Null()
	for _, l := range supports {
		if l < price && (!nearestSup.Valid || l > nearestSup.Value) {
			nearestSup = models.Float(l)
		}
	}
	for _, l := range resistances {
		if l > price && (!nearestRes.Valid || l < nearestRes.Value) {
			nearestRes = models.Float(l)
		}
	}

	supDist, resDist := models.Null(), models.Null()
	if v, ok := nearestSup.Get(); ok && price != 0 {
		supDist = models.Float((price - v) / price * 100)
	}
	if v, ok := nearestRes.Get(); ok && price != 0 {
		resDist = models.Float((v - price) / price * 100)
	}

	d := models.Details{
		"current_price":         r2(price),
		"nearest_support":       nearestSup.Map(roundTo2),
		"nearest_resistance":    nearestRes.Map(roundTo2),
		"support_distance":      supDist.Map(roundTo2),
		"resistance_distance":   resDist.Map(roundTo2),
		"num_support_levels":    len(supports),
		"num_resistance_levels": len(resistances),
	}

	if dist, ok := supDist.Get(); ok && dist < srNearPct {
		return record(s, models.SignalBuy, math.Min(100, 60+(srNearPct-dist)*30), d)
	}
	if dist, ok := resDist.Get(); ok && dist < srNearPct {
		return record(s, models.SignalSell, math.Min(100, 60+(srNearPct-dist)*30), d)
	}
	// Breakout: every resistance level sits below the price.
	if !nearestRes.Valid && len(resistances) > 0 {
		top := resistances[len(resistances)-1]
		if price > top && top != 0 {
			d["breakout_level"] = r2(top)
			return record(s, models.SignalBuy, math.Min(100, 50+(price-top)/top*100*20), d)
		}
	}
	// Breakdown: every support level sits above the price.
	if !nearestSup.Valid && len(supports) > 0 {
		bottom := supports[0]
		if price < bottom && bottom != 0 {
			d["breakdown_level"] = r2(bottom)
			return record(s, models.SignalSell, math.Min(100, 50+(bottom-price)/bottom*100*20), d)
		}
	}
	return record(s, models.SignalNeutral, 30, d)
}
