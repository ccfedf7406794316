package strategies

import (
	"math"

	"SignalFusion/internal/domain/models"
	"SignalFusion/internal/services/indicators"
	"SignalFusion/pkg/util"
)

const (
	strategyAgreementBoost = 20.0
	strategySplitPenalty   = 30.0
)

// Manager runs the enabled evaluators and folds their records into one layer result.
type Manager struct {
	evaluators []Evaluator
}

// NewManager builds the six evaluators from cfg. A key missing from cfg.Enabled is enabled.
func NewManager(cfg Config) *Manager {
	all := []Evaluator{
		NewRSIStrategy(cfg.RSIOverbought, cfg.RSIOversold),
		NewEMACrossoverStrategy(),
		NewMACDStrategy(),
		NewBollingerStrategy(),
		NewVolumeSpikeStrategy(cfg.VolumeSpikeMultiplier),
		NewSupportResistanceStrategy(cfg.SRLookback, cfg.SRClusterThreshold),
	}
	m := &Manager{}
	for _, ev := range all {
		if on, ok := cfg.Enabled[ev.Key()]; ok && !on {
			continue
		}
		m.evaluators = append(m.evaluators, ev)
	}
	return m
}

// Enabled lists the keys of the evaluators that will run.
func (m *Manager) Enabled() []string {
	out := make([]string, len(m.evaluators))
	for i, ev := range m.evaluators {
		out[i] = ev.Key()
	}
	return out
}

// Evaluate runs every enabled evaluator over the same window and aggregates them.
func (m *Manager) Evaluate(candles []models.Candle, set *indicators.Set) models.LayerResult {
	records := make([]models.SignalRecord, 0, len(m.evaluators))
	for _, ev := range m.evaluators {
		records = append(records, ev.Evaluate(candles, set))
	}
	return Aggregate(records)
}

// Aggregate applies the plurality rule. A BUY or SELL winner gets a boost proportional to
// its share; otherwise the layer is NEUTRAL and loses confidence the more split it is.
func Aggregate(records []models.SignalRecord) models.LayerResult {
	n := len(records)
	if n == 0 {
		return models.NeutralLayer()
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
		conf = math.Max(0, t.AvgConfidence-(1-float64(t.Max())/float64(n))*strategySplitPenalty)
	} else {
		conf = math.Min(100, t.AvgConfidence+float64(t.Count(res.Signal))/float64(n)*strategyAgreementBoost)
	}
	res.Confidence = util.Round(models.ClampConfidence(conf), 2)
	return res
}

func roundTo(v float64, places int32) float64 { return util.Round(v, places) }

func roundTo2(v float64) float64 { return util.Round(v, 2) }
