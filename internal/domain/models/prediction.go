package models

import "time"

// LayerView is the transport view of the strategy and ML layers.
type LayerView struct {
	Signal       Signal         `json:"signal"`
	Confidence   float64        `json:"confidence"`
	Details      []SignalRecord `json:"details"`
	BuyCount     int            `json:"buy_count"`
	SellCount    int            `json:"sell_count"`
	NeutralCount int            `json:"neutral_count"`
	Total        int            `json:"total"`
}

// NewsView is the transport view of the sentiment layer.
type NewsView struct {
	Signal         Signal    `json:"signal"`
	Confidence     float64   `json:"confidence"`
	SentimentScore NullFloat `json:"sentiment_score"`
	NumSources     int       `json:"num_sources"`
}

// FinalView is the fused call with its target.
type FinalView struct {
	Signal         Signal      `json:"signal"`
	Confidence     float64     `json:"confidence"`
	Score          float64     `json:"score"`
	TargetPrice    NullFloat   `json:"target_price"`
	TargetType     *TargetType `json:"target_type"`
	StopLoss       NullFloat   `json:"stop_loss"`
	MeetsThreshold bool        `json:"meets_threshold"`
	Reason         string      `json:"reason,omitempty"`
}

// Prediction is what the API returns, caches, stores and publishes.
// Note: transport shape only; fusion happens in the decision engine.
type Prediction struct {
	ID            string       `json:"id"`
	Coin          string       `json:"coin"`
	Timeframe     string       `json:"timeframe"`
	Timestamp     time.Time    `json:"timestamp"`
	CurrentPrice  float64      `json:"current_price"`
	MinConfidence float64      `json:"min_confidence"`
	Strategy      *LayerView   `json:"strategy,omitempty"`
	ML            *LayerView   `json:"ml,omitempty"`
	News          *NewsView    `json:"news,omitempty"`
	Final         FinalView    `json:"final"`
	Breakdown     *Breakdown   `json:"breakdown,omitempty"`
	Target        *TargetPrice `json:"target,omitempty"`
	Errors        []string     `json:"layer_errors,omitempty"`
	Error         string       `json:"error,omitempty"`
}

func layerView(l LayerResult) *LayerView {
	details := l.Records
	if details == nil {
		details = []SignalRecord{}
	}
	return &LayerView{
		Signal:       l.Signal,
		Confidence:   l.Confidence,
		Details:      details,
		BuyCount:     l.BuyCount,
		SellCount:    l.SellCount,
		NeutralCount: l.NeutralCount,
		Total:        l.Total,
	}
}

// NewPrediction renders an engine decision into the transport shape.
func NewPrediction(id, coin, timeframe string, ts time.Time, minConfidence float64, d Decision) Prediction {
	p := Prediction{
		ID:            id,
		Coin:          coin,
		Timeframe:     timeframe,
		Timestamp:     ts,
		MinConfidence: minConfidence,
		Final: FinalView{
			Signal:         d.Fused.FinalSignal,
			Confidence:     d.Fused.FinalConfidence,
			Score:          d.Fused.FinalScore,
			TargetPrice:    d.Target.Price,
			TargetType:     d.Target.Type,
			StopLoss:       d.StopLoss,
			MeetsThreshold: d.MeetsThreshold,
			Reason:         d.Target.Reason,
		},
	}
	if d.Err != nil {
		p.Final.Signal = SignalNeutral
		p.Error = d.Err.Error()
		return p
	}
	if v, ok := d.CurrentPrice.Get(); ok {
		p.CurrentPrice = v
	}
	p.Strategy = layerView(d.Strategy)
	p.ML = layerView(d.ML)
	p.News = &NewsView{
		Signal:         d.News.Signal,
		Confidence:     d.News.Confidence,
		SentimentScore: d.News.Score,
		NumSources:     d.News.Sources,
	}
	b := d.Fused.Breakdown
	p.Breakdown = &b
	t := d.Target
	p.Target = &t
	return p
}

// EmptyPrediction is the shape returned when no decision could be made at all.
func EmptyPrediction(id, coin, timeframe string, ts time.Time, minConfidence float64, err error) Prediction {
	return NewPrediction(id, coin, timeframe, ts, minConfidence, Decision{
		Fused: FusedDecision{FinalSignal: SignalNeutral},
		Err:   err,
	})
}
