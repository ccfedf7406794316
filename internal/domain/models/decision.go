package models

// SourceBreakdown is one layer's contribution to the fused decision.
type SourceBreakdown struct {
	Signal     Signal  `json:"signal"`
	Confidence float64 `json:"confidence"`
	Weight     float64 `json:"weight"`
}

// Breakdown lists the three layer contributions.
type Breakdown struct {
	Strategy SourceBreakdown `json:"strategy"`
	ML       SourceBreakdown `json:"ml"`
	News     SourceBreakdown `json:"news"`
}

// FusedDecision is the combiner output.
type FusedDecision struct {
	FinalSignal        Signal    `json:"final_signal"`
	FinalConfidence    float64   `json:"final_confidence"`
	FinalScore         float64   `json:"final_score"`
	Breakdown          Breakdown `json:"breakdown"`
	AllAgree           bool      `json:"all_agree"`
	StrategyMLConflict bool      `json:"strategy_ml_conflict"`
}

// TargetType says on which side of the current price a target sits.
type TargetType string

const (
	TargetHigh TargetType = "HIGH"
	TargetLow  TargetType = "LOW"
)

// TargetPrice is the volatility-scaled price objective. Price and Type are null
// when no target is produced, in which case Reason explains why.
type TargetPrice struct {
	Price            NullFloat   `json:"target_price"`
	Type             *TargetType `json:"target_type"`
	CurrentPrice     NullFloat   `json:"current_price"`
	ATR              NullFloat   `json:"atr"`
	ConfidenceFactor NullFloat   `json:"confidence_factor"`
	PriceMovement    NullFloat   `json:"price_movement"`
	PctMove          NullFloat   `json:"pct_move"`
	Reason           string      `json:"reason,omitempty"`
}

// HasTarget reports whether a target price was produced.
func (t TargetPrice) HasTarget() bool {
	_, ok := t.Price.Get()
	return ok && t.Type != nil
}

// Decision is the full engine output for one request.
type Decision struct {
	Strategy       LayerResult   `json:"strategy"`
	ML             LayerResult   `json:"ml"`
	News           LayerResult   `json:"news"`
	Fused          FusedDecision `json:"fused"`
	Target         TargetPrice   `json:"target"`
	StopLoss       NullFloat     `json:"stop_loss"`
	CurrentPrice   NullFloat     `json:"current_price"`
	MeetsThreshold bool          `json:"meets_threshold"`
	Err            error         `json:"-"`
}
