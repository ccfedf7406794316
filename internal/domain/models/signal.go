package models

import (
	"encoding/json"
	"math"
	"strings"
)

// Signal is a directional trading call.
type Signal string

const (
	SignalBuy     Signal = "BUY"
	SignalSell    Signal = "SELL"
	SignalNeutral Signal = "NEUTRAL"
)

// ParseSignal maps any unknown value to NEUTRAL.
func ParseSignal(s string) Signal {
	switch Signal(strings.ToUpper(strings.TrimSpace(s))) {
	case SignalBuy:
		return SignalBuy
	case SignalSell:
		return SignalSell
	default:
		return SignalNeutral
	}
}

// UnmarshalJSON accepts any casing and decodes unknown values as NEUTRAL.
func (s *Signal) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = ParseSignal(raw)
	return nil
}

func (s Signal) Valid() bool {
	return s == SignalBuy || s == SignalSell || s == SignalNeutral
}

// Score maps BUY to 1, SELL to -1 and everything else to 0.
func (s Signal) Score() float64 {
	switch s {
	case SignalBuy:
		return 1
	case SignalSell:
		return -1
	default:
		return 0
	}
}

// Opposes reports whether s and o are BUY/SELL in opposite directions.
func (s Signal) Opposes(o Signal) bool {
	return (s == SignalBuy && o == SignalSell) || (s == SignalSell && o == SignalBuy)
}

// ClampConfidence bounds c to [0, 100]. NaN becomes 0.
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(0, math.Min(100, c))
}

// RecordKind tags the producer of a SignalRecord.
type RecordKind string

const (
	KindStrategy  RecordKind = "strategy"
	KindModel     RecordKind = "model"
	KindSentiment RecordKind = "sentiment"
)

// Details carries producer specific values. Unavailable numbers are stored as NullFloat.
type Details map[string]any

// SignalRecord is the single output shape of every signal producer:
// strategy evaluators, classifier votes and sentiment sources.
type SignalRecord struct {
	Kind       RecordKind `json:"kind"`
	Name       string     `json:"name"`
	Signal     Signal     `json:"signal"`
	Confidence float64    `json:"confidence"`
	Details    Details    `json:"details,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// NeutralRecord builds the NEUTRAL/0 record used when a producer cannot evaluate.
func NeutralRecord(kind RecordKind, name string, err error) SignalRecord {
	r := SignalRecord{Kind: kind, Name: name, Signal: SignalNeutral, Confidence: 0}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// ClassifierVote is one model's opinion about the next move.
type ClassifierVote struct {
	ModelID       string    `json:"model"`
	Signal        Signal    `json:"signal"`
	Confidence    float64   `json:"confidence"`
	RawPrediction int       `json:"prediction"`
	Probabilities []float64 `json:"probabilities,omitempty"`
}

// Record converts the vote to the shared record shape.
func (v ClassifierVote) Record() SignalRecord {
	d := Details{"prediction": v.RawPrediction}
	if len(v.Probabilities) > 0 {
		d["probabilities"] = v.Probabilities
	}
	return SignalRecord{
		Kind:       KindModel,
		Name:       v.ModelID,
		Signal:     ParseSignal(string(v.Signal)),
		Confidence: ClampConfidence(v.Confidence),
		Details:    d,
	}
}

// SentimentSource identifies where a reading came from.
type SentimentSource string

const (
	SourceFearGreed SentimentSource = "fear_greed"
	SourceNews      SentimentSource = "news"
)

// SentimentReading is a normalized sentiment score in [-1, 1] with a confidence in [0, 100].
type SentimentReading struct {
	Source     SentimentSource `json:"source"`
	Score      float64         `json:"score"`
	Confidence float64         `json:"confidence"`
	Label      string          `json:"label,omitempty"`
}

// LayerResult is the aggregated output of one fusion layer.
type LayerResult struct {
	Signal       Signal         `json:"signal"`
	Confidence   float64        `json:"confidence"`
	Records      []SignalRecord `json:"details,omitempty"`
	BuyCount     int            `json:"buy_count"`
	SellCount    int            `json:"sell_count"`
	NeutralCount int            `json:"neutral_count"`
	Total        int            `json:"total"`
	// Score and Sources are only set by the sentiment layer.
	Score   NullFloat `json:"sentiment_score"`
	Sources int       `json:"num_sources"`
}

// NeutralLayer is the result of a layer with no contributing components.
func NeutralLayer() LayerResult {
	return LayerResult{Signal: SignalNeutral, Confidence: 0}
}

// Tally counts records by signal and averages their confidence.
type Tally struct {
	Buy, Sell, Neutral int
	AvgConfidence      float64
}

// Winner returns BUY or SELL only on a strict plurality over both other categories.
func (t Tally) Winner() Signal {
	switch {
	case t.Buy > t.Sell && t.Buy > t.Neutral:
		return SignalBuy
	case t.Sell > t.Buy && t.Sell > t.Neutral:
		return SignalSell
	default:
		return SignalNeutral
	}
}

// Count returns the number of records with signal s.
func (t Tally) Count(s Signal) int {
	switch s {
	case SignalBuy:
		return t.Buy
	case SignalSell:
		return t.Sell
	default:
		return t.Neutral
	}
}

// Max is the largest of the three counts.
func (t Tally) Max() int { return max(t.Buy, t.Sell, t.Neutral) }

// CountSignals builds a Tally over records.
func CountSignals(records []SignalRecord) Tally {
	var t Tally
	var sum float64
	for _, r := range records {
		switch r.Signal {
		case SignalBuy:
			t.Buy++
		case SignalSell:
			t.Sell++
		default:
			t.Neutral++
		}
		sum += ClampConfidence(r.Confidence)
	}
	if n := len(records); n > 0 {
		t.AvgConfidence = sum / float64(n)
	}
	return t
}
