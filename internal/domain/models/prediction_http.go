package models

// Requests for the prediction and market data endpoints. Defined in domain for consistency and reuse.

// DefaultMinConfidence applies when a request leaves min_confidence out.
const DefaultMinConfidence = 60.0

type PredictionRequest struct {
	Coin          string    `param:"coin" json:"coin" validate:"required"`
	Timeframe     string    `param:"timeframe" json:"timeframe" validate:"required"`
	MinConfidence NullFloat `query:"min_confidence" json:"min_confidence" validate:"omitempty,gte=0,lte=100"`
}

type MarketDataRequest struct {
	Coin              string `param:"coin" validate:"required"`
	Timeframe         string `param:"timeframe" validate:"required"`
	Limit             int    `query:"limit" default:"100" validate:"gte=1,lte=1000"`
	IncludeIndicators bool   `query:"include_indicators"`
}

type HistoryRequest struct {
	Coin      string `query:"coin"`
	Timeframe string `query:"timeframe"`
	Limit     int    `query:"limit" default:"50" validate:"gte=1,lte=500"`
}

// ReplayRequest runs the pure engine on caller supplied inputs.
type ReplayRequest struct {
	Coin          string             `json:"coin"`
	Timeframe     string             `json:"timeframe"`
	Candles       []Candle           `json:"candles" validate:"max=5000"`
	Votes         []ClassifierVote   `json:"votes"`
	Readings      []SentimentReading `json:"sentiment"`
	MinConfidence NullFloat          `json:"min_confidence" validate:"omitempty,gte=0,lte=100"`
}

// MarketSubscription is what a websocket client sends to pick its stream.
type MarketSubscription struct {
	Coin      string `json:"coin"`
	Timeframe string `json:"timeframe"`
}
