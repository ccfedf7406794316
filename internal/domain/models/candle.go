package models

import "time"

// Candle is one OHLCV bar. Sequences are ordered by ascending Timestamp.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol,omitempty"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// StreamCandle is a candle coming off a live stream, tagged with its series and close state.
type StreamCandle struct {
	Candle
	Coin      string    `json:"coin"`
	Timeframe string    `json:"timeframe"`
	Closed    bool      `json:"closed"`
	Received  time.Time `json:"received"`
}

// Key identifies the candle's series.
func (c StreamCandle) Key() string {
	return c.Coin + ":" + c.Timeframe
}

// Closes extracts close prices.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts volumes.
func Volumes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}
