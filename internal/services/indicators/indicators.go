// Package indicators computes the technical indicator series the strategies and
// classifiers consume. Every function is pure and deterministic.
package indicators

import (
	"SignalFusion/internal/domain/models"
)

// Params holds indicator lengths.
type Params struct {
	RSIPeriod       int
	EMAFast         int
	EMASlow         int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	BollingerPeriod int
	BollingerStd    float64
	ATRPeriod       int
	VolumePeriod    int
}

// DefaultParams returns the standard lengths.
func DefaultParams() Params {
	return Params{
		RSIPeriod:       14,
		EMAFast:         9,
		EMASlow:         21,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		BollingerPeriod: 20,
		BollingerStd:    2,
		ATRPeriod:       14,
		VolumePeriod:    20,
	}
}

// Validate rejects non-positive lengths.
func (p Params) Validate() error {
	checks := []struct {
		field string
		v     int
	}{
		{"rsi_period", p.RSIPeriod},
		{"ema_fast", p.EMAFast},
		{"ema_slow", p.EMASlow},
		{"macd_fast", p.MACDFast},
		{"macd_slow", p.MACDSlow},
		{"macd_signal", p.MACDSignal},
		{"bollinger_period", p.BollingerPeriod},
		{"atr_period", p.ATRPeriod},
		{"volume_period", p.VolumePeriod},
	}
	for _, c := range checks {
		if c.v < 1 {
			return &models.ConfigurationError{Field: c.field, Reason: "must be at least 1"}
		}
	}
	if !(p.BollingerStd > 0) {
		return &models.ConfigurationError{Field: "bollinger_std", Reason: "must be positive"}
	}
	return nil
}

// Set is the full indicator table for one candle window.
type Set struct {
	Params      Params
	Len         int
	RSI         Series
	EMAFast     Series
	EMASlow     Series
	MACD        Series
	MACDSignal  Series
	MACDHist    Series
	BBUpper     Series
	BBMiddle    Series
	BBLower     Series
	ATR         Series
	VolumeSMA   Series
	PriceChange Series
}

// Compute derives all indicators for candles (ascending by time).
func Compute(candles []models.Candle, p Params) *Set {
	closes := models.Closes(candles)
	s := &Set{Params: p, Len: len(candles)}
	s.RSI = RSI(closes, p.RSIPeriod)
	s.EMAFast = EMA(closes, p.EMAFast)
	s.EMASlow = EMA(closes, p.EMASlow)
	s.MACD, s.MACDSignal, s.MACDHist = MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	s.BBUpper, s.BBMiddle, s.BBLower = Bollinger(closes, p.BollingerPeriod, p.BollingerStd)
	s.ATR = ATR(candles, p.ATRPeriod)
	s.VolumeSMA = SMA(models.Volumes(candles), p.VolumePeriod)
	s.PriceChange = PctChange(closes)
	return s
}

// Row is the indicator snapshot at one candle.
type Row struct {
	RSI            models.NullFloat `json:"rsi"`
	EMAFast        models.NullFloat `json:"ema_fast"`
	EMASlow        models.NullFloat `json:"ema_slow"`
	MACD           models.NullFloat `json:"macd"`
	MACDSignal     models.NullFloat `json:"macd_signal"`
	MACDHist       models.NullFloat `json:"macd_hist"`
	BollingerUpper models.NullFloat `json:"bollinger_upper"`
	BollingerMid   models.NullFloat `json:"bollinger_middle"`
	BollingerLower models.NullFloat `json:"bollinger_lower"`
	ATR            models.NullFloat `json:"atr"`
	VolumeSMA      models.NullFloat `json:"volume_sma"`
	PriceChange    models.NullFloat `json:"price_change"`
}

// RowAt returns the snapshot at candle i.
func (s *Set) RowAt(i int) Row {
	return Row{
		RSI:            s.RSI.At(i),
		EMAFast:        s.EMAFast.At(i),
		EMASlow:        s.EMASlow.At(i),
		MACD:           s.MACD.At(i),
		MACDSignal:     s.MACDSignal.At(i),
		MACDHist:       s.MACDHist.At(i),
		BollingerUpper: s.BBUpper.At(i),
		BollingerMid:   s.BBMiddle.At(i),
		BollingerLower: s.BBLower.At(i),
		ATR:            s.ATR.At(i),
		VolumeSMA:      s.VolumeSMA.At(i),
		PriceChange:    s.PriceChange.At(i),
	}
}
