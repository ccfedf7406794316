// Package features builds model inputs and summary statistics from candles and indicators.
package features

import (
    "math"
    "time"

    "SignalFusion/internal/domain/models"
    "SignalFusion/internal/services/indicators"
)

// LatestRow returns the feature vector of the last candle in models.FeatureColumns order.
// Every column must be available, otherwise a DataInsufficientError names the first gap.
func LatestRow(candles []models.Candle, set *indicators.Set) (models.FeatureRow, error) {
    if len(candles) == 0 || set == nil || set.Len != len(candles) {
        return nil, models.ErrNoPriceData
    }
    last := len(candles) - 1
    c := candles[last]
    ind := set.RowAt(last)

    values := map[string]models.NullFloat{
        "open":             models.Float(c.Open),
        "high":             models.Float(c.High),
        "low":              models.Float(c.Low),
        "close":            models.Float(c.Close),
        "volume":           models.Float(c.Volume),
        "rsi":              ind.RSI,
        "ema_fast":         ind.EMAFast,
        "ema_slow":         ind.EMASlow,
        "macd":             ind.MACD,
        "macd_signal":      ind.MACDSignal,
        "macd_hist":        ind.MACDHist,
        "bollinger_upper":  ind.BollingerUpper,
        "bollinger_middle": ind.BollingerMid,
        "bollinger_lower":  ind.BollingerLower,
        "atr":              ind.ATR,
        "volume_sma":       ind.VolumeSMA,
        "price_change":     ind.PriceChange,
    }

    row := make(models.FeatureRow, len(models.FeatureColumns))
    for _, col := range models.FeatureColumns {
        v, ok := values[col].Get()
        if !ok {
            return nil, &models.DataInsufficientError{Indicator: col, Required: requiredFor(set.Params), Available: len(candles)}
        }
        row[col] = v
    }
    return row, nil
}

// requiredFor is the window length after which every feature column is available.
func requiredFor(p indicators.Params) int {
    return max(p.RSIPeriod, p.EMAFast, p.EMASlow, p.MACDSlow+p.MACDSignal-1, p.BollingerPeriod, p.ATRPeriod, p.VolumePeriod, 2)
}

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(candles)-1, or nil if insufficient data.
func ComputeLogReturns(candles []models.Candle) []float64 {
    if len(candles) < 2 {
        return nil
    }
    out := make([]float64, 0, len(candles)-1)
    for i := 1; i < len(candles); i++ {
        prev := candles[i-1].Close
        cur := candles[i].Close
        if prev <= 0 || cur <= 0 {
            out = append(out, 0)
            continue
        }
        out = append(out, math.Log(cur/prev))
    }
    return out
}

// RealizedVolatility computes annualized realized volatility over a rolling window
// using the provided number of bars per year. Returns the latest window sigma.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
    if window <= 1 || len(logReturns) < window {
        return 0
    }
    sum := 0.0
    sum2 := 0.0
    for i := len(logReturns) - window; i < len(logReturns); i++ {
        r := logReturns[i]
        sum += r
        sum2 += r * r
    }
    n := float64(window)
    mean := sum / n
    variance := (sum2 - n*mean*mean) / (n - 1)
    if variance < 0 {
        variance = 0
    }
    // annualize
    return math.Sqrt(variance * barsPerYear)
}

// BarsPerYear returns the approximate number of bars per year for a bar length.
func BarsPerYear(bar time.Duration) float64 {
    if bar <= 0 {
        bar = time.Minute
    }
    return float64(365*24*time.Hour) / float64(bar)
}

// Summary describes the window as a whole.
type Summary struct {
    First              time.Time `json:"first"`
    Last               time.Time `json:"last"`
    High               float64   `json:"high"`
    Low                float64   `json:"low"`
    ChangePct          float64   `json:"change_pct"`
    RealizedVolatility float64   `json:"realized_volatility"`
}

// Summarize reports range, change and annualized volatility of the window.
func Summarize(candles []models.Candle, bar time.Duration) Summary {
    if len(candles) == 0 {
        return Summary{}
    }
    s := Summary{
        First: candles[0].Timestamp,
        Last:  candles[len(candles)-1].Timestamp,
        High:  candles[0].High,
        Low:   candles[0].Low,
    }
    for _, c := range candles[1:] {
        s.High = math.Max(s.High, c.High)
        s.Low = math.Min(s.Low, c.Low)
    }
    if open := candles[0].Close; open != 0 {
        s.ChangePct = (candles[len(candles)-1].Close - open) / open * 100
    }
    rets := ComputeLogReturns(candles)
    s.RealizedVolatility = RealizedVolatility(rets, len(rets), BarsPerYear(bar))
    return s
}
