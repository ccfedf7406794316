package indicators

import (
	"math"

	"SignalFusion/internal/domain/models"
)

// Series is one value per candle; entries are unavailable until the indicator's window is filled.
type Series []models.NullFloat

// At returns the i-th value, or an unavailable value when i is out of range.
func (s Series) At(i int) models.NullFloat {
	if i < 0 || i >= len(s) {
		return models.Null()
	}
	return s[i]
}

// Back returns the value k bars before the last one (k = 0 is the last bar).
func (s Series) Back(k int) models.NullFloat {
	return s.At(len(s) - 1 - k)
}

// Last returns the latest value.
func (s Series) Last() models.NullFloat { return s.Back(0) }

// FirstValid returns the index of the first available value or -1.
func (s Series) FirstValid() int {
	for i, v := range s {
		if v.Valid {
			return i
		}
	}
	return -1
}

func nullSeries(n int) Series {
	return make(Series, n)
}

func fromFloats(values []float64) Series {
	out := make(Series, len(values))
	for i, v := range values {
		out[i] = models.Float(v)
	}
	return out
}

// ewm is an exponentially weighted mean without bias adjustment. It is seeded with
// the first available input and reports values once minPeriods inputs were seen.
func ewm(in Series, alpha float64, minPeriods int) Series {
	out := nullSeries(len(in))
	seen := 0
	var mean float64
	for i, v := range in {
		x, ok := v.Get()
		if !ok {
			continue
		}
		if seen == 0 {
			mean = x
		} else {
			mean = alpha*x + (1-alpha)*mean
		}
		seen++
		if seen >= minPeriods {
			out[i] = models.Float(mean)
		}
	}
	return out
}

// EMA is the exponential moving average with smoothing 2/(period+1), available from index period-1.
func EMA(values []float64, period int) Series {
	if period < 1 {
		return nullSeries(len(values))
	}
	return ewm(fromFloats(values), 2/float64(period+1), period)
}

// SMA is the simple moving average, available from index period-1.
func SMA(values []float64, period int) Series {
	out := nullSeries(len(values))
	if period < 1 {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = models.Float(sum / float64(period))
		}
	}
	return out
}

// RSI uses Wilder smoothing (alpha 1/period) of gains and losses. The first bar counts
// as a zero change, so values are available from index period-1. When the average
// loss is zero the RSI is 100.
func RSI(closes []float64, period int) Series {
	n := len(closes)
	if period < 1 || n == 0 {
		return nullSeries(n)
	}
	up := make(Series, n)
	down := make(Series, n)
	up[0], down[0] = models.Float(0), models.Float(0)
	for i := 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		up[i] = models.Float(math.Max(d, 0))
		down[i] = models.Float(math.Max(-d, 0))
	}
	alpha := 1 / float64(period)
	avgUp := ewm(up, alpha, period)
	avgDown := ewm(down, alpha, period)
	out := nullSeries(n)
	for i := range out {
		u, okU := avgUp[i].Get()
		d, okD := avgDown[i].Get()
		if !okU || !okD {
			continue
		}
		if d == 0 {
			out[i] = models.Float(100)
			continue
		}
		out[i] = models.Float(100 - 100/(1+u/d))
	}
	return out
}

// MACD returns the MACD line (fast EMA minus slow EMA), its signal line (EMA of the
// available MACD values) and the histogram.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist Series) {
	n := len(closes)
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	line = nullSeries(n)
	for i := 0; i < n; i++ {
		f, okF := emaFast[i].Get()
		s, okS := emaSlow[i].Get()
		if okF && okS {
			line[i] = models.Float(f - s)
		}
	}
	if signal < 1 {
		return line, nullSeries(n), nullSeries(n)
	}
	sig = ewm(line, 2/float64(signal+1), signal)
	hist = nullSeries(n)
	for i := 0; i < n; i++ {
		m, okM := line[i].Get()
		s, okS := sig[i].Get()
		if okM && okS {
			hist[i] = models.Float(m - s)
		}
	}
	return line, sig, hist
}

// Bollinger returns bands at middle ± k population standard deviations.
func Bollinger(closes []float64, period int, k float64) (upper, middle, lower Series) {
	n := len(closes)
	upper, middle, lower = nullSeries(n), nullSeries(n), nullSeries(n)
	if period < 1 {
		return
	}
	for i := period - 1; i < n; i++ {
		window := closes[i-period+1 : i+1]
		var sum float64
		for _, v := range window {
			sum += v
		}
		mean := sum / float64(period)
		var ss float64
		for _, v := range window {
			ss += (v - mean) * (v - mean)
		}
		std := math.Sqrt(ss / float64(period))
		middle[i] = models.Float(mean)
		upper[i] = models.Float(mean + k*std)
		lower[i] = models.Float(mean - k*std)
	}
	return
}

// TrueRange of each bar; the first bar has no previous close and uses high-low.
func TrueRange(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		tr := c.High - c.Low
		if i > 0 {
			prev := candles[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(c.High-prev), math.Abs(c.Low-prev)))
		}
		out[i] = tr
	}
	return out
}

// ATR is seeded with the mean of the first period true ranges and then Wilder smoothed.
func ATR(candles []models.Candle, period int) Series {
	n := len(candles)
	out := nullSeries(n)
	if period < 1 || n < period {
		return out
	}
	tr := TrueRange(candles)
	var sum float64
	for _, v := range tr[:period] {
		sum += v
	}
	atr := sum / float64(period)
	out[period-1] = models.Float(atr)
	for i := period; i < n; i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
		out[i] = models.Float(atr)
	}
	return out
}

// PctChange is the fractional change from the previous value.
func PctChange(values []float64) Series {
	out := nullSeries(len(values))
	for i := 1; i < len(values); i++ {
		if values[i-1] != 0 {
			out[i] = models.Float((values[i] - values[i-1]) / values[i-1])
		}
	}
	return out
}
