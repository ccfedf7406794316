package models

// FeatureColumns is the column order classifiers are trained on.
var FeatureColumns = []string{
	"open", "high", "low", "close", "volume",
	"rsi", "ema_fast", "ema_slow",
	"macd", "macd_signal", "macd_hist",
	"bollinger_upper", "bollinger_middle", "bollinger_lower",
	"atr", "volume_sma", "price_change",
}

// FeatureRow is the latest complete feature vector keyed by column name.
type FeatureRow map[string]float64
