package repository

import (
	"strings"
	"time"
)

// Timeframe represents candle resolution buckets.
type Timeframe string

const (
	TF1s  Timeframe = "1s"
	TF1m  Timeframe = "1m"
	TF3m  Timeframe = "3m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF30m Timeframe = "30m"
	TF1h  Timeframe = "1h"
	TF2h  Timeframe = "2h"
	TF4h  Timeframe = "4h"
	TF6h  Timeframe = "6h"
	TF8h  Timeframe = "8h"
	TF12h Timeframe = "12h"
	TF1d  Timeframe = "1d"
	TF3d  Timeframe = "3d"
	TF1w  Timeframe = "1w"
	TF1M  Timeframe = "1M"
)

// Timeframes lists every supported timeframe, shortest first.
var Timeframes = []Timeframe{TF1s, TF1m, TF3m, TF5m, TF15m, TF30m, TF1h, TF2h, TF4h, TF6h, TF8h, TF12h, TF1d, TF3d, TF1w, TF1M}

var tfDurations = map[Timeframe]time.Duration{
	TF1s:  time.Second,
	TF1m:  time.Minute,
	TF3m:  3 * time.Minute,
	TF5m:  5 * time.Minute,
	TF15m: 15 * time.Minute,
	TF30m: 30 * time.Minute,
	TF1h:  time.Hour,
	TF2h:  2 * time.Hour,
	TF4h:  4 * time.Hour,
	TF6h:  6 * time.Hour,
	TF8h:  8 * time.Hour,
	TF12h: 12 * time.Hour,
	TF1d:  24 * time.Hour,
	TF3d:  72 * time.Hour,
	TF1w:  7 * 24 * time.Hour,
	TF1M:  30 * 24 * time.Hour,
}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	_, ok := tfDurations[tf]
	return ok
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF1h }

// ParseTimeframe validates a raw timeframe. "1M" (month) is case sensitive;
// other units are accepted in any case.
func ParseTimeframe(s string) (Timeframe, bool) {
	s = strings.TrimSpace(s)
	if s != "1M" {
		s = strings.ToLower(s)
	}
	tf := Timeframe(s)
	return tf, IsValidTimeframe(tf)
}

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if tf, ok := ParseTimeframe(s); ok {
		return tf
	}
	return DefaultTimeframe()
}

// Duration is the nominal bar length. A month is counted as 30 days.
func (tf Timeframe) Duration() time.Duration {
	return tfDurations[tf]
}

func (tf Timeframe) String() string { return string(tf) }

// TimeframeStrings returns all timeframes as strings.
func TimeframeStrings() []string {
	out := make([]string, len(Timeframes))
	for i, tf := range Timeframes {
		out[i] = string(tf)
	}
	return out
}
