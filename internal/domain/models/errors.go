package models

import (
	"errors"
	"fmt"
)

// ErrNoPriceData is returned when no candles are available for a request.
var ErrNoPriceData = errors.New("no price data available")

// DataInsufficientError means a window is shorter than an indicator or strategy needs.
type DataInsufficientError struct {
	Indicator string
	Required  int
	Available int
}

func (e *DataInsufficientError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need %d candles, have %d", e.Indicator, e.Required, e.Available)
}

// UpstreamUnavailableError wraps a collaborator failure or timeout.
type UpstreamUnavailableError struct {
	Source string
	Err    error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("upstream %s unavailable: %v", e.Source, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error { return e.Err }

// ConfigurationError rejects an invalid engine configuration.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

// IsUpstreamUnavailable reports whether err is (or wraps) an UpstreamUnavailableError.
func IsUpstreamUnavailable(err error) bool {
	var ue *UpstreamUnavailableError
	return errors.As(err, &ue)
}
