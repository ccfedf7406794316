package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NullFloat is a float that may be unavailable. It serializes to JSON null when
// it is not Valid, and a non-finite value is never Valid.
type NullFloat struct {
	Value float64
	Valid bool
}

// Float wraps v; NaN and infinities produce an unavailable value.
func Float(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{Value: v, Valid: true}
}

// Null is the unavailable value.
func Null() NullFloat { return NullFloat{} }

// Get returns the value and whether it is usable.
func (n NullFloat) Get() (float64, bool) {
	if !n.Valid || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return 0, false
	}
	return n.Value, true
}

// Ptr returns nil for unavailable values.
func (n NullFloat) Ptr() *float64 {
	v, ok := n.Get()
	if !ok {
		return nil
	}
	return &v
}

// Or returns the value, or def when it is unavailable.
func (n NullFloat) Or(def float64) float64 {
	if v, ok := n.Get(); ok {
		return v
	}
	return def
}

// Map applies fn to an available value.
func (n NullFloat) Map(fn func(float64) float64) NullFloat {
	v, ok := n.Get()
	if !ok {
		return NullFloat{}
	}
	return Float(fn(v))
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	v, ok := n.Get()
	if !ok {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (n *NullFloat) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Float(v)
	return nil
}

// UnmarshalParam binds query and path values. An empty value is unavailable.
func (n *NullFloat) UnmarshalParam(param string) error {
	param = strings.TrimSpace(param)
	if param == "" {
		*n = NullFloat{}
		return nil
	}
	v, err := strconv.ParseFloat(param, 64)
	if err != nil {
		return err
	}
	*n = Float(v)
	return nil
}
