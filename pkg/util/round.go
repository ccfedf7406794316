package util

import (
    "math"

    "github.com/shopspring/decimal"
)

// Round rounds v half away from zero to the given number of decimal places.
// NaN and infinities are returned unchanged.
func Round(v float64, places int32) float64 {
    if math.IsNaN(v) || math.IsInf(v, 0) {
        return v
    }
    return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// PricePlaces picks a display precision for a quote price so that
// sub-dollar coins keep their significant digits.
func PricePlaces(price float64) int32 {
    p := math.Abs(price)
    switch {
    case p >= 1:
        return 2
    case p >= 0.01:
        return 4
    case p == 0:
        return 2
    default:
        return 8
    }
}

// RoundPrice rounds a price with PricePlaces precision.
func RoundPrice(price float64) float64 {
    return Round(price, PricePlaces(price))
}
