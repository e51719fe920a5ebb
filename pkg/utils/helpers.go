package utils

import (
	"math"
)

// maxExact is the magnitude above which every float64 is already an integer.
const maxExact = 1 << 52

// RoundTo rounds a float to specified decimal places. Values too large to
// scale without losing precision are returned unchanged.
func RoundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	scaled := value * factor
	if !IsFinite(scaled) || math.Abs(scaled) > maxExact {
		return value
	}
	return math.Round(scaled) / factor
}

// PercentChange returns the relative change from previous to current in
// percent, or 0 when previous is 0.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
