package utils

import "math"

// Float64AlmostEqual compares two float64s and returns if their difference is at most epsilon.
func Float64AlmostEqual(v1, v2, epsilon float64) bool {
	return math.Abs(v1-v2) <= epsilon
}

// Clamp returns a number bounded between bound1 and bound2.
func Clamp(value, bound1, bound2 float64) float64 {
	lo, hi := bound1, bound2
	if lo > hi {
		lo, hi = hi, lo
	}
	return math.Min(math.Max(value, lo), hi)
}
