// Package utils contains shared numeric helpers.
package utils

import "math"

// Float64AlmostEqual returns whether two float64s are within epsilon of each other.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

// Clamp returns min if value is less than min, max if value is greater than max, and
// the value otherwise.
func Clamp(value, min, max float64) float64 {
	switch {
	case value < min:
		return min
	case value > max:
		return max
	}
	return value
}
