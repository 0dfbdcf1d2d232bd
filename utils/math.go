// Package utils contains small numeric helpers shared by the controller and the simulator.
package utils

import (
	"math"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// DegsPerSecToRadsPerSec converts an angular rate in degrees per second to radians per second.
func DegsPerSecToRadsPerSec(dps float64) float64 {
	return DegToRad(dps)
}

// RPMToRadsPerSec converts revolutions per minute to radians per second.
func RPMToRadsPerSec(rpm float64) float64 {
	return rpm * 2 * math.Pi / 60
}

// InchesToMeters converts inches to meters.
func InchesToMeters(in float64) float64 {
	return in * 0.0254
}

// Sign returns -1, 0 or 1 according to the sign of x. NaN maps to 0.
func Sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// IsFinite reports whether every value is neither NaN nor infinite.
func IsFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Float64AlmostEqual compares two float64s and returns if the difference between them is less
// than epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// Square returns n*n.
func Square(n float64) float64 {
	return n * n
}
