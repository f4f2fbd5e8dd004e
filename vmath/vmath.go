package vmath

import "math"

// Epsilon guards divisions in distance and gain mappings
const Epsilon = 1e-9

// --- Scalar helpers ---

// Clamp limits v to [lo, hi]; NaN collapses to lo
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 limits v to [0, 1]
func Clamp01(v float64) float64 { return Clamp(v, 0, 1) }

// Lerp interpolates a→b by t without clamping t
func Lerp(a, b, t float64) float64 { return a + (b-a)*t }

// InverseLerp returns where v sits between a and b, clamped to [0, 1]
// Degenerate ranges return 0
func InverseLerp(a, b, v float64) float64 {
	if math.Abs(b-a) < Epsilon {
		return 0
	}
	return Clamp01((v - a) / (b - a))
}

// LogLerp interpolates between two positive frequencies on a log scale
// Non-positive inputs fall back to linear interpolation
func LogLerp(a, b, t float64) float64 {
	if a <= 0 || b <= 0 {
		return Lerp(a, b, t)
	}
	return math.Exp(Lerp(math.Log(a), math.Log(b), t))
}

// Finite reports whether v is neither NaN nor ±Inf
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// OrDefault returns v when finite, def otherwise
func OrDefault(v, def float64) float64 {
	if Finite(v) {
		return v
	}
	return def
}
