package vmath

import (
	"math"
	"time"
)

// SmoothStep moves current toward target by at most maxDelta
// Result always lies between current and target; equal inputs return current unchanged
func SmoothStep(current, target, maxDelta float64) float64 {
	if math.IsNaN(target) {
		return current
	}
	if math.IsNaN(current) {
		return target
	}
	if math.IsNaN(maxDelta) || maxDelta < 0 {
		maxDelta = 0
	}
	diff := target - current
	if math.Abs(diff) <= maxDelta {
		return target
	}
	if diff > 0 {
		return current + maxDelta
	}
	return current - maxDelta
}

// Smoother applies SmoothStep with a per-second rate
// The first Step snaps to the target so new values never fade in from zero
type Smoother struct {
	Rate   float64 // Units per second
	Value  float64
	primed bool
}

// NewSmoother creates a smoother with the given transition rate
func NewSmoother(rate float64) Smoother {
	return Smoother{Rate: rate}
}

// Step advances toward target by Rate × dt and returns the new value
func (s *Smoother) Step(target float64, dt time.Duration) float64 {
	if !s.primed {
		s.Snap(target)
		return s.Value
	}
	s.Value = SmoothStep(s.Value, target, s.Rate*dt.Seconds())
	return s.Value
}

// Snap sets the value directly and marks the smoother primed
func (s *Smoother) Snap(v float64) {
	if math.IsNaN(v) {
		return
	}
	s.Value = v
	s.primed = true
}

// Primed reports whether the smoother has received a first value
func (s *Smoother) Primed() bool { return s.primed }

// Reset forgets the current value; the next Step snaps again
func (s *Smoother) Reset() {
	s.Value = 0
	s.primed = false
}
