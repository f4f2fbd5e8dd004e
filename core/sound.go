package core

import (
	"math"
	"time"
)

// FilterKind selects the per-voice filter topology
type FilterKind int

const (
	FilterNone     FilterKind = iota // Bypass
	FilterLowPass                    // Muffle
	FilterBandPass                   // Radio
)

// String returns a short kind label
func (k FilterKind) String() string {
	switch k {
	case FilterLowPass:
		return "lowpass"
	case FilterBandPass:
		return "bandpass"
	default:
		return "none"
	}
}

// Filter is the filter parameter set bound to a voice
type Filter struct {
	Kind   FilterKind
	Cutoff float64 // Hz; centre frequency for FilterBandPass
	Q      float64
	HFGain float64 // High-frequency gain multiplier in [0, 1]
	LFGain float64 // Low-frequency gain multiplier in [0.1, 1]
}

// Near reports whether f and o differ by at most eps in every parameter
func (f Filter) Near(o Filter, eps float64) bool {
	return f.Kind == o.Kind &&
		math.Abs(f.Cutoff-o.Cutoff) <= eps &&
		math.Abs(f.Q-o.Q) <= eps &&
		math.Abs(f.HFGain-o.HFGain) <= eps &&
		math.Abs(f.LFGain-o.LFGain) <= eps
}

// Voice is the narrow audio-backend capability owned by one channel
// Every setter either binds the new value or returns an error and keeps the previous one
type Voice interface {
	SetGain(gain float64) error
	SetPitch(pitch float64) error
	SetPosition(pos Vec2) error
	SetFilter(f Filter) error
	SetReverb(send bool) error

	// Clone starts a new voice on the same buffer at the same playback offset
	Clone() (Voice, error)

	Offset() time.Duration
	Playing() bool
	Dispose() error
}
