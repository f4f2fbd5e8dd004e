// Package sidechain models the shared ducking bus driven by loud sounds
package sidechain

import (
	"math"
	"time"

	"github.com/lixenwraith/muffle/vmath"
)

// State is the single global sidechain
// Mutated on the update thread only: Process once per tick, StartRelease by loud channels
type State struct {
	multiplier float64
	start      float64
	remaining  time.Duration
	release    time.Duration
	exponent   float64
	group      string
}

// New creates an idle sidechain with the given release curve exponent
func New(exponent float64) *State {
	s := &State{}
	s.SetExponent(exponent)
	return s
}

// SetExponent changes the release curve; 1 is linear, below 1 holds longer, above 1 drops faster
func (s *State) SetExponent(exponent float64) {
	if !vmath.Finite(exponent) || exponent <= 0 {
		exponent = 1
	}
	s.exponent = exponent
}

// StartRelease raises the multiplier to strength and restarts the release timer
// A different group only takes over with a strength at least the current multiplier;
// the winning group may refresh at any strength, keeping the higher of the two
func (s *State) StartRelease(strength float64, release time.Duration, group string) bool {
	strength = vmath.Clamp01(strength)
	if group != s.group && strength < s.multiplier {
		return false
	}
	if group == s.group && strength < s.multiplier {
		strength = s.multiplier
	}
	if release < 0 {
		release = 0
	}

	s.multiplier = strength
	s.start = strength
	s.release = release
	s.remaining = release
	s.group = group
	return true
}

// Process decays the multiplier toward 0 along the release curve
func (s *State) Process(dt time.Duration) {
	if s.multiplier == 0 {
		return
	}
	if dt < 0 {
		dt = 0
	}
	s.remaining -= dt
	if s.remaining <= 0 || s.release <= 0 {
		s.reset()
		return
	}

	frac := float64(s.remaining) / float64(s.release)
	s.multiplier = s.start * math.Pow(frac, s.exponent)
}

func (s *State) reset() {
	s.multiplier = 0
	s.start = 0
	s.remaining = 0
	s.group = ""
}

// Multiplier returns the fraction of volume currently ducked
func (s *State) Multiplier() float64 { return s.multiplier }

// Gain returns the gain factor non-loud channels apply
func (s *State) Gain() float64 { return 1 - s.multiplier }

// Group returns the winning loud group, empty when idle
func (s *State) Group() string { return s.group }

// Remaining returns the time left in the current release
func (s *State) Remaining() time.Duration { return s.remaining }
