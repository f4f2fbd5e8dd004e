package parameter

import "time"

// Obstruction base strengths, each in [0, 1]
const (
	StrengthWaterSurface = 0.75
	StrengthWaterBody    = 0.4
	StrengthWallThick    = 0.9
	StrengthWallThin     = 0.5
	StrengthDoorThick    = 0.7
	StrengthDoorThin     = 0.3
	StrengthSuit         = 0.35
)

// Muffle tier thresholds on combined strength
// One closed door (0.7) lands in Medium, one thick wall (0.9) in Heavy
const (
	ThresholdLight  = 0.25
	ThresholdMedium = 0.6
	ThresholdHeavy  = 0.85
)

const (
	// LowFreqNormalization is the total obstruction that fully attenuates low frequencies
	LowFreqNormalization = 4.0

	// LowFreqMinGain floors the low-frequency gain multiplier
	LowFreqMinGain = 0.1
)

// Smoothing rates (units per second)
const (
	SmoothGainRate   = 2.5
	SmoothPitchRate  = 0.5
	SmoothFilterRate = 3.0
	SmoothAreaRate   = 40000.0
)

// Sidechain defaults
const (
	SidechainIntensity = 0.7
	SidechainRelease   = 1500 * time.Millisecond
	SidechainExponent  = 1.0
)

// Clone defaults
const (
	// CloneHardMax caps phantom channels per parent regardless of configuration
	CloneHardMax = 3

	CloneDefaultMax = 2

	// CloneMinOffset keeps phantom positions distinguishable from the listener
	CloneMinOffset = 50.0
)
