package parameter

import "time"

// Eavesdropping
const (
	EavesdropRamp      = 600 * time.Millisecond
	EavesdropThreshold = 0.5
)

// Hydrophone
const (
	HydrophoneRamp            = 400 * time.Millisecond
	HydrophoneThreshold       = 0.5
	HydrophoneRangeMultiplier = 4.0
)

// Reverb area
const (
	// AreaRayCount is the ray fan size for the ray-cast reverb area mode
	AreaRayCount = 16

	// AreaRayLength is the reach of each fan ray
	AreaRayLength = 2000.0
)

// Per-category reclassification intervals
const (
	IntervalVoice        = 100 * time.Millisecond
	IntervalLooping      = 200 * time.Millisecond
	IntervalStatusEffect = 250 * time.Millisecond
	IntervalOneShot      = 100 * time.Millisecond
)
