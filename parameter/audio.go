package parameter

import "time"

// Audio Hardware Settings
const (
	AudioSampleRate = 44100
	AudioChannels   = 2

	// AudioResampleQuality is the beep resampler quality used for pitch shifting
	AudioResampleQuality = 3

	AudioMasterVolume = 0.8
)

// Audio Engine Timing
const (
	// AudioBufferDuration determines speaker latency
	// 50ms aligns with the default tick
	AudioBufferDuration = 50 * time.Millisecond

	// TickInterval is the default simulation tick driving the occlusion sweep
	TickInterval = 50 * time.Millisecond
)

// Pitch clamp enforced before any backend write
const (
	PitchMin = 0.25
	PitchMax = 4.0
)

// Pitch targets
const (
	// PitchMuffled is the pitch multiplier reached at full muffle strength
	PitchMuffled = 0.94

	// PitchUnderwater multiplies pitch while the listener is submerged
	PitchUnderwater = 0.9
)

// Filter coefficient defaults (Hz)
const (
	FilterOpenCutoff   = 20000.0
	FilterLightCutoff  = 3200.0
	FilterMediumCutoff = 1200.0
	FilterHeavyCutoff  = 450.0
	FilterQ            = 0.7071

	// FilterLowShelfFreq is the corner of the low-frequency gain shelf
	FilterLowShelfFreq = 250.0

	// Radio band-pass centre and quality
	FilterRadioCenter = 1400.0
	FilterRadioQ      = 0.9
)

// Reverb bus
const (
	ReverbWet     = 0.25
	ReverbMinRT60 = 0.3 // Seconds at zero area
	ReverbMaxRT60 = 3.5 // Seconds at ReverbMaxArea
	ReverbMaxArea = 250000.0
)

// Distance falloff
const (
	DefaultSoundRange     = 1000.0
	DefaultSoundNearRange = 100.0
)

// Listener medium
const (
	SpeedOfSoundAir   = 343.0
	SpeedOfSoundWater = 1482.0
	DopplerFactor     = 1.0
)

// Voice rendering
const (
	// AudioPanWidth is the lateral offset at which a voice is fully panned
	AudioPanWidth = 400.0

	// AudioBusChunk bounds one bus pass; reverb sends are aligned per chunk
	AudioBusChunk = 512

	// Doppler pitch shift clamp
	DopplerShiftMin = 0.5
	DopplerShiftMax = 2.0

	// ReverbDamp is the FDN feedback damping
	ReverbDamp = 0.35

	// FilterMinCutoff and FilterMaxCutoffRatio keep biquad designs inside (0, nyquist)
	FilterMinCutoff      = 20.0
	FilterMaxCutoffRatio = 0.45

	// FilterMinShelfGain floors shelf gains before the dB conversion
	FilterMinShelfGain = 1e-4

	// ToneDefaultDuration renders tones that do not set one
	ToneDefaultDuration = time.Second
)
