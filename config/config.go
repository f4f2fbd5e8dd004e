// Package config holds the injected configuration surface of the occlusion engine
// Values come from parameter defaults, an optional TOML file and MUFFLE_* environment overrides
package config

import (
	"errors"
	"time"

	"github.com/lixenwraith/muffle/parameter"
)

// Mode selects the filter parameter mapping
type Mode string

const (
	// ModeDiscrete maps strength to a tier and uses the tier's fixed cutoff
	ModeDiscrete Mode = "discrete"
	// ModeContinuous interpolates the cutoff from strength for non-voice channels
	ModeContinuous Mode = "continuous"
)

// AreaMode selects how the listener's reverb area is measured
type AreaMode string

const (
	AreaSum     AreaMode = "sum"
	AreaRaycast AreaMode = "raycast"
)

// Sentinel errors
var (
	ErrInvalidMode  = errors.New("invalid mode")
	ErrInvalidValue = errors.New("value out of domain")
)

// Config is the complete engine configuration
// Treated as immutable during a tick; swap whole values between ticks
type Config struct {
	Mode                   Mode `toml:"mode"`
	DisableAutoAttenuation bool `toml:"disable_auto_attenuation"`

	Obstruction Obstruction `toml:"obstruction"`
	Thresholds  Thresholds  `toml:"thresholds"`
	Smoothing   Smoothing   `toml:"smoothing"`
	Pathing     Pathing     `toml:"pathing"`
	Propagation Propagation `toml:"propagation"`
	Listener    Listener    `toml:"listener"`
	Sidechain   Sidechain   `toml:"sidechain"`
	Clones      Clones      `toml:"clones"`
	Intervals   Intervals   `toml:"intervals"`
	Filter      Filter      `toml:"filter"`
	Pitch       Pitch       `toml:"pitch"`
	Reverb      Reverb      `toml:"reverb"`
	Audio       Audio       `toml:"audio"`

	// Ignore maps a tag name to keywords matched against sound paths at registration
	Ignore map[string][]string `toml:"ignore"`

	// Multipliers scale obstruction strengths per category name
	Multipliers map[string]float64 `toml:"multipliers"`
}

// Obstruction holds the base strength of each obstruction kind
type Obstruction struct {
	WaterSurface float64 `toml:"water_surface"`
	WaterBody    float64 `toml:"water_body"`
	WallThick    float64 `toml:"wall_thick"`
	WallThin     float64 `toml:"wall_thin"`
	DoorThick    float64 `toml:"door_thick"`
	DoorThin     float64 `toml:"door_thin"`
	Suit         float64 `toml:"suit"`
}

// Thresholds are the ascending muffle tier boundaries
type Thresholds struct {
	Light  float64 `toml:"light"`
	Medium float64 `toml:"medium"`
	Heavy  float64 `toml:"heavy"`
}

// Smoothing rates are maximum change per second
type Smoothing struct {
	GainRate   float64 `toml:"gain_rate"`
	PitchRate  float64 `toml:"pitch_rate"`
	FilterRate float64 `toml:"filter_rate"`
	AreaRate   float64 `toml:"area_rate"`
}

// Pathing configures the acoustic graph search
type Pathing struct {
	MaxDistance            float64 `toml:"max_distance"`
	MaxDepth               int     `toml:"max_depth"`
	MinOpenness            float64 `toml:"min_openness"`
	DoorMode               string  `toml:"door_mode"` // "count" or "distance"
	DoorDistanceMultiplier float64 `toml:"door_distance_multiplier"`
	ApproxDivergence       float64 `toml:"approx_divergence"`
	MaxWallEntries         int     `toml:"max_wall_entries"`
	CacheDirtyDistance     float64 `toml:"cache_dirty_distance"`
}

// Propagation configures wall leakage for unconnected sounds
type Propagation struct {
	Enabled bool    `toml:"enabled"`
	Radius  float64 `toml:"radius"`

	// Categories propagate by default; definitions may add the tag individually
	Categories []string `toml:"categories"`
}

// Listener configures listening aids, reverb area and medium
type Listener struct {
	EavesdropRamp             time.Duration `toml:"eavesdrop_ramp"`
	EavesdropThreshold        float64       `toml:"eavesdrop_threshold"`
	HydrophoneRamp            time.Duration `toml:"hydrophone_ramp"`
	HydrophoneThreshold       float64       `toml:"hydrophone_threshold"`
	HydrophoneRangeMultiplier float64       `toml:"hydrophone_range_multiplier"`
	RespectClosedGaps         bool          `toml:"respect_closed_gaps"`
	AreaMode                  AreaMode      `toml:"area_mode"`
	ReverbWaterGate           bool          `toml:"reverb_water_gate"`
	SpeedOfSoundAir           float64       `toml:"speed_of_sound_air"`
	SpeedOfSoundWater         float64       `toml:"speed_of_sound_water"`
	DopplerFactor             float64       `toml:"doppler_factor"`
}

// Sidechain configures ducking by loud sounds
type Sidechain struct {
	Enabled   bool          `toml:"enabled"`
	Intensity float64       `toml:"intensity"`
	Release   time.Duration `toml:"release"`
	Exponent  float64       `toml:"exponent"`
}

// Clones configures directional phantom channels
type Clones struct {
	Enabled   bool    `toml:"enabled"`
	Max       int     `toml:"max"`
	MinOffset float64 `toml:"min_offset"`
}

// Intervals are the per-group reclassification periods
type Intervals struct {
	Voice        time.Duration `toml:"voice"`
	Looping      time.Duration `toml:"looping"`
	StatusEffect time.Duration `toml:"status_effect"`
	OneShot      time.Duration `toml:"one_shot"`
}

// Filter configures cutoff selection
type Filter struct {
	OpenCutoff   float64 `toml:"open_cutoff"`
	LightCutoff  float64 `toml:"light_cutoff"`
	MediumCutoff float64 `toml:"medium_cutoff"`
	HeavyCutoff  float64 `toml:"heavy_cutoff"`
	Q            float64 `toml:"q"`
	RadioCenter  float64 `toml:"radio_center"`
	RadioQ       float64 `toml:"radio_q"`
	LowShelfFreq float64 `toml:"low_shelf_freq"`
}

// Pitch configures muffle and underwater pitch shift
type Pitch struct {
	Enabled    bool    `toml:"enabled"`
	Muffled    float64 `toml:"muffled"`
	Underwater float64 `toml:"underwater"`
}

// Reverb configures the shared reverb bus
type Reverb struct {
	Enabled bool    `toml:"enabled"`
	Wet     float64 `toml:"wet"`
	MinRT60 float64 `toml:"min_rt60"`
	MaxRT60 float64 `toml:"max_rt60"`
	MaxArea float64 `toml:"max_area"`
}

// Audio configures the output backend
type Audio struct {
	Enabled         bool          `toml:"enabled"`
	SampleRate      int           `toml:"sample_rate"`
	BufferDuration  time.Duration `toml:"buffer_duration"`
	ResampleQuality int           `toml:"resample_quality"`
	MasterVolume    float64       `toml:"master_volume"`
}

// Default returns the configuration built from parameter constants
func Default() *Config {
	return &Config{
		Mode: ModeDiscrete,
		Obstruction: Obstruction{
			WaterSurface: parameter.StrengthWaterSurface,
			WaterBody:    parameter.StrengthWaterBody,
			WallThick:    parameter.StrengthWallThick,
			WallThin:     parameter.StrengthWallThin,
			DoorThick:    parameter.StrengthDoorThick,
			DoorThin:     parameter.StrengthDoorThin,
			Suit:         parameter.StrengthSuit,
		},
		Thresholds: Thresholds{
			Light:  parameter.ThresholdLight,
			Medium: parameter.ThresholdMedium,
			Heavy:  parameter.ThresholdHeavy,
		},
		Smoothing: Smoothing{
			GainRate:   parameter.SmoothGainRate,
			PitchRate:  parameter.SmoothPitchRate,
			FilterRate: parameter.SmoothFilterRate,
			AreaRate:   parameter.SmoothAreaRate,
		},
		Pathing: Pathing{
			MaxDistance:            parameter.PathMaxDistance,
			MaxDepth:               parameter.PathMaxDepth,
			MinOpenness:            parameter.PathMinOpenness,
			DoorMode:               "count",
			DoorDistanceMultiplier: parameter.PathDoorDistanceMultiplier,
			ApproxDivergence:       parameter.PathApproxDivergence,
			MaxWallEntries:         parameter.PathMaxWallEntries,
			CacheDirtyDistance:     parameter.PathCacheDirtyDistance,
		},
		Propagation: Propagation{
			Enabled:    true,
			Radius:     parameter.PropagationRadius,
			Categories: []string{"looping_component", "flow", "fire"},
		},
		Listener: Listener{
			EavesdropRamp:             parameter.EavesdropRamp,
			EavesdropThreshold:        parameter.EavesdropThreshold,
			HydrophoneRamp:            parameter.HydrophoneRamp,
			HydrophoneThreshold:       parameter.HydrophoneThreshold,
			HydrophoneRangeMultiplier: parameter.HydrophoneRangeMultiplier,
			RespectClosedGaps:         true,
			AreaMode:                  AreaSum,
			ReverbWaterGate:           true,
			SpeedOfSoundAir:           parameter.SpeedOfSoundAir,
			SpeedOfSoundWater:         parameter.SpeedOfSoundWater,
			DopplerFactor:             parameter.DopplerFactor,
		},
		Sidechain: Sidechain{
			Enabled:   true,
			Intensity: parameter.SidechainIntensity,
			Release:   parameter.SidechainRelease,
			Exponent:  parameter.SidechainExponent,
		},
		Clones: Clones{
			Enabled:   true,
			Max:       parameter.CloneDefaultMax,
			MinOffset: parameter.CloneMinOffset,
		},
		Intervals: Intervals{
			Voice:        parameter.IntervalVoice,
			Looping:      parameter.IntervalLooping,
			StatusEffect: parameter.IntervalStatusEffect,
			OneShot:      parameter.IntervalOneShot,
		},
		Filter: Filter{
			OpenCutoff:   parameter.FilterOpenCutoff,
			LightCutoff:  parameter.FilterLightCutoff,
			MediumCutoff: parameter.FilterMediumCutoff,
			HeavyCutoff:  parameter.FilterHeavyCutoff,
			Q:            parameter.FilterQ,
			RadioCenter:  parameter.FilterRadioCenter,
			RadioQ:       parameter.FilterRadioQ,
			LowShelfFreq: parameter.FilterLowShelfFreq,
		},
		Pitch: Pitch{
			Enabled:    true,
			Muffled:    parameter.PitchMuffled,
			Underwater: parameter.PitchUnderwater,
		},
		Reverb: Reverb{
			Enabled: true,
			Wet:     parameter.ReverbWet,
			MinRT60: parameter.ReverbMinRT60,
			MaxRT60: parameter.ReverbMaxRT60,
			MaxArea: parameter.ReverbMaxArea,
		},
		Audio: Audio{
			Enabled:         true,
			SampleRate:      parameter.AudioSampleRate,
			BufferDuration:  parameter.AudioBufferDuration,
			ResampleQuality: parameter.AudioResampleQuality,
			MasterVolume:    parameter.AudioMasterVolume,
		},
		Ignore:      map[string][]string{},
		Multipliers: map[string]float64{},
	}
}

// Clone returns a deep copy
func (c *Config) Clone() *Config {
	out := *c
	out.Propagation.Categories = append([]string(nil), c.Propagation.Categories...)
	out.Ignore = make(map[string][]string, len(c.Ignore))
	for k, v := range c.Ignore {
		out.Ignore[k] = append([]string(nil), v...)
	}
	out.Multipliers = make(map[string]float64, len(c.Multipliers))
	for k, v := range c.Multipliers {
		out.Multipliers[k] = v
	}
	return &out
}

// TierCutoffs returns cutoffs indexed by tier: none, light, medium, heavy
func (f Filter) TierCutoffs() [4]float64 {
	return [4]float64{f.OpenCutoff, f.LightCutoff, f.MediumCutoff, f.HeavyCutoff}
}
