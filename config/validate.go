package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lixenwraith/muffle/parameter"
)

// Validate corrects out-of-domain values in place
// The returned error joins one entry per correction; the config is usable either way
func (c *Config) Validate() error {
	var errs []error
	fix := func(name string, got, want any) {
		errs = append(errs, fmt.Errorf("%s=%v corrected to %v: %w", name, got, want, ErrInvalidValue))
	}

	unit := func(name string, v *float64, def float64) {
		if math.IsNaN(*v) || *v < 0 || *v > 1 {
			fix(name, *v, def)
			*v = def
		}
	}
	positive := func(name string, v *float64, def float64) {
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
			fix(name, *v, def)
			*v = def
		}
	}
	positiveDur := func(name string, v *time.Duration, def time.Duration) {
		if *v <= 0 {
			fix(name, *v, def)
			*v = def
		}
	}

	switch c.Mode {
	case ModeDiscrete, ModeContinuous:
	default:
		errs = append(errs, fmt.Errorf("mode %q corrected to %q: %w", c.Mode, ModeDiscrete, ErrInvalidMode))
		c.Mode = ModeDiscrete
	}

	o := &c.Obstruction
	unit("obstruction.water_surface", &o.WaterSurface, parameter.StrengthWaterSurface)
	unit("obstruction.water_body", &o.WaterBody, parameter.StrengthWaterBody)
	unit("obstruction.wall_thick", &o.WallThick, parameter.StrengthWallThick)
	unit("obstruction.wall_thin", &o.WallThin, parameter.StrengthWallThin)
	unit("obstruction.door_thick", &o.DoorThick, parameter.StrengthDoorThick)
	unit("obstruction.door_thin", &o.DoorThin, parameter.StrengthDoorThin)
	unit("obstruction.suit", &o.Suit, parameter.StrengthSuit)

	th := &c.Thresholds
	unit("thresholds.light", &th.Light, parameter.ThresholdLight)
	unit("thresholds.medium", &th.Medium, parameter.ThresholdMedium)
	unit("thresholds.heavy", &th.Heavy, parameter.ThresholdHeavy)
	if !(th.Light <= th.Medium && th.Medium <= th.Heavy) {
		fix("thresholds", fmt.Sprintf("%v/%v/%v", th.Light, th.Medium, th.Heavy), "defaults")
		*th = Thresholds{Light: parameter.ThresholdLight, Medium: parameter.ThresholdMedium, Heavy: parameter.ThresholdHeavy}
	}

	s := &c.Smoothing
	positive("smoothing.gain_rate", &s.GainRate, parameter.SmoothGainRate)
	positive("smoothing.pitch_rate", &s.PitchRate, parameter.SmoothPitchRate)
	positive("smoothing.filter_rate", &s.FilterRate, parameter.SmoothFilterRate)
	positive("smoothing.area_rate", &s.AreaRate, parameter.SmoothAreaRate)

	p := &c.Pathing
	positive("pathing.max_distance", &p.MaxDistance, parameter.PathMaxDistance)
	if p.MaxDepth <= 0 {
		fix("pathing.max_depth", p.MaxDepth, parameter.PathMaxDepth)
		p.MaxDepth = parameter.PathMaxDepth
	}
	unit("pathing.min_openness", &p.MinOpenness, parameter.PathMinOpenness)
	if p.DoorMode != "count" && p.DoorMode != "distance" {
		errs = append(errs, fmt.Errorf("pathing.door_mode %q corrected to \"count\": %w", p.DoorMode, ErrInvalidMode))
		p.DoorMode = "count"
	}
	if math.IsNaN(p.DoorDistanceMultiplier) || p.DoorDistanceMultiplier < 1 {
		fix("pathing.door_distance_multiplier", p.DoorDistanceMultiplier, parameter.PathDoorDistanceMultiplier)
		p.DoorDistanceMultiplier = parameter.PathDoorDistanceMultiplier
	}
	positive("pathing.approx_divergence", &p.ApproxDivergence, parameter.PathApproxDivergence)
	if p.MaxWallEntries < 1 {
		fix("pathing.max_wall_entries", p.MaxWallEntries, 1)
		p.MaxWallEntries = 1
	}
	if math.IsNaN(p.CacheDirtyDistance) || p.CacheDirtyDistance < 0 {
		fix("pathing.cache_dirty_distance", p.CacheDirtyDistance, 0)
		p.CacheDirtyDistance = 0
	}

	if math.IsNaN(c.Propagation.Radius) || c.Propagation.Radius < 0 {
		fix("propagation.radius", c.Propagation.Radius, parameter.PropagationRadius)
		c.Propagation.Radius = parameter.PropagationRadius
	}

	l := &c.Listener
	positiveDur("listener.eavesdrop_ramp", &l.EavesdropRamp, parameter.EavesdropRamp)
	positiveDur("listener.hydrophone_ramp", &l.HydrophoneRamp, parameter.HydrophoneRamp)
	unit("listener.eavesdrop_threshold", &l.EavesdropThreshold, parameter.EavesdropThreshold)
	unit("listener.hydrophone_threshold", &l.HydrophoneThreshold, parameter.HydrophoneThreshold)
	positive("listener.hydrophone_range_multiplier", &l.HydrophoneRangeMultiplier, parameter.HydrophoneRangeMultiplier)
	if l.AreaMode != AreaSum && l.AreaMode != AreaRaycast {
		errs = append(errs, fmt.Errorf("listener.area_mode %q corrected to %q: %w", l.AreaMode, AreaSum, ErrInvalidMode))
		l.AreaMode = AreaSum
	}
	positive("listener.speed_of_sound_air", &l.SpeedOfSoundAir, parameter.SpeedOfSoundAir)
	positive("listener.speed_of_sound_water", &l.SpeedOfSoundWater, parameter.SpeedOfSoundWater)
	if math.IsNaN(l.DopplerFactor) || l.DopplerFactor < 0 {
		fix("listener.doppler_factor", l.DopplerFactor, parameter.DopplerFactor)
		l.DopplerFactor = parameter.DopplerFactor
	}

	sc := &c.Sidechain
	unit("sidechain.intensity", &sc.Intensity, parameter.SidechainIntensity)
	if sc.Release < 0 {
		fix("sidechain.release", sc.Release, parameter.SidechainRelease)
		sc.Release = parameter.SidechainRelease
	}
	positive("sidechain.exponent", &sc.Exponent, parameter.SidechainExponent)

	cl := &c.Clones
	if cl.Max < 0 || cl.Max > parameter.CloneHardMax {
		want := min(max(cl.Max, 0), parameter.CloneHardMax)
		fix("clones.max", cl.Max, want)
		cl.Max = want
	}
	if math.IsNaN(cl.MinOffset) || cl.MinOffset < 0 {
		fix("clones.min_offset", cl.MinOffset, parameter.CloneMinOffset)
		cl.MinOffset = parameter.CloneMinOffset
	}

	iv := &c.Intervals
	for _, d := range []struct {
		name string
		v    *time.Duration
	}{
		{"intervals.voice", &iv.Voice},
		{"intervals.looping", &iv.Looping},
		{"intervals.status_effect", &iv.StatusEffect},
		{"intervals.one_shot", &iv.OneShot},
	} {
		if *d.v < 0 {
			fix(d.name, *d.v, 0)
			*d.v = 0
		}
	}

	f := &c.Filter
	positive("filter.open_cutoff", &f.OpenCutoff, parameter.FilterOpenCutoff)
	positive("filter.light_cutoff", &f.LightCutoff, parameter.FilterLightCutoff)
	positive("filter.medium_cutoff", &f.MediumCutoff, parameter.FilterMediumCutoff)
	positive("filter.heavy_cutoff", &f.HeavyCutoff, parameter.FilterHeavyCutoff)
	positive("filter.q", &f.Q, parameter.FilterQ)
	positive("filter.radio_center", &f.RadioCenter, parameter.FilterRadioCenter)
	positive("filter.radio_q", &f.RadioQ, parameter.FilterRadioQ)
	positive("filter.low_shelf_freq", &f.LowShelfFreq, parameter.FilterLowShelfFreq)

	pt := &c.Pitch
	if math.IsNaN(pt.Muffled) || pt.Muffled < parameter.PitchMin || pt.Muffled > parameter.PitchMax {
		fix("pitch.muffled", pt.Muffled, parameter.PitchMuffled)
		pt.Muffled = parameter.PitchMuffled
	}
	if math.IsNaN(pt.Underwater) || pt.Underwater < parameter.PitchMin || pt.Underwater > parameter.PitchMax {
		fix("pitch.underwater", pt.Underwater, parameter.PitchUnderwater)
		pt.Underwater = parameter.PitchUnderwater
	}

	r := &c.Reverb
	unit("reverb.wet", &r.Wet, parameter.ReverbWet)
	positive("reverb.min_rt60", &r.MinRT60, parameter.ReverbMinRT60)
	positive("reverb.max_rt60", &r.MaxRT60, parameter.ReverbMaxRT60)
	positive("reverb.max_area", &r.MaxArea, parameter.ReverbMaxArea)
	if r.MaxRT60 < r.MinRT60 {
		fix("reverb.max_rt60", r.MaxRT60, r.MinRT60)
		r.MaxRT60 = r.MinRT60
	}

	a := &c.Audio
	if a.SampleRate <= 0 {
		fix("audio.sample_rate", a.SampleRate, parameter.AudioSampleRate)
		a.SampleRate = parameter.AudioSampleRate
	}
	positiveDur("audio.buffer_duration", &a.BufferDuration, parameter.AudioBufferDuration)
	if a.ResampleQuality < 1 || a.ResampleQuality > 64 {
		fix("audio.resample_quality", a.ResampleQuality, parameter.AudioResampleQuality)
		a.ResampleQuality = parameter.AudioResampleQuality
	}
	unit("audio.master_volume", &a.MasterVolume, parameter.AudioMasterVolume)

	for k, v := range c.Multipliers {
		if math.IsNaN(v) || v < 0 {
			fix("multipliers."+k, v, 1)
			c.Multipliers[k] = 1
		}
	}

	return errors.Join(errs...)
}
