package obstruction

import (
	"github.com/lixenwraith/muffle/config"
	"github.com/lixenwraith/muffle/core"
	"github.com/lixenwraith/muffle/parameter"
	"github.com/lixenwraith/muffle/sound"
	"github.com/lixenwraith/muffle/vmath"
)

// Falloff returns linear distance attenuation between near and far
// Degenerate ranges and non-finite distances return full gain
func Falloff(dist, near, far float64) float64 {
	if !vmath.Finite(dist) || far-near < vmath.Epsilon {
		return 1
	}
	if dist <= near {
		return 1
	}
	if dist >= far {
		return 0
	}
	return 1 - (dist-near)/(far-near)
}

// PitchFor returns the pitch target for a muffle strength
func PitchFor(strength float64, submerged bool, tags sound.Tag, p *config.Pitch) float64 {
	if !p.Enabled || tags.Has(sound.IgnorePitch) {
		return 1
	}
	pitch := 1 + (p.Muffled-1)*vmath.Clamp01(strength)
	if submerged {
		pitch *= p.Underwater
	}
	return vmath.Clamp(vmath.OrDefault(pitch, 1), parameter.PitchMin, parameter.PitchMax)
}

// FilterFor selects the filter for a classified channel
// Voice channels and discrete mode use the tier cutoff; continuous mode interpolates on a log scale
func FilterFor(c Combined, tier Tier, cat sound.Category, tags sound.Tag, cfg *config.Config) core.Filter {
	f := &cfg.Filter
	if tags.Has(sound.IgnoreLowpass) {
		return core.Filter{Kind: core.FilterNone, Q: f.Q, HFGain: 1, LFGain: 1}
	}

	out := core.Filter{Q: f.Q, HFGain: c.HFGain, LFGain: c.LFGain}
	switch {
	case cat == sound.VoiceRadio:
		out.Kind = core.FilterBandPass
		out.Cutoff = f.RadioCenter
		out.Q = f.RadioQ
		return out
	case c.Strength <= 0:
		out.Kind = core.FilterNone
		out.Cutoff = f.OpenCutoff
		return out
	}

	out.Kind = core.FilterLowPass
	cutoffs := f.TierCutoffs()
	if cfg.Mode == config.ModeContinuous && !cat.IsVoice() {
		out.Cutoff = vmath.LogLerp(f.OpenCutoff, f.HeavyCutoff, vmath.Clamp01(c.Strength))
	} else {
		out.Cutoff = cutoffs[tier]
	}
	if !vmath.Finite(out.Cutoff) || out.Cutoff <= 0 {
		out.Cutoff = f.OpenCutoff
	}
	return out
}

// apparent places a source at the arrival direction of its last crossing point
// offset keeps the result at least minOffset away from the listener
func apparent(listener, last core.Vec2, minOffset float64) core.Vec2 {
	d := last.Sub(listener)
	dist := d.Len()
	if dist < vmath.Epsilon {
		return listener
	}
	return listener.Add(d.Scale(max(dist, minOffset) / dist))
}
