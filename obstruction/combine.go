package obstruction

import (
	"github.com/lixenwraith/muffle/config"
	"github.com/lixenwraith/muffle/parameter"
	"github.com/lixenwraith/muffle/vmath"
)

// Combined is the reduction of an obstruction list
type Combined struct {
	Strength float64 // 1 - HFGain
	Total    float64 // Plain sum of scaled strengths, drives the low-frequency curve
	HFGain   float64 // ∏(1 - s·mult)
	LFGain   float64
}

// Combine reduces list multiplicatively so HFGain stays in [0, 1] for any length
// mult scales every strength; autoAttenuation false pins LFGain to 1
func Combine(list List, o *config.Obstruction, mult float64, autoAttenuation bool) Combined {
	if !vmath.Finite(mult) || mult < 0 {
		mult = 1
	}

	total := 0.0
	hf := 1.0
	for _, k := range list {
		s := vmath.Clamp01(k.Strength(o) * mult)
		total += s
		hf *= 1 - s
	}

	lf := 1.0
	if autoAttenuation {
		lf = vmath.Clamp(1-total/parameter.LowFreqNormalization, parameter.LowFreqMinGain, 1)
	}

	return Combined{
		Strength: vmath.Clamp01(1 - hf),
		Total:    total,
		HFGain:   hf,
		LFGain:   lf,
	}
}

// TierFor maps a combined strength onto the threshold ladder
func TierFor(strength float64, th *config.Thresholds) Tier {
	switch {
	case strength >= th.Heavy:
		return TierHeavy
	case strength >= th.Medium:
		return TierMedium
	case strength >= th.Light:
		return TierLight
	default:
		return TierNone
	}
}
