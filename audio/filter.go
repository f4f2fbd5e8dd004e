package audio

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/lixenwraith/muffle/core"
	"github.com/lixenwraith/muffle/parameter"
	"github.com/lixenwraith/muffle/vmath"
)

// filterSections is fixed so coefficient updates keep the delay-line state
const filterSections = 3

// DesignFilter returns the biquad cascade for f at sampleRate
// Section order: tone shaping (low-pass, band-pass or identity), HF shelf at the cutoff, LF shelf
func DesignFilter(f core.Filter, lowShelfFreq, sampleRate float64) ([]biquad.Coefficients, error) {
	if !vmath.Finite(sampleRate) || sampleRate <= 0 {
		return nil, ErrInvalidParameter
	}
	if !vmath.Finite(f.HFGain) || !vmath.Finite(f.LFGain) || f.HFGain < 0 || f.LFGain < 0 {
		return nil, ErrInvalidParameter
	}

	q := f.Q
	if !vmath.Finite(q) || q <= 0 {
		q = parameter.FilterQ
	}
	hi := sampleRate * parameter.FilterMaxCutoffRatio
	shelf := vmath.Clamp(lowShelfFreq, parameter.FilterMinCutoff, hi)

	cutoff := f.Cutoff
	if f.Kind != core.FilterNone {
		if !vmath.Finite(cutoff) || cutoff <= 0 {
			return nil, ErrInvalidParameter
		}
	} else if !vmath.Finite(cutoff) || cutoff <= 0 {
		cutoff = hi
	}
	cutoff = vmath.Clamp(cutoff, parameter.FilterMinCutoff, hi)

	coeffs := make([]biquad.Coefficients, 0, filterSections)
	switch f.Kind {
	case core.FilterLowPass:
		coeffs = append(coeffs, design.Lowpass(cutoff, q, sampleRate))
	case core.FilterBandPass:
		coeffs = append(coeffs, design.Bandpass(cutoff, q, sampleRate))
	default:
		coeffs = append(coeffs, biquad.Coefficients{B0: 1})
	}
	coeffs = append(coeffs,
		design.HighShelf(cutoff, gainDB(f.HFGain), parameter.FilterQ, sampleRate),
		design.LowShelf(shelf, gainDB(f.LFGain), parameter.FilterQ, sampleRate),
	)

	for _, c := range coeffs {
		if !finiteCoefficients(c) {
			return nil, ErrInvalidParameter
		}
	}
	return coeffs, nil
}

// gainDB converts a linear shelf gain, floored to keep the design finite
func gainDB(g float64) float64 {
	return 20 * math.Log10(vmath.Clamp(g, parameter.FilterMinShelfGain, 1))
}

func finiteCoefficients(c biquad.Coefficients) bool {
	return vmath.Finite(c.B0) && vmath.Finite(c.B1) && vmath.Finite(c.B2) &&
		vmath.Finite(c.A1) && vmath.Finite(c.A2)
}
