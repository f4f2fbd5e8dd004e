package audio

import (
	"math"
	"sync"
	"time"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/gopxl/beep"
	"github.com/lixenwraith/muffle/core"
	"github.com/lixenwraith/muffle/parameter"
	"github.com/lixenwraith/muffle/sound"
	"github.com/lixenwraith/muffle/vmath"
)

// Voice is one playing sound: buffer → resampler → biquad cascade → gain and pan
// Parameter writes and streaming share the voice lock
type Voice struct {
	mu     sync.Mutex
	engine *Engine
	def    *sound.Definition

	buf       *beep.Buffer
	src       beep.StreamSeeker
	resampler *beep.Resampler
	left      *biquad.Chain
	right     *biquad.Chain

	gain   float64
	pitch  float64
	pos    core.Vec2
	filter core.Filter
	reverb bool

	// Derived from listener state
	ratio      float64
	panL, panR float64

	send     sendCursor
	done     bool
	disposed bool
}

// Compile-time interface check
var _ core.Voice = (*Voice)(nil)

// newVoice builds the streamer chain positioned at offset samples into buf
func newVoice(e *Engine, def *sound.Definition, buf *beep.Buffer, offset int) (*Voice, error) {
	coeffs, err := DesignFilter(core.Filter{Kind: core.FilterNone, HFGain: 1, LFGain: 1}, e.cfg.Filter.LowShelfFreq, float64(e.rate))
	if err != nil {
		return nil, err
	}

	src := buf.Streamer(0, buf.Len())
	if offset > 0 && offset < buf.Len() {
		if err := src.Seek(offset); err != nil {
			return nil, err
		}
	}

	var s beep.Streamer = src
	if def.Loop {
		s = beep.Loop(-1, src)
	}

	v := &Voice{
		engine: e,
		def:    def,
		buf:    buf,
		src:    src,
		left:   biquad.NewChain(coeffs),
		right:  biquad.NewChain(coeffs),
		gain:   1,
		pitch:  1,
		ratio:  1,
		filter: core.Filter{Kind: core.FilterNone, Q: parameter.FilterQ, HFGain: 1, LFGain: 1},
		panL:   math.Sqrt2 / 2,
		panR:   math.Sqrt2 / 2,
	}
	v.resampler = beep.ResampleRatio(e.cfg.Audio.ResampleQuality, 1, s)
	return v, nil
}

// Stream renders the voice into samples and feeds the reverb send
func (v *Voice) Stream(samples [][2]float64) (n int, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.disposed || v.done {
		return 0, false
	}

	n, ok = v.resampler.Stream(samples)
	for i := range samples[:n] {
		l := v.left.ProcessSample(samples[i][0]) * v.gain * v.panL
		r := v.right.ProcessSample(samples[i][1]) * v.gain * v.panR
		samples[i][0] = l
		samples[i][1] = r
	}
	if v.reverb && n > 0 {
		v.engine.bus.accumulate(&v.send, samples[:n])
	}
	if !ok {
		v.done = true
	}
	return n, ok
}

func (v *Voice) Err() error { return nil }

// SetGain binds a linear gain, negative and non-finite values are rejected
func (v *Voice) SetGain(gain float64) error {
	if !vmath.Finite(gain) || gain < 0 {
		return ErrInvalidParameter
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return ErrVoiceDisposed
	}
	v.gain = gain
	return nil
}

// SetPitch binds a pitch multiplier clamped to the supported range
func (v *Voice) SetPitch(pitch float64) error {
	if !vmath.Finite(pitch) || pitch <= 0 {
		return ErrInvalidParameter
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return ErrVoiceDisposed
	}
	v.pitch = vmath.Clamp(pitch, parameter.PitchMin, parameter.PitchMax)
	v.retune()
	return nil
}

// SetPosition moves the voice; pan and Doppler follow
func (v *Voice) SetPosition(pos core.Vec2) error {
	if !pos.IsFinite() {
		return ErrInvalidParameter
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return ErrVoiceDisposed
	}
	v.pos = pos
	v.retune()
	return nil
}

// SetFilter redesigns the cascade; delay-line state is kept
func (v *Voice) SetFilter(f core.Filter) error {
	coeffs, err := DesignFilter(f, v.engine.cfg.Filter.LowShelfFreq, float64(v.engine.rate))
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return ErrVoiceDisposed
	}
	v.left.UpdateCoefficients(coeffs, 1)
	v.right.UpdateCoefficients(coeffs, 1)
	v.filter = f
	return nil
}

// SetReverb routes the voice into the reverb bus
func (v *Voice) SetReverb(send bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return ErrVoiceDisposed
	}
	v.reverb = send
	return nil
}

// Clone starts a new voice on the same buffer at the current playback offset
func (v *Voice) Clone() (core.Voice, error) {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return nil, ErrVoiceDisposed
	}
	if v.done {
		v.mu.Unlock()
		return nil, ErrVoiceFinished
	}
	offset := v.src.Position()
	state := struct {
		gain, pitch float64
		pos         core.Vec2
		filter      core.Filter
		reverb      bool
	}{v.gain, v.pitch, v.pos, v.filter, v.reverb}
	v.mu.Unlock()

	c, err := v.engine.start(v.def, v.buf, offset)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.gain = state.gain
	c.pitch = state.pitch
	c.pos = state.pos
	c.reverb = state.reverb
	c.retune()
	c.mu.Unlock()
	if err := c.SetFilter(state.filter); err != nil {
		c.Dispose()
		return nil, err
	}
	return c, nil
}

// Offset returns the playback position within the buffer
func (v *Voice) Offset() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.engine.rate.D(v.src.Position())
}

// Playing reports whether the voice still produces sound
func (v *Voice) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.disposed && !v.done
}

// Dispose stops the voice; the mixer drops it on its next pass
func (v *Voice) Dispose() error {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return ErrVoiceDisposed
	}
	v.disposed = true
	v.mu.Unlock()

	v.engine.forget(v)
	return nil
}

// Definition returns the sound the voice plays
func (v *Voice) Definition() *sound.Definition { return v.def }

// Gain returns the bound gain
func (v *Voice) Gain() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gain
}

// Filter returns the bound filter parameters
func (v *Voice) Filter() core.Filter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

// Reverb reports whether the voice feeds the reverb bus
func (v *Voice) Reverb() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reverb
}

// Ratio returns the effective resampling ratio, pitch times Doppler shift
func (v *Voice) Ratio() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ratio
}

// Pan returns the left and right channel gains
func (v *Voice) Pan() (left, right float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.panL, v.panR
}

// retune recomputes pan and resampling ratio from the listener
// Caller holds v.mu
func (v *Voice) retune() {
	l := v.engine.listenerState()

	rel := v.pos.Sub(l.pos)
	pan := vmath.Clamp(rel.X/parameter.AudioPanWidth, -1, 1)
	theta := (pan + 1) * math.Pi / 4
	v.panL = math.Cos(theta)
	v.panR = math.Sin(theta)

	shift := 1.0
	if l.speed > vmath.Epsilon && rel.Len() > vmath.Epsilon {
		toward := l.vel.Dot(rel.Normalize())
		shift = vmath.Clamp((l.speed+l.doppler*toward)/l.speed, parameter.DopplerShiftMin, parameter.DopplerShiftMax)
	}

	v.ratio = v.pitch * shift
	v.resampler.SetRatio(v.ratio)
}
