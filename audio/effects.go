package audio

import (
	"math"
	"math/rand"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/lixenwraith/muffle/parameter"
	"github.com/lixenwraith/muffle/sound"
)

// shapes maps a phase in [0, 1) to a sample in [-1, 1]
var shapes = map[sound.Wave]func(phase float64) float64{
	sound.WaveSine: func(p float64) float64 { return math.Sin(2 * math.Pi * p) },
	sound.WaveSquare: func(p float64) float64 {
		if p < 0.5 {
			return 1
		}
		return -1
	},
	sound.WaveSaw:   func(p float64) float64 { return 2*p - 1 },
	sound.WaveNoise: func(float64) float64 { return rand.Float64()*2 - 1 },
}

// oscillator renders one periodic wave for a fixed number of samples
type oscillator struct {
	shape  func(float64) float64
	step   float64 // phase increment per sample
	phase  float64
	remain int
}

// NewOscillator creates a mono generator duplicated on both channels
// Unknown waves fall back to sine
func NewOscillator(freq float64, duration time.Duration, wave sound.Wave, rate beep.SampleRate) beep.Streamer {
	shape, ok := shapes[wave]
	if !ok {
		shape = shapes[sound.WaveSine]
	}
	return &oscillator{
		shape:  shape,
		step:   freq / float64(rate),
		remain: rate.N(duration),
	}
}

func (o *oscillator) Stream(samples [][2]float64) (int, bool) {
	if o.remain <= 0 {
		return 0, false
	}
	n := min(len(samples), o.remain)
	for i := range n {
		v := o.shape(o.phase)
		samples[i] = [2]float64{v, v}
		_, o.phase = math.Modf(o.phase + o.step)
	}
	o.remain -= n
	return n, true
}

func (o *oscillator) Err() error { return nil }

// envelope applies a linear attack and release and cuts the stream at total samples
type envelope struct {
	src          beep.Streamer
	pos          int
	attack       int
	release      int
	releaseStart int
	total        int
}

// NewEnvelope creates an attack/sustain/release envelope
// When attack and release overlap, release wins from the end of attack
func NewEnvelope(s beep.Streamer, duration, attack, release time.Duration, rate beep.SampleRate) beep.Streamer {
	total, att, rel := rate.N(duration), rate.N(attack), rate.N(release)
	return &envelope{
		src:          s,
		attack:       att,
		release:      rel,
		releaseStart: att + max(total-att-rel, 0),
		total:        total,
	}
}

func (e *envelope) gain() float64 {
	switch {
	case e.release > 0 && e.pos >= e.releaseStart:
		return max(float64(e.total-e.pos)/float64(e.release), 0)
	case e.attack > 0 && e.pos < e.attack:
		return float64(e.pos) / float64(e.attack)
	}
	return 1
}

func (e *envelope) Stream(samples [][2]float64) (int, bool) {
	left := e.total - e.pos
	if left <= 0 {
		return 0, false
	}
	if len(samples) > left {
		samples = samples[:left]
	}

	n, ok := e.src.Stream(samples)
	for i := range n {
		g := e.gain()
		samples[i][0] *= g
		samples[i][1] *= g
		e.pos++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.src.Err() }

// newVolume wraps s in a linear volume
// math.Log2(0) is -Inf, so zero volume is made silent
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

// loopLength rounds d to a whole number of periods, at least one,
// so a looped render joins without a phase jump
func loopLength(d time.Duration, freq float64) time.Duration {
	if freq <= 0 {
		return d
	}
	cycles := max(math.Round(d.Seconds()*freq), 1)
	return time.Duration(cycles / freq * float64(time.Second))
}

// toneStreamer builds the generator for a tone definition
// Looping tones are period-aligned and skip the envelope so the seam stays at full level
func toneStreamer(t *sound.Tone, loop bool, rate beep.SampleRate) beep.Streamer {
	d := t.Duration
	if d <= 0 {
		d = parameter.ToneDefaultDuration
	}
	if loop {
		if t.Wave != sound.WaveNoise {
			d = loopLength(d, t.Frequency)
		}
		return NewOscillator(t.Frequency, d, t.Wave, rate)
	}
	return NewEnvelope(NewOscillator(t.Frequency, d, t.Wave, rate), d, t.Attack, t.Release, rate)
}
