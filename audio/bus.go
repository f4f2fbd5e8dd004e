package audio

import (
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/effects/reverb"
	"github.com/gopxl/beep"
	"github.com/lixenwraith/muffle/config"
	"github.com/lixenwraith/muffle/parameter"
	"github.com/lixenwraith/muffle/vmath"
)

// bus mixes every voice and adds the shared reverb return
// Voices accumulate their reverb send into the current chunk while the mixer streams them
//
// Thread-Safety: Stream and every mutator run under the engine stream lock
type bus struct {
	mixer  *beep.Mixer
	reverb *reverb.FDNReverb // nil when reverb is unavailable
	wet    float64

	send  []float64
	size  int    // Valid length of send for the current chunk
	epoch uint64 // Incremented per chunk
}

// sendCursor aligns one voice's writes into the bus send buffer
type sendCursor struct {
	epoch uint64
	pos   int
}

func newBus(sampleRate float64, cfg *config.Reverb) (*bus, error) {
	b := &bus{
		mixer: &beep.Mixer{},
		send:  make([]float64, parameter.AudioBusChunk),
	}
	if !cfg.Enabled {
		return b, nil
	}

	rv, err := reverb.NewFDNReverb(sampleRate)
	if err != nil {
		return b, fmt.Errorf("reverb bus: %w", err)
	}
	// The bus carries only the wet return; dry signal goes through the mixer
	if err := rv.SetDry(0); err != nil {
		return b, fmt.Errorf("reverb bus: %w", err)
	}
	if err := rv.SetWet(1); err != nil {
		return b, fmt.Errorf("reverb bus: %w", err)
	}
	if err := rv.SetDamp(parameter.ReverbDamp); err != nil {
		return b, fmt.Errorf("reverb bus: %w", err)
	}
	if err := rv.SetRT60(cfg.MinRT60); err != nil {
		return b, fmt.Errorf("reverb bus: %w", err)
	}
	b.reverb = rv
	b.wet = cfg.Wet
	return b, nil
}

func (b *bus) Stream(samples [][2]float64) (n int, ok bool) {
	for len(samples) > 0 {
		k := min(len(samples), len(b.send))
		chunk := samples[:k]

		b.epoch++
		b.size = k
		clear(b.send[:k])

		b.mixer.Stream(chunk)

		if b.reverb != nil {
			for i := range chunk {
				w := b.reverb.ProcessSample(b.send[i]) * b.wet
				chunk[i][0] += w
				chunk[i][1] += w
			}
		}

		samples = samples[k:]
		n += k
	}
	return n, true
}

func (b *bus) Err() error { return nil }

// accumulate adds the mono sum of samples to the send buffer at the voice's cursor
func (b *bus) accumulate(c *sendCursor, samples [][2]float64) {
	if b.reverb == nil {
		return
	}
	if c.epoch != b.epoch {
		c.epoch = b.epoch
		c.pos = 0
	}
	for i := range samples {
		idx := c.pos + i
		if idx >= b.size {
			break
		}
		b.send[idx] += (samples[i][0] + samples[i][1]) * 0.5
	}
	c.pos += len(samples)
}

// setArea maps a reverb area onto RT60 between the configured bounds
func (b *bus) setArea(area float64, cfg *config.Reverb) error {
	if b.reverb == nil {
		return nil
	}
	if !vmath.Finite(area) || area < 0 {
		return ErrInvalidParameter
	}
	t := 0.0
	if cfg.MaxArea > 0 {
		t = vmath.Clamp01(area / cfg.MaxArea)
	}
	return b.reverb.SetRT60(vmath.Lerp(cfg.MinRT60, cfg.MaxRT60, t))
}

// rt60 returns the current decay time, 0 without reverb
func (b *bus) rt60() float64 {
	if b.reverb == nil {
		return 0
	}
	return b.reverb.RT60()
}
