// Package audio is the beep output backend: voices with pitch, biquad filtering,
// pan and a shared FDN reverb bus
// When no output device is available the engine runs silent and advances voices by tick
package audio

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"
	"github.com/lixenwraith/muffle/config"
	"github.com/lixenwraith/muffle/core"
	"github.com/lixenwraith/muffle/sound"
	"github.com/lixenwraith/muffle/vmath"
)

// Sentinel errors
var (
	ErrInvalidParameter = errors.New("invalid audio parameter")
	ErrBackendDisabled  = errors.New("audio backend disabled")
	ErrVoiceDisposed    = errors.New("voice disposed")
	ErrVoiceFinished    = errors.New("voice finished")
	ErrNoSource         = errors.New("sound has neither asset nor tone")
)

// listenerState is the backend copy of the listener parameters
type listenerState struct {
	pos     core.Vec2
	vel     core.Vec2
	speed   float64
	doppler float64
}

// Engine owns the voice set, the mixing bus and the speaker
type Engine struct {
	cfg    *config.Config
	rate   beep.SampleRate
	format beep.Format
	assets fs.FS
	cache  *sampleCache
	bus    *bus
	logger *slog.Logger

	mu       sync.RWMutex // Guards listener, defs and voices
	listener listenerState
	defs     map[string]*sound.Definition
	voices   map[*Voice]struct{}

	// streamMu serializes the bus when no speaker goroutine owns it
	streamMu sync.Mutex
	scratch  [][2]float64

	output   bool        // speaker initialized and playing the bus
	disabled atomic.Bool // Silent mode
	closed   atomic.Bool
}

// NewEngine creates the backend; output failures degrade to silent mode instead of erroring
// assets resolves definition paths and may be nil when every sound is a tone
func NewEngine(cfg *config.Config, assets fs.FS, logger *slog.Logger) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	rate := beep.SampleRate(cfg.Audio.SampleRate)
	e := &Engine{
		cfg:    cfg,
		rate:   rate,
		format: beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2},
		assets: assets,
		logger: logger.With("component", "audio"),
		defs:   make(map[string]*sound.Definition),
		voices: make(map[*Voice]struct{}),
		listener: listenerState{
			speed:   cfg.Listener.SpeedOfSoundAir,
			doppler: cfg.Listener.DopplerFactor,
		},
	}
	e.cache = newSampleCache(e.load)

	b, err := newBus(float64(rate), &cfg.Reverb)
	if err != nil {
		e.logger.Warn("reverb bus unavailable", "err", err)
	}
	e.bus = b

	if !cfg.Audio.Enabled {
		e.disabled.Store(true)
		return e
	}

	// Initialize speaker with sample rate and buffer size
	if err := speaker.Init(rate, rate.N(cfg.Audio.BufferDuration)); err != nil {
		e.logger.Warn("speaker unavailable, running silent", "err", err)
		e.disabled.Store(true)
		return e
	}
	speaker.Play(newVolume(e.bus, cfg.Audio.MasterVolume))
	e.output = true
	return e
}

// Silent reports whether nothing reaches an output device
func (e *Engine) Silent() bool {
	return e.disabled.Load()
}

// SampleRate returns the bus sample rate
func (e *Engine) SampleRate() beep.SampleRate {
	return e.rate
}

// Play starts def at pos
func (e *Engine) Play(def *sound.Definition, pos core.Vec2) (*Voice, error) {
	if def == nil {
		return nil, fmt.Errorf("play: %w", ErrInvalidParameter)
	}
	if !pos.IsFinite() {
		return nil, fmt.Errorf("play %s: %w", def.Name, ErrInvalidParameter)
	}
	if e.closed.Load() {
		return nil, ErrBackendDisabled
	}

	e.Register(def)
	buf, err := e.cache.get(def.Name)
	if err != nil {
		return nil, fmt.Errorf("play %s: %w", def.Name, err)
	}
	v, err := e.start(def, buf, 0)
	if err != nil {
		return nil, fmt.Errorf("play %s: %w", def.Name, err)
	}
	if err := v.SetPosition(pos); err != nil {
		v.Dispose()
		return nil, fmt.Errorf("play %s: %w", def.Name, err)
	}
	return v, nil
}

// Start is Play returning the backend-neutral voice
func (e *Engine) Start(def *sound.Definition, pos core.Vec2) (core.Voice, error) {
	v, err := e.Play(def, pos)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Preload decodes or renders defs ahead of their first play
func (e *Engine) Preload(defs ...*sound.Definition) error {
	var errs []error
	for _, d := range defs {
		e.Register(d)
		if _, err := e.cache.get(d.Name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Register makes def loadable by name; Play registers implicitly
func (e *Engine) Register(def *sound.Definition) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.defs[def.Name] = def
}

// start builds a voice and hands it to the mixer
func (e *Engine) start(def *sound.Definition, buf *beep.Buffer, offset int) (*Voice, error) {
	if e.closed.Load() {
		return nil, ErrBackendDisabled
	}
	v, err := newVoice(e, def, buf, offset)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.voices[v] = struct{}{}
	e.mu.Unlock()

	e.lockStream()
	e.bus.mixer.Add(v)
	e.unlockStream()
	return v, nil
}

// forget drops a disposed voice from the live set
func (e *Engine) forget(v *Voice) {
	e.mu.Lock()
	delete(e.voices, v)
	e.mu.Unlock()
}

// Live returns the number of undisposed voices
func (e *Engine) Live() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.voices)
}

// SetListener implements listener.Backend
func (e *Engine) SetListener(pos, vel core.Vec2) error {
	if !pos.IsFinite() || !vel.IsFinite() {
		return ErrInvalidParameter
	}
	e.updateListener(func(l *listenerState) {
		l.pos = pos
		l.vel = vel
	})
	return nil
}

// SetSpeedOfSound implements listener.Backend
func (e *Engine) SetSpeedOfSound(v float64) error {
	if !vmath.Finite(v) || v <= 0 {
		return ErrInvalidParameter
	}
	e.updateListener(func(l *listenerState) { l.speed = v })
	return nil
}

// SetDopplerFactor implements listener.Backend
func (e *Engine) SetDopplerFactor(f float64) error {
	if !vmath.Finite(f) || f < 0 {
		return ErrInvalidParameter
	}
	e.updateListener(func(l *listenerState) { l.doppler = f })
	return nil
}

// SetReverbArea maps the listener's reverb area onto the bus decay time
func (e *Engine) SetReverbArea(area float64) error {
	e.lockStream()
	defer e.unlockStream()
	return e.bus.setArea(area, &e.cfg.Reverb)
}

// ReverbRT60 returns the bus decay time in seconds, 0 without reverb
func (e *Engine) ReverbRT60() float64 {
	e.lockStream()
	defer e.unlockStream()
	return e.bus.rt60()
}

// Advance renders dt of audio into a discarded buffer when silent
// Playback positions move as if a device were pulling the bus
func (e *Engine) Advance(dt time.Duration) {
	if e.output || e.closed.Load() || dt <= 0 {
		return
	}
	n := e.rate.N(dt)

	e.streamMu.Lock()
	defer e.streamMu.Unlock()
	for n > 0 {
		k := min(n, len(e.bus.send))
		if cap(e.scratch) < k {
			e.scratch = make([][2]float64, len(e.bus.send))
		}
		e.bus.Stream(e.scratch[:k])
		n -= k
	}
}

// Close disposes every voice and releases the speaker
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	e.mu.RLock()
	voices := make([]*Voice, 0, len(e.voices))
	for v := range e.voices {
		voices = append(voices, v)
	}
	e.mu.RUnlock()

	var errs []error
	for _, v := range voices {
		if err := v.Dispose(); err != nil && !errors.Is(err, ErrVoiceDisposed) {
			errs = append(errs, err)
		}
	}

	if e.output {
		speaker.Clear()
		speaker.Close()
		e.output = false
	}
	e.disabled.Store(true)
	return errors.Join(errs...)
}

func (e *Engine) listenerState() listenerState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.listener
}

// updateListener applies fn and retunes every live voice outside the engine lock
func (e *Engine) updateListener(fn func(*listenerState)) {
	e.mu.Lock()
	fn(&e.listener)
	voices := make([]*Voice, 0, len(e.voices))
	for v := range e.voices {
		voices = append(voices, v)
	}
	e.mu.Unlock()

	for _, v := range voices {
		v.mu.Lock()
		if !v.disposed {
			v.retune()
		}
		v.mu.Unlock()
	}
}

func (e *Engine) lockStream() {
	if e.output {
		speaker.Lock()
		return
	}
	e.streamMu.Lock()
}

func (e *Engine) unlockStream() {
	if e.output {
		speaker.Unlock()
		return
	}
	e.streamMu.Unlock()
}

// load renders a tone or decodes a WAV asset into a bus-rate buffer
func (e *Engine) load(name string) (*beep.Buffer, error) {
	e.mu.RLock()
	def := e.defs[name]
	e.mu.RUnlock()
	if def == nil {
		return nil, fmt.Errorf("%q: %w", name, ErrNoSource)
	}

	buf := beep.NewBuffer(e.format)
	switch {
	case def.Path != "":
		if e.assets == nil {
			return nil, fmt.Errorf("%s: %w", def.Path, fs.ErrNotExist)
		}
		f, err := e.assets.Open(def.Path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		s, format, err := wav.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", def.Path, err)
		}
		defer s.Close()

		var src beep.Streamer = s
		if format.SampleRate != e.rate {
			src = beep.Resample(e.cfg.Audio.ResampleQuality, format.SampleRate, e.rate, s)
		}
		buf.Append(src)
	case def.Tone != nil:
		buf.Append(toneStreamer(def.Tone, def.Loop, e.rate))
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrNoSource)
	}

	if buf.Len() == 0 {
		return nil, fmt.Errorf("%s: empty: %w", name, ErrNoSource)
	}
	e.logger.Debug("sound loaded", "name", name, "samples", buf.Len())
	return buf, nil
}
