// Package engine drives the occlusion pipeline once per simulation tick
// It owns every channel, throttles reclassification per update group and disposes stopped sounds
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/lixenwraith/muffle/clone"
	"github.com/lixenwraith/muffle/config"
	"github.com/lixenwraith/muffle/core"
	"github.com/lixenwraith/muffle/listener"
	"github.com/lixenwraith/muffle/obstruction"
	"github.com/lixenwraith/muffle/parameter"
	"github.com/lixenwraith/muffle/raycast"
	"github.com/lixenwraith/muffle/sidechain"
	"github.com/lixenwraith/muffle/sound"
	"github.com/lixenwraith/muffle/status"
	"github.com/lixenwraith/muffle/topology"
	"github.com/lixenwraith/muffle/vmath"
)

// ChannelID identifies a playing sound for its whole lifetime
type ChannelID uint64

// Backend starts voices and receives listener parameters
type Backend interface {
	listener.Backend
	Start(def *sound.Definition, pos core.Vec2) (core.Voice, error)
}

// Optional backend capabilities, detected once at construction
type (
	reverbSink interface{ SetReverbArea(area float64) error }
	advancer   interface{ Advance(dt time.Duration) }
	silencer   interface{ Silent() bool }
)

// Sentinel errors
var (
	ErrUnknownChannel = errors.New("unknown channel")
	ErrClosed         = errors.New("engine closed")
	ErrNoDefinition   = errors.New("nil sound definition")
)

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the parent logger; components receive children of it
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock replaces the throttling time source
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithRays enables ray-cast requests through b; a physics thread drains it
func WithRays(b *raycast.Buffer) Option {
	return func(e *Engine) { e.rays = b }
}

// WithStatus shares a metrics registry, e.g. with the inspector
func WithStatus(r *status.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.status = r
		}
	}
}

// entry is the engine bookkeeping around one channel
type entry struct {
	ch       *obstruction.Channel
	stopping bool
}

// Engine is the tick orchestrator
//
// Thread-Safety: every method takes the engine lock, so a host may call Play/Move/Stop
// from its own goroutine while Report is read by the inspector. Tick runs the whole sweep
// under the lock; channels are never touched concurrently
type Engine struct {
	mu sync.RWMutex

	graph   *topology.Graph
	catalog *sound.Catalog
	backend Backend
	cfg     *config.Config
	logger  *slog.Logger
	clock   Clock
	status  *status.Registry
	rays    *raycast.Buffer

	reverb   reverbSink
	advance  advancer
	silent   silencer
	lastArea float64
	hasArea  bool

	listener  *listener.State
	sidechain *sidechain.State
	clones    *clone.Manager

	entries map[ChannelID]*entry
	order   []ChannelID // Creation order
	nextID  ChannelID

	lastCheck [sound.GroupCount]time.Time
	checked   [sound.GroupCount]bool

	tick   uint64
	report Report
	closed bool
}

// New creates an engine over graph; catalog may be nil when Play is always given definitions
func New(graph *topology.Graph, catalog *sound.Catalog, backend Backend, cfg *config.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if graph == nil {
		graph = topology.NewGraph()
	}
	e := &Engine{
		graph:   graph,
		catalog: catalog,
		backend: backend,
		cfg:     cfg,
		logger:  slog.Default(),
		clock:   SystemClock{},
		status:  status.NewRegistry(),
		entries: make(map[ChannelID]*entry),
		nextID:  1,
	}
	for _, o := range opts {
		o(e)
	}

	var lb listener.Backend
	if backend != nil {
		lb = backend
		e.reverb, _ = backend.(reverbSink)
		e.advance, _ = backend.(advancer)
		e.silent, _ = backend.(silencer)
	}
	e.listener = listener.New(graph, cfg, lb, e.logger.With("component", "listener"))
	e.sidechain = sidechain.New(cfg.Sidechain.Exponent)
	e.clones = clone.NewManager(e.logger.With("component", "clone"))
	return e
}

// Graph returns the acoustic graph; mutate it only between ticks
func (e *Engine) Graph() *topology.Graph { return e.graph }

// Status returns the metrics registry
func (e *Engine) Status() *status.Registry { return e.status }

// Config returns the active configuration
func (e *Engine) Config() *config.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// SetConfig swaps the configuration; takes effect on the next tick
func (e *Engine) SetConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.listener.SetConfig(cfg)
	e.sidechain.SetExponent(cfg.Sidechain.Exponent)
}

// Play starts def at pos inside space and returns its channel
func (e *Engine) Play(def *sound.Definition, pos core.Vec2, space topology.SpaceID) (ChannelID, error) {
	if def == nil {
		return 0, ErrNoDefinition
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, ErrClosed
	}
	if e.backend == nil {
		return 0, fmt.Errorf("play %s: no backend", def.Name)
	}

	v, err := e.backend.Start(def, pos)
	if err != nil {
		return 0, fmt.Errorf("play %s: %w", def.Name, err)
	}

	id := e.nextID
	e.nextID++
	ch := obstruction.NewChannel(uint64(id), def, v, pos, space, e.cfg, e.logger.With("component", "obstruction"))
	e.entries[id] = &entry{ch: ch}
	e.order = append(e.order, id)
	e.logger.Debug("channel started", "channel", id, "sound", def.Name, "space", space)
	return id, nil
}

// PlayNamed starts a catalog sound, resolving the Space from pos
func (e *Engine) PlayNamed(name string, pos core.Vec2) (ChannelID, error) {
	if e.catalog == nil {
		return 0, fmt.Errorf("%q: %w", name, ErrNoDefinition)
	}
	def, ok := e.catalog.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, ErrNoDefinition)
	}
	return e.Play(def, pos, e.graph.SpaceAt(pos))
}

// Move relocates an emitter
func (e *Engine) Move(id ChannelID, pos core.Vec2, space topology.SpaceID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	en, ok := e.entries[id]
	if !ok {
		return fmt.Errorf("move %d: %w", id, ErrUnknownChannel)
	}
	en.ch.Move(pos, space)
	return nil
}

// Stop marks a channel for disposal at the end of the next tick
func (e *Engine) Stop(id ChannelID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	en, ok := e.entries[id]
	if !ok {
		return fmt.Errorf("stop %d: %w", id, ErrUnknownChannel)
	}
	en.stopping = true
	return nil
}

// SetContainer marks the emitter as enclosed; ignored names a portal treated as open for its paths
func (e *Engine) SetContainer(id ChannelID, contained bool, ignored topology.PortalID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	en, ok := e.entries[id]
	if !ok {
		return fmt.Errorf("container %d: %w", id, ErrUnknownChannel)
	}
	en.ch.Contained = contained
	en.ch.IgnoredPortal = ignored
	return nil
}

// Channels returns live channel ids in creation order
func (e *Engine) Channels() []ChannelID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]ChannelID, 0, len(e.order))
	for _, id := range e.order {
		if en := e.entries[id]; en != nil && !en.stopping {
			out = append(out, id)
		}
	}
	return out
}

// Channel returns the occlusion state of id
// The pointer must only be read between ticks
func (e *Engine) Channel(id ChannelID) (*obstruction.Channel, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	en, ok := e.entries[id]
	if !ok {
		return nil, false
	}
	return en.ch, true
}

// Listener returns the latest listener snapshot
func (e *Engine) Listener() *listener.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.listener.Snapshot()
}

// Sidechain returns the current ducking multiplier and its group
func (e *Engine) Sidechain() (float64, string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sidechain.Multiplier(), e.sidechain.Group()
}

// Clones returns the number of live phantom channels
func (e *Engine) Clones() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.clones.Live()
}

// Tick runs one pass of the pipeline
// Order: listener refresh, sidechain decay, ray hand-off, channel sweep, disposal, metrics
func (e *Engine) Tick(in listener.Input, dt time.Duration) Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return e.report
	}
	if dt < 0 {
		dt = 0
	}
	dt = min(dt, parameter.MaxTickDelta)
	e.tick++
	cfg := e.cfg

	// Listener
	if e.rays != nil && cfg.Listener.AreaMode == config.AreaRaycast && in.AreaHits == nil {
		in.AreaHits = e.takeFan()
	}
	snap := e.listener.Refresh(in, dt)
	e.syncReverb(snap)

	// Sidechain
	e.sidechain.Process(dt)

	// Ray hand-off
	if e.rays != nil {
		e.exchangeRays(snap, cfg)
	}

	// Sweep
	ctx := &obstruction.Context{
		Graph:     e.graph,
		Listener:  snap,
		Config:    cfg,
		Sidechain: e.sidechain,
		Clones:    e.clones,
		Status:    e.status,
	}
	classified, throttled := e.sweep(ctx, dt)

	// Disposal
	e.collect()

	if e.advance != nil {
		e.advance.Advance(dt)
	}

	e.publish(snap, classified, throttled)
	return e.report
}

// sweep classifies due channels and steps every live one in creation order
// Loud channels drive the sidechain in the first pass so every step sees this tick's ducking
func (e *Engine) sweep(ctx *obstruction.Context, dt time.Duration) (classified, throttled int) {
	now := e.clock.Now()
	var due [sound.GroupCount]bool
	for g := range due {
		due[g] = !e.checked[g] || now.Sub(e.lastCheck[g]) >= e.interval(sound.Group(g))
	}

	for _, id := range e.order {
		en := e.entries[id]
		if en == nil || en.stopping {
			continue
		}
		ch := en.ch
		if ch.Disposed() {
			continue
		}
		if !ch.Playing() {
			en.stopping = true
			continue
		}

		if !ch.Classified() || due[ch.Def.Category.Group()] {
			ch.Classify(ctx)
			classified++
		} else {
			throttled++
		}
		ch.Drive(ctx)
	}

	for _, id := range e.order {
		en := e.entries[id]
		if en == nil || en.stopping || en.ch.Disposed() {
			continue
		}
		en.ch.Step(ctx, dt)
		en.ch.Apply(ctx)
	}

	for g := range due {
		if due[g] {
			e.lastCheck[g] = now
			e.checked[g] = true
		}
	}
	return classified, throttled
}

func (e *Engine) interval(g sound.Group) time.Duration {
	iv := &e.cfg.Intervals
	switch g {
	case sound.GroupVoice:
		return iv.Voice
	case sound.GroupStatusEffect:
		return iv.StatusEffect
	case sound.GroupOneShot:
		return iv.OneShot
	default:
		return iv.Looping
	}
}

// collect disposes stopped channels and compacts the creation order
func (e *Engine) collect() {
	kept := e.order[:0]
	for _, id := range e.order {
		en := e.entries[id]
		if en == nil {
			continue
		}
		if !en.stopping {
			kept = append(kept, id)
			continue
		}
		if err := en.ch.Dispose(e.clones); err != nil {
			e.logger.Warn("channel dispose failed", "channel", id, "err", err)
		}
		delete(e.entries, id)
		if e.rays != nil {
			e.rays.Forget(raycast.Key(id))
		}
		e.logger.Debug("channel disposed", "channel", id)
	}
	clear(e.order[len(kept):])
	e.order = kept
}

// exchangeRays consumes last tick's hits and requests the next casts
func (e *Engine) exchangeRays(snap *listener.Snapshot, cfg *config.Config) {
	for _, id := range e.order {
		en := e.entries[id]
		if en == nil || en.stopping {
			continue
		}
		key := raycast.Key(id)
		if hits, ok := e.rays.Take(key); ok {
			en.ch.SetRays(hits)
		}
		if snap.Present {
			e.rays.Request(key, en.ch.Position, snap.Anchor)
		}
	}

	if snap.Present && cfg.Listener.AreaMode == config.AreaRaycast {
		for i, end := range listener.AreaFan(snap.Position, parameter.AreaRayCount, parameter.AreaRayLength) {
			e.rays.Request(raycast.FanKey(i), snap.Position, end)
		}
	}
}

// takeFan collects the nearest hit of every fan ray; rays without a hit contribute their endpoint
func (e *Engine) takeFan() []core.Vec2 {
	prev := e.listener.Snapshot()
	if prev == nil || !prev.Present {
		return nil
	}
	ends := listener.AreaFan(prev.Position, parameter.AreaRayCount, parameter.AreaRayLength)
	var pts []core.Vec2
	for i, end := range ends {
		hits, ok := e.rays.Take(raycast.FanKey(i))
		if !ok {
			continue
		}
		if len(hits) > 0 {
			pts = append(pts, hits[0])
		} else {
			pts = append(pts, end)
		}
	}
	return pts
}

// syncReverb writes the smoothed reverb area to the backend on change
func (e *Engine) syncReverb(snap *listener.Snapshot) {
	if e.reverb == nil {
		return
	}
	area := snap.ReverbArea
	if e.hasArea && math.Abs(area-e.lastArea) < vmath.Epsilon {
		return
	}
	if err := e.reverb.SetReverbArea(area); err != nil {
		e.status.Ints.Get(status.KeyBackendFailures).Add(1)
		e.logger.Warn("backend write failed", "op", "reverb_area", "err", err)
		return
	}
	e.lastArea, e.hasArea = area, true
}

// Close disposes every channel and phantom; the backend stays owned by the caller
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	for _, id := range e.order {
		if en := e.entries[id]; en != nil {
			if err := en.ch.Dispose(e.clones); err != nil {
				errs = append(errs, fmt.Errorf("channel %d: %w", id, err))
			}
		}
	}
	e.entries = make(map[ChannelID]*entry)
	e.order = nil
	e.clones.Close()
	return errors.Join(errs...)
}
