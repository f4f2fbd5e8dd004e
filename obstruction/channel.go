package obstruction

import (
	"log/slog"
	"math"
	"time"

	"github.com/lixenwraith/muffle/clone"
	"github.com/lixenwraith/muffle/config"
	"github.com/lixenwraith/muffle/core"
	"github.com/lixenwraith/muffle/listener"
	"github.com/lixenwraith/muffle/navigation"
	"github.com/lixenwraith/muffle/parameter"
	"github.com/lixenwraith/muffle/sidechain"
	"github.com/lixenwraith/muffle/sound"
	"github.com/lixenwraith/muffle/status"
	"github.com/lixenwraith/muffle/topology"
	"github.com/lixenwraith/muffle/vmath"
)

// writeEpsilon suppresses backend writes for changes below audibility
const writeEpsilon = 1e-4

// Context is the shared per-tick state every channel reads
// Graph, Listener and Config are required; Sidechain, Clones and Status may be nil
type Context struct {
	Graph     *topology.Graph
	Listener  *listener.Snapshot
	Config    *config.Config
	Sidechain *sidechain.State
	Clones    *clone.Manager
	Status    *status.Registry
}

// Flags describe how a classification was reached
type Flags uint16

const (
	FlagEavesdropped Flags = 1 << iota
	FlagHydrophone
	FlagBothInWater
	FlagNoPath
	FlagPropagated
	FlagWallOccluded
	FlagRadio
	FlagSpectator
	FlagCloning
)

// Has reports whether every bit of f2 is set
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// Result is one classification of a channel
// Built fresh on each pass; never depends on the previous pass
type Result struct {
	Tick         uint64
	Obstructions List
	Combined
	Tier  Tier
	Flags Flags

	Path           navigation.Path
	ApproxDistance *float64 // nil means Euclidean
	Range          float64

	TargetGain  float64 // Before sidechain
	TargetPitch float64
	Filter      core.Filter
	Reverb      bool

	Position core.Vec2 // Written to the backend
	Clones   []clone.Spec

	pathDoors    int
	pathSurfaces int
}

// bound caches the last values the backend accepted
type bound struct {
	gain, pitch float64
	pos         core.Vec2
	filter      core.Filter
	reverb      bool

	hasGain, hasPitch, hasPos, hasFilter, hasReverb bool
}

// Channel is the full occlusion state of one playing sound
type Channel struct {
	ID  uint64
	Def *sound.Definition

	Position      core.Vec2
	Space         topology.SpaceID
	Contained     bool
	IgnoredPortal topology.PortalID

	voice   core.Voice
	cache   *navigation.Cache
	rays    []core.Vec2
	hasRays bool

	result     Result
	classified bool

	gain, pitch, hf, lf vmath.Smoother
	bound               bound

	phantoms    []clone.Spec // Ducked and smoothed copies of result.Clones
	phantomGain []vmath.Smoother

	failures uint64
	disposed bool
	logger   *slog.Logger
}

// NewChannel creates the state for a sound that just started on v
func NewChannel(id uint64, def *sound.Definition, v core.Voice, pos core.Vec2, space topology.SpaceID, cfg *config.Config, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return &Channel{
		ID:            id,
		Def:           def,
		Position:      pos,
		Space:         space,
		IgnoredPortal: topology.NoPortal,
		voice:         v,
		cache:         navigation.NewCache(cfg.Pathing.CacheDirtyDistance),
		gain:          vmath.NewSmoother(cfg.Smoothing.GainRate),
		pitch:         vmath.NewSmoother(cfg.Smoothing.PitchRate),
		hf:            vmath.NewSmoother(cfg.Smoothing.FilterRate),
		lf:            vmath.NewSmoother(cfg.Smoothing.FilterRate),
		logger:        logger.With("channel", id, "sound", def.Name),
	}
}

// Move updates the emitter anchor
func (c *Channel) Move(pos core.Vec2, space topology.SpaceID) {
	c.Position = pos
	c.Space = space
}

// SetRays hands over the latest ray-cast hits between emitter and listener
func (c *Channel) SetRays(hits []core.Vec2) {
	c.rays = hits
	c.hasRays = true
}

// Classify rebuilds the obstruction list and derives every target
// Calling it twice with unchanged inputs yields the same result
func (c *Channel) Classify(ctx *Context) Result {
	if c.disposed {
		return c.result
	}
	snap, cfg, g := ctx.Listener, ctx.Config, ctx.Graph
	def := c.Def

	r := Result{
		Tick:        snap.Tick,
		Path:        navigation.NoPath,
		Range:       def.Range,
		TargetPitch: 1,
		Position:    c.Position,
	}
	euclid := c.Position.Dist(snap.Anchor)

	if def.Tags.Has(sound.IgnoreAll) {
		r.Combined = Combined{HFGain: 1, LFGain: 1}
		r.Filter = core.Filter{Kind: core.FilterNone, Cutoff: cfg.Filter.OpenCutoff, Q: cfg.Filter.Q, HFGain: 1, LFGain: 1}
		r.TargetGain = def.Volume * Falloff(euclid, def.NearRange, def.Range)
		c.finish(r)
		return r
	}

	var list List
	near := def.NearRange
	emitterSub := g.SubmergedAt(c.Space, c.Position)

	if c.Contained && !def.Tags.Has(sound.IgnoreContainer) {
		list = append(list, DoorThin)
	}

	switch {
	case !snap.Present:
		r.Flags |= FlagSpectator
		if emitterSub && !def.Tags.Has(sound.IgnoreWater) {
			list = append(list, WaterBody)
		}

	case def.Category == sound.VoiceRadio:
		r.Flags |= FlagRadio

	default:
		if snap.WearingSuit {
			list = append(list, Suit)
		}
		if snap.HydrophoneEfficiency >= cfg.Listener.HydrophoneThreshold {
			r.Flags |= FlagHydrophone
			r.Range *= cfg.Listener.HydrophoneRangeMultiplier
			near *= cfg.Listener.HydrophoneRangeMultiplier
			list = append(list, c.hydrophoneKind(g, snap))
			break
		}

		var paths []navigation.Path
		list, paths = c.pathPass(ctx, &r, list, euclid, emitterSub)
		if snap.Eavesdropping() && c.Space == snap.FocusedSpace {
			r.Flags |= FlagEavesdropped
			list = append(list, DoorThin)
		}
		r.Obstructions = list
		c.derive(ctx, &r, near, euclid)
		c.cloneSpecs(ctx, &r, paths, near)
		c.finish(r)
		return r
	}

	r.Obstructions = list
	c.derive(ctx, &r, near, euclid)
	c.finish(r)
	return r
}

// hydrophoneKind picks the single obstruction of hydrophone routing
func (c *Channel) hydrophoneKind(g *topology.Graph, snap *listener.Snapshot) Kind {
	es := g.Space(c.Space)
	switch {
	case es == nil:
		return WaterBody
	case es.Structure == snap.Structure:
		return WallThick
	default:
		return WallThin
	}
}

// pathPass appends graph-derived entries and applies the water sub-rule
func (c *Channel) pathPass(ctx *Context, r *Result, list List, euclid float64, emitterSub bool) (List, []navigation.Path) {
	snap, cfg, g := ctx.Listener, ctx.Config, ctx.Graph
	tags := c.Def.Tags
	listenerSub := snap.Submerged
	propagates := cfg.Propagation.Enabled && tags.Has(sound.Propagate)
	surface := WaterSurface
	if propagates {
		surface = WallThin
	}

	var paths []navigation.Path
	switch {
	case tags.Has(sound.IgnorePath):
		r.Path = navigation.Path{
			Found:         true,
			Distance:      euclid,
			LastPoint:     c.Position,
			ArrivalPortal: topology.NoPortal,
		}
	case c.clonesWanted(cfg):
		paths = c.cache.FindN(g, c.request(ctx), min(cfg.Clones.Max, parameter.CloneHardMax))
		if len(paths) > 0 {
			r.Path = paths[0]
		}
	default:
		r.Path = c.cache.Find(g, c.request(ctx))
	}

	if r.Path.Found {
		for i := 0; i < r.Path.ClosedDoors; i++ {
			list = append(list, DoorThick)
		}
		r.pathDoors = r.Path.ClosedDoors
		if !tags.Has(sound.IgnoreSurface) {
			for i := 0; i < r.Path.WaterCrossings; i++ {
				list = append(list, surface)
			}
			r.pathSurfaces = r.Path.WaterCrossings
		}

		if (c.hasRays && len(c.rays) > 0) || (!c.hasRays && r.Path.Hops > 0) {
			r.Flags |= FlagWallOccluded
		}
		if d := r.Path.Distance; math.Abs(d-euclid) > cfg.Pathing.ApproxDivergence && d < r.Range {
			r.ApproxDistance = &d
		}
	} else {
		r.Flags |= FlagNoPath
		if propagates {
			if sid, ok := navigation.Propagates(g, c.Position, snap.Connected, cfg.Propagation.Radius); ok {
				kind := WallThin
				if _, shared := g.SharedPortal(c.Space, sid); shared {
					kind = DoorThin
				}
				list = append(list, kind)
				r.Flags |= FlagPropagated
			}
		}
		if !r.Flags.Has(FlagPropagated) {
			n := 1
			if c.hasRays {
				n = min(max(len(c.rays), 1), max(cfg.Pathing.MaxWallEntries, 1))
			}
			for i := 0; i < n; i++ {
				list = append(list, WallThick)
			}
		}
	}

	// Water sub-rule: disconnected spaces ignore the water tags
	if emitterSub || listenerSub {
		switch {
		case !r.Path.Found:
			if emitterSub && listenerSub {
				list = append(list, WaterBody)
			} else {
				list = append(list, WaterSurface)
			}
		case emitterSub && listenerSub:
			r.Flags |= FlagBothInWater
			if !tags.Has(sound.IgnoreWater) {
				list = append(list, WaterBody)
			}
		case r.Path.WaterCrossings == 0 && !tags.Has(sound.IgnoreSurface):
			list = append(list, surface)
		}
	}

	return list, paths
}

func (c *Channel) request(ctx *Context) navigation.Request {
	pc := &ctx.Config.Pathing
	req := navigation.NewRequest(c.Position, ctx.Listener.Anchor, c.Space, ctx.Listener.AnchorSpace)
	req.MaxDistance = pc.MaxDistance
	req.MaxDepth = pc.MaxDepth
	req.MinOpenness = pc.MinOpenness
	req.DoorDistanceMultiplier = pc.DoorDistanceMultiplier
	if pc.DoorMode == "distance" {
		req.DoorMode = navigation.DoorDistance
	}
	req.Ignored = c.IgnoredPortal
	return req
}

func (c *Channel) clonesWanted(cfg *config.Config) bool {
	return cfg.Clones.Enabled && cfg.Clones.Max > 1 &&
		!c.Def.Category.IsVoice() && !c.Def.Tags.Has(sound.NoClone)
}

// derive maps the obstruction list to gain, pitch, filter and reverb targets
func (c *Channel) derive(ctx *Context, r *Result, near, euclid float64) {
	snap, cfg := ctx.Listener, ctx.Config
	def := c.Def

	r.Combined = Combine(r.Obstructions, &cfg.Obstruction, multiplier(cfg, def.Category), !cfg.DisableAutoAttenuation)
	r.Tier = TierFor(r.Strength, &cfg.Thresholds)
	r.Filter = FilterFor(r.Combined, r.Tier, def.Category, def.Tags, cfg)
	r.TargetPitch = PitchFor(r.Strength, snap.Submerged, def.Tags, &cfg.Pitch)

	dist := euclid
	if r.ApproxDistance != nil {
		dist = *r.ApproxDistance
	}
	r.TargetGain = def.Volume * Falloff(dist, near, r.Range)
	if r.Flags.Has(FlagEavesdropped) {
		r.TargetGain *= snap.EavesdropEfficiency
	}
	r.TargetGain = vmath.OrDefault(r.TargetGain, 1)

	r.Reverb = cfg.Reverb.Enabled && !def.Tags.Has(sound.NoReverb) &&
		snap.Connected.Has(c.Space) && !snap.Submerged && r.Tier < TierHeavy
}

// cloneSpecs positions the parent on the first path and one phantom per further path
func (c *Channel) cloneSpecs(ctx *Context, r *Result, paths []navigation.Path, near float64) {
	if len(paths) == 0 || !r.Path.Found || !r.Flags.Has(FlagWallOccluded) || !c.clonesWanted(ctx.Config) {
		return
	}
	snap, cfg := ctx.Listener, ctx.Config
	minOffset := cfg.Clones.MinOffset

	r.Flags |= FlagCloning
	r.Position = apparent(snap.Position, paths[0].LastPoint, minOffset)

	base := r.Obstructions
	base = without(base, DoorThick, r.pathDoors)
	surface := WaterSurface
	if cfg.Propagation.Enabled && c.Def.Tags.Has(sound.Propagate) {
		surface = WallThin
	}
	base = without(base, surface, r.pathSurfaces)

	mult := multiplier(cfg, c.Def.Category)
	for _, p := range paths[1:] {
		list := append(List(nil), base...)
		for i := 0; i < p.ClosedDoors; i++ {
			list = append(list, DoorThick)
		}
		if !c.Def.Tags.Has(sound.IgnoreSurface) {
			for i := 0; i < p.WaterCrossings; i++ {
				list = append(list, surface)
			}
		}

		comb := Combine(list, &cfg.Obstruction, mult, !cfg.DisableAutoAttenuation)
		tier := TierFor(comb.Strength, &cfg.Thresholds)
		gain := c.Def.Volume * Falloff(p.Distance, near, r.Range)
		if r.Flags.Has(FlagEavesdropped) {
			gain *= snap.EavesdropEfficiency
		}
		r.Clones = append(r.Clones, clone.Spec{
			Position: apparent(snap.Position, p.LastPoint, minOffset),
			Gain:     vmath.OrDefault(gain, 0),
			Pitch:    PitchFor(comb.Strength, snap.Submerged, c.Def.Tags, &cfg.Pitch),
			Filter:   FilterFor(comb, tier, c.Def.Category, c.Def.Tags, cfg),
			Reverb:   r.Reverb && tier < TierHeavy,
		})
	}
}

func (c *Channel) finish(r Result) {
	c.result = r
	c.classified = true
}

// Drive refreshes the sidechain release of a loud channel from its latest result
// The sweep drives every channel before stepping any
func (c *Channel) Drive(ctx *Context) {
	if c.disposed || !c.classified || !c.Def.Tags.Has(sound.Loud) {
		return
	}
	sc, cfg := ctx.Sidechain, ctx.Config
	if sc == nil || !cfg.Sidechain.Enabled {
		return
	}
	def := c.Def
	release := def.LoudRelease
	if release <= 0 {
		release = cfg.Sidechain.Release
	}
	sc.StartRelease(cfg.Sidechain.Intensity*def.LoudStrength*(1-c.result.Strength), release, def.LoudGroup)
}

// Step advances smoothing toward the current targets, ducked by the sidechain
// Runs every tick, including ticks where classification was throttled
func (c *Channel) Step(ctx *Context, dt time.Duration) {
	if c.disposed || !c.classified {
		return
	}
	cfg := ctx.Config
	def := c.Def
	r := &c.result

	duck := 1.0
	if sc := ctx.Sidechain; sc != nil && cfg.Sidechain.Enabled && !def.Tags.Has(sound.Loud) && !def.Tags.Has(sound.IgnoreSidechain) {
		duck = sc.Gain()
	}

	c.gain.Rate = cfg.Smoothing.GainRate
	c.pitch.Rate = cfg.Smoothing.PitchRate
	c.hf.Rate = cfg.Smoothing.FilterRate
	c.lf.Rate = cfg.Smoothing.FilterRate

	c.gain.Step(r.TargetGain*duck, dt)
	c.pitch.Step(r.TargetPitch, dt)
	c.hf.Step(r.Filter.HFGain, dt)
	c.lf.Step(r.Filter.LFGain, dt)

	c.stepPhantoms(r.Clones, duck, cfg.Smoothing.GainRate, dt)
}

// stepPhantoms ducks and smooths phantom gains by path index; a new index snaps
func (c *Channel) stepPhantoms(specs []clone.Spec, duck, rate float64, dt time.Duration) {
	if len(c.phantomGain) > len(specs) {
		c.phantomGain = c.phantomGain[:len(specs)]
	}
	for len(c.phantomGain) < len(specs) {
		c.phantomGain = append(c.phantomGain, vmath.NewSmoother(rate))
	}
	c.phantoms = append(c.phantoms[:0], specs...)
	for i := range c.phantoms {
		s := &c.phantomGain[i]
		s.Rate = rate
		c.phantoms[i].Gain = max(0, s.Step(specs[i].Gain*duck, dt))
	}
}

// Apply writes the smoothed values to the voice and reconciles phantoms
// A failed write is logged and counted; the previous backend value stays bound
func (c *Channel) Apply(ctx *Context) {
	if c.disposed || !c.classified || c.voice == nil {
		return
	}
	r := &c.result
	b := &c.bound

	gain := max(0, c.gain.Value)
	if !b.hasGain || math.Abs(b.gain-gain) > writeEpsilon {
		if err := c.voice.SetGain(gain); err != nil {
			c.fail(ctx, "gain", err)
		} else {
			b.gain, b.hasGain = gain, true
		}
	}

	pitch := vmath.Clamp(c.pitch.Value, parameter.PitchMin, parameter.PitchMax)
	if !b.hasPitch || math.Abs(b.pitch-pitch) > writeEpsilon {
		if err := c.voice.SetPitch(pitch); err != nil {
			c.fail(ctx, "pitch", err)
		} else {
			b.pitch, b.hasPitch = pitch, true
		}
	}

	if !b.hasPos || !b.pos.Equal(r.Position) {
		if err := c.voice.SetPosition(r.Position); err != nil {
			c.fail(ctx, "position", err)
		} else {
			b.pos, b.hasPos = r.Position, true
		}
	}

	filter := r.Filter
	filter.HFGain = c.hf.Value
	filter.LFGain = c.lf.Value
	if !b.hasFilter || !b.filter.Near(filter, writeEpsilon) {
		if err := c.voice.SetFilter(filter); err != nil {
			c.fail(ctx, "filter", err)
		} else {
			b.filter, b.hasFilter = filter, true
		}
	}

	if !b.hasReverb || b.reverb != r.Reverb {
		if err := c.voice.SetReverb(r.Reverb); err != nil {
			c.fail(ctx, "reverb", err)
		} else {
			b.reverb, b.hasReverb = r.Reverb, true
		}
	}

	if ctx.Clones == nil {
		return
	}
	parent := clone.ParentID(c.ID)
	if r.Flags.Has(FlagCloning) {
		if err := ctx.Clones.Reconcile(parent, c.voice, c.phantoms); err != nil {
			c.fail(ctx, "clone", err)
		}
	} else if ctx.Clones.Count(parent) > 0 {
		ctx.Clones.Release(parent)
	}
}

func (c *Channel) fail(ctx *Context, op string, err error) {
	c.failures++
	if ctx.Status != nil {
		ctx.Status.Ints.Get(status.KeyBackendFailures).Add(1)
	}
	c.logger.Warn("backend write failed", "op", op, "err", err)
}

// Dispose releases phantoms and the voice exactly once
func (c *Channel) Dispose(clones *clone.Manager) error {
	if c.disposed {
		return nil
	}
	c.disposed = true
	if clones != nil {
		clones.Release(clone.ParentID(c.ID))
	}
	if c.voice == nil {
		return nil
	}
	v := c.voice
	c.voice = nil
	return v.Dispose()
}

// Result returns the latest classification
func (c *Channel) Result() Result { return c.result }

// Classified reports whether at least one classification ran
func (c *Channel) Classified() bool { return c.classified }

// Disposed reports whether the channel was torn down
func (c *Channel) Disposed() bool { return c.disposed }

// Playing reports whether the voice is still sounding
func (c *Channel) Playing() bool {
	return !c.disposed && c.voice != nil && c.voice.Playing()
}

// Voice returns the owned voice, nil after disposal
func (c *Channel) Voice() core.Voice { return c.voice }

// Gain returns the smoothed gain
func (c *Channel) Gain() float64 { return c.gain.Value }

// Pitch returns the smoothed pitch
func (c *Channel) Pitch() float64 { return c.pitch.Value }

// Failures returns the number of failed backend writes
func (c *Channel) Failures() uint64 { return c.failures }

func multiplier(cfg *config.Config, cat sound.Category) float64 {
	m, ok := cfg.Multipliers[cat.String()]
	if !ok || !vmath.Finite(m) || m < 0 {
		return 1
	}
	return m
}

// without removes up to n occurrences of k, scanning from the end
func without(l List, k Kind, n int) List {
	if n <= 0 {
		return append(List(nil), l...)
	}
	out := make(List, 0, len(l))
	skip := n
	for i := len(l) - 1; i >= 0; i-- {
		if l[i] == k && skip > 0 {
			skip--
			continue
		}
		out = append(out, l[i])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
