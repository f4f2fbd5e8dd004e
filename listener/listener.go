// Package listener produces the per-tick snapshot of how the single listener perceives the world
package listener

import (
	"log/slog"
	"time"

	"github.com/lixenwraith/muffle/config"
	"github.com/lixenwraith/muffle/core"
	"github.com/lixenwraith/muffle/navigation"
	"github.com/lixenwraith/muffle/parameter"
	"github.com/lixenwraith/muffle/topology"
	"github.com/lixenwraith/muffle/vmath"
)

// Input is the host's view of the controlled entity for one tick
type Input struct {
	Present       bool // False while spectating
	Position      core.Vec2
	LocalPosition core.Vec2 // Structure-relative
	Velocity      core.Vec2
	Space         topology.SpaceID
	WearingSuit   bool

	EavesdropHeld    bool
	EavesdropTarget  topology.SpaceID
	HydrophoneActive bool

	// AreaHits are ray fan hit points around the listener, used by raycast area mode
	AreaHits []core.Vec2
}

// Snapshot is the immutable listener state for one tick
type Snapshot struct {
	Tick    uint64
	Present bool

	Position      core.Vec2
	LocalPosition core.Vec2
	Velocity      core.Vec2
	Space         topology.SpaceID
	Structure     topology.StructureID

	// FocusedSpace is the eavesdrop target once effective, the own Space otherwise
	FocusedSpace topology.SpaceID

	// Anchor is where classification places the listener: Position clamped into FocusedSpace
	Anchor      core.Vec2
	AnchorSpace topology.SpaceID

	Submerged   bool
	WearingSuit bool

	EavesdropTarget      topology.SpaceID
	EavesdropEfficiency  float64
	HydrophoneEfficiency float64

	Connected  navigation.SpaceSet
	ReverbArea float64
}

// Eavesdropping reports whether the focus moved to another Space
func (s *Snapshot) Eavesdropping() bool {
	return s.FocusedSpace != topology.NoSpace && s.FocusedSpace != s.Space
}

// Backend receives listener parameters, written only on change
type Backend interface {
	SetListener(pos, vel core.Vec2) error
	SetSpeedOfSound(v float64) error
	SetDopplerFactor(f float64) error
}

// State owns the smoothed and ramped listener values across ticks
// Not safe for concurrent use; Refresh runs once per tick on the update thread
type State struct {
	graph   *topology.Graph
	cfg     *config.Config
	backend Backend
	logger  *slog.Logger

	tick       uint64
	eavesdrop  float64
	hydrophone float64
	target     topology.SpaceID
	area       vmath.Smoother

	written written
	current *Snapshot
}

// written caches the last successful backend writes
type written struct {
	pos, vel   core.Vec2
	speed      float64
	doppler    float64
	hasPos     bool
	hasSpeed   bool
	hasDoppler bool
}

// New creates listener state; backend and logger may be nil
func New(g *topology.Graph, cfg *config.Config, backend Backend, logger *slog.Logger) *State {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &State{
		graph:   g,
		cfg:     cfg,
		backend: backend,
		logger:  logger,
		target:  topology.NoSpace,
		area:    vmath.NewSmoother(cfg.Smoothing.AreaRate),
	}
	s.current = s.degenerate(Input{})
	return s
}

// SetConfig swaps configuration between ticks
func (s *State) SetConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	s.cfg = cfg
	s.area.Rate = cfg.Smoothing.AreaRate
}

// Snapshot returns the latest snapshot
func (s *State) Snapshot() *Snapshot { return s.current }

// Refresh computes the snapshot for this tick
func (s *State) Refresh(in Input, dt time.Duration) *Snapshot {
	s.tick++
	if dt < 0 {
		dt = 0
	}

	if !in.Present || s.graph == nil {
		s.eavesdrop, s.hydrophone = 0, 0
		s.target = topology.NoSpace
		snap := s.degenerate(in)
		snap.ReverbArea = s.area.Step(0, dt)
		s.writeBackend(snap)
		s.current = snap
		return snap
	}

	lc := &s.cfg.Listener

	space := in.Space
	if space != topology.NoSpace && s.graph.Space(space) == nil {
		s.logger.Debug("listener in unknown space", "space", space)
		space = topology.NoSpace
	}

	// Eavesdrop efficiency restarts when the target changes
	target := in.EavesdropTarget
	if target != s.target {
		s.eavesdrop = 0
		s.target = target
	}
	canEavesdrop := in.EavesdropHeld && target != space && s.graph.Space(target) != nil
	s.eavesdrop = ramp(s.eavesdrop, canEavesdrop, dt, lc.EavesdropRamp)
	s.hydrophone = ramp(s.hydrophone, in.HydrophoneActive, dt, lc.HydrophoneRamp)

	focused := space
	if canEavesdrop && s.eavesdrop >= lc.EavesdropThreshold {
		focused = target
	}

	snap := &Snapshot{
		Tick:                 s.tick,
		Present:              true,
		Position:             in.Position,
		LocalPosition:        in.LocalPosition,
		Velocity:             in.Velocity,
		Space:                space,
		Structure:            -1,
		FocusedSpace:         focused,
		Anchor:               in.Position,
		AnchorSpace:          space,
		Submerged:            s.graph.SubmergedAt(space, in.Position),
		WearingSuit:          in.WearingSuit,
		EavesdropTarget:      topology.NoSpace,
		EavesdropEfficiency:  s.eavesdrop,
		HydrophoneEfficiency: s.hydrophone,
	}
	if canEavesdrop {
		snap.EavesdropTarget = target
	}
	if sp := s.graph.Space(space); sp != nil {
		snap.Structure = sp.Structure
	}
	if fs := s.graph.Space(focused); fs != nil && focused != space {
		snap.Anchor = fs.Bounds.ClosestPoint(in.Position)
		snap.AnchorSpace = focused
	}

	snap.Connected = navigation.ConnectedSpaces(
		s.graph, focused, lc.RespectClosedGaps, s.cfg.Pathing.MinOpenness, parameter.ConnectedMaxHops,
	)
	snap.ReverbArea = s.area.Step(s.areaTarget(snap, in.AreaHits), dt)

	s.writeBackend(snap)
	s.current = snap
	return snap
}

func (s *State) degenerate(in Input) *Snapshot {
	return &Snapshot{
		Tick:            s.tick,
		Position:        in.Position,
		Velocity:        in.Velocity,
		Space:           topology.NoSpace,
		Structure:       -1,
		FocusedSpace:    topology.NoSpace,
		Anchor:          in.Position,
		AnchorSpace:     topology.NoSpace,
		EavesdropTarget: topology.NoSpace,
		Connected:       navigation.SpaceSet{},
		ReverbArea:      s.area.Value,
	}
}

// areaTarget measures the unsmoothed reverb area
func (s *State) areaTarget(snap *Snapshot, hits []core.Vec2) float64 {
	if s.cfg.Listener.AreaMode == config.AreaRaycast && len(hits) >= 3 {
		return vmath.PolygonArea(hits)
	}

	total := 0.0
	for id := range snap.Connected {
		sp := s.graph.Space(id)
		if sp == nil {
			continue
		}
		a := sp.Bounds.Area()
		if s.cfg.Listener.ReverbWaterGate {
			a *= 1 - sp.WaterFraction()
		}
		total += a
	}
	return total
}

// writeBackend pushes changed listener parameters; failures retry next tick
func (s *State) writeBackend(snap *Snapshot) {
	if s.backend == nil {
		return
	}
	w := &s.written
	lc := &s.cfg.Listener

	if !w.hasPos || !w.pos.Equal(snap.Position) || !w.vel.Equal(snap.Velocity) {
		if err := s.backend.SetListener(snap.Position, snap.Velocity); err != nil {
			s.logger.Warn("listener write failed", "op", "position", "err", err)
		} else {
			w.pos, w.vel, w.hasPos = snap.Position, snap.Velocity, true
		}
	}

	speed := lc.SpeedOfSoundAir
	if snap.Submerged {
		speed = lc.SpeedOfSoundWater
	}
	if !w.hasSpeed || w.speed != speed {
		if err := s.backend.SetSpeedOfSound(speed); err != nil {
			s.logger.Warn("listener write failed", "op", "speed_of_sound", "err", err)
		} else {
			w.speed, w.hasSpeed = speed, true
		}
	}

	if !w.hasDoppler || w.doppler != lc.DopplerFactor {
		if err := s.backend.SetDopplerFactor(lc.DopplerFactor); err != nil {
			s.logger.Warn("listener write failed", "op", "doppler", "err", err)
		} else {
			w.doppler, w.hasDoppler = lc.DopplerFactor, true
		}
	}
}

// ramp moves an efficiency linearly toward 1 while on, toward 0 otherwise
func ramp(v float64, on bool, dt, period time.Duration) float64 {
	if period <= 0 {
		if on {
			return 1
		}
		return 0
	}
	step := float64(dt) / float64(period)
	if on {
		return vmath.Clamp01(v + step)
	}
	return vmath.Clamp01(v - step)
}

// AreaFan returns ray fan end points around pos for raycast area mode
func AreaFan(pos core.Vec2, n int, length float64) []core.Vec2 {
	dirs := vmath.RingDirections(n)
	out := make([]core.Vec2, len(dirs))
	for i, d := range dirs {
		out[i] = pos.Add(d.Scale(length))
	}
	return out
}
