// Package clone manages phantom voices that fake additional arrival directions of a channel
// Phantoms live in an arena indexed by slot; generations detect stale handles
package clone

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/lixenwraith/muffle/core"
)

// ParentID identifies the owning channel
type ParentID uint64

// Handle references one phantom slot
type Handle struct {
	Index      int
	Generation uint32
}

// Spec is the target state of one phantom
type Spec struct {
	Position core.Vec2
	Gain     float64
	Pitch    float64
	Filter   core.Filter
	Reverb   bool
}

// writeEpsilon suppresses phantom writes for changes below audibility
const writeEpsilon = 1e-4

// Sentinel errors
var (
	ErrNoSource = errors.New("clone source voice missing")
)

type slot struct {
	generation uint32
	live       bool
	parent     ParentID
	voice      core.Voice

	bound Spec  // Last values the voice accepted
	has   field // Fields of bound that hold an accepted value
}

// field marks one phantom parameter
type field uint8

const (
	fieldPosition field = 1 << iota
	fieldGain
	fieldPitch
	fieldFilter
	fieldReverb
)

// Manager owns every phantom voice
// Not safe for concurrent use; driven from the update thread
type Manager struct {
	slots    []slot
	free     []int
	byParent map[ParentID][]int // Slot indices, oldest first

	created  uint64
	disposed uint64
	failures uint64

	logger *slog.Logger
}

// NewManager creates an empty arena
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		byParent: make(map[ParentID][]int),
		logger:   logger,
	}
}

// Reconcile makes parent own exactly len(specs) phantoms and binds each spec
// Excess phantoms are disposed newest first; shortfall is cloned from src
// A failed clone leaves the count short and is reported; the next call retries
func (m *Manager) Reconcile(parent ParentID, src core.Voice, specs []Spec) error {
	owned := m.byParent[parent]

	for len(owned) > len(specs) {
		last := owned[len(owned)-1]
		owned = owned[:len(owned)-1]
		m.dispose(last)
	}

	var errs []error
	for len(owned) < len(specs) {
		if src == nil {
			errs = append(errs, ErrNoSource)
			break
		}
		v, err := src.Clone()
		if err != nil {
			errs = append(errs, fmt.Errorf("clone for parent %d: %w", parent, err))
			break
		}
		owned = append(owned, m.alloc(parent, v))
	}

	for i, idx := range owned {
		m.bind(&m.slots[idx], specs[i])
	}

	if len(owned) == 0 {
		delete(m.byParent, parent)
	} else {
		m.byParent[parent] = owned
	}
	return errors.Join(errs...)
}

// Release disposes every phantom of parent and returns how many were disposed
func (m *Manager) Release(parent ParentID) int {
	owned := m.byParent[parent]
	for i := len(owned) - 1; i >= 0; i-- {
		m.dispose(owned[i])
	}
	delete(m.byParent, parent)
	return len(owned)
}

// Count returns the number of live phantoms owned by parent
func (m *Manager) Count(parent ParentID) int { return len(m.byParent[parent]) }

// Handles returns handles to parent's phantoms, oldest first
func (m *Manager) Handles(parent ParentID) []Handle {
	owned := m.byParent[parent]
	out := make([]Handle, len(owned))
	for i, idx := range owned {
		out[i] = Handle{Index: idx, Generation: m.slots[idx].generation}
	}
	return out
}

// Valid reports whether h still references a live phantom
func (m *Manager) Valid(h Handle) bool {
	if h.Index < 0 || h.Index >= len(m.slots) {
		return false
	}
	s := &m.slots[h.Index]
	return s.live && s.generation == h.Generation
}

// Voice returns the phantom voice behind a valid handle
func (m *Manager) Voice(h Handle) (core.Voice, bool) {
	if !m.Valid(h) {
		return nil, false
	}
	return m.slots[h.Index].voice, true
}

// Live returns the number of live phantoms across all parents
func (m *Manager) Live() int {
	n := 0
	for _, owned := range m.byParent {
		n += len(owned)
	}
	return n
}

// Created returns the lifetime phantom count
func (m *Manager) Created() uint64 { return m.created }

// Disposed returns the lifetime disposal count
func (m *Manager) Disposed() uint64 { return m.disposed }

// Failures returns the number of failed phantom writes
func (m *Manager) Failures() uint64 { return m.failures }

// Close releases every phantom
func (m *Manager) Close() {
	for parent := range m.byParent {
		m.Release(parent)
	}
}

func (m *Manager) alloc(parent ParentID, v core.Voice) int {
	m.created++
	if n := len(m.free); n > 0 {
		idx := m.free[n-1]
		m.free = m.free[:n-1]
		s := &m.slots[idx]
		s.live = true
		s.parent = parent
		s.voice = v
		s.bound, s.has = Spec{}, 0
		return idx
	}
	m.slots = append(m.slots, slot{live: true, parent: parent, voice: v})
	return len(m.slots) - 1
}

// dispose frees a slot exactly once; the generation bump invalidates old handles
func (m *Manager) dispose(idx int) {
	s := &m.slots[idx]
	if !s.live {
		return
	}
	if err := s.voice.Dispose(); err != nil {
		m.logger.Warn("phantom dispose failed", "parent", s.parent, "err", err)
	}
	s.live = false
	s.voice = nil
	s.generation++
	m.free = append(m.free, idx)
	m.disposed++
}

// bind writes the spec fields that moved beyond writeEpsilon since the last accepted write
// A rejected write keeps the previous value bound and is retried on the next call
func (m *Manager) bind(s *slot, spec Spec) {
	v, b := s.voice, &s.bound
	fail := func(op string, err error) {
		m.failures++
		m.logger.Warn("phantom write failed", "parent", s.parent, "op", op, "err", err)
	}

	if s.has&fieldPosition == 0 || !b.Position.Equal(spec.Position) {
		if err := v.SetPosition(spec.Position); err != nil {
			fail("position", err)
		} else {
			b.Position = spec.Position
			s.has |= fieldPosition
		}
	}
	if s.has&fieldGain == 0 || math.Abs(b.Gain-spec.Gain) > writeEpsilon {
		if err := v.SetGain(spec.Gain); err != nil {
			fail("gain", err)
		} else {
			b.Gain = spec.Gain
			s.has |= fieldGain
		}
	}
	if s.has&fieldPitch == 0 || math.Abs(b.Pitch-spec.Pitch) > writeEpsilon {
		if err := v.SetPitch(spec.Pitch); err != nil {
			fail("pitch", err)
		} else {
			b.Pitch = spec.Pitch
			s.has |= fieldPitch
		}
	}
	if s.has&fieldFilter == 0 || !b.Filter.Near(spec.Filter, writeEpsilon) {
		if err := v.SetFilter(spec.Filter); err != nil {
			fail("filter", err)
		} else {
			b.Filter = spec.Filter
			s.has |= fieldFilter
		}
	}
	if s.has&fieldReverb == 0 || b.Reverb != spec.Reverb {
		if err := v.SetReverb(spec.Reverb); err != nil {
			fail("reverb", err)
		} else {
			b.Reverb = spec.Reverb
			s.has |= fieldReverb
		}
	}
}
