// Package topology holds the acoustic graph read by the occlusion engine:
// Spaces (rooms) connected by Portals (doors and free openings).
// The host simulation owns the state and writes it through the mutators;
// the engine only reads it during a tick.
package topology

import (
	"errors"
	"fmt"

	"github.com/lixenwraith/muffle/core"
)

// SpaceID indexes a Space in its Graph
type SpaceID int

// PortalID indexes a Portal in its Graph
type PortalID int

// StructureID identifies the vessel or structure owning a Space
type StructureID int

const (
	// NoSpace marks the exterior or an absent anchor
	NoSpace SpaceID = -1

	// NoPortal marks an absent portal reference
	NoPortal PortalID = -1
)

// Sentinel errors
var (
	ErrUnknownSpace  = errors.New("unknown space")
	ErrUnknownPortal = errors.New("unknown portal")
	ErrSelfPortal    = errors.New("portal links a space to itself")
)

// Space is a room or compartment
type Space struct {
	ID         SpaceID
	Name       string
	Bounds     core.Rect
	WaterLevel float64 // Fill height above Bounds.Y, 0 = dry
	Wet        bool    // Wet room: treated as water-filled for reverb gating
	Structure  StructureID
	Portals    []PortalID // Incident portals in insertion order
}

// SurfaceY returns the world Y of the water surface
func (s *Space) SurfaceY() float64 {
	return s.Bounds.Y + s.WaterLevel
}

// Submerged reports whether pos lies below this Space's water surface
func (s *Space) Submerged(pos core.Vec2) bool {
	return s.WaterLevel > 0 && pos.Y < s.SurfaceY()
}

// WaterFraction returns the filled share of the Space height in [0, 1]
func (s *Space) WaterFraction() float64 {
	if s.Wet {
		return 1
	}
	if s.Bounds.Height <= 0 {
		return 0
	}
	f := s.WaterLevel / s.Bounds.Height
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// DoorState is the physical state of a door
type DoorState int

const (
	DoorOpen DoorState = iota
	DoorClosed
	DoorBroken
)

// String returns a short state label
func (d DoorState) String() string {
	switch d {
	case DoorOpen:
		return "open"
	case DoorClosed:
		return "closed"
	case DoorBroken:
		return "broken"
	default:
		return fmt.Sprintf("door(%d)", int(d))
	}
}

// Door is the optional door object of a Portal
type Door struct {
	State         DoorState
	Predicted     DoorState // Client-side predicted state, used when HasPrediction
	HasPrediction bool
}

// Effective returns the predicted state when present, the physical state otherwise
func (d *Door) Effective() DoorState {
	if d.HasPrediction {
		return d.Predicted
	}
	return d.State
}

// Portal connects two Spaces; either side may be NoSpace (exterior)
type Portal struct {
	ID         PortalID
	A, B       SpaceID
	Openness   float64 // 0 sealed, 1 fully open; free openings only
	Door       *Door   // nil for free openings
	Rect       core.Rect
	Horizontal bool // Hatch in a floor/ceiling; false for an opening in a vertical wall
}

// IsDoor reports whether the portal carries a door
func (p *Portal) IsDoor() bool { return p.Door != nil }

// Closed reports whether the portal's door is effectively closed
// Broken doors count as open
func (p *Portal) Closed() bool {
	return p.Door != nil && p.Door.Effective() == DoorClosed
}

// Passable reports whether a free opening lets sound through at minOpenness
// Doors are always passable here; closed doors are accounted by the caller
func (p *Portal) Passable(minOpenness float64) bool {
	if p.Door != nil {
		return true
	}
	return p.Openness >= minOpenness
}

// Other returns the Space on the far side from id
func (p *Portal) Other(id SpaceID) SpaceID {
	if p.A == id {
		return p.B
	}
	return p.A
}

// Links reports whether the portal touches id
func (p *Portal) Links(id SpaceID) bool {
	return p.A == id || p.B == id
}

// Graph is an arena of Spaces and Portals indexed by id
type Graph struct {
	spaces  []Space
	portals []Portal
	names   map[string]SpaceID
	version uint64
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{names: make(map[string]SpaceID)}
}

// AddSpace appends a Space and returns its id; any preset ID or portal list is replaced
func (g *Graph) AddSpace(s Space) SpaceID {
	id := SpaceID(len(g.spaces))
	s.ID = id
	s.Portals = nil
	g.spaces = append(g.spaces, s)
	g.version++
	if s.Name != "" {
		g.names[s.Name] = id
	}
	return id
}

// AddPortal appends a Portal and links it into both endpoints' incident lists
func (g *Graph) AddPortal(p Portal) (PortalID, error) {
	if p.A != NoSpace && g.Space(p.A) == nil {
		return NoPortal, fmt.Errorf("portal side A %d: %w", p.A, ErrUnknownSpace)
	}
	if p.B != NoSpace && g.Space(p.B) == nil {
		return NoPortal, fmt.Errorf("portal side B %d: %w", p.B, ErrUnknownSpace)
	}
	if p.A == p.B {
		return NoPortal, ErrSelfPortal
	}

	id := PortalID(len(g.portals))
	p.ID = id
	if p.Door != nil {
		door := *p.Door
		p.Door = &door
	}
	g.portals = append(g.portals, p)
	g.version++

	if p.A != NoSpace {
		g.spaces[p.A].Portals = append(g.spaces[p.A].Portals, id)
	}
	if p.B != NoSpace {
		g.spaces[p.B].Portals = append(g.spaces[p.B].Portals, id)
	}
	return id, nil
}

// Space returns the Space for id, nil for NoSpace or unknown ids
func (g *Graph) Space(id SpaceID) *Space {
	if id < 0 || int(id) >= len(g.spaces) {
		return nil
	}
	return &g.spaces[id]
}

// Portal returns the Portal for id, nil for unknown ids
func (g *Graph) Portal(id PortalID) *Portal {
	if id < 0 || int(id) >= len(g.portals) {
		return nil
	}
	return &g.portals[id]
}

// Version increments on every structural or state change
// Path caches compare it to detect stale results
func (g *Graph) Version() uint64 { return g.version }

// SpaceByName resolves a named Space
func (g *Graph) SpaceByName(name string) (SpaceID, bool) {
	id, ok := g.names[name]
	return id, ok
}

// SpaceCount returns the number of Spaces
func (g *Graph) SpaceCount() int { return len(g.spaces) }

// PortalCount returns the number of Portals
func (g *Graph) PortalCount() int { return len(g.portals) }

// Spaces iterates all Spaces in id order
func (g *Graph) Spaces(fn func(*Space) bool) {
	for i := range g.spaces {
		if !fn(&g.spaces[i]) {
			return
		}
	}
}

// Portals iterates all Portals in id order
func (g *Graph) Portals(fn func(*Portal) bool) {
	for i := range g.portals {
		if !fn(&g.portals[i]) {
			return
		}
	}
}

// SpaceAt returns the first Space containing pos, NoSpace when exterior
func (g *Graph) SpaceAt(pos core.Vec2) SpaceID {
	for i := range g.spaces {
		if g.spaces[i].Bounds.Contains(pos) {
			return g.spaces[i].ID
		}
	}
	return NoSpace
}

// SubmergedAt reports whether pos is underwater within Space id
// The exterior is open water
func (g *Graph) SubmergedAt(id SpaceID, pos core.Vec2) bool {
	s := g.Space(id)
	if s == nil {
		return true
	}
	return s.Submerged(pos)
}

// SharedPortal returns the first portal directly linking a and b
func (g *Graph) SharedPortal(a, b SpaceID) (*Portal, bool) {
	s := g.Space(a)
	if s == nil {
		return nil, false
	}
	for _, pid := range s.Portals {
		p := g.Portal(pid)
		if p != nil && p.Other(a) == b {
			return p, true
		}
	}
	return nil, false
}

// --- Host mutators ---

// SetDoor sets the physical state of a door portal
func (g *Graph) SetDoor(id PortalID, state DoorState) error {
	p := g.Portal(id)
	if p == nil {
		return fmt.Errorf("set door %d: %w", id, ErrUnknownPortal)
	}
	if p.Door == nil {
		p.Door = &Door{}
	}
	p.Door.State = state
	g.version++
	return nil
}

// PredictDoor sets or clears the predicted door state
func (g *Graph) PredictDoor(id PortalID, state DoorState, active bool) error {
	p := g.Portal(id)
	if p == nil || p.Door == nil {
		return fmt.Errorf("predict door %d: %w", id, ErrUnknownPortal)
	}
	p.Door.Predicted = state
	p.Door.HasPrediction = active
	g.version++
	return nil
}

// SetOpenness sets the open-ness of a free opening, clamped to [0, 1]
func (g *Graph) SetOpenness(id PortalID, v float64) error {
	p := g.Portal(id)
	if p == nil {
		return fmt.Errorf("set openness %d: %w", id, ErrUnknownPortal)
	}
	p.Openness = min(1, max(0, v))
	g.version++
	return nil
}

// SetWaterLevel sets a Space's fill height, clamped to its bounds
func (g *Graph) SetWaterLevel(id SpaceID, level float64) error {
	s := g.Space(id)
	if s == nil {
		return fmt.Errorf("set water %d: %w", id, ErrUnknownSpace)
	}
	s.WaterLevel = min(s.Bounds.Height, max(0, level))
	g.version++
	return nil
}
