package topology

import (
	"errors"
	"math"
	"testing"

	"github.com/lixenwraith/muffle/core"
)

// twoRooms builds A [0,100]x[0,100] and B [100,200]x[0,100] joined by a door at x=100
func twoRooms(t *testing.T, state DoorState) (*Graph, SpaceID, SpaceID, PortalID) {
	t.Helper()
	g := NewGraph()
	a := g.AddSpace(Space{Name: "a", Bounds: core.Rect{X: 0, Y: 0, Width: 100, Height: 100}})
	b := g.AddSpace(Space{Name: "b", Bounds: core.Rect{X: 100, Y: 0, Width: 100, Height: 100}})
	pid, err := g.AddPortal(Portal{
		A: a, B: b, Openness: 1,
		Door: &Door{State: state},
		Rect: core.Rect{X: 99, Y: 40, Width: 2, Height: 20},
	})
	if err != nil {
		t.Fatalf("AddPortal failed: %v", err)
	}
	return g, a, b, pid
}

// TestGraph_AddPortalValidation verifies endpoint checks
func TestGraph_AddPortalValidation(t *testing.T) {
	g := NewGraph()
	a := g.AddSpace(Space{Name: "a"})

	if _, err := g.AddPortal(Portal{A: a, B: 7}); !errors.Is(err, ErrUnknownSpace) {
		t.Errorf("Expected ErrUnknownSpace, got %v", err)
	}
	if _, err := g.AddPortal(Portal{A: a, B: a}); !errors.Is(err, ErrSelfPortal) {
		t.Errorf("Expected ErrSelfPortal, got %v", err)
	}
	if _, err := g.AddPortal(Portal{A: NoSpace, B: NoSpace}); !errors.Is(err, ErrSelfPortal) {
		t.Errorf("Expected ErrSelfPortal for exterior-exterior, got %v", err)
	}

	pid, err := g.AddPortal(Portal{A: a, B: NoSpace})
	if err != nil {
		t.Fatalf("Expected exterior portal to be accepted, got %v", err)
	}
	if got := g.Space(a).Portals; len(got) != 1 || got[0] != pid {
		t.Errorf("Expected incident list [%d], got %v", pid, got)
	}
	if g.Space(NoSpace) != nil || g.Portal(99) != nil {
		t.Error("Expected nil for invalid ids")
	}
}

// TestGraph_DoorStates verifies prediction and broken door handling
func TestGraph_DoorStates(t *testing.T) {
	g, _, _, pid := twoRooms(t, DoorClosed)
	p := g.Portal(pid)

	if !p.Closed() {
		t.Fatal("Expected closed door")
	}

	if err := g.PredictDoor(pid, DoorOpen, true); err != nil {
		t.Fatalf("PredictDoor failed: %v", err)
	}
	if p.Closed() {
		t.Error("Expected predicted open state to win")
	}

	_ = g.PredictDoor(pid, DoorOpen, false)
	_ = g.SetDoor(pid, DoorBroken)
	if p.Closed() {
		t.Error("Expected broken door to count as open")
	}
	if !p.Passable(0.99) {
		t.Error("Expected doors to be passable regardless of openness")
	}

	if err := g.SetDoor(42, DoorOpen); !errors.Is(err, ErrUnknownPortal) {
		t.Errorf("Expected ErrUnknownPortal, got %v", err)
	}
}

// TestGraph_Water verifies submersion against the surface and the exterior rule
func TestGraph_Water(t *testing.T) {
	g, a, b, _ := twoRooms(t, DoorOpen)
	if err := g.SetWaterLevel(a, 250); err != nil {
		t.Fatalf("SetWaterLevel failed: %v", err)
	}
	if got := g.Space(a).WaterLevel; got != 100 {
		t.Errorf("Expected level clamped to 100, got %v", got)
	}
	_ = g.SetWaterLevel(a, 30)

	tests := []struct {
		name  string
		space SpaceID
		pos   core.Vec2
		want  bool
	}{
		{"below surface", a, core.Vec2{X: 50, Y: 10}, true},
		{"above surface", a, core.Vec2{X: 50, Y: 60}, false},
		{"dry room", b, core.Vec2{X: 150, Y: 1}, false},
		{"exterior", NoSpace, core.Vec2{X: 500, Y: 500}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.SubmergedAt(tt.space, tt.pos); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}

	if f := g.Space(a).WaterFraction(); f != 0.3 {
		t.Errorf("Expected water fraction 0.3, got %v", f)
	}
}

// TestGraph_Lookup verifies position and name lookups
func TestGraph_Lookup(t *testing.T) {
	g, a, b, pid := twoRooms(t, DoorOpen)

	if got := g.SpaceAt(core.Vec2{X: 10, Y: 10}); got != a {
		t.Errorf("Expected space a, got %d", got)
	}
	if got := g.SpaceAt(core.Vec2{X: 150, Y: 10}); got != b {
		t.Errorf("Expected space b, got %d", got)
	}
	if got := g.SpaceAt(core.Vec2{X: -5, Y: 10}); got != NoSpace {
		t.Errorf("Expected exterior, got %d", got)
	}
	if id, ok := g.SpaceByName("b"); !ok || id != b {
		t.Errorf("Expected name lookup for b, got %d %v", id, ok)
	}
	if p, ok := g.SharedPortal(a, b); !ok || p.ID != pid {
		t.Error("Expected shared portal between a and b")
	}
	if _, ok := g.SharedPortal(a, NoSpace); ok {
		t.Error("Expected no portal to exterior")
	}
}

// TestLoadLayout verifies the TOML layout format
func TestLoadLayout(t *testing.T) {
	data := []byte(`
[[space]]
name = "bridge"
rect = [0, 0, 200, 100]

[[space]]
name = "ballast"
rect = [0, -100, 200, 100]
water = 60
structure = 1

[[portal]]
a = "bridge"
b = "ballast"
rect = [90, -1, 20, 2]
horizontal = true
door = "closed"

[[portal]]
a = "bridge"
rect = [199, 40, 2, 20]
openness = 0.5
`)

	g, err := LoadLayout(data)
	if err != nil {
		t.Fatalf("LoadLayout failed: %v", err)
	}
	if g.SpaceCount() != 2 || g.PortalCount() != 2 {
		t.Fatalf("Expected 2 spaces and 2 portals, got %d and %d", g.SpaceCount(), g.PortalCount())
	}

	hatch := g.Portal(0)
	if !hatch.Horizontal || !hatch.Closed() {
		t.Errorf("Expected closed horizontal hatch, got %+v", hatch)
	}
	vent := g.Portal(1)
	if vent.B != NoSpace || vent.Openness != 0.5 || vent.IsDoor() {
		t.Errorf("Expected exterior vent at openness 0.5, got %+v", vent)
	}
	if s := g.Space(1); s.WaterLevel != 60 || s.Structure != 1 {
		t.Errorf("Expected ballast water 60 structure 1, got %+v", s)
	}
}

// TestLoadLayout_Errors verifies malformed layouts are rejected
func TestLoadLayout_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"short rect", "[[space]]\nname = \"a\"\nrect = [0, 0, 1]"},
		{"negative size", "[[space]]\nname = \"a\"\nrect = [0, 0, -1, 1]"},
		{"missing name", "[[space]]\nrect = [0, 0, 1, 1]"},
		{"duplicate name", "[[space]]\nname = \"a\"\nrect = [0, 0, 1, 1]\n[[space]]\nname = \"a\"\nrect = [0, 0, 1, 1]"},
		{"unknown side", "[[space]]\nname = \"a\"\nrect = [0, 0, 1, 1]\n[[portal]]\na = \"a\"\nb = \"zz\"\nrect = [0, 0, 1, 1]"},
		{"bad door", "[[space]]\nname = \"a\"\nrect = [0, 0, 1, 1]\n[[portal]]\na = \"a\"\nrect = [0, 0, 1, 1]\ndoor = \"ajar\""},
		{"syntax", "[[space]\nname = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadLayout([]byte(tt.data)); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

// TestWallCaster verifies wall hits skip portals and merge shared walls
func TestWallCaster(t *testing.T) {
	g, _, _, _ := twoRooms(t, DoorClosed)
	c := NewWallCaster(g)

	// Through the door gap: no walls
	if hits := c.Cast(core.Vec2{X: 50, Y: 50}, core.Vec2{X: 150, Y: 50}, 0); len(hits) != 0 {
		t.Errorf("Expected no hits through the door, got %v", hits)
	}

	// Through the shared wall: one merged hit
	hits := c.Cast(core.Vec2{X: 50, Y: 10}, core.Vec2{X: 150, Y: 10}, 0)
	if len(hits) != 1 {
		t.Fatalf("Expected 1 hit on the shared wall, got %v", hits)
	}
	if hits[0].X != 100 || hits[0].Y != 10 {
		t.Errorf("Expected hit at (100,10), got %v", hits[0])
	}

	// Leaving through the outer wall and back: ordered by distance
	hits = c.Cast(core.Vec2{X: 150, Y: 10}, core.Vec2{X: 150, Y: 150}, 0)
	if len(hits) != 1 || math.Abs(hits[0].Y-100) > 1e-9 {
		t.Errorf("Expected one hit at y=100, got %v", hits)
	}
	hits = c.Cast(core.Vec2{X: -50, Y: 10}, core.Vec2{X: 250, Y: 10}, 0)
	if len(hits) != 3 {
		t.Fatalf("Expected 3 hits across both rooms, got %v", hits)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].X <= hits[i-1].X {
			t.Errorf("Expected hits ordered along the ray, got %v", hits)
		}
	}
}
