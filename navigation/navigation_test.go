package navigation

import (
	"math"
	"testing"

	"github.com/lixenwraith/muffle/core"
	"github.com/lixenwraith/muffle/topology"
)

const tolerance = 1e-9

// doorPair builds A [0,100]² and B [100,200]x[0,100] joined by one door at x=100
func doorPair(t *testing.T, state topology.DoorState) (*topology.Graph, topology.SpaceID, topology.SpaceID, topology.PortalID) {
	t.Helper()
	g := topology.NewGraph()
	a := g.AddSpace(topology.Space{Name: "a", Bounds: core.Rect{X: 0, Y: 0, Width: 100, Height: 100}})
	b := g.AddSpace(topology.Space{Name: "b", Bounds: core.Rect{X: 100, Y: 0, Width: 100, Height: 100}})
	pid, err := g.AddPortal(topology.Portal{
		A: a, B: b, Openness: 1,
		Door: &topology.Door{State: state},
		Rect: core.Rect{X: 99, Y: 40, Width: 2, Height: 20},
	})
	if err != nil {
		t.Fatalf("AddPortal failed: %v", err)
	}
	return g, a, b, pid
}

// triangle builds A, B below C with open portals A-B, B-C, C-A in that order
func triangle(t *testing.T) (*topology.Graph, [3]topology.SpaceID, [3]topology.PortalID) {
	t.Helper()
	g := topology.NewGraph()
	a := g.AddSpace(topology.Space{Name: "a", Bounds: core.Rect{X: 0, Y: 0, Width: 100, Height: 100}})
	b := g.AddSpace(topology.Space{Name: "b", Bounds: core.Rect{X: 100, Y: 0, Width: 100, Height: 100}})
	c := g.AddSpace(topology.Space{Name: "c", Bounds: core.Rect{X: 0, Y: 100, Width: 200, Height: 100}})

	mk := func(p topology.Portal) topology.PortalID {
		id, err := g.AddPortal(p)
		if err != nil {
			t.Fatalf("AddPortal failed: %v", err)
		}
		return id
	}
	ab := mk(topology.Portal{A: a, B: b, Openness: 1, Rect: core.Rect{X: 99, Y: 40, Width: 2, Height: 20}})
	bc := mk(topology.Portal{A: b, B: c, Openness: 1, Horizontal: true, Rect: core.Rect{X: 140, Y: 99, Width: 20, Height: 2}})
	ca := mk(topology.Portal{A: c, B: a, Openness: 1, Horizontal: true, Rect: core.Rect{X: 40, Y: 99, Width: 20, Height: 2}})
	return g, [3]topology.SpaceID{a, b, c}, [3]topology.PortalID{ab, bc, ca}
}

// TestFindPath_ClosedDoor verifies one closed door is counted and distance stays Euclidean
func TestFindPath_ClosedDoor(t *testing.T) {
	g, a, b, pid := doorPair(t, topology.DoorClosed)
	start := core.Vec2{X: 50, Y: 50}
	end := core.Vec2{X: 150, Y: 50}

	p := FindPath(g, NewRequest(start, end, a, b))
	if !p.Found {
		t.Fatal("Expected path through closed door")
	}
	if p.ClosedDoors != 1 {
		t.Errorf("Expected 1 closed door, got %d", p.ClosedDoors)
	}
	if math.Abs(p.Distance-start.Dist(end)) > tolerance {
		t.Errorf("Expected Euclidean distance %v, got %v", start.Dist(end), p.Distance)
	}
	if p.Hops != 1 || p.ArrivalPortal != pid {
		t.Errorf("Expected 1 hop via portal %d, got %d via %d", pid, p.Hops, p.ArrivalPortal)
	}
	if !p.LastPoint.Equal(core.Vec2{X: 100, Y: 50}) {
		t.Errorf("Expected last point (100,50), got %v", p.LastPoint)
	}

	// Ignored door counts as open
	req := NewRequest(start, end, a, b)
	req.Ignored = pid
	if p := FindPath(g, req); p.ClosedDoors != 0 {
		t.Errorf("Expected ignored door to be open, got %d closed", p.ClosedDoors)
	}

	// Open door
	_ = g.SetDoor(pid, topology.DoorOpen)
	if p := FindPath(g, NewRequest(start, end, a, b)); p.ClosedDoors != 0 {
		t.Errorf("Expected 0 closed doors after opening, got %d", p.ClosedDoors)
	}
}

// TestFindPath_DoorDistanceMode verifies closed doors lengthen the leg instead of counting
func TestFindPath_DoorDistanceMode(t *testing.T) {
	g, a, b, _ := doorPair(t, topology.DoorClosed)
	req := NewRequest(core.Vec2{X: 50, Y: 50}, core.Vec2{X: 150, Y: 50}, a, b)
	req.DoorMode = DoorDistance
	req.DoorDistanceMultiplier = 2

	p := FindPath(g, req)
	if !p.Found || p.ClosedDoors != 0 {
		t.Fatalf("Expected uncounted path, got %+v", p)
	}
	if math.Abs(p.Distance-150) > tolerance {
		t.Errorf("Expected distance 150, got %v", p.Distance)
	}
}

// TestFindPath_Cycle verifies termination and the distance of the first path found on a 3-cycle
func TestFindPath_Cycle(t *testing.T) {
	g, s, _ := triangle(t)
	start := core.Vec2{X: 50, Y: 50}
	end := core.Vec2{X: 150, Y: 150}

	p := FindPath(g, NewRequest(start, end, s[0], s[2]))
	if !p.Found {
		t.Fatal("Expected path on cycle")
	}
	// Insertion order takes A→B→C: (50,50)→(100,60)→(140,100)→(150,150)
	want := 2*math.Sqrt(2600) + math.Sqrt(3200)
	if math.Abs(p.Distance-want) > tolerance {
		t.Errorf("Expected distance %v, got %v", want, p.Distance)
	}
	if p.Hops != 2 {
		t.Errorf("Expected 2 hops, got %d", p.Hops)
	}

	// Unreachable space in a cyclic graph still terminates
	d := g.AddSpace(topology.Space{Name: "d", Bounds: core.Rect{X: 500, Y: 0, Width: 10, Height: 10}})
	p = FindPath(g, NewRequest(start, core.Vec2{X: 505, Y: 5}, s[0], d))
	if p.Found || !math.IsInf(p.Distance, 1) {
		t.Errorf("Expected no path, got %+v", p)
	}
}

// TestFindPaths_Distinct verifies top-N enumeration sorted by distance
func TestFindPaths_Distinct(t *testing.T) {
	g, s, pids := triangle(t)
	req := NewRequest(core.Vec2{X: 50, Y: 50}, core.Vec2{X: 150, Y: 150}, s[0], s[2])

	paths := FindPaths(g, req, 3)
	if len(paths) != 2 {
		t.Fatalf("Expected 2 distinct arrivals, got %d", len(paths))
	}
	if paths[0].ArrivalPortal != pids[2] || paths[1].ArrivalPortal != pids[1] {
		t.Errorf("Expected arrivals [%d %d], got [%d %d]", pids[2], pids[1], paths[0].ArrivalPortal, paths[1].ArrivalPortal)
	}
	if paths[0].Distance > paths[1].Distance {
		t.Error("Expected ascending distance order")
	}
	wantDirect := math.Sqrt(2600) + math.Sqrt(10600)
	if math.Abs(paths[0].Distance-wantDirect) > tolerance {
		t.Errorf("Expected direct distance %v, got %v", wantDirect, paths[0].Distance)
	}

	if got := FindPaths(g, req, 1); len(got) != 1 || got[0].ArrivalPortal != pids[2] {
		t.Errorf("Expected truncation to the shortest path, got %+v", got)
	}
	if got := FindPaths(g, req, 0); got != nil {
		t.Errorf("Expected nil for n=0, got %+v", got)
	}
}

// TestFindPath_Limits verifies max distance, max depth and openness pruning
func TestFindPath_Limits(t *testing.T) {
	g, a, b, _ := doorPair(t, topology.DoorOpen)
	start := core.Vec2{X: 50, Y: 50}
	end := core.Vec2{X: 150, Y: 50}

	req := NewRequest(start, end, a, b)
	req.MaxDistance = 80
	if p := FindPath(g, req); p.Found {
		t.Error("Expected pruning beyond max distance")
	}

	// Chain of 4 spaces joined by openings, depth capped at 2
	chain := topology.NewGraph()
	var ids []topology.SpaceID
	for i := 0; i < 4; i++ {
		ids = append(ids, chain.AddSpace(topology.Space{Bounds: core.Rect{X: float64(i * 100), Width: 100, Height: 100}}))
	}
	var vent topology.PortalID
	for i := 0; i < 3; i++ {
		id, _ := chain.AddPortal(topology.Portal{
			A: ids[i], B: ids[i+1], Openness: 1,
			Rect: core.Rect{X: float64(i*100+99), Y: 40, Width: 2, Height: 20},
		})
		if i == 0 {
			vent = id
		}
	}
	req = NewRequest(core.Vec2{X: 50, Y: 50}, core.Vec2{X: 350, Y: 50}, ids[0], ids[3])
	if p := FindPath(chain, req); !p.Found || p.Hops != 3 {
		t.Fatalf("Expected 3-hop path, got %+v", p)
	}
	req.MaxDepth = 2
	if p := FindPath(chain, req); p.Found {
		t.Error("Expected depth cap to stop the search")
	}

	// Sealed opening blocks unless ignored
	_ = chain.SetOpenness(vent, 0.05)
	req.MaxDepth = 0
	if p := FindPath(chain, req); p.Found {
		t.Error("Expected sealed opening to block")
	}
	req.Ignored = vent
	if p := FindPath(chain, req); !p.Found {
		t.Error("Expected ignored opening to pass")
	}
}

// TestFindPath_Exterior verifies the anchor rules for the exterior
func TestFindPath_Exterior(t *testing.T) {
	g, a, _, _ := doorPair(t, topology.DoorOpen)
	start := core.Vec2{X: -100, Y: 0}
	end := core.Vec2{X: -100, Y: 300}

	p := FindPath(g, NewRequest(start, end, topology.NoSpace, topology.NoSpace))
	if !p.Found || p.Distance != 300 || p.Hops != 0 {
		t.Errorf("Expected straight exterior path of 300, got %+v", p)
	}

	p = FindPath(g, NewRequest(start, core.Vec2{X: 50, Y: 50}, topology.NoSpace, a))
	if p.Found || !math.IsInf(p.Distance, 1) {
		t.Errorf("Expected no path between exterior and interior, got %+v", p)
	}

	p = FindPath(g, NewRequest(start, end, a, 42))
	if p.Found {
		t.Error("Expected no path to an unknown space")
	}
}

// TestFindPath_WaterCrossings verifies surface crossings are counted per leg
func TestFindPath_WaterCrossings(t *testing.T) {
	g, a, b, _ := doorPair(t, topology.DoorOpen)
	_ = g.SetWaterLevel(a, 30)

	// Submerged start, dry end: leg in A rises through the surface
	p := FindPath(g, NewRequest(core.Vec2{X: 50, Y: 10}, core.Vec2{X: 150, Y: 90}, a, b))
	if p.WaterCrossings != 1 {
		t.Errorf("Expected 1 crossing, got %d", p.WaterCrossings)
	}

	// Both submerged in the same space: continuous medium
	p = FindPath(g, NewRequest(core.Vec2{X: 10, Y: 10}, core.Vec2{X: 90, Y: 20}, a, a))
	if p.WaterCrossings != 0 || p.Hops != 0 {
		t.Errorf("Expected direct path without crossings, got %+v", p)
	}

	// Same space straddling the surface
	p = FindPath(g, NewRequest(core.Vec2{X: 10, Y: 10}, core.Vec2{X: 90, Y: 80}, a, a))
	if p.WaterCrossings != 1 {
		t.Errorf("Expected 1 crossing when straddling, got %d", p.WaterCrossings)
	}
}

// TestConnectedSpaces verifies closed doors and hop limits
func TestConnectedSpaces(t *testing.T) {
	g, a, b, pid := doorPair(t, topology.DoorClosed)

	set := ConnectedSpaces(g, a, true, 0.1, 0)
	if len(set) != 1 || !set.Has(a) {
		t.Errorf("Expected only the origin behind a closed door, got %v", set.IDs())
	}

	set = ConnectedSpaces(g, a, false, 0.1, 0)
	if !set.Has(b) || set[b] != 1 {
		t.Errorf("Expected b at 1 hop when closed doors are ignored, got %v", set)
	}

	_ = g.SetDoor(pid, topology.DoorOpen)
	if set := ConnectedSpaces(g, a, true, 0.1, 0); len(set) != 2 {
		t.Errorf("Expected 2 spaces with the door open, got %v", set.IDs())
	}

	g2, s, _ := triangle(t)
	if set := ConnectedSpaces(g2, s[0], true, 0.1, 1); len(set) != 3 {
		t.Errorf("Expected all 3 spaces within 1 hop on a triangle, got %v", set.IDs())
	}

	if set := ConnectedSpaces(g, topology.NoSpace, true, 0.1, 0); len(set) != 0 {
		t.Errorf("Expected empty set from the exterior, got %v", set)
	}
}

// TestPropagates verifies leakage detection by expanded bounds
func TestPropagates(t *testing.T) {
	g, a, b, _ := doorPair(t, topology.DoorClosed)
	listenerSet := SpaceSet{b: 0}

	if id, ok := Propagates(g, core.Vec2{X: 95, Y: 10}, listenerSet, 10); !ok || id != b {
		t.Errorf("Expected leakage into b, got %d %v", id, ok)
	}
	if _, ok := Propagates(g, core.Vec2{X: 20, Y: 10}, listenerSet, 10); ok {
		t.Error("Expected no leakage from deep inside a")
	}
	if _, ok := Propagates(g, core.Vec2{X: 95, Y: 10}, SpaceSet{a: 0}, -1); ok {
		t.Error("Expected negative radius to disable propagation")
	}
}

// TestCache verifies reuse and invalidation by version and movement
func TestCache(t *testing.T) {
	g, a, b, pid := doorPair(t, topology.DoorClosed)
	c := NewCache(5)
	req := NewRequest(core.Vec2{X: 50, Y: 50}, core.Vec2{X: 150, Y: 50}, a, b)

	first := c.Find(g, req)
	second := c.Find(g, req)
	if first != second || c.Computes() != 1 {
		t.Errorf("Expected cached result, computes=%d", c.Computes())
	}

	// Small move stays cached
	req.Start.X += 2
	c.Find(g, req)
	if c.Computes() != 1 {
		t.Errorf("Expected no recompute for a small move, computes=%d", c.Computes())
	}

	// Door change bumps the graph version
	_ = g.SetDoor(pid, topology.DoorOpen)
	if p := c.Find(g, req); p.ClosedDoors != 0 || c.Computes() != 2 {
		t.Errorf("Expected recompute after door change, got %+v computes=%d", p, c.Computes())
	}

	// Large move recomputes
	req.End.X += 20
	c.Find(g, req)
	if c.Computes() != 3 {
		t.Errorf("Expected recompute after endpoint moved, computes=%d", c.Computes())
	}

	// Multi-path entry is independent
	c.FindN(g, req, 2)
	c.FindN(g, req, 2)
	c.Find(g, req)
	if c.Computes() != 4 {
		t.Errorf("Expected one multi-path compute, computes=%d", c.Computes())
	}

	c.MarkDirty()
	c.Find(g, req)
	if c.Computes() != 5 {
		t.Errorf("Expected recompute after MarkDirty, computes=%d", c.Computes())
	}
}

// TestCache_SurfaceCrossing verifies an endpoint crossing the water surface within the dirty radius recomputes
func TestCache_SurfaceCrossing(t *testing.T) {
	g, a, b, _ := doorPair(t, topology.DoorOpen)
	_ = g.SetWaterLevel(a, 30)
	c := NewCache(5)

	req := NewRequest(core.Vec2{X: 50, Y: 29}, core.Vec2{X: 150, Y: 90}, a, b)
	if p := c.Find(g, req); p.WaterCrossings != 1 {
		t.Fatalf("Expected 1 crossing from below the surface, got %d", p.WaterCrossings)
	}

	req.Start.Y = 31
	if p := c.Find(g, req); p.WaterCrossings != 0 || c.Computes() != 2 {
		t.Errorf("Expected recompute with no crossing, got %d crossings computes=%d", p.WaterCrossings, c.Computes())
	}

	req.Start.Y = 33
	c.Find(g, req)
	if c.Computes() != 2 {
		t.Errorf("Expected dry move to stay cached, computes=%d", c.Computes())
	}
}

// TestCache_LimitsChange verifies every search limit is part of the cache key
func TestCache_LimitsChange(t *testing.T) {
	g, a, b, _ := doorPair(t, topology.DoorClosed)
	base := NewRequest(core.Vec2{X: 50, Y: 50}, core.Vec2{X: 150, Y: 50}, a, b)

	tests := []struct {
		name   string
		modify func(*Request)
	}{
		{"max_distance", func(r *Request) { r.MaxDistance /= 2 }},
		{"min_openness", func(r *Request) { r.MinOpenness += 0.1 }},
		{"door_mode", func(r *Request) { r.DoorMode = DoorDistance }},
		{"door_multiplier", func(r *Request) { r.DoorDistanceMultiplier += 1 }},
		{"max_depth", func(r *Request) { r.MaxDepth = 1 }},
		{"ignored", func(r *Request) { r.Ignored = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCache(5)
			c.Find(g, base)
			req := base
			tt.modify(&req)
			c.Find(g, req)
			if c.Computes() != 2 {
				t.Errorf("Expected recompute, computes=%d", c.Computes())
			}
		})
	}
}
