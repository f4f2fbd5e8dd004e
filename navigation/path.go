package navigation

import (
	"math"
	"sort"

	"github.com/lixenwraith/muffle/core"
	"github.com/lixenwraith/muffle/parameter"
	"github.com/lixenwraith/muffle/topology"
)

// DoorMode selects how closed doors on a path are accounted
type DoorMode int

const (
	// DoorCount traverses closed doors and counts them
	DoorCount DoorMode = iota
	// DoorDistance traverses closed doors and lengthens the leg instead
	DoorDistance
)

// Request describes one path query between an emitter and a listener
type Request struct {
	Start, End           core.Vec2
	StartSpace, EndSpace topology.SpaceID
	MaxDistance          float64

	// Ignored is always treated as open, NoPortal for none
	Ignored topology.PortalID

	DoorMode               DoorMode
	DoorDistanceMultiplier float64
	MinOpenness            float64
	MaxDepth               int
}

// NewRequest creates a request with default limits
func NewRequest(start, end core.Vec2, startSpace, endSpace topology.SpaceID) Request {
	return Request{
		Start:                  start,
		End:                    end,
		StartSpace:             startSpace,
		EndSpace:               endSpace,
		MaxDistance:            parameter.PathMaxDistance,
		Ignored:                topology.NoPortal,
		DoorMode:               DoorCount,
		DoorDistanceMultiplier: parameter.PathDoorDistanceMultiplier,
		MinOpenness:            parameter.PathMinOpenness,
		MaxDepth:               parameter.PathMaxDepth,
	}
}

// Path is the result of a graph search
type Path struct {
	Found          bool
	Distance       float64 // +Inf when not found
	ClosedDoors    int
	WaterCrossings int
	Hops           int // Portals traversed

	// LastPoint is the final portal crossing before End, Start for a direct path
	LastPoint     core.Vec2
	ArrivalPortal topology.PortalID
}

// NoPath is the result for unreachable endpoints
var NoPath = Path{Distance: math.Inf(1), ArrivalPortal: topology.NoPortal}

// frame is one space on the explicit DFS stack
type frame struct {
	space     topology.SpaceID
	entry     core.Vec2
	dist      float64
	doors     int
	crossings int
	via       topology.PortalID
	next      int // Index into the space's portal list
}

// walker runs the stack search shared by FindPath and FindPaths
type walker struct {
	g       *topology.Graph
	req     Request
	visited []bool
	stack   []frame
}

func newWalker(g *topology.Graph, req Request) *walker {
	if req.MaxDepth <= 0 {
		req.MaxDepth = parameter.PathMaxDepth
	}
	if req.MaxDistance <= 0 || math.IsNaN(req.MaxDistance) {
		req.MaxDistance = parameter.PathMaxDistance
	}
	if req.DoorDistanceMultiplier < 1 {
		req.DoorDistanceMultiplier = 1
	}
	return &walker{
		g:       g,
		req:     req,
		visited: make([]bool, g.SpaceCount()),
		stack:   make([]frame, 0, 16),
	}
}

// anchors applies the exterior rules; searched false means direct is the final result
func anchors(g *topology.Graph, req Request) (direct Path, searched bool) {
	if req.StartSpace == topology.NoSpace && req.EndSpace == topology.NoSpace {
		d := req.Start.Dist(req.End)
		if d >= req.MaxDistance && req.MaxDistance > 0 {
			return NoPath, false
		}
		return Path{
			Found:         true,
			Distance:      d,
			LastPoint:     req.Start,
			ArrivalPortal: topology.NoPortal,
		}, false
	}
	if g == nil || g.Space(req.StartSpace) == nil || g.Space(req.EndSpace) == nil {
		return NoPath, false
	}
	return Path{}, true
}

// FindPath returns the first path found from StartSpace to EndSpace
// Portals are tried in insertion order and each Space is entered at most once,
// so the result is deterministic but not necessarily the shortest
func FindPath(g *topology.Graph, req Request) Path {
	direct, ok := anchors(g, req)
	if !ok {
		return direct
	}

	w := newWalker(g, req)
	result := NoPath
	w.run(false, func(p Path) bool {
		result = p
		return true
	})
	return result
}

// FindPaths returns up to n distinct paths ordered by distance
// Paths are distinct by arrival portal; for each arrival the shortest is kept
// Enumeration is bounded by MaxDepth and parameter.PathExpansionBudget
func FindPaths(g *topology.Graph, req Request, n int) []Path {
	if n <= 0 {
		return nil
	}
	direct, ok := anchors(g, req)
	if !ok {
		if direct.Found {
			return []Path{direct}
		}
		return nil
	}

	w := newWalker(g, req)
	best := make(map[topology.PortalID]Path)
	w.run(true, func(p Path) bool {
		if cur, exists := best[p.ArrivalPortal]; !exists || p.Distance < cur.Distance {
			best[p.ArrivalPortal] = p
		}
		return false
	})

	out := make([]Path, 0, len(best))
	for _, p := range best {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ArrivalPortal < out[j].ArrivalPortal
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// run walks the graph; emit returns true to stop the search
// backtrack unmarks spaces on pop so every simple path is enumerable
func (w *walker) run(backtrack bool, emit func(Path) bool) {
	req := w.req
	w.visited[req.StartSpace] = true
	w.stack = append(w.stack, frame{
		space: req.StartSpace,
		entry: req.Start,
		via:   topology.NoPortal,
	})

	budget := parameter.PathExpansionBudget

	for len(w.stack) > 0 {
		top := &w.stack[len(w.stack)-1]
		space := w.g.Space(top.space)

		if top.space == req.EndSpace {
			p := w.arrive(top, space)
			w.pop(backtrack)
			if p.Found && emit(p) {
				return
			}
			continue
		}

		depth := len(w.stack) - 1
		if top.next >= len(space.Portals) || depth >= req.MaxDepth {
			w.pop(backtrack)
			continue
		}

		pid := space.Portals[top.next]
		top.next++

		portal := w.g.Portal(pid)
		if portal == nil {
			continue
		}
		other := portal.Other(top.space)
		if other == topology.NoSpace || w.visited[other] {
			continue
		}
		ignored := pid == req.Ignored
		if !ignored && !portal.Passable(req.MinOpenness) {
			continue
		}

		cross := CrossingPoint(portal, req.Start, req.End)
		leg := top.entry.Dist(cross)
		doors := top.doors
		if portal.Closed() && !ignored {
			if req.DoorMode == DoorDistance {
				leg *= req.DoorDistanceMultiplier
			} else {
				doors++
			}
		}

		dist := top.dist + leg
		if dist >= req.MaxDistance {
			continue
		}

		if backtrack {
			if budget <= 0 {
				return
			}
			budget--
		}

		crossings := top.crossings + legCrossings(space, top.entry, cross)
		w.visited[other] = true
		w.stack = append(w.stack, frame{
			space:     other,
			entry:     cross,
			dist:      dist,
			doors:     doors,
			crossings: crossings,
			via:       pid,
		})
	}
}

func (w *walker) pop(backtrack bool) {
	f := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	if backtrack && f.space != w.req.StartSpace {
		w.visited[f.space] = false
	}
}

// arrive closes the final leg inside the end space
func (w *walker) arrive(f *frame, space *topology.Space) Path {
	dist := f.dist + f.entry.Dist(w.req.End)
	if dist >= w.req.MaxDistance {
		return NoPath
	}
	return Path{
		Found:          true,
		Distance:       dist,
		ClosedDoors:    f.doors,
		WaterCrossings: f.crossings + legCrossings(space, f.entry, w.req.End),
		Hops:           len(w.stack) - 1,
		LastPoint:      f.entry,
		ArrivalPortal:  f.via,
	}
}

// CrossingPoint returns where the start→end line passes the portal's centre line,
// clamped into the portal rectangle
// Vertical portals solve for y at the centre x, horizontal portals for x at the centre y
func CrossingPoint(p *topology.Portal, start, end core.Vec2) core.Vec2 {
	c := p.Rect.Center()
	d := end.Sub(start)

	if p.Horizontal {
		if math.Abs(d.Y) < 1e-9 {
			return c
		}
		t := (c.Y - start.Y) / d.Y
		x := start.X + t*d.X
		return core.Vec2{X: min(p.Rect.Right(), max(p.Rect.X, x)), Y: c.Y}
	}

	if math.Abs(d.X) < 1e-9 {
		return c
	}
	t := (c.X - start.X) / d.X
	y := start.Y + t*d.Y
	return core.Vec2{X: c.X, Y: min(p.Rect.Top(), max(p.Rect.Y, y))}
}

// legCrossings returns 1 when a leg inside space passes through its water surface
func legCrossings(space *topology.Space, a, b core.Vec2) int {
	if space == nil || space.WaterLevel <= 0 {
		return 0
	}
	if space.Submerged(a) != space.Submerged(b) {
		return 1
	}
	return 0
}
