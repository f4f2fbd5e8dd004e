package navigation

import (
	"sort"

	"github.com/lixenwraith/muffle/core"
	"github.com/lixenwraith/muffle/parameter"
	"github.com/lixenwraith/muffle/topology"
)

// SpaceSet maps each reachable Space to its hop count from the origin
type SpaceSet map[topology.SpaceID]int

// Has reports membership
func (s SpaceSet) Has(id topology.SpaceID) bool {
	_, ok := s[id]
	return ok
}

// IDs returns members in ascending id order
func (s SpaceSet) IDs() []topology.SpaceID {
	ids := make([]topology.SpaceID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ConnectedSpaces returns every Space reachable from `from` within maxHops portals
// respectClosed stops at closed doors; free openings below minOpenness always stop
// The exterior is never part of the set
func ConnectedSpaces(g *topology.Graph, from topology.SpaceID, respectClosed bool, minOpenness float64, maxHops int) SpaceSet {
	set := make(SpaceSet)
	if g == nil || g.Space(from) == nil {
		return set
	}
	if maxHops <= 0 {
		maxHops = parameter.ConnectedMaxHops
	}

	set[from] = 0
	queue := []topology.SpaceID{from}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		hops := set[cur]
		if hops >= maxHops {
			continue
		}

		for _, pid := range g.Space(cur).Portals {
			p := g.Portal(pid)
			if p == nil {
				continue
			}
			next := p.Other(cur)
			if next == topology.NoSpace || set.Has(next) {
				continue
			}
			if respectClosed && p.Closed() {
				continue
			}
			if !p.Passable(minOpenness) {
				continue
			}
			set[next] = hops + 1
			queue = append(queue, next)
		}
	}

	return set
}

// Propagates returns the first Space of spaces whose bounds, expanded by radius, contain pos
// It decides whether a sound with no path may leak through a wall into the listener's area
func Propagates(g *topology.Graph, pos core.Vec2, spaces SpaceSet, radius float64) (topology.SpaceID, bool) {
	if g == nil || radius < 0 {
		return topology.NoSpace, false
	}
	for _, id := range spaces.IDs() {
		s := g.Space(id)
		if s == nil {
			continue
		}
		if s.Bounds.Expand(radius).Contains(pos) {
			return id, true
		}
	}
	return topology.NoSpace, false
}
