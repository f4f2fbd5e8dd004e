package topology

import (
	"sort"

	"github.com/lixenwraith/muffle/core"
)

// hitMergeDistance merges hits on walls shared by adjacent spaces
const hitMergeDistance = 1e-6

// WallCaster answers ray queries against space boundaries
// A boundary crossing counts as a wall hit unless it falls inside a portal rectangle
// It stands in for a physics world in tools and tests
type WallCaster struct {
	Graph *Graph

	// PortalSlack grows portal rectangles when testing whether a hit passes through an opening
	PortalSlack float64
}

// NewWallCaster creates a caster over g
func NewWallCaster(g *Graph) *WallCaster {
	return &WallCaster{Graph: g, PortalSlack: 0.5}
}

// Cast returns wall hit points along origin→target ordered by distance from origin
// Doors are not walls: closed doors are counted by the path search instead
// mask is accepted for interface compatibility; all boundaries share one layer
func (c *WallCaster) Cast(origin, target core.Vec2, mask uint32) []core.Vec2 {
	if c == nil || c.Graph == nil || origin.Equal(target) {
		return nil
	}

	type hit struct {
		p core.Vec2
		t float64
	}
	var hits []hit

	c.Graph.Spaces(func(s *Space) bool {
		for _, e := range s.Bounds.Edges() {
			p, t, ok := core.SegmentIntersect(origin, target, e[0], e[1])
			if !ok || c.inOpening(s, p) {
				continue
			}
			hits = append(hits, hit{p: p, t: t})
		}
		return true
	})
	if len(hits) == 0 {
		return nil
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].t < hits[j].t })

	out := make([]core.Vec2, 0, len(hits))
	for i, h := range hits {
		if i > 0 && h.p.Dist(out[len(out)-1]) < hitMergeDistance {
			continue
		}
		out = append(out, h.p)
	}
	return out
}

// inOpening reports whether p lies within any portal rectangle of s
func (c *WallCaster) inOpening(s *Space, p core.Vec2) bool {
	for _, pid := range s.Portals {
		portal := c.Graph.Portal(pid)
		if portal == nil {
			continue
		}
		if portal.Rect.Expand(c.PortalSlack).Contains(p) {
			return true
		}
	}
	return false
}
