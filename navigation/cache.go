package navigation

import (
	"github.com/lixenwraith/muffle/topology"
)

// Cache holds the last path results for one emitter/listener pair
// Results are reused until the graph version changes, an anchor Space or search limit changes,
// an endpoint crosses its water surface, or an endpoint moves at least DirtyDistance
type Cache struct {
	DirtyDistance float64

	single cacheEntry
	multi  cacheEntry
	n      int

	computes int
}

type cacheEntry struct {
	req     Request
	version uint64
	valid   bool
	paths   []Path

	// Endpoint submersion at store time; crossing counts flip with it
	startSub, endSub bool
}

// NewCache creates a cache with the given movement tolerance
func NewCache(dirtyDistance float64) *Cache {
	return &Cache{DirtyDistance: dirtyDistance}
}

// Find returns the cached FindPath result or recomputes it
func (c *Cache) Find(g *topology.Graph, req Request) Path {
	if !c.fresh(&c.single, g, req) {
		c.store(&c.single, g, req, []Path{FindPath(g, req)})
	}
	return c.single.paths[0]
}

// FindN returns the cached FindPaths result or recomputes it
func (c *Cache) FindN(g *topology.Graph, req Request, n int) []Path {
	if c.n != n || !c.fresh(&c.multi, g, req) {
		c.n = n
		c.store(&c.multi, g, req, FindPaths(g, req, n))
	}
	return c.multi.paths
}

// MarkDirty forces recomputation on next use
func (c *Cache) MarkDirty() {
	c.single.valid = false
	c.multi.valid = false
}

// Computes returns how many searches ran
func (c *Cache) Computes() int { return c.computes }

func (c *Cache) store(e *cacheEntry, g *topology.Graph, req Request, paths []Path) {
	e.req = req
	e.paths = paths
	e.valid = true
	e.version = 0
	e.startSub, e.endSub = submerged(g, req)
	if g != nil {
		e.version = g.Version()
	}
	c.computes++
}

func (c *Cache) fresh(e *cacheEntry, g *topology.Graph, req Request) bool {
	if !e.valid {
		return false
	}
	if g != nil && g.Version() != e.version {
		return false
	}
	old := e.req
	if old.StartSpace != req.StartSpace || old.EndSpace != req.EndSpace ||
		old.Ignored != req.Ignored || old.DoorMode != req.DoorMode ||
		old.MaxDistance != req.MaxDistance || old.MinOpenness != req.MinOpenness ||
		old.DoorDistanceMultiplier != req.DoorDistanceMultiplier || old.MaxDepth != req.MaxDepth {
		return false
	}
	if startSub, endSub := submerged(g, req); startSub != e.startSub || endSub != e.endSub {
		return false
	}
	return old.Start.Dist(req.Start) < c.DirtyDistance && old.End.Dist(req.End) < c.DirtyDistance
}

func submerged(g *topology.Graph, req Request) (start, end bool) {
	if g == nil {
		return false, false
	}
	return g.SubmergedAt(req.StartSpace, req.Start), g.SubmergedAt(req.EndSpace, req.End)
}
