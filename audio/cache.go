package audio

import (
	"sync"

	"github.com/gopxl/beep"
)

// sampleCache stores decoded or rendered unity-gain buffers by definition name
type sampleCache struct {
	mu    sync.RWMutex
	store map[string]*beep.Buffer
	load  func(name string) (*beep.Buffer, error)
}

func newSampleCache(load func(name string) (*beep.Buffer, error)) *sampleCache {
	return &sampleCache{
		store: make(map[string]*beep.Buffer),
		load:  load,
	}
}

// get returns the cached buffer or loads it on demand
// Failed loads are not cached so a fixed asset is picked up on the next play
func (c *sampleCache) get(name string) (*beep.Buffer, error) {
	c.mu.RLock()
	if buf, ok := c.store[name]; ok {
		c.mu.RUnlock()
		return buf, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if buf, ok := c.store[name]; ok {
		return buf, nil
	}

	buf, err := c.load(name)
	if err != nil {
		return nil, err
	}
	c.store[name] = buf
	return buf, nil
}

// len returns the number of cached buffers
func (c *sampleCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}
