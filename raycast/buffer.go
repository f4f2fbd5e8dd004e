// Package raycast hands wall-occlusion ray queries between the audio update thread and the physics thread
package raycast

import (
	"sync"

	"github.com/lixenwraith/muffle/core"
)

// Caster answers ray queries against the physics world
// Hits are ordered from origin to target
type Caster interface {
	Cast(origin, target core.Vec2, mask uint32) []core.Vec2
}

// Key identifies one outstanding query, typically a channel id
type Key uint64

// FanKey returns the reserved key of ray i in the listener's area fan
func FanKey(i int) Key { return Key(1<<63 | uint64(i)) }

type request struct {
	from, to core.Vec2
}

// Buffer is a locked single-writer/single-reader mailbox
// Thread-Safety:
//   - Request, Take, Forget: audio update thread
//   - Drain: physics thread, casts run outside the lock
//
// A newer request for the same key replaces the pending one; a result is consumed once
type Buffer struct {
	mu      sync.Mutex
	pending map[Key]request
	results map[Key][]core.Vec2
}

// NewBuffer creates an empty buffer
func NewBuffer() *Buffer {
	return &Buffer{
		pending: make(map[Key]request),
		results: make(map[Key][]core.Vec2),
	}
}

// Request queues a cast from→to for key
func (b *Buffer) Request(key Key, from, to core.Vec2) {
	b.mu.Lock()
	b.pending[key] = request{from: from, to: to}
	b.mu.Unlock()
}

// Drain runs every pending query through c and publishes the results
// Returns the number of casts performed
func (b *Buffer) Drain(c Caster, mask uint32) int {
	if c == nil {
		return 0
	}

	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return 0
	}
	batch := b.pending
	b.pending = make(map[Key]request, len(batch))
	b.mu.Unlock()

	done := make(map[Key][]core.Vec2, len(batch))
	for k, r := range batch {
		done[k] = c.Cast(r.from, r.to, mask)
	}

	b.mu.Lock()
	for k, hits := range done {
		b.results[k] = hits
	}
	b.mu.Unlock()
	return len(done)
}

// Take returns and removes the result for key
// ok is false when no result arrived since the last Take
func (b *Buffer) Take(key Key) (hits []core.Vec2, ok bool) {
	b.mu.Lock()
	hits, ok = b.results[key]
	if ok {
		delete(b.results, key)
	}
	b.mu.Unlock()
	return hits, ok
}

// Forget drops pending and published data for a disposed key
func (b *Buffer) Forget(key Key) {
	b.mu.Lock()
	delete(b.pending, key)
	delete(b.results, key)
	b.mu.Unlock()
}

// Pending returns the number of queued queries
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
