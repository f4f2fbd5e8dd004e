package raycast

import (
	"sync"
	"testing"

	"github.com/lixenwraith/muffle/core"
)

type countingCaster struct {
	mu    sync.Mutex
	calls int
	mask  uint32
}

func (c *countingCaster) Cast(origin, target core.Vec2, mask uint32) []core.Vec2 {
	c.mu.Lock()
	c.calls++
	c.mask = mask
	c.mu.Unlock()
	return []core.Vec2{origin.Lerp(target, 0.5)}
}

// TestRequestDrainTake verifies the request → drain → take round trip
func TestRequestDrainTake(t *testing.T) {
	b := NewBuffer()
	c := &countingCaster{}

	b.Request(1, core.Vec2{X: 0, Y: 0}, core.Vec2{X: 10, Y: 0})
	b.Request(1, core.Vec2{X: 0, Y: 0}, core.Vec2{X: 20, Y: 0})
	b.Request(2, core.Vec2{X: 0, Y: 0}, core.Vec2{X: 0, Y: 10})

	if n := b.Drain(c, 7); n != 2 {
		t.Fatalf("Expected 2 casts after replacement, got %d", n)
	}
	if c.mask != 7 {
		t.Errorf("Expected mask 7, got %d", c.mask)
	}

	hits, ok := b.Take(1)
	if !ok || len(hits) != 1 || hits[0].X != 10 {
		t.Fatalf("Expected midpoint of latest request, got %v ok=%v", hits, ok)
	}
	if _, ok := b.Take(1); ok {
		t.Error("Expected result consumed once")
	}
}

// TestForget verifies disposed keys drop their data
func TestForget(t *testing.T) {
	b := NewBuffer()
	b.Request(5, core.Vec2{}, core.Vec2{X: 1})
	b.Forget(5)
	if b.Pending() != 0 {
		t.Errorf("Expected no pending queries, got %d", b.Pending())
	}
	if n := b.Drain(&countingCaster{}, 0); n != 0 {
		t.Errorf("Expected empty drain, got %d", n)
	}
}

// TestFanKeyDistinct verifies fan keys never collide with channel keys
func TestFanKeyDistinct(t *testing.T) {
	if FanKey(0) == Key(0) || FanKey(3) == Key(3) {
		t.Error("Expected reserved fan keys")
	}
	if FanKey(1) == FanKey(2) {
		t.Error("Expected distinct fan keys")
	}
}

// TestConcurrentDrain verifies the physics thread can drain while requests arrive
func TestConcurrentDrain(t *testing.T) {
	b := NewBuffer()
	c := &countingCaster{}
	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				b.Drain(c, 0)
				return
			default:
				b.Drain(c, 0)
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		b.Request(Key(i%8), core.Vec2{}, core.Vec2{X: float64(i)})
		b.Take(Key(i % 8))
	}
	close(done)
	wg.Wait()

	if b.Pending() != 0 {
		t.Errorf("Expected drained buffer, got %d pending", b.Pending())
	}
}
