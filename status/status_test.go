package status

import (
	"sync"
	"sync/atomic"
	"testing"
	"unicode/utf8"
)

// TestMetricMap_StablePointers verifies repeated Get returns the cached pointer
func TestMetricMap_StablePointers(t *testing.T) {
	m := NewMetricMap[atomic.Int64]()
	a := m.Get(KeyTicks)
	b := m.Get(KeyTicks)
	if a != b {
		t.Error("Expected the same pointer for repeated Get")
	}
	if got, ok := m.Lookup(KeyTicks); !ok || got != a {
		t.Error("Expected Lookup to return the registered pointer")
	}
	if _, ok := m.Lookup(KeyChannels); ok {
		t.Error("Expected Lookup miss for unregistered key")
	}
	if m.Count() != 1 {
		t.Errorf("Expected 1 metric, got %d", m.Count())
	}
}

// TestMetricMap_ConcurrentGet verifies racing writers share one metric
func TestMetricMap_ConcurrentGet(t *testing.T) {
	m := NewMetricMap[atomic.Int64]()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Get(KeyBackendFailures).Add(1)
			}
		}()
	}
	wg.Wait()
	if got := m.Get(KeyBackendFailures).Load(); got != 8000 {
		t.Errorf("Expected 8000, got %d", got)
	}
	if m.Count() != 1 {
		t.Errorf("Expected 1 metric, got %d", m.Count())
	}
}

// TestMetricMap_RangeOrder verifies keys are visited sorted
func TestMetricMap_RangeOrder(t *testing.T) {
	m := NewMetricMap[Float]()
	for _, k := range []string{KeySidechain, KeyReverbArea, KeyCloneLive} {
		m.Get(k)
	}
	var keys []string
	m.Range(func(k string, _ *Float) { keys = append(keys, k) })
	want := []string{KeyCloneLive, KeyReverbArea, KeySidechain}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, keys)
		}
	}
}

// TestLabel_Truncates verifies the length cap keeps whole runes
func TestLabel_Truncates(t *testing.T) {
	var l Label
	if l.Load() != "" {
		t.Error("Expected empty zero value")
	}

	long := "abcdefghijklmnopqrstuvwxyz0123456789"
	l.Store(long)
	if got := l.Load(); got != long[:MaxLabelLen] {
		t.Errorf("Expected %q, got %q", long[:MaxLabelLen], got)
	}

	// 31 ASCII bytes then a two-byte rune straddling the cap
	straddle := long[:MaxLabelLen-1] + "é"
	l.Store(straddle)
	got := l.Load()
	if got != long[:MaxLabelLen-1] || !utf8.ValidString(got) {
		t.Errorf("Expected cut before the split rune, got %q", got)
	}
}

// TestRegistry_Snapshot verifies all metric types are flattened
func TestRegistry_Snapshot(t *testing.T) {
	r := NewRegistry()
	r.Ints.Get(KeyTicks).Store(3)
	r.Floats.Get(KeySidechain).Set(0.25)
	r.Bools.Get(KeyBackendSilent).Store(true)
	r.Labels.Get(KeySidechainGroup).Store("alarm")

	snap := r.Snapshot()
	if len(snap) != 4 || r.TotalCount() != 4 {
		t.Fatalf("Expected 4 metrics, got %d", len(snap))
	}
	if snap[KeyTicks] != int64(3) {
		t.Errorf("Expected ticks 3, got %v", snap[KeyTicks])
	}
	if snap[KeySidechain] != 0.25 {
		t.Errorf("Expected sidechain 0.25, got %v", snap[KeySidechain])
	}
	if snap[KeyBackendSilent] != true {
		t.Errorf("Expected silent true, got %v", snap[KeyBackendSilent])
	}
	if snap[KeySidechainGroup] != "alarm" {
		t.Errorf("Expected group alarm, got %v", snap[KeySidechainGroup])
	}
}
