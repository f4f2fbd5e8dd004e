package engine

import (
	"testing"
	"time"
)

// TestSystemClockAdvances verifies the real clock moves forward
func TestSystemClockAdvances(t *testing.T) {
	var c SystemClock
	t1 := c.Now()
	time.Sleep(10 * time.Millisecond)
	if diff := c.Now().Sub(t1); diff < 10*time.Millisecond {
		t.Errorf("Expected at least 10ms difference, got %v", diff)
	}
}

// TestManualClock verifies Set and Advance
func TestManualClock(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)

	if now := c.Now(); !now.Equal(start) {
		t.Errorf("Expected initial time %v, got %v", start, now)
	}

	c.Advance(30 * time.Minute)
	c.Advance(15 * time.Minute)
	if now, want := c.Now(), start.Add(45*time.Minute); !now.Equal(want) {
		t.Errorf("Expected %v after advances, got %v", want, now)
	}

	earlier := start.Add(-time.Hour)
	c.Set(earlier)
	if now := c.Now(); !now.Equal(earlier) {
		t.Errorf("Expected %v after Set, got %v", earlier, now)
	}
}
