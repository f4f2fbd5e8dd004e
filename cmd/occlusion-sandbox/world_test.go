package main

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/muffle/audio"
	"github.com/lixenwraith/muffle/config"
	"github.com/lixenwraith/muffle/engine"
	"github.com/lixenwraith/muffle/topology"
)

func testWorld(t *testing.T) *world {
	t.Helper()
	cfg := config.Default()
	cfg.Audio.Enabled = false
	sc, err := loadScene(defaultScene, cfg)
	if err != nil {
		t.Fatalf("Default scene failed to load: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := audio.NewEngine(cfg, nil, logger)
	t.Cleanup(func() { backend.Close() })
	eng := engine.New(sc.graph, sc.catalog, backend, cfg, engine.WithLogger(logger))
	t.Cleanup(func() { eng.Close() })
	return newWorld(sc, eng)
}

// TestDefaultSceneLoads verifies the embedded scene resolves every emitter
func TestDefaultSceneLoads(t *testing.T) {
	w := testWorld(t)
	if w.graph.SpaceCount() != 4 || w.graph.PortalCount() != 4 {
		t.Errorf("Expected 4 spaces and 4 portals, got %d/%d", w.graph.SpaceCount(), w.graph.PortalCount())
	}
	if len(w.emitters) != 4 {
		t.Errorf("Expected 4 emitters, got %d", len(w.emitters))
	}
	if _, ok := w.catalog.Lookup("alarm"); !ok {
		t.Error("Expected alarm in catalog")
	}
	if name := w.graph.Space(w.input.Space).Name; name != "bridge" {
		t.Errorf("Expected listener on the bridge, got %s", name)
	}
}

// TestSceneErrors verifies malformed scenes are rejected
func TestSceneErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ``},
		{"unknown sound", "[[space]]\nname = \"a\"\nrect = [0.0, 0.0, 10.0, 10.0]\n[[emitter]]\nsound = \"ghost\"\npos = [1.0, 1.0]\n"},
		{"bad category", "[[space]]\nname = \"a\"\nrect = [0.0, 0.0, 10.0, 10.0]\n[[sound]]\nname = \"x\"\ncategory = \"song\"\n"},
		{"bad point", "listener = [1.0]\n[[space]]\nname = \"a\"\nrect = [0.0, 0.0, 10.0, 10.0]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadScene([]byte(tt.data), config.Default()); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

// TestWorldSpawnAndTick verifies emitters become classified channels
func TestWorldSpawnAndTick(t *testing.T) {
	w := testWorld(t)
	if err := w.spawn(); err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	r := w.tick(0)
	if len(r.Channels) != 4 {
		t.Fatalf("Expected 4 channel reports, got %d", len(r.Channels))
	}
	for _, ch := range r.Channels {
		if ch.Sound == "radio" && ch.Obstructions != "none" {
			t.Errorf("Expected radio unobstructed, got %s", ch.Obstructions)
		}
		if ch.Sound == "pump" && ch.Tier == "none" {
			t.Error("Expected pump behind a closed door to be muffled")
		}
	}
}

// TestWorldToggleDoor verifies the nearest door flips state
func TestWorldToggleDoor(t *testing.T) {
	w := testWorld(t)
	w.input.Position.X = 290
	w.input.Space = w.graph.SpaceAt(w.input.Position)

	p, ok := w.nearestDoor()
	if !ok || !p.Closed() {
		t.Fatal("Expected the closed bridge door nearest")
	}
	if err := w.toggleDoor(); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if p.Closed() {
		t.Error("Expected door open after toggle")
	}
	w.toggleDoor()
	if !p.Closed() {
		t.Error("Expected door closed after second toggle")
	}
}

// TestWorldFlood verifies water changes clamp to the space height
func TestWorldFlood(t *testing.T) {
	w := testWorld(t)
	s := w.graph.Space(w.input.Space)
	for i := 0; i < 20; i++ {
		w.flood(50)
	}
	if s.WaterLevel != s.Bounds.Height {
		t.Errorf("Expected level clamped to %.0f, got %.0f", s.Bounds.Height, s.WaterLevel)
	}
	w.move(5000, 0)
	if err := w.flood(10); !errors.Is(err, topology.ErrUnknownSpace) {
		t.Errorf("Expected ErrUnknownSpace outside, got %v", err)
	}
}

// TestWorldEavesdrop verifies the target is the space behind the nearest portal
func TestWorldEavesdrop(t *testing.T) {
	w := testWorld(t)
	w.input.Position.X = 290
	w.toggleEavesdrop()
	if !w.input.EavesdropHeld {
		t.Fatal("Expected eavesdrop held")
	}
	if name := w.graph.Space(w.input.EavesdropTarget).Name; name != "corridor" {
		t.Errorf("Expected corridor target, got %s", name)
	}
	w.toggleEavesdrop()
	if w.input.EavesdropHeld || w.input.EavesdropTarget != topology.NoSpace {
		t.Error("Expected eavesdrop released")
	}
}

// TestHandleEvent verifies key bindings
func TestHandleEvent(t *testing.T) {
	w := testWorld(t)
	start := w.input.Position

	handleEvent(w, tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone))
	if w.input.Position.X <= start.X {
		t.Errorf("Expected listener moved right, got %v", w.input.Position)
	}
	handleEvent(w, tcell.NewEventKey(tcell.KeyRune, 's', tcell.ModNone))
	if !w.input.WearingSuit {
		t.Error("Expected suit on")
	}
	handleEvent(w, tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone))
	if len(w.eng.Channels()) != 1 {
		t.Errorf("Expected alarm channel, got %d", len(w.eng.Channels()))
	}
	if handleEvent(w, tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) {
		t.Error("Expected q to quit")
	}
	if handleEvent(w, tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)) {
		t.Error("Expected Escape to quit")
	}
}
