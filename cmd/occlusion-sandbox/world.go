package main

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lixenwraith/muffle/core"
	"github.com/lixenwraith/muffle/engine"
	"github.com/lixenwraith/muffle/listener"
	"github.com/lixenwraith/muffle/parameter"
	"github.com/lixenwraith/muffle/topology"
)

var errNoDoor = errors.New("no door nearby")

// world is the sandbox state driven by key presses
// It runs on the UI goroutine only
type world struct {
	*loaded
	eng *engine.Engine

	input   listener.Input
	message string
}

func newWorld(l *loaded, eng *engine.Engine) *world {
	w := &world{loaded: l, eng: eng}
	w.input = listener.Input{
		Present:         true,
		Position:        l.listener,
		Space:           l.graph.SpaceAt(l.listener),
		EavesdropTarget: topology.NoSpace,
	}
	return w
}

// spawn starts every scene emitter
func (w *world) spawn() error {
	var errs []error
	for _, em := range w.emitters {
		id, err := w.eng.Play(em.def, em.pos, w.graph.SpaceAt(em.pos))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if em.contained {
			w.eng.SetContainer(id, true, topology.NoPortal)
		}
	}
	return errors.Join(errs...)
}

// move shifts the listener; leaving every space makes it exterior
func (w *world) move(dx, dy float64) {
	w.input.Position = w.input.Position.Add(core.Vec2{X: dx, Y: dy})
	w.input.Space = w.graph.SpaceAt(w.input.Position)
}

// nearestDoor returns the door portal closest to the listener
func (w *world) nearestDoor() (*topology.Portal, bool) {
	var best *topology.Portal
	bestDist := math.Inf(1)
	w.graph.Portals(func(p *topology.Portal) bool {
		if !p.IsDoor() {
			return true
		}
		if d := p.Rect.ClosestPoint(w.input.Position).Dist(w.input.Position); d < bestDist {
			best, bestDist = p, d
		}
		return true
	})
	return best, best != nil
}

// toggleDoor opens a closed door and closes an open or broken one
func (w *world) toggleDoor() error {
	p, ok := w.nearestDoor()
	if !ok {
		return errNoDoor
	}
	next := topology.DoorClosed
	if p.Door.State == topology.DoorClosed {
		next = topology.DoorOpen
	}
	if err := w.graph.SetDoor(p.ID, next); err != nil {
		return err
	}
	w.message = fmt.Sprintf("door %d %s", p.ID, next)
	return nil
}

// flood changes the water level of the listener's space
func (w *world) flood(delta float64) error {
	s := w.graph.Space(w.input.Space)
	if s == nil {
		return fmt.Errorf("flood: %w", topology.ErrUnknownSpace)
	}
	if err := w.graph.SetWaterLevel(s.ID, s.WaterLevel+delta); err != nil {
		return err
	}
	w.message = fmt.Sprintf("%s water %.0f", s.Name, s.WaterLevel)
	return nil
}

// toggleEavesdrop holds focus on the space behind the nearest portal
func (w *world) toggleEavesdrop() {
	if w.input.EavesdropHeld {
		w.input.EavesdropHeld = false
		w.input.EavesdropTarget = topology.NoSpace
		w.message = "eavesdrop off"
		return
	}

	s := w.graph.Space(w.input.Space)
	if s == nil {
		w.message = "eavesdrop needs a space"
		return
	}
	target := topology.NoSpace
	bestDist := math.Inf(1)
	for _, pid := range s.Portals {
		p := w.graph.Portal(pid)
		other := p.Other(s.ID)
		if other == topology.NoSpace {
			continue
		}
		if d := p.Rect.ClosestPoint(w.input.Position).Dist(w.input.Position); d < bestDist {
			target, bestDist = other, d
		}
	}
	if target == topology.NoSpace {
		w.message = "nothing to eavesdrop on"
		return
	}
	w.input.EavesdropHeld = true
	w.input.EavesdropTarget = target
	w.message = "eavesdrop " + w.graph.Space(target).Name
}

func (w *world) toggleHydrophone() {
	w.input.HydrophoneActive = !w.input.HydrophoneActive
	w.message = fmt.Sprintf("hydrophone %t", w.input.HydrophoneActive)
}

func (w *world) toggleSuit() {
	w.input.WearingSuit = !w.input.WearingSuit
	w.message = fmt.Sprintf("suit %t", w.input.WearingSuit)
}

// alarm plays the loud alarm next to the listener
func (w *world) alarm() error {
	if _, err := w.eng.PlayNamed("alarm", w.input.Position.Add(core.Vec2{X: parameter.SandboxMoveStep})); err != nil {
		return err
	}
	w.message = "alarm"
	return nil
}

// tick runs one engine pass with the current input
func (w *world) tick(dt time.Duration) engine.Report {
	return w.eng.Tick(w.input, dt)
}
