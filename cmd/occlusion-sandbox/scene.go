package main

import (
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lixenwraith/muffle/config"
	"github.com/lixenwraith/muffle/core"
	"github.com/lixenwraith/muffle/sound"
	"github.com/lixenwraith/muffle/toml"
	"github.com/lixenwraith/muffle/topology"
)

//go:embed scene.toml
var defaultScene []byte

// scene is the sandbox file format: a layout plus sounds and where they play
type scene struct {
	Listener []float64               `toml:"listener"`
	Spaces   []topology.SpaceLayout  `toml:"space"`
	Portals  []topology.PortalLayout `toml:"portal"`
	Sounds   []soundLayout           `toml:"sound"`
	Emitters []emitterLayout         `toml:"emitter"`
}

type soundLayout struct {
	Name         string        `toml:"name"`
	Category     string        `toml:"category"`
	Path         string        `toml:"path"`
	Tags         []string      `toml:"tags"`
	Loop         bool          `toml:"loop"`
	Wave         string        `toml:"wave"`
	Frequency    float64       `toml:"frequency"`
	Duration     time.Duration `toml:"duration"`
	Range        float64       `toml:"range"`
	Near         float64       `toml:"near"`
	Volume       float64       `toml:"volume"`
	LoudStrength float64       `toml:"loud_strength"`
	LoudRelease  time.Duration `toml:"loud_release"`
}

type emitterLayout struct {
	Sound     string    `toml:"sound"`
	Pos       []float64 `toml:"pos"`
	Contained bool      `toml:"contained"`
}

// emitter is a resolved scene emitter
type emitter struct {
	def       *sound.Definition
	pos       core.Vec2
	contained bool
}

// loaded is everything a scene file produces
type loaded struct {
	graph    *topology.Graph
	catalog  *sound.Catalog
	emitters []emitter
	listener core.Vec2
}

// loadScene decodes data and resolves sounds against a catalog built from cfg
func loadScene(data []byte, cfg *config.Config) (*loaded, error) {
	var sc scene
	if err := toml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}

	layout := topology.Layout{Spaces: sc.Spaces, Portals: sc.Portals}
	g, err := layout.Build()
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	if g.SpaceCount() == 0 {
		return nil, errors.New("scene: no spaces")
	}

	cat, err := sound.NewCatalog(cfg.Ignore, cfg.Propagation.Categories)
	if err != nil {
		return nil, fmt.Errorf("scene catalog: %w", err)
	}
	for i, sl := range sc.Sounds {
		def, err := sl.definition()
		if err != nil {
			return nil, fmt.Errorf("sound %d (%s): %w", i, sl.Name, err)
		}
		if _, err := cat.Register(def); err != nil {
			return nil, fmt.Errorf("sound %d: %w", i, err)
		}
	}

	out := &loaded{graph: g, catalog: cat}
	for i, el := range sc.Emitters {
		def, ok := cat.Lookup(el.Sound)
		if !ok {
			return nil, fmt.Errorf("emitter %d: unknown sound %q", i, el.Sound)
		}
		pos, err := pointOf(el.Pos)
		if err != nil {
			return nil, fmt.Errorf("emitter %d: %w", i, err)
		}
		out.emitters = append(out.emitters, emitter{def: def, pos: pos, contained: el.Contained})
	}

	if sc.Listener != nil {
		if out.listener, err = pointOf(sc.Listener); err != nil {
			return nil, fmt.Errorf("listener: %w", err)
		}
	} else {
		g.Spaces(func(s *topology.Space) bool {
			out.listener = s.Bounds.Center()
			return false
		})
	}
	return out, nil
}

func (sl soundLayout) definition() (sound.Definition, error) {
	cat, err := sound.ParseCategory(sl.Category)
	if err != nil {
		return sound.Definition{}, err
	}
	var tags sound.Tag
	for _, name := range sl.Tags {
		t, err := sound.ParseTag(name)
		if err != nil {
			return sound.Definition{}, err
		}
		tags |= t
	}

	def := sound.Definition{
		Name:         sl.Name,
		Path:         sl.Path,
		Category:     cat,
		Tags:         tags,
		Loop:         sl.Loop,
		Range:        sl.Range,
		NearRange:    sl.Near,
		Volume:       sl.Volume,
		LoudStrength: sl.LoudStrength,
		LoudRelease:  sl.LoudRelease,
	}
	if sl.Path == "" {
		wave, err := sound.ParseWave(sl.Wave)
		if err != nil {
			return sound.Definition{}, err
		}
		def.Tone = &sound.Tone{
			Wave:      wave,
			Frequency: sl.Frequency,
			Duration:  sl.Duration,
			Attack:    10 * time.Millisecond,
			Release:   50 * time.Millisecond,
		}
	}
	return def, nil
}

func pointOf(v []float64) (core.Vec2, error) {
	if len(v) != 2 {
		return core.Vec2{}, fmt.Errorf("point needs 2 values [x, y], got %d", len(v))
	}
	return core.Vec2{X: v[0], Y: v[1]}, nil
}
