package topology

import (
	"fmt"

	"github.com/lixenwraith/muffle/core"
	"github.com/lixenwraith/muffle/toml"
)

// Layout is the TOML description of a graph
//
//	[[space]]
//	name = "bridge"
//	rect = [0.0, 0.0, 400.0, 200.0]
//	water = 0.0
//
//	[[portal]]
//	a = "bridge"
//	b = ""          # exterior
//	rect = [400.0, 0.0, 10.0, 120.0]
//	door = "closed" # "", "open", "closed", "broken"
type Layout struct {
	Spaces  []SpaceLayout  `toml:"space"`
	Portals []PortalLayout `toml:"portal"`
}

// SpaceLayout describes one Space
type SpaceLayout struct {
	Name      string    `toml:"name"`
	Rect      []float64 `toml:"rect"`
	Water     float64   `toml:"water"`
	Wet       bool      `toml:"wet"`
	Structure int       `toml:"structure"`
}

// PortalLayout describes one Portal
type PortalLayout struct {
	A          string    `toml:"a"`
	B          string    `toml:"b"`
	Rect       []float64 `toml:"rect"`
	Door       string    `toml:"door"`
	Openness   *float64  `toml:"openness"`
	Horizontal bool      `toml:"horizontal"`
}

// LoadLayout decodes TOML layout data into a Graph
func LoadLayout(data []byte) (*Graph, error) {
	var l Layout
	if err := toml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	return l.Build()
}

// Build converts a decoded Layout into a Graph
func (l *Layout) Build() (*Graph, error) {
	g := NewGraph()

	for i, sl := range l.Spaces {
		r, err := rectOf(sl.Rect)
		if err != nil {
			return nil, fmt.Errorf("space %d (%s): %w", i, sl.Name, err)
		}
		if sl.Name == "" {
			return nil, fmt.Errorf("space %d: missing name", i)
		}
		if _, dup := g.SpaceByName(sl.Name); dup {
			return nil, fmt.Errorf("space %d: duplicate name %q", i, sl.Name)
		}
		g.AddSpace(Space{
			Name:       sl.Name,
			Bounds:     r,
			WaterLevel: min(r.Height, max(0, sl.Water)),
			Wet:        sl.Wet,
			Structure:  StructureID(sl.Structure),
		})
	}

	for i, pl := range l.Portals {
		a, err := g.resolve(pl.A)
		if err != nil {
			return nil, fmt.Errorf("portal %d side a: %w", i, err)
		}
		b, err := g.resolve(pl.B)
		if err != nil {
			return nil, fmt.Errorf("portal %d side b: %w", i, err)
		}
		r, err := rectOf(pl.Rect)
		if err != nil {
			return nil, fmt.Errorf("portal %d: %w", i, err)
		}

		p := Portal{A: a, B: b, Rect: r, Horizontal: pl.Horizontal, Openness: 1}
		if pl.Openness != nil {
			p.Openness = min(1, max(0, *pl.Openness))
		}
		switch pl.Door {
		case "":
		case "open":
			p.Door = &Door{State: DoorOpen}
		case "closed":
			p.Door = &Door{State: DoorClosed}
		case "broken":
			p.Door = &Door{State: DoorBroken}
		default:
			return nil, fmt.Errorf("portal %d: unknown door state %q", i, pl.Door)
		}

		if _, err := g.AddPortal(p); err != nil {
			return nil, fmt.Errorf("portal %d: %w", i, err)
		}
	}

	return g, nil
}

func (g *Graph) resolve(name string) (SpaceID, error) {
	if name == "" {
		return NoSpace, nil
	}
	id, ok := g.SpaceByName(name)
	if !ok {
		return NoSpace, fmt.Errorf("%q: %w", name, ErrUnknownSpace)
	}
	return id, nil
}

func rectOf(v []float64) (core.Rect, error) {
	if len(v) != 4 {
		return core.Rect{}, fmt.Errorf("rect needs 4 values [x, y, w, h], got %d", len(v))
	}
	if v[2] < 0 || v[3] < 0 {
		return core.Rect{}, fmt.Errorf("rect has negative size")
	}
	return core.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}
