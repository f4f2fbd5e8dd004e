// Package obstruction classifies what lies between an emitter and the listener
// and turns it into per-channel gain, pitch, filter and reverb targets
package obstruction

import (
	"fmt"
	"strings"

	"github.com/lixenwraith/muffle/config"
)

// Kind is one discrete acoustic barrier
type Kind int

const (
	WaterSurface Kind = iota
	WaterBody
	WallThick
	WallThin
	DoorThick
	DoorThin
	Suit
	kindCount
)

var kindNames = [kindCount]string{
	WaterSurface: "water_surface",
	WaterBody:    "water_body",
	WallThick:    "wall_thick",
	WallThin:     "wall_thin",
	DoorThick:    "door_thick",
	DoorThin:     "door_thin",
	Suit:         "suit",
}

// String returns the config name of the kind
func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Strength returns the configured base strength of k
func (k Kind) Strength(o *config.Obstruction) float64 {
	switch k {
	case WaterSurface:
		return o.WaterSurface
	case WaterBody:
		return o.WaterBody
	case WallThick:
		return o.WallThick
	case WallThin:
		return o.WallThin
	case DoorThick:
		return o.DoorThick
	case DoorThin:
		return o.DoorThin
	case Suit:
		return o.Suit
	default:
		return 0
	}
}

// List is an ordered obstruction list, rebuilt on every classification
type List []Kind

// Count returns how many entries of k are present
func (l List) Count(k Kind) int {
	n := 0
	for _, e := range l {
		if e == k {
			n++
		}
	}
	return n
}

// Equal reports element-wise equality
func (l List) Equal(o List) bool {
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if l[i] != o[i] {
			return false
		}
	}
	return true
}

// String joins entry names with "+"
func (l List) String() string {
	if len(l) == 0 {
		return "none"
	}
	parts := make([]string, len(l))
	for i, k := range l {
		parts[i] = k.String()
	}
	return strings.Join(parts, "+")
}

// Tier is the discretized muffle severity
type Tier int

const (
	TierNone Tier = iota
	TierLight
	TierMedium
	TierHeavy
)

// String returns a short tier label
func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierLight:
		return "light"
	case TierMedium:
		return "medium"
	case TierHeavy:
		return "heavy"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

var flagNames = []string{
	"eavesdropped", "hydrophone", "both_in_water", "no_path", "propagated",
	"wall_occluded", "radio", "spectator", "cloning",
}

// Names lists the set flags in bit order
func (f Flags) Names() []string {
	var out []string
	for i, n := range flagNames {
		if f&(1<<i) != 0 {
			out = append(out, n)
		}
	}
	return out
}
