// Package sound describes playable sounds: category, capability tags and playback ranges
// Tags are resolved once at registration; per-tick code only tests bits
package sound

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category is the emitter class of a sound
type Category int

const (
	VoiceLocal Category = iota
	VoiceRadio
	LoopingComponent
	OneShot
	Ambient
	Flow
	Fire
	StatusEffect
	categoryCount
)

var categoryNames = [categoryCount]string{
	VoiceLocal:       "voice_local",
	VoiceRadio:       "voice_radio",
	LoopingComponent: "looping_component",
	OneShot:          "one_shot",
	Ambient:          "ambient",
	Flow:             "flow",
	Fire:             "fire",
	StatusEffect:     "status_effect",
}

// String returns the config name of the category
func (c Category) String() string {
	if c < 0 || c >= categoryCount {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// IsVoice reports whether the category is speech
func (c Category) IsVoice() bool { return c == VoiceLocal || c == VoiceRadio }

// Group returns the reclassification throttle group
func (c Category) Group() Group {
	switch c {
	case VoiceLocal, VoiceRadio:
		return GroupVoice
	case StatusEffect:
		return GroupStatusEffect
	case OneShot:
		return GroupOneShot
	default:
		return GroupLooping
	}
}

// ParseCategory resolves a config name
func ParseCategory(name string) (Category, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range categoryNames {
		if n == name {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", name, ErrUnknownCategory)
}

// Group partitions categories for per-group update throttling
type Group int

const (
	GroupVoice Group = iota
	GroupLooping
	GroupStatusEffect
	GroupOneShot
	GroupCount
)

// String returns a short group label
func (g Group) String() string {
	switch g {
	case GroupVoice:
		return "voice"
	case GroupLooping:
		return "looping"
	case GroupStatusEffect:
		return "status_effect"
	case GroupOneShot:
		return "one_shot"
	default:
		return fmt.Sprintf("group(%d)", int(g))
	}
}

// Tag is a capability bit set
type Tag uint32

const (
	IgnoreAll Tag = 1 << iota
	IgnoreWater
	IgnoreSurface
	IgnorePitch
	IgnoreLowpass
	IgnoreContainer
	IgnorePath
	Loud
	Propagate
	NoReverb
	NoClone
	IgnoreSidechain
	tagEnd
)

var tagNames = map[string]Tag{
	"ignore_all":       IgnoreAll,
	"ignore_water":     IgnoreWater,
	"ignore_surface":   IgnoreSurface,
	"ignore_pitch":     IgnorePitch,
	"ignore_lowpass":   IgnoreLowpass,
	"ignore_container": IgnoreContainer,
	"ignore_path":      IgnorePath,
	"loud":             Loud,
	"propagate":        Propagate,
	"no_reverb":        NoReverb,
	"no_clone":         NoClone,
	"ignore_sidechain": IgnoreSidechain,
}

// Has reports whether every bit of t2 is set
func (t Tag) Has(t2 Tag) bool { return t&t2 == t2 }

// String lists set tag names in bit order
func (t Tag) String() string {
	if t == 0 {
		return "none"
	}
	var parts []string
	for bit := Tag(1); bit < tagEnd; bit <<= 1 {
		if t&bit == 0 {
			continue
		}
		for name, v := range tagNames {
			if v == bit {
				parts = append(parts, name)
				break
			}
		}
	}
	return strings.Join(parts, "|")
}

// ParseTag resolves a config tag name
func ParseTag(name string) (Tag, error) {
	t, ok := tagNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownTag)
	}
	return t, nil
}

// Wave is a tone generator waveform
type Wave int

const (
	WaveSine Wave = iota
	WaveSquare
	WaveSaw
	WaveNoise
)

var waveNames = map[string]Wave{
	"sine":   WaveSine,
	"square": WaveSquare,
	"saw":    WaveSaw,
	"noise":  WaveNoise,
}

// ParseWave resolves a waveform name; empty selects a sine
func ParseWave(name string) (Wave, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return WaveSine, nil
	}
	w, ok := waveNames[name]
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownWave)
	}
	return w, nil
}

// Tone synthesizes a definition that has no sample asset
type Tone struct {
	Wave      Wave
	Frequency float64
	Duration  time.Duration
	Attack    time.Duration
	Release   time.Duration
}

// Definition is an immutable playable sound
type Definition struct {
	Name     string
	Path     string // Sample asset, matched against ignore keywords
	Tone     *Tone  // Used when Path is empty
	Category Category
	Tags     Tag
	Loop     bool

	Range     float64 // Inaudible beyond
	NearRange float64 // Full volume within
	Volume    float64

	// Loud sounds drive the sidechain
	LoudStrength float64
	LoudRelease  time.Duration
	LoudGroup    string
}

// Sentinel errors
var (
	ErrUnknownCategory = errors.New("unknown sound category")
	ErrUnknownTag      = errors.New("unknown sound tag")
	ErrUnknownWave     = errors.New("unknown waveform")
	ErrDuplicate       = errors.New("duplicate sound definition")
	ErrInvalid         = errors.New("invalid sound definition")
)
