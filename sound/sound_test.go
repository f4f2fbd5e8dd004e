package sound

import (
	"errors"
	"testing"
	"time"

	"github.com/lixenwraith/muffle/parameter"
)

// TestCategory_Groups verifies the throttle group of every category
func TestCategory_Groups(t *testing.T) {
	tests := []struct {
		cat   Category
		group Group
		voice bool
	}{
		{VoiceLocal, GroupVoice, true},
		{VoiceRadio, GroupVoice, true},
		{LoopingComponent, GroupLooping, false},
		{Ambient, GroupLooping, false},
		{Flow, GroupLooping, false},
		{Fire, GroupLooping, false},
		{StatusEffect, GroupStatusEffect, false},
		{OneShot, GroupOneShot, false},
	}
	for _, tt := range tests {
		t.Run(tt.cat.String(), func(t *testing.T) {
			if got := tt.cat.Group(); got != tt.group {
				t.Errorf("Expected group %v, got %v", tt.group, got)
			}
			if got := tt.cat.IsVoice(); got != tt.voice {
				t.Errorf("Expected voice %v, got %v", tt.voice, got)
			}
			parsed, err := ParseCategory(tt.cat.String())
			if err != nil || parsed != tt.cat {
				t.Errorf("Expected round trip of %q, got %v %v", tt.cat.String(), parsed, err)
			}
		})
	}

	if _, err := ParseCategory("music"); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("Expected ErrUnknownCategory, got %v", err)
	}
}

// TestTag_Bits verifies tag parsing and formatting
func TestTag_Bits(t *testing.T) {
	tag, err := ParseTag(" Loud ")
	if err != nil || tag != Loud {
		t.Fatalf("Expected Loud, got %v %v", tag, err)
	}
	combined := Loud | NoReverb
	if !combined.Has(Loud) || combined.Has(Loud|NoClone) {
		t.Error("Has mismatch")
	}
	if got := combined.String(); got != "loud|no_reverb" {
		t.Errorf("Expected loud|no_reverb, got %q", got)
	}
	if Tag(0).String() != "none" {
		t.Error("Expected none for empty set")
	}
	if _, err := ParseTag("shiny"); !errors.Is(err, ErrUnknownTag) {
		t.Errorf("Expected ErrUnknownTag, got %v", err)
	}
}

// TestCatalog_ResolvesTagsOnce verifies keyword and category tags are applied at registration
func TestCatalog_ResolvesTagsOnce(t *testing.T) {
	c, err := NewCatalog(map[string][]string{
		"loud":      {"Alarm"},
		"no_reverb": {"radio", "  "},
	}, []string{"flow"})
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	alarm, err := c.Register(Definition{Name: "alarm", Path: "sfx/ALARM_loop.wav", Category: LoopingComponent})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !alarm.Tags.Has(Loud) {
		t.Errorf("Expected loud tag from keyword, got %v", alarm.Tags)
	}
	if alarm.LoudStrength != 1 || alarm.LoudGroup != "alarm" {
		t.Errorf("Expected loud defaults, got %v %q", alarm.LoudStrength, alarm.LoudGroup)
	}

	pipe, _ := c.Register(Definition{Name: "pipe", Tone: &Tone{Frequency: 60, Duration: time.Second}, Category: Flow})
	if !pipe.Tags.Has(Propagate) {
		t.Errorf("Expected propagate from category, got %v", pipe.Tags)
	}
	if pipe.Range != parameter.DefaultSoundRange || pipe.NearRange != parameter.DefaultSoundNearRange || pipe.Volume != 1 {
		t.Errorf("Expected range defaults, got %+v", pipe)
	}

	radio, _ := c.Register(Definition{Name: "radio", Path: "voice/radio_chatter.wav", Category: VoiceRadio, Tags: NoClone})
	if radio.Tags != NoReverb|NoClone {
		t.Errorf("Expected explicit and keyword tags, got %v", radio.Tags)
	}

	if got, ok := c.Lookup("radio"); !ok || got != radio {
		t.Error("Expected lookup to return the stored definition")
	}
	if c.Len() != 3 || c.Names()[0] != "alarm" {
		t.Errorf("Expected 3 sorted names, got %v", c.Names())
	}
}

// TestCatalog_Errors verifies invalid definitions and config names
func TestCatalog_Errors(t *testing.T) {
	_, err := NewCatalog(map[string][]string{"shiny": {"x"}}, []string{"music"})
	if !errors.Is(err, ErrUnknownTag) || !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("Expected both config errors, got %v", err)
	}

	c, _ := NewCatalog(nil, nil)
	tone := &Tone{Frequency: 440, Duration: time.Second}

	if _, err := c.Register(Definition{Tone: tone}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for empty name, got %v", err)
	}
	if _, err := c.Register(Definition{Name: "silent"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid without source, got %v", err)
	}
	if _, err := c.Register(Definition{Name: "x", Tone: tone, Category: Category(99)}); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("Expected ErrUnknownCategory, got %v", err)
	}
	if _, err := c.Register(Definition{Name: "a", Tone: tone}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := c.Register(Definition{Name: "a", Tone: tone}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}

// TestParseWave verifies waveform names and the sine default
func TestParseWave(t *testing.T) {
	tests := []struct {
		name string
		want Wave
	}{
		{"", WaveSine},
		{"Square", WaveSquare},
		{" saw ", WaveSaw},
		{"noise", WaveNoise},
	}
	for _, tt := range tests {
		got, err := ParseWave(tt.name)
		if err != nil || got != tt.want {
			t.Errorf("%q: expected %d, got %d %v", tt.name, tt.want, got, err)
		}
	}
	if _, err := ParseWave("triangle"); !errors.Is(err, ErrUnknownWave) {
		t.Errorf("Expected ErrUnknownWave, got %v", err)
	}
}
