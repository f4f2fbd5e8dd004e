package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lixenwraith/muffle/toml"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "MUFFLE_"

// Parse decodes TOML data over the defaults
// Unknown keys are reported as toml.ErrUnknownKey alongside a fully decoded config
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.UnmarshalStrict(data, cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Load reads a TOML file, applies environment overrides and validates the result
// An empty path loads defaults
// Unknown keys and corrected values return a usable config with a non-nil error
func Load(path string) (*Config, error) {
	cfg := Default()
	var loadErr error
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		cfg, loadErr = Parse(data)
		if loadErr != nil && !errors.Is(loadErr, toml.ErrUnknownKey) {
			return nil, loadErr
		}
	}

	ApplyEnv(cfg, os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		if loadErr != nil {
			return cfg, fmt.Errorf("%w; %w", loadErr, err)
		}
		return cfg, err
	}
	return cfg, loadErr
}

// ApplyEnv applies MUFFLE_* overrides; malformed values are ignored
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(EnvPrefix + key); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			if i, err := strconv.Atoi(v); err == nil {
				*dst = i
			}
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	var mode string
	str("MODE", &mode)
	if mode != "" {
		cfg.Mode = Mode(strings.ToLower(mode))
	}
	boolean("DISABLE_AUTO_ATTENUATION", &cfg.DisableAutoAttenuation)

	boolean("AUDIO_ENABLED", &cfg.Audio.Enabled)
	integer("SAMPLE_RATE", &cfg.Audio.SampleRate)
	float("MASTER_VOLUME", &cfg.Audio.MasterVolume)

	boolean("SIDECHAIN_ENABLED", &cfg.Sidechain.Enabled)
	float("SIDECHAIN_INTENSITY", &cfg.Sidechain.Intensity)
	duration("SIDECHAIN_RELEASE", &cfg.Sidechain.Release)

	boolean("CLONES_ENABLED", &cfg.Clones.Enabled)
	integer("CLONES_MAX", &cfg.Clones.Max)

	boolean("PROPAGATION_ENABLED", &cfg.Propagation.Enabled)
	boolean("REVERB_ENABLED", &cfg.Reverb.Enabled)
	boolean("PITCH_ENABLED", &cfg.Pitch.Enabled)

	var area string
	str("AREA_MODE", &area)
	if area != "" {
		cfg.Listener.AreaMode = AreaMode(strings.ToLower(area))
	}
}
