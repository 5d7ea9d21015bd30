package tuning

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	NoisePerlin      = "perlin"
	NoiseOpenSimplex = "opensimplex"
)

type Tuning struct {
	ChunkSize       int        `yaml:"chunk_size"`
	ChunkLoadRadius int        `yaml:"chunk_load_radius"`
	NoiseScale      float64    `yaml:"noise_scale"`
	Seed            int64      `yaml:"seed"`
	NoiseOffset     [2]float64 `yaml:"noise_offset"`
	NoiseKind       string     `yaml:"noise_kind"`

	BuildingThreshold float64 `yaml:"building_threshold"`
	FootprintMinLong  int     `yaml:"footprint_min_long"`
	FootprintMinShort int     `yaml:"footprint_min_short"`

	TickRateHz int     `yaml:"tick_rate_hz"`
	MoveSpeed  float64 `yaml:"move_speed"`
	GenWorkers int     `yaml:"gen_workers"`
}

// ConfigError names the offending tuning key.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

func Defaults() Tuning {
	return Tuning{
		ChunkSize:         16,
		ChunkLoadRadius:   3,
		NoiseScale:        0.1,
		Seed:              12345,
		NoiseKind:         NoisePerlin,
		BuildingThreshold: 0.40,
		FootprintMinLong:  5,
		FootprintMinShort: 3,
		TickRateHz:        20,
		MoveSpeed:         5,
	}
}

// Load reads a tuning file on top of Defaults. An empty path yields the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	if t == nil {
		return
	}
	t.NoiseKind = strings.ToLower(strings.TrimSpace(t.NoiseKind))
	if t.NoiseKind == "" {
		t.NoiseKind = NoisePerlin
	}
}

func (t Tuning) Validate() error {
	switch {
	case t.ChunkSize <= 0:
		return &ConfigError{Field: "chunk_size", Reason: "must be > 0"}
	case t.ChunkLoadRadius < 0:
		return &ConfigError{Field: "chunk_load_radius", Reason: "must be >= 0"}
	case !(t.BuildingThreshold >= 0 && t.BuildingThreshold <= 1):
		return &ConfigError{Field: "building_threshold", Reason: "must be in [0,1]"}
	case !(t.NoiseScale > 0) || math.IsInf(t.NoiseScale, 0):
		return &ConfigError{Field: "noise_scale", Reason: "must be finite and > 0"}
	case math.IsNaN(t.NoiseOffset[0]) || math.IsNaN(t.NoiseOffset[1]):
		return &ConfigError{Field: "noise_offset", Reason: "must not be NaN"}
	case t.FootprintMinShort <= 0:
		return &ConfigError{Field: "footprint_min_short", Reason: "must be > 0"}
	case t.FootprintMinLong < t.FootprintMinShort:
		return &ConfigError{Field: "footprint_min_long", Reason: "must be >= footprint_min_short"}
	case t.TickRateHz <= 0:
		return &ConfigError{Field: "tick_rate_hz", Reason: "must be > 0"}
	case !(t.MoveSpeed >= 0):
		return &ConfigError{Field: "move_speed", Reason: "must be >= 0"}
	case t.GenWorkers < 0:
		return &ConfigError{Field: "gen_workers", Reason: "must be >= 0"}
	}
	switch t.NoiseKind {
	case NoisePerlin, NoiseOpenSimplex:
	default:
		return &ConfigError{Field: "noise_kind", Reason: fmt.Sprintf("unknown kind %q", t.NoiseKind)}
	}
	return nil
}
