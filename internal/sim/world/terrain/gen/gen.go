package gen

import (
	"math"

	"github.com/A-G0D/RotBound-Unity/internal/sim/tuning"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/logic/mathx"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/chunk"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/footprint"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/grid"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/noise"
)

type Config struct {
	ChunkSize         int
	BuildingThreshold float64
	Footprint         footprint.Policy
	Noise             noise.Params
}

func ConfigFromTuning(t tuning.Tuning) Config {
	return Config{
		ChunkSize:         t.ChunkSize,
		BuildingThreshold: t.BuildingThreshold,
		Footprint: footprint.Policy{
			MinLong:  t.FootprintMinLong,
			MinShort: t.FootprintMinShort,
		},
		Noise: noise.Params{
			Seed:    t.Seed,
			Scale:   t.NoiseScale,
			OffsetX: t.NoiseOffset[0],
			OffsetY: t.NoiseOffset[1],
			Kind:    t.NoiseKind,
		},
	}
}

type Option func(*Generator)

// WithBase replaces the configured noise family.
func WithBase(b noise.Base) Option {
	return func(g *Generator) { g.field = noise.NewWithBase(g.cfg.Noise, b) }
}

// Generator turns a chunk coordinate into a classified chunk. Generate is a pure function of
// the coordinate and the config, and is safe to call from many goroutines at once.
type Generator struct {
	cfg   Config
	field *noise.Field
}

func New(cfg Config, opts ...Option) (*Generator, error) {
	if cfg.ChunkSize <= 0 {
		return nil, &tuning.ConfigError{Field: "chunk_size", Reason: "must be > 0"}
	}
	if !(cfg.BuildingThreshold >= 0 && cfg.BuildingThreshold <= 1) {
		return nil, &tuning.ConfigError{Field: "building_threshold", Reason: "must be in [0,1]"}
	}
	if !(cfg.Noise.Scale > 0) || math.IsInf(cfg.Noise.Scale, 0) {
		return nil, &tuning.ConfigError{Field: "noise_scale", Reason: "must be finite and > 0"}
	}
	if cfg.Footprint == (footprint.Policy{}) {
		cfg.Footprint = footprint.DefaultPolicy()
	}
	g := &Generator{cfg: cfg}
	for _, o := range opts {
		o(g)
	}
	if g.field == nil {
		f, err := noise.New(cfg.Noise)
		if err != nil {
			return nil, &tuning.ConfigError{Field: "noise_kind", Reason: err.Error()}
		}
		g.field = f
	}
	return g, nil
}

func (g *Generator) ChunkSize() int { return g.cfg.ChunkSize }

func (g *Generator) Generate(c chunk.Coord) *chunk.Chunk {
	size := g.cfg.ChunkSize
	ox, oy := c.CX*size, c.CY*size

	values := make([]float64, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			values[x+y*size] = g.field.Sample(ox+x, oy+y)
		}
	}
	return g.classify(c, values)
}

// classify runs occupancy -> blobs -> rectangles -> per-cell classes over sampled noise values.
func (g *Generator) classify(c chunk.Coord, values []float64) *chunk.Chunk {
	size := g.cfg.ChunkSize
	occ := grid.New(size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if values[x+y*size] > g.cfg.BuildingThreshold {
				occ.Set(x, y, true)
			}
		}
	}

	building := make([]bool, size*size)
	var footprints []footprint.Rect
	for _, blob := range grid.Extract(occ) {
		r := footprint.Fit(blob, occ)
		if !g.cfg.Footprint.Accepts(r) {
			continue
		}
		footprints = append(footprints, r)
		for y := r.Y; y < r.Y+r.H; y++ {
			for x := r.X; x < r.X+r.W; x++ {
				building[x+y*size] = true
			}
		}
	}

	ox, oy := c.CX*size, c.CY*size
	cells := make([]chunk.Cell, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := x + y*size
			cell := chunk.Cell{WX: ox + x, WY: oy + y, Noise: values[i]}
			if building[i] {
				cell.Class = chunk.Building
			} else {
				cell.Class = chunk.Terrain
				cell.Shade = Shade(values[i])
			}
			cells[i] = cell
		}
	}
	return chunk.New(c, size, cells, footprints)
}

// Shade maps a noise value onto the 256-entry terrain gradient (ties round to even).
func Shade(v float64) uint8 {
	return uint8(mathx.ClampInt(int(math.RoundToEven(v*255)), 0, 255))
}
