// Package noise samples the deterministic scalar field that drives terrain shading and
// building placement. Samples are a pure function of the world tile and the field parameters.
package noise

import (
	"fmt"

	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

const (
	// Boost lifts the upper range of the base noise so more tiles cross the building threshold.
	Boost = 1.2

	seedShift = 0.1
)

// Base is a 2D gradient noise with output in [0,1].
type Base interface {
	Eval(x, y float64) float64
}

type Params struct {
	Seed    int64
	Scale   float64
	OffsetX float64
	OffsetY float64
	Kind    string // "perlin" (default) or "opensimplex"
}

// Field is safe for concurrent use; neither base keeps mutable state after construction.
type Field struct {
	p    Params
	base Base
}

func New(p Params) (*Field, error) {
	var b Base
	switch p.Kind {
	case "", "perlin":
		b = NewPerlin(p.Seed)
	case "opensimplex":
		b = NewOpenSimplex(p.Seed)
	default:
		return nil, fmt.Errorf("noise: unknown kind %q", p.Kind)
	}
	return NewWithBase(p, b), nil
}

func NewWithBase(p Params, b Base) *Field {
	return &Field{p: p, base: b}
}

// Point returns the base-noise sample coordinates for a world tile.
func (f *Field) Point(wx, wy int) (float64, float64) {
	shift := float64(f.p.Seed) * seedShift
	sx := (float64(wx) + f.p.OffsetX + shift) * f.p.Scale
	sy := (float64(wy) + f.p.OffsetY + shift) * f.p.Scale
	return sx, sy
}

// Raw is the un-boosted base value at a world tile.
func (f *Field) Raw(wx, wy int) float64 {
	return f.base.Eval(f.Point(wx, wy))
}

// Sample returns min(Raw*Boost, 1).
func (f *Field) Sample(wx, wy int) float64 {
	return Boosted(f.Raw(wx, wy))
}

func Boosted(v float64) float64 {
	v *= Boost
	if v > 1 {
		return 1
	}
	return v
}

type perlinBase struct{ p *perlin.Perlin }

// NewPerlin wraps go-perlin (alpha 2, beta 2, 3 octaves) and remaps its [-1,1] output to [0,1].
func NewPerlin(seed int64) Base {
	return perlinBase{p: perlin.NewPerlin(2, 2, 3, seed)}
}

func (b perlinBase) Eval(x, y float64) float64 {
	return clamp01((b.p.Noise2D(x, y) + 1) / 2)
}

type simplexBase struct{ n opensimplex.Noise }

func NewOpenSimplex(seed int64) Base {
	return simplexBase{n: opensimplex.NewNormalized(seed)}
}

func (b simplexBase) Eval(x, y float64) float64 {
	return clamp01(b.n.Eval2(x, y))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
