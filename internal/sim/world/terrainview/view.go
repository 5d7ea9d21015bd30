package terrainview

import (
	"errors"

	"github.com/A-G0D/RotBound-Unity/internal/protocol"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/chunk"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/store"
)

// Pos is a world tile position.
type Pos struct {
	X, Y int
}

// Tile is one paint instruction.
type Tile struct {
	Pos
	Class chunk.Class
	Shade uint8
}

// Value is the tile's palette entry: the gradient index for terrain, protocol.BuildingMarker
// for buildings.
func (t Tile) Value() int {
	if t.Class == chunk.Building {
		return protocol.BuildingMarker
	}
	return int(t.Shade)
}

type ChunkPaint struct {
	Coord  chunk.Coord
	Origin Pos
	Size   int
	Tiles  []Tile // row-major, len = Size*Size

	// Source is the generated chunk; nil when the paint was decoded from the wire.
	Source *chunk.Chunk
}

// ChunkClear removes every tile of one chunk.
type ChunkClear struct {
	Coord  chunk.Coord
	Origin Pos
	Size   int
}

func (c ChunkClear) Tiles() []Pos {
	out := make([]Pos, 0, c.Size*c.Size)
	for y := 0; y < c.Size; y++ {
		for x := 0; x < c.Size; x++ {
			out = append(out, Pos{X: c.Origin.X + x, Y: c.Origin.Y + y})
		}
	}
	return out
}

// Batch is everything a view must do for one observer update. Clears are applied before paints.
type Batch struct {
	Tick     uint64
	Observer [2]float64
	Center   chunk.Coord
	Paints   []ChunkPaint
	Clears   []ChunkClear
}

func (b Batch) Empty() bool { return len(b.Paints) == 0 && len(b.Clears) == 0 }

// View receives render instructions. Apply is called from a single goroutine.
type View interface {
	Apply(b Batch) error
}

// Paints builds the paint instruction for every tile of ch.
func Paints(ch *chunk.Chunk) ChunkPaint {
	ox, oy := ch.Origin()
	p := ChunkPaint{
		Coord:  ch.Coord,
		Origin: Pos{X: ox, Y: oy},
		Size:   ch.Size,
		Tiles:  make([]Tile, 0, ch.Size*ch.Size),
		Source: ch,
	}
	ch.Cells(func(c chunk.Cell) {
		p.Tiles = append(p.Tiles, Tile{Pos: Pos{X: c.WX, Y: c.WY}, Class: c.Class, Shade: c.Shade})
	})
	return p
}

func Clears(c chunk.Coord, size int) ChunkClear {
	return ChunkClear{Coord: c, Origin: Pos{X: c.CX * size, Y: c.CY * size}, Size: size}
}

// FromDelta turns a store delta into a batch.
func FromDelta(tick uint64, observer [2]float64, d store.Delta, size int) Batch {
	b := Batch{Tick: tick, Observer: observer, Center: d.Center}
	for _, c := range d.Unloaded {
		b.Clears = append(b.Clears, Clears(c, size))
	}
	for _, ch := range d.Loaded {
		b.Paints = append(b.Paints, Paints(ch))
	}
	return b
}

// Multi fans a batch out to several views. Every view sees the batch even if an earlier one
// fails; the errors are joined.
type Multi []View

func (m Multi) Apply(b Batch) error {
	var errs []error
	for _, v := range m {
		if v == nil {
			continue
		}
		if err := v.Apply(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ViewFunc adapts a function to View.
type ViewFunc func(Batch) error

func (f ViewFunc) Apply(b Batch) error { return f(b) }
