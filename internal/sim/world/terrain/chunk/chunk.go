package chunk

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/A-G0D/RotBound-Unity/internal/sim/world/logic/mathx"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/footprint"
)

type Coord struct {
	CX int
	CY int
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.CX, c.CY) }

// CoordAt returns the chunk containing a continuous world position.
func CoordAt(x, y float64, size int) Coord {
	return Coord{CX: mathx.ChunkOf(x, size), CY: mathx.ChunkOf(y, size)}
}

type Class uint8

const (
	Terrain Class = iota
	Building
)

func (c Class) String() string {
	switch c {
	case Building:
		return "BUILDING"
	default:
		return "TERRAIN"
	}
}

type Cell struct {
	WX, WY int
	Noise  float64
	Class  Class
	Shade  uint8 // gradient index, terrain only
}

// Chunk is immutable after New; all accessors are safe for concurrent readers.
type Chunk struct {
	Coord Coord
	Size  int

	cells      []Cell // len = Size*Size, index x + y*Size
	footprints []footprint.Rect
	buildings  int
	hash       [32]byte
}

// New takes ownership of cells and footprints.
func New(c Coord, size int, cells []Cell, footprints []footprint.Rect) *Chunk {
	if len(cells) != size*size {
		panic(fmt.Sprintf("chunk: %d cells for size %d", len(cells), size))
	}
	ch := &Chunk{Coord: c, Size: size, cells: cells, footprints: footprints}
	for _, cell := range cells {
		if cell.Class == Building {
			ch.buildings++
		}
	}
	ch.hash = digest(cells)
	return ch
}

func (c *Chunk) Origin() (int, int) {
	return c.Coord.CX * c.Size, c.Coord.CY * c.Size
}

func (c *Chunk) At(x, y int) Cell {
	if x < 0 || x >= c.Size || y < 0 || y >= c.Size {
		panic(fmt.Sprintf("chunk %s: cell (%d,%d) out of range [0,%d)", c.Coord, x, y, c.Size))
	}
	return c.cells[x+y*c.Size]
}

// Cells iterates in row-major order.
func (c *Chunk) Cells(fn func(Cell)) {
	for _, cell := range c.cells {
		fn(cell)
	}
}

func (c *Chunk) Footprints() []footprint.Rect {
	out := make([]footprint.Rect, len(c.footprints))
	copy(out, c.footprints)
	return out
}

func (c *Chunk) BuildingCount() int { return c.buildings }

func (c *Chunk) Digest() [32]byte { return c.hash }

func digest(cells []Cell) [32]byte {
	h := sha256.New()
	var tmp [10]byte
	for _, cell := range cells {
		tmp[0] = byte(cell.Class)
		tmp[1] = cell.Shade
		binary.LittleEndian.PutUint64(tmp[2:], math.Float64bits(cell.Noise))
		h.Write(tmp[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
