package terrainview

import (
	"fmt"

	"github.com/A-G0D/RotBound-Unity/internal/protocol"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/chunk"
)

func ToWirePaint(p ChunkPaint) protocol.ChunkTiles {
	values := make([]int, len(p.Tiles))
	for i, t := range p.Tiles {
		values[i] = t.Value()
	}
	return protocol.ChunkTiles{
		CX:     p.Coord.CX,
		CY:     p.Coord.CY,
		Origin: [2]int{p.Origin.X, p.Origin.Y},
		Size:   p.Size,
		Values: values,
	}
}

func ToWireClear(c ChunkClear) protocol.ChunkRef {
	return protocol.ChunkRef{
		CX:     c.Coord.CX,
		CY:     c.Coord.CY,
		Origin: [2]int{c.Origin.X, c.Origin.Y},
		Size:   c.Size,
	}
}

func FromWirePaint(ct protocol.ChunkTiles) (ChunkPaint, error) {
	if ct.Size <= 0 {
		return ChunkPaint{}, fmt.Errorf("chunk (%d,%d): bad size %d", ct.CX, ct.CY, ct.Size)
	}
	if len(ct.Values) != ct.Size*ct.Size {
		return ChunkPaint{}, fmt.Errorf("chunk (%d,%d): %d values for size %d", ct.CX, ct.CY, len(ct.Values), ct.Size)
	}
	p := ChunkPaint{
		Coord:  chunk.Coord{CX: ct.CX, CY: ct.CY},
		Origin: Pos{X: ct.Origin[0], Y: ct.Origin[1]},
		Size:   ct.Size,
		Tiles:  make([]Tile, len(ct.Values)),
	}
	for i, v := range ct.Values {
		t := Tile{Pos: Pos{X: p.Origin.X + i%ct.Size, Y: p.Origin.Y + i/ct.Size}}
		switch {
		case v == protocol.BuildingMarker:
			t.Class = chunk.Building
		case v >= 0 && v <= 255:
			t.Class = chunk.Terrain
			t.Shade = uint8(v)
		default:
			return ChunkPaint{}, fmt.Errorf("chunk (%d,%d): tile value %d out of range", ct.CX, ct.CY, v)
		}
		p.Tiles[i] = t
	}
	return p, nil
}

func FromWireClear(ref protocol.ChunkRef) (ChunkClear, error) {
	if ref.Size <= 0 {
		return ChunkClear{}, fmt.Errorf("chunk (%d,%d): bad size %d", ref.CX, ref.CY, ref.Size)
	}
	return ChunkClear{
		Coord:  chunk.Coord{CX: ref.CX, CY: ref.CY},
		Origin: Pos{X: ref.Origin[0], Y: ref.Origin[1]},
		Size:   ref.Size,
	}, nil
}

// PaintMsg returns nil when the batch has nothing to paint.
func PaintMsg(b Batch) *protocol.PaintMsg {
	if len(b.Paints) == 0 {
		return nil
	}
	return PaintAll(b.Tick, b.Center, b.Paints)
}

func PaintAll(tick uint64, center chunk.Coord, paints []ChunkPaint) *protocol.PaintMsg {
	msg := &protocol.PaintMsg{
		Type:            protocol.TypePaint,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		Center:          [2]int{center.CX, center.CY},
		Chunks:          make([]protocol.ChunkTiles, 0, len(paints)),
	}
	for _, p := range paints {
		msg.Chunks = append(msg.Chunks, ToWirePaint(p))
	}
	return msg
}

// ClearMsg returns nil when the batch has nothing to clear.
func ClearMsg(b Batch) *protocol.ClearMsg {
	if len(b.Clears) == 0 {
		return nil
	}
	msg := &protocol.ClearMsg{
		Type:            protocol.TypeClear,
		ProtocolVersion: protocol.Version,
		Tick:            b.Tick,
		Center:          [2]int{b.Center.CX, b.Center.CY},
		Chunks:          make([]protocol.ChunkRef, 0, len(b.Clears)),
	}
	for _, c := range b.Clears {
		msg.Chunks = append(msg.Chunks, ToWireClear(c))
	}
	return msg
}
