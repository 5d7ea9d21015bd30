package terrainview

import (
	"errors"
	"testing"

	"github.com/A-G0D/RotBound-Unity/internal/protocol"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/chunk"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/footprint"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/store"
)

func testChunk(c chunk.Coord, size int) *chunk.Chunk {
	cells := make([]chunk.Cell, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := x + y*size
			cell := chunk.Cell{WX: c.CX*size + x, WY: c.CY*size + y, Noise: 0.25}
			if i == 0 {
				cell.Class = chunk.Building
			} else {
				cell.Shade = uint8(i)
			}
			cells[i] = cell
		}
	}
	return chunk.New(c, size, cells, []footprint.Rect{{X: 0, Y: 0, W: 1, H: 1}})
}

func TestPaints_CoversEveryTile(t *testing.T) {
	ch := testChunk(chunk.Coord{CX: 1, CY: -1}, 2)
	p := Paints(ch)
	if p.Origin != (Pos{X: 2, Y: -2}) || p.Size != 2 {
		t.Fatalf("origin/size: %+v", p)
	}
	if len(p.Tiles) != 4 {
		t.Fatalf("tiles: got %d want 4", len(p.Tiles))
	}
	want := []Pos{{2, -2}, {3, -2}, {2, -1}, {3, -1}}
	for i, tile := range p.Tiles {
		if tile.Pos != want[i] {
			t.Fatalf("tile %d: got %+v want %+v", i, tile.Pos, want[i])
		}
	}
	if p.Tiles[0].Value() != protocol.BuildingMarker {
		t.Fatalf("building value: got %d", p.Tiles[0].Value())
	}
	if p.Tiles[3].Value() != 3 {
		t.Fatalf("terrain value: got %d", p.Tiles[3].Value())
	}
}

func TestClears_Tiles(t *testing.T) {
	c := Clears(chunk.Coord{CX: -1, CY: 0}, 3)
	tiles := c.Tiles()
	if len(tiles) != 9 {
		t.Fatalf("tiles: got %d want 9", len(tiles))
	}
	if tiles[0] != (Pos{X: -3, Y: 0}) || tiles[8] != (Pos{X: -1, Y: 2}) {
		t.Fatalf("corners: %+v %+v", tiles[0], tiles[8])
	}
}

func TestFromDelta(t *testing.T) {
	d := store.Delta{
		Center:   chunk.Coord{CX: 1, CY: 0},
		Moved:    true,
		Loaded:   []*chunk.Chunk{testChunk(chunk.Coord{CX: 2, CY: 0}, 2)},
		Unloaded: []chunk.Coord{{CX: -1, CY: 0}},
	}
	b := FromDelta(7, [2]float64{16, 0}, d, 2)
	if b.Tick != 7 || b.Center != d.Center || b.Observer != [2]float64{16, 0} {
		t.Fatalf("header: %+v", b)
	}
	if len(b.Paints) != 1 || len(b.Clears) != 1 || b.Empty() {
		t.Fatalf("counts: paints=%d clears=%d", len(b.Paints), len(b.Clears))
	}
	if b.Clears[0].Origin != (Pos{X: -2, Y: 0}) {
		t.Fatalf("clear origin: %+v", b.Clears[0].Origin)
	}
	if !FromDelta(8, [2]float64{}, store.Delta{}, 2).Empty() {
		t.Fatalf("empty delta should give empty batch")
	}
}

func TestMulti_AppliesAllAndJoinsErrors(t *testing.T) {
	errA := errors.New("a")
	var calls int
	ok := ViewFunc(func(Batch) error { calls++; return nil })
	bad := ViewFunc(func(Batch) error { calls++; return errA })
	m := Multi{bad, nil, ok}
	err := m.Apply(Batch{})
	if !errors.Is(err, errA) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls: got %d want 2", calls)
	}
	if err := (Multi{ok}).Apply(Batch{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecorder_PaintThenClear(t *testing.T) {
	r := NewRecorder()
	ch := testChunk(chunk.Coord{CX: 0, CY: 0}, 2)
	if err := r.Apply(Batch{Tick: 1, Paints: []ChunkPaint{Paints(ch)}}); err != nil {
		t.Fatalf("paint: %v", err)
	}
	if r.Len() != 4 {
		t.Fatalf("len: got %d want 4", r.Len())
	}
	tile, ok := r.Tile(Pos{X: 0, Y: 0})
	if !ok || tile.Class != chunk.Building {
		t.Fatalf("tile (0,0): %+v ok=%v", tile, ok)
	}

	// Repainting a live chunk is inconsistent.
	err := r.Apply(Batch{Tick: 2, Paints: []ChunkPaint{Paints(ch)}})
	if !errors.Is(err, ErrAlreadyPainted) {
		t.Fatalf("expected ErrAlreadyPainted, got %v", err)
	}

	r2 := NewRecorder()
	_ = r2.Apply(Batch{Tick: 1, Paints: []ChunkPaint{Paints(ch)}})
	if err := r2.Apply(Batch{Tick: 2, Clears: []ChunkClear{Clears(ch.Coord, 2)}}); err != nil {
		t.Fatalf("clear: %v", err)
	}
	st := r2.Stats()
	if st.Live != 0 || st.Painted != 4 || st.Cleared != 4 || st.Batches != 2 {
		t.Fatalf("stats: %+v", st)
	}
	err = r2.Apply(Batch{Tick: 3, Clears: []ChunkClear{Clears(ch.Coord, 2)}})
	if !errors.Is(err, ErrNotPainted) {
		t.Fatalf("expected ErrNotPainted, got %v", err)
	}
}

func TestRecorder_ClearsBeforePaints(t *testing.T) {
	r := NewRecorder()
	ch := testChunk(chunk.Coord{CX: 0, CY: 0}, 2)
	_ = r.Apply(Batch{Tick: 1, Paints: []ChunkPaint{Paints(ch)}})
	// Same chunk evicted and regenerated in one batch.
	b := Batch{Tick: 2, Clears: []ChunkClear{Clears(ch.Coord, 2)}, Paints: []ChunkPaint{Paints(ch)}}
	if err := r.Apply(b); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if r.Len() != 4 {
		t.Fatalf("len: got %d want 4", r.Len())
	}
}
