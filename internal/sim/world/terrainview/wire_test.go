package terrainview

import (
	"testing"

	"github.com/A-G0D/RotBound-Unity/internal/protocol"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/chunk"
)

func TestWire_PaintRoundTrip(t *testing.T) {
	p := Paints(testChunk(chunk.Coord{CX: -2, CY: 3}, 3))
	ct := ToWirePaint(p)
	if ct.Values[0] != protocol.BuildingMarker || ct.Values[5] != 5 {
		t.Fatalf("values: %v", ct.Values)
	}
	back, err := FromWirePaint(ct)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Coord != p.Coord || back.Origin != p.Origin || len(back.Tiles) != len(p.Tiles) {
		t.Fatalf("header mismatch: %+v vs %+v", back, p)
	}
	for i := range p.Tiles {
		if back.Tiles[i] != p.Tiles[i] {
			t.Fatalf("tile %d: got %+v want %+v", i, back.Tiles[i], p.Tiles[i])
		}
	}
}

func TestWire_RejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		ct   protocol.ChunkTiles
	}{
		{"zero size", protocol.ChunkTiles{Size: 0}},
		{"short values", protocol.ChunkTiles{Size: 2, Values: []int{0, 0, 0}}},
		{"value too large", protocol.ChunkTiles{Size: 1, Values: []int{257}}},
		{"negative value", protocol.ChunkTiles{Size: 1, Values: []int{-1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := FromWirePaint(tc.ct); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	if _, err := FromWireClear(protocol.ChunkRef{Size: -1}); err == nil {
		t.Fatalf("expected error for bad clear size")
	}
}

func TestWire_Messages(t *testing.T) {
	if PaintMsg(Batch{}) != nil || ClearMsg(Batch{}) != nil {
		t.Fatalf("empty batch should produce no messages")
	}
	b := Batch{
		Tick:   4,
		Center: chunk.Coord{CX: 1, CY: 2},
		Paints: []ChunkPaint{Paints(testChunk(chunk.Coord{CX: 1, CY: 2}, 2))},
		Clears: []ChunkClear{Clears(chunk.Coord{CX: 5, CY: 5}, 2)},
	}
	pm := PaintMsg(b)
	if pm.Type != protocol.TypePaint || pm.Tick != 4 || pm.Center != [2]int{1, 2} || len(pm.Chunks) != 1 {
		t.Fatalf("paint msg: %+v", pm)
	}
	cm := ClearMsg(b)
	if cm.Type != protocol.TypeClear || len(cm.Chunks) != 1 || cm.Chunks[0].Origin != [2]int{10, 10} {
		t.Fatalf("clear msg: %+v", cm)
	}
	ref, err := FromWireClear(cm.Chunks[0])
	if err != nil || ref != b.Clears[0] {
		t.Fatalf("clear round trip: %+v err=%v", ref, err)
	}
}
