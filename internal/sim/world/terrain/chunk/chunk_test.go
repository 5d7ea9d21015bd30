package chunk

import "testing"

func cellsFor(c Coord, size int) []Cell {
	cells := make([]Cell, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			cells[x+y*size] = Cell{WX: c.CX*size + x, WY: c.CY*size + y, Class: Terrain}
		}
	}
	return cells
}

func TestCoordAt(t *testing.T) {
	cases := []struct {
		x, y float64
		want Coord
	}{
		{0, 0, Coord{0, 0}},
		{16, 0, Coord{1, 0}},
		{15.9, -0.1, Coord{0, -1}},
		{-33, 47, Coord{-3, 2}},
	}
	for _, c := range cases {
		if got := CoordAt(c.x, c.y, 16); got != c.want {
			t.Errorf("CoordAt(%v,%v) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestChunkAccessorsAndCounts(t *testing.T) {
	c := Coord{CX: -1, CY: 2}
	cells := cellsFor(c, 4)
	cells[5].Class = Building
	ch := New(c, 4, cells, nil)

	if ox, oy := ch.Origin(); ox != -4 || oy != 8 {
		t.Fatalf("Origin = (%d,%d), want (-4,8)", ox, oy)
	}
	if got := ch.At(1, 1); got.Class != Building || got.WX != -3 || got.WY != 9 {
		t.Fatalf("At(1,1) = %+v", got)
	}
	if ch.BuildingCount() != 1 {
		t.Fatalf("BuildingCount = %d, want 1", ch.BuildingCount())
	}
	n := 0
	ch.Cells(func(Cell) { n++ })
	if n != 16 {
		t.Fatalf("Cells visited %d, want 16", n)
	}
}

func TestDigestTracksContent(t *testing.T) {
	c := Coord{}
	a := New(c, 4, cellsFor(c, 4), nil)
	b := New(c, 4, cellsFor(c, 4), nil)
	if a.Digest() != b.Digest() {
		t.Fatalf("identical chunks should share a digest")
	}
	cells := cellsFor(c, 4)
	cells[0].Shade = 9
	if New(c, 4, cells, nil).Digest() == a.Digest() {
		t.Fatalf("digest should change with shade")
	}
}

func TestAtOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	c := Coord{}
	New(c, 4, cellsFor(c, 4), nil).At(0, 4)
}
