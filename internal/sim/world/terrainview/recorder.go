package terrainview

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNotPainted     = errors.New("clear of unpainted tile")
	ErrAlreadyPainted = errors.New("paint over painted tile")
)

// Recorder is an in-memory View that keeps the current tile map and checks that instructions
// are consistent: a tile is cleared only while painted, and painted only while clear.
type Recorder struct {
	mu      sync.Mutex
	tiles   map[Pos]Tile
	painted uint64
	cleared uint64
	batches uint64
}

func NewRecorder() *Recorder {
	return &Recorder{tiles: map[Pos]Tile{}}
}

func (r *Recorder) Apply(b Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches++
	for _, c := range b.Clears {
		for _, p := range c.Tiles() {
			if _, ok := r.tiles[p]; !ok {
				return fmt.Errorf("tick %d chunk %s tile (%d,%d): %w", b.Tick, c.Coord, p.X, p.Y, ErrNotPainted)
			}
			delete(r.tiles, p)
			r.cleared++
		}
	}
	for _, cp := range b.Paints {
		for _, t := range cp.Tiles {
			if _, ok := r.tiles[t.Pos]; ok {
				return fmt.Errorf("tick %d chunk %s tile (%d,%d): %w", b.Tick, cp.Coord, t.X, t.Y, ErrAlreadyPainted)
			}
			r.tiles[t.Pos] = t
			r.painted++
		}
	}
	return nil
}

func (r *Recorder) Tile(p Pos) (Tile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tiles[p]
	return t, ok
}

// Len is the number of tiles currently painted.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tiles)
}

type RecorderStats struct {
	Batches uint64
	Painted uint64
	Cleared uint64
	Live    int
}

func (r *Recorder) Stats() RecorderStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RecorderStats{Batches: r.batches, Painted: r.painted, Cleared: r.cleared, Live: len(r.tiles)}
}
