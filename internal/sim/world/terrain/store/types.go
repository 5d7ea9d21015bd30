package store

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/A-G0D/RotBound-Unity/internal/sim/tuning"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/chunk"
)

// Generator produces one chunk. Implementations must be safe for concurrent use.
type Generator interface {
	Generate(c chunk.Coord) *chunk.Chunk
	ChunkSize() int
}

// Delta is the result of one observer update: chunks generated for the new retention set and
// coordinates evicted from it.
type Delta struct {
	Center   chunk.Coord
	Moved    bool
	Loaded   []*chunk.Chunk
	Unloaded []chunk.Coord
}

func (d Delta) Empty() bool { return len(d.Loaded) == 0 && len(d.Unloaded) == 0 }

// ChunkStore owns every loaded chunk. The loaded set is only changed by OnObserverMoved, which
// is serialized; readers may run concurrently with it.
type ChunkStore struct {
	gen     Generator
	size    int
	radius  int
	workers int

	updateMu sync.Mutex

	mu        sync.RWMutex
	chunks    map[chunk.Coord]*chunk.Chunk
	center    chunk.Coord
	hasCenter bool
}

func NewChunkStore(gen Generator, radius, workers int) (*ChunkStore, error) {
	if gen == nil {
		return nil, fmt.Errorf("chunk store: nil generator")
	}
	if gen.ChunkSize() <= 0 {
		return nil, &tuning.ConfigError{Field: "chunk_size", Reason: "must be > 0"}
	}
	if radius < 0 {
		return nil, &tuning.ConfigError{Field: "chunk_load_radius", Reason: "must be >= 0"}
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &ChunkStore{
		gen:     gen,
		size:    gen.ChunkSize(),
		radius:  radius,
		workers: workers,
		chunks:  map[chunk.Coord]*chunk.Chunk{},
	}, nil
}

func (s *ChunkStore) ChunkSize() int { return s.size }

func (s *ChunkStore) Radius() int { return s.radius }
