package store

import (
	"sort"

	"github.com/A-G0D/RotBound-Unity/internal/sim/world/logic/mathx"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/chunk"
)

func (s *ChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Center returns the observer chunk of the last applied update.
func (s *ChunkStore) Center() (chunk.Coord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.center, s.hasCenter
}

func (s *ChunkStore) Get(c chunk.Coord) (*chunk.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.chunks[c]
	return ch, ok
}

func (s *ChunkStore) LoadedChunkKeys() []chunk.Coord {
	s.mu.RLock()
	keys := make([]chunk.Coord, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sortCoords(keys)
	return keys
}

// Loaded returns the loaded chunks in key order. Chunks are immutable, so the slice is a
// consistent view even if the store moves on.
func (s *ChunkStore) Loaded() []*chunk.Chunk {
	s.mu.RLock()
	out := make([]*chunk.Chunk, 0, len(s.chunks))
	for _, ch := range s.chunks {
		out = append(out, ch)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return less(out[i].Coord, out[j].Coord) })
	return out
}

// CellAt looks up a world tile among the loaded chunks.
func (s *ChunkStore) CellAt(wx, wy int) (chunk.Cell, bool) {
	c := chunk.Coord{CX: mathx.FloorDiv(wx, s.size), CY: mathx.FloorDiv(wy, s.size)}
	ch, ok := s.Get(c)
	if !ok {
		return chunk.Cell{}, false
	}
	return ch.At(mathx.Mod(wx, s.size), mathx.Mod(wy, s.size)), true
}

func less(a, b chunk.Coord) bool {
	if a.CX != b.CX {
		return a.CX < b.CX
	}
	return a.CY < b.CY
}

func sortCoords(keys []chunk.Coord) {
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
}
