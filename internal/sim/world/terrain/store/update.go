package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/A-G0D/RotBound-Unity/internal/sim/world/logic/mathx"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/chunk"
)

// ErrBadPosition is returned for NaN, infinite or out-of-range observer positions.
var ErrBadPosition = errors.New("observer position out of range")

// OnObserverMoved recomputes the retention set when the observer has crossed into a new chunk.
// Staying inside the same chunk is a no-op. After a successful return the loaded keys equal the
// Chebyshev neighbourhood of the observer chunk. If ctx is cancelled while chunks are being
// generated, the loaded set is left exactly as it was and ctx.Err() is returned.
func (s *ChunkStore) OnObserverMoved(ctx context.Context, x, y float64) (Delta, error) {
	if !mathx.ValidPosition(x) || !mathx.ValidPosition(y) {
		return Delta{}, fmt.Errorf("chunk store: (%v,%v): %w", x, y, ErrBadPosition)
	}
	return s.Recenter(ctx, chunk.CoordAt(x, y, s.size))
}

func (s *ChunkStore) Recenter(ctx context.Context, c chunk.Coord) (Delta, error) {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	s.mu.RLock()
	same := s.hasCenter && s.center == c
	s.mu.RUnlock()
	if same {
		return Delta{Center: c}, nil
	}

	wanted := Wanted(c, s.radius)
	var missing []chunk.Coord
	s.mu.RLock()
	for _, k := range wanted {
		if _, ok := s.chunks[k]; !ok {
			missing = append(missing, k)
		}
	}
	s.mu.RUnlock()

	generated, err := s.generateAll(ctx, missing)
	if err != nil {
		return Delta{}, err
	}

	d := Delta{Center: c, Moved: true}
	s.mu.Lock()
	for _, ch := range generated {
		if _, ok := s.chunks[ch.Coord]; ok {
			// already loaded; keep the resident chunk
			continue
		}
		s.chunks[ch.Coord] = ch
		d.Loaded = append(d.Loaded, ch)
	}
	for k := range s.chunks {
		if !InRange(c, k, s.radius) {
			delete(s.chunks, k)
			d.Unloaded = append(d.Unloaded, k)
		}
	}
	s.center = c
	s.hasCenter = true
	s.mu.Unlock()

	sortCoords(d.Unloaded)
	return d, nil
}
