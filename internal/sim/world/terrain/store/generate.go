package store

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/chunk"
)

// generateAll builds every coordinate on a bounded worker pool. Chunks are independent, so no
// ordering or locking is needed until the results are applied by the caller.
func (s *ChunkStore) generateAll(ctx context.Context, coords []chunk.Coord) ([]*chunk.Chunk, error) {
	if len(coords) == 0 {
		return nil, nil
	}
	out := make([]*chunk.Chunk, len(coords))
	// gctx is cancelled by Wait; only the caller's ctx decides whether the batch counts.
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers)
	for i, c := range coords {
		if gctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = s.gen.Generate(c)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
