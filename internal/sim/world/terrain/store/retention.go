package store

import (
	"sort"

	"github.com/A-G0D/RotBound-Unity/internal/sim/world/logic/mathx"
	"github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/chunk"
)

// Wanted returns the (2r+1)^2 coordinates within Chebyshev distance radius of center, nearest
// ring first so that the observer's own chunk is generated before the outskirts.
func Wanted(center chunk.Coord, radius int) []chunk.Coord {
	if radius < 0 {
		return nil
	}
	out := make([]chunk.Coord, 0, (2*radius+1)*(2*radius+1))
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			out = append(out, chunk.Coord{CX: center.CX + dx, CY: center.CY + dy})
		}
	}
	dist := func(c chunk.Coord) int {
		return mathx.Chebyshev(c.CX, c.CY, center.CX, center.CY)
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := dist(out[i]), dist(out[j])
		if di != dj {
			return di < dj
		}
		return less(out[i], out[j])
	})
	return out
}

// InRange reports whether c belongs to the retention set around center.
func InRange(center, c chunk.Coord, radius int) bool {
	return mathx.Chebyshev(c.CX, c.CY, center.CX, center.CY) <= radius
}
