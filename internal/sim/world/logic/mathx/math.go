package mathx

import "math"

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func Mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Chebyshev returns the chessboard distance between two grid points.
func Chebyshev(ax, ay, bx, by int) int {
	dx := AbsInt(ax - bx)
	dy := AbsInt(ay - by)
	if dx > dy {
		return dx
	}
	return dy
}

// MaxPosition bounds world coordinates accepted by ChunkOf; beyond it float64 tiles are no
// longer exact integers.
const MaxPosition = 1 << 52

// ValidPosition reports whether v is finite and within [-MaxPosition, MaxPosition].
func ValidPosition(v float64) bool {
	return !math.IsNaN(v) && v >= -MaxPosition && v <= MaxPosition
}

// ChunkOf maps a continuous world coordinate onto the index of the chunk that contains it,
// i.e. floor(v / size). size > 0 and ValidPosition(v); other inputs give an unspecified index.
func ChunkOf(v float64, size int) int {
	return int(math.Floor(v / float64(size)))
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
