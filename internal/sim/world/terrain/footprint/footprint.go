// Package footprint fits axis-aligned rectangles inside occupancy blobs and decides which of
// them are large enough to become building footprints.
package footprint

import "github.com/A-G0D/RotBound-Unity/internal/sim/world/terrain/grid"

// Rect is in chunk-local coordinates; it covers [X, X+W) x [Y, Y+H).
type Rect struct {
	X, Y int
	W, H int
}

func (r Rect) Area() int { return r.W * r.H }

func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Fit returns the largest all-true rectangle whose top-left corner is a cell of blob. Validity is
// checked against the whole occupancy grid, so the rectangle may reach into other blobs. Ties go to
// the first rectangle found in corner, width, height order. An empty blob yields a zero Rect.
func Fit(blob grid.Blob, occ *grid.Grid) Rect {
	var best Rect
	bestArea := 0
	size := occ.Size()

	for _, c := range blob {
		limitW := size - c.X
		limitH := size - c.Y
		for w := 1; w <= limitW; w++ {
			for h := 1; h <= limitH; h++ {
				if w*h <= bestArea {
					continue
				}
				if !allTrue(occ, c.X, c.Y, w, h) {
					// a failing cell stays inside every taller rectangle at this width
					break
				}
				best = Rect{X: c.X, Y: c.Y, W: w, H: h}
				bestArea = w * h
			}
		}
	}
	return best
}

func allTrue(occ *grid.Grid, x0, y0, w, h int) bool {
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			if !occ.At(x, y) {
				return false
			}
		}
	}
	return true
}

// Policy is the minimum footprint, accepted in either orientation.
type Policy struct {
	MinLong  int
	MinShort int
}

func DefaultPolicy() Policy {
	return Policy{MinLong: 5, MinShort: 3}
}

// Accepts reports whether r fits MinLong x MinShort or MinShort x MinLong. Area alone never
// qualifies: a 4x4 rectangle fails the 5x3 policy.
func (p Policy) Accepts(r Rect) bool {
	horizontal := r.W >= p.MinLong && r.H >= p.MinShort
	vertical := r.W >= p.MinShort && r.H >= p.MinLong
	return horizontal || vertical
}
