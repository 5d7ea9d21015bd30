// Package grid holds the per-chunk occupancy grid and the connected-region (blob) extraction
// that runs over it.
package grid

import "fmt"

type Point struct {
	X, Y int
}

// Grid is a flat size x size boolean array indexed x + y*size.
type Grid struct {
	size  int
	cells []bool
}

func New(size int) *Grid {
	if size <= 0 {
		panic(fmt.Sprintf("grid: size must be > 0, got %d", size))
	}
	return &Grid{size: size, cells: make([]bool, size*size)}
}

func (g *Grid) Size() int { return g.size }

func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.size && y >= 0 && y < g.size
}

func (g *Grid) index(x, y int) int {
	if !g.InBounds(x, y) {
		panic(fmt.Sprintf("grid: cell (%d,%d) out of range [0,%d)", x, y, g.size))
	}
	return x + y*g.size
}

func (g *Grid) At(x, y int) bool { return g.cells[g.index(x, y)] }

func (g *Grid) Set(x, y int, v bool) { g.cells[g.index(x, y)] = v }

// Count returns the number of true cells.
func (g *Grid) Count() int {
	n := 0
	for _, v := range g.cells {
		if v {
			n++
		}
	}
	return n
}

// Blob is a maximal 4-connected set of true cells. Cell order is unspecified.
type Blob []Point

var dirs = [4]Point{{0, 1}, {0, -1}, {-1, 0}, {1, 0}}

// Extract partitions the true cells of g into blobs by breadth-first flood fill.
func Extract(g *Grid) []Blob {
	visited := make([]bool, len(g.cells))
	var blobs []Blob
	queue := make([]Point, 0, len(g.cells))

	for y := 0; y < g.size; y++ {
		for x := 0; x < g.size; x++ {
			start := g.index(x, y)
			if !g.cells[start] || visited[start] {
				continue
			}
			visited[start] = true
			queue = append(queue[:0], Point{X: x, Y: y})
			var blob Blob
			for head := 0; head < len(queue); head++ {
				p := queue[head]
				blob = append(blob, p)
				for _, d := range dirs {
					nx, ny := p.X+d.X, p.Y+d.Y
					if !g.InBounds(nx, ny) {
						continue
					}
					i := g.index(nx, ny)
					if g.cells[i] && !visited[i] {
						visited[i] = true
						queue = append(queue, Point{X: nx, Y: ny})
					}
				}
			}
			blobs = append(blobs, blob)
		}
	}
	return blobs
}
