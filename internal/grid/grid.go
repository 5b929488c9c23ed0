// Package grid provides the dense 2-D field abstraction the simulation is
// built on: integer points, generic cell grids, and 8-connected neighborhood
// iteration.
package grid

import "fmt"

// Point is a location in 2-D space. Valid points satisfy 0 <= X < width and
// 0 <= Y < height of whatever grid they index.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// String returns the point as "(x,y)".
func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Less orders points by X, then Y. Used wherever a deterministic iteration
// order over point-keyed maps is needed.
func (p Point) Less(q Point) bool {
	if p.X != q.X {
		return p.X < q.X
	}
	return p.Y < q.Y
}

// Grid is a dense field of cells backed by a single flat buffer with
// row-major indexing. Accessors panic on out-of-bounds points: neighbor
// enumeration clamps at construction, so an out-of-bounds access is a
// programming defect, not a runtime condition.
type Grid[T any] struct {
	width  int
	height int
	cells  []T
}

// New creates a grid with every cell set to the given zero value.
func New[T any](width, height int, zero T) *Grid[T] {
	g := &Grid[T]{
		width:  width,
		height: height,
		cells:  make([]T, width*height),
	}
	g.Fill(zero)
	return g
}

// Width returns the horizontal extent of the grid.
func (g *Grid[T]) Width() int { return g.width }

// Height returns the vertical extent of the grid.
func (g *Grid[T]) Height() int { return g.height }

// InBounds reports whether the point indexes a cell of this grid.
func (g *Grid[T]) InBounds(p Point) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

// At looks up the value at a point.
func (g *Grid[T]) At(p Point) T {
	return g.cells[g.index(p)]
}

// Set stores a value at a point.
func (g *Grid[T]) Set(p Point, v T) {
	g.cells[g.index(p)] = v
}

// Fill sets every cell to the given value.
func (g *Grid[T]) Fill(v T) {
	for i := range g.cells {
		g.cells[i] = v
	}
}

func (g *Grid[T]) index(p Point) int {
	if !g.InBounds(p) {
		panic(fmt.Sprintf("grid: point %v outside %dx%d", p, g.width, g.height))
	}
	return p.Y*g.width + p.X
}

// Neighbors calls fn for each of the up-to-8 in-bounds cells adjacent to p.
// Edge and corner cells simply have fewer neighbors; coordinates never wrap.
// Iteration order is fixed (row by row, left to right), which keeps every
// consumer of the neighborhood deterministic.
func Neighbors(width, height int, p Point, fn func(Point)) {
	for dy := -1; dy <= 1; dy++ {
		y := p.Y + dy
		if y < 0 || y >= height {
			continue
		}
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			x := p.X + dx
			if x < 0 || x >= width {
				continue
			}
			fn(Point{X: x, Y: y})
		}
	}
}

// NeighborsAndSelf is Neighbors plus the cell itself, in the same row-major
// order.
func NeighborsAndSelf(width, height int, p Point, fn func(Point)) {
	for dy := -1; dy <= 1; dy++ {
		y := p.Y + dy
		if y < 0 || y >= height {
			continue
		}
		for dx := -1; dx <= 1; dx++ {
			x := p.X + dx
			if x < 0 || x >= width {
				continue
			}
			fn(Point{X: x, Y: y})
		}
	}
}
