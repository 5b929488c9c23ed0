package heatmap

import (
	"github.com/talgya/townsim/internal/grid"
)

// floodFill propagates a distance field outward from the given seed points.
// The seeds are assumed to already be the field's global minima; violating
// that precondition leaves a stale, non-monotonic field behind. Passing no
// seeds is a valid no-op.
//
// Propagation is breadth-first from a FIFO queue: edge costs are uniform, so
// FIFO order already processes points in non-decreasing final distance and a
// priority queue would buy nothing over plain BFS. For each dequeued point
// the candidate value is 1 + the minimum among its in-bounds neighbors; a
// commit strictly lowers the point's value, which together with the global
// minimum lower bound guarantees termination.
//
// Blocked points are never enqueued and so never relaxed, but they still
// participate as neighbor minima when they hold a finite value. That is what
// lets an impassable shop counter act as a zero-cost source despite being
// unwalkable. A seed's own value cannot improve, but its neighbors' can, so
// the initial wave always expands outward from every seed. This also covers
// flee fields, whose seeds sit at a negative minimum rather than at 0.
//
// See:
// - http://www.roguebasin.com/index.php?title=The_Incredible_Power_of_Dijkstra_Maps
// - http://www.roguebasin.com/index.php?title=Dijkstra_Maps_Visualized
func floodFill(field *grid.Grid[float64], seeds []grid.Point, blocked func(grid.Point) bool) {
	w, h := field.Width(), field.Height()

	queue := make([]grid.Point, 0, w*h/2)
	queue = append(queue, seeds...)

	// The first len(seeds) dequeues are exactly the seeds: they expand even
	// though their own value does not change.
	initial := len(seeds)

	for i := 0; len(queue) > 0; i++ {
		pos := queue[0]
		queue = queue[1:]
		val := field.At(pos)

		localMin := val
		grid.Neighbors(w, h, pos, func(q grid.Point) {
			if here := field.At(q); here < localMin {
				localMin = here
			}
		})

		candidate := localMin + 1
		committed := val
		if candidate < val {
			field.Set(pos, candidate)
			committed = candidate
		} else if i >= initial {
			continue
		}

		// Enqueue every neighbor that may now be improvable: anything still
		// above the committed value. Blocked cells keep their value and never
		// join the wave.
		grid.Neighbors(w, h, pos, func(q grid.Point) {
			if field.At(q) > committed && !blocked(q) {
				queue = append(queue, q)
			}
		})
	}
}
