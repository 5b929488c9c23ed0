// Package heatmap implements the distance fields ("Dijkstra maps") that
// drive navigation: a multi-source flood-fill propagator, per-tag maps with
// an approach field and two derived flee fields, and the fixed registry of
// all maps.
package heatmap

import (
	"fmt"
	"math"

	"github.com/talgya/townsim/internal/grid"
)

// Unreachable is the sentinel held by cells no source can reach. It behaves
// as +infinity: any finite candidate value beats it.
const Unreachable = math.MaxFloat64

// Flee coefficients. Both are negative so the flee fields slope away from
// the sources; the bold coefficient is larger in magnitude, so bold mobs
// accept deeper incursion toward danger before turning away.
const (
	TimidCoeff = -1.1
	BoldCoeff  = -1.6
)

// Map is one heatmap: the approach field for a desire category together with
// the two flee fields derived from it.
//
// Invariants: approach is 0 at every source; every other reachable cell
// holds 1 + the minimum of its neighbors; unreachable cells hold
// Unreachable. Each flee field is the approach field scaled by its (negative)
// coefficient and then re-propagated from the scaled field's own minima, so
// it is a valid monotonic field in its own right rather than a mere scaled
// copy. Scaling alone leaves notches next to obstacles; the re-propagation
// smooths them out.
type Map struct {
	// Sources are the zero-cost seeds: the global minima of the approach field.
	Sources []grid.Point
	// Approach is the distance-to-nearest-source field.
	Approach *grid.Grid[float64]
	// FleeTimid is the repulsion field for mobs unwilling to take risks while
	// escaping.
	FleeTimid *grid.Grid[float64]
	// FleeBold is the repulsion field for mobs willing to cut closer to what
	// they are escaping from.
	FleeBold *grid.Grid[float64]
}

// NewMap creates an empty heatmap with every cell unreachable.
func NewMap(width, height int) *Map {
	return &Map{
		Approach:  grid.New(width, height, Unreachable),
		FleeTimid: grid.New(width, height, Unreachable),
		FleeBold:  grid.New(width, height, Unreachable),
	}
}

// NewSingleTarget builds a throwaway map with one source, fully propagated.
// Used for on-demand pathfinding to a specific cell.
func NewSingleTarget(width, height int, target grid.Point, blocked func(grid.Point) bool) *Map {
	m := NewMap(width, height)
	m.AddSource(target, blocked)
	return m
}

// String summarizes the map by its sources.
func (m *Map) String() string {
	return fmt.Sprintf("<Map %v>", m.Sources)
}

// AddSource adds a source and repairs the approach field incrementally: the
// wave seeded at the new source only touches cells it improves, because
// everything else already holds a value at or below the new wavefront. The
// flee fields are recomputed in full since their global minimum may have
// moved. Incremental repair is sound only for monotonic-decreasing edits
// like this one; see RemoveSource for the other direction.
func (m *Map) AddSource(source grid.Point, blocked func(grid.Point) bool) {
	m.AddSourceNoRebuild(source)

	m.Approach.Set(source, 0)
	floodFill(m.Approach, []grid.Point{source}, blocked)

	m.recomputeFlee(blocked)
}

// AddSourceNoRebuild records a source without touching the fields. The
// caller is expected to follow up with a rebuild; template placement uses
// this to stamp several sources and rebuild once.
func (m *Map) AddSourceNoRebuild(source grid.Point) {
	m.Sources = append(m.Sources, source)
}

// RemoveSource removes a source and rebuilds the map from scratch. The
// propagator can only ever lower values, so stale low values radiating from
// the removed source cannot be repaired incrementally: a
// monotonic-increasing edit (removing a source, adding an obstruction)
// always costs a full rebuild.
func (m *Map) RemoveSource(source grid.Point, blocked func(grid.Point) bool) {
	m.RemoveSourceNoRebuild(source)
	m.RebuildFromSources(blocked)
}

// RemoveSourceNoRebuild removes a source without touching the fields.
func (m *Map) RemoveSourceNoRebuild(source grid.Point) {
	kept := m.Sources[:0]
	for _, s := range m.Sources {
		if s != source {
			kept = append(kept, s)
		}
	}
	m.Sources = kept
}

// RebuildFromSources resets all three fields and recomputes them from the
// current source list. This is the path used after source removal and after
// bulk world edits such as placing a building.
func (m *Map) RebuildFromSources(blocked func(grid.Point) bool) {
	m.Approach.Fill(Unreachable)
	m.FleeTimid.Fill(Unreachable)
	m.FleeBold.Fill(Unreachable)

	for _, source := range m.Sources {
		m.Approach.Set(source, 0)
	}
	floodFill(m.Approach, m.Sources, blocked)

	m.recomputeFlee(blocked)
}

// recomputeFlee derives both flee fields from the approach field: scale every
// reachable cell by the flee coefficients, find the set of cells achieving
// the global minimum of the scaled field (all ties, not just the first), and
// re-propagate each flee field from that minima set. Both fields share the
// minima set since both are monotonic reparametrizations of approach.
func (m *Map) recomputeFlee(blocked func(grid.Point) bool) {
	var minima []grid.Point
	minimal := Unreachable

	w, h := m.Approach.Width(), m.Approach.Height()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := grid.Point{X: x, Y: y}
			a := m.Approach.At(p)
			if a == Unreachable {
				continue
			}
			timid := a * TimidCoeff
			m.FleeTimid.Set(p, timid)
			m.FleeBold.Set(p, a*BoldCoeff)

			if timid == minimal {
				minima = append(minima, p)
			} else if timid < minimal {
				minima = minima[:0]
				minima = append(minima, p)
				minimal = timid
			}
		}
	}

	floodFill(m.FleeTimid, minima, blocked)
	floodFill(m.FleeBold, minima, blocked)
}

// BestStep returns the neighbor of from with the lowest approach value, for
// stepping along this map toward its sources. Returns false if every
// neighbor is unreachable, which means the sources cannot be reached from
// here at all.
func (m *Map) BestStep(from grid.Point) (grid.Point, bool) {
	best := from
	bestVal := Unreachable
	grid.Neighbors(m.Approach.Width(), m.Approach.Height(), from, func(q grid.Point) {
		if v := m.Approach.At(q); v < bestVal {
			best = q
			bestVal = v
		}
	})
	if bestVal == Unreachable {
		return grid.Point{}, false
	}
	return best, true
}
