package heatmap

import (
	"testing"

	"github.com/talgya/townsim/internal/grid"
)

func open(grid.Point) bool { return false }

// walls returns a blocking predicate over a set of points.
func walls(ps ...grid.Point) func(grid.Point) bool {
	set := make(map[grid.Point]bool, len(ps))
	for _, p := range ps {
		set[p] = true
	}
	return func(p grid.Point) bool { return set[p] }
}

// chebyshev is the reference distance for open grids.
func chebyshev(a, b grid.Point) float64 {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return float64(dx)
	}
	return float64(dy)
}

func fieldsEqual(t *testing.T, name string, a, b *grid.Grid[float64]) {
	t.Helper()
	for y := 0; y < a.Height(); y++ {
		for x := 0; x < a.Width(); x++ {
			p := grid.Point{X: x, Y: y}
			if a.At(p) != b.At(p) {
				t.Errorf("%s differs at %v: %v vs %v", name, p, a.At(p), b.At(p))
			}
		}
	}
}

func TestApproachOpenGrid(t *testing.T) {
	m := NewMap(5, 5)
	src := grid.Point{X: 2, Y: 2}
	m.AddSource(src, open)

	if got := m.Approach.At(src); got != 0 {
		t.Errorf("approach at source = %v, want 0", got)
	}
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			p := grid.Point{X: x, Y: y}
			if got, want := m.Approach.At(p), chebyshev(p, src); got != want {
				t.Errorf("approach%v = %v, want %v", p, got, want)
			}
		}
	}
}

func TestApproachRoutesAroundWalls(t *testing.T) {
	// A wall column at x=2 with a single gap at y=4. Everything right of the
	// wall must route through the gap.
	blocked := walls(
		grid.Point{X: 2, Y: 0},
		grid.Point{X: 2, Y: 1},
		grid.Point{X: 2, Y: 2},
		grid.Point{X: 2, Y: 3},
	)
	m := NewMap(5, 5)
	m.AddSource(grid.Point{X: 0, Y: 0}, blocked)

	tests := []struct {
		p    grid.Point
		want float64
	}{
		{grid.Point{X: 1, Y: 0}, 1},
		{grid.Point{X: 1, Y: 3}, 3},
		{grid.Point{X: 2, Y: 4}, 4}, // the gap
		{grid.Point{X: 3, Y: 4}, 5},
		{grid.Point{X: 3, Y: 0}, 8}, // down, through the gap, back up
		{grid.Point{X: 4, Y: 0}, 8},
	}
	for _, tt := range tests {
		if got := m.Approach.At(tt.p); got != tt.want {
			t.Errorf("approach%v = %v, want %v", tt.p, got, tt.want)
		}
	}

	// Wall cells themselves were never relaxed.
	if got := m.Approach.At(grid.Point{X: 2, Y: 1}); got != Unreachable {
		t.Errorf("approach at wall = %v, want Unreachable", got)
	}
}

func TestApproachUnreachableRegion(t *testing.T) {
	// Seal off the right column entirely.
	blocked := walls(
		grid.Point{X: 3, Y: 0},
		grid.Point{X: 3, Y: 1},
		grid.Point{X: 3, Y: 2},
		grid.Point{X: 3, Y: 3},
		grid.Point{X: 3, Y: 4},
	)
	m := NewMap(5, 5)
	m.AddSource(grid.Point{X: 0, Y: 2}, blocked)

	for y := 0; y < 5; y++ {
		p := grid.Point{X: 4, Y: y}
		if got := m.Approach.At(p); got != Unreachable {
			t.Errorf("approach%v = %v, want Unreachable (sealed region)", p, got)
		}
	}
}

func TestBlockedSourceStillSeeds(t *testing.T) {
	// An impassable fixture like a shop counter is a zero-cost source even
	// though it can never be walked on: it holds a finite override that its
	// neighbors read as a candidate minimum.
	counter := grid.Point{X: 2, Y: 2}
	m := NewMap(5, 5)
	m.AddSource(counter, walls(counter))

	if got := m.Approach.At(counter); got != 0 {
		t.Errorf("approach at counter = %v, want 0", got)
	}
	grid.Neighbors(5, 5, counter, func(q grid.Point) {
		if got := m.Approach.At(q); got != 1 {
			t.Errorf("approach%v = %v, want 1", q, got)
		}
	})
}

func TestEmptySourcesIsNoOp(t *testing.T) {
	m := NewMap(4, 4)
	m.RebuildFromSources(open)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			p := grid.Point{X: x, Y: y}
			if got := m.Approach.At(p); got != Unreachable {
				t.Errorf("approach%v = %v, want Unreachable with no sources", p, got)
			}
		}
	}
}

// monotonicInvariant checks that every finite cell outside the anchor set has
// a neighbor holding exactly its own value minus one.
func monotonicInvariant(t *testing.T, name string, field *grid.Grid[float64], anchors map[grid.Point]bool) {
	t.Helper()
	for y := 0; y < field.Height(); y++ {
		for x := 0; x < field.Width(); x++ {
			p := grid.Point{X: x, Y: y}
			v := field.At(p)
			if v == Unreachable || anchors[p] {
				continue
			}
			found := false
			grid.Neighbors(field.Width(), field.Height(), p, func(q grid.Point) {
				if field.At(q) == v-1 {
					found = true
				}
			})
			if !found {
				t.Errorf("%s: cell %v (value %v) has no neighbor at %v", name, p, v, v-1)
			}
		}
	}
}

func TestMonotonicNeighborInvariant(t *testing.T) {
	blocked := walls(
		grid.Point{X: 4, Y: 2},
		grid.Point{X: 4, Y: 3},
		grid.Point{X: 4, Y: 4},
		grid.Point{X: 4, Y: 5},
	)
	m := NewMap(9, 9)
	m.AddSourceNoRebuild(grid.Point{X: 1, Y: 1})
	m.AddSourceNoRebuild(grid.Point{X: 7, Y: 6})
	m.RebuildFromSources(blocked)

	anchors := map[grid.Point]bool{
		{X: 1, Y: 1}: true,
		{X: 7, Y: 6}: true,
	}
	monotonicInvariant(t, "approach", m.Approach, anchors)
}

func TestFleeMonotonicFromOwnMinima(t *testing.T) {
	// Single source in the middle of an open grid: the flee minima are the
	// whole border ring, and every interior cell must step down by exactly 1
	// toward it. The flee fields are anchored at their own minima, not at
	// the source.
	m := NewMap(7, 7)
	m.AddSource(grid.Point{X: 3, Y: 3}, open)

	for name, field := range map[string]*grid.Grid[float64]{
		"fleeTimid": m.FleeTimid,
		"fleeBold":  m.FleeBold,
	} {
		minima := map[grid.Point]bool{}
		minimal := Unreachable
		for y := 0; y < 7; y++ {
			for x := 0; x < 7; x++ {
				p := grid.Point{X: x, Y: y}
				v := field.At(p)
				if v == Unreachable {
					continue
				}
				if v < minimal {
					minimal = v
					minima = map[grid.Point]bool{p: true}
				} else if v == minimal {
					minima[p] = true
				}
			}
		}
		if len(minima) != 24 {
			t.Errorf("%s: %d minimal cells, want the 24-cell border ring", name, len(minima))
		}
		monotonicInvariant(t, name, field, minima)
	}
}

func TestFleeFieldsSmoothed(t *testing.T) {
	// 5x5 open grid, source at the center. Approach is the Chebyshev ring
	// distance 0/1/2, so the timid raw values are 0/-1.1/-2.2 and the whole
	// border ring is the minima set. Re-propagation steps inward by +1 from
	// there, replacing the raw scaled values.
	m := NewMap(5, 5)
	m.AddSource(grid.Point{X: 2, Y: 2}, open)

	wantTimid := map[float64]float64{0: -0.2, 1: -1.2, 2: -2.2}
	wantBold := map[float64]float64{0: -1.2, 1: -2.2, 2: -3.2}
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			p := grid.Point{X: x, Y: y}
			ring := m.Approach.At(p)
			if got := m.FleeTimid.At(p); got != wantTimid[ring] {
				t.Errorf("fleeTimid%v = %v, want %v", p, got, wantTimid[ring])
			}
			if got := m.FleeBold.At(p); got != wantBold[ring] {
				t.Errorf("fleeBold%v = %v, want %v", p, got, wantBold[ring])
			}
		}
	}
}

func TestRebuildIdempotent(t *testing.T) {
	blocked := walls(grid.Point{X: 3, Y: 3}, grid.Point{X: 3, Y: 4})
	m := NewMap(7, 7)
	m.AddSourceNoRebuild(grid.Point{X: 1, Y: 5})
	m.AddSourceNoRebuild(grid.Point{X: 6, Y: 0})
	m.RebuildFromSources(blocked)

	snap := NewMap(7, 7)
	snap.Sources = append(snap.Sources, m.Sources...)
	snap.RebuildFromSources(blocked)

	m.RebuildFromSources(blocked)

	fieldsEqual(t, "approach", m.Approach, snap.Approach)
	fieldsEqual(t, "fleeTimid", m.FleeTimid, snap.FleeTimid)
	fieldsEqual(t, "fleeBold", m.FleeBold, snap.FleeBold)
}

func TestAddRemoveSymmetry(t *testing.T) {
	a := grid.Point{X: 1, Y: 1}
	b := grid.Point{X: 5, Y: 5}
	c := grid.Point{X: 3, Y: 1}

	m := NewMap(7, 7)
	m.AddSource(a, open)
	m.AddSource(b, open)
	m.AddSource(c, open)
	m.RemoveSource(c, open)

	ref := NewMap(7, 7)
	ref.AddSource(a, open)
	ref.AddSource(b, open)

	fieldsEqual(t, "approach", m.Approach, ref.Approach)
	fieldsEqual(t, "fleeTimid", m.FleeTimid, ref.FleeTimid)
	fieldsEqual(t, "fleeBold", m.FleeBold, ref.FleeBold)
}

func TestIncrementalAddMatchesFullRebuild(t *testing.T) {
	blocked := walls(grid.Point{X: 2, Y: 2}, grid.Point{X: 2, Y: 3})
	sources := []grid.Point{{X: 0, Y: 0}, {X: 5, Y: 1}, {X: 3, Y: 5}}

	incremental := NewMap(6, 6)
	for _, s := range sources {
		incremental.AddSource(s, blocked)
	}

	full := NewMap(6, 6)
	for _, s := range sources {
		full.AddSourceNoRebuild(s)
	}
	full.RebuildFromSources(blocked)

	fieldsEqual(t, "approach", incremental.Approach, full.Approach)
	fieldsEqual(t, "fleeTimid", incremental.FleeTimid, full.FleeTimid)
	fieldsEqual(t, "fleeBold", incremental.FleeBold, full.FleeBold)
}

func TestBestStep(t *testing.T) {
	m := NewSingleTarget(5, 5, grid.Point{X: 4, Y: 4}, open)

	step, ok := m.BestStep(grid.Point{X: 0, Y: 0})
	if !ok {
		t.Fatal("BestStep found no reachable neighbor")
	}
	if step != (grid.Point{X: 1, Y: 1}) {
		t.Errorf("BestStep = %v, want (1,1)", step)
	}

	// A target sealed behind walls is unreachable from outside.
	blocked := walls(
		grid.Point{X: 3, Y: 3}, grid.Point{X: 3, Y: 4},
		grid.Point{X: 4, Y: 3},
	)
	sealed := NewSingleTarget(5, 5, grid.Point{X: 4, Y: 4}, blocked)
	if _, ok := sealed.BestStep(grid.Point{X: 0, Y: 0}); ok {
		t.Error("BestStep reported a step toward an unreachable target")
	}
}

func TestMapsRegistry(t *testing.T) {
	ms := NewMaps(5, 5)

	for t2 := Tag(0); t2 < TagCount; t2++ {
		if ms.Get(t2) == nil {
			t.Fatalf("Get(%s) = nil", t2)
		}
	}

	ms.Get(TagRest).AddSourceNoRebuild(grid.Point{X: 2, Y: 2})
	ms.RebuildAll(open)
	if got := ms.Get(TagRest).Approach.At(grid.Point{X: 0, Y: 0}); got != 2 {
		t.Errorf("rest approach(0,0) = %v, want 2", got)
	}
	if got := ms.Get(TagAdventure).Approach.At(grid.Point{X: 0, Y: 0}); got != Unreachable {
		t.Errorf("adventure approach(0,0) = %v, want Unreachable", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("Get with an out-of-range tag did not panic")
		}
	}()
	ms.Get(TagCount)
}

func TestParseTag(t *testing.T) {
	for t2 := Tag(0); t2 < TagCount; t2++ {
		got, err := ParseTag(t2.String())
		if err != nil {
			t.Fatalf("ParseTag(%q): %v", t2.String(), err)
		}
		if got != t2 {
			t.Errorf("ParseTag(%q) = %v, want %v", t2.String(), got, t2)
		}
	}
	if _, err := ParseTag("nonsense"); err == nil {
		t.Error("ParseTag accepted an unknown name")
	}
}
