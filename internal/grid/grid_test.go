package grid

import "testing"

func TestGridAtSet(t *testing.T) {
	g := New(4, 3, -1)

	if g.Width() != 4 || g.Height() != 3 {
		t.Fatalf("dimensions = %dx%d, want 4x3", g.Width(), g.Height())
	}

	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			if got := g.At(Point{X: x, Y: y}); got != -1 {
				t.Fatalf("At(%d,%d) = %d, want zero value -1", x, y, got)
			}
		}
	}

	p := Point{X: 3, Y: 2}
	g.Set(p, 42)
	if got := g.At(p); got != 42 {
		t.Fatalf("At(%v) = %d after Set, want 42", p, got)
	}
	// The neighboring cell must be untouched by the Set above.
	if got := g.At(Point{X: 2, Y: 2}); got != -1 {
		t.Fatalf("At(2,2) = %d, want -1", got)
	}
}

func TestGridOutOfBoundsPanics(t *testing.T) {
	g := New(2, 2, 0.0)

	for _, p := range []Point{{X: -1, Y: 0}, {X: 2, Y: 0}, {X: 0, Y: -1}, {X: 0, Y: 2}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("At(%v) did not panic", p)
				}
			}()
			g.At(p)
		}()
	}
}

func TestNeighborsCounts(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want int
	}{
		{"interior", Point{X: 2, Y: 2}, 8},
		{"corner", Point{X: 0, Y: 0}, 3},
		{"edge", Point{X: 0, Y: 2}, 5},
		{"far corner", Point{X: 4, Y: 4}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []Point
			Neighbors(5, 5, tt.p, func(q Point) {
				got = append(got, q)
			})
			if len(got) != tt.want {
				t.Errorf("Neighbors(%v) visited %d cells, want %d", tt.p, len(got), tt.want)
			}
			for _, q := range got {
				if q == tt.p {
					t.Errorf("Neighbors(%v) visited the point itself", tt.p)
				}
				if q.X < 0 || q.X >= 5 || q.Y < 0 || q.Y >= 5 {
					t.Errorf("Neighbors(%v) visited out-of-bounds %v", tt.p, q)
				}
			}
		})
	}
}

func TestNeighborsAndSelfIncludesSelf(t *testing.T) {
	seen := false
	n := 0
	p := Point{X: 0, Y: 0}
	NeighborsAndSelf(5, 5, p, func(q Point) {
		n++
		if q == p {
			seen = true
		}
	})
	if !seen {
		t.Error("NeighborsAndSelf skipped the point itself")
	}
	if n != 4 {
		t.Errorf("NeighborsAndSelf(corner) visited %d cells, want 4", n)
	}
}

func TestNeighborsOrderDeterministic(t *testing.T) {
	run := func() []Point {
		var got []Point
		Neighbors(5, 5, Point{X: 2, Y: 2}, func(q Point) { got = append(got, q) })
		return got
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("iteration order differs at %d: %v vs %v", i, a[i], b[i])
		}
	}
	// Row-major: the first neighbor of an interior cell is the one up-left.
	if a[0] != (Point{X: 1, Y: 1}) {
		t.Errorf("first neighbor = %v, want (1,1)", a[0])
	}
}
