package world

import (
	"sort"

	"github.com/talgya/townsim/internal/grid"
	"github.com/talgya/townsim/internal/heatmap"
)

// Default map dimensions.
const (
	DefaultWidth  = 200
	DefaultHeight = 100
)

// maxMessages bounds the message log ring.
const maxMessages = 256

// Message is one entry in the world's event log.
type Message struct {
	Tick uint64      `json:"tick"`
	Text string      `json:"text"`
	Loc  *grid.Point `json:"loc,omitempty"`
}

// World is the fixed state of the map: statics, the source registry, and the
// message log. Mobs live in their own registry and are not part of this
// struct; the simulation layer ties the two together.
type World struct {
	Width  int
	Height int

	// Statics holds the fixture at every cell; StaticNone is open ground.
	Statics *grid.Grid[Static]

	// SourceTags records which cells are desire sources and for what tag.
	// Kept in lock-step with the heatmap registry's source lists.
	SourceTags map[grid.Point]heatmap.Tag

	// Messages is a ring of recent world events, newest last.
	Messages []Message
}

// New creates an empty world of the given dimensions.
func New(width, height int) *World {
	return &World{
		Width:      width,
		Height:     height,
		Statics:    grid.New(width, height, StaticNone),
		SourceTags: make(map[grid.Point]heatmap.Tag),
	}
}

// StaticAt returns the fixture at a point, if any.
func (w *World) StaticAt(p grid.Point) (Static, bool) {
	s := w.Statics.At(p)
	return s, s != StaticNone
}

// Blocked reports whether a fixture at p obstructs movement and heatmap
// flow. Mob occupancy is layered on top of this by the simulation.
func (w *World) Blocked(p grid.Point) bool {
	return w.Statics.At(p).Impassable()
}

// Opaque reports whether the fixture at p blocks sight.
func (w *World) Opaque(p grid.Point) bool {
	return w.Statics.At(p).Opaque()
}

// CanSee reports whether an unobstructed sight line runs between two points.
// The line is traced with Bresenham's algorithm; opaque cells strictly
// between the endpoints block it, the endpoints themselves never do.
func (w *World) CanSee(from, to grid.Point) bool {
	x0, y0 := from.X, from.Y
	x1, y1 := to.X, to.Y

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		if x0 == x1 && y0 == y1 {
			return true
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
		if x0 == x1 && y0 == y1 {
			return true
		}
		if w.Opaque(grid.Point{X: x0, Y: y0}) {
			return false
		}
	}
}

// VisibleTags returns, for each tag, whether any of its source cells is in
// direct line of sight of pos.
func (w *World) VisibleTags(pos grid.Point) [heatmap.TagCount]bool {
	var visible [heatmap.TagCount]bool
	for p, tag := range w.SourceTags {
		if !visible[tag] && w.CanSee(pos, p) {
			visible[tag] = true
		}
	}
	return visible
}

// Sources returns every source cell and its tag, ordered by point for
// deterministic iteration.
func (w *World) Sources() []SourceEntry {
	out := make([]SourceEntry, 0, len(w.SourceTags))
	for p, tag := range w.SourceTags {
		out = append(out, SourceEntry{Pos: p, Tag: tag})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pos.Less(out[j].Pos) })
	return out
}

// SourceEntry pairs a source cell with its desire category.
type SourceEntry struct {
	Pos grid.Point  `json:"pos"`
	Tag heatmap.Tag `json:"tag"`
}

// Log appends a message to the ring, evicting the oldest past capacity.
func (w *World) Log(msg Message) {
	w.Messages = append(w.Messages, msg)
	if len(w.Messages) > maxMessages {
		w.Messages = w.Messages[len(w.Messages)-maxMessages:]
	}
}

// RecentMessages returns up to n of the newest log entries, newest last.
func (w *World) RecentMessages(n int) []Message {
	if n > len(w.Messages) {
		n = len(w.Messages)
	}
	return w.Messages[len(w.Messages)-n:]
}

// PlaceStatic stamps a single fixture, registering its produced source (if
// any) with both the world and the heatmap registry. The caller decides when
// to rebuild; adding an obstruction invalidates existing fields, so bulk
// edits should finish with maps.RebuildAll.
func (w *World) PlaceStatic(p grid.Point, s Static, maps *heatmap.Maps) {
	w.Statics.Set(p, s)
	if tag, ok := s.ProducedTag(); ok {
		w.SourceTags[p] = tag
		maps.Get(tag).AddSourceNoRebuild(p)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
