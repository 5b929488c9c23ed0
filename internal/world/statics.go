// Package world holds the fixed contents of the map: terrain and building
// fixtures ("statics"), the registry of desire sources they produce, line of
// sight, and the procedural generation that lays a town out.
package world

import "github.com/talgya/townsim/internal/heatmap"

// Static is something with an unmoving presence in the world: terrain,
// walls, doors, counters, and the like.
type Static uint8

const (
	// StaticNone is the empty cell; the zero value, so a fresh grid is
	// all open ground.
	StaticNone Static = iota

	// Impassable fixtures.

	// StaticDungeon is the dungeon entrance: provides adventure.
	StaticDungeon
	// StaticStoreCounter is the counter of a general store: provides trade.
	StaticStoreCounter
	// StaticInnCounter is the counter of an inn: provides sustenance.
	StaticInnCounter
	// StaticWall is a solid wall.
	StaticWall
	// StaticTree is a tree. Blocks movement and sight.
	StaticTree
	// StaticRock is a rock outcrop.
	StaticRock
	// StaticWater is open water. Blocks movement but not sight.
	StaticWater

	// Passable fixtures.

	// StaticBed is a bed: provides rest.
	StaticBed
	// StaticDoor is a door.
	StaticDoor
)

var staticNames = map[Static]string{
	StaticNone:         "none",
	StaticDungeon:      "dungeon",
	StaticStoreCounter: "store_counter",
	StaticInnCounter:   "inn_counter",
	StaticWall:         "wall",
	StaticTree:         "tree",
	StaticRock:         "rock",
	StaticWater:        "water",
	StaticBed:          "bed",
	StaticDoor:         "door",
}

// String returns the static's lowercase name.
func (s Static) String() string {
	if name, ok := staticNames[s]; ok {
		return name
	}
	return "unknown"
}

// Impassable reports whether this static obstructs mobs and heatmap flow.
func (s Static) Impassable() bool {
	switch s {
	case StaticDungeon, StaticStoreCounter, StaticInnCounter, StaticWall,
		StaticTree, StaticRock, StaticWater:
		return true
	}
	return false
}

// Opaque reports whether this static blocks line of sight. Water and
// counters can be seen over; walls and trees cannot.
func (s Static) Opaque() bool {
	switch s {
	case StaticWall, StaticTree, StaticRock:
		return true
	}
	return false
}

// ProducedTag returns the desire category this static is a source for, if
// any. Impassable counters still act as zero-cost sources: the heatmap
// propagator reads their finite value as a neighbor minimum even though they
// can never be walked on.
func (s Static) ProducedTag() (heatmap.Tag, bool) {
	switch s {
	case StaticDungeon:
		return heatmap.TagAdventure, true
	case StaticStoreCounter:
		return heatmap.TagGeneralStore, true
	case StaticInnCounter:
		return heatmap.TagSustenance, true
	case StaticBed:
		return heatmap.TagRest, true
	}
	return 0, false
}
