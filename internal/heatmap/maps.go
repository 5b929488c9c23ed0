package heatmap

import (
	"fmt"

	"github.com/talgya/townsim/internal/grid"
)

// Maps is the registry of all heatmaps, one per desire category, held in a
// fixed table indexed by tag ordinal. It lives as long as the world does.
type Maps struct {
	width  int
	height int
	maps   [TagCount]*Map
}

// NewMaps constructs the registry with one empty map per tag.
func NewMaps(width, height int) *Maps {
	ms := &Maps{width: width, height: height}
	for t := Tag(0); t < TagCount; t++ {
		ms.maps[t] = NewMap(width, height)
	}
	return ms
}

// Width returns the horizontal extent of every map in the registry.
func (ms *Maps) Width() int { return ms.width }

// Height returns the vertical extent of every map in the registry.
func (ms *Maps) Height() int { return ms.height }

// Get looks up the map for a tag. A tag outside the fixed set is a
// programming defect, not a runtime condition, and panics.
func (ms *Maps) Get(tag Tag) *Map {
	if tag >= TagCount {
		panic(fmt.Sprintf("heatmap: no map for tag %d", uint8(tag)))
	}
	return ms.maps[tag]
}

// RebuildAll recomputes every map from its sources. Called when the world
// changes in a way not expressed as a single source add or remove, such as
// placing a multi-cell building.
func (ms *Maps) RebuildAll(blocked func(grid.Point) bool) {
	for t := Tag(0); t < TagCount; t++ {
		ms.maps[t].RebuildFromSources(blocked)
	}
}

// String lists each map's sources.
func (ms *Maps) String() string {
	s := "Maps:"
	for t := Tag(0); t < TagCount; t++ {
		s += fmt.Sprintf("\n\t%s: %v", t, ms.maps[t])
	}
	return s
}
