package world

import (
	"fmt"

	"github.com/talgya/townsim/internal/grid"
	"github.com/talgya/townsim/internal/heatmap"
)

// TemplateKind names the available building templates.
type TemplateKind uint8

const (
	// TemplateInn is a small inn with a bedroom.
	TemplateInn TemplateKind = iota
	// TemplateGeneralStore is a small general store.
	TemplateGeneralStore
)

// Template is a building footprint: statics to place relative to a top-left
// origin at (0,0).
type Template struct {
	Cells map[grid.Point]Static
}

// NewTemplate returns the footprint for a template kind.
func NewTemplate(kind TemplateKind) *Template {
	switch kind {
	case TemplateInn:
		return inn()
	case TemplateGeneralStore:
		return generalStore()
	}
	panic(fmt.Sprintf("world: unknown template kind %d", uint8(kind)))
}

// Clockwise rotates the footprint 90 degrees clockwise in place.
func (t *Template) Clockwise() {
	// Transform every point (x,y) to (maxY-y, x).
	maxY := 0
	for p := range t.Cells {
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	cells := make(map[grid.Point]Static, len(t.Cells))
	for p, s := range t.Cells {
		cells[grid.Point{X: maxY - p.Y, Y: p.X}] = s
	}
	t.Cells = cells
}

// Anticlockwise rotates the footprint 90 degrees anticlockwise in place.
func (t *Template) Anticlockwise() {
	// Transform every point (x,y) to (y, maxX-x).
	maxX := 0
	for p := range t.Cells {
		if p.X > maxX {
			maxX = p.X
		}
	}
	cells := make(map[grid.Point]Static, len(t.Cells))
	for p, s := range t.Cells {
		cells[grid.Point{X: p.Y, Y: maxX - p.X}] = s
	}
	t.Cells = cells
}

// Fits reports whether the footprint placed at origin lies fully in bounds
// on cells free of other statics.
func (t *Template) Fits(w *World, origin grid.Point) bool {
	for p := range t.Cells {
		at := grid.Point{X: origin.X + p.X, Y: origin.Y + p.Y}
		if !w.Statics.InBounds(at) {
			return false
		}
		if w.Statics.At(at) != StaticNone {
			return false
		}
	}
	return true
}

// Place stamps the footprint onto the world at origin, registers every
// produced source, and rebuilds the whole heatmap registry: a building adds
// obstructions, and adding obstructions is a monotonic-increasing edit that
// incremental repair cannot handle.
func (t *Template) Place(w *World, maps *heatmap.Maps, origin grid.Point) {
	for p, s := range t.Cells {
		w.PlaceStatic(grid.Point{X: origin.X + p.X, Y: origin.Y + p.Y}, s, maps)
	}
	maps.RebuildAll(w.Blocked)
}

// fromRows builds a template from row-major rows, using StaticNone for open
// cells inside the footprint.
func fromRows(rows [][]Static) *Template {
	cells := make(map[grid.Point]Static)
	for y, row := range rows {
		for x, s := range row {
			if s != StaticNone {
				cells[grid.Point{X: x, Y: y}] = s
			}
		}
	}
	return &Template{Cells: cells}
}

// generalStore:
//
//	#####
//	#   #
//	#==+#
//	#   #
//	##+##
func generalStore() *Template {
	W, C, D, o := StaticWall, StaticStoreCounter, StaticDoor, StaticNone
	return fromRows([][]Static{
		{W, W, W, W, W},
		{W, o, o, o, W},
		{W, C, C, D, W},
		{W, o, o, o, W},
		{W, W, D, W, W},
	})
}

// inn:
//
//	##############
//	#b b b#     =#
//	#     +    =#
//	#######    =#
//	      +     #
//	      #######
func inn() *Template {
	W, B, D, I, o := StaticWall, StaticBed, StaticDoor, StaticInnCounter, StaticNone
	return fromRows([][]Static{
		{W, W, W, W, W, W, W, W, W, W, W, W, W, W},
		{W, B, o, B, o, B, W, o, o, o, o, o, o, W},
		{W, o, o, o, o, o, D, o, o, o, o, I, o, W},
		{W, W, W, W, W, W, W, o, o, o, o, I, o, W},
		{o, o, o, o, o, o, D, o, o, o, o, I, o, W},
		{o, o, o, o, o, o, W, W, W, W, W, W, W, W},
	})
}
