// Package ui provides an interactive terminal viewer for a running
// simulation. It is a read-mostly observer: the only control it exerts is
// pausing and stepping the engine.
package ui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/talgya/townsim/internal/engine"
	"github.com/talgya/townsim/internal/grid"
	"github.com/talgya/townsim/internal/heatmap"
	"github.com/talgya/townsim/internal/world"
)

const statusLines = 2

// Viewer renders the town in a terminal.
type Viewer struct {
	Sim *engine.Simulation
	Eng *engine.Engine

	screen tcell.Screen

	camX, camY int
	overlay    int // -1 = off, otherwise a heatmap tag ordinal
	flee       bool
	paused     bool
	savedSpeed float64
}

// NewViewer initializes the terminal. Call Run to enter the event loop and
// restore the terminal on the way out.
func NewViewer(sim *engine.Simulation, eng *engine.Engine) (*Viewer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	return &Viewer{
		Sim:     sim,
		Eng:     eng,
		screen:  screen,
		overlay: -1,
	}, nil
}

// Run blocks until the user quits.
func (v *Viewer) Run() {
	defer v.screen.Fini()

	events := make(chan tcell.Event, 8)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	redraw := make(chan struct{}, 1)
	prevTick := uint64(0)
	go func() {
		for {
			if tick := v.Sim.CurrentTick(); tick != prevTick {
				prevTick = tick
				select {
				case redraw <- struct{}{}:
				default:
				}
			}
			time.Sleep(100 * time.Millisecond)
		}
	}()

	v.draw()
	for {
		select {
		case ev := <-events:
			switch e := ev.(type) {
			case *tcell.EventKey:
				if !v.handleKey(e) {
					return
				}
			case *tcell.EventResize:
				v.screen.Sync()
			}
			v.draw()
		case <-redraw:
			v.draw()
		}
	}
}

// handleKey returns false when the viewer should exit.
func (v *Viewer) handleKey(e *tcell.EventKey) bool {
	switch {
	case e.Key() == tcell.KeyEscape || e.Rune() == 'q':
		return false
	case e.Rune() == ' ':
		v.togglePause()
	case e.Rune() == '.':
		if v.paused {
			v.Eng.Step()
		}
	case e.Rune() == 'h':
		v.overlay++
		if v.overlay >= int(heatmap.TagCount) {
			v.overlay = -1
		}
	case e.Rune() == 'f':
		v.flee = !v.flee
	case e.Key() == tcell.KeyLeft:
		v.pan(-5, 0)
	case e.Key() == tcell.KeyRight:
		v.pan(5, 0)
	case e.Key() == tcell.KeyUp:
		v.pan(0, -3)
	case e.Key() == tcell.KeyDown:
		v.pan(0, 3)
	}
	return true
}

func (v *Viewer) togglePause() {
	if v.paused {
		v.Eng.SetSpeed(v.savedSpeed)
	} else {
		v.savedSpeed = v.Eng.Speed()
		v.Eng.SetSpeed(0)
	}
	v.paused = !v.paused
}

func (v *Viewer) pan(dx, dy int) {
	v.camX = clamp(v.camX+dx, 0, v.Sim.World.Width-1)
	v.camY = clamp(v.camY+dy, 0, v.Sim.World.Height-1)
}

func (v *Viewer) draw() {
	v.screen.Clear()
	sw, sh := v.screen.Size()
	mapH := sh - statusLines
	if mapH < 1 {
		v.screen.Show()
		return
	}

	var rows [][]float64
	if v.overlay >= 0 {
		rows = v.Sim.SnapshotField(heatmap.Tag(v.overlay), v.flee)
	}

	// Snapshot under the simulation lock; the engine may be mid-tick.
	occupied := map[grid.Point]bool{}
	adventurer := map[grid.Point]bool{}
	for _, mv := range v.Sim.SnapshotMobs() {
		occupied[mv.Pos] = true
		adventurer[mv.Pos] = mv.Mob.OnsetAge != 0
	}

	wld := v.Sim.World
	for sy := 0; sy < mapH; sy++ {
		for sx := 0; sx < sw; sx++ {
			p := grid.Point{X: v.camX + sx, Y: v.camY + sy}
			if !wld.Statics.InBounds(p) {
				continue
			}
			ch, style := v.cellGlyph(p, rows, occupied, adventurer)
			v.screen.SetContent(sx, sy, ch, nil, style)
		}
	}

	v.drawStatus(sw, sh)
	v.screen.Show()
}

// cellGlyph picks the rune and style for one world cell, with mobs over
// fixtures over the heatmap overlay.
func (v *Viewer) cellGlyph(p grid.Point, rows [][]float64, occupied, adventurer map[grid.Point]bool) (rune, tcell.Style) {
	style := tcell.StyleDefault

	if occupied[p] {
		if adventurer[p] {
			return '@', style.Foreground(tcell.ColorYellow).Bold(true)
		}
		return '@', style.Foreground(tcell.ColorWhite)
	}

	if s, ok := v.Sim.World.StaticAt(p); ok {
		return staticGlyph(s)
	}

	if rows != nil {
		val := rows[p.Y][p.X]
		if val == heatmap.Unreachable {
			return ' ', style
		}
		if val < 0 {
			val = -val
		}
		digit := rune('0' + int(val)%10)
		return digit, style.Foreground(heatColor(val))
	}

	return '.', style.Foreground(tcell.ColorGray).Dim(true)
}

func (v *Viewer) drawStatus(sw, sh int) {
	tick := v.Sim.CurrentTick()
	stats := v.Sim.Stats()

	state := "running"
	if v.paused {
		state = "paused"
	}
	overlay := "off"
	if v.overlay >= 0 {
		overlay = heatmap.Tag(v.overlay).String()
		if v.flee {
			overlay += " (flee)"
		}
	}

	line1 := fmt.Sprintf(" %s | tick %d | pop %d (%d adventurers) | %s | overlay: %s",
		engine.SimTime(tick), tick, stats.Population, stats.Adventurers, state, overlay)
	line2 := " q quit | space pause | . step | h heatmap | f flee | arrows pan"

	putString(v.screen, 0, sh-2, line1, tcell.StyleDefault.Reverse(true), sw)
	putString(v.screen, 0, sh-1, line2, tcell.StyleDefault.Dim(true), sw)
}

func staticGlyph(s world.Static) (rune, tcell.Style) {
	style := tcell.StyleDefault
	switch s {
	case world.StaticDungeon:
		return 'D', style.Foreground(tcell.ColorRed).Bold(true)
	case world.StaticStoreCounter:
		return '$', style.Foreground(tcell.ColorGreen)
	case world.StaticInnCounter:
		return '&', style.Foreground(tcell.ColorOrange)
	case world.StaticWall:
		return '#', style.Foreground(tcell.ColorSilver)
	case world.StaticTree:
		return 'T', style.Foreground(tcell.ColorGreen)
	case world.StaticRock:
		return '^', style.Foreground(tcell.ColorGray)
	case world.StaticWater:
		return '~', style.Foreground(tcell.ColorBlue)
	case world.StaticBed:
		return 'b', style.Foreground(tcell.ColorPurple)
	case world.StaticDoor:
		return '+', style.Foreground(tcell.ColorYellow)
	}
	return '?', style
}

// heatColor shades near cells hot and far cells cold.
func heatColor(val float64) tcell.Color {
	switch {
	case val < 5:
		return tcell.ColorRed
	case val < 15:
		return tcell.ColorYellow
	case val < 30:
		return tcell.ColorGreen
	default:
		return tcell.ColorBlue
	}
}

func putString(s tcell.Screen, x, y int, text string, style tcell.Style, maxW int) {
	for i, r := range text {
		if x+i >= maxW {
			break
		}
		s.SetContent(x+i, y, r, nil, style)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
