// Simulation ties together the world state and runs the mobs each tick.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/talgya/townsim/internal/grid"
	"github.com/talgya/townsim/internal/heatmap"
	"github.com/talgya/townsim/internal/mobs"
	"github.com/talgya/townsim/internal/world"
)

// maxEvents bounds the retained event log.
const maxEvents = 512

// maxPopulation caps daily arrivals. Mobs never die, so without a cap the
// town fills up until nobody can move.
const maxPopulation = 40

// Simulation holds the complete world state and wires systems together.
// All access goes through the mutex: the engine goroutine steps it while
// the API server and the terminal viewer read it.
type Simulation struct {
	mu sync.Mutex

	World    *world.World
	Maps     *heatmap.Maps
	Mobs     mobs.Registry
	Language *mobs.Language

	rng      *rand.Rand
	events   []Event
	lastTick uint64
	stats    SimStats
}

// Event is a notable occurrence in the world.
type Event struct {
	Tick        uint64 `json:"tick"`
	Description string `json:"description"`
	Category    string `json:"category"` // "arrival", "interact"
}

// SimStats tracks aggregate world statistics.
type SimStats struct {
	Population   int     `json:"population"`
	Adventurers  int     `json:"adventurers"`
	TotalDesire  float64 `json:"total_desire"`
	Interactions uint64  `json:"interactions"`
}

// MobView pairs a mob snapshot with its position, for readers outside the
// tick loop.
type MobView struct {
	Pos grid.Point   `json:"pos"`
	Mob *mobs.Mobile `json:"mob"`
}

// NewSimulation creates a Simulation from generated components.
func NewSimulation(w *world.World, maps *heatmap.Maps, reg mobs.Registry, lang *mobs.Language, rng *rand.Rand) *Simulation {
	s := &Simulation{
		World:    w,
		Maps:     maps,
		Mobs:     reg,
		Language: lang,
		rng:      rng,
	}
	s.updateStats()
	return s
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTick
}

// TickMinute runs every tick: mobs act one by one into a cloned registry,
// so only contention for the same cell depends on iteration order, and the
// sorted iteration keeps even that deterministic.
func (s *Simulation) TickMinute(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastTick = tick

	prev := s.Mobs
	next := prev.Clone()
	turn := &mobs.Turn{World: s.World, Maps: s.Maps, Next: next}

	for _, p := range prev.SortedPoints() {
		m, ok := next.At(p)
		if !ok {
			continue
		}
		act := m.Act(p, turn)
		if act.Kind == mobs.ActionInteract {
			s.stats.Interactions++
			s.recordInteraction(tick, m, act.To)
		}
	}

	s.Mobs = next
	s.updateStats()
}

// TickHour runs every sim-hour: ambient messages.
func (s *Simulation) TickHour(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.World.Log(world.Message{Tick: tick, Text: "the town clock strikes " + SimTime(tick)})
}

// TickDay runs every sim-day: a fresh adventurer may arrive in town.
func (s *Simulation) TickDay(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.Mobs) >= maxPopulation {
		return
	}
	pos, ok := s.arrivalCell()
	if !ok {
		return
	}
	m := mobs.GenAdventurer(s.rng, s.Language)
	m.Home = pos
	s.Mobs[pos] = m
	s.recordEvent(Event{
		Tick:        tick,
		Description: fmt.Sprintf("%s arrived in town, looking for adventure", m.Name),
		Category:    "arrival",
	})
	slog.Info("adventurer arrived", "name", m.Name, "age", m.Age, "pos", pos)
	s.updateStats()
}

// SpawnMob places a mob at the given cell. Returns false if the cell is
// blocked or occupied.
func (s *Simulation) SpawnMob(pos grid.Point, m *mobs.Mobile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.World.Blocked(pos) || s.Mobs.Occupied(pos) {
		return false
	}
	s.Mobs[pos] = m
	s.updateStats()
	return true
}

// arrivalCell finds a free cell on the northern map edge.
func (s *Simulation) arrivalCell() (grid.Point, bool) {
	for try := 0; try < 50; try++ {
		p := grid.Point{X: s.rng.Intn(s.World.Width), Y: 0}
		if !s.World.Blocked(p) && !s.Mobs.Occupied(p) {
			return p, true
		}
	}
	return grid.Point{}, false
}

func (s *Simulation) recordInteraction(tick uint64, m *mobs.Mobile, at grid.Point) {
	fixture, ok := s.World.StaticAt(at)
	if !ok {
		return
	}
	tag, ok := fixture.ProducedTag()
	if !ok {
		return
	}
	s.recordEvent(Event{
		Tick:        tick,
		Description: fmt.Sprintf("%s found %s at (%d,%d)", m.Name, tag, at.X, at.Y),
		Category:    "interact",
	})
}

func (s *Simulation) recordEvent(ev Event) {
	s.events = append(s.events, ev)
	if len(s.events) > maxEvents {
		s.events = s.events[len(s.events)-maxEvents:]
	}
}

// updateStats recomputes the aggregate statistics. Caller holds the mutex.
func (s *Simulation) updateStats() {
	stats := SimStats{Interactions: s.stats.Interactions}
	for _, m := range s.Mobs {
		stats.Population++
		if m.OnsetAge != 0 {
			stats.Adventurers++
		}
		for tag := heatmap.Tag(0); tag < heatmap.TagCount; tag++ {
			if w := m.Desire(tag); w > 0 {
				stats.TotalDesire += w
			}
		}
	}
	s.stats = stats
}

// Readers below take consistent snapshots for the API server and the
// terminal viewer.

// Stats returns the aggregate statistics as of the last tick.
func (s *Simulation) Stats() SimStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// SnapshotMobs returns a deep copy of the mob registry, sorted by position.
func (s *Simulation) SnapshotMobs() []MobView {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]MobView, 0, len(s.Mobs))
	for _, p := range s.Mobs.SortedPoints() {
		m, _ := s.Mobs.At(p)
		views = append(views, MobView{Pos: p, Mob: m.Clone()})
	}
	return views
}

// RestoreEvents replaces the event log, oldest first. Used when resuming a
// saved world so the log survives restarts.
func (s *Simulation) RestoreEvents(events []Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(events) > maxEvents {
		events = events[len(events)-maxEvents:]
	}
	s.events = append(s.events[:0], events...)
}

// RecentEvents returns up to n of the most recent events, oldest first.
func (s *Simulation) RecentEvents(n int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > len(s.events) {
		n = len(s.events)
	}
	out := make([]Event, n)
	copy(out, s.events[len(s.events)-n:])
	return out
}

// SnapshotField returns a copy of one heatmap field as rows of values.
func (s *Simulation) SnapshotField(tag heatmap.Tag, flee bool) [][]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	hm := s.Maps.Get(tag)
	field := hm.Approach
	if flee {
		field = hm.FleeTimid
	}
	rows := make([][]float64, s.World.Height)
	for y := 0; y < s.World.Height; y++ {
		row := make([]float64, s.World.Width)
		for x := 0; x < s.World.Width; x++ {
			row[x] = field.At(grid.Point{X: x, Y: y})
		}
		rows[y] = row
	}
	return rows
}
