package engine

import (
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/talgya/townsim/internal/grid"
	"github.com/talgya/townsim/internal/heatmap"
	"github.com/talgya/townsim/internal/mobs"
	"github.com/talgya/townsim/internal/world"
)

func testSim(t *testing.T, width, height int, fixtures map[grid.Point]world.Static) *Simulation {
	t.Helper()
	w := world.New(width, height)
	maps := heatmap.NewMaps(width, height)
	for p, s := range fixtures {
		w.PlaceStatic(p, s, maps)
	}
	maps.RebuildAll(w.Blocked)

	rng := rand.New(rand.NewSource(1))
	lang := mobs.NewLanguage(rng)
	return NewSimulation(w, maps, mobs.Registry{}, lang, rng)
}

func TestTickMinuteDrivesMobs(t *testing.T) {
	s := testSim(t, 5, 5, map[grid.Point]world.Static{
		{X: 2, Y: 2}: world.StaticDungeon,
	})
	m := &mobs.Mobile{
		Name:    "Test Mob",
		Desires: map[heatmap.Tag]float64{heatmap.TagAdventure: 1.0},
	}
	if !s.SpawnMob(grid.Point{X: 0, Y: 0}, m) {
		t.Fatal("spawn failed")
	}

	s.TickMinute(1)
	if !s.Mobs.Occupied(grid.Point{X: 1, Y: 1}) {
		t.Fatal("mob should have closed in on the dungeon")
	}

	s.TickMinute(2)
	if got := s.Stats().Interactions; got != 1 {
		t.Fatalf("want 1 interaction, got %d", got)
	}
	events := s.RecentEvents(10)
	if len(events) != 1 || events[0].Category != "interact" {
		t.Fatalf("want one interact event, got %+v", events)
	}
	if !strings.Contains(events[0].Description, "adventure") {
		t.Fatalf("event should name the tag: %q", events[0].Description)
	}
}

func TestMobsNeverStack(t *testing.T) {
	s := testSim(t, 8, 8, map[grid.Point]world.Static{
		{X: 4, Y: 4}: world.StaticDungeon,
	})
	starts := []grid.Point{{X: 0, Y: 0}, {X: 7, Y: 0}, {X: 0, Y: 7}, {X: 7, Y: 7}}
	for i, p := range starts {
		m := &mobs.Mobile{
			Name:    starts[i].String(),
			Home:    p,
			Desires: map[heatmap.Tag]float64{heatmap.TagAdventure: 2.0},
		}
		if !s.SpawnMob(p, m) {
			t.Fatalf("spawn at %v failed", p)
		}
	}

	for tick := uint64(1); tick <= 50; tick++ {
		s.TickMinute(tick)
		if got := len(s.Mobs); got != len(starts) {
			t.Fatalf("tick %d: population changed from %d to %d", tick, len(starts), got)
		}
	}
}

func TestSpawnMobRejectsBlockedAndOccupied(t *testing.T) {
	s := testSim(t, 4, 4, map[grid.Point]world.Static{
		{X: 2, Y: 2}: world.StaticWall,
	})
	m := &mobs.Mobile{Desires: map[heatmap.Tag]float64{}}
	if s.SpawnMob(grid.Point{X: 2, Y: 2}, m) {
		t.Fatal("spawn into a wall should fail")
	}
	if !s.SpawnMob(grid.Point{X: 1, Y: 1}, m) {
		t.Fatal("spawn into an open cell should succeed")
	}
	other := &mobs.Mobile{Desires: map[heatmap.Tag]float64{}}
	if s.SpawnMob(grid.Point{X: 1, Y: 1}, other) {
		t.Fatal("spawn onto another mob should fail")
	}
}

func TestTickDayArrival(t *testing.T) {
	s := testSim(t, 10, 10, map[grid.Point]world.Static{
		{X: 5, Y: 5}: world.StaticDungeon,
	})

	s.TickDay(TicksPerSimDay)
	if got := s.Stats().Population; got != 1 {
		t.Fatalf("want 1 arrival, got population %d", got)
	}
	views := s.SnapshotMobs()
	if views[0].Pos.Y != 0 {
		t.Fatalf("arrivals enter at the northern edge, got %v", views[0].Pos)
	}
	if views[0].Mob.OnsetAge == 0 {
		t.Fatal("arrival should be an adventurer")
	}
	events := s.RecentEvents(1)
	if len(events) != 1 || events[0].Category != "arrival" {
		t.Fatalf("want an arrival event, got %+v", events)
	}
}

func TestSnapshotMobsIsDeepCopy(t *testing.T) {
	s := testSim(t, 4, 4, nil)
	m := &mobs.Mobile{Desires: map[heatmap.Tag]float64{heatmap.TagRest: 1.0}}
	s.SpawnMob(grid.Point{X: 1, Y: 1}, m)

	views := s.SnapshotMobs()
	views[0].Mob.Desires[heatmap.TagRest] = 99

	if got := m.Desire(heatmap.TagRest); got != 1.0 {
		t.Fatalf("snapshot mutation leaked into the simulation: %v", got)
	}
}

func TestEngineSchedule(t *testing.T) {
	var ticks, hours, days int
	e := NewEngine()
	e.OnTick = func(uint64) { ticks++ }
	e.OnHour = func(uint64) { hours++ }
	e.OnDay = func(uint64) { days++ }

	for i := 0; i < TicksPerSimDay; i++ {
		e.Step()
	}
	if ticks != TicksPerSimDay {
		t.Fatalf("want %d tick callbacks, got %d", TicksPerSimDay, ticks)
	}
	if hours != 24 {
		t.Fatalf("want 24 hour callbacks, got %d", hours)
	}
	if days != 1 {
		t.Fatalf("want 1 day callback, got %d", days)
	}
}

func TestSimTime(t *testing.T) {
	cases := []struct {
		tick uint64
		want string
	}{
		{0, "Day 1, 0:00"},
		{61, "Day 1, 1:01"},
		{TicksPerSimDay, "Day 2, 0:00"},
		{TicksPerSimDay + 90, "Day 2, 1:30"},
	}
	for _, c := range cases {
		if got := SimTime(c.tick); got != c.want {
			t.Errorf("SimTime(%d) = %q, want %q", c.tick, got, c.want)
		}
	}
}

func TestRestoreEventsFeedsRecentEvents(t *testing.T) {
	s := testSim(t, 4, 4, nil)
	s.RestoreEvents([]Event{
		{Tick: 1, Description: "one", Category: "arrival"},
		{Tick: 2, Description: "two", Category: "interact"},
		{Tick: 3, Description: "three", Category: "interact"},
	})

	got := s.RecentEvents(2)
	if len(got) != 2 {
		t.Fatalf("want 2 events, got %d", len(got))
	}
	if got[0].Description != "two" || got[1].Description != "three" {
		t.Fatalf("wrong tail: %+v", got)
	}

	// A restore replaces whatever was there before.
	s.RestoreEvents(nil)
	if got := s.RecentEvents(10); len(got) != 0 {
		t.Fatalf("want empty log after empty restore, got %+v", got)
	}
}

func TestSpeedDefaultsAndUpdates(t *testing.T) {
	e := NewEngine()
	if got := e.Speed(); got != 1.0 {
		t.Fatalf("default speed: want 1.0, got %v", got)
	}
	e.SetSpeed(0)
	if got := e.Speed(); got != 0 {
		t.Fatalf("after pause: want 0, got %v", got)
	}
	e.SetSpeed(2.5)
	if got := e.Speed(); got != 2.5 {
		t.Fatalf("want 2.5, got %v", got)
	}
}

// Speed is written from API and viewer goroutines while the loop reads it;
// hammering it from both sides must stay clean under the race detector.
func TestSpeedConcurrentReadsAndWrites(t *testing.T) {
	e := NewEngine()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(v float64) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				e.SetSpeed(v)
			}
		}(float64(i))
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if s := e.Speed(); s < 0 || s > 3 {
					t.Errorf("torn read: %v", s)
				}
			}
		}()
	}
	wg.Wait()
}
