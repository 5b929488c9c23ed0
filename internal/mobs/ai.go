// The mob AI: an ordered decision chain evaluated once per mob per tick.
// Each stage is a pure query paired with a mutating commit; the first stage
// whose query finds a candidate and whose commit succeeds wins, and failures
// fall through to the next stage.
package mobs

import (
	"github.com/talgya/townsim/internal/grid"
	"github.com/talgya/townsim/internal/heatmap"
	"github.com/talgya/townsim/internal/world"
)

// SightBonus multiplies the weight of a desire when one of its sources is in
// direct line of sight. Seeing the goal discourages back-and-forth travel:
// the mob particularly wants to move toward it (or away, if it's scary),
// even when other desires press harder on paper.
const SightBonus = 100.0

// ActionKind enumerates what a mob can end up doing in one tick.
type ActionKind uint8

const (
	// ActionGiveUp means the mob stayed put with nothing to do.
	ActionGiveUp ActionKind = iota
	// ActionInteract means the mob satisfied a desire at an adjacent cell.
	ActionInteract
	// ActionTask means the mob advanced its priority task.
	ActionTask
	// ActionTravel means the mob moved along the weighted heatmaps.
	ActionTravel
	// ActionWander means the mob headed home for lack of anything better.
	ActionWander
)

// Action reports the committed outcome of one mob's turn.
type Action struct {
	Kind ActionKind
	From grid.Point
	To   grid.Point // Meaningful for moves and interactions.
}

// Turn bundles what a mob may read and where its effects land. The world,
// fields and desires a mob queries are all pre-tick state; commits mutate
// the next-tick buffer, and occupancy is checked there too, so the only
// order-dependent outcome is who wins a contested cell.
type Turn struct {
	World *world.World
	Maps  *heatmap.Maps
	Next  Registry
}

// Act runs the decision chain for the mob standing at pos. The receiver must
// be the next-buffer instance, so that desire changes land in the coming
// tick. Exactly one action is committed.
func (m *Mobile) Act(pos grid.Point, t *Turn) Action {
	// 1. INTERACT AT POINT
	//
	// Can the mob interact with something that it wants to interact with?
	if target, ok := m.interactNearby(pos, t); ok {
		if m.interactCommit(target, t) {
			return Action{Kind: ActionInteract, From: pos, To: target}
		}
	}

	// 2. PRIORITY TASK
	//
	// Does the mob have something that it absolutely must do, and can it
	// make useful progress towards completing it? If so, do that.
	if m.PriorityTask != nil {
		if next, ok := m.advanceTask(pos, t); ok {
			if m.moveCommit(pos, next, t) {
				return Action{Kind: ActionTask, From: pos, To: next}
			}
		}
	}

	// 3. HEATMAP TRAVEL
	//
	// Take the desire-weighted sum of the heatmaps and determine if there
	// is a place we'd like to move towards.
	if next, ok := m.heatmapQuery(pos, t); ok {
		if m.moveCommit(pos, next, t) {
			return Action{Kind: ActionTravel, From: pos, To: next}
		}
		// The chosen cell is occupied or impassable. If it is a local
		// minimum from its own perspective it contains a solid goal we can
		// use from this adjacent square; otherwise we are just stuck for
		// this turn. A positively weighted goal at distance zero scores
		// exactly 0 here and never converts; stage 1 already claims those.
		// What reaches this branch is aversion steering.
		if best, bok := m.weightedBest(next, t); bok && best == next {
			if m.interactCommit(next, t) {
				return Action{Kind: ActionInteract, From: pos, To: next}
			}
		}
	}

	// 4. WANDERING
	//
	// The mob has reached a state of zen. It has nothing left to do in
	// this mortal plane. Just wander home.
	if next, ok := m.pathfindStep(pos, m.Home, t); ok {
		if m.moveCommit(pos, next, t) {
			return Action{Kind: ActionWander, From: pos, To: next}
		}
	}

	// 5. GIVING UP
	//
	// Just stay where we are.
	return Action{Kind: ActionGiveUp, From: pos, To: pos}
}

// The query functions below read the world without modifying it.

// interactNearby looks for a cell in the mob's own 8-neighborhood (or under
// its feet) that is a zero-distance source of a positively weighted desire.
func (m *Mobile) interactNearby(pos grid.Point, t *Turn) (grid.Point, bool) {
	var found grid.Point
	ok := false
	grid.NeighborsAndSelf(t.World.Width, t.World.Height, pos, func(q grid.Point) {
		if ok {
			return
		}
		for tag := heatmap.Tag(0); tag < heatmap.TagCount; tag++ {
			if m.Desire(tag) > 0 && t.Maps.Get(tag).Approach.At(q) == 0 {
				found = q
				ok = true
				return
			}
		}
	})
	return found, ok
}

// advanceTask finds a step that makes progress on the priority task. A task
// whose target is already reached is complete and dropped.
func (m *Mobile) advanceTask(pos grid.Point, t *Turn) (grid.Point, bool) {
	switch m.PriorityTask.Kind {
	case TaskMoveTo:
		target := m.PriorityTask.Target
		if pos == target {
			m.PriorityTask = nil
			return grid.Point{}, false
		}
		return m.pathfindStep(pos, target, t)
	}
	return grid.Point{}, false
}

// heatmapQuery picks a move destination by the weighted heatmap sum. It
// fails when the best candidate is the mob's own cell or when nothing pulls
// on the mob at all (minimum score exactly zero).
func (m *Mobile) heatmapQuery(pos grid.Point, t *Turn) (grid.Point, bool) {
	best, ok := m.weightedBest(pos, t)
	if !ok || best == pos {
		return grid.Point{}, false
	}
	return best, true
}

// weightedBest scores the mob's cell and its neighbors by the desire-weighted
// sum of the heatmaps and returns the cell with the minimum score. A weight
// is read from the approach field when attracting and from the mob's flee
// field when repelling; the weight of a desire whose source is in direct
// line of sight is intensified by SightBonus. Ties go to the first candidate
// in neighborhood order, which keeps the choice deterministic. Returns false
// when the minimum score is exactly 0.0: no attraction, no aversion,
// nothing to do here.
//
// See:
// - http://www.roguebasin.com/index.php?title=The_Incredible_Power_of_Dijkstra_Maps
// - http://www.roguebasin.com/index.php?title=Dijkstra_Maps_Visualized
func (m *Mobile) weightedBest(pos grid.Point, t *Turn) (grid.Point, bool) {
	visible := t.World.VisibleTags(pos)

	best := pos
	minSoFar := heatmap.Unreachable
	first := true
	grid.NeighborsAndSelf(t.World.Width, t.World.Height, pos, func(q grid.Point) {
		score := 0.0
		for tag := heatmap.Tag(0); tag < heatmap.TagCount; tag++ {
			weight := m.Desire(tag)
			if weight == 0 {
				continue
			}
			if visible[tag] {
				weight *= SightBonus
			}
			hm := t.Maps.Get(tag)
			var field *grid.Grid[float64]
			switch {
			case weight >= 0:
				field = hm.Approach
			case m.IsBrave:
				field = hm.FleeBold
			default:
				field = hm.FleeTimid
			}
			score += weight * field.At(q)
		}
		if first || score < minSoFar {
			best = q
			minSoFar = score
			first = false
		}
	})

	if minSoFar == 0 {
		return grid.Point{}, false
	}
	return best, true
}

// pathfindStep finds the next step toward an arbitrary target by building a
// single-target heatmap on demand. This wastes a full propagation per call;
// it is only used for priority tasks and wandering home, which are rare.
// Returns false if the target is inaccessible from here.
func (m *Mobile) pathfindStep(pos, target grid.Point, t *Turn) (grid.Point, bool) {
	if pos == target {
		return grid.Point{}, false
	}
	field := heatmap.NewSingleTarget(t.World.Width, t.World.Height, target, t.World.Blocked)
	return field.BestStep(pos)
}

// The commit functions below modify the next-tick buffer and report success.

// moveCommit relocates the mob if the destination is neither occupied by
// another mob nor blocked by a fixture. Occupancy is checked against the
// next-tick buffer so two mobs can never converge on the same cell within
// one tick.
func (m *Mobile) moveCommit(pos, to grid.Point, t *Turn) bool {
	if t.World.Blocked(to) || t.Next.Occupied(to) {
		return false
	}
	t.Next.Move(pos, to)
	return true
}

// interactCommit satisfies a desire against the fixture at the target. For
// now, satisfying a desire is the only interaction there is.
func (m *Mobile) interactCommit(target grid.Point, t *Turn) bool {
	s, ok := t.World.StaticAt(target)
	if !ok {
		return false
	}
	tag, ok := s.ProducedTag()
	if !ok {
		return false
	}
	if _, cares := m.Desires[tag]; !cares {
		return false
	}
	m.SatisfyDesire(tag, InteractAmount)
	return true
}
