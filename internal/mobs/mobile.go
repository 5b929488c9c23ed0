// Package mobs provides the mobile data model and the per-tick decision
// chain. Mobiles are the things which roam around the world: citizens,
// visitors, and adventurers all fall into this class.
package mobs

import (
	"sort"

	"github.com/talgya/townsim/internal/grid"
	"github.com/talgya/townsim/internal/heatmap"
)

// InteractAmount is how much one interaction reduces the matched desire's
// weight, floored at zero. This is the only runtime feedback that alters
// desire weights.
const InteractAmount = 1.0

// TaskKind enumerates the priority task variants.
type TaskKind uint8

const (
	// TaskMoveTo moves the mob to a specific location.
	TaskMoveTo TaskKind = iota
)

// Task is something a mob absolutely must do, as a matter of utmost
// priority.
type Task struct {
	Kind   TaskKind   `json:"kind"`
	Target grid.Point `json:"target"`
}

// LifeEventKind enumerates the things that can happen in a mob's history.
type LifeEventKind uint8

const (
	EventBorn LifeEventKind = iota
	EventRaised
	EventLearned
	EventOnset
)

// LifeEvent is one entry in a mob's developmental history. Biography is
// flavour: it affects character generation, never behavior afterwards.
type LifeEvent struct {
	Age    int           `json:"age"`
	Kind   LifeEventKind `json:"kind"`
	Detail string        `json:"detail,omitempty"`
}

// Mobile is a person in the simulation.
//
// Desires are what the mob wants to do right now; the relative weights
// determine what it does next. A negative weight is aversion. Personality
// traits bias generation and, for bravery, the choice of flee field.
type Mobile struct {
	// Biography.
	Name     string      `json:"name"`
	Age      int         `json:"age"`
	OnsetAge int         `json:"onset_age,omitempty"` // 0 = not an adventurer
	History  []LifeEvent `json:"history,omitempty"`

	// Desires.
	PriorityTask *Task                   `json:"priority_task,omitempty"`
	Desires      map[heatmap.Tag]float64 `json:"desires"`
	Home         grid.Point              `json:"home"`

	// Personality traits.
	IsAvaricious bool `json:"is_avaricious"`
	IsBrave      bool `json:"is_brave"`
	IsEnvious    bool `json:"is_envious"`
	IsGluttonous bool `json:"is_gluttonous"`
	IsSlothful   bool `json:"is_slothful"`
}

// Desire returns the weight the mob assigns to a tag, zero when absent.
func (m *Mobile) Desire(tag heatmap.Tag) float64 {
	return m.Desires[tag]
}

// SatisfyDesire reduces the weight of a desire, to a minimum of 0. A tag the
// mob does not care about is left alone.
func (m *Mobile) SatisfyDesire(tag heatmap.Tag, by float64) {
	old, ok := m.Desires[tag]
	if !ok {
		return
	}
	next := old - by
	if next < 0 {
		next = 0
	}
	m.Desires[tag] = next
}

// Clone returns a deep copy. Used by the tick loop to build the next-tick
// buffer without aliasing desire maps across buffers.
func (m *Mobile) Clone() *Mobile {
	c := *m
	c.Desires = make(map[heatmap.Tag]float64, len(m.Desires))
	for tag, w := range m.Desires {
		c.Desires[tag] = w
	}
	if m.PriorityTask != nil {
		task := *m.PriorityTask
		c.PriorityTask = &task
	}
	c.History = append([]LifeEvent(nil), m.History...)
	return &c
}

// Registry is the spatial index of mobs: at most one mob per cell. It is
// externally owned; the decision chain reads one registry and commits into
// another.
type Registry map[grid.Point]*Mobile

// At returns the mob at a cell, if any.
func (r Registry) At(p grid.Point) (*Mobile, bool) {
	m, ok := r[p]
	return m, ok
}

// Occupied reports whether a mob stands on the cell.
func (r Registry) Occupied(p grid.Point) bool {
	_, ok := r[p]
	return ok
}

// Move relocates the mob at from to to as one logical operation: the
// remove and insert never expose an intermediate state to callers because
// the registry is only read between complete operations.
func (r Registry) Move(from, to grid.Point) {
	m := r[from]
	delete(r, from)
	r[to] = m
}

// SortedPoints returns the occupied cells ordered by point, giving every
// traversal of the registry a deterministic order.
func (r Registry) SortedPoints() []grid.Point {
	pts := make([]grid.Point, 0, len(r))
	for p := range r {
		pts = append(pts, p)
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].Less(pts[j]) })
	return pts
}

// Clone deep-copies the registry and every mob in it.
func (r Registry) Clone() Registry {
	next := make(Registry, len(r))
	for p, m := range r {
		next[p] = m.Clone()
	}
	return next
}
