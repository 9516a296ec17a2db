package agent

import (
	"sync"

	"gridscout.ai/internal/planner/action"
	"gridscout.ai/internal/planner/frontier"
	"gridscout.ai/internal/sim/grid"
)

// Shared is the coordination state between the tick loop and the planner.
// The tick loop is the only writer of the queue; the planner only ever sees
// the snapshot it was handed.
type Shared struct {
	mu sync.Mutex

	snapshot   *grid.Map
	pos        grid.Pos
	weather    grid.Weather
	directions []frontier.Direction

	queue     []action.Action
	queueCost int

	searching bool
	lowEnergy bool
	ready     bool
}

func NewShared() *Shared { return &Shared{} }

// Publish replaces the map snapshot. The map must not be written afterwards.
func (s *Shared) Publish(m *grid.Map, pos grid.Pos, w grid.Weather) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = m
	s.pos = pos
	s.weather = w
}

func (s *Shared) Snapshot() (*grid.Map, grid.Pos, grid.Weather) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot, s.pos, s.weather
}

func (s *Shared) SetPosition(p grid.Pos) {
	s.mu.Lock()
	s.pos = p
	s.mu.Unlock()
}

func (s *Shared) Position() grid.Pos {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// MarkReady records the directions for the next search and flags that the
// tick loop has nothing left to execute.
func (s *Shared) MarkReady(dirs []frontier.Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.directions = append([]frontier.Direction(nil), dirs...)
	s.ready = true
}

func (s *Shared) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *Shared) Directions() []frontier.Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]frontier.Direction(nil), s.directions...)
}

// BeginSearch flips the state from ready to searching. It fails when a
// search is already running or the tick loop is not ready.
func (s *Shared) BeginSearch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searching || !s.ready {
		return false
	}
	s.searching = true
	s.ready = false
	return true
}

func (s *Shared) Searching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searching
}

// Install stores the winning plan and ends the search.
func (s *Shared) Install(plan []action.Action, cost int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = action.Clone(plan)
	s.queueCost = cost
	s.searching = false
}

// Abort ends the search without a plan.
func (s *Shared) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searching = false
}

// Queue returns a copy of the pending queue and the cost it was planned at.
func (s *Shared) Queue() ([]action.Action, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return action.Clone(s.queue), s.queueCost
}

// Retire marks queue[i] as executed.
func (s *Shared) Retire(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= 0 && i < len(s.queue) {
		s.queue[i] = action.NoOp
	}
}

// Pending counts the queued actions not yet executed.
func (s *Shared) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pending(s.queue)
}

func (s *Shared) clearQueue() {
	s.mu.Lock()
	s.queue = s.queue[:0]
	s.queueCost = 0
	s.mu.Unlock()
}

func (s *Shared) InsufficientEnergy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lowEnergy
}

func (s *Shared) SetInsufficientEnergy(v bool) {
	s.mu.Lock()
	s.lowEnergy = v
	s.mu.Unlock()
}

func pending(q []action.Action) int {
	n := 0
	for _, a := range q {
		if !a.IsNoOp() {
			n++
		}
	}
	return n
}
