package agent

import (
	"context"
	"sync"

	"gridscout.ai/internal/sim/grid"
	"gridscout.ai/internal/sim/host"
)

// fakeHost is a fully scripted host over a truth map. Every cell of the
// truth map is observed from the start.
type fakeHost struct {
	mu sync.Mutex

	truth   *grid.Map
	cat     *grid.Catalog
	pos     grid.Pos
	energy  int
	weather grid.Weather

	noMap      bool
	stepBudget int // < 0 means unlimited
	localCost  int
	regen      int

	calls map[string]int
	order []string
	ticks int
}

func newFakeHost(truth *grid.Map, pos grid.Pos, energy int) *fakeHost {
	return &fakeHost{
		truth:      truth,
		cat:        grid.DefaultCatalog(),
		pos:        pos,
		energy:     energy,
		stepBudget: -1,
		localCost:  50,
		calls:      map[string]int{},
	}
}

func (f *fakeHost) record(op string) {
	f.calls[op]++
	f.order = append(f.order, op)
}

func (f *fakeHost) actuations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls["step"] + f.calls["destroy"] + f.calls["deposit"] + f.calls["sense"] + f.calls["sense_local"]
}

func (f *fakeHost) Sense(h grid.Heading, rng int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("sense")
	return nil
}

func (f *fakeHost) SenseLocal(radius int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("sense_local")
	return nil
}

func (f *fakeHost) LocalSenseCost(radius int) (int, error) { return f.localCost, nil }

func (f *fakeHost) Step(h grid.Heading) (grid.Pos, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("step")
	if f.stepBudget == 0 {
		return f.pos, host.ErrInsufficientEnergy
	}
	dr, dc := h.Offset()
	next := f.pos.Add(dr, dc)
	cell, ok := f.truth.Cell(next)
	if !ok {
		return f.pos, host.ErrOutOfBounds
	}
	if !f.cat.Walkable(cell) || f.cat.ContentRule(cell.Content).Solid {
		return f.pos, host.ErrBlocked
	}
	if f.stepBudget > 0 {
		f.stepBudget--
	}
	f.pos = next
	return f.pos, nil
}

func (f *fakeHost) Destroy(h grid.Heading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("destroy")
	dr, dc := h.Offset()
	p := f.pos.Add(dr, dc)
	cell, ok := f.truth.Cell(p)
	if !ok || cell.Content == grid.NoContent {
		return host.ErrNotAllowed
	}
	cell.Content, cell.Amount = grid.NoContent, 0
	f.truth.Set(p, cell)
	return nil
}

func (f *fakeHost) Deposit(content grid.Interactable, amount int, h grid.Heading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("deposit")
	return nil
}

func (f *fakeHost) ObservedMap() (*grid.Map, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["map"]++
	if f.noMap {
		return nil, host.ErrMapUnavailable
	}
	return f.truth.Clone(), nil
}

func (f *fakeHost) Energy() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.energy
}

func (f *fakeHost) setEnergy(v int) {
	f.mu.Lock()
	f.energy = v
	f.mu.Unlock()
}

func (f *fakeHost) Weather() grid.Weather { return f.weather }

func (f *fakeHost) Position() grid.Pos {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *fakeHost) Advance(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks++
	f.energy += f.regen
	return ctx.Err()
}

func flatMap(size int, terrain grid.Terrain) *grid.Map {
	m := grid.NewMap(size)
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			m.Set(grid.Pos{Row: r, Col: c}, grid.Cell{Terrain: terrain})
		}
	}
	return m
}
