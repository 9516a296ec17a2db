package world

import (
	"fmt"

	"gridscout.ai/internal/sim/grid"
	"gridscout.ai/internal/sim/host"
)

func (w *World) neighbour(h grid.Heading) (grid.Pos, grid.Cell, error) {
	dr, dc := h.Offset()
	if dr == 0 && dc == 0 {
		return grid.Pos{}, grid.Cell{}, fmt.Errorf("%w: heading %s", host.ErrNotAllowed, h)
	}
	p := w.pos.Add(dr, dc)
	cell, ok := w.truth.Cell(p)
	if !ok {
		return p, grid.Cell{}, fmt.Errorf("%w: %s", host.ErrOutOfBounds, p)
	}
	return p, cell, nil
}

func (w *World) Step(h grid.Heading) (grid.Pos, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return w.pos, host.ErrNotAllowed
	}
	p, cell, err := w.neighbour(h)
	if err != nil {
		return w.pos, err
	}
	if !w.cat.Walkable(cell) || w.cat.ContentRule(cell.Content).Solid {
		return w.pos, fmt.Errorf("%w: %s at %s", host.ErrBlocked, cell.Terrain, p)
	}
	here, _ := w.truth.Cell(w.pos)
	if err := w.spend(w.cat.StepCost(here, cell, w.weather)); err != nil {
		return w.pos, err
	}
	w.pos = p
	w.reveal(p)
	return p, nil
}

// Destroy clears the content of the neighbouring cell into the backpack.
// Containers cannot be destroyed.
func (w *World) Destroy(h grid.Heading) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return host.ErrNotAllowed
	}
	p, cell, err := w.neighbour(h)
	if err != nil {
		return err
	}
	rule := w.cat.ContentRule(cell.Content)
	if cell.Content == grid.NoContent || rule.Container {
		return fmt.Errorf("%w: nothing to destroy at %s", host.ErrNotAllowed, p)
	}
	units := max(cell.Amount, 1)
	if w.carried()+units > w.cfg.BackpackCapacity {
		return fmt.Errorf("%w: backpack full", host.ErrNotAllowed)
	}
	if err := w.spend(rule.DestroyCost); err != nil {
		return err
	}
	w.backpack[cell.Content] += units
	cell.Content, cell.Amount = grid.NoContent, 0
	w.truth.Set(p, cell)
	w.reveal(p)
	return nil
}

// Deposit moves amount units of content from the backpack into the
// neighbouring container.
func (w *World) Deposit(content grid.Interactable, amount int, h grid.Heading) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return host.ErrNotAllowed
	}
	p, cell, err := w.neighbour(h)
	if err != nil {
		return err
	}
	if !w.cat.ContentRule(cell.Content).Container {
		return fmt.Errorf("%w: no container at %s", host.ErrNotAllowed, p)
	}
	if amount <= 0 || w.backpack[content] < amount {
		return fmt.Errorf("%w: carrying %d %s, asked %d", host.ErrNotAllowed, w.backpack[content], content, amount)
	}
	if err := w.spend(w.cat.ContentRule(content).UnitCost * amount); err != nil {
		return err
	}
	w.backpack[content] -= amount
	cell.Amount += amount
	w.truth.Set(p, cell)
	w.reveal(p)
	return nil
}

// Sense reveals up to rng cells in a straight line from the agent.
func (w *World) Sense(h grid.Heading, rng int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return host.ErrNotAllowed
	}
	if rng < 1 {
		return fmt.Errorf("%w: range %d", host.ErrNotAllowed, rng)
	}
	dr, dc := h.Offset()
	if dr == 0 && dc == 0 {
		return fmt.Errorf("%w: heading %s", host.ErrNotAllowed, h)
	}
	var cells []grid.Pos
	for i := 1; i <= rng; i++ {
		p := w.pos.Add(dr*i, dc*i)
		if !w.truth.InBounds(p) {
			break
		}
		cells = append(cells, p)
	}
	if len(cells) == 0 {
		return fmt.Errorf("%w: nothing to sense %s", host.ErrOutOfBounds, h)
	}
	if err := w.spend(len(cells) * w.cfg.LineSenseCost); err != nil {
		return err
	}
	for _, p := range cells {
		w.reveal(p)
	}
	return nil
}

func (w *World) localCells(radius int) []grid.Pos {
	var cells []grid.Pos
	for r := w.pos.Row - radius; r <= w.pos.Row+radius; r++ {
		for c := w.pos.Col - radius; c <= w.pos.Col+radius; c++ {
			p := grid.Pos{Row: r, Col: c}
			if w.truth.InBounds(p) {
				cells = append(cells, p)
			}
		}
	}
	return cells
}

// LocalSenseCost quotes SenseLocal(radius) at the current position.
func (w *World) LocalSenseCost(radius int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if radius < 0 {
		return 0, fmt.Errorf("%w: radius %d", host.ErrNotAllowed, radius)
	}
	return len(w.localCells(radius)) * w.cfg.LocalSenseCost, nil
}

// SenseLocal reveals the square of the given radius around the agent.
func (w *World) SenseLocal(radius int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return host.ErrNotAllowed
	}
	if radius < 0 {
		return fmt.Errorf("%w: radius %d", host.ErrNotAllowed, radius)
	}
	cells := w.localCells(radius)
	if err := w.spend(len(cells) * w.cfg.LocalSenseCost); err != nil {
		return err
	}
	for _, p := range cells {
		w.reveal(p)
	}
	return nil
}

var _ host.Host = (*World)(nil)
