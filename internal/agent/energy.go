package agent

import (
	"gridscout.ai/internal/planner/action"
	"gridscout.ai/internal/planner/frontier"
	"gridscout.ai/internal/sim/grid"
)

// ProjectCost estimates the energy needed to finish queue from pos and to
// run the sensing that follows: a line sense per unexplored cardinal at the
// end position, plus one local sense when any diagonal is unexplored.
func (c *Controller) ProjectCost(m *grid.Map, pos grid.Pos, w grid.Weather, queue []action.Action) int {
	cost := 0
	cur := pos
	here, _ := m.Cell(cur)
	for _, a := range queue {
		if a.IsNoOp() {
			continue
		}
		next := cur.Add(a.Offset())
		cell, ok := m.Cell(next)
		if a.Deposit() {
			if k, n := c.cargoToDeposit(); n > 0 {
				cost += c.cat.ContentRule(k).UnitCost * n
			}
			continue
		}
		if a.Destroy() && ok {
			cost += c.cat.ContentRule(cell.Content).DestroyCost
		}
		if ok {
			cost += c.cat.StepCost(here, cell, w)
			here = cell
		}
		cur = next
	}
	return cost + c.senseCost(m, cur)
}

func (c *Controller) senseCost(m *grid.Map, at grid.Pos) int {
	unexplored := frontier.Unexplored(m, at, c.offsets)
	cost := 0
	for _, d := range unexplored {
		if d.IsCardinal() {
			cost += c.cfg.SenseRange * c.cfg.LineSenseCost
		}
	}
	if needsLocalSense(unexplored) {
		local, err := c.host.LocalSenseCost(c.cfg.LocalRadius)
		if err != nil || local < c.cfg.MinLocalSenseCost {
			local = c.cfg.MinLocalSenseCost
		}
		cost += local
	}
	return cost
}

// needsLocalSense reports whether observe runs a local sense for this
// frontier. Diagonal targets are only covered by the local sense.
func needsLocalSense(unexplored []frontier.Direction) bool {
	for _, d := range unexplored {
		if !d.IsCardinal() {
			return true
		}
	}
	return false
}
