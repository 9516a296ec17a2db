package genetic

import (
	"math/rand/v2"

	"gridscout.ai/internal/planner/action"
	"gridscout.ai/internal/sim/grid"
)

// Weights scale the fitness terms. All weights are positive; the bonus term
// is subtracted.
type Weights struct {
	Cost      float64
	Backtrack float64
	Null      float64
	Bonus     float64
	Loiter    float64
}

func DefaultWeights() Weights {
	return Weights{
		Cost:      0.01,
		Backtrack: 0.15,
		Null:      0.25,
		Bonus:     0.25,
		Loiter:    0.34,
	}
}

// Fitness combines the evaluated terms; lower is better.
func (w Weights) Fitness(cost int, s Stats) float64 {
	return float64(cost)*w.Cost +
		float64(s.Backtracks*10)*w.Backtrack +
		float64(s.NullMoves*10)*w.Null -
		float64((s.Bonuses+s.Deposits)*10)*w.Bonus +
		float64(s.Loiter*50)*w.Loiter
}

// Evaluator scores chromosomes against a map snapshot. It holds no mutable
// state and can be shared between goroutines.
type Evaluator struct {
	Catalog *grid.Catalog
	Weights Weights
	// Bonus lists the content kinds credited (and destroyed) en route.
	Bonus map[grid.Interactable]bool
	// Deposit lists the container kinds the agent drops cargo into.
	Deposit map[grid.Interactable]bool
	// RepairAttempts bounds the resampling of a gene that hits an
	// impassable cell.
	RepairAttempts int
	// Seed drives repair resampling. Repairs are a pure function of
	// (Seed, gene index, cursor) so re-evaluation is idempotent.
	Seed uint64
}

func NewEvaluator(cat *grid.Catalog, w Weights, bonus, deposit []grid.Interactable) *Evaluator {
	if cat == nil {
		cat = grid.DefaultCatalog()
	}
	e := &Evaluator{
		Catalog:        cat,
		Weights:        w,
		Bonus:          map[grid.Interactable]bool{},
		Deposit:        map[grid.Interactable]bool{},
		RepairAttempts: 8,
		Seed:           0x9e3779b97f4a7c15,
	}
	for _, k := range bonus {
		e.Bonus[k] = true
	}
	for _, k := range deposit {
		e.Deposit[k] = true
	}
	return e
}

// passable reports whether a step may end on cell.
func (e *Evaluator) passable(cell grid.Cell) bool {
	if !e.Catalog.Walkable(cell) {
		return false
	}
	if cell.Content == grid.NoContent {
		return true
	}
	if e.Catalog.ContentRule(cell.Content).Solid {
		return e.Bonus[cell.Content]
	}
	return true
}

func (e *Evaluator) depositTarget(cell grid.Cell) bool {
	return cell.Content != grid.NoContent && e.Deposit[cell.Content]
}

// Evaluate walks c's genes from its origin over m toward dest and stores
// Plan, Cost, Remaining, Fitness and Stats on c.
func (e *Evaluator) Evaluate(c *Chromosome, m *grid.Map, dest grid.Pos, w grid.Weather) {
	var (
		stats    Stats
		cost     int
		cur      = c.Origin
		credited = make(map[grid.Pos]struct{}, 4)
	)
	if cap(c.Plan) >= len(c.Genes) {
		c.Plan = c.Plan[:len(c.Genes)]
	} else {
		c.Plan = make([]action.Action, len(c.Genes))
	}
	here, _ := m.Cell(cur)

	for i, gene := range c.Genes {
		a := gene.Plain()
		if a.IsNoOp() {
			c.Plan[i] = action.NoOp
			continue
		}
		next := cur.Add(a.Offset())
		cell, ok := m.Cell(next)
		if !ok {
			stats.NullMoves++
			c.Plan[i] = action.NoOp
			continue
		}

		if e.depositTarget(cell) {
			if _, done := credited[next]; !done {
				credited[next] = struct{}{}
				stats.Deposits++
				cost -= e.Catalog.ContentRule(cell.Content).Value
				c.Plan[i] = a.WithFlags(false, true)
				continue
			}
		}

		if !e.passable(cell) {
			stats.NullMoves++
			a, next, cell, ok = e.repair(i, cur, a, m)
			if !ok || a.IsNoOp() {
				c.Plan[i] = action.NoOp
				continue
			}
		}

		cost += e.Catalog.StepCost(here, cell, w)
		cur = next
		here = cell
		if e.Catalog.IsLoiter(cell.Terrain) {
			stats.Loiter++
		}
		_, done := credited[next]
		if !done && cell.Content != grid.NoContent && e.Bonus[cell.Content] {
			stats.Bonuses++
			cost -= e.Catalog.ContentRule(cell.Content).Value
			a = a.WithFlags(true, false)
		} else {
			a = a.Plain()
		}
		credited[next] = struct{}{}
		c.Plan[i] = a
	}

	stats.Backtracks = backtracks(c.Plan)
	c.Cost = cost
	c.Stats = stats
	c.Remaining = grid.Manhattan(cur, dest)
	c.Fitness = e.Weights.Fitness(cost, stats)
}

// repair resamples a different action from cur until one lands on an
// observed, in-bounds, passable cell.
func (e *Evaluator) repair(i int, cur grid.Pos, a action.Action, m *grid.Map) (action.Action, grid.Pos, grid.Cell, bool) {
	r := rand.New(rand.NewPCG(e.Seed, uint64(i)<<40^uint64(cur.Row)<<20^uint64(cur.Col)))
	tried := a
	for k := 0; k < e.RepairAttempts; k++ {
		tried = action.RandomExcept(r, tried)
		if tried.Same(a) {
			continue
		}
		if tried.IsNoOp() {
			return action.NoOp, cur, grid.Cell{}, true
		}
		next := cur.Add(tried.Offset())
		cell, ok := m.Cell(next)
		if !ok || e.depositTarget(cell) || !e.passable(cell) {
			continue
		}
		return tried, next, cell, true
	}
	return action.NoOp, cur, grid.Cell{}, false
}

// backtracks folds the effective moves onto a stack and counts how many
// times the next move cancels the top one.
func backtracks(plan []action.Action) int {
	n := 0
	stack := make([]action.Action, 0, len(plan))
	for _, a := range plan {
		if a.IsNoOp() || a.Deposit() {
			continue
		}
		if k := len(stack); k > 0 && a.IsReverseOf(stack[k-1]) {
			stack = stack[:k-1]
			n++
			continue
		}
		stack = append(stack, a)
	}
	return n
}
