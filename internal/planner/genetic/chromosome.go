package genetic

import (
	"math"
	"math/rand/v2"

	"gridscout.ai/internal/planner/action"
	"gridscout.ai/internal/sim/grid"
)

const unevaluated = math.MaxInt32

// Stats are the per-evaluation counters behind a fitness value.
type Stats struct {
	NullMoves  int
	Backtracks int
	Bonuses    int
	Deposits   int
	Loiter     int
}

// Chromosome is a candidate plan. Genes are what selection, crossover and
// mutation operate on; Plan is the evaluated, executable rendition of the
// genes (null moves coerced to NoOp, repairs applied, arrival flags set).
type Chromosome struct {
	Genes  []action.Action
	Plan   []action.Action
	Origin grid.Pos

	Cost      int
	Remaining int
	Fitness   float64
	Stats     Stats
}

func New(origin grid.Pos, genes []action.Action) *Chromosome {
	return &Chromosome{
		Genes:     genes,
		Origin:    origin,
		Remaining: unevaluated,
		Fitness:   math.Inf(1),
	}
}

// NewRandom samples n genes uniformly.
func NewRandom(origin grid.Pos, n int, r *rand.Rand) *Chromosome {
	genes := make([]action.Action, n)
	for i := range genes {
		genes[i] = action.Random(r)
	}
	return New(origin, genes)
}

// NewGuided samples n genes walking a cursor from origin: genes that would
// leave the map or enter unobserved cells become NoOp, and genes that would
// enter impassable cells are resampled a bounded number of times.
func NewGuided(origin grid.Pos, n int, r *rand.Rand, m *grid.Map, cat *grid.Catalog, attempts int) *Chromosome {
	genes := make([]action.Action, n)
	cur := origin
	for i := range genes {
		a := action.Random(r)
		next := cur.Add(a.Offset())
		cell, ok := m.Cell(next)
		if !ok {
			genes[i] = action.NoOp
			continue
		}
		for k := 0; k < attempts && !cat.Walkable(cell); k++ {
			a = action.RandomExcept(r, a)
			next = cur.Add(a.Offset())
			if cell, ok = m.Cell(next); !ok {
				break
			}
		}
		if !ok || !cat.Walkable(cell) {
			a = action.NoOp
			next = cur
		}
		genes[i] = a
		cur = next
	}
	return New(origin, genes)
}

func (c *Chromosome) Clone() *Chromosome {
	if c == nil {
		return nil
	}
	out := *c
	out.Genes = action.Clone(c.Genes)
	if c.Plan != nil {
		out.Plan = action.Clone(c.Plan)
	}
	return &out
}

// Evaluated reports whether the chromosome has been scored.
func (c *Chromosome) Evaluated() bool { return c != nil && c.Remaining != unevaluated }

// Better orders chromosomes by remaining distance, then fitness.
func Better(a, b *Chromosome) bool {
	if a.Remaining != b.Remaining {
		return a.Remaining < b.Remaining
	}
	return a.Fitness < b.Fitness
}
