package genetic

import (
	"fmt"
	"math/rand/v2"

	"gridscout.ai/internal/sim/grid"
)

// Config parameterizes one evolutionary search.
type Config struct {
	ChromosomeLength int
	// PopulationSize is the size of the seed population and the size the
	// population is refilled to every generation (minimum 8: elite pair plus
	// six crossover children; extra slots are filled with fresh immigrants).
	PopulationSize int
	Generations    int
	MutationRate   float64
	// SeedLegalMoves makes the seed population prefer legal first steps.
	SeedLegalMoves bool
}

func DefaultConfig() Config {
	return Config{
		ChromosomeLength: 18,
		PopulationSize:   8,
		Generations:      120,
		MutationRate:     0.10,
		SeedLegalMoves:   true,
	}
}

func (c Config) Validate() error {
	if c.ChromosomeLength < 3 {
		return fmt.Errorf("chromosome_length must be >= 3 (got %d)", c.ChromosomeLength)
	}
	if c.PopulationSize < 8 {
		return fmt.Errorf("population_size must be >= 8 (got %d)", c.PopulationSize)
	}
	if c.Generations < 1 {
		return fmt.Errorf("generations must be >= 1 (got %d)", c.Generations)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("mutation_rate must be within [0,1] (got %v)", c.MutationRate)
	}
	return nil
}

// Engine runs the generation loop for a single destination.
type Engine struct {
	cfg  Config
	eval *Evaluator
}

func NewEngine(cfg Config, eval *Evaluator) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if eval == nil {
		return nil, fmt.Errorf("nil evaluator")
	}
	return &Engine{cfg: cfg, eval: eval}, nil
}

func (e *Engine) Config() Config        { return e.cfg }
func (e *Engine) Evaluator() *Evaluator { return e.eval }

// Seed builds a fresh random population rooted at origin.
func (e *Engine) Seed(origin grid.Pos, m *grid.Map, r *rand.Rand, n int) []*Chromosome {
	pop := make([]*Chromosome, 0, n)
	for i := 0; i < n; i++ {
		pop = append(pop, e.newIndividual(origin, m, r))
	}
	return pop
}

func (e *Engine) newIndividual(origin grid.Pos, m *grid.Map, r *rand.Rand) *Chromosome {
	if e.cfg.SeedLegalMoves {
		return NewGuided(origin, e.cfg.ChromosomeLength, r, m, e.eval.Catalog, e.eval.RepairAttempts)
	}
	return NewRandom(origin, e.cfg.ChromosomeLength, r)
}

// Run evolves a population from origin toward dest and returns the best
// chromosome of the final generation. m is only read.
func (e *Engine) Run(origin, dest grid.Pos, m *grid.Map, w grid.Weather, r *rand.Rand) *Chromosome {
	pop := e.Seed(origin, m, r, e.cfg.PopulationSize)

	for g := 0; g < e.cfg.Generations; g++ {
		for _, c := range pop {
			e.eval.Evaluate(c, m, dest, w)
		}
		first, second, _ := Select(pop, r)

		pop = Crossover(first, second, origin)
		for len(pop)+2 < e.cfg.PopulationSize {
			pop = append(pop, e.newIndividual(origin, m, r))
		}
		Mutate(pop, e.cfg.MutationRate, r)
		pop = append(pop, first, second)
	}

	for _, c := range pop {
		e.eval.Evaluate(c, m, dest, w)
	}
	best := pop[0]
	for _, c := range pop[1:] {
		if Better(c, best) {
			best = c
		}
	}
	return best.Clone()
}
