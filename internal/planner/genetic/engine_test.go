package genetic

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridscout.ai/internal/planner/action"
	"gridscout.ai/internal/sim/grid"
)

func uniform(n int, a action.Action) *Chromosome {
	genes := make([]action.Action, n)
	for i := range genes {
		genes[i] = a
	}
	return New(grid.Pos{}, genes)
}

func TestCrossover_ThirdsFromOneParent(t *testing.T) {
	for _, n := range []int{18, 10, 3} {
		a, b := uniform(n, up), uniform(n, down)
		cut := thirds(n)
		children := Crossover(a, b, grid.Pos{Row: 1, Col: 2})
		require.Len(t, children, 6)
		for k, child := range children {
			require.Len(t, child.Genes, n)
			assert.Equal(t, grid.Pos{Row: 1, Col: 2}, child.Origin)
			assert.False(t, child.Evaluated())
			for part := 0; part < 3; part++ {
				want := up
				if templates[k][part] == 1 {
					want = down
				}
				for i := cut[part]; i < cut[part+1]; i++ {
					assert.True(t, child.Genes[i].Same(want), "n=%d child=%d gene=%d", n, k, i)
				}
			}
		}
	}
}

func TestCrossover_DoesNotAliasParents(t *testing.T) {
	a, b := uniform(9, up), uniform(9, down)
	children := Crossover(a, b, grid.Pos{})
	children[0].Genes[0] = left
	assert.True(t, a.Genes[0].Same(up))
}

func TestSelect_RemovesBothParents(t *testing.T) {
	m := flatMap(20, grid.Grass)
	e := newEval(grid.DefaultCatalog())
	r := rand.New(rand.NewPCG(1, 2))
	dest := grid.Pos{Row: 15, Col: 10}

	for round := 0; round < 50; round++ {
		pop := make([]*Chromosome, 8)
		for i := range pop {
			pop[i] = NewRandom(grid.Pos{Row: 10, Col: 10}, 18, r)
			e.Evaluate(pop[i], m, dest, grid.Sunny)
		}
		first, second, rest := Select(pop, r)
		require.Len(t, rest, 6)
		require.NotSame(t, first, second)
		for _, c := range rest {
			assert.NotSame(t, first, c)
			assert.NotSame(t, second, c)
			assert.False(t, Better(c, first), "first must be the elite")
		}
	}
}

func TestPickRank_WithinBounds(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	seen := map[int]int{}
	for i := 0; i < 5000; i++ {
		k := pickRank(r, 7)
		require.GreaterOrEqual(t, k, 1)
		require.LessOrEqual(t, k, 7)
		seen[k]++
	}
	assert.Greater(t, seen[1], seen[7], "low ranks are favoured")
	for i := 0; i < 100; i++ {
		assert.Equal(t, 1, pickRank(r, 1))
	}
}

func TestMutate_FullRateChangesEveryGene(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	c := NewRandom(grid.Pos{}, 18, r)
	before := action.Clone(c.Genes)
	Mutate([]*Chromosome{c}, 1, r)
	for i := range before {
		assert.False(t, before[i].Same(c.Genes[i]), "gene %d", i)
	}

	Mutate([]*Chromosome{c}, 0, r)
	after := action.Clone(c.Genes)
	Mutate([]*Chromosome{c}, 0, r)
	assert.Equal(t, after, c.Genes)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.PopulationSize = 7
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ChromosomeLength = 2
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MutationRate = 1.5
	assert.Error(t, cfg.Validate())

	_, err := NewEngine(DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestEngine_ReachesOpenTarget(t *testing.T) {
	m := flatMap(30, grid.Grass)
	eng, err := NewEngine(DefaultConfig(), newEval(grid.DefaultCatalog()))
	require.NoError(t, err)

	origin := grid.Pos{Row: 10, Col: 10}
	dest := grid.Pos{Row: 18, Col: 10}
	best := eng.Run(origin, dest, m, grid.Sunny, rand.New(rand.NewPCG(42, 42)))

	require.True(t, best.Evaluated())
	require.Len(t, best.Plan, DefaultConfig().ChromosomeLength)
	assert.LessOrEqual(t, best.Remaining, 2)
	assert.Equal(t, 0, best.Stats.NullMoves)
}

func TestEngine_LargePopulationRefilled(t *testing.T) {
	m := flatMap(16, grid.Grass)
	cfg := DefaultConfig()
	cfg.PopulationSize = 12
	cfg.Generations = 10
	eng, err := NewEngine(cfg, newEval(grid.DefaultCatalog()))
	require.NoError(t, err)

	best := eng.Run(grid.Pos{Row: 8, Col: 8}, grid.Pos{Row: 8, Col: 12}, m, grid.Foggy, rand.New(rand.NewPCG(9, 9)))
	assert.True(t, best.Evaluated())
	assert.GreaterOrEqual(t, best.Remaining, 0)
}

func TestEngine_ReturnsClone(t *testing.T) {
	m := flatMap(10, grid.Grass)
	cfg := DefaultConfig()
	cfg.Generations = 2
	eng, err := NewEngine(cfg, newEval(grid.DefaultCatalog()))
	require.NoError(t, err)

	a := eng.Run(grid.Pos{Row: 5, Col: 5}, grid.Pos{Row: 5, Col: 9}, m, grid.Sunny, rand.New(rand.NewPCG(1, 1)))
	b := eng.Run(grid.Pos{Row: 5, Col: 5}, grid.Pos{Row: 5, Col: 9}, m, grid.Sunny, rand.New(rand.NewPCG(1, 1)))
	assert.Equal(t, a.Genes, b.Genes, "same seed, same result")
	a.Genes[0] = up
	assert.NotSame(t, &a.Genes[0], &b.Genes[0])
}
