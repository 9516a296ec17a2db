package genetic

import (
	"math/rand/v2"
	"sort"

	"gridscout.ai/internal/planner/action"
	"gridscout.ai/internal/sim/grid"
)

// rankWeights biases the second parent toward low ranks: rank i+1 is drawn
// with weight rankWeights[i].
var rankWeights = [...]int{7, 6, 5, 4, 3, 2, 1}

// Sort orders pop by remaining distance, then fitness.
func Sort(pop []*Chromosome) {
	sort.SliceStable(pop, func(i, j int) bool { return Better(pop[i], pop[j]) })
}

// Select sorts pop, keeps the elite (rank 0) and a rank-biased second parent,
// and removes both from pop. The shrunk population is returned.
func Select(pop []*Chromosome, r *rand.Rand) (first, second *Chromosome, rest []*Chromosome) {
	if len(pop) == 0 {
		return nil, nil, pop
	}
	Sort(pop)
	first = pop[0]
	if len(pop) == 1 {
		return first, first.Clone(), pop[:0]
	}
	rank := pickRank(r, len(pop)-1)
	second = pop[rank]

	rest = append(pop[:rank], pop[rank+1:]...)
	rest = append(rest[:0], rest[1:]...)
	return first, second, rest
}

// pickRank draws a rank in [1, maxRank] from rankWeights, truncated to the
// ranks that exist.
func pickRank(r *rand.Rand, maxRank int) int {
	n := len(rankWeights)
	if maxRank < n {
		n = maxRank
	}
	total := 0
	for i := 0; i < n; i++ {
		total += rankWeights[i]
	}
	t := r.IntN(total)
	for i := 0; i < n; i++ {
		if t < rankWeights[i] {
			return i + 1
		}
		t -= rankWeights[i]
	}
	return n
}

// templates picks, per third, which parent supplies it (0 = first, 1 = second).
var templates = [6][3]int{
	{0, 1, 0},
	{0, 1, 1},
	{1, 0, 0},
	{1, 0, 1},
	{0, 0, 1},
	{1, 1, 0},
}

// thirds returns the boundaries of the three contiguous thirds of an n-gene
// sequence; the last third takes the remainder.
func thirds(n int) [4]int {
	p := n / 3
	return [4]int{0, p, 2 * p, n}
}

// Crossover recombines the thirds of a and b into six children rooted at origin.
func Crossover(a, b *Chromosome, origin grid.Pos) []*Chromosome {
	n := len(a.Genes)
	if len(b.Genes) < n {
		n = len(b.Genes)
	}
	cut := thirds(n)
	parents := [2][]action.Action{a.Genes[:n], b.Genes[:n]}

	children := make([]*Chromosome, 0, len(templates))
	for _, tpl := range templates {
		genes := make([]action.Action, 0, n)
		for part, src := range tpl {
			genes = append(genes, parents[src][cut[part]:cut[part+1]]...)
		}
		for i := range genes {
			genes[i] = genes[i].Plain()
		}
		children = append(children, New(origin, genes))
	}
	return children
}

// Mutate replaces each gene with probability rate by a different action.
func Mutate(pop []*Chromosome, rate float64, r *rand.Rand) {
	for _, c := range pop {
		for i := range c.Genes {
			if r.Float64() < rate {
				c.Genes[i] = action.RandomExcept(r, c.Genes[i])
			}
		}
	}
}
