// Package dispatch fans a planning episode out over frontier directions, one
// genetic search per direction, and retries with relaxed acceptance until a
// winner is close enough or the round ceiling is hit.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"gridscout.ai/internal/planner/frontier"
	"gridscout.ai/internal/planner/genetic"
	"gridscout.ai/internal/sim/grid"
)

var ErrNoConvergence = errors.New("no convergence")

// Request is one planning episode. Map is a snapshot; the orchestrator never
// writes to it.
type Request struct {
	Map        *grid.Map
	Origin     grid.Pos
	Weather    grid.Weather
	Directions []frontier.Direction
	// Revisit recomputes the direction set for stages that ask for it.
	// Nil keeps Directions.
	Revisit func() []frontier.Direction
}

// Candidate is the winner of one direction's search.
type Candidate struct {
	Direction frontier.Direction
	Target    grid.Pos
	Best      *genetic.Chromosome
}

type Result struct {
	Candidate
	Episode uint64
	Rounds  int
	Accept  int
}

type Orchestrator struct {
	engine   *genetic.Engine
	offsets  frontier.Offsets
	schedule Schedule
	seed     uint64
	log      *log.Logger

	episodes atomic.Uint64
}

func New(engine *genetic.Engine, offsets frontier.Offsets, schedule Schedule, seed uint64, logger *log.Logger) (*Orchestrator, error) {
	if engine == nil {
		return nil, fmt.Errorf("nil engine")
	}
	if err := offsets.Validate(); err != nil {
		return nil, err
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Orchestrator{
		engine:   engine,
		offsets:  offsets,
		schedule: schedule,
		seed:     seed,
		log:      logger,
	}, nil
}

func (o *Orchestrator) Offsets() frontier.Offsets { return o.offsets }
func (o *Orchestrator) Schedule() Schedule        { return o.schedule }

// Plan runs rounds until a winner meets the current stage's acceptance
// distance. A round always runs to completion; ctx is checked between rounds.
// On abort the best candidate seen is returned along with ErrNoConvergence.
func (o *Orchestrator) Plan(ctx context.Context, req Request) (Result, error) {
	if req.Map == nil {
		return Result{}, fmt.Errorf("plan: nil map")
	}
	episode := o.episodes.Add(1)
	dirs := req.Directions
	if len(dirs) == 0 {
		dirs = frontier.All()
	}

	var (
		overall   Candidate
		have      bool
		revisited bool
	)
	for round := 0; ; round++ {
		stage, ok := o.schedule.At(round)
		if !ok {
			res := Result{Candidate: overall, Episode: episode, Rounds: round}
			return res, fmt.Errorf("episode %d: %w after %d rounds", episode, ErrNoConvergence, round)
		}
		if err := ctx.Err(); err != nil {
			return Result{Candidate: overall, Episode: episode, Rounds: round}, err
		}
		if stage.Revisit && !revisited && req.Revisit != nil {
			revisited = true
			if next := req.Revisit(); len(next) > 0 {
				dirs = next
				o.log.Printf("episode %d round %d: revisit directions %v", episode, round, dirs)
			}
		}

		cands := o.Round(req, dirs, episode, round)
		best, ok := Aggregate(cands)
		if !ok {
			continue
		}
		if !have || better(best, overall) {
			overall, have = best, true
		}
		o.log.Printf("episode %d round %d: best %s remaining=%d fitness=%.2f cost=%d (accept<=%d)",
			episode, round, best.Direction, best.Best.Remaining, best.Best.Fitness, best.Best.Cost, stage.Accept)
		if best.Best.Remaining <= stage.Accept {
			return Result{Candidate: best, Episode: episode, Rounds: round + 1, Accept: stage.Accept}, nil
		}
	}
}

// Round runs one search per direction in parallel over the same snapshot and
// waits for all of them.
func (o *Orchestrator) Round(req Request, dirs []frontier.Direction, episode uint64, round int) []Candidate {
	if len(dirs) == 0 {
		return nil
	}
	out := make([]Candidate, len(dirs))
	size := req.Map.Size()

	var g errgroup.Group
	g.SetLimit(len(dirs))
	for i, d := range dirs {
		g.Go(func() error {
			r := rand.New(rand.NewPCG(o.seed^episode, uint64(round)<<8|uint64(d)))
			target := o.offsets.Target(req.Origin, d, size)
			out[i] = Candidate{
				Direction: d,
				Target:    target,
				Best:      o.engine.Run(req.Origin, target, req.Map, req.Weather, r),
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Aggregate picks the candidate with the smallest remaining distance, then
// the smallest fitness, then the smallest cost.
func Aggregate(cands []Candidate) (Candidate, bool) {
	var (
		best Candidate
		ok   bool
	)
	for _, c := range cands {
		if c.Best == nil || !c.Best.Evaluated() {
			continue
		}
		if !ok || better(c, best) {
			best, ok = c, true
		}
	}
	return best, ok
}

func better(a, b Candidate) bool {
	if a.Best.Remaining != b.Best.Remaining {
		return a.Best.Remaining < b.Best.Remaining
	}
	if a.Best.Fitness != b.Best.Fitness {
		return a.Best.Fitness < b.Best.Fitness
	}
	return a.Best.Cost < b.Best.Cost
}
