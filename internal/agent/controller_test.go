package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridscout.ai/internal/planner/action"
	"gridscout.ai/internal/planner/dispatch"
	"gridscout.ai/internal/planner/frontier"
	"gridscout.ai/internal/planner/genetic"
	"gridscout.ai/internal/sim/grid"
)

var (
	up    = action.Move(action.Up)
	down  = action.Move(action.Down)
	right = action.Move(action.Right)
)

type memSink struct {
	ticks    []TickRecord
	episodes []EpisodeRecord
}

func (s *memSink) WriteTick(r TickRecord) error       { s.ticks = append(s.ticks, r); return nil }
func (s *memSink) WriteEpisode(r EpisodeRecord) error { s.episodes = append(s.episodes, r); return nil }

func newOrchestrator(t *testing.T, generations int) *dispatch.Orchestrator {
	t.Helper()
	cfg := genetic.DefaultConfig()
	cfg.Generations = generations
	eval := genetic.NewEvaluator(grid.DefaultCatalog(), genetic.DefaultWeights(), []grid.Interactable{grid.Coin}, nil)
	eng, err := genetic.NewEngine(cfg, eval)
	require.NoError(t, err)
	o, err := dispatch.New(eng, frontier.DefaultOffsets(), dispatch.DefaultSchedule(), 99, nil)
	require.NoError(t, err)
	return o
}

func newController(t *testing.T, h *fakeHost) *Controller {
	t.Helper()
	cfg := DefaultConfig()
	cfg.PacingDelay = 0
	cfg.PacingTicks = 3
	c, err := NewController(h, grid.DefaultCatalog(), newOrchestrator(t, 60), NewShared(), cfg, nil)
	require.NoError(t, err)
	return c
}

func TestProcessTick_InsufficientEnergyKeepsQueue(t *testing.T) {
	h := newFakeHost(flatMap(20, grid.Grass), grid.Pos{Row: 10, Col: 10}, 0)
	c := newController(t, h)
	plan := []action.Action{right, right, down}
	c.shared.Install(plan, 3)

	rec, err := c.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateLowEnergy, rec.State)
	assert.True(t, c.shared.InsufficientEnergy())
	assert.Zero(t, h.actuations(), "no host actuation while energy is short")
	q, cost := c.shared.Queue()
	assert.Equal(t, plan, q)
	assert.Equal(t, 3, cost)
	assert.Equal(t, 3, rec.Pending)
	assert.Greater(t, rec.Projected, 0)

	// still short on the next tick
	_, err = c.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, h.actuations())

	h.setEnergy(10_000)
	rec, err = c.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, rec.State)
	assert.False(t, c.shared.InsufficientEnergy())
	assert.Equal(t, grid.Pos{Row: 11, Col: 12}, h.Position())
	assert.Equal(t, grid.Pos{Row: 11, Col: 12}, c.shared.Position())
	assert.Equal(t, 0, c.shared.Pending())
	assert.True(t, c.Visited(grid.Pos{Row: 11, Col: 12}))
}

func TestProcessTick_ProjectionCoversQueueAndSensing(t *testing.T) {
	h := newFakeHost(flatMap(30, grid.Grass), grid.Pos{Row: 15, Col: 15}, 0)
	c := newController(t, h)
	m, _ := h.ObservedMap()

	// fully observed: every direction counts as unexplored
	got := c.ProjectCost(m, h.Position(), grid.Sunny, []action.Action{right, action.NoOp, right})
	assert.Equal(t, 2+4*8*3+200, got)

	h.localCost = 450
	got = c.ProjectCost(m, h.Position(), grid.Sunny, nil)
	assert.Equal(t, 4*8*3+450, got)

	// only cardinals unexplored: no local sense charged
	partial := flatMap(30, grid.Grass)
	at := grid.Pos{Row: 15, Col: 15}
	partial.Forget(at.Add(8, 0))
	assert.Equal(t, 8*3, c.ProjectCost(partial, at, grid.Sunny, nil))

	cat := grid.DefaultCatalog()
	m.Set(grid.Pos{Row: 15, Col: 16}, grid.Cell{Terrain: grid.Grass, Content: grid.Rock})
	h.localCost = 0
	got = c.ProjectCost(m, h.Position(), grid.Sunny, []action.Action{right.WithFlags(true, false)})
	assert.Equal(t, cat.ContentRule(grid.Rock).DestroyCost+1+4*8*3+200, got)
}

func TestProcessTick_SensingMatchesProjection(t *testing.T) {
	at := grid.Pos{Row: 15, Col: 15}

	// only the Down target unexplored: one line sense, no local sense
	truth := flatMap(30, grid.Grass)
	truth.Forget(at.Add(8, 0))
	h := newFakeHost(truth, at, 8*3)
	c := newController(t, h)

	rec, err := c.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, rec.State)
	assert.Equal(t, 8*3, rec.Projected)
	assert.Equal(t, 1, h.calls["sense"])
	assert.Zero(t, h.calls["sense_local"], "local sense was not projected")

	// a diagonal target unexplored: the local sense runs and is projected
	truth = flatMap(30, grid.Grass)
	truth.Forget(at.Add(-4, -4))
	h = newFakeHost(truth, at, 10_000)
	c = newController(t, h)

	rec, err = c.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, rec.State)
	assert.Equal(t, 200, rec.Projected, "floored local sense cost")
	assert.Zero(t, h.calls["sense"])
	assert.Equal(t, 1, h.calls["sense_local"])
}

func TestProcessTick_DrainStopsOnEnergyAndResumes(t *testing.T) {
	h := newFakeHost(flatMap(20, grid.Grass), grid.Pos{Row: 5, Col: 5}, 10_000)
	h.stepBudget = 1
	c := newController(t, h)
	c.shared.Install([]action.Action{down, down, down}, 3)

	rec, err := c.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateLowEnergy, rec.State)
	assert.Equal(t, 1, rec.Executed)
	assert.Equal(t, 2, c.shared.Pending())
	q, _ := c.shared.Queue()
	assert.True(t, q[0].IsNoOp(), "executed action retired")
	assert.Equal(t, grid.Pos{Row: 6, Col: 5}, c.shared.Position())

	h.stepBudget = -1
	rec, err = c.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, rec.State)
	assert.Equal(t, 2, rec.Executed)
	assert.Equal(t, grid.Pos{Row: 8, Col: 5}, h.Position())
}

func TestProcessTick_BlockedIsRetiredWithoutRetry(t *testing.T) {
	truth := flatMap(20, grid.Grass)
	truth.Set(grid.Pos{Row: 5, Col: 6}, grid.Cell{Terrain: grid.Wall})
	h := newFakeHost(truth, grid.Pos{Row: 5, Col: 5}, 10_000)
	c := newController(t, h)
	c.shared.Install([]action.Action{right, down}, 2)

	rec, err := c.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, rec.State)
	assert.Equal(t, 2, rec.Executed)
	assert.Equal(t, 2, h.calls["step"])
	assert.Equal(t, grid.Pos{Row: 6, Col: 5}, h.Position())
}

func TestProcessTick_DestroyThenStepAndDeposit(t *testing.T) {
	truth := flatMap(20, grid.Grass)
	truth.Set(grid.Pos{Row: 5, Col: 6}, grid.Cell{Terrain: grid.Grass, Content: grid.Garbage, Amount: 3})
	truth.Set(grid.Pos{Row: 6, Col: 7}, grid.Cell{Terrain: grid.Grass, Content: grid.Bin})
	h := newFakeHost(truth, grid.Pos{Row: 5, Col: 5}, 10_000)
	c := newController(t, h)
	c.shared.Install([]action.Action{right.WithFlags(true, false), down, right.WithFlags(false, true)}, 0)

	_, err := c.ProcessTick(context.Background())
	require.NoError(t, err)

	steps := []string{}
	for _, op := range h.order {
		if op == "step" || op == "destroy" || op == "deposit" {
			steps = append(steps, op)
		}
	}
	assert.Equal(t, []string{"destroy", "step", "step", "deposit"}, steps)
	assert.Equal(t, grid.Pos{Row: 6, Col: 6}, h.Position(), "deposit does not move the agent")
	assert.Empty(t, c.Cargo())
}

func TestProcessTick_MapUnavailableDefers(t *testing.T) {
	h := newFakeHost(flatMap(10, grid.Grass), grid.Pos{Row: 5, Col: 5}, 10_000)
	h.noMap = true
	c := newController(t, h)
	c.shared.Install([]action.Action{right}, 1)

	rec, err := c.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDeferred, rec.State)
	assert.Zero(t, h.actuations())
	assert.Equal(t, 1, c.shared.Pending())
}

func TestProcessTick_IdleWhileSearching(t *testing.T) {
	h := newFakeHost(flatMap(10, grid.Grass), grid.Pos{Row: 5, Col: 5}, 10_000)
	c := newController(t, h)

	rec, err := c.ProcessTick(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateReady, rec.State)
	assert.Equal(t, 1, h.calls["sense_local"])

	req, ok := c.StartSearch()
	require.True(t, ok)
	require.NotNil(t, req.Map)
	assert.True(t, c.shared.Searching())
	_, ok = c.StartSearch()
	assert.False(t, ok, "one search at a time")

	before := h.actuations()
	rec, err = c.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSearching, rec.State)
	assert.Equal(t, before, h.actuations())

	c.Abort()
	assert.False(t, c.shared.Searching())
}

func TestObserve_FrontierAndInterest(t *testing.T) {
	truth := flatMap(30, grid.Grass)
	origin := grid.Pos{Row: 15, Col: 15}
	truth.Set(origin.Add(0, 8), grid.Cell{Terrain: grid.Lava})
	truth.Set(grid.Pos{Row: 13, Col: 15}, grid.Cell{Terrain: grid.Grass, Content: grid.Coin, Amount: 2})
	truth.Set(grid.Pos{Row: 14, Col: 15}, grid.Cell{Terrain: grid.Grass, Content: grid.Tree})
	truth.Set(grid.Pos{Row: 2, Col: 2}, grid.Cell{Terrain: grid.Grass, Content: grid.Coin})
	h := newFakeHost(truth, origin, 10_000)
	c := newController(t, h)

	_, err := c.ProcessTick(context.Background())
	require.NoError(t, err)

	dirs := c.shared.Directions()
	assert.NotContains(t, dirs, frontier.Right, "lava target is not a frontier")
	assert.Len(t, dirs, 7)
	assert.Equal(t, 4, h.calls["sense"], "one line sense per cardinal")

	interests := c.Interests()
	require.Len(t, interests, 1)
	assert.Equal(t, grid.Coin, interests[0].Content)
	assert.Equal(t, 2, interests[0].Amount)
}

func TestInstall_UsesEvaluatedPlan(t *testing.T) {
	h := newFakeHost(flatMap(10, grid.Grass), grid.Pos{Row: 0, Col: 0}, 10_000)
	c := newController(t, h)
	best := genetic.New(grid.Pos{}, []action.Action{up, right})
	best.Plan = []action.Action{action.NoOp, right}
	best.Cost = 1
	c.Install(dispatch.Result{Candidate: dispatch.Candidate{Best: best}})

	q, cost := c.shared.Queue()
	assert.Equal(t, best.Plan, q)
	assert.Equal(t, 1, cost)
	assert.Equal(t, 1, c.shared.Pending())
}
