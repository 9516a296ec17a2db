package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridscout.ai/internal/planner/action"
	"gridscout.ai/internal/planner/dispatch"
	"gridscout.ai/internal/sim/grid"
)

func TestRunner_EpisodesMoveTheAgent(t *testing.T) {
	origin := grid.Pos{Row: 20, Col: 20}
	h := newFakeHost(flatMap(40, grid.Grass), origin, 100_000)
	c := newController(t, h)
	sink := &memSink{}
	c.AddTickSink(sink)
	r := NewRunner(c, h, nil)
	r.AddEpisodeSink(sink)
	planned := 0
	r.OnPlan(func(ep uint64, req dispatch.Request) {
		planned++
		assert.Equal(t, uint64(planned), ep)
		assert.NotNil(t, req.Map)
	})

	require.NoError(t, r.Run(context.Background(), 2))

	require.Len(t, sink.episodes, 2)
	assert.Equal(t, 2, planned)
	for _, ep := range sink.episodes {
		assert.Empty(t, ep.Error)
		assert.NotEmpty(t, ep.Direction)
		assert.LessOrEqual(t, ep.Remaining, 4)
		assert.GreaterOrEqual(t, ep.EndTick, ep.StartTick+3, "clock paced while searching")
	}
	assert.Equal(t, [2]int{origin.Row, origin.Col}, sink.episodes[0].Origin)
	assert.NotEqual(t, sink.episodes[0].Origin, sink.episodes[1].Origin, "first plan moved the agent")
	assert.True(t, c.shared.Ready())
	assert.Equal(t, 0, c.shared.Pending())
	assert.NotEmpty(t, sink.ticks)
	assert.GreaterOrEqual(t, h.ticks, 6)
}

func TestRunner_RegeneratesUntilAffordable(t *testing.T) {
	h := newFakeHost(flatMap(20, grid.Grass), grid.Pos{Row: 10, Col: 10}, 0)
	h.regen = 50
	c := newController(t, h)
	r := NewRunner(c, h, nil)

	require.NoError(t, r.WaitReady(context.Background()))
	assert.True(t, c.shared.Ready())
	assert.Greater(t, h.ticks, 1, "waited for energy across ticks")
}

func TestRunner_StallsWithoutEnergy(t *testing.T) {
	h := newFakeHost(flatMap(20, grid.Grass), grid.Pos{Row: 10, Col: 10}, 0)
	cfg := DefaultConfig()
	cfg.MaxWaitTicks = 5
	c, err := NewController(h, nil, newOrchestrator(t, 1), nil, cfg, nil)
	require.NoError(t, err)
	r := NewRunner(c, h, nil)

	err = r.WaitReady(context.Background())
	assert.True(t, errors.Is(err, ErrStalled))
	assert.Equal(t, 5, h.ticks)
}

func TestRunner_NoConvergenceEndsRun(t *testing.T) {
	truth := flatMap(20, grid.Lava)
	origin := grid.Pos{Row: 10, Col: 10}
	truth.Set(origin, grid.Cell{Terrain: grid.Grass})
	h := newFakeHost(truth, origin, 100_000)
	cfg := DefaultConfig()
	cfg.PacingDelay = 0
	cfg.PacingTicks = 1
	c, err := NewController(h, nil, newOrchestrator(t, 2), nil, cfg, nil)
	require.NoError(t, err)
	sink := &memSink{}
	r := NewRunner(c, h, nil)
	r.AddEpisodeSink(sink)

	err = r.Run(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dispatch.ErrNoConvergence))
	require.Len(t, sink.episodes, 1)
	assert.NotEmpty(t, sink.episodes[0].Error)
	assert.Equal(t, 15, sink.episodes[0].Rounds)
	assert.False(t, c.shared.Searching())
}

func TestFormatPlan(t *testing.T) {
	plan := []action.Action{up, action.NoOp, right.WithFlags(true, false), down.WithFlags(false, true)}
	assert.Equal(t, "UP RIGHT+D DOWN+P", FormatPlan(plan))
	assert.Equal(t, "", FormatPlan(nil))
}
