package agent

import (
	"fmt"
	"time"

	"gridscout.ai/internal/planner/frontier"
	"gridscout.ai/internal/sim/grid"
)

type Config struct {
	// SenseRange is how far each cardinal line sense reaches.
	SenseRange int
	// LocalRadius is the radius of the local sense after each drain.
	LocalRadius int
	// LineSenseCost is the projected energy per cell of a line sense.
	LineSenseCost int
	// MinLocalSenseCost floors the projected local sense cost; hosts tend
	// to under-report it.
	MinLocalSenseCost int

	PacingTicks  int
	PacingDelay  time.Duration
	MaxWaitTicks int

	Revisit frontier.RevisitPolicy
	// Uninteresting content is not recorded as an interest point.
	Uninteresting []grid.Interactable
}

func DefaultConfig() Config {
	return Config{
		SenseRange:        8,
		LocalRadius:       4,
		LineSenseCost:     3,
		MinLocalSenseCost: 200,
		PacingTicks:       20,
		PacingDelay:       20 * time.Millisecond,
		MaxWaitTicks:      2000,
		Revisit:           frontier.VisitedFirst,
		Uninteresting:     []grid.Interactable{grid.Fire, grid.Tree, grid.Bush, grid.Fish},
	}
}

func (c Config) Validate() error {
	if c.SenseRange < 1 {
		return fmt.Errorf("sense_range must be >= 1 (got %d)", c.SenseRange)
	}
	if c.LocalRadius < 1 {
		return fmt.Errorf("local_radius must be >= 1 (got %d)", c.LocalRadius)
	}
	if c.LineSenseCost < 0 || c.MinLocalSenseCost < 0 {
		return fmt.Errorf("sense costs must be >= 0")
	}
	if c.PacingTicks < 0 || c.PacingDelay < 0 {
		return fmt.Errorf("pacing must be >= 0")
	}
	if c.MaxWaitTicks < 1 {
		return fmt.Errorf("max_wait_ticks must be >= 1 (got %d)", c.MaxWaitTicks)
	}
	return c.Revisit.Validate()
}
