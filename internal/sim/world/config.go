package world

import (
	"fmt"

	"gridscout.ai/internal/sim/grid"
)

type Config struct {
	Size       int
	Seed       int64
	TickRateHz int

	EnergyMax   int
	EnergyStart int
	// EnergyRegen is added every tick, capped at EnergyMax.
	EnergyRegen int

	// WeatherEveryTicks is how long one weather lasts. 0 keeps the weather
	// fixed.
	WeatherEveryTicks int
	// BackpackCapacity bounds the units the agent may carry.
	BackpackCapacity int

	// LineSenseCost is charged per in-bounds cell of a line sense.
	LineSenseCost int
	// LocalSenseCost is charged per in-bounds cell of a local sense.
	LocalSenseCost int
	// ContentDensity is the share of walkable cells generated with content.
	ContentDensity float64
}

func DefaultConfig() Config {
	return Config{
		Size:              64,
		Seed:              1337,
		TickRateHz:        20,
		EnergyMax:         2000,
		EnergyStart:       2000,
		EnergyRegen:       10,
		WeatherEveryTicks: 300,
		BackpackCapacity:  20,
		LineSenseCost:     3,
		LocalSenseCost:    3,
		ContentDensity:    0.06,
	}
}

func (c Config) Validate() error {
	if c.Size < 3 {
		return fmt.Errorf("world size must be >= 3 (got %d)", c.Size)
	}
	if c.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0 (got %d)", c.TickRateHz)
	}
	if c.EnergyMax <= 0 || c.EnergyStart < 0 || c.EnergyStart > c.EnergyMax {
		return fmt.Errorf("energy_start must be within [0, energy_max] (got %d/%d)", c.EnergyStart, c.EnergyMax)
	}
	if c.EnergyRegen < 0 || c.WeatherEveryTicks < 0 || c.BackpackCapacity < 0 {
		return fmt.Errorf("energy_regen, weather_every_ticks, backpack_capacity must be >= 0")
	}
	if c.LineSenseCost < 0 || c.LocalSenseCost < 0 {
		return fmt.Errorf("sense costs must be >= 0")
	}
	if c.ContentDensity < 0 || c.ContentDensity > 1 {
		return fmt.Errorf("content_density must be within [0,1] (got %v)", c.ContentDensity)
	}
	return nil
}

// Start is the spawn cell: the centre of the map.
func (c Config) Start() grid.Pos {
	return grid.Pos{Row: c.Size / 2, Col: c.Size / 2}
}
