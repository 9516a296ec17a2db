package world

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"gridscout.ai/internal/sim/grid"
	"gridscout.ai/internal/sim/host"
)

// World is a single-agent reference host. All methods are safe for
// concurrent use; the agent's actions and the tick clock serialize on one
// mutex.
type World struct {
	cfg Config
	cat *grid.Catalog
	log *log.Logger

	mu       sync.Mutex
	truth    *grid.Map
	observed *grid.Map
	pos      grid.Pos
	energy   int
	weather  grid.Weather
	tick     uint64
	backpack map[grid.Interactable]int
	rng      *rand.Rand
	closed   bool
}

func New(cfg Config, cat *grid.Catalog, logger *log.Logger) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewWithMap(cfg, cat, Generate(cfg), cfg.Start(), logger)
}

// NewWithMap hosts a prepared truth map with the agent at start.
func NewWithMap(cfg Config, cat *grid.Catalog, truth *grid.Map, start grid.Pos, logger *log.Logger) (*World, error) {
	if truth == nil || truth.Size() != cfg.Size {
		return nil, fmt.Errorf("truth map size %d does not match world size %d", truth.Size(), cfg.Size)
	}
	if !truth.InBounds(start) {
		return nil, fmt.Errorf("start %s out of bounds", start)
	}
	if cat == nil {
		cat = grid.DefaultCatalog()
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	w := &World{
		cfg:      cfg,
		cat:      cat,
		log:      logger,
		truth:    truth,
		observed: grid.NewMap(cfg.Size),
		pos:      start,
		energy:   cfg.EnergyStart,
		backpack: map[grid.Interactable]int{},
		rng:      rand.New(rand.NewPCG(uint64(cfg.Seed), 0x77656174686572)),
	}
	w.reveal(start)
	return w, nil
}

func (w *World) Config() Config { return w.cfg }

func (w *World) Catalog() *grid.Catalog { return w.cat }

func (w *World) Tick() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

// Advance runs one world tick: energy regeneration and the weather cycle.
func (w *World) Advance(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.advanceLocked()
	return nil
}

func (w *World) advanceLocked() {
	w.tick++
	w.energy = min(w.cfg.EnergyMax, w.energy+w.cfg.EnergyRegen)
	if w.cfg.WeatherEveryTicks > 0 && w.tick%uint64(w.cfg.WeatherEveryTicks) == 0 {
		cycle := grid.WeatherCycle()
		next := cycle[w.rng.IntN(len(cycle))]
		if next != w.weather {
			w.log.Printf("tick %d: weather %s -> %s", w.tick, w.weather, next)
		}
		w.weather = next
	}
}

// Run ticks the world at TickRateHz until ctx ends, calling onTick after
// every tick.
func (w *World) Run(ctx context.Context, onTick func(tick uint64)) error {
	ticker := time.NewTicker(time.Second / time.Duration(w.cfg.TickRateHz))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := ctx.Err(); err != nil {
				return err
			}
			w.mu.Lock()
			w.advanceLocked()
			tick := w.tick
			w.mu.Unlock()
			if onTick != nil {
				onTick(tick)
			}
		}
	}
}

// Close makes the observed map unavailable; actions keep failing after it.
func (w *World) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

func (w *World) Energy() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.energy
}

func (w *World) Weather() grid.Weather {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.weather
}

func (w *World) Position() grid.Pos {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pos
}

// Backpack returns a copy of the carried units per content kind.
func (w *World) Backpack() map[grid.Interactable]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[grid.Interactable]int, len(w.backpack))
	for k, v := range w.backpack {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

func (w *World) ObservedMap() (*grid.Map, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, host.ErrMapUnavailable
	}
	return w.observed.Clone(), nil
}

// FullMap returns the ground truth, for debug export only.
func (w *World) FullMap() *grid.Map {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.truth.Clone()
}

func (w *World) reveal(p grid.Pos) {
	if c, ok := w.truth.Cell(p); ok {
		w.observed.Set(p, c)
	}
}

// spend deducts cost or fails without side effects.
func (w *World) spend(cost int) error {
	if cost > w.energy {
		return fmt.Errorf("%w: need %d, have %d", host.ErrInsufficientEnergy, cost, w.energy)
	}
	w.energy -= cost
	return nil
}

func (w *World) carried() int {
	n := 0
	for _, v := range w.backpack {
		n += v
	}
	return n
}
