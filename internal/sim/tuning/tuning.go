package tuning

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"gridscout.ai/internal/agent"
	"gridscout.ai/internal/planner/dispatch"
	"gridscout.ai/internal/planner/frontier"
	"gridscout.ai/internal/planner/genetic"
	"gridscout.ai/internal/sim/grid"
	"gridscout.ai/internal/sim/world"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	World   World                  `yaml:"world"`
	Terrain map[string]TerrainRule `yaml:"terrain"`
	Weather map[string]int         `yaml:"weather"`
	Content map[string]ContentRule `yaml:"content"`
	Planner Planner                `yaml:"planner"`
	Agent   Agent                  `yaml:"agent"`
}

type World struct {
	Size              int     `yaml:"size"`
	Seed              int64   `yaml:"seed"`
	TickRateHz        int     `yaml:"tick_rate_hz"`
	EnergyMax         int     `yaml:"energy_max"`
	EnergyStart       int     `yaml:"energy_start"`
	EnergyRegen       int     `yaml:"energy_regen"`
	WeatherEveryTicks int     `yaml:"weather_every_ticks"`
	BackpackCapacity  int     `yaml:"backpack_capacity"`
	LineSenseCost     int     `yaml:"line_sense_cost"`
	LocalSenseCost    int     `yaml:"local_sense_cost"`
	ContentDensity    float64 `yaml:"content_density"`
}

type TerrainRule struct {
	BaseCost    int  `yaml:"base_cost"`
	Traversable bool `yaml:"traversable"`
	Loiter      bool `yaml:"loiter"`
}

type ContentRule struct {
	Value       int  `yaml:"value"`
	DestroyCost int  `yaml:"destroy_cost"`
	UnitCost    int  `yaml:"unit_cost"`
	Solid       bool `yaml:"solid"`
	Container   bool `yaml:"container"`
}

type Planner struct {
	ChromosomeLength int     `yaml:"chromosome_length"`
	PopulationSize   int     `yaml:"population_size"`
	Generations      int     `yaml:"generations"`
	MutationRate     float64 `yaml:"mutation_rate"`
	SeedLegalMoves   bool    `yaml:"seed_legal_moves"`
	RepairAttempts   int     `yaml:"repair_attempts"`
	Seed             uint64  `yaml:"seed"`

	Weights  Weights          `yaml:"weights"`
	Bonus    []string         `yaml:"bonus"`
	Deposit  []string         `yaml:"deposit"`
	Frontier frontier.Offsets `yaml:"frontier"`
	Retry    []dispatch.Stage `yaml:"retry"`
}

type Weights struct {
	Cost      float64 `yaml:"cost"`
	Backtrack float64 `yaml:"backtrack"`
	Null      float64 `yaml:"null"`
	Bonus     float64 `yaml:"bonus"`
	Loiter    float64 `yaml:"loiter"`
}

type Agent struct {
	SenseRange        int      `yaml:"sense_range"`
	LocalRadius       int      `yaml:"local_radius"`
	LineSenseCost     int      `yaml:"line_sense_cost"`
	MinLocalSenseCost int      `yaml:"min_local_sense_cost"`
	PacingTicks       int      `yaml:"pacing_ticks"`
	PacingDelayMs     int      `yaml:"pacing_delay_ms"`
	MaxWaitTicks      int      `yaml:"max_wait_ticks"`
	RevisitPolicy     string   `yaml:"revisit_policy"`
	Uninteresting     []string `yaml:"uninteresting"`
}

// Defaults mirrors configs/tuning.yaml.
func Defaults() Tuning {
	cat := grid.DefaultCatalog()
	t := Tuning{
		ProtocolVersion: "1.0",
		Terrain:         map[string]TerrainRule{},
		Weather:         map[string]int{},
		Content:         map[string]ContentRule{},
	}

	wc := world.DefaultConfig()
	t.World = World{
		Size:              wc.Size,
		Seed:              wc.Seed,
		TickRateHz:        wc.TickRateHz,
		EnergyMax:         wc.EnergyMax,
		EnergyStart:       wc.EnergyStart,
		EnergyRegen:       wc.EnergyRegen,
		WeatherEveryTicks: wc.WeatherEveryTicks,
		BackpackCapacity:  wc.BackpackCapacity,
		LineSenseCost:     wc.LineSenseCost,
		LocalSenseCost:    wc.LocalSenseCost,
		ContentDensity:    wc.ContentDensity,
	}
	for _, k := range grid.Terrains() {
		r := cat.TerrainRule(k)
		t.Terrain[k.String()] = TerrainRule{BaseCost: r.BaseCost, Traversable: r.Traversable, Loiter: r.Loiter}
	}
	for _, w := range grid.WeatherCycle() {
		t.Weather[w.String()] = cat.WeatherPercent[w]
	}
	for _, k := range grid.Interactables() {
		r := cat.ContentRule(k)
		if r == (grid.ContentRule{}) {
			continue
		}
		t.Content[k.String()] = ContentRule{
			Value: r.Value, DestroyCost: r.DestroyCost, UnitCost: r.UnitCost, Solid: r.Solid, Container: r.Container,
		}
	}

	gc := genetic.DefaultConfig()
	w := genetic.DefaultWeights()
	t.Planner = Planner{
		ChromosomeLength: gc.ChromosomeLength,
		PopulationSize:   gc.PopulationSize,
		Generations:      gc.Generations,
		MutationRate:     gc.MutationRate,
		SeedLegalMoves:   gc.SeedLegalMoves,
		RepairAttempts:   8,
		Seed:             1,
		Weights:          Weights{Cost: w.Cost, Backtrack: w.Backtrack, Null: w.Null, Bonus: w.Bonus, Loiter: w.Loiter},
		Bonus:            []string{grid.Coin.String(), grid.Garbage.String(), grid.Tree.String()},
		Frontier:         frontier.DefaultOffsets(),
		Retry:            dispatch.DefaultSchedule(),
	}

	ac := agent.DefaultConfig()
	t.Agent = Agent{
		SenseRange:        ac.SenseRange,
		LocalRadius:       ac.LocalRadius,
		LineSenseCost:     ac.LineSenseCost,
		MinLocalSenseCost: ac.MinLocalSenseCost,
		PacingTicks:       ac.PacingTicks,
		PacingDelayMs:     int(ac.PacingDelay / time.Millisecond),
		MaxWaitTicks:      ac.MaxWaitTicks,
		RevisitPolicy:     string(ac.Revisit),
	}
	for _, k := range ac.Uninteresting {
		t.Agent.Uninteresting = append(t.Agent.Uninteresting, k.String())
	}
	return t
}

// Load reads path over Defaults: keys absent from the file keep their
// default value.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// LoadOrDefault is Load, except a missing file yields Defaults.
func LoadOrDefault(path string) (Tuning, error) {
	if path == "" {
		return Defaults(), nil
	}
	t, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	return t, err
}

func (t Tuning) Validate() error {
	if _, err := t.Catalog(); err != nil {
		return err
	}
	if err := t.WorldConfig().Validate(); err != nil {
		return err
	}
	if err := t.GeneticConfig().Validate(); err != nil {
		return err
	}
	if _, err := t.Evaluator(); err != nil {
		return err
	}
	if err := t.Planner.Frontier.Validate(); err != nil {
		return err
	}
	if err := t.Schedule().Validate(); err != nil {
		return err
	}
	_, err := t.AgentConfig()
	return err
}

// Catalog builds the terrain, weather and content rules. Kinds not named in
// the config have zero rules (impassable terrain, unscaled weather).
func (t Tuning) Catalog() (*grid.Catalog, error) {
	cat := &grid.Catalog{}
	for name, r := range t.Terrain {
		k, err := grid.ParseTerrain(name)
		if err != nil {
			return nil, fmt.Errorf("terrain: %w", err)
		}
		if r.BaseCost < 0 {
			return nil, fmt.Errorf("terrain %s: base_cost must be >= 0", name)
		}
		cat.Terrain[k] = grid.TerrainRule{BaseCost: r.BaseCost, Traversable: r.Traversable, Loiter: r.Loiter}
	}
	for name, pct := range t.Weather {
		w, err := grid.ParseWeather(name)
		if err != nil {
			return nil, fmt.Errorf("weather: %w", err)
		}
		if pct < 0 {
			return nil, fmt.Errorf("weather %s: percent must be >= 0", name)
		}
		cat.WeatherPercent[w] = pct
	}
	for name, r := range t.Content {
		k, err := grid.ParseInteractable(name)
		if err != nil {
			return nil, fmt.Errorf("content: %w", err)
		}
		cat.Content[k] = grid.ContentRule{
			Value: r.Value, DestroyCost: r.DestroyCost, UnitCost: r.UnitCost, Solid: r.Solid, Container: r.Container,
		}
	}
	return cat, nil
}

func (t Tuning) WorldConfig() world.Config {
	w := t.World
	return world.Config{
		Size:              w.Size,
		Seed:              w.Seed,
		TickRateHz:        w.TickRateHz,
		EnergyMax:         w.EnergyMax,
		EnergyStart:       w.EnergyStart,
		EnergyRegen:       w.EnergyRegen,
		WeatherEveryTicks: w.WeatherEveryTicks,
		BackpackCapacity:  w.BackpackCapacity,
		LineSenseCost:     w.LineSenseCost,
		LocalSenseCost:    w.LocalSenseCost,
		ContentDensity:    w.ContentDensity,
	}
}

func (t Tuning) GeneticConfig() genetic.Config {
	p := t.Planner
	return genetic.Config{
		ChromosomeLength: p.ChromosomeLength,
		PopulationSize:   p.PopulationSize,
		Generations:      p.Generations,
		MutationRate:     p.MutationRate,
		SeedLegalMoves:   p.SeedLegalMoves,
	}
}

func (t Tuning) Weights() genetic.Weights {
	w := t.Planner.Weights
	return genetic.Weights{Cost: w.Cost, Backtrack: w.Backtrack, Null: w.Null, Bonus: w.Bonus, Loiter: w.Loiter}
}

func (t Tuning) Evaluator() (*genetic.Evaluator, error) {
	cat, err := t.Catalog()
	if err != nil {
		return nil, err
	}
	w := t.Weights()
	if w.Cost < 0 || w.Backtrack < 0 || w.Null < 0 || w.Bonus < 0 || w.Loiter < 0 {
		return nil, fmt.Errorf("planner weights must be >= 0")
	}
	bonus, err := parseContents(t.Planner.Bonus)
	if err != nil {
		return nil, fmt.Errorf("planner.bonus: %w", err)
	}
	deposit, err := parseContents(t.Planner.Deposit)
	if err != nil {
		return nil, fmt.Errorf("planner.deposit: %w", err)
	}
	e := genetic.NewEvaluator(cat, w, bonus, deposit)
	if t.Planner.RepairAttempts > 0 {
		e.RepairAttempts = t.Planner.RepairAttempts
	}
	return e, nil
}

func (t Tuning) Schedule() dispatch.Schedule {
	return append(dispatch.Schedule(nil), t.Planner.Retry...)
}

// Orchestrator wires the evaluator, engine and retry schedule together.
func (t Tuning) Orchestrator(logger *log.Logger) (*dispatch.Orchestrator, error) {
	eval, err := t.Evaluator()
	if err != nil {
		return nil, err
	}
	eng, err := genetic.NewEngine(t.GeneticConfig(), eval)
	if err != nil {
		return nil, err
	}
	return dispatch.New(eng, t.Planner.Frontier, t.Schedule(), t.Planner.Seed, logger)
}

func (t Tuning) AgentConfig() (agent.Config, error) {
	a := t.Agent
	kinds, err := parseContents(a.Uninteresting)
	if err != nil {
		return agent.Config{}, fmt.Errorf("agent.uninteresting: %w", err)
	}
	cfg := agent.Config{
		SenseRange:        a.SenseRange,
		LocalRadius:       a.LocalRadius,
		LineSenseCost:     a.LineSenseCost,
		MinLocalSenseCost: a.MinLocalSenseCost,
		PacingTicks:       a.PacingTicks,
		PacingDelay:       time.Duration(a.PacingDelayMs) * time.Millisecond,
		MaxWaitTicks:      a.MaxWaitTicks,
		Revisit:           frontier.RevisitPolicy(a.RevisitPolicy),
		Uninteresting:     kinds,
	}
	return cfg, cfg.Validate()
}

func parseContents(names []string) ([]grid.Interactable, error) {
	out := make([]grid.Interactable, 0, len(names))
	for _, n := range names {
		k, err := grid.ParseInteractable(n)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}
