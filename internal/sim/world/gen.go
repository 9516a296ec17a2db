package world

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"gridscout.ai/internal/sim/grid"
)

const (
	heightScale   = 0.07
	moistureScale = 0.11
	maxElevation  = 9
)

// Generate builds the full map for cfg. It is a pure function of the config:
// the same seed always yields the same world.
func Generate(cfg Config) *grid.Map {
	height := opensimplex.New(cfg.Seed)
	moisture := opensimplex.New(cfg.Seed ^ 0x5deece66d)
	m := grid.NewMap(cfg.Size)
	permille := uint64(cfg.ContentDensity*1000 + 0.5)

	for r := 0; r < cfg.Size; r++ {
		for c := 0; c < cfg.Size; c++ {
			h := height.Eval2(float64(c)*heightScale, float64(r)*heightScale)
			wet := moisture.Eval2(float64(c)*moistureScale, float64(r)*moistureScale)
			cell := grid.Cell{
				Terrain:   terrainAt(h, wet, hash2(cfg.Seed, r, c)),
				Elevation: elevationAt(h),
			}
			roll := hash2(cfg.Seed^0x2545f491, r, c)
			if roll%1000 < permille {
				cell.Content, cell.Amount = contentFor(cell.Terrain, roll/1000)
			}
			m.Set(grid.Pos{Row: r, Col: c}, cell)
		}
	}

	start := cfg.Start()
	spawn, _ := m.Cell(start)
	spawn.Terrain = grid.Grass
	spawn.Content, spawn.Amount = grid.NoContent, 0
	m.Set(start, spawn)
	return m
}

// terrainAt bands the height noise; moisture splits the flat bands.
func terrainAt(h, wet float64, roll uint64) grid.Terrain {
	switch {
	case h < -0.45:
		return grid.DeepWater
	case h < -0.3:
		return grid.ShallowWater
	case h < -0.2:
		return grid.Sand
	case h < 0.25:
		switch {
		case wet < -0.55:
			return grid.Lava
		case wet > 0.6:
			return grid.Street
		case roll%1000 < 8:
			return grid.Wall
		case roll%1000 < 10:
			return grid.Teleport
		}
		return grid.Grass
	case h < 0.45:
		return grid.Hill
	case h < 0.6:
		return grid.Mountain
	}
	return grid.Snow
}

func elevationAt(h float64) int {
	if h < -0.2 {
		return 0
	}
	e := int((h + 0.2) / 1.2 * maxElevation)
	if e > maxElevation {
		e = maxElevation
	}
	return e
}

type spawnRule struct {
	kind   grid.Interactable
	weight uint64
	amount int
}

var (
	waterContent = []spawnRule{{grid.Fish, 1, 1}}
	landContent  = []spawnRule{
		{grid.Coin, 6, 3},
		{grid.Garbage, 5, 2},
		{grid.Tree, 4, 1},
		{grid.Bush, 3, 1},
		{grid.Rock, 3, 1},
		{grid.Fire, 1, 1},
		{grid.Bin, 1, 0},
		{grid.Crate, 1, 0},
	}
	highContent = []spawnRule{{grid.Rock, 3, 1}, {grid.Coin, 1, 2}}
)

func contentFor(t grid.Terrain, roll uint64) (grid.Interactable, int) {
	var rules []spawnRule
	switch t {
	case grid.ShallowWater, grid.DeepWater:
		rules = waterContent
	case grid.Sand, grid.Grass, grid.Street:
		rules = landContent
	case grid.Hill, grid.Mountain, grid.Snow:
		rules = highContent
	default:
		return grid.NoContent, 0
	}
	total := uint64(0)
	for _, r := range rules {
		total += r.weight
	}
	pick := roll % total
	for _, r := range rules {
		if pick < r.weight {
			amount := r.amount
			if amount > 1 {
				amount = 1 + int((roll/total)%uint64(amount))
			}
			return r.kind, amount
		}
		pick -= r.weight
	}
	return grid.NoContent, 0
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash2(seed int64, r, c int) uint64 {
	ur := uint64(uint32(int32(r)))
	uc := uint64(uint32(int32(c)))
	return mix64(uint64(seed) ^ (ur * 0x9e3779b97f4a7c15) ^ (uc * 0xbf58476d1ce4e5b9))
}
