package grid

// TerrainRule describes how a terrain kind is traversed.
type TerrainRule struct {
	BaseCost    int
	Traversable bool
	// Loiter marks cheap terrain the planner is penalized for overusing.
	Loiter bool
}

// ContentRule describes an interactable kind.
type ContentRule struct {
	// Value is the one-time bonus subtracted from a plan's cost when the
	// planner routes over the cell.
	Value int
	// DestroyCost is the energy spent clearing the content.
	DestroyCost int
	// UnitCost is the energy per unit spent depositing this content.
	UnitCost int
	// Solid content blocks stepping until destroyed.
	Solid bool
	// Container content accepts deposits.
	Container bool
}

// Catalog bundles terrain, weather and content rules. It is read-only after
// construction and safe for concurrent use.
type Catalog struct {
	Terrain [terrainCount]TerrainRule
	// WeatherPercent scales terrain base cost per weather (100 = unchanged).
	WeatherPercent [weatherCount]int
	Content        [contentCount]ContentRule
}

func DefaultCatalog() *Catalog {
	c := &Catalog{}
	c.Terrain[DeepWater] = TerrainRule{BaseCost: 0, Traversable: false}
	c.Terrain[ShallowWater] = TerrainRule{BaseCost: 1, Traversable: true, Loiter: true}
	c.Terrain[Sand] = TerrainRule{BaseCost: 2, Traversable: true}
	c.Terrain[Grass] = TerrainRule{BaseCost: 1, Traversable: true}
	c.Terrain[Street] = TerrainRule{BaseCost: 1, Traversable: true}
	c.Terrain[Hill] = TerrainRule{BaseCost: 5, Traversable: true}
	c.Terrain[Mountain] = TerrainRule{BaseCost: 8, Traversable: true}
	c.Terrain[Snow] = TerrainRule{BaseCost: 3, Traversable: true}
	c.Terrain[Lava] = TerrainRule{BaseCost: 0, Traversable: false}
	c.Terrain[Wall] = TerrainRule{BaseCost: 0, Traversable: false}
	c.Terrain[Teleport] = TerrainRule{BaseCost: 0, Traversable: true}

	c.WeatherPercent[Sunny] = 100
	c.WeatherPercent[Rainy] = 120
	c.WeatherPercent[Foggy] = 110
	c.WeatherPercent[TropicalMonsoon] = 150
	c.WeatherPercent[TrentinoSnow] = 140

	c.Content[Coin] = ContentRule{Value: 5, DestroyCost: 1}
	c.Content[Garbage] = ContentRule{Value: 4, DestroyCost: 1, UnitCost: 1}
	c.Content[Tree] = ContentRule{Value: 3, DestroyCost: 4, Solid: true}
	c.Content[Rock] = ContentRule{Value: 2, DestroyCost: 6, Solid: true}
	c.Content[Fish] = ContentRule{Value: 2, DestroyCost: 2}
	c.Content[Bush] = ContentRule{Value: 1, DestroyCost: 2}
	c.Content[Fire] = ContentRule{DestroyCost: 5}
	c.Content[Bin] = ContentRule{Value: 3, Solid: true, Container: true}
	c.Content[Crate] = ContentRule{Value: 3, Solid: true, Container: true}
	c.Content[Bank] = ContentRule{Value: 6, Solid: true, Container: true}
	return c
}

func (c *Catalog) TerrainRule(t Terrain) TerrainRule {
	if c == nil || !t.Valid() {
		return TerrainRule{}
	}
	return c.Terrain[t]
}

func (c *Catalog) ContentRule(k Interactable) ContentRule {
	if c == nil || !k.Valid() {
		return ContentRule{}
	}
	return c.Content[k]
}

// Walkable reports whether the terrain of cell allows entering it.
func (c *Catalog) Walkable(cell Cell) bool {
	return c.TerrainRule(cell.Terrain).Traversable
}

func (c *Catalog) IsLoiter(t Terrain) bool {
	return c.TerrainRule(t).Loiter
}

// MoveCost is the weather-adjusted cost of entering terrain t.
func (c *Catalog) MoveCost(t Terrain, w Weather) int {
	base := c.TerrainRule(t).BaseCost
	pct := 100
	if c != nil && w < weatherCount && c.WeatherPercent[w] > 0 {
		pct = c.WeatherPercent[w]
	}
	return (base*pct + 50) / 100
}

// StepCost is TerrainCost for one step from -> to: the weather-adjusted base
// cost of the destination plus the squared elevation gain when climbing.
func (c *Catalog) StepCost(from, to Cell, w Weather) int {
	cost := c.MoveCost(to.Terrain, w)
	if to.Elevation > from.Elevation {
		d := to.Elevation - from.Elevation
		cost += d * d
	}
	return cost
}
