package grid

import "fmt"

// Terrain is the tile type of an observed cell.
type Terrain uint8

const (
	DeepWater Terrain = iota
	ShallowWater
	Sand
	Grass
	Street
	Hill
	Mountain
	Snow
	Lava
	Wall
	Teleport

	terrainCount
)

var terrainNames = [terrainCount]string{
	DeepWater:    "DEEP_WATER",
	ShallowWater: "SHALLOW_WATER",
	Sand:         "SAND",
	Grass:        "GRASS",
	Street:       "STREET",
	Hill:         "HILL",
	Mountain:     "MOUNTAIN",
	Snow:         "SNOW",
	Lava:         "LAVA",
	Wall:         "WALL",
	Teleport:     "TELEPORT",
}

func (t Terrain) String() string {
	if t < terrainCount {
		return terrainNames[t]
	}
	return fmt.Sprintf("TERRAIN(%d)", uint8(t))
}

func (t Terrain) Valid() bool { return t < terrainCount }

func ParseTerrain(s string) (Terrain, error) {
	for i, n := range terrainNames {
		if n == s {
			return Terrain(i), nil
		}
	}
	return 0, fmt.Errorf("unknown terrain %q", s)
}

// Terrains lists every terrain kind in declaration order.
func Terrains() []Terrain {
	out := make([]Terrain, 0, terrainCount)
	for t := Terrain(0); t < terrainCount; t++ {
		out = append(out, t)
	}
	return out
}

// Interactable is the content sitting on a cell.
type Interactable uint8

const (
	NoContent Interactable = iota
	Coin
	Garbage
	Tree
	Rock
	Fish
	Bush
	Fire
	Bin
	Crate
	Bank

	contentCount
)

var contentNames = [contentCount]string{
	NoContent: "NONE",
	Coin:      "COIN",
	Garbage:   "GARBAGE",
	Tree:      "TREE",
	Rock:      "ROCK",
	Fish:      "FISH",
	Bush:      "BUSH",
	Fire:      "FIRE",
	Bin:       "BIN",
	Crate:     "CRATE",
	Bank:      "BANK",
}

func (c Interactable) String() string {
	if c < contentCount {
		return contentNames[c]
	}
	return fmt.Sprintf("CONTENT(%d)", uint8(c))
}

func (c Interactable) Valid() bool { return c < contentCount }

// Interactables lists every content kind, NoContent included.
func Interactables() []Interactable {
	out := make([]Interactable, 0, contentCount)
	for k := Interactable(0); k < contentCount; k++ {
		out = append(out, k)
	}
	return out
}

func ParseInteractable(s string) (Interactable, error) {
	for i, n := range contentNames {
		if n == s {
			return Interactable(i), nil
		}
	}
	return 0, fmt.Errorf("unknown content %q", s)
}

// Weather is the current environmental condition; it scales traversal cost.
type Weather uint8

const (
	Sunny Weather = iota
	Rainy
	Foggy
	TropicalMonsoon
	TrentinoSnow

	weatherCount
)

var weatherNames = [weatherCount]string{
	Sunny:           "SUNNY",
	Rainy:           "RAINY",
	Foggy:           "FOGGY",
	TropicalMonsoon: "TROPICAL_MONSOON",
	TrentinoSnow:    "TRENTINO_SNOW",
}

func (w Weather) String() string {
	if w < weatherCount {
		return weatherNames[w]
	}
	return fmt.Sprintf("WEATHER(%d)", uint8(w))
}

func ParseWeather(s string) (Weather, error) {
	for i, n := range weatherNames {
		if n == s {
			return Weather(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weather %q", s)
}

// WeatherCycle lists every weather in declaration order.
func WeatherCycle() []Weather {
	out := make([]Weather, 0, weatherCount)
	for w := Weather(0); w < weatherCount; w++ {
		out = append(out, w)
	}
	return out
}

// Cell is one observed tile.
type Cell struct {
	Terrain   Terrain
	Elevation int
	Content   Interactable
	Amount    int
}

// Pos is a (row, col) grid coordinate.
type Pos struct {
	Row int
	Col int
}

func (p Pos) Add(dr, dc int) Pos { return Pos{Row: p.Row + dr, Col: p.Col + dc} }

func (p Pos) String() string { return fmt.Sprintf("(%d,%d)", p.Row, p.Col) }

func Manhattan(a, b Pos) int {
	return abs(a.Row-b.Row) + abs(a.Col-b.Col)
}

// Heading is the movement primitive understood by the host.
type Heading uint8

const (
	HeadingUp Heading = iota
	HeadingDown
	HeadingLeft
	HeadingRight
)

var headingNames = [...]string{"UP", "DOWN", "LEFT", "RIGHT"}

func (h Heading) String() string {
	if int(h) < len(headingNames) {
		return headingNames[h]
	}
	return fmt.Sprintf("HEADING(%d)", uint8(h))
}

func ParseHeading(s string) (Heading, error) {
	for i, n := range headingNames {
		if n == s {
			return Heading(i), nil
		}
	}
	return 0, fmt.Errorf("unknown heading %q", s)
}

func (h Heading) Offset() (int, int) {
	switch h {
	case HeadingUp:
		return -1, 0
	case HeadingDown:
		return 1, 0
	case HeadingLeft:
		return 0, -1
	case HeadingRight:
		return 0, 1
	}
	return 0, 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
