// Package frontier picks the compass directions a planning episode searches
// toward: cardinals at long range, diagonals at short range.
package frontier

import (
	"fmt"

	"gridscout.ai/internal/sim/grid"
)

type Direction uint8

const (
	Down Direction = iota
	DownRight
	Right
	UpRight
	Up
	UpLeft
	Left
	DownLeft
)

var directionNames = [...]string{"DOWN", "DOWN_RIGHT", "RIGHT", "UP_RIGHT", "UP", "UP_LEFT", "LEFT", "DOWN_LEFT"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("DIRECTION(%d)", uint8(d))
}

func (d Direction) Valid() bool { return int(d) < len(directionNames) }

func ParseDirection(s string) (Direction, error) {
	for i, n := range directionNames {
		if n == s {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// All returns the eight directions in sweep order.
func All() []Direction {
	return []Direction{Down, DownRight, Right, UpRight, Up, UpLeft, Left, DownLeft}
}

func (d Direction) IsCardinal() bool {
	return d == Down || d == Right || d == Up || d == Left
}

// Heading is the sensing heading of a cardinal direction.
func (d Direction) Heading() (grid.Heading, bool) {
	switch d {
	case Down:
		return grid.HeadingDown, true
	case Right:
		return grid.HeadingRight, true
	case Up:
		return grid.HeadingUp, true
	case Left:
		return grid.HeadingLeft, true
	}
	return 0, false
}

func (d Direction) unit() (int, int) {
	switch d {
	case Down:
		return 1, 0
	case DownRight:
		return 1, 1
	case Right:
		return 0, 1
	case UpRight:
		return -1, 1
	case Up:
		return -1, 0
	case UpLeft:
		return -1, -1
	case Left:
		return 0, -1
	case DownLeft:
		return 1, -1
	}
	return 0, 0
}

// Offsets holds the search distances per direction class.
type Offsets struct {
	Cardinal int `yaml:"cardinal"`
	Diagonal int `yaml:"diagonal"`
}

func DefaultOffsets() Offsets { return Offsets{Cardinal: 8, Diagonal: 4} }

func (o Offsets) Validate() error {
	if o.Cardinal < 1 || o.Diagonal < 1 {
		return fmt.Errorf("frontier offsets must be >= 1 (got cardinal=%d diagonal=%d)", o.Cardinal, o.Diagonal)
	}
	return nil
}

func (o Offsets) Offset(d Direction) (int, int) {
	dr, dc := d.unit()
	k := o.Diagonal
	if d.IsCardinal() {
		k = o.Cardinal
	}
	return dr * k, dc * k
}

// Raw is origin plus the direction offset, possibly out of bounds.
func (o Offsets) Raw(origin grid.Pos, d Direction) grid.Pos {
	return origin.Add(o.Offset(d))
}

// Target is the destination searched for d, clamped to the map.
func (o Offsets) Target(origin grid.Pos, d Direction, size int) grid.Pos {
	return grid.ClampPos(o.Raw(origin, d), size)
}
