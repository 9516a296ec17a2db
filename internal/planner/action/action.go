// Package action is the gene vocabulary of the planner: four cardinal moves
// and a no-op. Moves may carry destroy/deposit flags; NoOp never does.
package action

import (
	"math/rand/v2"

	"gridscout.ai/internal/sim/grid"
)

type Direction uint8

const (
	None Direction = iota
	Up
	Down
	Left
	Right
)

var directionNames = [...]string{"NOOP", "UP", "DOWN", "LEFT", "RIGHT"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return "INVALID"
}

// Action is a tagged value. The zero value is NoOp.
type Action struct {
	dir     Direction
	destroy bool
	deposit bool
}

var NoOp = Action{}

func Move(d Direction) Action {
	if d > Right {
		return NoOp
	}
	return Action{dir: d}
}

func (a Action) Direction() Direction { return a.dir }
func (a Action) IsNoOp() bool         { return a.dir == None }
func (a Action) Destroy() bool        { return a.destroy }
func (a Action) Deposit() bool        { return a.deposit }

// WithFlags returns a copy with the arrival flags set. Flags on NoOp are dropped.
func (a Action) WithFlags(destroy, deposit bool) Action {
	if a.IsNoOp() {
		return NoOp
	}
	a.destroy = destroy
	a.deposit = deposit
	return a
}

// Plain strips the arrival flags.
func (a Action) Plain() Action { return Action{dir: a.dir} }

// Same reports whether a and b move the same way, ignoring flags.
func (a Action) Same(b Action) bool { return a.dir == b.dir }

func (a Action) Offset() (int, int) {
	switch a.dir {
	case Up:
		return -1, 0
	case Down:
		return 1, 0
	case Left:
		return 0, -1
	case Right:
		return 0, 1
	}
	return 0, 0
}

// IsReverseOf is true only for the cardinal opposite pairs.
func (a Action) IsReverseOf(b Action) bool {
	switch a.dir {
	case Up:
		return b.dir == Down
	case Down:
		return b.dir == Up
	case Left:
		return b.dir == Right
	case Right:
		return b.dir == Left
	}
	return false
}

// Heading maps a move onto the host movement primitive. ok is false for NoOp.
func (a Action) Heading() (grid.Heading, bool) {
	switch a.dir {
	case Up:
		return grid.HeadingUp, true
	case Down:
		return grid.HeadingDown, true
	case Left:
		return grid.HeadingLeft, true
	case Right:
		return grid.HeadingRight, true
	}
	return 0, false
}

func FromHeading(h grid.Heading) Action {
	switch h {
	case grid.HeadingUp:
		return Move(Up)
	case grid.HeadingDown:
		return Move(Down)
	case grid.HeadingLeft:
		return Move(Left)
	case grid.HeadingRight:
		return Move(Right)
	}
	return NoOp
}

func (a Action) String() string {
	s := a.dir.String()
	if a.destroy {
		s += "+D"
	}
	if a.deposit {
		s += "+P"
	}
	return s
}

// Random samples uniformly among the five actions.
func Random(r *rand.Rand) Action {
	return Action{dir: Direction(r.IntN(5))}
}

// RandomExcept samples uniformly among the four actions that differ from a.
func RandomExcept(r *rand.Rand, a Action) Action {
	d := Direction(r.IntN(4))
	if d >= a.dir {
		d++
	}
	return Action{dir: d}
}

// Moves lists the four cardinal moves.
func Moves() []Action {
	return []Action{Move(Up), Move(Down), Move(Left), Move(Right)}
}

// Clone copies a sequence.
func Clone(in []Action) []Action {
	out := make([]Action, len(in))
	copy(out, in)
	return out
}
