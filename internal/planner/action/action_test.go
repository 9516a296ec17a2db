package action

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridscout.ai/internal/sim/grid"
)

func all() []Action {
	return []Action{NoOp, Move(Up), Move(Down), Move(Left), Move(Right)}
}

func TestIsReverseOf_CardinalPairsOnly(t *testing.T) {
	pairs := map[Direction]Direction{Up: Down, Down: Up, Left: Right, Right: Left}
	for _, a := range all() {
		for _, b := range all() {
			want := !a.IsNoOp() && pairs[a.Direction()] == b.Direction()
			assert.Equal(t, want, a.IsReverseOf(b), "%s vs %s", a, b)
			// symmetric
			assert.Equal(t, a.IsReverseOf(b), b.IsReverseOf(a), "%s vs %s", a, b)
		}
		assert.False(t, a.IsReverseOf(a), "%s reverses itself", a)
		assert.False(t, NoOp.IsReverseOf(a))
	}
}

func TestIsReverseOf_IgnoresFlags(t *testing.T) {
	a := Move(Up).WithFlags(true, false)
	b := Move(Down).WithFlags(false, true)
	assert.True(t, a.IsReverseOf(b))
}

func TestOffsetMatchesHeading(t *testing.T) {
	for _, a := range Moves() {
		h, ok := a.Heading()
		require.True(t, ok)
		dr, dc := a.Offset()
		hr, hc := h.Offset()
		assert.Equal(t, dr, hr)
		assert.Equal(t, dc, hc)
		assert.Equal(t, a, FromHeading(h))
	}
	_, ok := NoOp.Heading()
	assert.False(t, ok)
	dr, dc := NoOp.Offset()
	assert.Zero(t, dr)
	assert.Zero(t, dc)
	assert.Equal(t, grid.HeadingUp, must(Move(Up).Heading()))
}

func must(h grid.Heading, ok bool) grid.Heading {
	if !ok {
		panic("no heading")
	}
	return h
}

func TestNoOpNeverCarriesFlags(t *testing.T) {
	n := NoOp.WithFlags(true, true)
	assert.True(t, n.IsNoOp())
	assert.False(t, n.Destroy())
	assert.False(t, n.Deposit())

	m := Move(Left).WithFlags(true, false)
	assert.True(t, m.Destroy())
	assert.Equal(t, Move(Left), m.Plain())
	assert.True(t, m.Same(Move(Left)))
}

func TestRandomExcept_NeverReturnsInput(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	seen := map[Direction]int{}
	for _, a := range all() {
		for i := 0; i < 200; i++ {
			b := RandomExcept(r, a)
			require.False(t, a.Same(b), "RandomExcept(%s) returned %s", a, b)
			seen[b.Direction()]++
		}
	}
	assert.Len(t, seen, 5)
}

func TestMoveRejectsInvalidDirection(t *testing.T) {
	assert.True(t, Move(Direction(42)).IsNoOp())
}
