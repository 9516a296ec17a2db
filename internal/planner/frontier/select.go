package frontier

import (
	"fmt"

	"gridscout.ai/internal/sim/grid"
)

// Unexplored returns the directions whose raw target is inside the map and
// not yet observed. When there is none, every direction is returned.
func Unexplored(m *grid.Map, origin grid.Pos, o Offsets) []Direction {
	var out []Direction
	for _, d := range All() {
		p := o.Raw(origin, d)
		if !m.InBounds(p) {
			continue
		}
		if !m.Observed(p) {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return All()
	}
	return out
}

// Reachable returns the directions whose raw target is observed and walkable.
func Reachable(m *grid.Map, origin grid.Pos, o Offsets, cat *grid.Catalog) []Direction {
	return filter(m, origin, o, func(_ grid.Pos, c grid.Cell) bool { return cat.Walkable(c) })
}

func filter(m *grid.Map, origin grid.Pos, o Offsets, keep func(grid.Pos, grid.Cell) bool) []Direction {
	var out []Direction
	for _, d := range All() {
		p := o.Raw(origin, d)
		c, ok := m.Cell(p)
		if !ok {
			continue
		}
		if keep(p, c) {
			out = append(out, d)
		}
	}
	return out
}

// RevisitPolicy decides which constraint a revisit search gives up first when
// no direction satisfies both. The named constraint is the one kept longest.
type RevisitPolicy string

const (
	// VisitedFirst keeps avoiding visited cells and drops the loiter
	// exclusion first.
	VisitedFirst RevisitPolicy = "visited_first"
	// LoiterFirst keeps avoiding loiter terrain and drops the visited
	// exclusion first.
	LoiterFirst RevisitPolicy = "loiter_first"
)

func (p RevisitPolicy) Validate() error {
	switch p {
	case VisitedFirst, LoiterFirst:
		return nil
	}
	return fmt.Errorf("unknown revisit policy %q", string(p))
}

// Revisit is the fallback direction set used once plain frontier rounds have
// failed: walkable targets that were not visited and are not loiter terrain,
// relaxed one constraint at a time in the order set by policy, then any
// walkable target, then every direction.
func Revisit(m *grid.Map, origin grid.Pos, o Offsets, cat *grid.Catalog, visited func(grid.Pos) bool, policy RevisitPolicy) []Direction {
	if visited == nil {
		visited = func(grid.Pos) bool { return false }
	}
	fresh := func(p grid.Pos, c grid.Cell) bool { return cat.Walkable(c) && !visited(p) }
	dry := func(_ grid.Pos, c grid.Cell) bool { return cat.Walkable(c) && !cat.IsLoiter(c.Terrain) }
	both := func(p grid.Pos, c grid.Cell) bool { return fresh(p, c) && dry(p, c) }

	steps := []func(grid.Pos, grid.Cell) bool{both, fresh, dry}
	if policy == LoiterFirst {
		steps = []func(grid.Pos, grid.Cell) bool{both, dry, fresh}
	}
	for _, keep := range steps {
		if out := filter(m, origin, o, keep); len(out) > 0 {
			return out
		}
	}
	if out := Reachable(m, origin, o, cat); len(out) > 0 {
		return out
	}
	return All()
}
