package grid

// Map is an observed-map snapshot: a square grid of cells where unobserved
// cells are absent. A Map handed to planners is treated as immutable; writers
// build a fresh one (or Clone) and publish the new pointer.
type Map struct {
	size  int
	cells []Cell
	seen  []bool
}

func NewMap(size int) *Map {
	if size < 0 {
		size = 0
	}
	return &Map{
		size:  size,
		cells: make([]Cell, size*size),
		seen:  make([]bool, size*size),
	}
}

func (m *Map) Size() int {
	if m == nil {
		return 0
	}
	return m.size
}

func (m *Map) InBounds(p Pos) bool {
	if m == nil {
		return false
	}
	return p.Row >= 0 && p.Col >= 0 && p.Row < m.size && p.Col < m.size
}

// Cell returns the observed cell at p. ok is false when p is out of bounds
// or has not been observed yet.
func (m *Map) Cell(p Pos) (Cell, bool) {
	if !m.InBounds(p) {
		return Cell{}, false
	}
	i := p.Row*m.size + p.Col
	if !m.seen[i] {
		return Cell{}, false
	}
	return m.cells[i], true
}

func (m *Map) Observed(p Pos) bool {
	_, ok := m.Cell(p)
	return ok
}

// Set records c as observed at p. Out-of-bounds writes are ignored.
func (m *Map) Set(p Pos, c Cell) {
	if !m.InBounds(p) {
		return
	}
	i := p.Row*m.size + p.Col
	m.cells[i] = c
	m.seen[i] = true
}

// Forget marks p as unobserved.
func (m *Map) Forget(p Pos) {
	if !m.InBounds(p) {
		return
	}
	i := p.Row*m.size + p.Col
	m.cells[i] = Cell{}
	m.seen[i] = false
}

func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	out := &Map{
		size:  m.size,
		cells: make([]Cell, len(m.cells)),
		seen:  make([]bool, len(m.seen)),
	}
	copy(out.cells, m.cells)
	copy(out.seen, m.seen)
	return out
}

// ObservedCount returns the number of observed cells.
func (m *Map) ObservedCount() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, s := range m.seen {
		if s {
			n++
		}
	}
	return n
}

// Clamp pulls p inside the map bounds.
func (m *Map) Clamp(p Pos) Pos {
	return ClampPos(p, m.Size())
}

func ClampPos(p Pos, size int) Pos {
	if size <= 0 {
		return Pos{}
	}
	if p.Row < 0 {
		p.Row = 0
	}
	if p.Col < 0 {
		p.Col = 0
	}
	if p.Row >= size {
		p.Row = size - 1
	}
	if p.Col >= size {
		p.Col = size - 1
	}
	return p
}

// Each calls fn for every observed cell in row-major order.
func (m *Map) Each(fn func(Pos, Cell)) {
	if m == nil {
		return
	}
	for i, s := range m.seen {
		if !s {
			continue
		}
		fn(Pos{Row: i / m.size, Col: i % m.size}, m.cells[i])
	}
}
