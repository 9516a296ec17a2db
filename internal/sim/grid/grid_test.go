package grid

import "testing"

func TestMap_CellBoundsAndObservation(t *testing.T) {
	m := NewMap(4)
	if _, ok := m.Cell(Pos{Row: 1, Col: 1}); ok {
		t.Fatalf("fresh map should have no observed cells")
	}
	m.Set(Pos{Row: 1, Col: 1}, Cell{Terrain: Grass, Elevation: 2})
	c, ok := m.Cell(Pos{Row: 1, Col: 1})
	if !ok || c.Terrain != Grass || c.Elevation != 2 {
		t.Fatalf("cell mismatch: %+v ok=%v", c, ok)
	}
	for _, p := range []Pos{{Row: -1}, {Col: -1}, {Row: 4}, {Col: 4}} {
		if _, ok := m.Cell(p); ok {
			t.Fatalf("out of bounds %v reported observed", p)
		}
		m.Set(p, Cell{Terrain: Grass}) // must not panic
	}
	if got := m.ObservedCount(); got != 1 {
		t.Fatalf("ObservedCount=%d want 1", got)
	}
}

func TestMap_CloneIsIndependent(t *testing.T) {
	m := NewMap(3)
	m.Set(Pos{}, Cell{Terrain: Sand})
	cp := m.Clone()
	cp.Set(Pos{}, Cell{Terrain: Lava})
	cp.Set(Pos{Row: 2, Col: 2}, Cell{Terrain: Grass})
	if c, _ := m.Cell(Pos{}); c.Terrain != Sand {
		t.Fatalf("clone write leaked into original: %v", c.Terrain)
	}
	if m.Observed(Pos{Row: 2, Col: 2}) {
		t.Fatalf("clone observation leaked into original")
	}
}

func TestClampPos(t *testing.T) {
	if got := ClampPos(Pos{Row: -5, Col: 12}, 10); got != (Pos{Row: 0, Col: 9}) {
		t.Fatalf("ClampPos=%v", got)
	}
	if got := ClampPos(Pos{Row: 3, Col: 3}, 0); got != (Pos{}) {
		t.Fatalf("ClampPos on empty map=%v", got)
	}
}

func TestCatalog_StepCost(t *testing.T) {
	c := DefaultCatalog()
	flat := c.StepCost(Cell{Terrain: Grass}, Cell{Terrain: Grass}, Sunny)
	if flat != 1 {
		t.Fatalf("flat grass cost=%d want 1", flat)
	}
	up := c.StepCost(Cell{Terrain: Grass, Elevation: 1}, Cell{Terrain: Grass, Elevation: 4}, Sunny)
	if up != 1+9 {
		t.Fatalf("climb cost=%d want 10", up)
	}
	down := c.StepCost(Cell{Terrain: Grass, Elevation: 4}, Cell{Terrain: Grass, Elevation: 1}, Sunny)
	if down != 1 {
		t.Fatalf("descent should not be charged, got %d", down)
	}
	if got := c.MoveCost(Hill, TropicalMonsoon); got != 8 {
		t.Fatalf("monsoon hill cost=%d want 8", got)
	}
}

func TestParseNames(t *testing.T) {
	for _, tr := range Terrains() {
		got, err := ParseTerrain(tr.String())
		if err != nil || got != tr {
			t.Fatalf("ParseTerrain(%s)=%v,%v", tr, got, err)
		}
	}
	if _, err := ParseInteractable("DRAGON"); err == nil {
		t.Fatalf("expected unknown content error")
	}
	if h, err := ParseHeading("LEFT"); err != nil || h != HeadingLeft {
		t.Fatalf("ParseHeading=%v,%v", h, err)
	}
}
