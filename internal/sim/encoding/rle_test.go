package encoding

import (
	"testing"

	"gridscout.ai/internal/sim/grid"
)

func TestRLE_RoundTrip(t *testing.T) {
	in := make([]uint64, 0, 200)
	in = append(in, 1, 1, 1, 2, 2, 3)
	for i := 0; i < 50; i++ {
		in = append(in, 7)
	}
	in = append(in, 9, 10, 10, 10, 1<<40)

	enc := EncodeRLE(in)
	out, err := DecodeRLE(enc, len(in))
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}
}

func TestRLE_LimitAndGarbage(t *testing.T) {
	enc := EncodeRLE([]uint64{4, 4, 4, 4})
	if _, err := DecodeRLE(enc, 3); err == nil {
		t.Fatalf("expected limit error")
	}
	if _, err := DecodeRLE("!!not base64", 10); err == nil {
		t.Fatalf("expected base64 error")
	}
	// a lone value without its run length
	if _, err := DecodeRLE("Bw==", 10); err == nil {
		t.Fatalf("expected truncated pair error")
	}
}

func TestMap_RoundTrip(t *testing.T) {
	m := grid.NewMap(6)
	m.Set(grid.Pos{Row: 0, Col: 0}, grid.Cell{Terrain: grid.Grass})
	m.Set(grid.Pos{Row: 0, Col: 1}, grid.Cell{Terrain: grid.Grass})
	m.Set(grid.Pos{Row: 2, Col: 3}, grid.Cell{Terrain: grid.Hill, Elevation: 7, Content: grid.Coin, Amount: 3})
	m.Set(grid.Pos{Row: 5, Col: 5}, grid.Cell{Terrain: grid.DeepWater, Elevation: -2})
	m.Set(grid.Pos{Row: 4, Col: 1}, grid.Cell{Terrain: grid.Teleport, Content: grid.Bank, Amount: 500})

	cells, elev := EncodeMap(m)
	out, err := DecodeMap(6, cells, elev)
	if err != nil {
		t.Fatalf("DecodeMap: %v", err)
	}
	if out.ObservedCount() != 5 {
		t.Fatalf("expected 5 observed cells, got %d", out.ObservedCount())
	}
	m.Each(func(p grid.Pos, want grid.Cell) {
		if want.Amount > maxAmount {
			want.Amount = maxAmount
		}
		got, ok := out.Cell(p)
		if !ok || got != want {
			t.Fatalf("cell %s: got %+v (%v) want %+v", p, got, ok, want)
		}
	})
	if out.Observed(grid.Pos{Row: 1, Col: 1}) {
		t.Fatalf("unobserved cell came back observed")
	}
}

func TestDecodeMap_Rejects(t *testing.T) {
	m := grid.NewMap(3)
	cells, elev := EncodeMap(m)
	if _, err := DecodeMap(4, cells, elev); err == nil {
		t.Fatalf("expected size mismatch error")
	}
	bad := EncodeRLE([]uint64{0x1234, 0, 0, 0, 0, 0, 0, 0, 0})
	if _, err := DecodeMap(3, bad, elev); err == nil {
		t.Fatalf("expected bad cell word error")
	}
}
