package encoding

import (
	"fmt"

	"gridscout.ai/internal/sim/grid"
)

// Cell word layout: bit 15 observed, bits 11-14 terrain, bits 7-10 content,
// bits 0-6 amount (capped at 127). Unobserved cells pack to 0.
const (
	observedBit  = 1 << 15
	terrainShift = 11
	contentShift = 7
	nibble       = 0xF
	maxAmount    = 0x7F
)

func PackCell(c grid.Cell) uint64 {
	amount := c.Amount
	if amount < 0 {
		amount = 0
	}
	if amount > maxAmount {
		amount = maxAmount
	}
	return observedBit | uint64(c.Terrain&nibble)<<terrainShift | uint64(c.Content&nibble)<<contentShift | uint64(amount)
}

// UnpackCell reverses PackCell; ok is false for unobserved words.
func UnpackCell(w uint64) (grid.Cell, bool, error) {
	if w == 0 {
		return grid.Cell{}, false, nil
	}
	if w&observedBit == 0 || w > 0xFFFF {
		return grid.Cell{}, false, fmt.Errorf("bad cell word %#x", w)
	}
	c := grid.Cell{
		Terrain: grid.Terrain((w >> terrainShift) & nibble),
		Content: grid.Interactable((w >> contentShift) & nibble),
		Amount:  int(w & maxAmount),
	}
	if !c.Terrain.Valid() || !c.Content.Valid() {
		return grid.Cell{}, false, fmt.Errorf("bad cell word %#x", w)
	}
	return c, true, nil
}

func zigzag(v int) uint64   { return uint64((v << 1) ^ (v >> 63)) }
func unzigzag(u uint64) int { return int(u>>1) ^ -int(u&1) }

// EncodeMap run-length encodes the packed cells and elevations of m in
// row-major order.
func EncodeMap(m *grid.Map) (cells, elev string) {
	n := m.Size()
	words := make([]uint64, n*n)
	heights := make([]uint64, n*n)
	m.Each(func(p grid.Pos, c grid.Cell) {
		i := p.Row*n + p.Col
		words[i] = PackCell(c)
		heights[i] = zigzag(c.Elevation)
	})
	return EncodeRLE(words), EncodeRLE(heights)
}

// DecodeMap rebuilds a map of the given size from EncodeMap output.
func DecodeMap(size int, cells, elev string) (*grid.Map, error) {
	if size < 0 || size > 4096 {
		return nil, fmt.Errorf("map size %d out of range", size)
	}
	total := size * size
	words, err := DecodeRLE(cells, total)
	if err != nil {
		return nil, fmt.Errorf("cells: %w", err)
	}
	heights, err := DecodeRLE(elev, total)
	if err != nil {
		return nil, fmt.Errorf("elevations: %w", err)
	}
	if len(words) != total || len(heights) != total {
		return nil, fmt.Errorf("expected %d cells, got %d cells and %d elevations", total, len(words), len(heights))
	}
	m := grid.NewMap(size)
	for i, w := range words {
		c, ok, err := UnpackCell(w)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}
		if !ok {
			continue
		}
		c.Elevation = unzigzag(heights[i])
		m.Set(grid.Pos{Row: i / size, Col: i % size}, c)
	}
	return m, nil
}
