// Package mapimage renders grid maps as PNG images for debugging.
package mapimage

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"gridscout.ai/internal/sim/grid"
)

var (
	unseen = color.RGBA{0, 0, 0, 255}
	agent  = color.RGBA{255, 0, 0, 255}
)

var terrainColors = map[grid.Terrain]color.RGBA{
	grid.DeepWater:    {0, 0, 125, 255},
	grid.ShallowWater: {35, 137, 218, 255},
	grid.Sand:         {246, 215, 176, 255},
	grid.Grass:        {124, 252, 0, 255},
	grid.Street:       {50, 50, 50, 255},
	grid.Hill:         {1, 50, 32, 255},
	grid.Mountain:     {90, 75, 65, 255},
	grid.Snow:         {255, 255, 255, 255},
	grid.Lava:         {207, 16, 32, 255},
	grid.Wall:         {128, 128, 128, 255},
	grid.Teleport:     {255, 0, 255, 255},
}

// TerrainColor is the palette entry for t; unknown terrain renders black.
func TerrainColor(t grid.Terrain) color.RGBA {
	if c, ok := terrainColors[t]; ok {
		return c
	}
	return unseen
}

// Render draws one pixel per cell, then upscales by scale with nearest
// neighbour so cells stay crisp. Unobserved cells are black and the agent
// cell is red.
func Render(m *grid.Map, at grid.Pos, scale int) *image.RGBA {
	size := m.Size()
	src := image.NewRGBA(image.Rect(0, 0, size, size))
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			p := grid.Pos{Row: r, Col: c}
			px := unseen
			switch {
			case p == at:
				px = agent
			case m.Observed(p):
				cell, _ := m.Cell(p)
				px = TerrainColor(cell.Terrain)
			}
			src.SetRGBA(c, r, px)
		}
	}
	if scale <= 1 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, size*scale, size*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Export writes observed.png and, when full is non-nil, full.png into dir.
func Export(dir string, observed, full *grid.Map, at grid.Pos, scale int) error {
	if observed != nil {
		if err := WritePNG(filepath.Join(dir, "observed.png"), Render(observed, at, scale)); err != nil {
			return err
		}
	}
	if full != nil {
		if err := WritePNG(filepath.Join(dir, "full.png"), Render(full, at, scale)); err != nil {
			return err
		}
	}
	return nil
}
