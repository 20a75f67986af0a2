package output

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/forest-guardian/blackmarble-ntl/internal/raster"
)

func normalize(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	norm := (value - min) / (max - min)
	if norm < 0 {
		return 0
	}
	if norm > 1 {
		return 1
	}
	return norm
}

// radianceToRGB maps a normalised radiance onto a dark blue to yellow ramp.
func radianceToRGB(norm float64) (float64, float64, float64) {
	if norm <= 0.5 {
		ratio := norm / 0.5
		return 0.1 * ratio, 0.1 + 0.5*ratio, 0.3 + 0.4*ratio
	}
	ratio := (norm - 0.5) / 0.5
	return 0.1 + 0.9*ratio, 0.6 + 0.4*ratio, 0.7 * (1 - ratio)
}

// CreatePreviewImage renders r as a PNG quick look. Values are log scaled; missing cells are black.
// Each cell is drawn as a cellSize x cellSize square.
func CreatePreviewImage(path string, r *raster.Raster, cellSize int) error {
	if r == nil {
		return fmt.Errorf("no raster to render")
	}
	if cellSize < 1 {
		cellSize = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create result folder: %w", err)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range r.Values {
		if math.IsNaN(v) {
			continue
		}
		lv := math.Log1p(math.Max(v, 0))
		lo, hi = math.Min(lo, lv), math.Max(hi, lv)
	}

	dc := gg.NewContext(r.Width*cellSize, r.Height*cellSize)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			v := r.At(x, y)
			if math.IsNaN(v) {
				continue
			}
			dc.SetRGB(radianceToRGB(normalize(math.Log1p(math.Max(v, 0)), lo, hi)))
			dc.DrawRectangle(float64(x*cellSize), float64(y*cellSize), float64(cellSize), float64(cellSize))
			dc.Fill()
		}
	}

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}
