package blackmarble

import (
	"fmt"
	"math"

	"github.com/forest-guardian/blackmarble-ntl/internal/raster"
	"github.com/paulmach/orb"
)

const (
	tilesH = 360 / TileDegrees
	tilesV = 180 / TileDegrees
)

// Tile addresses one granule of the global grid: h counts eastward from 180W, v southward from 90N.
type Tile struct {
	H, V int
}

func (t Tile) Name() string {
	return fmt.Sprintf("h%02dv%02d", t.H, t.V)
}

func (t Tile) GeoTransform(size int) [6]float64 {
	res := float64(TileDegrees) / float64(size)
	return [6]float64{
		-180 + float64(t.H*TileDegrees), res, 0,
		90 - float64(t.V*TileDegrees), 0, -res,
	}
}

// TilesFor lists every tile intersecting bound.
func TilesFor(bound orb.Bound) []Tile {
	h0 := clampInt(int(math.Floor((bound.Min[0]+180)/TileDegrees)), 0, tilesH-1)
	h1 := clampInt(int(math.Ceil((bound.Max[0]+180)/TileDegrees))-1, 0, tilesH-1)
	v0 := clampInt(int(math.Floor((90-bound.Max[1])/TileDegrees)), 0, tilesV-1)
	v1 := clampInt(int(math.Ceil((90-bound.Min[1])/TileDegrees))-1, 0, tilesV-1)
	if h1 < h0 {
		h1 = h0
	}
	if v1 < v0 {
		v1 = v0
	}

	var tiles []Tile
	for v := v0; v <= v1; v++ {
		for h := h0; h <= h1; h++ {
			tiles = append(tiles, Tile{H: h, V: v})
		}
	}
	return tiles
}

// window is a pixel rectangle on the global grid, end exclusive.
type window struct {
	col0, col1, row0, row1 int
}

func windowFor(bound orb.Bound, size int) window {
	res := float64(TileDegrees) / float64(size)
	w := window{
		col0: clampInt(int(math.Floor((bound.Min[0]+180)/res)), 0, tilesH*size),
		col1: clampInt(int(math.Ceil((bound.Max[0]+180)/res)), 0, tilesH*size),
		row0: clampInt(int(math.Floor((90-bound.Max[1])/res)), 0, tilesV*size),
		row1: clampInt(int(math.Ceil((90-bound.Min[1])/res)), 0, tilesV*size),
	}
	if w.col1 <= w.col0 {
		w.col1 = w.col0 + 1
	}
	if w.row1 <= w.row0 {
		w.row1 = w.row0 + 1
	}
	return w
}

// mosaic pastes tile rasters into a raster covering bound. Cells without a tile stay missing.
func mosaic(bound orb.Bound, size int, tiles map[Tile]*raster.Raster) (*raster.Raster, error) {
	w := windowFor(bound, size)
	res := float64(TileDegrees) / float64(size)
	out, err := raster.New(w.col1-w.col0, w.row1-w.row0, [6]float64{
		-180 + float64(w.col0)*res, res, 0,
		90 - float64(w.row0)*res, 0, -res,
	})
	if err != nil {
		return nil, err
	}

	for tile, r := range tiles {
		if r.Width != size || r.Height != size {
			return nil, fmt.Errorf("tile %s is %dx%d, expected %dx%d", tile.Name(), r.Width, r.Height, size, size)
		}
		tileCol, tileRow := tile.H*size, tile.V*size
		c0, c1 := max(w.col0, tileCol), min(w.col1, tileCol+size)
		r0, r1 := max(w.row0, tileRow), min(w.row1, tileRow+size)
		if c1 <= c0 || r1 <= r0 {
			continue
		}
		for row := r0; row < r1; row++ {
			src := r.Values[(row-tileRow)*size+(c0-tileCol) : (row-tileRow)*size+(c1-tileCol)]
			dst := out.Values[(row-w.row0)*out.Width+(c0-w.col0) : (row-w.row0)*out.Width+(c1-w.col0)]
			copy(dst, src)
		}
	}
	return out, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
