package raster

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

var (
	ErrInvalidSize = errors.New("invalid raster size")
	ErrOutOfBounds = errors.New("bound does not intersect raster")
)

// Raster is a single band grid in row-major order. Missing cells hold NaN.
// GeoTransform follows the GDAL convention:
//
//	lon = gt[0] + gt[1]*col + gt[2]*row
//	lat = gt[3] + gt[4]*col + gt[5]*row
type Raster struct {
	Width        int
	Height       int
	GeoTransform [6]float64
	Values       []float64
}

// New returns a raster with every cell missing.
func New(width, height int, gt [6]float64) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	values := make([]float64, width*height)
	for i := range values {
		values[i] = math.NaN()
	}
	return &Raster{Width: width, Height: height, GeoTransform: gt, Values: values}, nil
}

// FromValues wraps values without copying them.
func FromValues(width, height int, gt [6]float64, values []float64) (*Raster, error) {
	if width <= 0 || height <= 0 || len(values) != width*height {
		return nil, fmt.Errorf("%w: %dx%d with %d values", ErrInvalidSize, width, height, len(values))
	}
	return &Raster{Width: width, Height: height, GeoTransform: gt, Values: values}, nil
}

func (r *Raster) index(x, y int) int {
	return y*r.Width + x
}

func (r *Raster) At(x, y int) float64 {
	return r.Values[r.index(x, y)]
}

func (r *Raster) Set(x, y int, v float64) {
	r.Values[r.index(x, y)] = v
}

func (r *Raster) IsMissing(x, y int) bool {
	return math.IsNaN(r.At(x, y))
}

func (r *Raster) Clone() *Raster {
	values := make([]float64, len(r.Values))
	copy(values, r.Values)
	return &Raster{Width: r.Width, Height: r.Height, GeoTransform: r.GeoTransform, Values: values}
}

// SameGrid reports whether both rasters share dimensions and spatial extent.
func (r *Raster) SameGrid(o *Raster) bool {
	if r == nil || o == nil {
		return false
	}
	if r.Width != o.Width || r.Height != o.Height {
		return false
	}
	for i := range r.GeoTransform {
		if math.Abs(r.GeoTransform[i]-o.GeoTransform[i]) > 1e-9 {
			return false
		}
	}
	return true
}

// CellCenter returns the geographic coordinates of the centre of pixel (x, y).
func (r *Raster) CellCenter(x, y int) orb.Point {
	gt := r.GeoTransform
	lon := gt[0] + gt[1]*(float64(x)+0.5) + gt[2]*(float64(y)+0.5)
	lat := gt[3] + gt[4]*(float64(x)+0.5) + gt[5]*(float64(y)+0.5)
	return orb.Point{lon, lat}
}

// Bounds assumes a north-up raster.
func (r *Raster) Bounds() orb.Bound {
	gt := r.GeoTransform
	x0, x1 := gt[0], gt[0]+gt[1]*float64(r.Width)
	y0, y1 := gt[3], gt[3]+gt[5]*float64(r.Height)
	return orb.Bound{
		Min: orb.Point{math.Min(x0, x1), math.Min(y0, y1)},
		Max: orb.Point{math.Max(x0, x1), math.Max(y0, y1)},
	}
}

// Count returns the number of non-missing cells.
func (r *Raster) Count() int {
	n := 0
	for _, v := range r.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Scale multiplies every non-missing cell by factor into a new raster.
func (r *Raster) Scale(factor float64) *Raster {
	out := r.Clone()
	if factor == 1 {
		return out
	}
	for i, v := range out.Values {
		if !math.IsNaN(v) {
			out.Values[i] = v * factor
		}
	}
	return out
}

// Crop returns a new raster restricted to the pixel window covering bound.
func (r *Raster) Crop(bound orb.Bound) (*Raster, error) {
	gt := r.GeoTransform
	if gt[1] == 0 || gt[5] == 0 {
		return nil, fmt.Errorf("crop: degenerate geotransform %v", gt)
	}

	col0 := int(math.Floor((bound.Min[0] - gt[0]) / gt[1]))
	col1 := int(math.Ceil((bound.Max[0] - gt[0]) / gt[1]))
	row0 := int(math.Floor((bound.Max[1] - gt[3]) / gt[5]))
	row1 := int(math.Ceil((bound.Min[1] - gt[3]) / gt[5]))
	if col0 > col1 {
		col0, col1 = col1, col0
	}
	if row0 > row1 {
		row0, row1 = row1, row0
	}

	col0, col1 = clamp(col0, 0, r.Width), clamp(col1, 0, r.Width)
	row0, row1 = clamp(row0, 0, r.Height), clamp(row1, 0, r.Height)
	if col1 <= col0 || row1 <= row0 {
		return nil, ErrOutOfBounds
	}

	width, height := col1-col0, row1-row0
	out := &Raster{
		Width:  width,
		Height: height,
		GeoTransform: [6]float64{
			gt[0] + gt[1]*float64(col0) + gt[2]*float64(row0), gt[1], gt[2],
			gt[3] + gt[4]*float64(col0) + gt[5]*float64(row0), gt[4], gt[5],
		},
		Values: make([]float64, width*height),
	}
	for y := 0; y < height; y++ {
		copy(out.Values[y*width:(y+1)*width], r.Values[(row0+y)*r.Width+col0:(row0+y)*r.Width+col1])
	}
	return out, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
