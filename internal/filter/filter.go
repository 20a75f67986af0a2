package filter

import (
	"errors"
	"fmt"
	"math"

	"github.com/forest-guardian/blackmarble-ntl/internal/quality"
	"github.com/forest-guardian/blackmarble-ntl/internal/raster"
)

var ErrRasterMismatch = errors.New("value and quality rasters do not match")

type Options struct {
	Granularity   quality.Granularity
	ExcludedCodes []int
	// FillSentinel is the raw value the product writes where nothing was observed.
	FillSentinel float64
}

// Stats counts what happened to each cell during a filter pass.
type Stats struct {
	Total    int
	Missing  int // already missing on input
	Fill     int
	Excluded int
	Kept     int
}

// Apply returns a new raster where fill cells and cells whose quality code is excluded are missing.
// Neither input is modified.
func Apply(value, qa *raster.Raster, opts Options) (*raster.Raster, error) {
	out, _, err := ApplyWithStats(value, qa, opts)
	return out, err
}

func ApplyWithStats(value, qa *raster.Raster, opts Options) (*raster.Raster, Stats, error) {
	var stats Stats
	if value == nil {
		return nil, stats, fmt.Errorf("%w: value raster absent", ErrRasterMismatch)
	}
	if err := quality.ValidateCodes(opts.ExcludedCodes, opts.Granularity); err != nil {
		return nil, stats, err
	}
	if qa == nil && len(opts.ExcludedCodes) > 0 {
		return nil, stats, fmt.Errorf("%w: quality raster absent but codes %v are excluded", ErrRasterMismatch, opts.ExcludedCodes)
	}
	if qa != nil && !value.SameGrid(qa) {
		return nil, stats, fmt.Errorf("%w: value %dx%d %v, quality %dx%d %v", ErrRasterMismatch,
			value.Width, value.Height, value.GeoTransform, qa.Width, qa.Height, qa.GeoTransform)
	}

	excluded := make(map[int]struct{}, len(opts.ExcludedCodes))
	for _, code := range opts.ExcludedCodes {
		excluded[code] = struct{}{}
	}

	out := value.Clone()
	stats.Total = len(out.Values)
	for i, v := range out.Values {
		if math.IsNaN(v) {
			stats.Missing++
			continue
		}
		if v == opts.FillSentinel {
			out.Values[i] = math.NaN()
			stats.Fill++
			continue
		}
		if qa != nil {
			q := qa.Values[i]
			if q == quality.FillCode {
				out.Values[i] = math.NaN()
				stats.Fill++
				continue
			}
			if !math.IsNaN(q) {
				if _, ok := excluded[int(q)]; ok {
					out.Values[i] = math.NaN()
					stats.Excluded++
					continue
				}
			}
		}
		stats.Kept++
	}
	return out, stats, nil
}
