package blackmarble

import (
	"math"
	"testing"

	"github.com/forest-guardian/blackmarble-ntl/internal/raster"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTilesFor(t *testing.T) {
	tests := []struct {
		name  string
		bound orb.Bound
		want  []string
	}{
		{
			name:  "inside one tile",
			bound: orb.Bound{Min: orb.Point{3.1, 6.3}, Max: orb.Point{3.6, 6.8}},
			want:  []string{"h18v08"},
		},
		{
			name:  "straddles a meridian line",
			bound: orb.Bound{Min: orb.Point{-1, 41}, Max: orb.Point{1, 42}},
			want:  []string{"h17v04", "h18v04"},
		},
		{
			name:  "edge on a tile boundary",
			bound: orb.Bound{Min: orb.Point{0, 40}, Max: orb.Point{10, 50}},
			want:  []string{"h18v04"},
		},
		{
			name:  "point",
			bound: orb.Bound{Min: orb.Point{10, 50}, Max: orb.Point{10, 50}},
			want:  []string{"h19v04"},
		},
		{
			name:  "world corner",
			bound: orb.Bound{Min: orb.Point{170, -90}, Max: orb.Point{180, -85}},
			want:  []string{"h35v17"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var names []string
			for _, tile := range TilesFor(tt.bound) {
				names = append(names, tile.Name())
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestTileGeoTransform(t *testing.T) {
	gt := Tile{H: 18, V: 4}.GeoTransform(2400)
	assert.Equal(t, 0.0, gt[0])
	assert.Equal(t, 50.0, gt[3])
	assert.InDelta(t, 1.0/240, gt[1], 1e-15)
	assert.InDelta(t, -1.0/240, gt[5], 1e-15)
}

func TestMosaic_AcrossTwoTiles(t *testing.T) {
	west, err := raster.FromValues(2, 2, [6]float64{}, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	east, err := raster.FromValues(2, 2, [6]float64{}, []float64{5, 6, 7, 8})
	require.NoError(t, err)

	bound := orb.Bound{Min: orb.Point{-5, 0}, Max: orb.Point{5, 5}}
	out, err := mosaic(bound, 2, map[Tile]*raster.Raster{
		{H: 17, V: 8}: west,
		{H: 18, V: 8}: east,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Width)
	assert.Equal(t, 1, out.Height)
	assert.Equal(t, []float64{4, 7}, out.Values)
	assert.Equal(t, [6]float64{-5, 5, 0, 5, 0, -5}, out.GeoTransform)
}

func TestMosaic_MissingTileStaysMissing(t *testing.T) {
	west, err := raster.FromValues(2, 2, [6]float64{}, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	out, err := mosaic(orb.Bound{Min: orb.Point{-5, 0}, Max: orb.Point{5, 5}}, 2, map[Tile]*raster.Raster{
		{H: 17, V: 8}: west,
	})
	require.NoError(t, err)
	assert.Equal(t, 4.0, out.Values[0])
	assert.True(t, math.IsNaN(out.Values[1]))
}

func TestMosaic_RejectsWrongTileSize(t *testing.T) {
	bad, err := raster.FromValues(1, 1, [6]float64{}, []float64{1})
	require.NoError(t, err)
	_, err = mosaic(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, 2, map[Tile]*raster.Raster{{H: 18, V: 8}: bad})
	assert.Error(t, err)
}
