package region

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forest-guardian/blackmarble-ntl/internal/raster"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const collection = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"plot_id": "1", "name": "west"},
      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[2,0],[2,2],[0,2],[0,0]]]}
    },
    {
      "type": "Feature",
      "properties": {"plot_id": 2, "name": "east"},
      "geometry": {"type": "MultiPolygon", "coordinates": [[[[5,0],[7,0],[7,2],[5,2],[5,0]]]]}
    },
    {
      "type": "Feature",
      "properties": {"plot_id": "3"},
      "geometry": {"type": "Point", "coordinates": [1,1]}
    }
  ]
}`

func TestFromGeoJSON_FeatureCollection(t *testing.T) {
	r, err := FromGeoJSON([]byte(collection), "", "")
	require.NoError(t, err)
	assert.Equal(t, "west", r.Name)
	assert.IsType(t, orb.Polygon{}, r.Geometry)

	r, err = FromGeoJSON([]byte(collection), "plot_id", "2")
	require.NoError(t, err)
	assert.Equal(t, "2", r.Name)
	assert.IsType(t, orb.MultiPolygon{}, r.Geometry)

	_, err = FromGeoJSON([]byte(collection), "plot_id", "9")
	assert.ErrorIs(t, err, ErrFeatureNotFound)

	_, err = FromGeoJSON([]byte(collection), "plot_id", "3")
	assert.ErrorIs(t, err, ErrNotPolygon)
}

func TestFromGeoJSON_BareGeometry(t *testing.T) {
	r, err := FromGeoJSON([]byte(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`), "", "")
	require.NoError(t, err)
	assert.Equal(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, r.Bound())

	_, err = FromGeoJSON([]byte(`{"type":"LineString","coordinates":[[0,0],[1,1]]}`), "", "")
	assert.ErrorIs(t, err, ErrNotPolygon)

	_, err = FromGeoJSON([]byte(`not json`), "", "")
	assert.Error(t, err)
}

func TestLoad_DefaultsNameToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lagos.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`), 0644))

	r, err := Load(path, "", "")
	require.NoError(t, err)
	assert.Equal(t, "lagos", r.Name)
}

func TestContains(t *testing.T) {
	r, err := FromGeoJSON([]byte(collection), "plot_id", "2")
	require.NoError(t, err)
	assert.True(t, r.Contains(orb.Point{6, 1}))
	assert.False(t, r.Contains(orb.Point{1, 1}))
}

func TestMask_CellCenterConvention(t *testing.T) {
	// 4x4 one-degree cells covering [0,4]x[0,4]; the square covers [0,2]x[0,2.4]
	ras, err := raster.New(4, 4, [6]float64{0, 1, 0, 4, 0, -1})
	require.NoError(t, err)
	r, err := New("sq", orb.Polygon{{{0, 0}, {2, 0}, {2, 2.4}, {0, 2.4}, {0, 0}}})
	require.NoError(t, err)

	mask := r.Mask(ras)
	count := 0
	for _, in := range mask {
		if in {
			count++
		}
	}
	// centres at y=0.5 and 1.5 for x=0.5 and 1.5; the partially covered row at y=2.5 is excluded
	assert.Equal(t, 4, count)
	assert.True(t, mask[3*4+0])
	assert.False(t, mask[1*4+0])
}

func TestNew_RejectsNonPolygon(t *testing.T) {
	_, err := New("p", orb.Point{0, 0})
	assert.ErrorIs(t, err, ErrNotPolygon)
}

func TestCentroid(t *testing.T) {
	r, err := New("sq", orb.Polygon{{{0, 0}, {4, 0}, {4, 2}, {0, 2}, {0, 0}}})
	require.NoError(t, err)
	c, err := r.Centroid()
	require.NoError(t, err)
	assert.InDelta(t, 2.0, c.X(), 1e-12)
	assert.InDelta(t, 1.0, c.Y(), 1e-12)

	flat, err := New("flat", orb.Polygon{{{0, 0}, {1, 0}, {2, 0}, {0, 0}}})
	require.NoError(t, err)
	_, err = flat.Centroid()
	assert.Error(t, err)
}
