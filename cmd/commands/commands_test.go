package commands

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/forest-guardian/blackmarble-ntl/internal/geotiff"
	"github.com/forest-guardian/blackmarble-ntl/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	t.Setenv("ROOT_PATH", t.TempDir())

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--no-banner", "--log-level", "disabled", "--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestClassify(t *testing.T) {
	out, err := execute(t, "classify", "--granularity", "monthly", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "gap_filled")
	assert.NotContains(t, out, "good_quality")

	out, err = execute(t, "classify", "--granularity", "daily")
	require.NoError(t, err)
	assert.Contains(t, out, "high_quality_persistent")
	assert.Contains(t, out, "high_quality_ephemeral")
	assert.Contains(t, out, "poor_quality")

	_, err = execute(t, "classify", "--granularity", "daily", "3")
	assert.Error(t, err)
}

func TestProducts(t *testing.T) {
	out, err := execute(t, "products")
	require.NoError(t, err)
	for _, id := range []string{"VNP46A1", "VNP46A2", "VNP46A3", "VNP46A4"} {
		assert.Contains(t, out, id)
	}
	assert.Contains(t, out, "Mandatory_Quality_Flag")
}

func TestCoverage_RequiresToken(t *testing.T) {
	t.Setenv("BLACKMARBLE_BEARER_TOKEN", "")
	_, err := execute(t, "coverage", "--region", "absent.geojson", "--start", "2023-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BLACKMARBLE_BEARER_TOKEN")
}

func TestFilter_LocalFiles(t *testing.T) {
	dir := t.TempDir()
	gt := [6]float64{0, 1, 0, 2, 0, -1}
	value, err := raster.FromValues(2, 2, gt, []float64{10, 65535, 30, 40})
	require.NoError(t, err)
	qa, err := raster.FromValues(2, 2, gt, []float64{0, 0, 2, 1})
	require.NoError(t, err)

	valuePath, qaPath := filepath.Join(dir, "value.tif"), filepath.Join(dir, "qa.tif")
	require.NoError(t, geotiff.WriteGeoTIFF(valuePath, value))
	require.NoError(t, geotiff.WriteGeoTIFF(qaPath, qa))

	regionPath := filepath.Join(dir, "box.geojson")
	require.NoError(t, os.WriteFile(regionPath, []byte(`{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2],[0,0]]]}`), 0644))

	outPath := filepath.Join(dir, "clean.tif")
	out, err := execute(t, "filter",
		"--value", valuePath,
		"--quality", qaPath,
		"--exclude", "2",
		"--scale", "0.1",
		"--region", regionPath,
		"--out", outPath,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "2 of 4 pixels valid")

	clean, err := geotiff.ReadGeoTIFF(outPath, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, clean.Values[0], 1e-12)
	assert.True(t, math.IsNaN(clean.Values[1]))
	assert.True(t, math.IsNaN(clean.Values[2]))
	assert.InDelta(t, 4.0, clean.Values[3], 1e-12)
}
