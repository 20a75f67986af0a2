package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forest-guardian/blackmarble-ntl/internal/coverage"
	"github.com/forest-guardian/blackmarble-ntl/internal/geotiff"
)

// CreateFilteredGeoTIFFs writes each raster as <dir>/<prefix>_<YYYY_MM_DD>.tif and returns the paths.
func CreateFilteredGeoTIFFs(dir, prefix string, rasters []coverage.Dated) ([]string, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create result folder: %w", err)
	}

	paths := make([]string, 0, len(rasters))
	for _, d := range rasters {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.tif", fileSafe(prefix), d.Date.Format("2006_01_02")))
		if err := geotiff.WriteGeoTIFF(path, d.Raster); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', ':':
			return '_'
		}
		return r
	}, s)
}
