// Package geotiff reads granule layers and GeoTIFFs through GDAL and writes filtered rasters back out.
package geotiff

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/blackmarble-ntl/internal/raster"
)

var ErrNoSuchBand = errors.New("band not present in dataset")

var registerOnce sync.Once

func register() {
	registerOnce.Do(godal.RegisterAll)
}

// dropWarnings keeps GDAL warnings from failing an open and turns everything else into an error.
func dropWarnings(ec godal.ErrorCategory, code int, msg string) error {
	if ec == godal.CE_Warning {
		return nil
	}
	return fmt.Errorf("gdal error %d: %s", code, msg)
}

// Reader loads single layers of HDF-EOS granules.
type Reader struct{}

func NewReader() *Reader {
	register()
	return &Reader{}
}

// ReadLayer reads the first band of name, typically an HDF5 subdataset.
func (r *Reader) ReadLayer(name string) (*raster.Raster, error) {
	return Read(name, 1)
}

// Read loads band (1-based) of any GDAL dataset. Raw values are kept as stored; nodata is not
// converted so the quality filter still sees fill sentinels.
func Read(name string, band int) (*raster.Raster, error) {
	register()
	ds, err := godal.Open(name, godal.ErrLogger(dropWarnings))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer ds.Close()

	st := ds.Structure()
	if band < 1 || band > st.NBands {
		return nil, fmt.Errorf("%w: %d of %d in %s", ErrNoSuchBand, band, st.NBands, name)
	}
	width, height := st.SizeX, st.SizeY
	data := make([]float64, width*height)
	if err := ds.Bands()[band-1].Read(0, 0, data, width, height); err != nil {
		return nil, fmt.Errorf("failed to read band %d of %s: %w", band, name, err)
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		// HDF-EOS grids carry no geotransform; callers place them by tile.
		gt = [6]float64{0, 1, 0, 0, 0, 1}
	}
	return raster.FromValues(width, height, gt, data)
}

// ReadGeoTIFF is Read for a file path.
func ReadGeoTIFF(path string, band int) (*raster.Raster, error) {
	return Read(path, band)
}

// WriteGeoTIFF stores r as a single band Float64 GeoTIFF in EPSG:4326 with NaN as nodata.
func WriteGeoTIFF(path string, r *raster.Raster) (err error) {
	if r == nil {
		return errors.New("no raster to write")
	}
	register()
	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float64, r.Width, r.Height,
		godal.CreationOption("COMPRESS=DEFLATE", "TILED=YES"))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := ds.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if err := ds.SetGeoTransform(r.GeoTransform); err != nil {
		return fmt.Errorf("failed to set geotransform: %w", err)
	}
	sr, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return fmt.Errorf("failed to build spatial reference: %w", err)
	}
	defer sr.Close()
	if err := ds.SetSpatialRef(sr); err != nil {
		return fmt.Errorf("failed to set spatial reference: %w", err)
	}

	band := ds.Bands()[0]
	if err := band.SetNoData(math.NaN()); err != nil {
		return fmt.Errorf("failed to set nodata: %w", err)
	}
	if err := band.Write(0, 0, r.Values, r.Width, r.Height); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
