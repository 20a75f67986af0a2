package region

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forest-guardian/blackmarble-ntl/internal/raster"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

var (
	ErrNotPolygon      = errors.New("region geometry must be a polygon or multipolygon")
	ErrFeatureNotFound = errors.New("region feature not found")
)

// Region is the area of interest. Pixels count as inside when their centre falls within Geometry.
type Region struct {
	Name     string
	Geometry orb.Geometry
}

func New(name string, g orb.Geometry) (*Region, error) {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return &Region{Name: name, Geometry: g}, nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrNotPolygon, g)
	}
}

// Load reads a GeoJSON file. When property is set, the feature whose property equals value is used;
// otherwise the first polygon feature.
func Load(path, property, value string) (*Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read region file: %w", err)
	}
	r, err := FromGeoJSON(data, property, value)
	if err != nil {
		return nil, err
	}
	if r.Name == "" {
		r.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return r, nil
}

func FromGeoJSON(data []byte, property, value string) (*Region, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse feature collection: %w", err)
		}
		for _, feature := range fc.Features {
			if property != "" && !matches(feature, property, value) {
				continue
			}
			if property == "" && !isPolygonal(feature.Geometry) {
				continue
			}
			return New(nameOf(feature, property), feature.Geometry)
		}
		if property != "" {
			return nil, fmt.Errorf("%w: %s=%s", ErrFeatureNotFound, property, value)
		}
		return nil, ErrNotPolygon
	case "Feature":
		feature, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse feature: %w", err)
		}
		if property != "" && !matches(feature, property, value) {
			return nil, fmt.Errorf("%w: %s=%s", ErrFeatureNotFound, property, value)
		}
		return New(nameOf(feature, property), feature.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse geometry: %w", err)
		}
		return New("", g.Geometry())
	}
}

func matches(f *geojson.Feature, property, value string) bool {
	v, ok := f.Properties[property]
	return ok && fmt.Sprint(v) == value
}

func nameOf(f *geojson.Feature, property string) string {
	if property != "" {
		return fmt.Sprint(f.Properties[property])
	}
	for _, key := range []string{"name", "NAME_1", "NAME_0", "id"} {
		if v, ok := f.Properties[key]; ok {
			return fmt.Sprint(v)
		}
	}
	return ""
}

func isPolygonal(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	}
	return false
}

func (r *Region) Bound() orb.Bound {
	return r.Geometry.Bound()
}

func (r *Region) Contains(p orb.Point) bool {
	switch g := r.Geometry.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, p)
	}
	return false
}

// Centroid returns the area-weighted centre, used to label runs.
func (r *Region) Centroid() (orb.Point, error) {
	centroid, area := planar.CentroidArea(r.Geometry)
	if area <= 0 {
		return orb.Point{}, errors.New("region has no area")
	}
	return centroid, nil
}

// Mask marks the raster cells whose centre lies inside the region.
func (r *Region) Mask(ras *raster.Raster) []bool {
	mask := make([]bool, ras.Width*ras.Height)
	bound := r.Bound()
	for y := 0; y < ras.Height; y++ {
		for x := 0; x < ras.Width; x++ {
			center := ras.CellCenter(x, y)
			if !bound.Contains(center) {
				continue
			}
			mask[y*ras.Width+x] = r.Contains(center)
		}
	}
	return mask
}

// CacheKey identifies the region geometry for cache keys.
func (r *Region) CacheKey() string {
	data, err := geojson.NewGeometry(r.Geometry).MarshalJSON()
	if err != nil {
		b := r.Bound()
		return fmt.Sprintf("%s_%v_%v", r.Name, b.Min, b.Max)
	}
	return r.Name + "_" + string(data)
}
