package blackmarble

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/forest-guardian/blackmarble-ntl/internal/quality"
)

var ErrUnknownProduct = errors.New("unknown Black Marble product")

type Period int

const (
	PeriodDay Period = iota + 1
	PeriodMonth
	PeriodYear
)

const (
	// FillValue is written by every VNP46 radiance layer where no observation exists.
	FillValue = 65535
	// TileDegrees is the side of one tile of the linear lat/lon grid.
	TileDegrees = 10
)

type Product struct {
	ID              string
	Description     string
	Period          Period
	Granularity     quality.Granularity
	DefaultVariable string
	GridName        string
	Collection      string
	TileSize        int
	FillValue       float64
	ScaleFactor     float64
	// Variables with a companion 0/1/2 quality layer, mapped to that layer's name.
	qualityLayers map[string]string
}

var monthlyAnnualQuality = map[string]string{
	"AllAngle_Composite_Snow_Covered":  "AllAngle_Composite_Snow_Covered_Quality",
	"AllAngle_Composite_Snow_Free":     "AllAngle_Composite_Snow_Free_Quality",
	"NearNadir_Composite_Snow_Covered": "NearNadir_Composite_Snow_Covered_Quality",
	"NearNadir_Composite_Snow_Free":    "NearNadir_Composite_Snow_Free_Quality",
	"OffNadir_Composite_Snow_Covered":  "OffNadir_Composite_Snow_Covered_Quality",
	"OffNadir_Composite_Snow_Free":     "OffNadir_Composite_Snow_Free_Quality",
}

var products = map[string]Product{
	"VNP46A1": {
		ID:              "VNP46A1",
		Description:     "daily at-sensor top of atmosphere radiance",
		Period:          PeriodDay,
		Granularity:     quality.Daily,
		DefaultVariable: "DNB_At_Sensor_Radiance_500m",
		GridName:        "VNP_Grid_DNB",
		Collection:      "5000",
		TileSize:        2400,
		FillValue:       FillValue,
		ScaleFactor:     0.1,
	},
	"VNP46A2": {
		ID:              "VNP46A2",
		Description:     "daily moonlight-adjusted nighttime lights",
		Period:          PeriodDay,
		Granularity:     quality.Daily,
		DefaultVariable: "DNB_BRDF-Corrected_NTL",
		GridName:        "VNP_Grid_DNB",
		Collection:      "5000",
		TileSize:        2400,
		FillValue:       FillValue,
		ScaleFactor:     0.1,
		qualityLayers: map[string]string{
			"DNB_BRDF-Corrected_NTL":            "Mandatory_Quality_Flag",
			"Gap_Filled_DNB_BRDF-Corrected_NTL": "Mandatory_Quality_Flag",
		},
	},
	"VNP46A3": {
		ID:              "VNP46A3",
		Description:     "monthly moonlight-adjusted nighttime lights",
		Period:          PeriodMonth,
		Granularity:     quality.MonthlyAnnual,
		DefaultVariable: "NearNadir_Composite_Snow_Free",
		GridName:        "VIIRS_Grid_DNB_2d",
		Collection:      "5000",
		TileSize:        2400,
		FillValue:       FillValue,
		ScaleFactor:     0.1,
		qualityLayers:   monthlyAnnualQuality,
	},
	"VNP46A4": {
		ID:              "VNP46A4",
		Description:     "annual moonlight-adjusted nighttime lights",
		Period:          PeriodYear,
		Granularity:     quality.MonthlyAnnual,
		DefaultVariable: "NearNadir_Composite_Snow_Free",
		GridName:        "VIIRS_Grid_DNB_2d",
		Collection:      "5000",
		TileSize:        2400,
		FillValue:       FillValue,
		ScaleFactor:     0.1,
		qualityLayers:   monthlyAnnualQuality,
	},
}

func LookupProduct(id string) (Product, error) {
	p, ok := products[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return Product{}, fmt.Errorf("%w: %q", ErrUnknownProduct, id)
	}
	return p, nil
}

// Products lists the catalogue sorted by ID.
func Products() []Product {
	list := make([]Product, 0, len(products))
	for _, p := range products {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// QualityLayer returns the quality layer paired with variable, or false when the variable has none.
func (p Product) QualityLayer(variable string) (string, bool) {
	if variable == "" {
		variable = p.DefaultVariable
	}
	layer, ok := p.qualityLayers[variable]
	return layer, ok
}

func (p Product) Variable(variable string) string {
	if variable == "" {
		return p.DefaultVariable
	}
	return variable
}

// Subdataset builds the GDAL name of one HDF-EOS layer inside a granule.
func (p Product) Subdataset(path, layer string) string {
	return fmt.Sprintf(`HDF5:"%s"://HDFEOS/GRIDS/%s/Data_Fields/%s`, path, p.GridName, layer)
}
