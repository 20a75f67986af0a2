package coverage

import (
	"math"
	"sort"
	"time"

	"github.com/forest-guardian/blackmarble-ntl/internal/raster"
	"github.com/forest-guardian/blackmarble-ntl/internal/region"
)

type Status string

const (
	StatusOK          Status = "ok"
	StatusFetchFailed Status = "fetch_failed"
	StatusEmptyRegion Status = "empty_region"
)

// Record summarises one region on one date. CoverageRatio is nil when no cell falls under the
// region, MeanValue is nil when every cell under the region is missing.
type Record struct {
	Date             time.Time `csv:"date" json:"date"`
	TotalPixels      int       `csv:"n_pixels" json:"n_pixels"`
	NonMissingPixels int       `csv:"n_non_na_pixels" json:"n_non_na_pixels"`
	CoverageRatio    *float64  `csv:"prop_non_na_pixels" json:"prop_non_na_pixels"`
	MeanValue        *float64  `csv:"ntl_mean" json:"ntl_mean"`
	Status           Status    `csv:"status" json:"status"`
	Error            string    `csv:"error" json:"error,omitempty"`
}

func (r Record) Degraded() bool {
	return r.Status == StatusFetchFailed
}

type Dated struct {
	Date   time.Time
	Raster *raster.Raster
}

// Summarize returns one record per input raster, ordered by ascending date.
func Summarize(reg *region.Region, rasters []Dated) []Record {
	records := make([]Record, 0, len(rasters))
	for _, d := range rasters {
		records = append(records, SummarizeOne(reg, d.Date, d.Raster))
	}
	SortByDate(records)
	return records
}

func SummarizeOne(reg *region.Region, date time.Time, ras *raster.Raster) Record {
	record := Record{Date: date, Status: StatusOK}
	if ras == nil {
		record.Status = StatusEmptyRegion
		return record
	}

	var sum float64
	mask := reg.Mask(ras)
	for i, inside := range mask {
		if !inside {
			continue
		}
		record.TotalPixels++
		v := ras.Values[i]
		if math.IsNaN(v) {
			continue
		}
		record.NonMissingPixels++
		sum += v
	}

	if record.TotalPixels == 0 {
		record.Status = StatusEmptyRegion
		return record
	}
	ratio := float64(record.NonMissingPixels) / float64(record.TotalPixels)
	record.CoverageRatio = &ratio
	if record.NonMissingPixels > 0 {
		mean := sum / float64(record.NonMissingPixels)
		record.MeanValue = &mean
	}
	return record
}

// FailedRecord stands in for a date whose raster could not be fetched.
func FailedRecord(date time.Time, err error) Record {
	record := Record{Date: date, Status: StatusFetchFailed}
	if err != nil {
		record.Error = err.Error()
	}
	return record
}

func SortByDate(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
}
