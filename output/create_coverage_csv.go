package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/forest-guardian/blackmarble-ntl/internal/coverage"
	"github.com/gocarina/gocsv"
)

type coverageRow struct {
	Region           string   `csv:"region"`
	Date             string   `csv:"date"`
	TotalPixels      int      `csv:"n_pixels"`
	NonMissingPixels int      `csv:"n_non_na_pixels"`
	CoverageRatio    *float64 `csv:"prop_non_na_pixels"`
	MeanValue        *float64 `csv:"ntl_mean"`
	Status           string   `csv:"status"`
	Error            string   `csv:"error"`
}

// CreateCoverageCSV writes one row per record. Undefined ratios and means are left empty.
func CreateCoverageCSV(path, regionName string, records []coverage.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create result folder: %w", err)
	}

	rows := make([]coverageRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, coverageRow{
			Region:           regionName,
			Date:             r.Date.Format("2006-01-02"),
			TotalPixels:      r.TotalPixels,
			NonMissingPixels: r.NonMissingPixels,
			CoverageRatio:    r.CoverageRatio,
			MeanValue:        r.MeanValue,
			Status:           string(r.Status),
			Error:            r.Error,
		})
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("failed to write coverage CSV: %w", err)
	}
	return nil
}
