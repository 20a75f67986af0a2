package commands

import (
	"fmt"
	"math"
	"time"

	"github.com/forest-guardian/blackmarble-ntl/internal/coverage"
	"github.com/forest-guardian/blackmarble-ntl/internal/filter"
	"github.com/forest-guardian/blackmarble-ntl/internal/geotiff"
	"github.com/forest-guardian/blackmarble-ntl/internal/quality"
	"github.com/forest-guardian/blackmarble-ntl/internal/raster"
	"github.com/forest-guardian/blackmarble-ntl/internal/region"
	"github.com/forest-guardian/blackmarble-ntl/internal/ui"
	"github.com/spf13/cobra"
)

var filterArgs struct {
	valuePath   string
	qualityPath string
	band        int
	granularity string
	exclude     string
	fill        float64
	scale       float64
	regionPath  string
	out         string
}

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Filter local value and quality GeoTIFFs without downloading",
	Long: `Applies the fill and quality mask to rasters already on disk. The value and
quality GeoTIFFs must share size and extent. With --region the coverage of the
filtered raster over that region is printed as well.`,
	RunE: runFilter,
}

func init() {
	rootCmd.AddCommand(filterCmd)
	flags := filterCmd.Flags()
	flags.StringVar(&filterArgs.valuePath, "value", "", "value GeoTIFF")
	flags.StringVar(&filterArgs.qualityPath, "quality", "", "quality GeoTIFF (optional without --exclude)")
	flags.IntVar(&filterArgs.band, "band", 1, "band to read from both files")
	flags.StringVar(&filterArgs.granularity, "granularity", "daily", "daily or monthly/annual")
	flags.StringVar(&filterArgs.exclude, "exclude", "", "comma separated quality codes to mask")
	flags.Float64Var(&filterArgs.fill, "fill", 65535, "fill value to mask")
	flags.Float64Var(&filterArgs.scale, "scale", 1, "factor applied to kept values")
	flags.StringVar(&filterArgs.regionPath, "region", "", "GeoJSON region to summarise (optional)")
	flags.StringVar(&filterArgs.out, "out", "", "filtered GeoTIFF to write")
	_ = filterCmd.MarkFlagRequired("value")
	_ = filterCmd.MarkFlagRequired("out")
}

func runFilter(cmd *cobra.Command, args []string) error {
	g, err := quality.ParseGranularity(filterArgs.granularity)
	if err != nil {
		return err
	}
	excluded, err := quality.ParseCodes(filterArgs.exclude)
	if err != nil {
		return err
	}

	value, err := geotiff.ReadGeoTIFF(filterArgs.valuePath, filterArgs.band)
	if err != nil {
		return err
	}
	var qa *raster.Raster
	if filterArgs.qualityPath != "" {
		if qa, err = geotiff.ReadGeoTIFF(filterArgs.qualityPath, filterArgs.band); err != nil {
			return err
		}
	}

	filtered, stats, err := filter.ApplyWithStats(value, qa, filter.Options{
		Granularity:   g,
		ExcludedCodes: excluded,
		FillSentinel:  filterArgs.fill,
	})
	if err != nil {
		return err
	}
	if filterArgs.scale != 1 {
		filtered = filtered.Scale(filterArgs.scale)
	}
	if err := geotiff.WriteGeoTIFF(filterArgs.out, filtered); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	ui.PrintTable(w, []string{"cells", "kept", "fill", "excluded", "already missing"}, [][]string{{
		fmt.Sprint(stats.Total), fmt.Sprint(stats.Kept), fmt.Sprint(stats.Fill), fmt.Sprint(stats.Excluded), fmt.Sprint(stats.Missing),
	}})

	if filterArgs.regionPath != "" {
		reg, err := region.Load(filterArgs.regionPath, "", "")
		if err != nil {
			return err
		}
		rec := coverage.SummarizeOne(reg, time.Now().UTC(), filtered)
		ratio := math.NaN()
		if rec.CoverageRatio != nil {
			ratio = *rec.CoverageRatio
		}
		ui.PrintInfo(w, fmt.Sprintf("%s: %d of %d pixels valid (%.3f)", reg.Name, rec.NonMissingPixels, rec.TotalPixels, ratio))
	}
	ui.PrintSuccess(w, "Filtered raster written to "+filterArgs.out)
	return nil
}
