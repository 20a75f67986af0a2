package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/forest-guardian/blackmarble-ntl/internal/blackmarble"
	"github.com/forest-guardian/blackmarble-ntl/internal/delivery"
	"github.com/forest-guardian/blackmarble-ntl/internal/ui"
	"github.com/forest-guardian/blackmarble-ntl/output"
	"github.com/spf13/cobra"
)

var (
	exportFlags   extractFlags
	exportDir     string
	exportPreview bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write quality-filtered rasters as GeoTIFF",
	Long: `Runs the same download and filtering as coverage but keeps the rasters,
writing one Float64 GeoTIFF per date with masked cells set to NaN.
With --preview a PNG quick look is written next to each GeoTIFF.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportFlags.register(exportCmd)
	exportCmd.Flags().StringVar(&exportDir, "out-dir", "", "output folder (default data/result/<region>/<product>)")
	exportCmd.Flags().BoolVar(&exportPreview, "preview", false, "also render PNG quick looks")
}

func runExport(cmd *cobra.Command, args []string) error {
	a := current
	ex, err := exportFlags.prepare(cmd)
	if err != nil {
		return err
	}

	batch, err := delivery.ExtractRasters(cmd.Context(), ex.fetcher, ex.region, ex.dates, ex.opts)
	if err != nil {
		if nerr := a.notifier.NotifyError(cmd.Context(), err.Error()); nerr != nil {
			a.logger.Warn().Err(nerr).Msg("failed to send error notification")
		}
		return err
	}

	dir := exportDir
	if dir == "" {
		dir = filepath.Join(a.cfg.ResultPath(), ex.region.Name, ex.product.ID)
	}
	paths, err := output.CreateFilteredGeoTIFFs(dir, ex.region.Name+"_"+ex.product.ID, batch.Rasters)
	if err != nil {
		return err
	}

	if exportPreview {
		for i, d := range batch.Rasters {
			png := strings.TrimSuffix(paths[i], ".tif") + ".png"
			if err := output.CreatePreviewImage(png, d.Raster, 4); err != nil {
				return err
			}
			a.logger.Debug().Str("file", png).Str("date", blackmarble.FormatDate(ex.product, d.Date)).Msg("preview written")
		}
	}

	w := cmd.OutOrStdout()
	ui.PrintRecords(w, ex.region.Name, batch.Records)
	reportBatch(cmd, batch, ex)
	ui.PrintSuccess(w, fmt.Sprintf("%d GeoTIFF files written to %s", len(paths), dir))
	return nil
}
