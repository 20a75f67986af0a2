package commands

import (
	"fmt"
	"path/filepath"

	"github.com/forest-guardian/blackmarble-ntl/internal/delivery"
	"github.com/forest-guardian/blackmarble-ntl/internal/ui"
	"github.com/forest-guardian/blackmarble-ntl/output"
	"github.com/spf13/cobra"
)

var (
	coverageFlags extractFlags
	coverageOut   string
)

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Per-date share of valid nighttime-lights pixels over a region",
	Long: `Downloads every granule between --start and --end, masks fill values and the
quality codes given by --exclude, and writes one row per date with the number of
pixels under the region, how many survived filtering and their mean radiance.

Dates whose download fails are reported with zero counts and status fetch_failed,
unless --strict is set, in which case the run stops at the first failure.`,
	RunE: runCoverage,
}

func init() {
	rootCmd.AddCommand(coverageCmd)
	coverageFlags.register(coverageCmd)
	coverageCmd.Flags().StringVar(&coverageOut, "out", "", "CSV path (default data/result/<region>_<product>_coverage.csv)")
}

func runCoverage(cmd *cobra.Command, args []string) error {
	a := current
	ex, err := coverageFlags.prepare(cmd)
	if err != nil {
		return err
	}

	batch, err := delivery.ExtractCoverage(cmd.Context(), ex.fetcher, ex.region, ex.dates, ex.opts)
	if err != nil {
		if nerr := a.notifier.NotifyError(cmd.Context(), err.Error()); nerr != nil {
			a.logger.Warn().Err(nerr).Msg("failed to send error notification")
		}
		return err
	}

	out := coverageOut
	if out == "" {
		out = filepath.Join(a.cfg.ResultPath(), fmt.Sprintf("%s_%s_coverage.csv", ex.region.Name, ex.product.ID))
	}
	if err := output.CreateCoverageCSV(out, ex.region.Name, batch.Records); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	ui.PrintRecords(w, ex.region.Name, batch.Records)
	reportBatch(cmd, batch, ex)
	ui.PrintSuccess(w, "Coverage written to "+out)
	return nil
}

func reportBatch(cmd *cobra.Command, batch *delivery.Batch, ex *extraction) {
	a := current
	if len(batch.Degraded) > 0 {
		ui.PrintWarning(cmd.OutOrStdout(), fmt.Sprintf("%d of %d dates could not be fetched and carry zero counts", len(batch.Degraded), len(batch.Records)))
	}
	if err := a.notifier.NotifyBatch(cmd.Context(), batch.RunID, ex.region.Name, ex.product.ID, len(batch.Records), len(batch.Degraded)); err != nil {
		a.logger.Warn().Err(err).Msg("failed to send batch notification")
	}
}
