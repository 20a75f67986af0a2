package commands

import (
	"fmt"
	"strconv"

	"github.com/forest-guardian/blackmarble-ntl/internal/quality"
	"github.com/forest-guardian/blackmarble-ntl/internal/ui"
	"github.com/spf13/cobra"
)

var classifyGranularity string

var classifyCmd = &cobra.Command{
	Use:   "classify [code...]",
	Short: "Explain quality codes for a granularity",
	Long: `Daily (VNP46A1/A2) and monthly/annual (VNP46A3/A4) products use the same codes
0, 1 and 2 with different meanings. Without arguments every code is listed.`,
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().StringVar(&classifyGranularity, "granularity", "daily", "daily or monthly/annual")
}

func runClassify(cmd *cobra.Command, args []string) error {
	g, err := quality.ParseGranularity(classifyGranularity)
	if err != nil {
		return err
	}

	codes := quality.Codes(g)
	if len(args) > 0 {
		codes = codes[:0]
		for _, arg := range args {
			code, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("%w: %q", quality.ErrInvalidQualityCode, arg)
			}
			codes = append(codes, code)
		}
	}

	rows := make([][]string, 0, len(codes))
	for _, code := range codes {
		category, err := quality.Classify(code, g)
		if err != nil {
			return err
		}
		description, _ := quality.Describe(code, g)
		rows = append(rows, []string{strconv.Itoa(code), string(category), description})
	}
	ui.PrintTable(cmd.OutOrStdout(), []string{"code", "category", "meaning"}, rows)
	return nil
}
