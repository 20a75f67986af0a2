package commands

import (
	"strconv"

	"github.com/forest-guardian/blackmarble-ntl/internal/blackmarble"
	"github.com/forest-guardian/blackmarble-ntl/internal/ui"
	"github.com/spf13/cobra"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List the supported Black Marble products",
	RunE: func(cmd *cobra.Command, args []string) error {
		var rows [][]string
		for _, p := range blackmarble.Products() {
			qa, ok := p.QualityLayer("")
			if !ok {
				qa = "-"
			}
			rows = append(rows, []string{
				p.ID,
				p.Granularity.String(),
				p.DefaultVariable,
				qa,
				strconv.FormatFloat(p.ScaleFactor, 'g', -1, 64),
				p.Description,
			})
		}
		ui.PrintTable(cmd.OutOrStdout(), []string{"product", "granularity", "default variable", "quality layer", "scale", "description"}, rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(productsCmd)
}
