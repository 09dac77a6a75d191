package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"commodity-price-intel/internal/app"
)

var (
	exportCommodity string
	exportFrom      string
	exportTo        string
	exportCSV       string
	exportPNG       string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a commodity's price series to CSV and PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportCommodity == "" {
			return fmt.Errorf("--commodity is required")
		}
		if exportCSV == "" && exportPNG == "" {
			return fmt.Errorf("at least one of --csv or --png is required")
		}

		opts := app.ExportOptions{
			Commodity: exportCommodity,
			CSVPath:   exportCSV,
			PNGPath:   exportPNG,
			MaxPoints: exportMaxPoints,
		}

		var err error
		if opts.From, err = parseOptionalDay(exportFrom); err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		if opts.To, err = parseOptionalDay(exportTo); err != nil {
			return fmt.Errorf("--to: %w", err)
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportCommodity, "commodity", "", "Commodity name")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Window start (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Window end (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportCSV, "csv", "", "CSV output path")
	exportCmd.Flags().StringVar(&exportPNG, "png", "", "PNG chart output path")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Downsample to at most this many points (0 uses the configured default)")
}
