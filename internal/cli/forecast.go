package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"commodity-price-intel/internal/app"
)

var (
	forecastCommodity string
	forecastDays      int
	forecastFull      bool
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Project upcoming prices from the recent series",
	RunE: func(cmd *cobra.Command, args []string) error {
		if forecastCommodity == "" {
			return fmt.Errorf("--commodity is required")
		}
		return getApp().Forecast(cmd.Context(), app.ForecastOptions{
			Commodity: forecastCommodity,
			Days:      forecastDays,
			Full:      forecastFull,
		})
	},
}

func init() {
	forecastCmd.Flags().StringVar(&forecastCommodity, "commodity", "", "Commodity name")
	forecastCmd.Flags().IntVar(&forecastDays, "days", 7, "Number of days to project")
	forecastCmd.Flags().BoolVar(&forecastFull, "full", false, "Print the full projected points instead of the preview range")
}
