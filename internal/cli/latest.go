package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"commodity-price-intel/internal/app"
)

var (
	latestCommodity string
	latestIDs       string
)

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the newest price with day/week/month change rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		if latestCommodity == "" && latestIDs == "" {
			return fmt.Errorf("--commodity or --ids is required")
		}
		if latestCommodity != "" && latestIDs != "" {
			return fmt.Errorf("--commodity and --ids are mutually exclusive")
		}

		return getApp().Latest(cmd.Context(), app.LatestOptions{
			Commodity: latestCommodity,
			IDs:       latestIDs,
		})
	},
}

func init() {
	latestCmd.Flags().StringVar(&latestCommodity, "commodity", "", "Commodity name")
	latestCmd.Flags().StringVar(&latestIDs, "ids", "", "Comma-separated commodity ids")
}
