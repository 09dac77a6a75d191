package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"commodity-price-intel/internal/app"
)

var (
	syncCategory string
	syncDate     string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run an on-demand category sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		day := time.Now().UTC()
		if syncDate != "" {
			parsed, err := time.Parse("2006-01-02", syncDate)
			if err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
			}
			day = parsed
		}

		opts := app.SyncOptions{
			Category: syncCategory,
			Date:     day,
		}

		return getApp().Sync(cmd.Context(), opts)
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncCategory, "category", "", "Limit the sweep to one category code")
	syncCmd.Flags().StringVar(&syncDate, "date", "", "Day to sync (YYYY-MM-DD, default today)")
}
