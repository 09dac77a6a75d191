package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"commodity-price-intel/internal/app"
)

var (
	simulateCommodity string
	simulatePrice     int64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a synthetic price through the alert matcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateCommodity == "" {
			return fmt.Errorf("--commodity is required")
		}
		if simulatePrice <= 0 {
			return fmt.Errorf("--price must be positive")
		}
		return getApp().Simulate(cmd.Context(), app.SimulateOptions{
			Commodity: simulateCommodity,
			Price:     simulatePrice,
		})
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateCommodity, "commodity", "", "Commodity name")
	simulateCmd.Flags().Int64Var(&simulatePrice, "price", 0, "Synthetic price in currency units")
}
