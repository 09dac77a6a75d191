package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"commodity-price-intel/internal/app"
)

var priceCmd = &cobra.Command{
	Use:   "price [name ...]",
	Short: "Resolve current prices through the fallback chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("at least one name is required")
		}
		return getApp().Price(cmd.Context(), app.PriceOptions{Names: args})
	},
}
