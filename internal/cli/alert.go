package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"commodity-price-intel/internal/app"
)

var (
	alertSubscriber string
	alertCommodity  string
	alertThreshold  int64
	alertDirection  string
)

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Manage price alert subscriptions",
}

var alertAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a price threshold for a subscriber",
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertSubscriber == "" || alertCommodity == "" {
			return fmt.Errorf("--subscriber and --commodity are required")
		}
		return getApp().AlertAdd(cmd.Context(), app.AlertAddOptions{
			Subscriber: alertSubscriber,
			Commodity:  alertCommodity,
			Threshold:  alertThreshold,
			Direction:  alertDirection,
		})
	},
}

var alertListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a subscriber's alert subscriptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertSubscriber == "" {
			return fmt.Errorf("--subscriber is required")
		}
		return getApp().AlertList(cmd.Context(), alertSubscriber)
	},
}

var alertDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an alert subscription by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().AlertDelete(cmd.Context(), args[0])
	},
}

func init() {
	alertAddCmd.Flags().StringVar(&alertSubscriber, "subscriber", "", "Subscriber identifier")
	alertAddCmd.Flags().StringVar(&alertCommodity, "commodity", "", "Commodity name")
	alertAddCmd.Flags().Int64Var(&alertThreshold, "threshold", 0, "Threshold price in currency units")
	alertAddCmd.Flags().StringVar(&alertDirection, "direction", "decrease", "Trigger direction: decrease or increase")

	alertListCmd.Flags().StringVar(&alertSubscriber, "subscriber", "", "Subscriber identifier")

	alertCmd.AddCommand(alertAddCmd, alertListCmd, alertDeleteCmd)
}
