package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"commodity-price-intel/internal/app"
)

var (
	trendCommodity string
	trendPeriod    string
	trendFrom      string
	trendTo        string
)

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Show a bucketed price series with change rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		if trendCommodity == "" {
			return fmt.Errorf("--commodity is required")
		}

		opts := app.TrendOptions{
			Commodity: trendCommodity,
			Period:    trendPeriod,
		}

		var err error
		if opts.From, err = parseOptionalDay(trendFrom); err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		if opts.To, err = parseOptionalDay(trendTo); err != nil {
			return fmt.Errorf("--to: %w", err)
		}

		return getApp().Trend(cmd.Context(), opts)
	},
}

func init() {
	trendCmd.Flags().StringVar(&trendCommodity, "commodity", "", "Commodity name")
	trendCmd.Flags().StringVar(&trendPeriod, "period", "daily", "Bucketing period: daily, weekly, monthly")
	trendCmd.Flags().StringVar(&trendFrom, "from", "", "Window start (YYYY-MM-DD)")
	trendCmd.Flags().StringVar(&trendTo, "to", "", "Window end (YYYY-MM-DD)")
}

func parseOptionalDay(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
