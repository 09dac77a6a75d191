package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"commodity-price-intel/internal/analytics"
)

// Trend prints the bucketed series and change rates for one commodity.
func (a *App) Trend(ctx context.Context, opts TrendOptions) error {
	period, err := analytics.ParsePeriod(opts.Period)
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot query trend")
	}
	defer closeStore()

	commodity, err := store.FindCommodityByName(ctx, opts.Commodity)
	if err != nil {
		return fmt.Errorf("unknown commodity %q: %w", opts.Commodity, err)
	}

	engine := a.newAnalyticsEngine(store)
	trend, err := engine.Trend(ctx, analytics.TrendQuery{
		CommodityID: commodity.ID,
		Period:      period,
		From:        opts.From,
		To:          opts.To,
	})
	if errors.Is(err, analytics.ErrNoData) {
		fmt.Fprintln(os.Stdout, "no data in window")
		return nil
	}
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Bucket\tPrice")
	for _, b := range trend.Series {
		fmt.Fprintf(writer, "%s\t%d\n", b.Date.Format("2006-01-02"), b.Price)
	}
	writer.Flush()

	if change := trend.Change; change != nil {
		fmt.Fprintf(os.Stdout, "current: %d\n", change.Current)
		printWindow("week", change.Week)
		printWindow("month", change.Month)
	}
	return nil
}

func printWindow(name string, w *analytics.WindowChange) {
	if w == nil {
		fmt.Fprintf(os.Stdout, "%s change: no data\n", name)
		return
	}
	fmt.Fprintf(os.Stdout, "%s change: %s%% (%+d)\n", name, w.Percent.StringFixed(2), w.Diff)
}
