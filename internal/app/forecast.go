package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"commodity-price-intel/internal/forecast"
)

// Forecast projects future prices for one commodity and prints them. --full
// stands in for the authenticated caller of the query surface.
func (a *App) Forecast(ctx context.Context, opts ForecastOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot forecast")
	}
	defer closeStore()

	commodity, err := store.FindCommodityByName(ctx, opts.Commodity)
	if err != nil {
		return fmt.Errorf("unknown commodity %q: %w", opts.Commodity, err)
	}

	engine := a.newForecastEngine(store)
	result, err := engine.Forecast(ctx, commodity.ID, opts.Days, opts.Full)
	if errors.Is(err, forecast.ErrInsufficientData) {
		fmt.Fprintln(os.Stdout, "insufficient history to forecast")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "commodity: %s\n", commodity.Name)
	fmt.Fprintf(os.Stdout, "trend: %s (confidence %s, %d samples)\n", result.Label, result.Confidence, result.SampleCount)
	fmt.Fprintf(os.Stdout, "range: %d - %d\n", result.Min, result.Max)

	if result.Preview {
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Date\tProjected")
	for _, p := range result.Points {
		fmt.Fprintf(writer, "%s\t%d\n", p.Date.Format("2006-01-02"), p.Price)
	}
	writer.Flush()
	return nil
}
