package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Show prints recent price points.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show points")
	}
	defer closeStore()

	points, err := store.ListRecentPoints(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		fmt.Fprintln(os.Stdout, "no price points found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Collected (UTC)\tCommodity\tPrice\tType\tRegion")

	for _, p := range points {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%d\t%s\t%s\n",
			p.CollectedAt.UTC().Format(time.RFC3339),
			sanitizeInline(p.CommodityName),
			p.Price,
			p.PriceType,
			p.Region,
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
