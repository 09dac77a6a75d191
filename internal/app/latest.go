package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"commodity-price-intel/internal/analytics"
)

// LatestOptions selects either one commodity by name or a batch by id.
type LatestOptions struct {
	Commodity string
	IDs       string
}

// Latest prints the newest stored price with day/week/month comparisons.
// With IDs set it renders one table row per resolvable id instead.
func (a *App) Latest(ctx context.Context, opts LatestOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot query latest prices")
	}
	defer closeStore()

	engine := a.newAnalyticsEngine(store)

	if opts.IDs != "" {
		return renderLatestBatch(engine.LatestBatch(ctx, opts.IDs))
	}

	commodity, err := store.FindCommodityByName(ctx, opts.Commodity)
	if err != nil {
		return fmt.Errorf("unknown commodity %q: %w", opts.Commodity, err)
	}

	latest, err := engine.LatestWithChanges(ctx, commodity.ID)
	if errors.Is(err, analytics.ErrNoData) {
		fmt.Fprintln(os.Stdout, "no data")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%s: %d (%s)\n", commodity.Name, latest.Price, latest.CollectedAt.Format("2006-01-02"))
	printWindow("day", latest.Change.Day)
	printWindow("week", latest.Change.Week)
	printWindow("month", latest.Change.Month)
	return nil
}

func renderLatestBatch(prices map[int64]analytics.LatestPrice) error {
	if len(prices) == 0 {
		fmt.Fprintln(os.Stdout, "no data")
		return nil
	}

	ids := make([]int64, 0, len(prices))
	for id := range prices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tPrice\tCollected\tDay\tWeek\tMonth")
	for _, id := range ids {
		p := prices[id]
		fmt.Fprintf(writer, "%d\t%d\t%s\t%s\t%s\t%s\n",
			id, p.Price, p.CollectedAt.Format("2006-01-02"),
			windowCell(p.Change.Day), windowCell(p.Change.Week), windowCell(p.Change.Month))
	}
	return writer.Flush()
}

func windowCell(w *analytics.WindowChange) string {
	if w == nil {
		return "-"
	}
	return fmt.Sprintf("%s%% (%+d)", w.Percent.StringFixed(2), w.Diff)
}
