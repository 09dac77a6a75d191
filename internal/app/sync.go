package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"commodity-price-intel/internal/catalog"
	"commodity-price-intel/internal/ingest"
)

// Sync runs an on-demand reconciliation sweep and prints the report. Alert
// matching runs synchronously here since there is no daemon worker.
func (a *App) Sync(ctx context.Context, opts SyncOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot sync")
	}
	defer closeStore()

	resolver := catalog.NewResolver(store, a.Logger)
	engine := ingest.NewEngine(a.newPrimaryFetcher(), resolver, store, a.newMatcher(store), a.ingestOptions(), a.Logger)

	var reports []ingest.CategoryReport
	if opts.Category != "" {
		reports = []ingest.CategoryReport{engine.SyncCategory(ctx, opts.Category, opts.Date)}
	} else {
		reports = engine.SyncAll(ctx, opts.Date).Categories
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Category\tLabel\tSaved\tSkipped\tUnavailable\tFailed\tError")
	for _, r := range reports {
		errMsg := ""
		if r.Err != nil {
			errMsg = r.Err.Error()
		}
		fmt.Fprintf(writer, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n", r.Category, r.Label, r.Saved, r.Skipped, r.Unavailable, r.Failed, errMsg)
	}
	writer.Flush()

	for _, r := range reports {
		if r.Err != nil {
			return errors.New("some categories failed; see report")
		}
	}
	return nil
}
