package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// Simulate pushes a synthetic price for a commodity through the alert
// matching path without touching the price store. Useful for verifying
// thresholds and notification routing end to end.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	if opts.Price <= 0 {
		return errors.New("price must be positive")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot simulate")
	}
	defer closeStore()

	commodity, err := store.FindCommodityByName(ctx, opts.Commodity)
	if err != nil {
		return fmt.Errorf("unknown commodity %q: %w", opts.Commodity, err)
	}

	matcher := a.newMatcher(store)
	fired, err := matcher.Match(ctx, commodity, opts.Price, time.Now().UTC())
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "simulated price %d for %s: %d alert(s) fired\n", opts.Price, commodity.Name, fired)
	return nil
}
