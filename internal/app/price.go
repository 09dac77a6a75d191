package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
)

// Price resolves one or more names through the fallback chain and prints the
// result. Names no layer resolves are reported as not found, not errors.
func (a *App) Price(ctx context.Context, opts PriceOptions) error {
	if len(opts.Names) == 0 {
		return errors.New("at least one name required")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := a.newPricingService(store)
	quotes := svc.GetPrices(ctx, opts.Names)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Name\tPrice\tSource")
	for _, name := range opts.Names {
		if quote, ok := quotes[name]; ok {
			fmt.Fprintf(writer, "%s\t%d\t%s\n", name, quote.Price, quote.Source)
		} else {
			fmt.Fprintf(writer, "%s\t-\tnot found\n", name)
		}
	}
	writer.Flush()
	return nil
}
