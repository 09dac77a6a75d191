package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"

	"commodity-price-intel/internal/alerting"
)

// AlertAddOptions configure a new threshold subscription.
type AlertAddOptions struct {
	Subscriber string
	Commodity  string
	Threshold  int64
	Direction  string
}

// AlertAdd registers a threshold for a subscriber.
func (a *App) AlertAdd(ctx context.Context, opts AlertAddOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot manage alerts")
	}
	defer closeStore()

	commodity, err := store.FindCommodityByName(ctx, opts.Commodity)
	if err != nil {
		return fmt.Errorf("unknown commodity %q: %w", opts.Commodity, err)
	}

	manager := alerting.NewManager(store, a.Logger)
	created, err := manager.Create(ctx, opts.Subscriber, commodity.ID, opts.Threshold, opts.Direction)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "alert %s created: %s %s %d\n", created.ID, commodity.Name, created.Direction, created.Threshold)
	return nil
}

// AlertList prints a subscriber's thresholds.
func (a *App) AlertList(ctx context.Context, subscriber string) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot manage alerts")
	}
	defer closeStore()

	manager := alerting.NewManager(store, a.Logger)
	alerts, err := manager.List(ctx, subscriber)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alert subscriptions")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tCommodity ID\tThreshold\tDirection\tEnabled")
	for _, sub := range alerts {
		fmt.Fprintf(writer, "%s\t%d\t%d\t%s\t%t\n", sub.ID, sub.CommodityID, sub.Threshold, sub.Direction, sub.Enabled)
	}
	writer.Flush()
	return nil
}

// AlertDelete removes one threshold by id.
func (a *App) AlertDelete(ctx context.Context, id string) error {
	alertID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid alert id: %w", err)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot manage alerts")
	}
	defer closeStore()

	manager := alerting.NewManager(store, a.Logger)
	if err := manager.Delete(ctx, alertID); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "alert deleted")
	return nil
}
