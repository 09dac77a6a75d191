package alerting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"commodity-price-intel/internal/logging"
	"commodity-price-intel/internal/storage"
)

// NotificationType tags price alert entries in the notification log.
const NotificationType = "price-alert"

// Matcher compares newly ingested prices against subscriber thresholds and
// dispatches one notification per matching subscription. No dedup across
// repeated triggers: every qualifying ingestion re-fires.
type Matcher struct {
	alerts storage.AlertStore
	sink   Sink
	logger zerolog.Logger
}

// NewMatcher constructs a Matcher. sink may be nil, in which case matches are
// only logged.
func NewMatcher(alerts storage.AlertStore, sink Sink, logger zerolog.Logger) *Matcher {
	return &Matcher{
		alerts: alerts,
		sink:   sink,
		logger: logging.Component(logger, "alert_matcher"),
	}
}

// Match finds the enabled subscriptions satisfied by price and notifies each.
// Returns how many notifications were dispatched.
func (m *Matcher) Match(ctx context.Context, commodity storage.Commodity, price int64, observedAt time.Time) (int, error) {
	targets, err := m.alerts.ListTargets(ctx, commodity.ID, price)
	if err != nil {
		return 0, fmt.Errorf("list alert targets: %w", err)
	}

	fired := 0
	for _, sub := range targets {
		message := renderMessage(commodity, sub, price, observedAt)
		if m.sink != nil {
			id := sub.ID
			if err := m.sink.Log(ctx, sub.SubscriberID, NotificationType, message, &id); err != nil {
				m.logger.Error().Err(err).
					Str("subscriber", sub.SubscriberID).
					Str("alert_id", sub.ID.String()).
					Msg("notification dispatch failed")
				continue
			}
		}
		fired++
		m.logger.Info().
			Str("subscriber", sub.SubscriberID).
			Str("commodity", commodity.Name).
			Int64("price", price).
			Int64("threshold", sub.Threshold).
			Str("direction", sub.Direction).
			Msg("alert fired")
	}
	return fired, nil
}

// Trigger runs Match with every failure isolated. Safe to call from the
// ingestion loop: it never propagates errors and never blocks a following
// item on notification work.
func (m *Matcher) Trigger(ctx context.Context, commodity storage.Commodity, price int64, observedAt time.Time) {
	if _, err := m.Match(ctx, commodity, price, observedAt); err != nil {
		m.logger.Error().Err(err).Str("commodity", commodity.Name).Msg("alert matching failed")
	}
}

func renderMessage(commodity storage.Commodity, sub storage.PriceAlertSubscription, price int64, observedAt time.Time) string {
	builder := strings.Builder{}
	builder.WriteString("[Price Alert]\n")
	builder.WriteString(fmt.Sprintf("Commodity: %s\n", commodity.Name))
	builder.WriteString(fmt.Sprintf("Price: %d per %s\n", price, commodity.Unit))
	builder.WriteString(fmt.Sprintf("Threshold: %d (%s)\n", sub.Threshold, sub.Direction))
	builder.WriteString(fmt.Sprintf("Observed: %s UTC\n", observedAt.UTC().Format(time.RFC3339)))
	return builder.String()
}
