package alerting

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"commodity-price-intel/internal/logging"
	"commodity-price-intel/internal/storage"
)

// PriceEvent carries one newly persisted price to the notification worker.
type PriceEvent struct {
	Commodity  storage.Commodity
	Price      int64
	ObservedAt time.Time
}

// Worker decouples alert matching from the ingestion write path: ingestion
// publishes events to a buffered channel and a single goroutine drains it, so
// notification latency or failure never holds up the next price write.
type Worker struct {
	events  chan PriceEvent
	matcher *Matcher
	logger  zerolog.Logger
}

// NewWorker constructs the notification worker.
func NewWorker(matcher *Matcher, queueSize int, logger zerolog.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Worker{
		events:  make(chan PriceEvent, queueSize),
		matcher: matcher,
		logger:  logging.Component(logger, "alert_worker"),
	}
}

// Start drains the event queue until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-w.events:
			w.matcher.Trigger(ctx, ev.Commodity, ev.Price, ev.ObservedAt)
		}
	}
}

// Trigger publishes the event without blocking the caller. A full queue drops
// the event with a warning rather than stalling ingestion.
func (w *Worker) Trigger(ctx context.Context, commodity storage.Commodity, price int64, observedAt time.Time) {
	select {
	case w.events <- PriceEvent{Commodity: commodity, Price: price, ObservedAt: observedAt}:
	default:
		w.logger.Warn().
			Str("commodity", commodity.Name).
			Int64("price", price).
			Msg("alert queue full; event dropped")
	}
}
