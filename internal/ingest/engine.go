package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"commodity-price-intel/internal/catalog"
	"commodity-price-intel/internal/fetcher"
	"commodity-price-intel/internal/logging"
	"commodity-price-intel/internal/storage"
)

// AlertTrigger receives every newly persisted price. Implementations must be
// fire-and-continue: failures are theirs to log, never to propagate.
type AlertTrigger interface {
	Trigger(ctx context.Context, commodity storage.Commodity, price int64, observedAt time.Time)
}

// Options tune reconciliation behaviour.
type Options struct {
	// PriceType tags stored points ("retail" or "wholesale").
	PriceType string
	// Rank filters quotes to the representative grade.
	Rank string
	// AverageCounty identifies the synthetic aggregate row to prefer.
	AverageCounty string
	// Workers bounds parallel category processing in a full sweep.
	Workers int
}

// CategoryReport is one category's sweep outcome.
type CategoryReport struct {
	Category string
	Label    string
	Saved    int
	Skipped  int
	// Unavailable counts quotes carrying the "-" placeholder: the source
	// had no observation that day, which is not a failure.
	Unavailable int
	Failed      int
	Err         error
}

// SweepReport aggregates a full sync across all categories.
type SweepReport struct {
	Day        time.Time
	Categories []CategoryReport
}

// TotalSaved sums saved points across categories.
func (r SweepReport) TotalSaved() int {
	total := 0
	for _, c := range r.Categories {
		total += c.Saved
	}
	return total
}

// FailedCategories counts categories that failed at the category boundary.
func (r SweepReport) FailedCategories() int {
	total := 0
	for _, c := range r.Categories {
		if c.Err != nil {
			total++
		}
	}
	return total
}

// Engine reconciles incoming quotes against the price store: deduplicate,
// normalize units, persist, and hand new points to the alert trigger.
type Engine struct {
	primary  fetcher.QuoteFetcher
	resolver *catalog.Resolver
	store    storage.PriceStore
	alerts   AlertTrigger
	logger   zerolog.Logger
	opts     Options
	locks    commodityLocks
}

// NewEngine constructs the reconciliation engine. alerts may be nil.
func NewEngine(primary fetcher.QuoteFetcher, resolver *catalog.Resolver, store storage.PriceStore, alerts AlertTrigger, opts Options, logger zerolog.Logger) *Engine {
	if opts.PriceType == "" {
		opts.PriceType = storage.PriceTypeRetail
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Engine{
		primary:  primary,
		resolver: resolver,
		store:    store,
		alerts:   alerts,
		logger:   logging.Component(logger, "ingest_engine"),
		opts:     opts,
		locks:    commodityLocks{locks: make(map[int64]*sync.Mutex)},
	}
}

// SyncAll sweeps every known category for the given day. Category failures
// are captured per entry and never abort the other categories.
func (e *Engine) SyncAll(ctx context.Context, day time.Time) SweepReport {
	codes := Categories()
	reports := make([]CategoryReport, len(codes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	for i, code := range codes {
		i, code := i, code
		g.Go(func() error {
			reports[i] = e.SyncCategory(gctx, code, day)
			return nil
		})
	}
	// workers never return errors; failures live in the reports
	_ = g.Wait()

	report := SweepReport{Day: day, Categories: reports}
	e.logger.Info().
		Time("day", day).
		Int("saved", report.TotalSaved()).
		Int("failed_categories", report.FailedCategories()).
		Msg("sweep finished")
	return report
}

// SyncCategory reconciles one category for one day.
func (e *Engine) SyncCategory(ctx context.Context, categoryCode string, day time.Time) CategoryReport {
	report := CategoryReport{Category: categoryCode, Label: CategoryLabel(categoryCode)}

	quotes, err := e.primary.FetchByCategory(ctx, categoryCode, day)
	if err != nil {
		report.Err = err
		e.logger.Error().Err(err).Str("category", categoryCode).Msg("category fetch failed")
		return report
	}

	for _, quote := range e.selectRepresentative(quotes) {
		select {
		case <-ctx.Done():
			report.Err = ctx.Err()
			return report
		default:
		}

		outcome := e.reconcileQuote(ctx, categoryCode, quote, day)
		switch outcome {
		case outcomeSaved:
			report.Saved++
		case outcomeDuplicate:
			report.Skipped++
		case outcomeUnavailable:
			report.Unavailable++
		case outcomeFailed:
			report.Failed++
		}
	}

	e.logger.Info().
		Str("category", categoryCode).
		Str("label", report.Label).
		Int("saved", report.Saved).
		Int("skipped", report.Skipped).
		Int("unavailable", report.Unavailable).
		Int("failed", report.Failed).
		Msg("category reconciled")
	return report
}

type reconcileOutcome int

const (
	outcomeSaved reconcileOutcome = iota
	outcomeDuplicate
	outcomeUnavailable
	outcomeFailed
)

func (e *Engine) reconcileQuote(ctx context.Context, categoryCode string, quote fetcher.RawQuote, day time.Time) reconcileOutcome {
	rawPrice, err := fetcher.ParsePrice(quote.Price)
	if err != nil {
		e.logger.Debug().Str("item", quote.ItemName).Str("price", quote.Price).Msg("no usable price, quote skipped")
		return outcomeUnavailable
	}

	commodity, err := e.resolver.Resolve(ctx, quote.ItemName, categoryCode, quote.ItemCode, quote.KindCode)
	if err != nil {
		e.logger.Error().Err(err).Str("item", quote.ItemName).Msg("commodity resolution failed")
		return outcomeFailed
	}

	region := quote.County
	if region == "" {
		region = e.opts.AverageCounty
	}

	// writes for one commodity are serialized so parallel categories cannot
	// race the one-point-per-day check
	unlock := e.locks.lock(commodity.ID)
	defer unlock()

	exists, err := e.store.ExistsForDay(ctx, commodity.ID, e.opts.PriceType, region, day)
	if err != nil {
		e.logger.Error().Err(err).Str("item", quote.ItemName).Msg("duplicate check failed")
		return outcomeFailed
	}
	if exists {
		return outcomeDuplicate
	}

	price := NormalizePrice(rawPrice, quote.ItemName)

	collectedAt := quote.Day
	if collectedAt.IsZero() {
		collectedAt = day
	}

	inserted, err := e.store.InsertPricePoint(ctx, storage.PricePoint{
		CommodityID: commodity.ID,
		Price:       price,
		PriceType:   e.opts.PriceType,
		Region:      region,
		CollectedAt: collectedAt,
	})
	if err != nil {
		e.logger.Error().Err(err).Str("item", quote.ItemName).Msg("price point insert failed")
		return outcomeFailed
	}
	if !inserted {
		return outcomeDuplicate
	}

	if e.alerts != nil {
		e.alerts.Trigger(ctx, commodity, price, collectedAt)
	}
	return outcomeSaved
}

// selectRepresentative filters quotes to the representative rank and, when an
// item carries rows for several counties, prefers the synthetic aggregate row.
func (e *Engine) selectRepresentative(quotes []fetcher.RawQuote) []fetcher.RawQuote {
	type itemKey struct{ item, kind string }

	picked := make(map[itemKey]fetcher.RawQuote)
	order := make([]itemKey, 0, len(quotes))

	for _, q := range quotes {
		if e.opts.Rank != "" && q.Rank != "" && q.Rank != e.opts.Rank {
			continue
		}

		key := itemKey{q.ItemCode, q.KindCode}
		current, seen := picked[key]
		if !seen {
			picked[key] = q
			order = append(order, key)
			continue
		}
		if e.opts.AverageCounty != "" && current.County != e.opts.AverageCounty && q.County == e.opts.AverageCounty {
			picked[key] = q
		}
	}

	out := make([]fetcher.RawQuote, 0, len(order))
	for _, key := range order {
		out = append(out, picked[key])
	}
	return out
}

// commodityLocks serializes writes per commodity id.
type commodityLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (c *commodityLocks) lock(id int64) (unlock func()) {
	c.mu.Lock()
	m, ok := c.locks[id]
	if !ok {
		m = &sync.Mutex{}
		c.locks[id] = m
	}
	c.mu.Unlock()

	m.Lock()
	return m.Unlock
}
