package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"commodity-price-intel/internal/logging"
	"commodity-price-intel/internal/storage"
)

// ErrNoData indicates the requested window holds no price points.
var ErrNoData = errors.New("analytics: no data")

// Period selects the bucketing granularity.
type Period string

// Supported bucketing periods.
const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod converts a query string to a Period.
func ParsePeriod(raw string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(raw))) {
	case PeriodDaily:
		return PeriodDaily, nil
	case PeriodWeekly:
		return PeriodWeekly, nil
	case PeriodMonthly:
		return PeriodMonthly, nil
	default:
		return "", fmt.Errorf("unknown period %q", raw)
	}
}

// TrendQuery parameterises a trend request. From/To may be nil, in which case
// the period's default lookback anchored at now applies.
type TrendQuery struct {
	CommodityID int64
	Period      Period
	From        *time.Time
	To          *time.Time
	PriceType   string
	Region      string
}

// BucketPoint is one aggregated bucket of a series.
type BucketPoint struct {
	Date  time.Time
	Price int64
}

// WindowChange is the delta versus one historical comparison window.
type WindowChange struct {
	Percent decimal.Decimal
	Diff    int64
}

// ChangeRate holds the current price and per-window deltas. A nil window
// means no historical point was available, not a zero change.
type ChangeRate struct {
	Current int64
	Day     *WindowChange
	Week    *WindowChange
	Month   *WindowChange
}

// Trend is a bucketed series plus its change rate.
type Trend struct {
	CommodityID int64
	Period      Period
	Series      []BucketPoint
	Change      *ChangeRate
}

// LatestPrice is the newest observation with day/week/month comparisons.
type LatestPrice struct {
	CommodityID int64
	Price       int64
	CollectedAt time.Time
	Change      ChangeRate
}

// SeriesReader is the slice of the store the engine reads from.
type SeriesReader interface {
	SelectByRange(ctx context.Context, commodityID int64, from, to time.Time, priceType, region string) ([]storage.PricePoint, error)
	SelectLatest(ctx context.Context, commodityID int64, priceType, region string) (storage.PricePoint, error)
}

// Options default the series selector tags.
type Options struct {
	PriceType string
	Region    string
}

// Engine buckets raw points into day/week/month series and computes change
// rates against prior windows.
type Engine struct {
	store  SeriesReader
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// NewEngine constructs the aggregation engine.
func NewEngine(store SeriesReader, opts Options, logger zerolog.Logger) *Engine {
	if opts.PriceType == "" {
		opts.PriceType = storage.PriceTypeRetail
	}
	return &Engine{
		store:  store,
		opts:   opts,
		logger: logging.Component(logger, "analytics_engine"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Trend returns the bucketed series for the query window plus week/month
// change rates computed on the series.
func (e *Engine) Trend(ctx context.Context, q TrendQuery) (Trend, error) {
	priceType, region := e.tags(q.PriceType, q.Region)

	to := e.now()
	if q.To != nil {
		to = q.To.UTC()
	}
	from := defaultFrom(q.Period, to)
	if q.From != nil {
		from = q.From.UTC()
	}

	points, err := e.store.SelectByRange(ctx, q.CommodityID, from, to.Add(time.Second), priceType, region)
	if err != nil {
		return Trend{}, fmt.Errorf("select range: %w", err)
	}
	if len(points) == 0 {
		return Trend{}, ErrNoData
	}

	series := bucketize(points, q.Period)

	trend := Trend{
		CommodityID: q.CommodityID,
		Period:      q.Period,
		Series:      series,
	}

	latest := series[len(series)-1]
	trend.Change = &ChangeRate{
		Current: latest.Price,
		Week:    changeAgainst(series, latest, latest.Date.AddDate(0, 0, -7)),
		Month:   changeAgainst(series, latest, latest.Date.AddDate(0, -1, 0)),
	}

	return trend, nil
}

// LatestWithChanges returns the newest point and its 1-day, 1-week, and
// 1-month comparisons, each against the stored point closest to the anchor.
func (e *Engine) LatestWithChanges(ctx context.Context, commodityID int64) (LatestPrice, error) {
	priceType, region := e.tags("", "")

	latest, err := e.store.SelectLatest(ctx, commodityID, priceType, region)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return LatestPrice{}, ErrNoData
		}
		return LatestPrice{}, fmt.Errorf("select latest: %w", err)
	}

	// one month back plus slack so the closest-point search has candidates
	from := latest.CollectedAt.AddDate(0, -1, -5)
	points, err := e.store.SelectByRange(ctx, commodityID, from, latest.CollectedAt.Add(time.Second), priceType, region)
	if err != nil {
		return LatestPrice{}, fmt.Errorf("select history: %w", err)
	}

	history := make([]BucketPoint, 0, len(points))
	for _, p := range points {
		if p.ID == latest.ID {
			continue
		}
		history = append(history, BucketPoint{Date: p.CollectedAt, Price: p.Price})
	}

	current := BucketPoint{Date: latest.CollectedAt, Price: latest.Price}
	return LatestPrice{
		CommodityID: commodityID,
		Price:       latest.Price,
		CollectedAt: latest.CollectedAt,
		Change: ChangeRate{
			Current: latest.Price,
			Day:     changeFrom(history, current, latest.CollectedAt.AddDate(0, 0, -1)),
			Week:    changeFrom(history, current, latest.CollectedAt.AddDate(0, 0, -7)),
			Month:   changeFrom(history, current, latest.CollectedAt.AddDate(0, -1, 0)),
		},
	}, nil
}

// LatestBatch resolves a comma-separated id list independently, silently
// omitting ids that error or have no data.
func (e *Engine) LatestBatch(ctx context.Context, idsCSV string) map[int64]LatestPrice {
	out := make(map[int64]LatestPrice)
	for _, token := range strings.Split(idsCSV, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		id, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			e.logger.Debug().Str("id", token).Msg("unparseable id skipped")
			continue
		}
		latest, err := e.LatestWithChanges(ctx, id)
		if err != nil {
			continue
		}
		out[id] = latest
	}
	return out
}

func (e *Engine) tags(priceType, region string) (string, string) {
	if priceType == "" {
		priceType = e.opts.PriceType
	}
	if region == "" {
		region = e.opts.Region
	}
	return priceType, region
}

func defaultFrom(period Period, to time.Time) time.Time {
	switch period {
	case PeriodWeekly:
		return to.AddDate(0, 0, -7)
	case PeriodMonthly:
		return to.AddDate(0, -1, 0)
	default:
		return to.AddDate(0, 0, -1)
	}
}

// bucketize groups points into period buckets and takes the integer-rounded
// arithmetic mean of each bucket.
func bucketize(points []storage.PricePoint, period Period) []BucketPoint {
	type acc struct {
		sum   decimal.Decimal
		count int64
	}

	buckets := make(map[time.Time]*acc)
	for _, p := range points {
		key := bucketDate(period, p.CollectedAt)
		a, ok := buckets[key]
		if !ok {
			a = &acc{}
			buckets[key] = a
		}
		a.sum = a.sum.Add(decimal.NewFromInt(p.Price))
		a.count++
	}

	series := make([]BucketPoint, 0, len(buckets))
	for date, a := range buckets {
		mean := a.sum.Div(decimal.NewFromInt(a.count)).Round(0).IntPart()
		series = append(series, BucketPoint{Date: date, Price: mean})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series
}

// bucketDate maps a timestamp to its bucket: the calendar day, the Monday of
// its week, or the 1st of its month.
func bucketDate(period Period, t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch period {
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case PeriodMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

// changeAgainst compares the latest bucket to the series point closest to the
// anchor, excluding the latest bucket itself.
func changeAgainst(series []BucketPoint, latest BucketPoint, anchor time.Time) *WindowChange {
	history := make([]BucketPoint, 0, len(series))
	for _, b := range series {
		if b.Date.Equal(latest.Date) {
			continue
		}
		history = append(history, b)
	}
	return changeFrom(history, latest, anchor)
}

// changeFrom computes the delta between current and the history point closest
// (by absolute day distance) to the anchor. Nil when history is empty.
func changeFrom(history []BucketPoint, current BucketPoint, anchor time.Time) *WindowChange {
	old, ok := closestTo(history, anchor)
	if !ok || old.Price == 0 {
		return nil
	}

	percent := decimal.NewFromInt(current.Price).
		Sub(decimal.NewFromInt(old.Price)).
		Div(decimal.NewFromInt(old.Price)).
		Mul(decimal.NewFromInt(100)).
		RoundBank(2)

	return &WindowChange{
		Percent: percent,
		Diff:    current.Price - old.Price,
	}
}

func closestTo(points []BucketPoint, anchor time.Time) (BucketPoint, bool) {
	if len(points) == 0 {
		return BucketPoint{}, false
	}

	best := points[0]
	bestDist := absDuration(points[0].Date.Sub(anchor))
	for _, p := range points[1:] {
		dist := absDuration(p.Date.Sub(anchor))
		if dist < bestDist {
			best = p
			bestDist = dist
		}
	}
	return best, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
