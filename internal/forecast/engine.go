package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"commodity-price-intel/internal/logging"
	"commodity-price-intel/internal/storage"
)

// ErrInsufficientData indicates no history exists to project from.
var ErrInsufficientData = errors.New("forecast: insufficient data")

// Trend labels.
const (
	LabelRising  = "rising"
	LabelFalling = "falling"
	LabelStable  = "stable"
)

// Confidence tiers, a deterministic function of sample size.
const (
	ConfidenceHigh       = "high"
	ConfidenceMediumHigh = "medium-high"
	ConfidenceMedium     = "medium"
	ConfidenceLow        = "low"
)

const (
	baselineWindow = 7
	slopeWindow    = 14
	// previewRounding coarsens the min/max band for unauthenticated callers.
	previewRounding = 100
)

// Point is one projected (future date, price) pair. Derived, never persisted.
type Point struct {
	Date  time.Time
	Price int64
}

// Result is a computed forecast. Points and the exact band are populated only
// for authenticated callers; previews carry the label, a rounded range, and
// the sample count.
type Result struct {
	CommodityID int64
	Current     int64
	Label       string
	Confidence  string
	SampleCount int
	Min         int64
	Max         int64
	Points      []Point
	Preview     bool
}

// SeriesReader is the slice of the store the engine reads from.
type SeriesReader interface {
	SelectByRange(ctx context.Context, commodityID int64, from, to time.Time, priceType, region string) ([]storage.PricePoint, error)
}

// Options tune projection behaviour.
type Options struct {
	FloorPrice  int64
	HistoryDays int
	PriceType   string
	Region      string
}

// Engine projects short-horizon prices from recent history using a moving
// average baseline plus an ordinary least-squares trend.
type Engine struct {
	store  SeriesReader
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// NewEngine constructs the forecasting engine.
func NewEngine(store SeriesReader, opts Options, logger zerolog.Logger) *Engine {
	if opts.FloorPrice <= 0 {
		opts.FloorPrice = 100
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 30
	}
	if opts.PriceType == "" {
		opts.PriceType = storage.PriceTypeRetail
	}
	return &Engine{
		store:  store,
		opts:   opts,
		logger: logging.Component(logger, "forecast_engine"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Forecast projects horizonDays of future prices. The computation is the same
// for every caller; authenticated callers receive the per-day points and the
// exact ±5% band, others a coarse preview.
func (e *Engine) Forecast(ctx context.Context, commodityID int64, horizonDays int, authenticated bool) (Result, error) {
	if horizonDays <= 0 {
		return Result{}, fmt.Errorf("horizon must be positive")
	}

	to := e.now()
	from := to.AddDate(0, 0, -e.opts.HistoryDays)
	points, err := e.store.SelectByRange(ctx, commodityID, from, to.Add(time.Second), e.opts.PriceType, e.opts.Region)
	if err != nil {
		return Result{}, fmt.Errorf("select history: %w", err)
	}
	if len(points) == 0 {
		return Result{}, ErrInsufficientData
	}

	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = float64(p.Price)
	}

	baseline := movingAverage(prices, baselineWindow)
	slope := olsSlope(prices, slopeWindow)

	current := points[len(points)-1].Price
	lastDay := points[len(points)-1].CollectedAt

	projected := make([]Point, 0, horizonDays)
	for i := 1; i <= horizonDays; i++ {
		price := int64(math.Round(baseline + slope*float64(i)))
		if price < e.opts.FloorPrice {
			price = e.opts.FloorPrice
		}
		projected = append(projected, Point{
			Date:  lastDay.AddDate(0, 0, i),
			Price: price,
		})
	}

	final := projected[len(projected)-1].Price
	result := Result{
		CommodityID: commodityID,
		Current:     current,
		Label:       label(current, final),
		Confidence:  confidence(len(points)),
		SampleCount: len(points),
	}

	// ±5% band around the final projected price
	band := decimal.NewFromInt(final).Mul(decimal.NewFromFloat(0.05)).Round(0).IntPart()
	result.Min = final - band
	result.Max = final + band

	if authenticated {
		result.Points = projected
		return result, nil
	}

	result.Preview = true
	result.Min = roundTo(result.Min, previewRounding)
	result.Max = roundTo(result.Max, previewRounding)
	return result, nil
}

// movingAverage averages up to the last window values.
func movingAverage(prices []float64, window int) float64 {
	if len(prices) < window {
		window = len(prices)
	}
	sum := 0.0
	for _, v := range prices[len(prices)-window:] {
		sum += v
	}
	return sum / float64(window)
}

// olsSlope fits price against point index over up to the last window values:
// slope = (n·Σxy − Σx·Σy) / (n·Σx² − (Σx)²).
func olsSlope(prices []float64, window int) float64 {
	if len(prices) < window {
		window = len(prices)
	}
	if window < 2 {
		return 0
	}

	tail := prices[len(prices)-window:]
	n := float64(window)

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range tail {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// label classifies the projection: rising or falling when the final day
// deviates from the current price by more than 2%, stable otherwise.
func label(current, final int64) string {
	if current <= 0 {
		return LabelStable
	}
	pct := (float64(final) - float64(current)) / float64(current) * 100
	switch {
	case pct > 2:
		return LabelRising
	case pct < -2:
		return LabelFalling
	default:
		return LabelStable
	}
}

func confidence(samples int) string {
	switch {
	case samples >= 30:
		return ConfidenceHigh
	case samples >= 20:
		return ConfidenceMediumHigh
	case samples >= 10:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func roundTo(v, step int64) int64 {
	if step <= 0 {
		return v
	}
	return int64(math.Round(float64(v)/float64(step))) * step
}
