package fetcher

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrSourceUnavailable indicates the upstream source failed or timed out.
	ErrSourceUnavailable = errors.New("fetcher: source unavailable")
	// ErrPriceUnavailable indicates the quote carried no usable price value.
	ErrPriceUnavailable = errors.New("fetcher: price unavailable")
)

// RawQuote is the uniform shape produced by every quote source adapter.
type RawQuote struct {
	ItemName string
	ItemCode string
	KindCode string
	// Price is the raw string from the source: comma-grouped digits, or "-"
	// when the source has no observation.
	Price  string
	Rank   string
	County string
	Day    time.Time
}

// QuoteFetcher retrieves raw quote records from an upstream data source.
type QuoteFetcher interface {
	FetchByCategory(ctx context.Context, categoryCode string, day time.Time) ([]RawQuote, error)
	FetchByItem(ctx context.Context, categoryCode, itemCode, kindCode string, from, to time.Time) ([]RawQuote, error)
}

// LivePriceFetcher answers a single free-text price lookup against a
// secondary live source.
type LivePriceFetcher interface {
	FetchPrice(ctx context.Context, name string) (int64, error)
}

// ParsePrice converts a source price string to integer currency units.
// Returns ErrPriceUnavailable for the "-" placeholder and empty strings.
func ParsePrice(raw string) (int64, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" || cleaned == "-" {
		return 0, ErrPriceUnavailable
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	value, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, errors.Join(ErrPriceUnavailable, err)
	}
	return value, nil
}
