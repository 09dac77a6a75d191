package fetcher

import (
	"context"
	"time"
)

// Static serves a canned set of quotes. Used by dry runs and tests where no
// network source should be touched.
type Static struct {
	Quotes []RawQuote
	Err    error
}

// FetchByCategory returns the canned quotes stamped with the requested day.
func (s *Static) FetchByCategory(ctx context.Context, categoryCode string, day time.Time) ([]RawQuote, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]RawQuote, 0, len(s.Quotes))
	for _, q := range s.Quotes {
		q.Day = day
		out = append(out, q)
	}
	return out, nil
}

// FetchByItem filters the canned quotes by code pair.
func (s *Static) FetchByItem(ctx context.Context, categoryCode, itemCode, kindCode string, from, to time.Time) ([]RawQuote, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]RawQuote, 0)
	for _, q := range s.Quotes {
		if q.ItemCode == itemCode && q.KindCode == kindCode {
			out = append(out, q)
		}
	}
	return out, nil
}

// StaticLive answers every lookup with one fixed price.
type StaticLive struct {
	Price int64
	Err   error
}

// FetchPrice returns the fixed price.
func (s *StaticLive) FetchPrice(ctx context.Context, name string) (int64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	return s.Price, nil
}

var (
	_ QuoteFetcher     = (*Static)(nil)
	_ LivePriceFetcher = (*StaticLive)(nil)
)
