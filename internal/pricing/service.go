package pricing

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"commodity-price-intel/internal/fetcher"
	"commodity-price-intel/internal/logging"
	"commodity-price-intel/internal/storage"
)

// ErrNotFound indicates no layer of the fallback chain produced a price.
var ErrNotFound = errors.New("pricing: price not found")

// Resolution sources, in fallback order.
const (
	SourceStore     = "store"
	SourceLive      = "live"
	SourceReference = "reference"
)

// Quote is a resolved current price and where it came from.
type Quote struct {
	Name   string
	Price  int64
	Source string
}

// PriceReader is the slice of the store the resolution service needs.
type PriceReader interface {
	FindCommodityByName(ctx context.Context, name string) (storage.Commodity, error)
	SelectLatest(ctx context.Context, commodityID int64, priceType, region string) (storage.PricePoint, error)
}

// Options select which stored series answers layer one.
type Options struct {
	PriceType string
	Region    string
}

// Service answers "current price of X" through a layered fallback chain:
// stored latest point, then a live secondary source, then the static
// reference table. Each layer's failure means "this layer found nothing" and
// never aborts the chain.
type Service struct {
	store  PriceReader
	live   fetcher.LivePriceFetcher
	ref    *ReferenceTable
	opts   Options
	logger zerolog.Logger
}

// NewService constructs the resolution service. live and ref may be nil.
func NewService(store PriceReader, live fetcher.LivePriceFetcher, ref *ReferenceTable, opts Options, logger zerolog.Logger) *Service {
	if opts.PriceType == "" {
		opts.PriceType = storage.PriceTypeRetail
	}
	return &Service{
		store:  store,
		live:   live,
		ref:    ref,
		opts:   opts,
		logger: logging.Component(logger, "price_resolution"),
	}
}

// GetPrice resolves one name. Returns ErrNotFound when every layer misses.
func (s *Service) GetPrice(ctx context.Context, name string) (Quote, error) {
	if price, ok := s.fromStore(ctx, name); ok {
		return Quote{Name: name, Price: price, Source: SourceStore}, nil
	}
	if price, ok := s.fromLive(ctx, name); ok {
		return Quote{Name: name, Price: price, Source: SourceLive}, nil
	}
	if price, ok := s.ref.Lookup(name); ok {
		return Quote{Name: name, Price: price, Source: SourceReference}, nil
	}
	return Quote{}, ErrNotFound
}

// GetPrices applies the chain per name, omitting names no layer resolves.
// Partial results are success.
func (s *Service) GetPrices(ctx context.Context, names []string) map[string]Quote {
	out := make(map[string]Quote, len(names))
	for _, name := range names {
		quote, err := s.GetPrice(ctx, name)
		if err != nil {
			continue
		}
		out[name] = quote
	}
	return out
}

func (s *Service) fromStore(ctx context.Context, name string) (int64, bool) {
	if s.store == nil {
		return 0, false
	}

	commodity, err := s.store.FindCommodityByName(ctx, name)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug().Err(err).Str("name", name).Msg("store lookup failed; falling through")
		}
		return 0, false
	}

	point, err := s.store.SelectLatest(ctx, commodity.ID, s.opts.PriceType, s.opts.Region)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug().Err(err).Str("name", name).Msg("latest point lookup failed; falling through")
		}
		return 0, false
	}
	return point.Price, true
}

func (s *Service) fromLive(ctx context.Context, name string) (int64, bool) {
	if s.live == nil {
		return 0, false
	}

	price, err := s.live.FetchPrice(ctx, name)
	if err != nil {
		s.logger.Debug().Err(err).Str("name", name).Msg("live lookup failed; falling through")
		return 0, false
	}
	if price <= 0 {
		return 0, false
	}
	return price, true
}
