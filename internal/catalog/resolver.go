package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"commodity-price-intel/internal/logging"
	"commodity-price-intel/internal/storage"
)

// trailing parenthetical unit annotation, e.g. "Spinach(1kg)".
var unitAnnotation = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// Resolver maps free-text quote names to canonical commodities, creating a
// new record on first sight. Lookup goes by the source code pair first, which
// stays stable even when display names drift.
type Resolver struct {
	commodities storage.CommodityStore
	logger      zerolog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(commodities storage.CommodityStore, logger zerolog.Logger) *Resolver {
	return &Resolver{
		commodities: commodities,
		logger:      logging.Component(logger, "commodity_resolver"),
	}
}

// Resolve returns the canonical commodity for a quote, creating it when the
// source code pair is unknown. Idempotent: repeated calls with the same codes
// return the same record.
func (r *Resolver) Resolve(ctx context.Context, displayName, categoryCode, itemCode, kindCode string) (storage.Commodity, error) {
	existing, err := r.commodities.FindCommodityByExternalCode(ctx, itemCode, kindCode)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.Commodity{}, fmt.Errorf("lookup commodity by code: %w", err)
	}

	commodity := storage.Commodity{
		Name:         CanonicalName(displayName),
		CategoryCode: categoryCode,
		Unit:         "kg",
		ItemCode:     itemCode,
		KindCode:     kindCode,
	}

	created, err := r.commodities.InsertCommodity(ctx, commodity)
	if err != nil {
		return storage.Commodity{}, fmt.Errorf("create commodity: %w", err)
	}

	r.logger.Info().
		Str("name", created.Name).
		Str("item_code", itemCode).
		Str("kind_code", kindCode).
		Msg("new commodity registered")
	return created, nil
}

// CanonicalName strips the trailing parenthetical unit annotation from a
// display name: "Spinach(1kg)" becomes "Spinach".
func CanonicalName(displayName string) string {
	name := unitAnnotation.ReplaceAllString(displayName, "")
	return strings.TrimSpace(name)
}
