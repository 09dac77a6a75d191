package ingest

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// eggWeightKg is the fixed per-egg weight used when quotes are priced by
// count instead of weight.
var eggWeightKg = decimal.NewFromFloat(0.06)

var gramsPerKg = decimal.NewFromInt(1000)

// trailing numeric+unit token: "4kg", "100g", "10개", "10 eggs", possibly
// inside a closing parenthesis.
var unitToken = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(kg|g|개|ea|eggs?)\s*\)?\s*$`)

// ParseWeight extracts the declared weight (in kilograms) from a quote's
// display name. Count-based units use the egg-equivalent weight. The second
// return is false when no parseable unit token exists.
func ParseWeight(displayName string) (decimal.Decimal, bool) {
	match := unitToken.FindStringSubmatch(displayName)
	if match == nil {
		return decimal.Decimal{}, false
	}

	amount, err := decimal.NewFromString(match[1])
	if err != nil || amount.IsZero() {
		return decimal.Decimal{}, false
	}

	switch strings.ToLower(match[2]) {
	case "kg":
		return amount, true
	case "g":
		return amount.Div(gramsPerKg), true
	default:
		// counted units: 개, ea, egg(s)
		return amount.Mul(eggWeightKg), true
	}
}

// NormalizePrice rescales a quoted price to a per-kilogram basis using the
// weight declared in the display name. Names without a parseable unit keep
// the raw price unchanged.
func NormalizePrice(price int64, displayName string) int64 {
	weight, ok := ParseWeight(displayName)
	if !ok || !weight.IsPositive() {
		return price
	}
	return decimal.NewFromInt(price).Div(weight).Round(0).IntPart()
}
