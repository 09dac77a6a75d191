package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"commodity-price-intel/internal/logging"
)

// RetailOptions parameterise the secondary live price adapter.
type RetailOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Retail answers free-text price lookups against a secondary retail API. It
// fills the second layer of the price resolution fallback chain.
type Retail struct {
	opts    RetailOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewRetail constructs the secondary adapter.
func NewRetail(opts RetailOptions, logger zerolog.Logger) *Retail {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Retail{
		opts:    opts,
		logger:  logging.Component(logger, "retail_fetcher"),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// FetchPrice looks up the current per-kg price of a named item.
func (r *Retail) FetchPrice(ctx context.Context, name string) (int64, error) {
	if r.baseURL == "" {
		return 0, errors.New("retail base url not configured")
	}
	if strings.TrimSpace(name) == "" {
		return 0, errors.New("item name required")
	}

	endpoint := r.baseURL + "/price?" + url.Values{"name": {name}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(r.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: read body: %v", ErrSourceUnavailable, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return 0, ErrPriceUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		return 0, parseHTTPError(resp.StatusCode, payload)
	}

	var res struct {
		Name  string `json:"name"`
		Price string `json:"price"`
	}
	if err := json.Unmarshal(payload, &res); err != nil {
		return 0, fmt.Errorf("%w: decode price payload: %v", ErrSourceUnavailable, err)
	}

	price, err := ParsePrice(res.Price)
	if err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, ErrPriceUnavailable
	}

	r.logger.Debug().Str("name", name).Int64("price", price).Msg("live price resolved")
	return price, nil
}

var _ LivePriceFetcher = (*Retail)(nil)
