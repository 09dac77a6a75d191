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

const (
	categoryListAction = "dailyPriceByCategoryList"
	itemPeriodAction   = "periodProductList"

	marketDayFormat = "2006-01-02"

	// resultOK is the source's success code; anything else is a soft failure.
	resultOK = "000"
	// resultNoData marks an empty-but-valid response.
	resultNoData = "200"
)

// MarketOptions parameterise the primary market API adapter.
type MarketOptions struct {
	BaseURL   string
	CertKey   string
	CertID    string
	Timeout   time.Duration
	UserAgent string
	// PriceClsCode selects retail ("01") or wholesale ("02") listings.
	PriceClsCode string
}

// Market fetches daily commodity quotes from the public market price API.
type Market struct {
	opts    MarketOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewMarket constructs the primary adapter.
func NewMarket(opts MarketOptions, logger zerolog.Logger) *Market {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.PriceClsCode == "" {
		opts.PriceClsCode = "01"
	}

	return &Market{
		opts:    opts,
		logger:  logging.Component(logger, "market_fetcher"),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// FetchByCategory retrieves all quotes for one category on one day.
func (m *Market) FetchByCategory(ctx context.Context, categoryCode string, day time.Time) ([]RawQuote, error) {
	if categoryCode == "" {
		return nil, errors.New("category code required")
	}

	params := url.Values{}
	params.Set("action", categoryListAction)
	params.Set("p_product_cls_code", m.opts.PriceClsCode)
	params.Set("p_item_category_code", categoryCode)
	params.Set("p_regday", day.Format(marketDayFormat))

	payload, err := m.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var res categoryResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("%w: decode category payload: %v", ErrSourceUnavailable, err)
	}
	if res.Data.ErrorCode == resultNoData {
		return nil, nil
	}
	if res.Data.ErrorCode != "" && res.Data.ErrorCode != resultOK {
		return nil, fmt.Errorf("%w: source error code %s", ErrSourceUnavailable, res.Data.ErrorCode)
	}

	quotes := make([]RawQuote, 0, len(res.Data.Items))
	for _, item := range res.Data.Items {
		quotes = append(quotes, RawQuote{
			ItemName: item.ItemName,
			ItemCode: item.ItemCode,
			KindCode: item.KindCode,
			Price:    item.Price,
			Rank:     item.Rank,
			County:   item.CountyName,
			Day:      day,
		})
	}
	return quotes, nil
}

// FetchByItem retrieves one item's quotes over a date range.
func (m *Market) FetchByItem(ctx context.Context, categoryCode, itemCode, kindCode string, from, to time.Time) ([]RawQuote, error) {
	if itemCode == "" {
		return nil, errors.New("item code required")
	}

	params := url.Values{}
	params.Set("action", itemPeriodAction)
	params.Set("p_productclscode", m.opts.PriceClsCode)
	params.Set("p_itemcategorycode", categoryCode)
	params.Set("p_itemcode", itemCode)
	params.Set("p_kindcode", kindCode)
	params.Set("p_startday", from.Format(marketDayFormat))
	params.Set("p_endday", to.Format(marketDayFormat))

	payload, err := m.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var res periodResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("%w: decode period payload: %v", ErrSourceUnavailable, err)
	}

	quotes := make([]RawQuote, 0, len(res.Data.Items))
	for _, item := range res.Data.Items {
		day, parseErr := time.Parse(marketDayFormat, item.RegDay)
		if parseErr != nil {
			day = time.Time{}
		}
		quotes = append(quotes, RawQuote{
			ItemName: item.ItemName,
			ItemCode: itemCode,
			KindCode: kindCode,
			Price:    item.Price,
			County:   item.CountyName,
			Day:      day,
		})
	}
	return quotes, nil
}

func (m *Market) get(ctx context.Context, params url.Values) ([]byte, error) {
	if m.baseURL == "" {
		return nil, errors.New("market base url not configured")
	}

	params.Set("p_cert_key", m.opts.CertKey)
	params.Set("p_cert_id", m.opts.CertID)
	params.Set("p_returntype", "json")

	endpoint := m.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(m.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrSourceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp.StatusCode, payload)
	}
	return payload, nil
}

type categoryResponse struct {
	Data struct {
		ErrorCode string       `json:"error_code"`
		Items     []marketItem `json:"item"`
	} `json:"data"`
}

type marketItem struct {
	ItemName   string `json:"item_name"`
	ItemCode   string `json:"item_code"`
	KindCode   string `json:"kind_code"`
	Rank       string `json:"rank"`
	CountyName string `json:"county_name"`
	Price      string `json:"dpr1"`
}

type periodResponse struct {
	Data struct {
		ErrorCode string       `json:"error_code"`
		Items     []periodItem `json:"item"`
	} `json:"data"`
}

type periodItem struct {
	ItemName   string `json:"item_name"`
	CountyName string `json:"county_name"`
	RegDay     string `json:"regday"`
	Price      string `json:"price"`
}

type errorResponse struct {
	ErrorType   string `json:"errorType"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Description != "" {
			return fmt.Errorf("%w: api error (%d): %s", ErrSourceUnavailable, status, apiErr.Description)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("%w: api error (%d): %s", ErrSourceUnavailable, status, apiErr.Message)
		}
		if apiErr.ErrorType != "" {
			return fmt.Errorf("%w: api error (%d): %s", ErrSourceUnavailable, status, apiErr.ErrorType)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("%w: api error (%d): %s", ErrSourceUnavailable, status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("%w: api error (%d)", ErrSourceUnavailable, status)
}

var _ QuoteFetcher = (*Market)(nil)
