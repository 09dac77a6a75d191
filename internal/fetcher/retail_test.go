package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRetailFetchPriceSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("name"); got != "cabbage" {
			t.Fatalf("name 参数不正确: %s", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "cabbage", "price": "3,200"})
	}))
	defer srv.Close()

	r := NewRetail(RetailOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())

	price, err := r.FetchPrice(context.Background(), "cabbage")
	if err != nil {
		t.Fatalf("FetchPrice 应成功: %v", err)
	}
	if price != 3200 {
		t.Fatalf("价格应为 3200, 实际 %d", price)
	}
}

func TestRetailFetchPriceNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := NewRetail(RetailOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())

	if _, err := r.FetchPrice(context.Background(), "durian"); !errors.Is(err, ErrPriceUnavailable) {
		t.Fatalf("404 应返回 ErrPriceUnavailable, 实际 %v", err)
	}
}

func TestRetailFetchPricePlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "cabbage", "price": "-"})
	}))
	defer srv.Close()

	r := NewRetail(RetailOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())

	if _, err := r.FetchPrice(context.Background(), "cabbage"); !errors.Is(err, ErrPriceUnavailable) {
		t.Fatalf("\"-\" 占位价格应返回 ErrPriceUnavailable, 实际 %v", err)
	}
}

func TestRetailMissingBaseURL(t *testing.T) {
	r := NewRetail(RetailOptions{}, noopLogger())
	if _, err := r.FetchPrice(context.Background(), "cabbage"); err == nil {
		t.Fatal("缺少 base url 时应返回错误")
	}
}
