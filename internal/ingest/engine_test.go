package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"commodity-price-intel/internal/catalog"
	"commodity-price-intel/internal/fetcher"
	"commodity-price-intel/internal/storage"
)

func sweepDay() time.Time {
	return time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
}

func testOptions() Options {
	return Options{
		PriceType:     storage.PriceTypeRetail,
		Rank:          "상품",
		AverageCounty: "평균",
		Workers:       3,
	}
}

func newTestEngine(f fetcher.QuoteFetcher, alerts AlertTrigger) (*Engine, *memStore) {
	store := newMemStore()
	resolver := catalog.NewResolver(store, zerolog.Nop())
	return NewEngine(f, resolver, store, alerts, testOptions(), zerolog.Nop()), store
}

func TestSyncCategoryReconciliation(t *testing.T) {
	f := &categoryFetcher{quotes: map[string][]fetcher.RawQuote{
		"200": {
			{ItemName: "Spinach(1kg)", ItemCode: "211", KindCode: "00", Price: "4,980", Rank: "상품", County: "평균"},
			// wrong rank: filtered before reconciliation
			{ItemName: "Spinach(1kg)", ItemCode: "211", KindCode: "00", Price: "3,100", Rank: "중품", County: "평균"},
			// "-" placeholder: no observation that day, not a failure
			{ItemName: "Carrot(1kg)", ItemCode: "212", KindCode: "00", Price: "-", Rank: "상품", County: "평균"},
			{ItemName: "Eggs 10개", ItemCode: "213", KindCode: "00", Price: "3,000", Rank: "상품", County: "평균"},
		},
	}}
	recorder := &triggerRecorder{}
	engine, store := newTestEngine(f, recorder)

	report := engine.SyncCategory(context.Background(), "200", sweepDay())
	if report.Err != nil {
		t.Fatalf("类别同步不应失败: %v", report.Err)
	}
	if report.Saved != 2 || report.Skipped != 0 || report.Unavailable != 1 || report.Failed != 0 {
		t.Fatalf("报告不正确: %+v", report)
	}

	// egg quote is rescaled to per-kg before persisting
	prices := recorder.prices()
	if len(prices) != 2 {
		t.Fatalf("应触发 2 次告警检查, 实际 %d", len(prices))
	}
	if prices["Spinach"] != 4980 || prices["Eggs 10개"] != 5000 {
		t.Fatalf("告警价格不正确: %#v", prices)
	}

	latest, err := store.SelectLatest(context.Background(), store.idByName(t, "Spinach"), storage.PriceTypeRetail, "평균")
	if err != nil {
		t.Fatalf("应能读取最新点: %v", err)
	}
	if latest.Price != 4980 {
		t.Fatalf("存储价格不正确: %d", latest.Price)
	}
}

func TestSyncCategoryIdempotent(t *testing.T) {
	f := &categoryFetcher{quotes: map[string][]fetcher.RawQuote{
		"200": {
			{ItemName: "Spinach(1kg)", ItemCode: "211", KindCode: "00", Price: "4,980", Rank: "상품", County: "평균"},
			{ItemName: "Carrot(1kg)", ItemCode: "212", KindCode: "00", Price: "2,400", Rank: "상품", County: "평균"},
		},
	}}
	engine, _ := newTestEngine(f, nil)

	first := engine.SyncCategory(context.Background(), "200", sweepDay())
	if first.Saved != 2 {
		t.Fatalf("首次同步应保存 2 条, 实际 %+v", first)
	}

	second := engine.SyncCategory(context.Background(), "200", sweepDay())
	if second.Saved != 0 || second.Skipped != 2 {
		t.Fatalf("重跑应全部跳过: %+v", second)
	}
}

func TestSyncAllCategoryFailureIsolated(t *testing.T) {
	f := &categoryFetcher{
		quotes: map[string][]fetcher.RawQuote{
			"200": {
				{ItemName: "Spinach(1kg)", ItemCode: "211", KindCode: "00", Price: "4,980", Rank: "상품", County: "평균"},
			},
		},
		errs: map[string]error{
			"100": errors.New("upstream down"),
		},
	}
	engine, _ := newTestEngine(f, nil)

	report := engine.SyncAll(context.Background(), sweepDay())
	if report.FailedCategories() != 1 {
		t.Fatalf("应恰有 1 个类别失败, 实际 %d", report.FailedCategories())
	}
	if report.TotalSaved() != 1 {
		t.Fatalf("其余类别应照常保存: %+v", report)
	}
}

func TestSelectRepresentativePrefersAverageCounty(t *testing.T) {
	f := &categoryFetcher{quotes: map[string][]fetcher.RawQuote{
		"200": {
			{ItemName: "Spinach(1kg)", ItemCode: "211", KindCode: "00", Price: "5,200", Rank: "상품", County: "서울"},
			{ItemName: "Spinach(1kg)", ItemCode: "211", KindCode: "00", Price: "4,980", Rank: "상품", County: "평균"},
		},
	}}
	engine, store := newTestEngine(f, nil)

	report := engine.SyncCategory(context.Background(), "200", sweepDay())
	if report.Saved != 1 {
		t.Fatalf("同一商品应只保存一条: %+v", report)
	}

	latest, err := store.SelectLatest(context.Background(), store.idByName(t, "Spinach"), storage.PriceTypeRetail, "평균")
	if err != nil {
		t.Fatalf("应保存平均地区的点: %v", err)
	}
	if latest.Price != 4980 {
		t.Fatalf("应优先平均地区报价, 实际 %d", latest.Price)
	}
}

type categoryFetcher struct {
	quotes map[string][]fetcher.RawQuote
	errs   map[string]error
}

func (f *categoryFetcher) FetchByCategory(ctx context.Context, categoryCode string, day time.Time) ([]fetcher.RawQuote, error) {
	if err := f.errs[categoryCode]; err != nil {
		return nil, err
	}
	out := make([]fetcher.RawQuote, 0, len(f.quotes[categoryCode]))
	for _, q := range f.quotes[categoryCode] {
		q.Day = day
		out = append(out, q)
	}
	return out, nil
}

func (f *categoryFetcher) FetchByItem(ctx context.Context, categoryCode, itemCode, kindCode string, from, to time.Time) ([]fetcher.RawQuote, error) {
	return nil, nil
}

type triggerRecorder struct {
	mu    sync.Mutex
	fired map[string]int64
}

func (r *triggerRecorder) Trigger(ctx context.Context, commodity storage.Commodity, price int64, observedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fired == nil {
		r.fired = make(map[string]int64)
	}
	r.fired[commodity.Name] = price
}

func (r *triggerRecorder) prices() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64, len(r.fired))
	for k, v := range r.fired {
		out[k] = v
	}
	return out
}

// memStore is an in-memory stand-in for the commodity and price stores.
type memStore struct {
	mu          sync.Mutex
	nextID      int64
	commodities []storage.Commodity
	points      []storage.PricePoint
}

func newMemStore() *memStore {
	return &memStore{nextID: 1}
}

func (m *memStore) idByName(t *testing.T, name string) int64 {
	t.Helper()
	c, err := m.FindCommodityByName(context.Background(), name)
	if err != nil {
		t.Fatalf("商品 %q 应已注册: %v", name, err)
	}
	return c.ID
}

func (m *memStore) FindCommodityByExternalCode(ctx context.Context, itemCode, kindCode string) (storage.Commodity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.commodities {
		if c.ItemCode == itemCode && c.KindCode == kindCode {
			return c, nil
		}
	}
	return storage.Commodity{}, storage.ErrNotFound
}

func (m *memStore) FindCommodityByName(ctx context.Context, name string) (storage.Commodity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.commodities {
		if c.Name == name {
			return c, nil
		}
	}
	return storage.Commodity{}, storage.ErrNotFound
}

func (m *memStore) InsertCommodity(ctx context.Context, c storage.Commodity) (storage.Commodity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.commodities {
		if existing.ItemCode == c.ItemCode && existing.KindCode == c.KindCode {
			return existing, nil
		}
	}
	c.ID = m.nextID
	m.nextID++
	c.CreatedAt = time.Now().UTC()
	m.commodities = append(m.commodities, c)
	return c, nil
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (m *memStore) InsertPricePoint(ctx context.Context, p storage.PricePoint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.points {
		if existing.CommodityID == p.CommodityID &&
			existing.PriceType == p.PriceType &&
			existing.Region == p.Region &&
			dayKey(existing.CollectedAt) == dayKey(p.CollectedAt) {
			return false, nil
		}
	}
	p.ID = m.nextID
	m.nextID++
	p.CreatedAt = time.Now().UTC()
	m.points = append(m.points, p)
	return true, nil
}

func (m *memStore) ExistsForDay(ctx context.Context, commodityID int64, priceType, region string, day time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.points {
		if p.CommodityID == commodityID && p.PriceType == priceType && p.Region == region && dayKey(p.CollectedAt) == dayKey(day) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) SelectByRange(ctx context.Context, commodityID int64, from, to time.Time, priceType, region string) ([]storage.PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]storage.PricePoint, 0)
	for _, p := range m.points {
		if p.CommodityID == commodityID && p.PriceType == priceType && p.Region == region &&
			!p.CollectedAt.Before(from) && p.CollectedAt.Before(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) SelectLatest(ctx context.Context, commodityID int64, priceType, region string) (storage.PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest storage.PricePoint
	found := false
	for _, p := range m.points {
		if p.CommodityID == commodityID && p.PriceType == priceType && p.Region == region {
			if !found || p.CollectedAt.After(latest.CollectedAt) {
				latest = p
				found = true
			}
		}
	}
	if !found {
		return storage.PricePoint{}, storage.ErrNotFound
	}
	return latest, nil
}

func (m *memStore) SelectClosestTo(ctx context.Context, commodityID int64, target time.Time, priceType, region string) (storage.PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best storage.PricePoint
	found := false
	for _, p := range m.points {
		if p.CommodityID != commodityID || p.PriceType != priceType || p.Region != region {
			continue
		}
		if !found {
			best = p
			found = true
			continue
		}
		if absDur(p.CollectedAt.Sub(target)) < absDur(best.CollectedAt.Sub(target)) {
			best = p
		}
	}
	if !found {
		return storage.PricePoint{}, storage.ErrNotFound
	}
	return best, nil
}

func absDur(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

var (
	_ storage.CommodityStore = (*memStore)(nil)
	_ storage.PriceStore     = (*memStore)(nil)
	_ fetcher.QuoteFetcher   = (*categoryFetcher)(nil)
	_ AlertTrigger           = (*triggerRecorder)(nil)
)
