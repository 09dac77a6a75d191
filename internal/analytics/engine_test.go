package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"commodity-price-intel/internal/storage"
)

func anchorDay() time.Time {
	// a Monday
	return time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
}

func newTestEngine(points []storage.PricePoint) *Engine {
	e := NewEngine(&fakeSeries{points: points}, Options{Region: "평균"}, zerolog.Nop())
	e.now = anchorDay
	return e
}

func point(id int64, price int64, at time.Time) storage.PricePoint {
	return storage.PricePoint{
		ID:          id,
		CommodityID: 1,
		Price:       price,
		PriceType:   storage.PriceTypeRetail,
		Region:      "평균",
		CollectedAt: at,
	}
}

func TestParsePeriod(t *testing.T) {
	for raw, want := range map[string]Period{
		"daily":     PeriodDaily,
		"WEEKLY":    PeriodWeekly,
		" monthly ": PeriodMonthly,
	} {
		got, err := ParsePeriod(raw)
		if err != nil {
			t.Fatalf("ParsePeriod(%q) 不应报错: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParsePeriod(%q) = %q, 期望 %q", raw, got, want)
		}
	}
	if _, err := ParsePeriod("hourly"); err == nil {
		t.Fatal("未知周期应报错")
	}
}

func TestLatestWithChanges(t *testing.T) {
	now := anchorDay()
	e := newTestEngine([]storage.PricePoint{
		point(1, 1000, now.AddDate(0, 0, -8)),
		point(2, 1100, now),
	})

	latest, err := e.LatestWithChanges(context.Background(), 1)
	if err != nil {
		t.Fatalf("LatestWithChanges 应成功: %v", err)
	}
	if latest.Price != 1100 {
		t.Fatalf("最新价格不正确: %d", latest.Price)
	}

	week := latest.Change.Week
	if week == nil {
		t.Fatal("周变化不应为 nil")
	}
	if week.Percent.String() != "10" || week.Diff != 100 {
		t.Fatalf("周变化不正确: %s%% / %d", week.Percent, week.Diff)
	}
}

func TestLatestWithChangesSinglePoint(t *testing.T) {
	now := anchorDay()
	e := newTestEngine([]storage.PricePoint{point(1, 1100, now)})

	latest, err := e.LatestWithChanges(context.Background(), 1)
	if err != nil {
		t.Fatalf("单点序列应仍返回最新价: %v", err)
	}
	// no history: comparison windows are nil, never zero
	if latest.Change.Day != nil || latest.Change.Week != nil || latest.Change.Month != nil {
		t.Fatalf("无历史时各窗口应为 nil: %#v", latest.Change)
	}
}

func TestLatestWithChangesNoData(t *testing.T) {
	e := newTestEngine(nil)
	if _, err := e.LatestWithChanges(context.Background(), 1); !errors.Is(err, ErrNoData) {
		t.Fatalf("空序列应返回 ErrNoData, 实际 %v", err)
	}
}

func TestTrendWeeklyBuckets(t *testing.T) {
	now := anchorDay()
	e := newTestEngine([]storage.PricePoint{
		// previous week: mean of 1000 and 1001, 1000.5 rounds to 1001
		point(1, 1000, now.AddDate(0, 0, -9)),
		point(2, 1001, now.AddDate(0, 0, -8)),
		point(3, 1100, now),
	})

	from := now.AddDate(0, 0, -14)
	trend, err := e.Trend(context.Background(), TrendQuery{
		CommodityID: 1,
		Period:      PeriodWeekly,
		From:        &from,
	})
	if err != nil {
		t.Fatalf("Trend 应成功: %v", err)
	}
	if len(trend.Series) != 2 {
		t.Fatalf("应聚合为 2 个周桶: %#v", trend.Series)
	}

	prev := trend.Series[0]
	if prev.Date.Weekday() != time.Monday {
		t.Fatalf("周桶应对齐到周一: %v", prev.Date)
	}
	if prev.Price != 1001 {
		t.Fatalf("桶均值取整不正确: %d", prev.Price)
	}
	if !trend.Series[1].Date.Equal(now) {
		t.Fatalf("最新桶日期不正确: %v", trend.Series[1].Date)
	}

	if trend.Change == nil || trend.Change.Week == nil {
		t.Fatal("周变化不应为 nil")
	}
	if trend.Change.Week.Diff != 99 {
		t.Fatalf("周差值不正确: %d", trend.Change.Week.Diff)
	}
}

func TestTrendNoData(t *testing.T) {
	e := newTestEngine(nil)
	if _, err := e.Trend(context.Background(), TrendQuery{CommodityID: 1, Period: PeriodDaily}); !errors.Is(err, ErrNoData) {
		t.Fatalf("空窗口应返回 ErrNoData, 实际 %v", err)
	}
}

func TestBucketDate(t *testing.T) {
	// a Thursday
	thursday := time.Date(2025, 6, 5, 13, 45, 0, 0, time.UTC)

	if got := bucketDate(PeriodDaily, thursday); !got.Equal(time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("日桶不正确: %v", got)
	}
	if got := bucketDate(PeriodWeekly, thursday); !got.Equal(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("周桶应为周一: %v", got)
	}
	if got := bucketDate(PeriodMonthly, thursday); !got.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("月桶应为 1 号: %v", got)
	}
}

func TestLatestBatchSkipsBadIDs(t *testing.T) {
	now := anchorDay()
	e := newTestEngine([]storage.PricePoint{point(1, 1100, now)})

	out := e.LatestBatch(context.Background(), "1, x, , 999")
	if len(out) != 1 {
		t.Fatalf("应只解析出 1 个有效 id: %#v", out)
	}
	if out[1].Price != 1100 {
		t.Fatalf("批量结果不正确: %#v", out)
	}
}

type fakeSeries struct {
	points []storage.PricePoint
}

func (f *fakeSeries) SelectByRange(ctx context.Context, commodityID int64, from, to time.Time, priceType, region string) ([]storage.PricePoint, error) {
	out := make([]storage.PricePoint, 0)
	for _, p := range f.points {
		if p.CommodityID == commodityID && p.PriceType == priceType && p.Region == region &&
			!p.CollectedAt.Before(from) && p.CollectedAt.Before(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeSeries) SelectLatest(ctx context.Context, commodityID int64, priceType, region string) (storage.PricePoint, error) {
	var latest storage.PricePoint
	found := false
	for _, p := range f.points {
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

var _ SeriesReader = (*fakeSeries)(nil)
