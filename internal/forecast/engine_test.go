package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"commodity-price-intel/internal/storage"
)

func forecastNow() time.Time {
	return time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
}

func newTestEngine(points []storage.PricePoint) *Engine {
	e := NewEngine(&fakeSeries{points: points}, Options{Region: "평균"}, zerolog.Nop())
	e.now = forecastNow
	return e
}

// linearSeries builds days of history ending at now, stepping by delta per day.
func linearSeries(days int, start, delta int64) []storage.PricePoint {
	now := forecastNow()
	points := make([]storage.PricePoint, 0, days)
	for i := 0; i < days; i++ {
		points = append(points, storage.PricePoint{
			ID:          int64(i + 1),
			CommodityID: 1,
			Price:       start + delta*int64(i),
			PriceType:   storage.PriceTypeRetail,
			Region:      "평균",
			CollectedAt: now.AddDate(0, 0, i-days+1),
		})
	}
	return points
}

func TestForecastRisingSeries(t *testing.T) {
	e := newTestEngine(linearSeries(14, 1000, 50))

	result, err := e.Forecast(context.Background(), 1, 7, true)
	if err != nil {
		t.Fatalf("Forecast 应成功: %v", err)
	}
	if result.Label != LabelRising {
		t.Fatalf("递增序列应标记为 rising, 实际 %q", result.Label)
	}
	if result.SampleCount != 14 {
		t.Fatalf("样本数不正确: %d", result.SampleCount)
	}
	if len(result.Points) != 7 {
		t.Fatalf("应投影 7 天, 实际 %d", len(result.Points))
	}
	for i := 1; i < len(result.Points); i++ {
		if result.Points[i].Price <= result.Points[i-1].Price {
			t.Fatalf("递增序列的投影应单调递增: %#v", result.Points)
		}
		if !result.Points[i].Date.After(result.Points[i-1].Date) {
			t.Fatalf("投影日期应递增: %#v", result.Points)
		}
	}
	if result.Preview {
		t.Fatal("认证调用不应为预览")
	}
}

func TestForecastFallingSeriesHitsFloor(t *testing.T) {
	// falls through the floor quickly
	e := newTestEngine(linearSeries(14, 3000, -150))

	result, err := e.Forecast(context.Background(), 1, 14, true)
	if err != nil {
		t.Fatalf("Forecast 应成功: %v", err)
	}
	if result.Label != LabelFalling {
		t.Fatalf("递减序列应标记为 falling, 实际 %q", result.Label)
	}

	last := result.Points[len(result.Points)-1]
	if last.Price != 100 {
		t.Fatalf("投影不应低于下限 100, 实际 %d", last.Price)
	}
}

func TestForecastStableSeries(t *testing.T) {
	e := newTestEngine(linearSeries(14, 2000, 0))

	result, err := e.Forecast(context.Background(), 1, 7, true)
	if err != nil {
		t.Fatalf("Forecast 应成功: %v", err)
	}
	if result.Label != LabelStable {
		t.Fatalf("平稳序列应标记为 stable, 实际 %q", result.Label)
	}
	for _, p := range result.Points {
		if p.Price != 2000 {
			t.Fatalf("平稳序列的投影应保持不变: %#v", result.Points)
		}
	}
}

func TestForecastPreview(t *testing.T) {
	e := newTestEngine(linearSeries(14, 1000, 50))

	result, err := e.Forecast(context.Background(), 1, 7, false)
	if err != nil {
		t.Fatalf("Forecast 应成功: %v", err)
	}
	if !result.Preview {
		t.Fatal("未认证调用应为预览")
	}
	if result.Points != nil {
		t.Fatalf("预览不应包含逐日投影: %#v", result.Points)
	}
	if result.Min%100 != 0 || result.Max%100 != 0 {
		t.Fatalf("预览区间应取整到 100: [%d, %d]", result.Min, result.Max)
	}
	if result.Min >= result.Max {
		t.Fatalf("预览区间不正确: [%d, %d]", result.Min, result.Max)
	}
}

func TestForecastInsufficientData(t *testing.T) {
	e := newTestEngine(nil)
	if _, err := e.Forecast(context.Background(), 1, 7, true); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("空历史应返回 ErrInsufficientData, 实际 %v", err)
	}
}

func TestForecastInvalidHorizon(t *testing.T) {
	e := newTestEngine(linearSeries(14, 1000, 50))
	if _, err := e.Forecast(context.Background(), 1, 0, true); err == nil {
		t.Fatal("非正的投影天数应报错")
	}
}

func TestConfidenceTiers(t *testing.T) {
	cases := []struct {
		samples int
		want    string
	}{
		{30, ConfidenceHigh},
		{29, ConfidenceMediumHigh},
		{20, ConfidenceMediumHigh},
		{19, ConfidenceMedium},
		{10, ConfidenceMedium},
		{9, ConfidenceLow},
		{1, ConfidenceLow},
	}
	for _, c := range cases {
		if got := confidence(c.samples); got != c.want {
			t.Fatalf("confidence(%d) = %q, 期望 %q", c.samples, got, c.want)
		}
	}
}

func TestOLSSlope(t *testing.T) {
	slope := olsSlope([]float64{1000, 1050, 1100, 1150}, 14)
	if slope < 49.9 || slope > 50.1 {
		t.Fatalf("线性序列的斜率应为 50, 实际 %f", slope)
	}
	if got := olsSlope([]float64{1000}, 14); got != 0 {
		t.Fatalf("单点序列的斜率应为 0, 实际 %f", got)
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

var _ SeriesReader = (*fakeSeries)(nil)
