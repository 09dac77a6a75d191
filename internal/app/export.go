package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"commodity-price-intel/internal/storage"
)

// Export renders a commodity's stored series as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	defer closeStore()

	commodity, err := store.FindCommodityByName(ctx, opts.Commodity)
	if err != nil {
		return fmt.Errorf("unknown commodity %q: %w", opts.Commodity, err)
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}
	from := to.AddDate(0, 0, -opts.MaxPoints)
	if opts.From != nil {
		from = opts.From.UTC()
	}
	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	market := a.Config.Sources.Market
	points, err := store.SelectByRange(ctx, commodity.ID, from, to, market.PriceType, market.AverageCounty)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		a.Logger.Info().Msg("no points found for export window")
		return nil
	}

	downsampled := downsamplePoints(points, opts.MaxPoints)
	a.Logger.Info().Int("total", len(points)).Int("exported", len(downsampled)).Msg("exporting points")

	if opts.CSVPath != "" {
		if err := writePointsCSV(opts.CSVPath, commodity, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writePointsPNG(opts.PNGPath, commodity, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsamplePoints(points []storage.PricePoint, max int) []storage.PricePoint {
	if max <= 0 || len(points) <= max {
		return points
	}

	result := make([]storage.PricePoint, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

func writePointsCSV(path string, commodity storage.Commodity, points []storage.PricePoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"collected_at", "commodity", "price", "price_type", "region"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, p := range points {
		record := []string{
			p.CollectedAt.Format(time.RFC3339),
			commodity.Name,
			fmt.Sprintf("%d", p.Price),
			p.PriceType,
			p.Region,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writePointsPNG(path string, commodity storage.Commodity, points []storage.PricePoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(points))
	prices := make([]float64, len(points))
	for i, p := range points {
		x[i] = p.CollectedAt
		prices[i] = float64(p.Price)
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: fmt.Sprintf("Price per %s", commodity.Unit),
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    commodity.Name,
				XValues: x,
				YValues: prices,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
