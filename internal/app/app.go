package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"commodity-price-intel/internal/alerting"
	"commodity-price-intel/internal/analytics"
	"commodity-price-intel/internal/catalog"
	"commodity-price-intel/internal/config"
	"commodity-price-intel/internal/fetcher"
	"commodity-price-intel/internal/forecast"
	"commodity-price-intel/internal/ingest"
	"commodity-price-intel/internal/logging"
	"commodity-price-intel/internal/pricing"
	"commodity-price-intel/internal/scheduler"
	"commodity-price-intel/internal/service"
	"commodity-price-intel/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logging.Component(logger, "app")}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newPrimaryFetcher() fetcher.QuoteFetcher {
	cfg := a.Config.Sources.Market
	clsCode := "01"
	if cfg.PriceType == storage.PriceTypeWholesale {
		clsCode = "02"
	}
	return fetcher.NewMarket(fetcher.MarketOptions{
		BaseURL:      cfg.BaseURL,
		CertKey:      cfg.CertKey,
		CertID:       cfg.CertID,
		Timeout:      cfg.RequestTimeout,
		UserAgent:    cfg.UserAgent,
		PriceClsCode: clsCode,
	}, a.Logger)
}

func (a *App) newLiveFetcher() fetcher.LivePriceFetcher {
	cfg := a.Config.Sources.Retail
	if cfg.BaseURL == "" {
		return nil
	}
	return fetcher.NewRetail(fetcher.RetailOptions{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.RequestTimeout,
		UserAgent: cfg.UserAgent,
	}, a.Logger)
}

func (a *App) newSink(store *storage.Store) alerting.Sink {
	cfg := a.Config.Alerting
	var sinks []alerting.Sink
	if cfg.PersistLogs && store != nil {
		sinks = append(sinks, alerting.NewStoreSink(store))
	}
	if cfg.Webhook.Enabled {
		sinks = append(sinks, alerting.NewWebhookSink(cfg.Webhook.BotToken, cfg.Webhook.ChatID, cfg.Webhook.APIBase, 10*time.Second, a.Logger))
	}
	if len(sinks) == 0 {
		return nil
	}
	return alerting.NewMultiSink(sinks...)
}

func (a *App) newMatcher(store *storage.Store) *alerting.Matcher {
	return alerting.NewMatcher(store, a.newSink(store), a.Logger)
}

func (a *App) ingestOptions() ingest.Options {
	market := a.Config.Sources.Market
	return ingest.Options{
		PriceType:     market.PriceType,
		Rank:          market.Rank,
		AverageCounty: market.AverageCounty,
		Workers:       a.Config.Ingest.Workers,
	}
}

func (a *App) newPricingService(store *storage.Store) *pricing.Service {
	ref := pricing.NewReferenceTable(a.Config.Pricing.ReferencePrices)
	return pricing.NewService(store, a.newLiveFetcher(), ref, pricing.Options{
		PriceType: a.Config.Sources.Market.PriceType,
		Region:    a.Config.Sources.Market.AverageCounty,
	}, a.Logger)
}

func (a *App) newAnalyticsEngine(store *storage.Store) *analytics.Engine {
	return analytics.NewEngine(store, analytics.Options{
		PriceType: a.Config.Sources.Market.PriceType,
		Region:    a.Config.Sources.Market.AverageCounty,
	}, a.Logger)
}

func (a *App) newForecastEngine(store *storage.Store) *forecast.Engine {
	return forecast.NewEngine(store, forecast.Options{
		FloorPrice:  a.Config.Forecast.FloorPrice,
		HistoryDays: a.Config.Forecast.HistoryDays,
		PriceType:   a.Config.Sources.Market.PriceType,
		Region:      a.Config.Sources.Market.AverageCounty,
	}, a.Logger)
}

// Run executes the long-running ingestion daemon.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn not configured; the daemon requires persistence")
	}
	defer closeStore()

	sched, err := scheduler.New(scheduler.Options{
		DailyAt:      a.Config.Scheduler.DailyAt,
		RunOnStart:   a.Config.Scheduler.RunOnStart,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		RunTimeout:   a.Config.Scheduler.RunTimeout,
	}, a.Logger)
	if err != nil {
		return err
	}

	resolver := catalog.NewResolver(store, a.Logger)

	var worker *alerting.Worker
	var trigger ingest.AlertTrigger
	if a.Config.Alerting.Enabled {
		worker = alerting.NewWorker(a.newMatcher(store), a.Config.Alerting.QueueSize, a.Logger)
		trigger = worker
	}

	engine := ingest.NewEngine(a.newPrimaryFetcher(), resolver, store, trigger, a.ingestOptions(), a.Logger)
	svc := service.New(sched, engine, worker, store, a.Config.Scheduler.AdvisoryLockKey, a.Logger)

	a.Logger.Info().Msg("starting ingestion daemon")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("daemon terminated with error")
		return err
	}

	a.Logger.Info().Msg("ingestion daemon stopped")
	return nil
}

// SyncOptions configure an on-demand sweep.
type SyncOptions struct {
	Category string
	Date     time.Time
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// PriceOptions configure the price resolution command.
type PriceOptions struct {
	Names []string
}

// TrendOptions configure the trend command.
type TrendOptions struct {
	Commodity string
	Period    string
	From      *time.Time
	To        *time.Time
}

// ForecastOptions configure the forecast command.
type ForecastOptions struct {
	Commodity string
	Days      int
	Full      bool
}

// ExportOptions hold parameters for exporting a commodity's series.
type ExportOptions struct {
	Commodity string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// SimulateOptions configure the alert simulation command.
type SimulateOptions struct {
	Commodity string
	Price     int64
}
