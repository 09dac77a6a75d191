package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"commodity-price-intel/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Forecast  ForecastConfig  `mapstructure:"forecast"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SchedulerConfig governs the daily sweep cadence.
type SchedulerConfig struct {
	DailyAt         string        `mapstructure:"daily_at"`
	RunOnStart      bool          `mapstructure:"run_on_start"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	RunTimeout      time.Duration `mapstructure:"run_timeout"`
}

// SourcesConfig groups the external quote source adapters.
type SourcesConfig struct {
	Market MarketSourceConfig `mapstructure:"market"`
	Retail RetailSourceConfig `mapstructure:"retail"`
}

// MarketSourceConfig covers the primary market price API.
type MarketSourceConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	CertKey        string        `mapstructure:"cert_key"`
	CertID         string        `mapstructure:"cert_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	PriceType      string        `mapstructure:"price_type"`
	Rank           string        `mapstructure:"rank"`
	AverageCounty  string        `mapstructure:"average_county"`
}

// RetailSourceConfig covers the secondary live price lookup.
type RetailSourceConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// IngestConfig tunes the reconciliation sweep.
type IngestConfig struct {
	Workers int `mapstructure:"workers"`
}

// PricingConfig holds the static reference price table.
type PricingConfig struct {
	ReferencePrices map[string]int64 `mapstructure:"reference_prices"`
}

// ForecastConfig tunes projection behaviour.
type ForecastConfig struct {
	FloorPrice  int64 `mapstructure:"floor_price"`
	HistoryDays int   `mapstructure:"history_days"`
}

// AlertingConfig defines notification routing.
type AlertingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	QueueSize   int           `mapstructure:"queue_size"`
	Webhook     WebhookConfig `mapstructure:"webhook"`
	PersistLogs bool          `mapstructure:"persist_logs"`
}

// WebhookConfig describes the outbound webhook sink.
type WebhookConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICEWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pricewatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.daily_at", "06:00")
	v.SetDefault("scheduler.run_on_start", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x70726963))
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.run_timeout", "15m")

	v.SetDefault("sources.market.request_timeout", "10s")
	v.SetDefault("sources.market.user_agent", "pricewatcher/1.0")
	v.SetDefault("sources.market.price_type", "retail")
	v.SetDefault("sources.market.rank", "상품")
	v.SetDefault("sources.market.average_county", "평균")

	v.SetDefault("sources.retail.request_timeout", "10s")
	v.SetDefault("sources.retail.user_agent", "pricewatcher/1.0")

	v.SetDefault("ingest.workers", 2)

	v.SetDefault("forecast.floor_price", int64(100))
	v.SetDefault("forecast.history_days", 30)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.queue_size", 256)
	v.SetDefault("alerting.persist_logs", true)
	v.SetDefault("alerting.webhook.enabled", false)
	v.SetDefault("alerting.webhook.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if _, err := time.Parse("15:04", c.Scheduler.DailyAt); err != nil {
		return fmt.Errorf("scheduler.daily_at must be HH:MM: %w", err)
	}
	if c.Ingest.Workers <= 0 {
		return fmt.Errorf("ingest.workers must be greater than zero")
	}
	if c.Forecast.FloorPrice < 0 {
		return fmt.Errorf("forecast.floor_price cannot be negative")
	}
	if c.Forecast.HistoryDays <= 0 {
		return fmt.Errorf("forecast.history_days must be greater than zero")
	}
	if c.Alerting.Webhook.Enabled {
		if c.Alerting.Webhook.BotToken == "" {
			return fmt.Errorf("alerting.webhook.bot_token is required")
		}
		if c.Alerting.Webhook.ChatID == "" {
			return fmt.Errorf("alerting.webhook.chat_id is required")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
