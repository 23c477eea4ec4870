package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"startup-revenue-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Sources   []SourceConfig  `mapstructure:"sources"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for the ledger.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SchedulerConfig governs scrape-cycle cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToInterval bool          `mapstructure:"align_to_interval"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// PipelineConfig holds the extraction pipeline knobs. These are
// read-only inputs to the core; nothing in the pipeline mutates them.
type PipelineConfig struct {
	ThresholdMillions   float64 `mapstructure:"threshold_millions"`
	ContextWindowTokens int     `mapstructure:"context_window_tokens"`
	MaxWorkers          int     `mapstructure:"max_workers"`
	RetentionMonths     int     `mapstructure:"retention_months"`
}

// FetchConfig tunes the RSS fetch collaborator.
type FetchConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	FetchBody      bool          `mapstructure:"fetch_body"`
	MaxItems       int           `mapstructure:"max_items"`
}

// SourceConfig names one monitored publisher feed.
type SourceConfig struct {
	Name    string `mapstructure:"name"`
	FeedURL string `mapstructure:"feed_url"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Email    EmailConfig    `mapstructure:"email"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// EmailConfig describes SMTP delivery of alert digests.
type EmailConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	SMTPServer string `mapstructure:"smtp_server"`
	SMTPPort   int    `mapstructure:"smtp_port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	From       string `mapstructure:"from"`
	To         string `mapstructure:"to"`
}

// TelegramConfig describes Telegram bot delivery.
type TelegramConfig struct {
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
	v.SetEnvPrefix("REVTRACKER")
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
	v.SetDefault("app.name", "revtracker")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.align_to_interval", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x72657674))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("pipeline.threshold_millions", 30.0)
	v.SetDefault("pipeline.context_window_tokens", 15)
	v.SetDefault("pipeline.max_workers", 4)
	v.SetDefault("pipeline.retention_months", 6)

	v.SetDefault("fetch.request_timeout", "15s")
	v.SetDefault("fetch.user_agent", "revtracker/1.0")
	v.SetDefault("fetch.fetch_body", true)
	v.SetDefault("fetch.max_items", 20)

	v.SetDefault("sources", []map[string]any{
		{"name": "techcrunch", "feed_url": "https://techcrunch.com/feed/"},
		{"name": "crunchbase", "feed_url": "https://news.crunchbase.com/feed/"},
		{"name": "forbes", "feed_url": "https://www.forbes.com/innovation/feed2/"},
	})

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.email.enabled", false)
	v.SetDefault("alerting.email.smtp_server", "smtp.gmail.com")
	v.SetDefault("alerting.email.smtp_port", 587)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

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

// Validate performs sanity checks on configuration values. Pipeline
// misconfiguration fails here, before any article is processed.
func (c *Config) Validate() error {
	if c.Pipeline.ThresholdMillions <= 0 {
		return fmt.Errorf("pipeline.threshold_millions must be greater than zero")
	}
	if c.Pipeline.ContextWindowTokens <= 0 {
		return fmt.Errorf("pipeline.context_window_tokens must be greater than zero")
	}
	if c.Pipeline.MaxWorkers <= 0 {
		return fmt.Errorf("pipeline.max_workers must be greater than zero")
	}
	if c.Pipeline.RetentionMonths < 0 {
		return fmt.Errorf("pipeline.retention_months cannot be negative")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	for i, source := range c.Sources {
		if source.Name == "" {
			return fmt.Errorf("sources[%d].name is required", i)
		}
		if source.FeedURL == "" {
			return fmt.Errorf("sources[%d].feed_url is required", i)
		}
	}
	if c.Alerting.Email.Enabled {
		if c.Alerting.Email.SMTPServer == "" {
			return fmt.Errorf("alerting.email.smtp_server is required")
		}
		if c.Alerting.Email.To == "" {
			return fmt.Errorf("alerting.email.to is required")
		}
		if c.Alerting.Email.From == "" && c.Alerting.Email.Username == "" {
			return fmt.Errorf("alerting.email.from or alerting.email.username is required")
		}
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}

// Retention converts the configured retention window to a duration.
// Zero months disables expiry.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Pipeline.RetentionMonths) * 30 * 24 * time.Hour
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
