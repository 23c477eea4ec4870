package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"startup-revenue-alerts/internal/alerting"
	"startup-revenue-alerts/internal/config"
	"startup-revenue-alerts/internal/extract"
	"startup-revenue-alerts/internal/fetcher"
	"startup-revenue-alerts/internal/pipeline"
	"startup-revenue-alerts/internal/scheduler"
	"startup-revenue-alerts/internal/service"
	"startup-revenue-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newAnalyzer() (*pipeline.Analyzer, error) {
	return pipeline.NewAnalyzer(pipeline.Options{
		ThresholdMillions:   decimal.NewFromFloat(a.Config.Pipeline.ThresholdMillions),
		ContextWindowTokens: a.Config.Pipeline.ContextWindowTokens,
		Rules:               extract.DefaultRules(),
	}, a.Logger)
}

func (a *App) newSources() []fetcher.ArticleSource {
	sources := make([]fetcher.ArticleSource, 0, len(a.Config.Sources))
	for _, src := range a.Config.Sources {
		sources = append(sources, fetcher.NewFeed(fetcher.FeedOptions{
			Name:      src.Name,
			FeedURL:   src.FeedURL,
			MaxItems:  a.Config.Fetch.MaxItems,
			FetchBody: a.Config.Fetch.FetchBody,
			Timeout:   a.Config.Fetch.RequestTimeout,
			UserAgent: a.Config.Fetch.UserAgent,
		}, a.Logger))
	}
	return sources
}

func (a *App) newNotifier() alerting.Notifier {
	var channels alerting.Multi
	if a.Config.Alerting.Email.Enabled {
		cfg := a.Config.Alerting.Email
		channels = append(channels, alerting.NewEmailNotifier(alerting.EmailOptions{
			SMTPServer: cfg.SMTPServer,
			SMTPPort:   cfg.SMTPPort,
			Username:   cfg.Username,
			Password:   cfg.Password,
			From:       cfg.From,
			To:         cfg.To,
			Threshold:  decimal.NewFromFloat(a.Config.Pipeline.ThresholdMillions),
		}, a.Logger))
	}
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		channels = append(channels, alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger))
	}
	if len(channels) == 0 {
		return nil
	}
	return channels
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

// openLedger returns the durable ledger when a database is configured
// and falls back to an in-memory one otherwise. The fallback keeps
// single runs working but cannot suppress alerts across restarts.
func (a *App) openLedger(ctx context.Context) (storage.Ledger, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; using in-memory ledger")
		return storage.NewMemoryLedger(), nil, nil
	}
	return store, closeStore, nil
}

// Run executes the long-running tracking service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ledger, closeLedger, err := a.openLedger(ctx)
	if err != nil {
		return err
	}
	if closeLedger != nil {
		defer closeLedger()
	}

	analyzer, err := a.newAnalyzer()
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Options{
		Interval:        a.Config.Scheduler.Interval,
		AlignToInterval: a.Config.Scheduler.AlignToInterval,
		StartupDelay:    a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc := service.New(a.Config, sched, a.newSources(), analyzer, ledger, a.newNotifier(), a.Logger)

	a.Logger.Info().Msg("starting revenue tracking service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("revenue tracking service stopped")
	return nil
}

// ScanOptions configure a one-off scrape cycle.
type ScanOptions struct {
	Force bool
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting alert history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// SummaryOptions bound the summary reporting window.
type SummaryOptions struct {
	Days int
}

// SimulateOptions describe a synthetic alert.
type SimulateOptions struct {
	Company        string
	AmountMillions float64
	Kind           string
}
