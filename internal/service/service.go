package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"startup-revenue-alerts/internal/alerting"
	"startup-revenue-alerts/internal/config"
	"startup-revenue-alerts/internal/fetcher"
	"startup-revenue-alerts/internal/mention"
	"startup-revenue-alerts/internal/pipeline"
	"startup-revenue-alerts/internal/scheduler"
	"startup-revenue-alerts/internal/storage"
)

// Service orchestrates fetching, analysis, ledger bookkeeping, and
// alert delivery for scheduled scrape cycles.
type Service struct {
	scheduler *scheduler.Scheduler
	sources   []fetcher.ArticleSource
	analyzer  *pipeline.Analyzer
	ledger    storage.Ledger
	notifier  alerting.Notifier
	logger    zerolog.Logger

	alertsOn  bool
	workers   int
	retention time.Duration
	locker    storage.AdvisoryLocker
	lockKey   int64
}

// RunReport summarises one scrape cycle.
type RunReport struct {
	Fetched  int
	Analyzed int
	Skipped  int
	Failed   int
	Alerts   []alerting.Alert
}

// New constructs the tracking service.
func New(cfg *config.Config, sched *scheduler.Scheduler, sources []fetcher.ArticleSource, analyzer *pipeline.Analyzer, ledger storage.Ledger, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := ledger.(storage.AdvisoryLocker); ok {
		locker = l
	}

	workers := cfg.Pipeline.MaxWorkers
	if workers <= 0 {
		workers = 1
	}

	return &Service{
		scheduler: sched,
		sources:   sources,
		analyzer:  analyzer,
		ledger:    ledger,
		notifier:  notifier,
		logger:    logger.With().Str("component", "service").Logger(),
		alertsOn:  cfg.Alerting.Enabled,
		workers:   workers,
		retention: cfg.Retention(),
		locker:    locker,
		lockKey:   cfg.Scheduler.AdvisoryLockKey,
	}
}

// Run begins the scheduled scrape loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, func(ctx context.Context, _ time.Time) error {
		report, err := s.RunCycle(ctx, false)
		if err != nil {
			return err
		}
		s.logger.Info().
			Int("fetched", report.Fetched).
			Int("analyzed", report.Analyzed).
			Int("skipped", report.Skipped).
			Int("failed", report.Failed).
			Int("alerts", len(report.Alerts)).
			Msg("cycle complete")
		return nil
	})
}

// RunCycle executes one scrape cycle: fetch, analyze in parallel, gate
// each mention through the ledger, deliver the digest. With force set,
// already-seen articles are re-analyzed; the ledger still suppresses
// re-alerting of mentions it has recorded.
func (s *Service) RunCycle(ctx context.Context, force bool) (RunReport, error) {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return RunReport{}, err
	}
	if !proceed {
		s.logger.Debug().Msg("skip cycle because advisory lock held elsewhere")
		return RunReport{}, nil
	}
	if unlock != nil {
		defer unlock()
	}

	articles := s.fetchAll(ctx)

	report := RunReport{Fetched: len(articles)}
	var mu sync.Mutex

	// Per-article work is stateless apart from ledger writes, which the
	// store serializes itself.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, article := range articles {
		article := article
		g.Go(func() error {
			outcome := s.processArticle(gctx, article, force)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case outcome.failed:
				report.Failed++
			case outcome.skipped:
				report.Skipped++
			default:
				report.Analyzed++
			}
			report.Alerts = append(report.Alerts, outcome.alerts...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	if ctx.Err() != nil {
		return report, ctx.Err()
	}

	sort.SliceStable(report.Alerts, func(i, j int) bool {
		return report.Alerts[i].AmountMillions.GreaterThan(report.Alerts[j].AmountMillions)
	})

	if s.alertsOn && s.notifier != nil && len(report.Alerts) > 0 {
		if err := s.notifier.Notify(ctx, report.Alerts); err != nil {
			s.logger.Error().Err(err).Msg("failed to dispatch alert digest")
		}
	}

	s.sweepRetention(ctx)

	return report, nil
}

type articleOutcome struct {
	skipped bool
	failed  bool
	alerts  []alerting.Alert
}

// processArticle runs the pure pipeline over one article and claims its
// mentions in the ledger. A ledger failure leaves the article unmarked
// so the next cycle retries it; it never aborts the batch.
func (s *Service) processArticle(ctx context.Context, article mention.Article, force bool) articleOutcome {
	if !force {
		seen, err := s.ledger.IsSeen(ctx, article.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("article_id", article.ID).Msg("ledger seen check failed")
			return articleOutcome{failed: true}
		}
		if seen {
			return articleOutcome{skipped: true}
		}
	}

	mentions := s.analyzer.Analyze(article)

	var outcome articleOutcome
	now := time.Now().UTC()
	for _, m := range mentions {
		inserted, err := s.ledger.MarkAlerted(ctx, storage.AlertedMention{
			ArticleID:      m.ArticleID,
			DedupKey:       m.DedupKey(),
			Company:        m.Company,
			Kind:           string(m.Kind),
			AmountMillions: m.AmountMillions,
			Confidence:     m.Confidence,
			Source:         article.Source,
			Title:          article.Title,
			URL:            article.URL,
			AlertedAt:      now,
		})
		if err != nil {
			s.logger.Error().Err(err).Str("article_id", article.ID).Msg("ledger alert claim failed")
			return articleOutcome{failed: true, alerts: outcome.alerts}
		}
		if !inserted {
			// Another run, or a previous cycle, already alerted this
			// mention. Suppression is permanent per (article, key).
			continue
		}
		outcome.alerts = append(outcome.alerts, alerting.Alert{
			Company:        m.Company,
			AmountMillions: m.AmountMillions,
			Kind:           string(m.Kind),
			Confidence:     m.Confidence,
			Source:         article.Source,
			Title:          article.Title,
			URL:            article.URL,
			AlertedAt:      now,
		})
	}

	if err := s.ledger.MarkSeen(ctx, article.ID, article.Source, now); err != nil {
		s.logger.Error().Err(err).Str("article_id", article.ID).Msg("ledger mark seen failed")
		outcome.failed = true
		return outcome
	}

	return outcome
}

// fetchAll collects articles from every source, deduplicating by
// identity within the batch. A failing source is logged and skipped.
func (s *Service) fetchAll(ctx context.Context) []mention.Article {
	var articles []mention.Article
	seen := make(map[string]struct{})

	for _, source := range s.sources {
		batch, err := source.FetchBatch(ctx)
		if err != nil {
			s.logger.Error().Err(err).Str("source", source.Name()).Msg("source fetch failed")
			continue
		}
		for _, article := range batch {
			if _, dup := seen[article.ID]; dup {
				continue
			}
			seen[article.ID] = struct{}{}
			articles = append(articles, article)
		}
	}

	return articles
}

func (s *Service) sweepRetention(ctx context.Context) {
	if s.retention <= 0 {
		return
	}
	cutoff := time.Now().UTC().Add(-s.retention)
	if err := s.ledger.DeleteBefore(ctx, cutoff); err != nil {
		s.logger.Error().Err(err).Time("cutoff", cutoff).Msg("retention sweep failed")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
