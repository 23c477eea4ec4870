package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"startup-revenue-alerts/internal/alerting"
)

// Summary reports ledger activity over the last N days and, when
// alerting is enabled, delivers it through the channels that support
// summaries.
func (a *App) Summary(ctx context.Context, opts SummaryOptions) error {
	days := opts.Days
	if days <= 0 {
		days = 7
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot summarize")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	records, err := store.ListAlertsBetween(ctx, from, to)
	if err != nil {
		return err
	}

	summary := alerting.Summary{
		From:           from,
		To:             to,
		ArticlesSeen:   stats.ArticlesSeen,
		AlertsEmitted:  stats.AlertsEmitted,
		AlertsBySource: stats.AlertsBySource,
	}
	for _, rec := range records {
		summary.Alerts = append(summary.Alerts, alerting.Alert{
			Company:        rec.Company,
			AmountMillions: rec.AmountMillions,
			Kind:           rec.Kind,
			Confidence:     rec.Confidence,
			Source:         rec.Source,
			Title:          rec.Title,
			URL:            rec.URL,
			AlertedAt:      rec.AlertedAt,
		})
	}
	sort.SliceStable(summary.Alerts, func(i, j int) bool {
		return summary.Alerts[i].AmountMillions.GreaterThan(summary.Alerts[j].AmountMillions)
	})

	fmt.Fprint(os.Stdout, alerting.RenderSummaryText(summary))

	if !a.Config.Alerting.Enabled {
		return nil
	}
	sn, ok := a.newNotifier().(alerting.SummaryNotifier)
	if !ok {
		a.Logger.Warn().Msg("no summary-capable alert channels configured")
		return nil
	}

	if err := sn.NotifySummary(ctx, summary); err != nil {
		return err
	}
	a.Logger.Info().Int("alerts", len(summary.Alerts)).Int("days", days).Msg("summary delivered")
	return nil
}
