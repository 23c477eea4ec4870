package alerting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Summary aggregates ledger activity over a reporting window.
type Summary struct {
	From           time.Time
	To             time.Time
	ArticlesSeen   int64
	AlertsEmitted  int64
	AlertsBySource map[string]int64
	// Alerts emitted within the window, ordered by amount descending.
	Alerts []Alert
}

// SummaryNotifier delivers periodic activity summaries. It is optional:
// channels that only handle per-cycle digests are skipped by Multi.
type SummaryNotifier interface {
	NotifySummary(ctx context.Context, summary Summary) error
}

// NotifySummary fans the summary out to every channel that supports it.
func (m Multi) NotifySummary(ctx context.Context, summary Summary) error {
	var firstErr error
	for _, n := range m {
		sn, ok := n.(SummaryNotifier)
		if !ok {
			continue
		}
		if err := sn.NotifySummary(ctx, summary); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func summarySources(summary Summary) []string {
	sources := make([]string, 0, len(summary.AlertsBySource))
	for source := range summary.AlertsBySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources
}

// RenderSummaryText is the plain-text summary form, shared by the email
// text alternative, the Telegram channel, and CLI output.
func RenderSummaryText(summary Summary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Revenue tracker summary %s - %s\n",
		summary.From.UTC().Format("2006-01-02"), summary.To.UTC().Format("2006-01-02")))
	sb.WriteString(strings.Repeat("=", 40) + "\n\n")
	sb.WriteString(fmt.Sprintf("Articles seen:  %d\n", summary.ArticlesSeen))
	sb.WriteString(fmt.Sprintf("Alerts emitted: %d\n", summary.AlertsEmitted))

	if len(summary.AlertsBySource) > 0 {
		sb.WriteString("\nAlerts by source:\n")
		for _, source := range summarySources(summary) {
			sb.WriteString(fmt.Sprintf("  %s: %d\n", source, summary.AlertsBySource[source]))
		}
	}

	if len(summary.Alerts) == 0 {
		sb.WriteString("\nNo alerts in this window.\n")
		return sb.String()
	}

	sb.WriteString("\nAlerts in this window:\n")
	for _, alert := range summary.Alerts {
		sb.WriteString(fmt.Sprintf("  %s: $%sM %s (%s)\n",
			alert.Company, alert.AmountMillions.StringFixed(1), alert.Kind, alert.Source))
	}
	return sb.String()
}

var _ SummaryNotifier = (Multi)(nil)
