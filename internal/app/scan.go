package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"startup-revenue-alerts/internal/service"
)

// Scan runs exactly one scrape cycle and prints the resulting alerts.
func (a *App) Scan(ctx context.Context, opts ScanOptions) error {
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

	svc := service.New(a.Config, nil, a.newSources(), analyzer, ledger, a.newNotifier(), a.Logger)

	report, err := svc.RunCycle(ctx, opts.Force)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Int("fetched", report.Fetched).
		Int("analyzed", report.Analyzed).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("alerts", len(report.Alerts)).
		Msg("scan complete")

	if len(report.Alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no new revenue alerts")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Company\tAmount ($M)\tKind\tConfidence\tSource\tTitle")
	for _, alert := range report.Alerts {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%.1f\t%s\t%s\n",
			alert.Company,
			alert.AmountMillions.StringFixed(1),
			alert.Kind,
			alert.Confidence,
			alert.Source,
			sanitizeInline(alert.Title),
		)
	}
	writer.Flush()

	return nil
}
