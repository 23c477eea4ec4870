package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
)

// Status prints ledger counters.
func (a *App) Status(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot report status")
	}
	if closeStore != nil {
		defer closeStore()
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "articles seen:  %d\n", stats.ArticlesSeen)
	fmt.Fprintf(os.Stdout, "alerts emitted: %d\n", stats.AlertsEmitted)

	if len(stats.AlertsBySource) == 0 {
		return nil
	}

	sources := make([]string, 0, len(stats.AlertsBySource))
	for source := range stats.AlertsBySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	fmt.Fprintln(os.Stdout, "\nalerts by source:")
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, source := range sources {
		fmt.Fprintf(writer, "  %s\t%d\n", source, stats.AlertsBySource[source])
	}
	writer.Flush()

	return nil
}
