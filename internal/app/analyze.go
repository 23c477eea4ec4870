package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"startup-revenue-alerts/internal/mention"
)

// Analyze runs the extraction pipeline over a local text file (or stdin
// when path is "-") and prints the mentions found. The ledger is not
// consulted, so repeated runs print the same result.
func (a *App) Analyze(ctx context.Context, path string) error {
	body, name, err := readAnalyzeInput(path)
	if err != nil {
		return err
	}

	analyzer, err := a.newAnalyzer()
	if err != nil {
		return err
	}

	article := mention.Article{
		ID:        "local:" + name,
		Source:    "local",
		Title:     name,
		Body:      body,
		FetchedAt: time.Now().UTC(),
	}

	mentions := analyzer.Analyze(article)
	if len(mentions) == 0 {
		fmt.Fprintln(os.Stdout, "no qualifying revenue mentions found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Company\tAmount ($M)\tKind\tConfidence")
	for _, m := range mentions {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%.1f\n",
			m.Company,
			m.AmountMillions.StringFixed(1),
			m.Kind,
			m.Confidence,
		)
	}
	writer.Flush()

	return nil
}

func readAnalyzeInput(path string) (body, name string, err error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "stdin", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), filepath.Base(path), nil
}
