package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"startup-revenue-alerts/internal/mention"
)

// ArticleSource supplies article batches to the pipeline. The core never
// performs HTTP or DOM work itself; it only consumes this interface.
type ArticleSource interface {
	Name() string
	FetchBatch(ctx context.Context) ([]mention.Article, error)
}

// CanonicalID derives a stable article identity from its URL: lowercase
// scheme and host, query and fragment stripped, trailing slash removed.
// Tracking parameters appended by feeds never produce a second identity
// for the same article.
func CanonicalID(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse article url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("article url %q is not absolute", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")

	return u.String(), nil
}
