package fetcher

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"startup-revenue-alerts/internal/mention"
)

// FeedOptions parameterise one RSS publisher feed.
type FeedOptions struct {
	Name      string
	FeedURL   string
	MaxItems  int
	FetchBody bool
	Timeout   time.Duration
	UserAgent string
}

// Feed pulls articles from a single RSS feed, optionally following item
// links to extract the full body text.
type Feed struct {
	opts   FeedOptions
	client *http.Client
	logger zerolog.Logger
}

// NewFeed constructs a feed source.
func NewFeed(opts FeedOptions, logger zerolog.Logger) *Feed {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = 20
	}

	return &Feed{
		opts:   opts,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "feed").Str("source", opts.Name).Logger(),
	}
}

// Name identifies the publisher.
func (f *Feed) Name() string {
	return f.opts.Name
}

type rssDocument struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// FetchBatch downloads and parses the feed. Items without a usable link
// are skipped; a failed body fetch degrades to the feed description.
func (f *Feed) FetchBatch(ctx context.Context) ([]mention.Article, error) {
	payload, err := f.get(ctx, f.opts.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", f.opts.Name, err)
	}

	var doc rssDocument
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", f.opts.Name, err)
	}

	items := doc.Channel.Items
	if len(items) > f.opts.MaxItems {
		items = items[:f.opts.MaxItems]
	}

	now := time.Now().UTC()
	articles := make([]mention.Article, 0, len(items))
	for _, item := range items {
		id, idErr := CanonicalID(item.Link)
		if idErr != nil {
			f.logger.Debug().Str("link", item.Link).Msg("skipping item without usable link")
			continue
		}

		body := htmlToText(item.Description)
		if f.opts.FetchBody {
			if full, bodyErr := f.fetchBody(ctx, item.Link); bodyErr != nil {
				f.logger.Debug().Err(bodyErr).Str("link", item.Link).Msg("body fetch failed, using description")
			} else if full != "" {
				body = full
			}
		}

		published := parsePubDate(item.PubDate)
		if published.IsZero() {
			published = now
		}

		articles = append(articles, mention.Article{
			ID:          id,
			Source:      f.opts.Name,
			Title:       strings.TrimSpace(item.Title),
			Body:        body,
			URL:         item.Link,
			PublishedAt: published,
			FetchedAt:   now,
		})
	}

	f.logger.Info().Int("articles", len(articles)).Msg("feed fetched")
	return articles, nil
}

func (f *Feed) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	// Feeds and article pages are bounded; 4 MiB covers both.
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

// fetchBody pulls the article page and extracts paragraph text.
func (f *Feed) fetchBody(ctx context.Context, link string) (string, error) {
	payload, err := f.get(ctx, link)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(payload)))
	if err != nil {
		return "", fmt.Errorf("parse article html: %w", err)
	}

	doc.Find("script, style, nav, footer, aside").Remove()

	var paragraphs []string
	doc.Find("article p").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
			if text := strings.TrimSpace(sel.Text()); text != "" {
				paragraphs = append(paragraphs, text)
			}
		})
	}

	return strings.Join(paragraphs, "\n"), nil
}

// htmlToText strips markup from a feed description.
func htmlToText(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(doc.Text())
}

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

func parsePubDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

var _ ArticleSource = (*Feed)(nil)
