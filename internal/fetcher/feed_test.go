package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

const feedTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Test Feed</title>
<item>
  <title>TechCorp reported $75M in ARR this quarter</title>
  <link>%s/news/techcorp-arr?utm_source=rss</link>
  <description>&lt;p&gt;TechCorp reported &lt;b&gt;$75M&lt;/b&gt; in ARR this quarter.&lt;/p&gt;</description>
  <pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate>
</item>
<item>
  <title>Item without a link</title>
  <description>Nothing to fetch here.</description>
</item>
<item>
  <title>Second story</title>
  <link>%s/news/second-story</link>
  <description>Another article.</description>
  <pubDate>not a date</pubDate>
</item>
</channel>
</rss>`

func TestFeedFetchBatch(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feed" {
			t.Fatalf("unexpected request path %s", r.URL.Path)
		}
		if r.Header.Get("User-Agent") != "revtracker-test" {
			t.Fatalf("user agent not forwarded: %q", r.Header.Get("User-Agent"))
		}
		fmt.Fprintf(w, feedTemplate, srv.URL, srv.URL)
	}))
	defer srv.Close()

	feed := NewFeed(FeedOptions{
		Name:      "testfeed",
		FeedURL:   srv.URL + "/feed",
		Timeout:   time.Second,
		UserAgent: "revtracker-test",
	}, noopLogger())

	articles, err := feed.FetchBatch(context.Background())
	if err != nil {
		t.Fatalf("FetchBatch: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("the linkless item should be skipped, got %d articles", len(articles))
	}

	first := articles[0]
	if first.ID != srv.URL+"/news/techcorp-arr" {
		t.Fatalf("tracking parameters should be stripped from the identity: %q", first.ID)
	}
	if first.Source != "testfeed" {
		t.Fatalf("source name missing: %q", first.Source)
	}
	if first.Title != "TechCorp reported $75M in ARR this quarter" {
		t.Fatalf("unexpected title %q", first.Title)
	}
	if first.Body != "TechCorp reported $75M in ARR this quarter." {
		t.Fatalf("description markup should be stripped: %q", first.Body)
	}
	if first.PublishedAt.Year() != 2006 {
		t.Fatalf("pubDate not parsed: %v", first.PublishedAt)
	}

	second := articles[1]
	if second.PublishedAt.IsZero() {
		t.Fatal("unparseable pubDate should fall back to fetch time")
	}
}

func TestFeedFetchBatchMaxItems(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, feedTemplate, srv.URL, srv.URL)
	}))
	defer srv.Close()

	feed := NewFeed(FeedOptions{
		Name:     "testfeed",
		FeedURL:  srv.URL,
		MaxItems: 1,
		Timeout:  time.Second,
	}, noopLogger())

	articles, err := feed.FetchBatch(context.Background())
	if err != nil {
		t.Fatalf("FetchBatch: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("max_items should cap the batch, got %d", len(articles))
	}
}

func TestFeedFetchBatchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	feed := NewFeed(FeedOptions{Name: "testfeed", FeedURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := feed.FetchBatch(context.Background()); err == nil {
		t.Fatal("HTTP 503 should surface as an error")
	}
}

func TestFeedFetchBatchBadXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not xml")
	}))
	defer srv.Close()

	feed := NewFeed(FeedOptions{Name: "testfeed", FeedURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := feed.FetchBatch(context.Background()); err == nil {
		t.Fatal("unparseable payload should surface as an error")
	}
}

func TestFeedFetchBody(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?><rss version="2.0"><channel><item>
			<title>Full body story</title>
			<link>%s/story</link>
			<description>short description</description>
		</item></channel></rss>`, srv.URL)
	})
	mux.HandleFunc("/story", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<nav>Navigation junk</nav>
			<article><p>Acme Systems announced $120 million in sales.</p><p>Growth continued.</p></article>
			<footer>Footer junk</footer>
		</body></html>`)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	feed := NewFeed(FeedOptions{
		Name:      "testfeed",
		FeedURL:   srv.URL + "/feed",
		FetchBody: true,
		Timeout:   time.Second,
	}, noopLogger())

	articles, err := feed.FetchBatch(context.Background())
	if err != nil {
		t.Fatalf("FetchBatch: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("want 1 article, got %d", len(articles))
	}

	body := articles[0].Body
	if body != "Acme Systems announced $120 million in sales.\nGrowth continued." {
		t.Fatalf("article paragraphs expected, got %q", body)
	}
}
