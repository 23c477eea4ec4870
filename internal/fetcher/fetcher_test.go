package fetcher

import "testing"

func TestCanonicalID(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"https://Example.COM/news/techcorp-arr/", "https://example.com/news/techcorp-arr"},
		{"https://example.com/news/techcorp-arr?utm_source=rss&utm_medium=feed", "https://example.com/news/techcorp-arr"},
		{"https://example.com/news/techcorp-arr#section", "https://example.com/news/techcorp-arr"},
		{"HTTPS://example.com/a", "https://example.com/a"},
		{"  https://example.com/a  ", "https://example.com/a"},
	}

	for _, tc := range cases {
		got, err := CanonicalID(tc.raw)
		if err != nil {
			t.Fatalf("CanonicalID(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("CanonicalID(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestCanonicalIDSameArticleDifferentTracking(t *testing.T) {
	a, err := CanonicalID("https://example.com/story?utm_source=rss")
	if err != nil {
		t.Fatalf("CanonicalID: %v", err)
	}
	b, err := CanonicalID("https://example.com/story/?utm_campaign=daily#top")
	if err != nil {
		t.Fatalf("CanonicalID: %v", err)
	}
	if a != b {
		t.Fatalf("tracking variants must share one identity: %q vs %q", a, b)
	}
}

func TestCanonicalIDRejectsRelativeURL(t *testing.T) {
	if _, err := CanonicalID("/news/techcorp-arr"); err == nil {
		t.Fatal("relative URLs have no stable identity and must be rejected")
	}
	if _, err := CanonicalID("not a url at all ::"); err == nil {
		t.Fatal("garbage input must be rejected")
	}
}
