package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testRecord(articleID, dedupKey, source string, alertedAt time.Time) AlertedMention {
	return AlertedMention{
		ArticleID:      articleID,
		DedupKey:       dedupKey,
		Company:        "TechCorp",
		Kind:           "arr",
		AmountMillions: decimal.NewFromInt(75),
		Confidence:     1.0,
		Source:         source,
		AlertedAt:      alertedAt,
	}
}

func TestMemoryLedgerSeen(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()

	seen, err := ledger.IsSeen(ctx, "a1")
	if err != nil || seen {
		t.Fatalf("fresh ledger should not know a1: %v %v", seen, err)
	}

	if err := ledger.MarkSeen(ctx, "a1", "techcrunch", time.Now()); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if seen, _ := ledger.IsSeen(ctx, "a1"); !seen {
		t.Fatal("a1 should be seen after MarkSeen")
	}
}

func TestMemoryLedgerMarkAlertedClaimsOnce(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	rec := testRecord("a1", "techcorp|arr|75", "techcrunch", time.Now())

	inserted, err := ledger.MarkAlerted(ctx, rec)
	if err != nil || !inserted {
		t.Fatalf("first claim should insert: %v %v", inserted, err)
	}

	inserted, err = ledger.MarkAlerted(ctx, rec)
	if err != nil {
		t.Fatalf("second claim errored: %v", err)
	}
	if inserted {
		t.Fatal("second claim of the same (article, key) must not insert")
	}

	if alerted, _ := ledger.IsAlerted(ctx, rec.ArticleID, rec.DedupKey); !alerted {
		t.Fatal("IsAlerted should report the claimed pair")
	}
}

func TestMemoryLedgerSameKeyDifferentArticles(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	now := time.Now()

	if inserted, _ := ledger.MarkAlerted(ctx, testRecord("a1", "techcorp|arr|75", "techcrunch", now)); !inserted {
		t.Fatal("first article should claim its mention")
	}
	if inserted, _ := ledger.MarkAlerted(ctx, testRecord("a2", "techcorp|arr|75", "forbes", now)); !inserted {
		t.Fatal("the same figure in a different article is a separate alert")
	}
}

func TestMemoryLedgerDeleteBefore(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	old := time.Now().Add(-48 * time.Hour)
	fresh := time.Now()

	_ = ledger.MarkSeen(ctx, "old", "techcrunch", old)
	_ = ledger.MarkSeen(ctx, "fresh", "techcrunch", fresh)
	_, _ = ledger.MarkAlerted(ctx, testRecord("old", "k", "techcrunch", old))
	_, _ = ledger.MarkAlerted(ctx, testRecord("fresh", "k", "techcrunch", fresh))

	if err := ledger.DeleteBefore(ctx, time.Now().Add(-24*time.Hour)); err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}

	if seen, _ := ledger.IsSeen(ctx, "old"); seen {
		t.Fatal("expired seen entry should be gone")
	}
	if seen, _ := ledger.IsSeen(ctx, "fresh"); !seen {
		t.Fatal("fresh seen entry should survive")
	}
	if alerted, _ := ledger.IsAlerted(ctx, "old", "k"); alerted {
		t.Fatal("expired alert should be gone")
	}
}

func TestMemoryLedgerListRecentAlerts(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	base := time.Now().Add(-time.Hour)

	for i, id := range []string{"a1", "a2", "a3"} {
		rec := testRecord(id, "k", "techcrunch", base.Add(time.Duration(i)*time.Minute))
		if _, err := ledger.MarkAlerted(ctx, rec); err != nil {
			t.Fatalf("MarkAlerted %s: %v", id, err)
		}
	}

	alerts, err := ledger.ListRecentAlerts(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecentAlerts: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("limit should apply, got %d", len(alerts))
	}
	if alerts[0].ArticleID != "a3" || alerts[1].ArticleID != "a2" {
		t.Fatalf("newest first expected, got %q then %q", alerts[0].ArticleID, alerts[1].ArticleID)
	}
}

func TestMemoryLedgerStats(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	now := time.Now()

	_ = ledger.MarkSeen(ctx, "a1", "techcrunch", now)
	_ = ledger.MarkSeen(ctx, "a2", "forbes", now)
	_, _ = ledger.MarkAlerted(ctx, testRecord("a1", "k1", "techcrunch", now))
	_, _ = ledger.MarkAlerted(ctx, testRecord("a1", "k2", "techcrunch", now))
	_, _ = ledger.MarkAlerted(ctx, testRecord("a2", "k1", "forbes", now))

	stats, err := ledger.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ArticlesSeen != 2 {
		t.Fatalf("want 2 articles seen, got %d", stats.ArticlesSeen)
	}
	if stats.AlertsEmitted != 3 {
		t.Fatalf("want 3 alerts, got %d", stats.AlertsEmitted)
	}
	if stats.AlertsBySource["techcrunch"] != 2 || stats.AlertsBySource["forbes"] != 1 {
		t.Fatalf("per-source counts are wrong: %#v", stats.AlertsBySource)
	}
}
