package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryLedger is an in-process Ledger for tests and runs without a
// configured database. It provides the same idempotence guarantees as
// the durable store but does not survive restarts.
type MemoryLedger struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	alerted map[string]AlertedMention
	nextID  int64
}

// NewMemoryLedger constructs an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		seen:    make(map[string]time.Time),
		alerted: make(map[string]AlertedMention),
		nextID:  1,
	}
}

func alertKey(articleID, dedupKey string) string {
	return articleID + "\x00" + dedupKey
}

// IsSeen reports whether an article identity was already analyzed.
func (m *MemoryLedger) IsSeen(_ context.Context, articleID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[articleID]
	return ok, nil
}

// MarkSeen records an analyzed article; re-marking is a no-op.
func (m *MemoryLedger) MarkSeen(_ context.Context, articleID, _ string, analyzedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[articleID]; !ok {
		m.seen[articleID] = analyzedAt
	}
	return nil
}

// IsAlerted reports whether a mention was already alerted.
func (m *MemoryLedger) IsAlerted(_ context.Context, articleID, dedupKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.alerted[alertKey(articleID, dedupKey)]
	return ok, nil
}

// MarkAlerted claims the (article, dedup key) pair under the ledger
// mutex, mirroring the uniqueness constraint of the durable store.
func (m *MemoryLedger) MarkAlerted(_ context.Context, rec AlertedMention) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := alertKey(rec.ArticleID, rec.DedupKey)
	if _, ok := m.alerted[key]; ok {
		return false, nil
	}
	rec.ID = m.nextID
	m.nextID++
	m.alerted[key] = rec
	return true, nil
}

// DeleteBefore applies the retention policy.
func (m *MemoryLedger) DeleteBefore(_ context.Context, olderThan time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, analyzedAt := range m.seen {
		if analyzedAt.Before(olderThan) {
			delete(m.seen, id)
		}
	}
	for key, rec := range m.alerted {
		if rec.AlertedAt.Before(olderThan) {
			delete(m.alerted, key)
		}
	}
	return nil
}

// ListRecentAlerts lists the most recent alerted mentions.
func (m *MemoryLedger) ListRecentAlerts(_ context.Context, limit int) ([]AlertedMention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alerts := make([]AlertedMention, 0, len(m.alerted))
	for _, rec := range m.alerted {
		alerts = append(alerts, rec)
	}
	sort.Slice(alerts, func(i, j int) bool {
		if !alerts[i].AlertedAt.Equal(alerts[j].AlertedAt) {
			return alerts[i].AlertedAt.After(alerts[j].AlertedAt)
		}
		return alerts[i].ID > alerts[j].ID
	})
	if limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}
	return alerts, nil
}

// ListAlertsBetween lists alerts within a time window.
func (m *MemoryLedger) ListAlertsBetween(_ context.Context, from, to time.Time) ([]AlertedMention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var alerts []AlertedMention
	for _, rec := range m.alerted {
		if rec.AlertedAt.Before(from) || !rec.AlertedAt.Before(to) {
			continue
		}
		alerts = append(alerts, rec)
	}
	sort.Slice(alerts, func(i, j int) bool {
		if !alerts[i].AlertedAt.Equal(alerts[j].AlertedAt) {
			return alerts[i].AlertedAt.Before(alerts[j].AlertedAt)
		}
		return alerts[i].ID < alerts[j].ID
	})
	return alerts, nil
}

// Stats counts ledger contents.
func (m *MemoryLedger) Stats(_ context.Context) (LedgerStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := LedgerStats{
		ArticlesSeen:   int64(len(m.seen)),
		AlertsEmitted:  int64(len(m.alerted)),
		AlertsBySource: make(map[string]int64),
	}
	for _, rec := range m.alerted {
		stats.AlertsBySource[rec.Source]++
	}
	return stats, nil
}

var (
	_ Ledger   = (*MemoryLedger)(nil)
	_ AlertLog = (*MemoryLedger)(nil)
)
