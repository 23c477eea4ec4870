package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertedMention is a persisted record of one emitted alert. The
// (ArticleID, DedupKey) pair is unique at the storage layer; it is the
// authoritative gate against double-alerting.
type AlertedMention struct {
	ID             int64
	ArticleID      string
	DedupKey       string
	Company        string
	Kind           string
	AmountMillions decimal.Decimal
	Confidence     float64
	Source         string
	Title          string
	URL            string
	AlertedAt      time.Time
}

// LedgerStats summarises ledger contents for the status command.
type LedgerStats struct {
	ArticlesSeen   int64
	AlertsEmitted  int64
	AlertsBySource map[string]int64
}
