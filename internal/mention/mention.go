package mention

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies the metric a monetary figure refers to.
type Kind string

const (
	KindRevenue  Kind = "revenue"
	KindARR      Kind = "arr"
	KindBookings Kind = "bookings"
	KindSales    Kind = "sales"
	KindUnknown  Kind = "unknown"
)

// KindFromString maps a matched keyword onto a Kind.
func KindFromString(s string) Kind {
	switch strings.ToLower(strings.Join(strings.Fields(s), " ")) {
	case "revenue", "revenues":
		return KindRevenue
	case "arr", "annual recurring revenue":
		return KindARR
	case "bookings":
		return KindBookings
	case "sales":
		return KindSales
	default:
		return KindUnknown
	}
}

// Article is the unit of input handed over by the fetch collaborator.
// It is immutable once ingested; the pipeline only reads it.
type Article struct {
	ID          string
	Source      string
	Title       string
	Body        string
	URL         string
	PublishedAt time.Time
	FetchedAt   time.Time
}

// Span marks character offsets into normalized article text.
type Span struct {
	Start int
	End   int
}

// AmountCandidate is a monetary figure found by the extractor, before
// company resolution and threshold filtering.
type AmountCandidate struct {
	RawText string
	// Value is normalized to millions of currency units regardless of
	// how the figure was phrased in the source text.
	Value decimal.Decimal
	Kind  Kind
	Span  Span
}

// RevenueMention is the unit of output and persistence.
type RevenueMention struct {
	ArticleID      string
	Company        string
	AmountMillions decimal.Decimal
	Kind           Kind
	Confidence     float64
	Span           Span
}

// DedupKey is a deterministic fingerprint of company, kind, and rounded
// amount. Two mentions with the same key within one article collapse to
// one; the ledger suppresses repeats across runs per (article, key).
func (m RevenueMention) DedupKey() string {
	return fmt.Sprintf("%s|%s|%s", strings.ToLower(m.Company), m.Kind, m.AmountMillions.Round(0).String())
}

// Assemble joins resolved candidates into the final mention list for one
// article: unresolved companies are dropped, amounts below the threshold
// (exclusive) are dropped, duplicates by DedupKey keep the highest
// confidence (earliest span on ties), and the result is ordered by
// amount descending with first appearance breaking ties.
func Assemble(mentions []RevenueMention, thresholdMillions decimal.Decimal) []RevenueMention {
	byKey := make(map[string]int)
	kept := make([]RevenueMention, 0, len(mentions))

	for _, m := range mentions {
		if m.Company == "" {
			continue
		}
		if m.AmountMillions.LessThan(thresholdMillions) {
			continue
		}

		key := m.DedupKey()
		idx, seen := byKey[key]
		if !seen {
			byKey[key] = len(kept)
			kept = append(kept, m)
			continue
		}

		prev := kept[idx]
		if m.Confidence > prev.Confidence {
			kept[idx] = m
		} else if m.Confidence == prev.Confidence && m.Span.Start < prev.Span.Start {
			kept[idx] = m
		}
	}

	// Stable sort keeps first-appearance order for equal amounts. The
	// descending order is a contract the alerting side relies on.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].AmountMillions.GreaterThan(kept[j].AmountMillions)
	})
	return kept
}
