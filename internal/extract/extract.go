package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"startup-revenue-alerts/internal/mention"
	"startup-revenue-alerts/internal/textnorm"
)

const (
	amountGroup = `(?P<amount>\d+(?:,\d{3})*(?:\.\d+)?)`
	unitGroup   = `(?P<unit>billion|million|thousand|bn|mn|[bmk])`
	kindGroup   = `(?P<kind>annual\s+recurring\s+revenue|revenue|arr|bookings|sales)`
)

// kindKeywordRe locates a metric keyword inside a trailing token window
// for rules that match the figure alone.
var kindKeywordRe = regexp.MustCompile(`(?i)\b(annual\s+recurring\s+revenue|revenue|arr|bookings|sales)\b`)

// Rule is one prioritized amount pattern. Rules are explicit data so
// they stay independently testable; lower Priority values win ties when
// overlapping matches have equal length.
type Rule struct {
	Name     string
	Pattern  *regexp.Regexp
	Priority int
	// KindWindow, when positive, resolves the metric kind by scanning up
	// to this many tokens after the match instead of a capture group.
	// Matches with no keyword in the window are discarded.
	KindWindow int
}

// DefaultRules returns the built-in rule set, ordered by priority:
// keyword-anchored rules first, the generic currency rule last.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "currency_unit_kind",
			Pattern:  regexp.MustCompile(`(?i)\$` + amountGroup + `\s*` + unitGroup + `\b\s*(?:(?:in|of)\s+)?` + kindGroup + `\b`),
			Priority: 1,
		},
		{
			Name:     "spelled_unit_kind",
			Pattern:  regexp.MustCompile(`(?i)\b` + amountGroup + `\s*(?P<unit>billion|million|thousand|bn|mn)\s+(?:(?:dollars?|usd)\s+)?(?:(?:in|of)\s+)?` + kindGroup + `\b`),
			Priority: 2,
		},
		{
			Name:     "kind_verb_amount",
			Pattern:  regexp.MustCompile(`(?i)\b` + kindGroup + `\s+(?:of|reached|hit|grew\s+to|rose\s+to|totaled|totalled|was|came\s+in\s+at)\s+\$?` + amountGroup + `\s*` + unitGroup + `\b`),
			Priority: 3,
		},
		{
			Name:       "currency_near_kind",
			Pattern:    regexp.MustCompile(`(?i)\$` + amountGroup + `\s*` + unitGroup + `\b`),
			Priority:   4,
			KindWindow: 8,
		},
	}
}

// Extract finds monetary-figure expressions in normalized text and
// yields candidates in left-to-right order, not deduplicated. Malformed
// figures are skipped, never raised: a bad match just means one fewer
// candidate.
func Extract(text textnorm.NormalizedText, rules []Rule) []mention.AmountCandidate {
	type rawMatch struct {
		candidate mention.AmountCandidate
		priority  int
	}

	var matches []rawMatch
	for _, rule := range rules {
		amountIdx := rule.Pattern.SubexpIndex("amount")
		unitIdx := rule.Pattern.SubexpIndex("unit")
		kindIdx := rule.Pattern.SubexpIndex("kind")

		for _, loc := range rule.Pattern.FindAllStringSubmatchIndex(text.Text, -1) {
			amountStr := groupText(text.Text, loc, amountIdx)
			unitStr := groupText(text.Text, loc, unitIdx)

			value, ok := normalizeAmount(amountStr, unitStr)
			if !ok {
				continue
			}

			kind := mention.KindUnknown
			if rule.KindWindow > 0 {
				kind, ok = kindInWindow(text.Text[loc[1]:], rule.KindWindow)
				if !ok {
					continue
				}
			} else if kindIdx >= 0 {
				kind = mention.KindFromString(groupText(text.Text, loc, kindIdx))
			}

			matches = append(matches, rawMatch{
				candidate: mention.AmountCandidate{
					RawText: text.Text[loc[0]:loc[1]],
					Value:   value,
					Kind:    kind,
					Span:    mention.Span{Start: loc[0], End: loc[1]},
				},
				priority: rule.Priority,
			})
		}
	}

	// Overlap resolution: longest match wins, priority order breaks ties.
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.candidate.Span.Start != b.candidate.Span.Start {
			return a.candidate.Span.Start < b.candidate.Span.Start
		}
		al := a.candidate.Span.End - a.candidate.Span.Start
		bl := b.candidate.Span.End - b.candidate.Span.Start
		if al != bl {
			return al > bl
		}
		return a.priority < b.priority
	})

	var out []mention.AmountCandidate
	for _, m := range matches {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if m.candidate.Span.Start < last.Span.End {
				if m.candidate.Span.End-m.candidate.Span.Start > last.Span.End-last.Span.Start {
					out[len(out)-1] = m.candidate
				}
				continue
			}
		}
		out = append(out, m.candidate)
	}
	return out
}

func groupText(text string, loc []int, idx int) string {
	if idx < 0 || loc[2*idx] < 0 {
		return ""
	}
	return text[loc[2*idx]:loc[2*idx+1]]
}

// normalizeAmount converts a matched figure and magnitude word into
// millions. K scales down by a thousand, B up by a thousand.
func normalizeAmount(amountStr, unitStr string) (decimal.Decimal, bool) {
	cleaned := strings.ReplaceAll(amountStr, ",", "")
	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}

	var multiplier decimal.Decimal
	switch strings.ToLower(unitStr) {
	case "k", "thousand":
		multiplier = decimal.New(1, -3)
	case "m", "mn", "million":
		multiplier = decimal.New(1, 0)
	case "b", "bn", "billion":
		multiplier = decimal.New(1, 3)
	default:
		return decimal.Decimal{}, false
	}

	value = value.Mul(multiplier)
	if value.Sign() <= 0 {
		return decimal.Decimal{}, false
	}
	return value, true
}

func kindInWindow(tail string, tokens int) (mention.Kind, bool) {
	fields := strings.Fields(tail)
	if len(fields) > tokens {
		fields = fields[:tokens]
	}
	window := strings.Join(fields, " ")
	match := kindKeywordRe.FindString(window)
	if match == "" {
		return mention.KindUnknown, false
	}
	return mention.KindFromString(match), true
}
