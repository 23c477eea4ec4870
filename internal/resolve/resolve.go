package resolve

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"startup-revenue-alerts/internal/mention"
	"startup-revenue-alerts/internal/textnorm"
)

// DefaultWindowTokens is the token radius scanned around a candidate.
const DefaultWindowTokens = 15

const maxPhraseTokens = 4

// Confidence levels assigned by the heuristic. Company resolution is
// best-effort: there is no real part-of-speech tagging here, and
// capitalized section headers are a known false-positive source.
const (
	ConfidenceSubject   = 1.0
	ConfidenceProximity = 0.6
)

// Sentence-initial words and financial-news boilerplate that must never
// be taken for a company name.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "according": {}, "after": {}, "as": {},
	"at": {}, "before": {}, "but": {}, "by": {}, "during": {}, "for": {},
	"if": {}, "in": {}, "it": {}, "its": {}, "last": {}, "meanwhile": {},
	"next": {}, "on": {}, "or": {}, "so": {}, "that": {}, "the": {},
	"these": {}, "this": {}, "those": {}, "today": {}, "while": {},
	"with": {}, "yet": {},
	// metric and currency tokens are capitalized in headlines
	"arr": {}, "usd": {}, "gaap": {}, "ipo": {},
	"q1": {}, "q2": {}, "q3": {}, "q4": {},
}

// Verbs that put a preceding noun phrase in subject position relative to
// a reported figure.
var reportingVerbs = map[string]struct{}{
	"reported": {}, "announced": {}, "announces": {}, "posted": {},
	"hit": {}, "reached": {}, "generated": {}, "disclosed": {},
	"said": {}, "says": {}, "raised": {}, "secured": {}, "reports": {},
	"crossed": {}, "surpassed": {},
}

// Resolver locates the most likely subject company for an extracted
// amount by scanning a bounded token window around its span.
type Resolver struct {
	window int
}

// New builds a Resolver with the given token window radius; non-positive
// values fall back to the default.
func New(windowTokens int) *Resolver {
	if windowTokens <= 0 {
		windowTokens = DefaultWindowTokens
	}
	return &Resolver{window: windowTokens}
}

type token struct {
	raw   string
	start int
	end   int
}

// Resolve returns the resolved company name and a confidence score in
// [0,1]. An empty name with confidence 0 means no eligible candidate was
// found within the window; the assembler drops such candidates.
func (r *Resolver) Resolve(candidate mention.AmountCandidate, text textnorm.NormalizedText) (string, float64) {
	tokens := tokenize(text.Text)
	if len(tokens) == 0 {
		return "", 0
	}

	first, last := spanTokenRange(tokens, candidate.Span)
	lo := first - r.window
	if lo < 0 {
		lo = 0
	}
	hi := last + r.window
	if hi > len(tokens)-1 {
		hi = len(tokens) - 1
	}

	phrases := capitalizedPhrases(tokens, lo, hi, candidate.Span)
	if len(phrases) == 0 {
		return "", 0
	}

	// Subject-position phrases beat proximity-only ones regardless of
	// distance; among equals the closest to the amount wins.
	best := -1
	bestSubject := false
	bestDist := 0
	for i, p := range phrases {
		subject := isSubject(tokens, p)
		dist := phraseDistance(tokens, p, candidate.Span)
		if best == -1 ||
			(subject && !bestSubject) ||
			(subject == bestSubject && dist < bestDist) {
			best = i
			bestSubject = subject
			bestDist = dist
		}
	}

	name := phraseText(tokens, phrases[best])
	if bestSubject {
		return name, ConfidenceSubject
	}
	return name, ConfidenceProximity
}

type phrase struct {
	first int
	last  int
}

func tokenize(text string) []token {
	var tokens []token
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, token{raw: text[start:i], start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{raw: text[start:], start: start, end: len(text)})
	}
	return tokens
}

func spanTokenRange(tokens []token, span mention.Span) (int, int) {
	first, last := 0, len(tokens)-1
	found := false
	for i, t := range tokens {
		if t.end <= span.Start {
			continue
		}
		if t.start >= span.End {
			last = i - 1
			break
		}
		if !found {
			first = i
			found = true
		}
		last = i
	}
	if last < first {
		last = first
	}
	return first, last
}

func capitalizedPhrases(tokens []token, lo, hi int, exclude mention.Span) []phrase {
	var phrases []phrase
	i := lo
	for i <= hi {
		if !eligibleToken(tokens[i]) || overlapsSpan(tokens[i], exclude) {
			i++
			continue
		}
		j := i
		for j+1 <= hi && j-i+1 < maxPhraseTokens && eligibleToken(tokens[j+1]) && !overlapsSpan(tokens[j+1], exclude) {
			j++
		}
		phrases = append(phrases, phrase{first: i, last: j})
		i = j + 1
	}
	return phrases
}

func overlapsSpan(t token, span mention.Span) bool {
	return t.start < span.End && t.end > span.Start
}

// eligibleToken reports whether a token looks like part of a proper-noun
// company name: leading capital, not a stopword, not a bare figure.
func eligibleToken(t token) bool {
	word := cleanWord(t.raw)
	if word == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(word)
	if !unicode.IsUpper(r) {
		return false
	}
	if _, stopped := stopwords[strings.ToLower(word)]; stopped {
		return false
	}
	if utf8.RuneCountInString(word) < 2 {
		return false
	}
	return true
}

func cleanWord(raw string) string {
	word := strings.TrimFunc(raw, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '&'
	})
	for _, suffix := range []string{"'s", "’s"} {
		word = strings.TrimSuffix(word, suffix)
	}
	return word
}

func isSubject(tokens []token, p phrase) bool {
	next := p.last + 1
	if next >= len(tokens) {
		return false
	}
	word := strings.ToLower(cleanWord(tokens[next].raw))
	_, ok := reportingVerbs[word]
	return ok
}

func phraseDistance(tokens []token, p phrase, span mention.Span) int {
	if tokens[p.last].end <= span.Start {
		return span.Start - tokens[p.last].end
	}
	if tokens[p.first].start >= span.End {
		return tokens[p.first].start - span.End
	}
	return 0
}

func phraseText(tokens []token, p phrase) string {
	words := make([]string, 0, p.last-p.first+1)
	for i := p.first; i <= p.last; i++ {
		words = append(words, cleanWord(tokens[i].raw))
	}
	return strings.Join(words, " ")
}
