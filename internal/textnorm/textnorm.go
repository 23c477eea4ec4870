package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Boilerplate lines shorter than this without terminal punctuation are
// dropped (navigation fragments, share buttons, bylines).
const minContentLine = 30

// Segment marks a sentence as offsets into NormalizedText.Text.
type Segment struct {
	Start int
	End   int
}

// NormalizedText is the canonical form extraction operates on. All spans
// produced downstream refer to Text, so sentence offsets stay valid for
// company-resolution context windows.
type NormalizedText struct {
	Text      string
	Sentences []Segment
}

// Normalize converts raw article text into canonical form: NFKC unicode
// normalization, boilerplate line removal, whitespace collapse, and
// sentence segmentation. It is best-effort and never fails: input that
// cannot be segmented comes back as a single segment.
func Normalize(raw string) NormalizedText {
	cleaned := norm.NFKC.String(raw)
	cleaned = dropBoilerplate(cleaned)
	cleaned = collapseWhitespace(cleaned)

	nt := NormalizedText{Text: cleaned}
	if cleaned == "" {
		return nt
	}

	nt.Sentences = segment(cleaned)
	if len(nt.Sentences) == 0 {
		nt.Sentences = []Segment{{Start: 0, End: len(cleaned)}}
	}
	return nt
}

func dropBoilerplate(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if len(trimmed) < minContentLine && !hasTerminalPunct(trimmed) {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, " ")
}

func hasTerminalPunct(line string) bool {
	trimmed := strings.TrimRight(line, `"')]»”’`)
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?', ':':
		return true
	}
	return false
}

func collapseWhitespace(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	inSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// segment splits on sentence-final punctuation followed by a space and an
// upper-case letter. Abbreviation handling is deliberately naive; the
// extractor only needs approximate sentence boundaries.
func segment(text string) []Segment {
	var segments []Segment
	start := 0
	runes := []rune(text)

	byteOff := 0
	offsets := make([]int, len(runes)+1)
	for i, r := range runes {
		offsets[i] = byteOff
		byteOff += len(string(r))
	}
	offsets[len(runes)] = byteOff

	for i := 0; i < len(runes); i++ {
		if !isSentenceFinal(runes[i]) {
			continue
		}
		// Swallow closing quotes after the terminator.
		j := i + 1
		for j < len(runes) && isClosing(runes[j]) {
			j++
		}
		if j < len(runes) && runes[j] == ' ' && j+1 < len(runes) && unicode.IsUpper(runes[j+1]) {
			segments = append(segments, Segment{Start: offsets[start], End: offsets[j]})
			start = j + 1
			i = j
		}
	}

	if offsets[start] < len(text) {
		segments = append(segments, Segment{Start: offsets[start], End: len(text)})
	}
	return segments
}

func isSentenceFinal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isClosing(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '»', '”', '’':
		return true
	}
	return false
}
