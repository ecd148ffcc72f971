// Package segmenter splits unit text into translation-sized segments within
// a character budget, preferring sentence boundaries, then clause boundaries,
// then whitespace tokens. Splitting is lossless: the segments of a unit,
// concatenated in order, reproduce the original text exactly.
package segmenter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/soyrochus/wormhole/internal/unit"
)

const (
	terminalMarks = ".!?…‽。！？；؛"
	clauseMarks   = ",;:،，；："
)

// Segmenter turns text units into sized translation segments. The budget is
// counted in Unicode code points; values below 1 are treated as 1.
type Segmenter struct {
	budget int
}

func New(budget int) *Segmenter {
	if budget < 1 {
		budget = 1
	}
	return &Segmenter{budget: budget}
}

// SegmentUnits segments every unit in order and returns all produced segments
// in extraction order. Each unit's Segments field is populated as a side
// effect. Units with empty or whitespace-only text yield no segments and are
// thereby excluded from translation and reinsertion.
func (s *Segmenter) SegmentUnits(units []*unit.Unit) []*unit.Segment {
	var all []*unit.Segment
	for _, u := range units {
		if strings.TrimSpace(u.Text) == "" {
			continue
		}
		var raw []string
		if u.Tagged() {
			// The encoded multi-fragment payload must stay whole.
			raw = []string{u.Text}
		} else {
			raw = SplitText(u.Text, s.budget)
		}
		u.Segments = make([]*unit.Segment, len(raw))
		for i, text := range raw {
			seg := &unit.Segment{
				ID:     unit.SegmentID(u.ID, i),
				UnitID: u.ID,
				Text:   text,
				Order:  i,
			}
			u.Segments[i] = seg
			all = append(all, seg)
		}
	}
	return all
}

// SplitText splits text into budget-sized pieces aligned to sentence
// boundaries where possible. Whitespace and punctuation are never stripped;
// joining the result reconstructs text exactly.
func SplitText(text string, budget int) []string {
	if text == "" {
		return nil
	}
	if budget < 1 {
		budget = 1
	}

	var segments []string
	for _, sentence := range splitAfter(text, terminalMarks) {
		if utf8.RuneCountInString(sentence) <= budget {
			segments = append(segments, sentence)
			continue
		}
		clauses := splitAfter(sentence, clauseMarks)
		if len(clauses) > 0 && maxRuneLen(clauses) <= budget {
			segments = append(segments, pack(clauses, budget)...)
			continue
		}
		if words := splitWords(sentence, budget); len(words) > 0 {
			segments = append(segments, words...)
		} else {
			segments = append(segments, sentence)
		}
	}
	return segments
}

// splitAfter cuts text after any rune in marks that is followed by
// whitespace or the end of the string; the whitespace run is consumed into
// the preceding piece. Text with no such boundary comes back as one piece.
func splitAfter(text, marks string) []string {
	runes := []rune(text)
	var pieces []string
	start, i := 0, 0
	for i < len(runes) {
		r := runes[i]
		i++
		if !strings.ContainsRune(marks, r) {
			continue
		}
		if i < len(runes) && !unicode.IsSpace(runes[i]) {
			// Mid-token punctuation (e.g. "3.14") is not a boundary.
			continue
		}
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		pieces = append(pieces, string(runes[start:i]))
		start = i
	}
	if start < len(runes) {
		pieces = append(pieces, string(runes[start:]))
	}
	return pieces
}

// pack greedily bin-packs chunks that individually fit the budget into
// budget-sized pieces, left to right. An oversized chunk falls back to
// whitespace-token splitting.
func pack(chunks []string, budget int) []string {
	var packed []string
	var current strings.Builder
	currentLen := 0
	for _, chunk := range chunks {
		if chunk == "" {
			continue
		}
		n := utf8.RuneCountInString(chunk)
		if n > budget {
			if currentLen > 0 {
				packed = append(packed, current.String())
				current.Reset()
				currentLen = 0
			}
			packed = append(packed, splitWords(chunk, budget)...)
			continue
		}
		if currentLen+n > budget && currentLen > 0 {
			packed = append(packed, current.String())
			current.Reset()
			currentLen = 0
		}
		current.WriteString(chunk)
		currentLen += n
	}
	if currentLen > 0 {
		packed = append(packed, current.String())
	}
	return packed
}

// splitWords tokenises text into maximal non-whitespace runs plus their
// trailing whitespace and accumulates tokens greedily up to the budget.
// A single token longer than the budget (no internal whitespace, e.g. dense
// CJK text) is hard-cut into fixed-size rune windows; this is the only case
// where a piece boundary can fall mid-word.
func splitWords(text string, budget int) []string {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	var segments []string
	var current strings.Builder
	currentLen := 0
	for _, token := range tokens {
		n := utf8.RuneCountInString(token)
		if n > budget {
			if currentLen > 0 {
				segments = append(segments, current.String())
				current.Reset()
				currentLen = 0
			}
			segments = append(segments, hardCut(token, budget)...)
			continue
		}
		if currentLen+n > budget && currentLen > 0 {
			segments = append(segments, current.String())
			current.Reset()
			currentLen = 0
		}
		current.WriteString(token)
		currentLen += n
	}
	if currentLen > 0 {
		segments = append(segments, current.String())
	}
	return segments
}

// tokenize splits text into word+trailing-whitespace tokens. A leading
// whitespace run becomes its own token so nothing is lost.
func tokenize(text string) []string {
	runes := []rune(text)
	var tokens []string
	i := 0
	for i < len(runes) {
		start := i
		if unicode.IsSpace(runes[i]) {
			for i < len(runes) && unicode.IsSpace(runes[i]) {
				i++
			}
		} else {
			for i < len(runes) && !unicode.IsSpace(runes[i]) {
				i++
			}
			for i < len(runes) && unicode.IsSpace(runes[i]) {
				i++
			}
		}
		tokens = append(tokens, string(runes[start:i]))
	}
	return tokens
}

// hardCut slices text into fixed-width windows of budget code points. The
// cut ignores grapheme-cluster boundaries; combining sequences may split.
func hardCut(text string, budget int) []string {
	runes := []rune(text)
	var pieces []string
	for start := 0; start < len(runes); start += budget {
		end := start + budget
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}

func maxRuneLen(pieces []string) int {
	max := 0
	for _, p := range pieces {
		if n := utf8.RuneCountInString(p); n > max {
			max = n
		}
	}
	return max
}
