// Package runtag encodes several independently-settable text fragments
// (e.g. the formatting runs of one paragraph) into a single taggable string
// for translation, and decodes the translated response back into per-fragment
// text. The wire format is a sequence of <run id="ID">text</run> elements; a
// translator may redistribute words across tags but must not move content
// outside them.
package runtag

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrFormat marks a fatal violation of the tagged-run wire format in a
// translated response.
var ErrFormat = errors.New("tagged-run format violation")

var runTagRe = regexp.MustCompile(`(?s)<run\s+id="([^"]+)">(.*?)</run>`)

// FragmentID derives the identifier of fragment index within the unit prefix.
func FragmentID(unitPrefix string, index int) string {
	return fmt.Sprintf("%s.r%d", unitPrefix, index)
}

// Encode wraps each fragment as <run id="ID">escaped-text</run> and
// concatenates them in order. ids and texts must be parallel slices.
func Encode(ids, texts []string) string {
	var b strings.Builder
	for i, id := range ids {
		b.WriteString(`<run id="`)
		b.WriteString(id)
		b.WriteString(`">`)
		b.WriteString(escape(texts[i]))
		b.WriteString("</run>")
	}
	return b.String()
}

// Decode scans translated strictly left to right for <run id="…">…</run>
// occurrences and returns a fragment-id → unescaped-text mapping.
//
// Any non-whitespace content outside the recognised tags, an id not present
// in expectedIDs, a duplicated id, or a missing id is reported as ErrFormat.
func Decode(translated string, expectedIDs []string) (map[string]string, error) {
	expected := make(map[string]bool, len(expectedIDs))
	for _, id := range expectedIDs {
		expected[id] = true
	}

	mapping := make(map[string]string, len(expectedIDs))
	cursor := 0
	for _, loc := range runTagRe.FindAllStringSubmatchIndex(translated, -1) {
		if prefix := translated[cursor:loc[0]]; strings.TrimSpace(prefix) != "" {
			return nil, fmt.Errorf("%w: unexpected content outside <run> tags", ErrFormat)
		}
		id := translated[loc[2]:loc[3]]
		if !expected[id] {
			return nil, fmt.Errorf("%w: unknown run id %q", ErrFormat, id)
		}
		if _, dup := mapping[id]; dup {
			return nil, fmt.Errorf("%w: duplicated run id %q", ErrFormat, id)
		}
		mapping[id] = unescape(translated[loc[4]:loc[5]])
		cursor = loc[1]
	}

	if suffix := translated[cursor:]; strings.TrimSpace(suffix) != "" {
		return nil, fmt.Errorf("%w: unexpected trailing content outside <run> tags", ErrFormat)
	}

	if len(mapping) != len(expectedIDs) {
		var missing []string
		for _, id := range expectedIDs {
			if _, ok := mapping[id]; !ok {
				missing = append(missing, id)
			}
		}
		return nil, fmt.Errorf("%w: missing expected runs: %s", ErrFormat, strings.Join(missing, ", "))
	}

	return mapping, nil
}

var (
	escaper   = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	unescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")
)

// escape applies the minimal text escaping that keeps fragment text from
// being read as markup. Quotes are left alone; they only matter inside
// attribute values, which fragment text never reaches.
func escape(s string) string { return escaper.Replace(s) }

func unescape(s string) string { return unescaper.Replace(s) }
