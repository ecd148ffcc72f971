package document

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/soyrochus/wormhole/internal/runtag"
	"github.com/soyrochus/wormhole/internal/unit"
)

// ooxmlPackage is an OOXML container held fully in memory. Parts that carry
// translatable text are indexed for in-place text replacement; every other
// part is copied through byte-for-byte on save.
type ooxmlPackage struct {
	parts []*pkgPart
}

type pkgPart struct {
	name   string
	data   []byte
	prefix string // unit-id prefix, empty for pass-through parts
	label  string // human-readable location base
	text   *textPart
}

// textPart indexes the text elements of one XML part.
type textPart struct {
	raw   []byte
	runs  []*textRun   // all text elements in document order
	paras [][]*textRun // paragraph groupings; index = paragraph number
}

// textRun is one <w:t>/<a:t> element within the raw part bytes. Offsets
// bracket the inner text so a translation can be spliced in on save.
type textRun struct {
	tagGT      int  // offset of the opening tag's '>'
	openEnd    int  // offset just past the opening tag
	closeStart int  // offset of the closing tag's '<'
	preserve   bool // opening tag already carries xml:space="preserve"
	text       string
	replaced   *string
}

type partClassifier func(name string) (prefix, label string, ok bool)

func openOOXML(path string, classify partClassifier, paraTag, textTag string) (*ooxmlPackage, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer zr.Close()

	pkg := &ooxmlPackage{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to read document part %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read document part %s: %w", f.Name, err)
		}

		part := &pkgPart{name: f.Name, data: data}
		if prefix, label, ok := classify(f.Name); ok {
			part.prefix = prefix
			part.label = label
			part.text = scanTextPart(data, paraTag, textTag)
		}
		pkg.parts = append(pkg.parts, part)
	}
	return pkg, nil
}

// ExtractUnits walks the indexed parts in container order and builds one
// unit per paragraph with translatable content: a plain unit for a single
// non-empty run, a tagged unit for several.
func (p *ooxmlPackage) ExtractUnits() ([]*unit.Unit, error) {
	var units []*unit.Unit
	for _, part := range p.parts {
		if part.text == nil {
			continue
		}
		units = append(units, part.text.buildUnits(part.prefix, part.label)...)
	}
	return units, nil
}

// Save writes the package to dest. Parts with staged translations are
// rebuilt; all others keep their original bytes.
func (p *ooxmlPackage) Save(dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, part := range p.parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return fmt.Errorf("failed to write document part %s: %w", part.name, err)
		}
		data := part.data
		if part.text != nil {
			data = part.text.rebuild()
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write document part %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize output file: %w", err)
	}
	return out.Close()
}

// scanTextPart indexes the paragraph and text elements of an XML part.
// OOXML paragraphs do not nest, so a flat scan suffices. Text elements
// found outside any paragraph each form their own group.
func scanTextPart(raw []byte, paraTag, textTag string) *textPart {
	tp := &textPart{raw: raw}

	openPara := []byte("<" + paraTag)
	closePara := []byte("</" + paraTag + ">")
	openText := []byte("<" + textTag)
	closeText := []byte("</" + textTag + ">")

	inPara := false
	i := 0
	for i < len(raw) {
		j := bytes.IndexByte(raw[i:], '<')
		if j < 0 {
			break
		}
		i += j

		switch {
		case tagAt(raw, i, openPara):
			gt := bytes.IndexByte(raw[i:], '>')
			if gt < 0 {
				return tp
			}
			if raw[i+gt-1] != '/' { // self-closing paragraphs hold no text
				tp.paras = append(tp.paras, nil)
				inPara = true
			}
			i += gt + 1

		case bytes.HasPrefix(raw[i:], closePara):
			inPara = false
			i += len(closePara)

		case tagAt(raw, i, openText):
			gt := bytes.IndexByte(raw[i:], '>')
			if gt < 0 {
				return tp
			}
			if raw[i+gt-1] == '/' { // empty text element
				i += gt + 1
				continue
			}
			openEnd := i + gt + 1
			rel := bytes.Index(raw[openEnd:], closeText)
			if rel < 0 {
				return tp
			}
			run := &textRun{
				tagGT:      i + gt,
				openEnd:    openEnd,
				closeStart: openEnd + rel,
				preserve:   bytes.Contains(raw[i:i+gt], []byte(`xml:space="preserve"`)),
				text:       unescapeXML(string(raw[openEnd : openEnd+rel])),
			}
			tp.runs = append(tp.runs, run)
			if !inPara {
				tp.paras = append(tp.paras, []*textRun{run})
			} else {
				last := len(tp.paras) - 1
				tp.paras[last] = append(tp.paras[last], run)
			}
			i = openEnd + rel + len(closeText)

		default:
			i++
		}
	}
	return tp
}

// tagAt reports whether an opening tag with the given name starts at offset
// i, i.e. the prefix is followed by whitespace, '>', or '/'. This keeps
// "<w:p" from matching "<w:pPr".
func tagAt(raw []byte, i int, open []byte) bool {
	if !bytes.HasPrefix(raw[i:], open) {
		return false
	}
	next := i + len(open)
	if next >= len(raw) {
		return false
	}
	switch raw[next] {
	case ' ', '\t', '\r', '\n', '>', '/':
		return true
	}
	return false
}

// buildUnits creates translation units for the part's paragraphs. Paragraph
// indexes are positional so unit ids stay stable across runs.
func (tp *textPart) buildUnits(prefix, label string) []*unit.Unit {
	var units []*unit.Unit
	for pi, group := range tp.paras {
		unitPrefix := fmt.Sprintf("%s.p%d", prefix, pi)
		location := fmt.Sprintf("%s, paragraph %d", label, pi+1)

		var ids []string
		var texts []string
		var runs []*textRun
		for ri, r := range group {
			if strings.TrimSpace(r.text) == "" {
				continue
			}
			ids = append(ids, runtag.FragmentID(unitPrefix, ri))
			texts = append(texts, r.text)
			runs = append(runs, r)
		}
		if len(runs) == 0 {
			continue
		}

		if len(runs) == 1 {
			// Tagging a single fragment has no benefit and doubles payload.
			units = append(units, unit.NewPlain(ids[0], texts[0], location, stageSetter(runs[0])))
			continue
		}

		frags := make([]unit.Fragment, len(runs))
		for i, r := range runs {
			frags[i] = unit.Fragment{ID: ids[i], Setter: stageSetter(r)}
		}
		units = append(units, unit.NewTagged(unitPrefix, runtag.Encode(ids, texts), location, frags))
	}
	return units
}

func stageSetter(r *textRun) unit.Setter {
	return unit.SetterFunc(func(text string) error {
		r.replaced = &text
		return nil
	})
}

// rebuild splices staged translations into the raw part bytes. Translated
// text that gains leading or trailing whitespace gets xml:space="preserve"
// injected so the consumer does not collapse it.
func (tp *textPart) rebuild() []byte {
	modified := false
	for _, r := range tp.runs {
		if r.replaced != nil {
			modified = true
			break
		}
	}
	if !modified {
		return tp.raw
	}

	var buf bytes.Buffer
	last := 0
	for _, r := range tp.runs {
		if r.replaced == nil {
			continue
		}
		text := *r.replaced
		if !r.preserve && hasEdgeSpace(text) {
			buf.Write(tp.raw[last:r.tagGT])
			buf.WriteString(` xml:space="preserve"`)
			buf.Write(tp.raw[r.tagGT:r.openEnd])
		} else {
			buf.Write(tp.raw[last:r.openEnd])
		}
		buf.WriteString(escapeXML(text))
		last = r.closeStart
	}
	buf.Write(tp.raw[last:])
	return buf.Bytes()
}

func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	r := []rune(s)
	return unicode.IsSpace(r[0]) || unicode.IsSpace(r[len(r)-1])
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeXML(s string) string { return xmlEscaper.Replace(s) }

// unescapeXML decodes the five predefined XML entities plus numeric
// character references, which is everything a text node can contain.
func unescapeXML(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '&' {
			b.WriteByte(s[i])
			i++
			continue
		}
		end := strings.IndexByte(s[i:], ';')
		if end < 0 {
			b.WriteString(s[i:])
			break
		}
		entity := s[i+1 : i+end]
		switch {
		case entity == "amp":
			b.WriteByte('&')
		case entity == "lt":
			b.WriteByte('<')
		case entity == "gt":
			b.WriteByte('>')
		case entity == "quot":
			b.WriteByte('"')
		case entity == "apos":
			b.WriteByte('\'')
		case strings.HasPrefix(entity, "#x") || strings.HasPrefix(entity, "#X"):
			if n, err := strconv.ParseInt(entity[2:], 16, 32); err == nil {
				b.WriteRune(rune(n))
			} else {
				b.WriteString(s[i : i+end+1])
			}
		case strings.HasPrefix(entity, "#"):
			if n, err := strconv.ParseInt(entity[1:], 10, 32); err == nil {
				b.WriteRune(rune(n))
			} else {
				b.WriteString(s[i : i+end+1])
			}
		default:
			b.WriteString(s[i : i+end+1])
		}
		i += end + 1
	}
	return b.String()
}
