package document

import (
	"regexp"

	"github.com/soyrochus/wormhole/internal/unit"
)

// Docx extracts and reinserts text for Word documents. Covered parts: the
// main body plus all header and footer parts; tables, being paragraphs
// inside the same parts, are covered implicitly.
type Docx struct {
	pkg *ooxmlPackage
}

var docxHeaderFooterRe = regexp.MustCompile(`^word/(header|footer)(\d+)\.xml$`)

func OpenDocx(path string) (*Docx, error) {
	pkg, err := openOOXML(path, docxClassify, "w:p", "w:t")
	if err != nil {
		return nil, err
	}
	return &Docx{pkg: pkg}, nil
}

func docxClassify(name string) (prefix, label string, ok bool) {
	if name == "word/document.xml" {
		return "body", "Body", true
	}
	if m := docxHeaderFooterRe.FindStringSubmatch(name); m != nil {
		label = "Header " + m[2]
		if m[1] == "footer" {
			label = "Footer " + m[2]
		}
		return m[1] + m[2], label, true
	}
	return "", "", false
}

func (d *Docx) ExtractUnits() ([]*unit.Unit, error) { return d.pkg.ExtractUnits() }

func (d *Docx) Save(dest string) error { return d.pkg.Save(dest) }
