package document

import (
	"regexp"

	"github.com/soyrochus/wormhole/internal/unit"
)

// Pptx extracts and reinserts text for PowerPoint presentations. Covered
// parts: every slide and every notes slide; shapes and tables live inside
// those parts and are covered implicitly.
type Pptx struct {
	pkg *ooxmlPackage
}

var (
	pptxSlideRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	pptxNotesRe = regexp.MustCompile(`^ppt/notesSlides/notesSlide(\d+)\.xml$`)
)

func OpenPptx(path string) (*Pptx, error) {
	pkg, err := openOOXML(path, pptxClassify, "a:p", "a:t")
	if err != nil {
		return nil, err
	}
	return &Pptx{pkg: pkg}, nil
}

func pptxClassify(name string) (prefix, label string, ok bool) {
	if m := pptxSlideRe.FindStringSubmatch(name); m != nil {
		return "slide" + m[1], "Slide " + m[1], true
	}
	if m := pptxNotesRe.FindStringSubmatch(name); m != nil {
		return "slide" + m[1] + ".notes", "Slide " + m[1] + " notes", true
	}
	return "", "", false
}

func (p *Pptx) ExtractUnits() ([]*unit.Unit, error) { return p.pkg.ExtractUnits() }

func (p *Pptx) Save(dest string) error { return p.pkg.Save(dest) }
