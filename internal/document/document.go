// Package document extracts translatable text units from structured
// documents and writes translations back without disturbing any other byte
// of the container. Supported formats: Word (.docx) and PowerPoint (.pptx).
package document

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/soyrochus/wormhole/internal/unit"
)

// ErrUnsupportedType is returned for file types no handler understands.
var ErrUnsupportedType = errors.New("this file type isn't supported; please use .docx or .pptx")

// Handler is the boundary between a concrete document format and the
// translation pipeline: an ordered sequence of independently-settable text
// locations plus a way to persist the mutated document.
type Handler interface {
	// ExtractUnits returns the document's text units in document order.
	// Each unit's setter stages translated text in memory; nothing is
	// persisted until Save.
	ExtractUnits() ([]*unit.Unit, error)
	// Save writes the document, with any staged translations applied, to
	// the destination path.
	Save(dest string) error
}

// Detect selects a handler for the given file by extension and opens it.
// The returned string names the document type for reporting.
func Detect(path string) (string, Handler, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		h, err := OpenDocx(path)
		return "docx", h, err
	case ".pptx":
		h, err := OpenPptx(path)
		return "pptx", h, err
	default:
		return "", nil, ErrUnsupportedType
	}
}
