// Package unit holds the shared vocabulary of the translation pipeline:
// text units extracted from a document, the segments they split into, and
// the batches those segments are grouped into for provider calls.
package unit

import (
	"fmt"

	"github.com/soyrochus/wormhole/internal/runtag"
)

// Setter applies translated text to one structural location in the source
// document. Implementations must be safe to call more than once (the runner
// retries a failed reinsertion) and must return an error rather than panic.
type Setter interface {
	Apply(text string) error
}

// SetterFunc adapts a function to the Setter interface.
type SetterFunc func(text string) error

func (f SetterFunc) Apply(text string) error { return f(text) }

// Fragment is one independently-settable piece of a tagged unit.
type Fragment struct {
	ID     string
	Setter Setter
}

// Unit is one addressable text location in the source document. It comes in
// two shapes: a plain unit owns a single setter and its text is segmented
// freely, while a tagged unit aggregates several fragments whose text has
// been encoded with the runtag codec and must travel through translation as
// one indivisible payload.
type Unit struct {
	ID       string
	Text     string
	Location string
	Segments []*Segment

	setter    Setter
	fragments []Fragment
}

// NewPlain creates a unit with a single settable location.
func NewPlain(id, text, location string, setter Setter) *Unit {
	return &Unit{ID: id, Text: text, Location: location, setter: setter}
}

// NewTagged creates an atomic unit whose text is the runtag encoding of the
// given fragments. fragments must appear in original document order.
func NewTagged(id, encodedText, location string, fragments []Fragment) *Unit {
	return &Unit{ID: id, Text: encodedText, Location: location, fragments: fragments}
}

// Tagged reports whether the unit is an atomic multi-fragment unit.
func (u *Unit) Tagged() bool { return len(u.fragments) > 0 }

// Apply reinserts the fully translated text of the unit into the document.
// For a plain unit the setter is invoked once with the text. For a tagged
// unit the text is decoded through the runtag codec and each fragment's
// setter receives its own piece.
func (u *Unit) Apply(translated string) error {
	if !u.Tagged() {
		return u.setter.Apply(translated)
	}
	ids := make([]string, len(u.fragments))
	for i, f := range u.fragments {
		ids[i] = f.ID
	}
	mapping, err := runtag.Decode(translated, ids)
	if err != nil {
		return err
	}
	for _, f := range u.fragments {
		if err := f.Setter.Apply(mapping[f.ID]); err != nil {
			return err
		}
	}
	return nil
}

// Segment is an ordered slice of a unit's text, small enough to be
// translated in isolation. Segments are immutable once created.
type Segment struct {
	ID     string
	UnitID string
	Text   string
	Order  int
}

// SegmentID derives the globally unique segment identifier from the owning
// unit and the segment's zero-based order within it.
func SegmentID(unitID string, order int) string {
	return fmt.Sprintf("%s#seg%d", unitID, order)
}

// Batch is a bounded collection of segments sent to the provider together.
// Identifiers are monotonic within a run, starting at 1.
type Batch struct {
	ID       int
	Segments []*Segment
}
