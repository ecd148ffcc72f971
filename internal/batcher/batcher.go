// Package batcher greedily packs segments into batches bounded by a
// character budget, minimising the number of provider round-trips.
package batcher

import (
	"unicode/utf8"

	"github.com/soyrochus/wormhole/internal/unit"
)

// Builder aggregates segments into batches within a code-point budget.
// Budgets below 1 are treated as 1.
type Builder struct {
	budget int
}

func New(budget int) *Builder {
	if budget < 1 {
		budget = 1
	}
	return &Builder{budget: budget}
}

// Build packs segments in the order received. A segment longer than the
// budget flushes the open batch and is emitted alone in its own batch; the
// budget violation is accepted rather than truncating indivisible content.
// Batch identifiers are assigned sequentially from 1 in emission order.
func (b *Builder) Build(segments []*unit.Segment) []*unit.Batch {
	var batches []*unit.Batch
	var open []*unit.Segment
	total := 0
	nextID := 1

	flush := func() {
		if len(open) == 0 {
			return
		}
		batches = append(batches, &unit.Batch{ID: nextID, Segments: open})
		nextID++
		open = nil
		total = 0
	}

	for _, seg := range segments {
		size := utf8.RuneCountInString(seg.Text)
		if size > b.budget {
			flush()
			batches = append(batches, &unit.Batch{ID: nextID, Segments: []*unit.Segment{seg}})
			nextID++
			continue
		}
		if total+size > b.budget {
			flush()
		}
		open = append(open, seg)
		total += size
	}
	flush()

	return batches
}
