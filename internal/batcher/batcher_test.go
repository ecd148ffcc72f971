package batcher_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/soyrochus/wormhole/internal/batcher"
	"github.com/soyrochus/wormhole/internal/unit"
)

func seg(id, text string) *unit.Segment {
	return &unit.Segment{ID: id, UnitID: id, Text: text}
}

func TestBuild_SingleBatchWithinBudget(t *testing.T) {
	segments := []*unit.Segment{
		seg("a", "Hello world. "),
		seg("b", "Nice day!"),
	}
	batches := batcher.New(100).Build(segments)
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	if batches[0].ID != 1 {
		t.Errorf("first batch id should be 1, got %d", batches[0].ID)
	}
	if len(batches[0].Segments) != 2 {
		t.Errorf("expected 2 segments, got %d", len(batches[0].Segments))
	}
}

func TestBuild_SplitsAtBudget(t *testing.T) {
	segments := []*unit.Segment{
		seg("a", strings.Repeat("x", 6)),
		seg("b", strings.Repeat("y", 6)),
		seg("c", strings.Repeat("z", 6)),
	}
	batches := batcher.New(10).Build(segments)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	for i, b := range batches {
		if b.ID != i+1 {
			t.Errorf("batch %d has id %d", i, b.ID)
		}
	}
}

func TestBuild_OversizedSegmentGoesAlone(t *testing.T) {
	segments := []*unit.Segment{
		seg("a", "short"),
		seg("big", strings.Repeat("q", 50)),
		seg("b", "short"),
	}
	batches := batcher.New(10).Build(segments)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if len(batches[1].Segments) != 1 || batches[1].Segments[0].ID != "big" {
		t.Errorf("oversized segment should be a singleton batch")
	}
}

func TestBuild_PreservesOrder(t *testing.T) {
	var segments []*unit.Segment
	ids := []string{"s0", "s1", "s2", "s3", "s4"}
	for _, id := range ids {
		segments = append(segments, seg(id, "12345"))
	}
	batches := batcher.New(12).Build(segments)

	var flat []string
	for _, b := range batches {
		for _, s := range b.Segments {
			flat = append(flat, s.ID)
		}
	}
	if len(flat) != len(ids) {
		t.Fatalf("segment count changed: %v", flat)
	}
	for i, id := range ids {
		if flat[i] != id {
			t.Errorf("position %d: expected %s, got %s", i, id, flat[i])
		}
	}
}

func TestBuild_BudgetCountsRunes(t *testing.T) {
	// Two 5-rune CJK segments fit a 10-rune budget despite 15 bytes each.
	segments := []*unit.Segment{
		seg("a", strings.Repeat("字", 5)),
		seg("b", strings.Repeat("字", 5)),
	}
	if n := len([]byte(segments[0].Text)); n != 15 {
		t.Fatalf("test setup: expected 15 bytes, got %d", n)
	}
	batches := batcher.New(10).Build(segments)
	if len(batches) != 1 {
		t.Errorf("expected 1 batch for 10 runes, got %d", len(batches))
	}
}

func TestBuild_Empty(t *testing.T) {
	if batches := batcher.New(10).Build(nil); len(batches) != 0 {
		t.Errorf("expected no batches, got %d", len(batches))
	}
}

func TestBuild_NeverExceedsBudgetExceptSingletons(t *testing.T) {
	segments := []*unit.Segment{
		seg("a", "abcd"), seg("b", "efghij"), seg("c", strings.Repeat("k", 30)),
		seg("d", "lm"), seg("e", "nopqrstu"),
	}
	budget := 12
	for _, b := range batcher.New(budget).Build(segments) {
		total := 0
		for _, s := range b.Segments {
			total += utf8.RuneCountInString(s.Text)
		}
		if total > budget && len(b.Segments) > 1 {
			t.Errorf("batch %d exceeds budget with %d segments", b.ID, len(b.Segments))
		}
	}
}
