// Package runner orchestrates a translation run: extract units, segment and
// batch them, call the provider with per-batch retry and backoff, reconcile
// results into per-unit buffers, reinsert all-or-nothing per unit, and save
// the document with a structured summary.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/soyrochus/wormhole/internal/batcher"
	"github.com/soyrochus/wormhole/internal/document"
	"github.com/soyrochus/wormhole/internal/policy"
	"github.com/soyrochus/wormhole/internal/provider"
	"github.com/soyrochus/wormhole/internal/segmenter"
	"github.com/soyrochus/wormhole/internal/unit"
)

// ErrOverwriteRefused is returned when writing the output would clobber an
// existing file without explicit consent, or the source document itself.
var ErrOverwriteRefused = errors.New("output file already exists; rename it or use the overwrite flag")

// defaultBackoff is the automatic-retry delay schedule; the attempt index
// selects the delay, clamped to the last entry.
var defaultBackoff = []time.Duration{1 * time.Second, 4 * time.Second, 9 * time.Second}

const defaultMaxRetries = 3

// Memory is an optional cross-run cache of segment translations. A lookup
// hit fills the segment's buffer slot without provider traffic.
type Memory interface {
	Lookup(ctx context.Context, sourceText, sourceLang, targetLang string) (string, bool, error)
	Save(ctx context.Context, sourceText, sourceLang, targetLang, translatedText, provider string) error
}

// Options configures a translation run.
type Options struct {
	InputPath    string
	OutputPath   string
	DocumentType string
	TargetLang   string
	SourceLang   string // optional hint; "" or "auto" = unspecified
	Model        string
	BatchBudget  int
	Verbose      bool

	// Out receives progress and error echoes; nil means os.Stderr.
	Out io.Writer
	// MaxRetries and Backoff override the automatic-retry schedule
	// (zero values select the defaults).
	MaxRetries int
	Backoff    []time.Duration
}

// Summary is the structured report of a completed run; it is the only
// output contract the presentation layer relies on.
type Summary struct {
	RunID           string
	InputPath       string
	OutputPath      string
	DocumentType    string
	TotalUnits      int
	TranslatedUnits int
	SkippedUnits    int
	TotalSegments   int
	TotalBatches    int
	MemoryHits      int
	TotalErrors     int
	Provider        string
	Model           string
	TargetLang      string
	SourceLang      string
	Elapsed         time.Duration
	ErrorMessages   []string
}

// Runner coordinates extraction, translation, and reinsertion.
type Runner struct {
	opts    Options
	handler document.Handler
	prov    provider.Provider
	pol     *policy.Policy
	memory  Memory // may be nil

	out        io.Writer
	maxRetries int
	backoff    []time.Duration
}

// New creates a runner. memory may be nil to disable the translation memory.
func New(opts Options, handler document.Handler, prov provider.Provider, pol *policy.Policy, memory Memory) *Runner {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	backoff := opts.Backoff
	if len(backoff) == 0 {
		backoff = defaultBackoff
	}
	return &Runner{
		opts:       opts,
		handler:    handler,
		prov:       prov,
		pol:        pol,
		memory:     memory,
		out:        out,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

// Run executes the whole pipeline. On an abort decision or a non-interactive
// threshold stop the error propagates and the output document is not saved;
// every other degradation ends in a saved document and a summary that
// enumerates the accumulated errors.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	units, err := r.handler.ExtractUnits()
	if err != nil {
		return nil, err
	}

	segments := segmenter.New(r.opts.BatchBudget).SegmentUnits(units)

	// One buffer slot per segment, per unit; nil means absent.
	buffers := make(map[string][]*string, len(units))
	for _, u := range units {
		buffers[u.ID] = make([]*string, len(u.Segments))
	}

	pending, memoryHits := r.consultMemory(ctx, segments, buffers)
	batches := batcher.New(r.opts.BatchBudget).Build(pending)

	if r.opts.Verbose {
		fmt.Fprintf(r.out, "Prepared %d text units, %d segments, %d batches (%d from memory).\n",
			len(units), len(segments), len(batches), memoryHits)
	}

	for _, batch := range batches {
		if err := r.processBatch(ctx, batch, buffers); err != nil {
			return nil, err
		}
	}

	translated, skipped, err := r.reinsert(units, buffers)
	if err != nil {
		return nil, err
	}

	if err := r.handler.Save(r.opts.OutputPath); err != nil {
		return nil, fmt.Errorf("failed to save translated document: %w", err)
	}

	return &Summary{
		RunID:           uuid.New().String(),
		InputPath:       r.opts.InputPath,
		OutputPath:      r.opts.OutputPath,
		DocumentType:    r.opts.DocumentType,
		TotalUnits:      len(units),
		TranslatedUnits: translated,
		SkippedUnits:    skipped,
		TotalSegments:   len(segments),
		TotalBatches:    len(batches),
		MemoryHits:      memoryHits,
		TotalErrors:     len(r.pol.Records()),
		Provider:        r.prov.Name(),
		Model:           r.opts.Model,
		TargetLang:      r.opts.TargetLang,
		SourceLang:      r.opts.SourceLang,
		Elapsed:         time.Since(start),
		ErrorMessages:   r.pol.Messages(),
	}, nil
}

// consultMemory fills buffer slots from the translation memory and returns
// the segments that still need provider traffic.
func (r *Runner) consultMemory(ctx context.Context, segments []*unit.Segment, buffers map[string][]*string) ([]*unit.Segment, int) {
	if r.memory == nil {
		return segments, 0
	}
	var pending []*unit.Segment
	hits := 0
	for _, seg := range segments {
		translated, found, err := r.memory.Lookup(ctx, seg.Text, r.opts.SourceLang, r.opts.TargetLang)
		if err == nil && found {
			buffers[seg.UnitID][seg.Order] = &translated
			hits++
			continue
		}
		pending = append(pending, seg)
	}
	return pending, hits
}

// processBatch calls the provider for one batch, absorbing transient
// failures with the automatic retry schedule and escalating exhausted
// retries through the error policy.
func (r *Runner) processBatch(ctx context.Context, batch *unit.Batch, buffers map[string][]*string) error {
	attempt := 0
	for {
		mapping, err := r.prov.Translate(ctx, provider.Request{
			Segments:   batch.Segments,
			SourceLang: r.opts.SourceLang,
			TargetLang: r.opts.TargetLang,
			Model:      r.opts.Model,
		})
		if err == nil {
			missing, rerr := r.reconcile(ctx, batch, mapping, buffers)
			if rerr != nil {
				return rerr
			}
			if missing == 0 {
				r.pol.RecordSuccess()
			}
			if r.opts.Verbose {
				chars := 0
				for _, seg := range batch.Segments {
					chars += len([]rune(seg.Text))
				}
				fmt.Fprintf(r.out, "Processed batch %d (%d segments, %d chars).\n",
					batch.ID, len(batch.Segments), chars)
			}
			return nil
		}

		if !provider.IsProviderError(err) {
			// Cancellation or a programming error; not the provider's fault.
			return err
		}

		attempt++
		if attempt <= r.maxRetries {
			delay := r.backoff[min(attempt-1, len(r.backoff)-1)]
			fmt.Fprintf(r.out, "Could not translate one batch (attempt %d of %d: %v). Retrying automatically...\n",
				attempt, r.maxRetries, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		decision, perr := r.pol.Handle(policy.CatTranslation,
			fmt.Sprintf("Batch %d failed after multiple attempts. %v", batch.ID, err))
		if perr != nil {
			return perr
		}
		if decision == policy.Retry {
			attempt = 0
			continue
		}

		// Abandon the batch: its buffer slots stay absent and the owning
		// units will be reported skipped, never partially translated.
		if r.opts.Verbose {
			fmt.Fprintf(r.out, "Skipping batch %d after repeated failures.\n", batch.ID)
		}
		return nil
	}
}

// reconcile writes a provider mapping into the buffer slots and reports any
// segment the provider omitted. Omissions are per-segment translation
// errors, not provider errors; there is nothing batch-level to retry.
func (r *Runner) reconcile(ctx context.Context, batch *unit.Batch, mapping map[string]string, buffers map[string][]*string) (missing int, err error) {
	for _, seg := range batch.Segments {
		translated, ok := mapping[seg.ID]
		if !ok {
			missing++
			if _, perr := r.pol.Handle(policy.CatTranslation,
				fmt.Sprintf("Translation missing for segment %s. Skipping this element.", seg.ID)); perr != nil {
				return missing, perr
			}
			continue
		}
		buf := buffers[seg.UnitID]
		if buf == nil || seg.Order >= len(buf) {
			// Should not occur but handle gracefully.
			if _, perr := r.pol.Handle(policy.CatReinsertion,
				fmt.Sprintf("Unexpected segment reference %s.", seg.ID)); perr != nil {
				return missing, perr
			}
			continue
		}
		buf[seg.Order] = &translated
		if r.memory != nil {
			_ = r.memory.Save(ctx, seg.Text, r.opts.SourceLang, r.opts.TargetLang, translated, r.prov.Name())
		}
	}
	return missing, nil
}

// reinsert applies fully translated units. Partial translation of a unit is
// never applied; any absent slot skips the whole unit. A setter failure is
// reported, retried exactly once, and then degrades to a skipped unit so the
// document is always saved in a consistent state.
func (r *Runner) reinsert(units []*unit.Unit, buffers map[string][]*string) (translated, skipped int, err error) {
	for _, u := range units {
		buf := buffers[u.ID]
		if len(buf) == 0 {
			// Nothing translatable; the unit's setter is never called.
			continue
		}
		text, complete := joinBuffer(buf)
		if !complete {
			skipped++
			continue
		}

		if aerr := u.Apply(text); aerr != nil {
			if _, perr := r.pol.Handle(policy.CatReinsertion,
				fmt.Sprintf("Could not reinsert translated text at %s. Skipping this element. (%v)", u.Location, aerr)); perr != nil {
				return translated, skipped, perr
			}
			if aerr = u.Apply(text); aerr != nil {
				if _, perr := r.pol.Handle(policy.CatReinsertion,
					fmt.Sprintf("Reinsertion retry failed at %s. Skipping this element. (%v)", u.Location, aerr)); perr != nil {
					return translated, skipped, perr
				}
				skipped++
				continue
			}
		}
		translated++
		r.pol.RecordSuccess()
	}
	return translated, skipped, nil
}

func joinBuffer(buf []*string) (string, bool) {
	var b []byte
	for _, slot := range buf {
		if slot == nil {
			return "", false
		}
		b = append(b, *slot...)
	}
	return string(b), true
}

// ValidatePaths checks the input/output combination before any work starts.
func ValidatePaths(inputPath, outputPath string, forceOverwrite bool) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("input file not found; please provide a readable .docx or .pptx file: %w", err)
	}
	if info.IsDir() {
		return errors.New("input path must be a file")
	}

	absIn, err := filepath.Abs(inputPath)
	if err != nil {
		return err
	}
	absOut, err := filepath.Abs(outputPath)
	if err != nil {
		return err
	}
	if absIn == absOut {
		return fmt.Errorf("%w: the output path matches the input document", ErrOverwriteRefused)
	}

	if _, err := os.Stat(outputPath); err == nil && !forceOverwrite {
		return ErrOverwriteRefused
	}
	return nil
}
