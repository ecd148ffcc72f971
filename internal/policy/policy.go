// Package policy implements the categorized error policy: a bounded state
// machine over consecutive and total failures that decides whether a run
// continues, retries the failed operation, or stops.
package policy

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Category classifies a handled error. The policy is category-agnostic
// beyond equality comparison; the caller picks the category per call site.
type Category string

const (
	CatArgument    Category = "argument"
	CatFileIO      Category = "file-io"
	CatFormat      Category = "format"
	CatTranslation Category = "translation"
	CatReinsertion Category = "reinsertion"
	CatNetwork     Category = "network"
	CatOther       Category = "other"
)

// Thresholds after which the policy escalates instead of silently continuing.
const (
	ConsecutiveLimit = 3
	TotalLimit       = 10
)

var (
	// ErrAborted is returned when the user elects to abort processing.
	ErrAborted = errors.New("translation aborted at user request")
	// ErrThreshold is returned when the error threshold is exceeded and no
	// interactive resolver is available to ask for a decision.
	ErrThreshold = errors.New("error threshold exceeded in non-interactive mode")
)

// Decision is the outcome of handling an error.
type Decision int

const (
	// Continue resumes the run without redoing the failed operation.
	Continue Decision = iota
	// Retry signals the caller to redo the failed operation.
	Retry
	// Abort terminates the run; Handle converts it into ErrAborted.
	Abort
)

// Resolver supplies a continue/retry/abort decision once a threshold is
// reached. Abstracting the prompt keeps the state machine testable and lets
// headless callers plug in a fixed decision.
type Resolver interface {
	Resolve(prompt string) (Decision, error)
}

// Record stores context for one handled error.
type Record struct {
	Category Category
	Message  string
	Detail   string
}

// tracker counts consecutive same-category errors and lifetime totals.
type tracker struct {
	last        Category
	hasLast     bool
	consecutive int
	total       int
}

func (t *tracker) register(cat Category) (consecutive, total int, threshold bool) {
	if t.hasLast && t.last == cat {
		t.consecutive++
	} else {
		t.last = cat
		t.hasLast = true
		t.consecutive = 1
	}
	t.total++
	return t.consecutive, t.total, t.consecutive >= ConsecutiveLimit || t.total >= TotalLimit
}

func (t *tracker) resetConsecutive() {
	t.consecutive = 0
	t.hasLast = false
}

// Policy tracks handled errors and applies the escalation thresholds.
// It is not safe for concurrent use; callers must serialise access.
type Policy struct {
	resolver Resolver
	out      io.Writer
	records  []Record
	trk      tracker
}

// New creates a policy. A nil resolver means non-interactive mode: reaching
// a threshold returns ErrThreshold instead of prompting. Messages are echoed
// to out; pass nil for os.Stderr.
func New(resolver Resolver, out io.Writer) *Policy {
	if out == nil {
		out = os.Stderr
	}
	return &Policy{resolver: resolver, out: out}
}

// Handle records the error and returns the decision for the caller.
// Below the thresholds the decision is always Continue. At a threshold the
// resolver is consulted; an Abort decision comes back as ErrAborted so it
// propagates through the whole call chain.
func (p *Policy) Handle(cat Category, message string) (Decision, error) {
	p.records = append(p.records, Record{Category: cat, Message: message})
	consecutive, _, threshold := p.trk.register(cat)
	fmt.Fprintln(p.out, message)

	if !threshold {
		return Continue, nil
	}

	prompt := fmt.Sprintf("More than %d errors encountered. Continue, retry, or abort?", TotalLimit)
	if consecutive >= ConsecutiveLimit {
		prompt = fmt.Sprintf("Repeated errors detected (%d times). Continue, retry, or abort?", ConsecutiveLimit)
	}

	if p.resolver == nil {
		return Abort, ErrThreshold
	}

	decision, err := p.resolver.Resolve(prompt)
	if err != nil {
		return Abort, err
	}
	if decision == Abort {
		return Abort, ErrAborted
	}
	return decision, nil
}

// RecordSuccess resets the consecutive counter after successful work. The
// total counter is a lifetime count for the whole run and is never reset.
func (p *Policy) RecordSuccess() {
	p.trk.resetConsecutive()
}

// Records returns the append-only log of handled errors.
func (p *Policy) Records() []Record { return p.records }

// Messages returns the message of every handled error, in order.
func (p *Policy) Messages() []string {
	msgs := make([]string, len(p.records))
	for i, r := range p.records {
		msgs[i] = r.Message
	}
	return msgs
}

// StdinResolver prompts on a terminal and loops until it reads a valid
// continue/retry/abort response (full word or initial).
type StdinResolver struct {
	in  *bufio.Reader
	out io.Writer
}

// NewStdinResolver reads decisions from in (nil for os.Stdin) and writes
// prompts to out (nil for os.Stderr).
func NewStdinResolver(in io.Reader, out io.Writer) *StdinResolver {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return &StdinResolver{in: bufio.NewReader(in), out: out}
}

func (r *StdinResolver) Resolve(prompt string) (Decision, error) {
	for {
		fmt.Fprintf(r.out, "%s ", prompt)
		line, err := r.in.ReadString('\n')
		if err != nil && line == "" {
			// Input closed under us; the only safe decision is to stop.
			return Abort, nil
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "continue", "c":
			return Continue, nil
		case "retry", "r":
			return Retry, nil
		case "abort", "a":
			return Abort, nil
		}
		fmt.Fprintln(r.out, "Please respond with Continue, Retry, or Abort (c/r/a).")
	}
}

// FixedResolver always answers with the same decision. Useful for automated
// runs that want threshold escalations resolved without a terminal.
type FixedResolver Decision

func (f FixedResolver) Resolve(string) (Decision, error) {
	return Decision(f), nil
}
