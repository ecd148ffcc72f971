package policy_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/soyrochus/wormhole/internal/policy"
)

// recordingResolver captures the prompts it receives.
type recordingResolver struct {
	decision policy.Decision
	prompts  []string
}

func (r *recordingResolver) Resolve(prompt string) (policy.Decision, error) {
	r.prompts = append(r.prompts, prompt)
	return r.decision, nil
}

func TestHandle_BelowThresholdContinues(t *testing.T) {
	res := &recordingResolver{decision: policy.Abort}
	p := policy.New(res, &bytes.Buffer{})

	for i := 0; i < 2; i++ {
		d, err := p.Handle(policy.CatTranslation, "failure")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d != policy.Continue {
			t.Fatalf("expected Continue below threshold, got %v", d)
		}
	}
	if len(res.prompts) != 0 {
		t.Errorf("resolver consulted before threshold: %v", res.prompts)
	}
}

func TestHandle_ThreeConsecutiveSameCategory(t *testing.T) {
	res := &recordingResolver{decision: policy.Continue}
	p := policy.New(res, &bytes.Buffer{})

	p.Handle(policy.CatTranslation, "one")
	p.Handle(policy.CatTranslation, "two")
	d, err := p.Handle(policy.CatTranslation, "three")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != policy.Continue {
		t.Errorf("resolver said Continue, got %v", d)
	}
	if len(res.prompts) != 1 {
		t.Fatalf("expected exactly one prompt, got %d", len(res.prompts))
	}
	if !strings.Contains(res.prompts[0], "Repeated errors detected (3 times)") {
		t.Errorf("unexpected prompt wording: %q", res.prompts[0])
	}
}

func TestHandle_CategoryChangeResetsConsecutive(t *testing.T) {
	res := &recordingResolver{decision: policy.Abort}
	p := policy.New(res, &bytes.Buffer{})

	p.Handle(policy.CatTranslation, "one")
	p.Handle(policy.CatTranslation, "two")
	// Different category: the consecutive streak starts over.
	if _, err := p.Handle(policy.CatFileIO, "io"); err != nil {
		t.Fatalf("unexpected escalation: %v", err)
	}
	if _, err := p.Handle(policy.CatFileIO, "io again"); err != nil {
		t.Fatalf("unexpected escalation: %v", err)
	}
	if len(res.prompts) != 0 {
		t.Errorf("no threshold should have been reached")
	}
}

func TestHandle_RecordSuccessResetsConsecutiveOnly(t *testing.T) {
	res := &recordingResolver{decision: policy.Continue}
	p := policy.New(res, &bytes.Buffer{})

	p.Handle(policy.CatTranslation, "one")
	p.Handle(policy.CatTranslation, "two")
	p.RecordSuccess()
	p.Handle(policy.CatTranslation, "three")
	p.Handle(policy.CatTranslation, "four")
	if len(res.prompts) != 0 {
		t.Fatalf("consecutive counter should have been reset: %v", res.prompts)
	}

	// Totals are a lifetime count: 6 more errors bring the total to 10.
	for i := 0; i < 5; i++ {
		p.RecordSuccess()
		p.Handle(policy.CatFormat, "fmt")
	}
	p.RecordSuccess()
	if _, err := p.Handle(policy.CatNetwork, "net"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.prompts) != 1 {
		t.Fatalf("expected total-threshold prompt, got %d prompts", len(res.prompts))
	}
	if !strings.Contains(res.prompts[0], "More than 10 errors") {
		t.Errorf("unexpected prompt wording: %q", res.prompts[0])
	}
}

func TestHandle_NonInteractiveThreshold(t *testing.T) {
	p := policy.New(nil, &bytes.Buffer{})

	p.Handle(policy.CatTranslation, "one")
	p.Handle(policy.CatTranslation, "two")
	d, err := p.Handle(policy.CatTranslation, "three")
	if !errors.Is(err, policy.ErrThreshold) {
		t.Fatalf("expected ErrThreshold, got %v", err)
	}
	if d != policy.Abort {
		t.Errorf("expected Abort decision, got %v", d)
	}
}

func TestHandle_AbortBecomesErrAborted(t *testing.T) {
	p := policy.New(policy.FixedResolver(policy.Abort), &bytes.Buffer{})

	p.Handle(policy.CatTranslation, "one")
	p.Handle(policy.CatTranslation, "two")
	_, err := p.Handle(policy.CatTranslation, "three")
	if !errors.Is(err, policy.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

func TestHandle_RetryDecisionPassesThrough(t *testing.T) {
	p := policy.New(policy.FixedResolver(policy.Retry), &bytes.Buffer{})

	p.Handle(policy.CatTranslation, "one")
	p.Handle(policy.CatTranslation, "two")
	d, err := p.Handle(policy.CatTranslation, "three")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != policy.Retry {
		t.Errorf("expected Retry, got %v", d)
	}
}

func TestHandle_EchoesMessages(t *testing.T) {
	var out bytes.Buffer
	p := policy.New(nil, &out)
	p.Handle(policy.CatFileIO, "Could not read the document.")
	if !strings.Contains(out.String(), "Could not read the document.") {
		t.Errorf("message not echoed: %q", out.String())
	}
	if msgs := p.Messages(); len(msgs) != 1 || msgs[0] != "Could not read the document." {
		t.Errorf("unexpected messages: %v", msgs)
	}
}

func TestStdinResolver(t *testing.T) {
	cases := []struct {
		input string
		want  policy.Decision
	}{
		{"c\n", policy.Continue},
		{"Continue\n", policy.Continue},
		{"r\n", policy.Retry},
		{"ABORT\n", policy.Abort},
		{"what\nnope\na\n", policy.Abort}, // invalid answers reprompt
		{"", policy.Abort},                // closed input aborts
	}
	for _, tc := range cases {
		var out bytes.Buffer
		r := policy.NewStdinResolver(strings.NewReader(tc.input), &out)
		d, err := r.Resolve("Continue, retry, or abort?")
		if err != nil {
			t.Fatalf("input %q: unexpected error: %v", tc.input, err)
		}
		if d != tc.want {
			t.Errorf("input %q: expected %v, got %v", tc.input, tc.want, d)
		}
	}
}
