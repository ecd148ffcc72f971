package provider

import (
	"context"
	"strings"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// Google translates batches through the Cloud Translation API. Segment texts
// travel as one ordered slice and come back index-aligned, which gives the
// id → text mapping directly.
type Google struct {
	credentials string
}

func NewGoogle(cfg Config) *Google {
	return &Google{credentials: cfg.GoogleCredentials}
}

func (p *Google) Name() string { return "google" }

func (p *Google) Translate(ctx context.Context, req Request) (map[string]string, error) {
	if len(req.Segments) == 0 {
		return map[string]string{}, nil
	}

	target, err := language.Parse(req.TargetLang)
	if err != nil {
		return nil, &ConfigError{Message: "invalid target language: " + req.TargetLang}
	}

	var opts []option.ClientOption
	if p.credentials != "" {
		opts = append(opts, option.WithCredentialsFile(p.credentials))
	}
	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, &Error{Message: "failed to create Google Translate client", Cause: err}
	}
	defer client.Close()

	texts := make([]string, len(req.Segments))
	tagged := false
	for i, seg := range req.Segments {
		texts[i] = seg.Text
		if strings.Contains(seg.Text, "<run ") {
			tagged = true
		}
	}

	tropts := &translate.Options{Format: translate.Text}
	if tagged {
		// HTML mode keeps <run> tags intact for multi-fragment payloads.
		tropts.Format = translate.HTML
	}
	if req.SourceLang != "" && req.SourceLang != "auto" {
		if source, err := language.Parse(req.SourceLang); err == nil {
			tropts.Source = source
		}
	}

	translations, err := client.Translate(ctx, texts, target, tropts)
	if err != nil {
		return nil, &Error{Message: "Google Translate call failed", Cause: err}
	}

	mapping := make(map[string]string, len(req.Segments))
	for i, seg := range req.Segments {
		if i < len(translations) {
			mapping[seg.ID] = translations[i].Text
		}
	}
	return mapping, nil
}
