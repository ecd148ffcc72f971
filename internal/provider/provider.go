// Package provider defines the translation-provider boundary and the
// concrete backends selectable by name. All transport and parse failures
// surface as *Error so the runner can treat them uniformly.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/soyrochus/wormhole/internal/postprocess"
	"github.com/soyrochus/wormhole/internal/unit"
)

// Request carries one batch of segments to a provider. SourceLang is an
// optional hint; "" and "auto" both mean unspecified.
type Request struct {
	Segments   []*unit.Segment
	SourceLang string
	TargetLang string
	Model      string
}

// Provider translates segments and returns a mapping from segment id to
// translated text. It must be safe to call with an empty segment list
// (empty mapping, no network activity). A mapping missing some requested
// ids is not an error here; the runner's reconciliation detects it.
type Provider interface {
	Name() string
	Translate(ctx context.Context, req Request) (map[string]string, error)
}

// Error is the single distinguished provider-error kind. The runner treats
// all provider errors identically regardless of underlying cause.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// IsProviderError reports whether err is (or wraps) a provider error.
func IsProviderError(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}

// ConfigError indicates a misconfigured or unknown provider. It is raised
// before any document is opened or mutated.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// Config holds the credentials and endpoints providers may need. Values come
// from the configuration layer; each provider picks what it uses.
type Config struct {
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	GoogleCredentials string
	OllamaBaseURL     string
}

// Build constructs a provider by name. Unknown names fail fast with a
// ConfigError so no document is touched first. An empty name selects openai.
func Build(name string, cfg Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "openai", "gpt", "default":
		return NewOpenAI(cfg)
	case "google":
		return NewGoogle(cfg), nil
	case "ollama":
		return NewOllama(cfg), nil
	case "echo", "noop", "mock":
		return Echo{}, nil
	default:
		return nil, &ConfigError{Message: fmt.Sprintf("unknown translation provider %q", name)}
	}
}

// segmentPayload is the JSON shape sent to LLM-backed providers.
type segmentPayload struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// translatedItem is one element of the JSON array LLM-backed providers are
// instructed to return.
type translatedItem struct {
	ID         string `json:"id"`
	Translated string `json:"translated"`
}

func buildPayload(segments []*unit.Segment) []segmentPayload {
	payload := make([]segmentPayload, len(segments))
	for i, seg := range segments {
		payload[i] = segmentPayload{ID: seg.ID, Text: seg.Text}
	}
	return payload
}

// parseMapping parses an LLM response into a segment-id → text mapping.
// The raw output is cleaned first; both a bare JSON array and an object
// wrapping one under "segments" or "translations" are accepted.
func parseMapping(content string) (map[string]string, error) {
	content = postprocess.Clean(content)

	var items []translatedItem
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal([]byte(content), &wrapper); err != nil {
			return nil, &Error{Message: "response is not valid JSON", Cause: err}
		}
		raw, ok := wrapper["segments"]
		if !ok {
			raw, ok = wrapper["translations"]
		}
		if !ok {
			return nil, &Error{Message: "response JSON has no segments array"}
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, &Error{Message: "response segments array malformed", Cause: err}
		}
	}

	mapping := make(map[string]string, len(items))
	for _, item := range items {
		if item.ID == "" {
			return nil, &Error{Message: "response item missing segment id"}
		}
		mapping[item.ID] = item.Translated
	}
	return mapping, nil
}
