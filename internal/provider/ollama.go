package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultOllamaModel = "llama3.2"

// Ollama translates batches through a self-hosted Ollama instance using the
// same JSON segment protocol as the OpenAI provider.
type Ollama struct {
	baseURL string
	client  *http.Client
}

func NewOllama(cfg Config) *Ollama {
	baseURL := cfg.OllamaBaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *Ollama) Name() string { return "ollama" }

func (p *Ollama) Translate(ctx context.Context, req Request) (map[string]string, error) {
	if len(req.Segments) == 0 {
		return map[string]string{}, nil
	}

	model := req.Model
	if model == "" {
		model = defaultOllamaModel
	}

	segments, err := json.Marshal(buildPayload(req.Segments))
	if err != nil {
		return nil, &Error{Message: "failed to encode request payload", Cause: err}
	}

	source := req.SourceLang
	if source == "" || source == "auto" {
		source = "the source language"
	}
	prompt := fmt.Sprintf(`Translate the following text segments from %s to %s.
Preserve formatting, whitespace, placeholders, and any <run id="...">...</run> tags
(translate only the inner text of tags, never move content outside them).
Respond with only a JSON array of objects {"id": "...", "translated": "..."},
one per input segment.

Segments: %s`, source, req.TargetLang, segments)

	body, err := json.Marshal(map[string]any{
		"model":  model,
		"prompt": prompt,
		"stream": false,
	})
	if err != nil {
		return nil, &Error{Message: "failed to encode request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Message: "Ollama request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Message: fmt.Sprintf("Ollama returned status %d", resp.StatusCode)}
	}

	var ollamaResp struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, &Error{Message: "failed to decode Ollama response", Cause: err}
	}

	return parseMapping(ollamaResp.Response)
}
