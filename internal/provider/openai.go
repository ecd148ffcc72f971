package provider

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

const openAISystemPrompt = `You are a professional translator. Return only JSON.
Translate the provided text segments into the requested language.
Preserve formatting, whitespace, placeholders, numbers, and markup.
Segments may contain <run id="...">...</run> tags: keep the tag structure intact,
translate only the inner text, and never move content outside the tags
(words may be redistributed between tags when the target word order requires it).
Respond with a JSON array of objects of the form {"id": "...", "translated": "..."},
one per input segment, and nothing else.`

// OpenAI translates batches through the OpenAI chat completion API using a
// JSON segment protocol.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI creates the provider. A missing API key is a configuration
// error so callers fail before touching any document.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, &ConfigError{Message: "OpenAI configuration missing: set OPENAI_API_KEY or choose a different provider"}
	}
	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(clientCfg)}, nil
}

func (p *OpenAI) Name() string { return "openai" }

func (p *OpenAI) Translate(ctx context.Context, req Request) (map[string]string, error) {
	if len(req.Segments) == 0 {
		return map[string]string{}, nil
	}

	userPayload := map[string]any{
		"target_language": req.TargetLang,
		"segments":        buildPayload(req.Segments),
	}
	if req.SourceLang != "" && req.SourceLang != "auto" {
		userPayload["source_language"] = req.SourceLang
	}
	body, err := json.Marshal(userPayload)
	if err != nil {
		return nil, &Error{Message: "failed to encode request payload", Cause: err}
	}

	model := req.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: openAISystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(body)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("OpenAI API call failed (model %s)", model), Cause: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Message: "OpenAI returned no choices"}
	}

	return parseMapping(resp.Choices[0].Message.Content)
}
