package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/soyrochus/wormhole/internal/unit"
)

func TestBuild_KnownProviders(t *testing.T) {
	cfg := Config{OpenAIAPIKey: "test-key"}

	cases := []struct {
		name string
		want string
	}{
		{"openai", "openai"},
		{"", "openai"},
		{"OpenAI", "openai"},
		{"google", "google"},
		{"ollama", "ollama"},
		{"echo", "echo"},
	}
	for _, tc := range cases {
		p, err := Build(tc.name, cfg)
		if err != nil {
			t.Fatalf("Build(%q) failed: %v", tc.name, err)
		}
		if p.Name() != tc.want {
			t.Errorf("Build(%q): expected %s, got %s", tc.name, tc.want, p.Name())
		}
	}
}

func TestBuild_UnknownProvider(t *testing.T) {
	_, err := Build("babelfish", Config{})
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestBuild_OpenAIWithoutKey(t *testing.T) {
	_, err := Build("openai", Config{})
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError for missing key, got %v", err)
	}
}

func TestEcho_Identity(t *testing.T) {
	segments := []*unit.Segment{
		{ID: "a#seg0", Text: "Hello "},
		{ID: "a#seg1", Text: "world"},
	}
	mapping, err := Echo{}.Translate(context.Background(), Request{Segments: segments, TargetLang: "es"})
	if err != nil {
		t.Fatalf("echo failed: %v", err)
	}
	if mapping["a#seg0"] != "Hello " || mapping["a#seg1"] != "world" {
		t.Errorf("echo altered text: %v", mapping)
	}
}

func TestParseMapping_BareArray(t *testing.T) {
	mapping, err := parseMapping(`[{"id":"a","translated":"x"},{"id":"b","translated":"y"}]`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if mapping["a"] != "x" || mapping["b"] != "y" {
		t.Errorf("unexpected mapping: %v", mapping)
	}
}

func TestParseMapping_WrappedObject(t *testing.T) {
	for _, key := range []string{"segments", "translations"} {
		content := `{"` + key + `":[{"id":"a","translated":"x"}]}`
		mapping, err := parseMapping(content)
		if err != nil {
			t.Fatalf("parse with %q wrapper failed: %v", key, err)
		}
		if mapping["a"] != "x" {
			t.Errorf("unexpected mapping: %v", mapping)
		}
	}
}

func TestParseMapping_CodeFenced(t *testing.T) {
	content := "```json\n[{\"id\":\"a\",\"translated\":\"x\"}]\n```"
	mapping, err := parseMapping(content)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if mapping["a"] != "x" {
		t.Errorf("unexpected mapping: %v", mapping)
	}
}

func TestParseMapping_MissingIDsAreNotAnError(t *testing.T) {
	// Reconciliation downstream decides what to do about omissions.
	mapping, err := parseMapping(`[{"id":"a","translated":"x"}]`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(mapping) != 1 {
		t.Errorf("unexpected mapping size: %d", len(mapping))
	}
}

func TestParseMapping_Invalid(t *testing.T) {
	cases := []string{
		`not json at all`,
		`{"other":"shape"}`,
		`[{"translated":"no id"}]`,
	}
	for _, content := range cases {
		_, err := parseMapping(content)
		if !IsProviderError(err) {
			t.Errorf("content %q: expected provider error, got %v", content, err)
		}
	}
}

func TestOllama_Translate(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
			Stream bool   `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Stream {
			t.Error("streaming should be disabled")
		}
		json.NewEncoder(w).Encode(map[string]string{
			"response": `[{"id":"u#seg0","translated":"Hola"}]`,
		})
	}))
	defer srv.Close()

	p := NewOllama(Config{OllamaBaseURL: srv.URL})
	mapping, err := p.Translate(context.Background(), Request{
		Segments:   []*unit.Segment{{ID: "u#seg0", Text: "Hello"}},
		TargetLang: "es",
	})
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if gotPath != "/api/generate" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if mapping["u#seg0"] != "Hola" {
		t.Errorf("unexpected mapping: %v", mapping)
	}
}

func TestOllama_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOllama(Config{OllamaBaseURL: srv.URL})
	_, err := p.Translate(context.Background(), Request{
		Segments:   []*unit.Segment{{ID: "u#seg0", Text: "Hello"}},
		TargetLang: "es",
	})
	if !IsProviderError(err) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestTranslate_EmptySegments(t *testing.T) {
	// No network activity expected; a dead base URL must not matter.
	p := NewOllama(Config{OllamaBaseURL: "http://127.0.0.1:1"})
	mapping, err := p.Translate(context.Background(), Request{TargetLang: "es"})
	if err != nil {
		t.Fatalf("empty request failed: %v", err)
	}
	if len(mapping) != 0 {
		t.Errorf("expected empty mapping, got %v", mapping)
	}
}
