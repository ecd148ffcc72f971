package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/soyrochus/wormhole/internal/config"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}

func TestLoad_DefaultsWithoutConfigFile(t *testing.T) {
	chdir(t, t.TempDir())

	s, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if s.Provider != "openai" {
		t.Errorf("default provider: %s", s.Provider)
	}
	if s.BatchBudget != 2000 {
		t.Errorf("default batch budget: %d", s.BatchBudget)
	}
}

func TestLoad_ReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := []byte("provider: ollama\nmodel: llama3.2\nbatch_budget: 500\nmemory_path: ./tm.db\n")
	if err := os.WriteFile(filepath.Join(dir, "wormhole.yaml"), cfg, 0644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	s, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if s.Provider != "ollama" || s.Model != "llama3.2" {
		t.Errorf("unexpected settings: %+v", s)
	}
	if s.BatchBudget != 500 || s.MemoryPath != "./tm.db" {
		t.Errorf("unexpected settings: %+v", s)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("WORMHOLE_PROVIDER", "echo")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	s, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if s.Provider != "echo" {
		t.Errorf("env provider not honored: %s", s.Provider)
	}
	if s.OpenAIAPIKey != "sk-test" {
		t.Errorf("bare OPENAI_API_KEY not honored")
	}
}

func TestLoad_MalformedConfigFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "wormhole.yaml"), []byte("provider: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	if _, err := config.Load(); err == nil {
		t.Error("malformed config should fail loudly")
	}
}

func TestValidate(t *testing.T) {
	s := &config.Settings{}
	if err := s.Validate("openai"); err == nil {
		t.Error("openai without a key should fail")
	}
	s.OpenAIAPIKey = "sk-test"
	if err := s.Validate("openai"); err != nil {
		t.Errorf("openai with a key should pass: %v", err)
	}
	if err := s.Validate("echo"); err != nil {
		t.Errorf("echo needs no credentials: %v", err)
	}
	if err := s.Validate("ollama"); err != nil {
		t.Errorf("ollama needs no credentials: %v", err)
	}
}
