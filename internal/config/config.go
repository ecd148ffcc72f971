// Package config loads layered settings for the CLI: a wormhole.yaml file in
// the working directory or under ~/.wormhole, overridden by environment
// variables with the WORMHOLE_ prefix plus a few well-known bare variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Settings is the validated configuration surface consumed by the commands.
type Settings struct {
	Provider          string
	Model             string
	BatchBudget       int
	MemoryPath        string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	GoogleCredentials string
	OllamaBaseURL     string
}

// Load reads configuration sources. A missing config file is fine; a
// malformed one is not.
func Load() (*Settings, error) {
	v := viper.New()
	v.SetConfigName("wormhole")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".wormhole"))
	}

	v.SetDefault("provider", "openai")
	v.SetDefault("batch_budget", 2000)
	v.SetDefault("memory_path", "")

	v.SetEnvPrefix("WORMHOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Bare variable names honored alongside the prefixed forms.
	_ = v.BindEnv("openai_api_key", "WORMHOLE_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("openai_base_url", "WORMHOLE_OPENAI_BASE_URL", "OPENAI_BASE_URL")
	_ = v.BindEnv("google_credentials", "WORMHOLE_GOOGLE_CREDENTIALS", "GOOGLE_APPLICATION_CREDENTIALS")
	_ = v.BindEnv("ollama_base_url", "WORMHOLE_OLLAMA_BASE_URL", "OLLAMA_BASE_URL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read configuration: %w", err)
		}
	}

	return &Settings{
		Provider:          v.GetString("provider"),
		Model:             v.GetString("model"),
		BatchBudget:       v.GetInt("batch_budget"),
		MemoryPath:        v.GetString("memory_path"),
		OpenAIAPIKey:      v.GetString("openai_api_key"),
		OpenAIBaseURL:     v.GetString("openai_base_url"),
		GoogleCredentials: v.GetString("google_credentials"),
		OllamaBaseURL:     v.GetString("ollama_base_url"),
	}, nil
}

// Validate checks that the settings required by the selected provider are
// present, before any document is opened.
func (s *Settings) Validate(providerName string) error {
	switch strings.ToLower(strings.TrimSpace(providerName)) {
	case "", "openai", "gpt", "default":
		if s.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when the provider is openai")
		}
	case "google":
		if s.GoogleCredentials == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS is required when the provider is google")
		}
	}
	return nil
}
