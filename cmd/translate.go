/*
Copyright © 2026 The Wormhole Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyrochus/wormhole/internal/config"
	"github.com/soyrochus/wormhole/internal/document"
	"github.com/soyrochus/wormhole/internal/policy"
	"github.com/soyrochus/wormhole/internal/provider"
	"github.com/soyrochus/wormhole/internal/runner"
	"github.com/soyrochus/wormhole/internal/store"
)

var (
	targetLang     string
	sourceLang     string
	outputFile     string
	providerName   string
	modelName      string
	batchBudget    int
	forceOverwrite bool
	nonInteractive bool
	verbose        bool
	noMemory       bool
	memoryPath     string
)

var translateCmd = &cobra.Command{
	Use:   "translate <input-file>",
	Short: "Translate a document in place of its structure",
	Long: `Translate a .docx or .pptx document into the target language while
preserving every non-text byte of the original file.

Available providers:
  - openai   OpenAI chat models (requires OPENAI_API_KEY)
  - google   Google Cloud Translation (requires credentials)
  - ollama   Self-hosted Ollama server
  - echo     Copies text unchanged (for dry runs)

When --output is omitted the translated copy is written next to the
input as <name>_<target>.<ext>.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputFile := args[0]

		settings, err := config.Load()
		if err != nil {
			return err
		}
		if providerName == "" {
			providerName = settings.Provider
		}
		if modelName == "" {
			modelName = settings.Model
		}
		if !cmd.Flags().Changed("batch-guidance") && settings.BatchBudget > 0 {
			batchBudget = settings.BatchBudget
		}
		if memoryPath == "" {
			memoryPath = settings.MemoryPath
		}

		if outputFile == "" {
			outputFile = deriveOutputPath(inputFile, targetLang)
		}
		if err := runner.ValidatePaths(inputFile, outputFile, forceOverwrite); err != nil {
			return err
		}
		if err := settings.Validate(providerName); err != nil {
			return err
		}

		prov, err := provider.Build(providerName, provider.Config{
			OpenAIAPIKey:      settings.OpenAIAPIKey,
			OpenAIBaseURL:     settings.OpenAIBaseURL,
			GoogleCredentials: settings.GoogleCredentials,
			OllamaBaseURL:     settings.OllamaBaseURL,
		})
		if err != nil {
			return err
		}

		docType, handler, err := document.Detect(inputFile)
		if err != nil {
			return err
		}

		var memory runner.Memory
		if !noMemory && memoryPath != "" {
			db, err := store.Open(memoryPath)
			if err != nil {
				return fmt.Errorf("failed to open translation memory: %w", err)
			}
			defer db.Close()
			memory = db
		}

		var resolver policy.Resolver
		if !nonInteractive {
			resolver = policy.NewStdinResolver(os.Stdin, os.Stderr)
		}
		pol := policy.New(resolver, os.Stderr)

		run := runner.New(runner.Options{
			InputPath:    inputFile,
			OutputPath:   outputFile,
			DocumentType: docType,
			TargetLang:   targetLang,
			SourceLang:   normalizeSource(sourceLang),
			Model:        modelName,
			BatchBudget:  batchBudget,
			Verbose:      verbose,
		}, handler, prov, pol, memory)

		summary, err := run.Run(context.Background())
		if err != nil {
			return err
		}

		printSummary(summary)
		return nil
	},
}

func printSummary(s *runner.Summary) {
	fmt.Printf("Translated %s -> %s\n", s.InputPath, s.OutputPath)
	fmt.Printf("Provider: %s", s.Provider)
	if s.Model != "" {
		fmt.Printf(" (%s)", s.Model)
	}
	fmt.Println()
	if s.SourceLang != "" {
		fmt.Printf("Languages: %s -> %s\n", s.SourceLang, s.TargetLang)
	} else {
		fmt.Printf("Target language: %s\n", s.TargetLang)
	}
	fmt.Printf("Units: %d translated, %d skipped, %d total\n",
		s.TranslatedUnits, s.SkippedUnits, s.TotalUnits)
	fmt.Printf("Segments: %d in %d batches", s.TotalSegments, s.TotalBatches)
	if s.MemoryHits > 0 {
		fmt.Printf(" (%d served from memory)", s.MemoryHits)
	}
	fmt.Println()
	fmt.Printf("Elapsed: %s\n", s.Elapsed.Round(10*time.Millisecond))
	if s.TotalErrors > 0 {
		fmt.Printf("Completed with %d errors:\n", s.TotalErrors)
		for _, msg := range s.ErrorMessages {
			fmt.Printf("  - %s\n", msg)
		}
	}
}

// deriveOutputPath places the translated copy next to the input, suffixed
// with a sanitized target-language tag.
func deriveOutputPath(inputPath, target string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(inputPath, ext)
	return fmt.Sprintf("%s_%s%s", base, sanitizeLanguage(target), ext)
}

// sanitizeLanguage reduces a language name or code to a filename-safe tag.
func sanitizeLanguage(lang string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(lang)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ' || r == '_':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "translated"
	}
	return b.String()
}

func normalizeSource(lang string) string {
	if strings.EqualFold(strings.TrimSpace(lang), "auto") {
		return ""
	}
	return strings.TrimSpace(lang)
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&targetLang, "target", "t", "", "Target language (required)")
	translateCmd.Flags().StringVarP(&sourceLang, "source", "s", "", "Source language hint (default: let the provider decide)")
	translateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: <input>_<target>.<ext>)")
	translateCmd.Flags().StringVarP(&providerName, "provider", "p", "", "Translation provider: openai, google, ollama, echo")
	translateCmd.Flags().StringVarP(&modelName, "model", "m", "", "Model name for LLM providers")
	translateCmd.Flags().IntVarP(&batchBudget, "batch-guidance", "b", 2000, "Character guidance per batch and segment")
	translateCmd.Flags().BoolVarP(&forceOverwrite, "force", "f", false, "Overwrite the output file if it exists")
	translateCmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Never prompt; stop when the error threshold is reached")
	translateCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print per-batch progress")
	translateCmd.Flags().BoolVar(&noMemory, "no-memory", false, "Disable the translation memory")
	translateCmd.Flags().StringVar(&memoryPath, "memory-db", "", "SQLite path for the translation memory")

	translateCmd.MarkFlagRequired("target")
}
