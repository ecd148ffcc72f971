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
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soyrochus/wormhole/internal/policy"
)

var version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "wormhole",
	Short: "Structure-preserving document translator",
	Long: `Translate Office documents while keeping their layout, styling, and
embedded objects untouched. Text is extracted run by run, translated in
batches through an LLM or machine-translation provider, and spliced back
into an exact copy of the original file.

Supported formats: Word (.docx) and PowerPoint (.pptx)

Use "wormhole translate --help" for translation options.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and maps failures to process exit codes:
// a user abort or error-threshold stop exits 2, any other failure exits 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, policy.ErrAborted) || errors.Is(err, policy.ErrThreshold) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
