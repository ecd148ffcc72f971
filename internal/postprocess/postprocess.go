// Package postprocess removes common LLM artifacts from raw model output
// before it is parsed as a translation response.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean strips thinking blocks, a wrapping markdown code fence, and
// surrounding quote pairs, then trims whitespace.
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removeCodeFence(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// thinkingBlockRe matches complete <thinking>…</thinking> style blocks.
// Each tag variant is listed explicitly because Go's RE2 engine does not
// support backreferences.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>`,
)

func removeThinkingBlocks(text string) string {
	return strings.TrimSpace(thinkingBlockRe.ReplaceAllString(text, ""))
}

// fenceRe matches output wrapped entirely in a markdown code fence, with an
// optional language tag after the opening backticks.
var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n?(.*?)\\n?```$")

func removeCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

var quotePairs = [][2]string{
	{`"`, `"`}, {"'", "'"}, {"«", "»"}, {"“", "”"}, {"‘", "’"},
}

// removeQuoteWrapping strips a matching pair of outer quotes when the entire
// text is wrapped in them.
func removeQuoteWrapping(text string) string {
	for _, pair := range quotePairs {
		if len(text) > len(pair[0])+len(pair[1]) &&
			strings.HasPrefix(text, pair[0]) && strings.HasSuffix(text, pair[1]) {
			return strings.TrimSpace(text[len(pair[0]) : len(text)-len(pair[1])])
		}
	}
	return text
}
