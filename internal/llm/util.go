// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import "strings"

const fence = "```"

// HasCodeFence reports whether text contains a markdown code fence marker.
func HasCodeFence(text string) bool {
	return strings.Contains(text, fence)
}

// CleanJSONBlock returns the content of the first markdown code block in text.
// LLMs often wrap JSON in ```json ... ``` blocks even when instructed not to, and
// sometimes put a sentence before the fence. Text without a fence is returned trimmed.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	start := strings.Index(text, fence)
	if start < 0 {
		return text
	}
	body := text[start+len(fence):]

	// Skip potential language identifier on the opening line
	if idx := strings.Index(body, "\n"); idx >= 0 {
		firstLine := strings.TrimSpace(body[:idx])
		if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.ContainsAny(firstLine, "{[") {
			body = body[idx+1:]
		}
	}

	if end := strings.Index(body, fence); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}
