package jsonrepair

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/credit-quality/internal/llm"
	"github.com/jonathan/credit-quality/internal/logger"
	"github.com/jonathan/credit-quality/internal/prompts"
)

const (
	promptFile = "recovery.json"
	promptKey  = "strict-json-regeneration"

	maxPreviousRunes = 16000
)

// BuildRegenerationPrompt renders the strict regeneration prompt. schema is only rendered into
// the prompt, never validated against; a nil schema falls back to the field listing of the
// layout the previous answer appears to use.
// A nil store reads the embedded templates.
func BuildRegenerationPrompt(store *prompts.Store, raw, parseErr string, schema map[string]any, sentinel string) (string, error) {
	var (
		template string
		err      error
	)
	if store != nil {
		template, err = store.Get(promptFile, promptKey)
	} else {
		template, err = prompts.Get(promptFile, promptKey)
	}
	if err != nil {
		return "", err
	}

	target := llm.RenderFields(layoutFor(raw))
	if len(schema) > 0 {
		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to render schema: %w", err)
		}
		target = string(data)
	}

	if sentinel == "" {
		sentinel = DefaultSentinel
	}

	return prompts.Format(template, map[string]string{
		"ParseError": parseErr,
		"Sentinel":   sentinel,
		"Schema":     target,
		"Previous":   logger.TruncateForLog(raw, maxPreviousRunes),
	}), nil
}

// layoutFor guesses the target layout from the failed answer. CV section keys win over the
// credits layout, which is the default.
func layoutFor(raw string) llm.ExtractionSchema {
	if strings.Contains(raw, "personalInfo") && !strings.Contains(raw, "resume") {
		return llm.CVSchema()
	}
	return llm.CreditsSchema()
}
