// Package jsonrepair recovers parseable JSON from generated text through an ordered cascade
// of increasingly destructive repair tiers, escalating to a stricter regeneration when every
// local tier fails and degrading to an empty record when that fails too.
package jsonrepair

import (
	"fmt"
	"strings"
)

// Attempt records the outcome of one tier on one pass.
type Attempt struct {
	Tier    string
	Pass    int // 1 for the original text, 2 for the regenerated text
	Skipped bool
	Err     error
}

func (a Attempt) String() string {
	if a.Skipped {
		return fmt.Sprintf("pass%d/%s: skipped", a.Pass, a.Tier)
	}
	if a.Err != nil {
		return fmt.Sprintf("pass%d/%s: %v", a.Pass, a.Tier, a.Err)
	}
	return fmt.Sprintf("pass%d/%s: ok", a.Pass, a.Tier)
}

// UnrecoverableError is returned when no local tier produced parseable JSON.
type UnrecoverableError struct {
	Message  string
	Attempts []Attempt
	Cause    error
}

func (e *UnrecoverableError) Error() string {
	var sb strings.Builder
	sb.WriteString("unrecoverable JSON: ")
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *UnrecoverableError) Unwrap() error {
	return e.Cause
}

// RegenerationError represents a failed escalation call to the upstream generator.
type RegenerationError struct {
	Message string
	Cause   error
}

func (e *RegenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("regeneration error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("regeneration error: %s", e.Message)
}

func (e *RegenerationError) Unwrap() error {
	return e.Cause
}
