// Package consensus scores a candidate extraction against a trusted multi-source baseline
// by structural fidelity, fuzzy credit matching and field agreement.
package consensus

import "fmt"

// BaselineLoadError represents a baseline corpus that exists but cannot be used.
type BaselineLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *BaselineLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("baseline load error (%s): %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("baseline load error (%s): %s", e.Path, e.Message)
}

func (e *BaselineLoadError) Unwrap() error {
	return e.Cause
}
