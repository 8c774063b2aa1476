// Package completeness measures how many expected CV fields are populated, using either a
// section-balanced or a weighted-field strategy, and derives a penalised confidence value.
package completeness

import "fmt"

// WeightsError represents an invalid weight configuration
type WeightsError struct {
	Message string
	Cause   error
}

func (e *WeightsError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("weights error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("weights error: %s", e.Message)
}

func (e *WeightsError) Unwrap() error {
	return e.Cause
}
