// Package analysis implements the LLM analysis stage: it turns a raw
// assessment submission into a structured readiness report.
package analysis

import "fmt"

// Error represents an analysis stage failure. The record's
// analysis_completed flag stays false, so the stage is retried on a later
// pass.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("analysis error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("analysis error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
