package experience

import "fmt"

// LoadError is returned when a saved CV facts file cannot be read or decoded
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("cv facts %s: %s", e.Path, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Cause }

// NormalizationError means extracted CV facts were unusable after cleanup
type NormalizationError struct {
	Message string
	Cause   error
}

func (e *NormalizationError) Error() string {
	if e.Cause == nil {
		return "cv facts: " + e.Message
	}
	return fmt.Sprintf("cv facts: %s: %v", e.Message, e.Cause)
}

func (e *NormalizationError) Unwrap() error { return e.Cause }
