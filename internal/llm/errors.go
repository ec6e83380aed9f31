package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v3"
)

// APIError is a failure reported by the provider or the transport to it
type APIError struct {
	Provider   Provider
	StatusCode int
	Retryable  bool
	Cause      error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error (status %d): %v", e.Provider, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("%s API error: %v", e.Provider, e.Cause)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// ExtractionError means the model did not produce output matching the schema after the corrective retry
type ExtractionError struct {
	Name     string
	Schema   string
	Attempts int
	Problems []string
	Cause    error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("%s extraction failed after %d attempts", e.Name, e.Attempts)
	if len(e.Problems) > 0 {
		msg += ": " + strings.Join(e.Problems, "; ")
	}
	return msg
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err is an upstream failure worth one more attempt
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return false
}

// wrapProviderError converts an SDK error into an *APIError with a retry classification
func wrapProviderError(provider Provider, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}

	status := 0
	var oaErr *openai.Error
	var anErr *anthropic.Error
	switch {
	case errors.As(err, &oaErr):
		status = oaErr.StatusCode
	case errors.As(err, &anErr):
		status = anErr.StatusCode
	}

	return &APIError{
		Provider:   provider,
		StatusCode: status,
		Retryable:  retryable(status, err),
		Cause:      err,
	}
}

func retryable(status int, err error) bool {
	switch {
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return true
	case status >= 500:
		return true
	case status != 0:
		return false
	}
	// Gemini surfaces gRPC/REST failures as text
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "503", "unavailable", "resource exhausted", "deadline", "timeout"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
