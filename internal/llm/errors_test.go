package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapProviderError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"canceled", context.Canceled, false},
		{"gemini quota text", errors.New("googleapi: Error 429: Resource exhausted"), true},
		{"gemini unavailable", errors.New("rpc error: code = Unavailable"), true},
		{"invalid argument", errors.New("googleapi: Error 400: invalid argument"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapProviderError(ProviderGemini, tt.err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.retryable, apiErr.Retryable)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestWrapProviderError_KeepsExistingAPIError(t *testing.T) {
	orig := &APIError{Provider: ProviderOpenAI, StatusCode: 500, Retryable: true, Cause: errors.New("boom")}
	assert.Same(t, orig, wrapProviderError(ProviderGemini, orig))
	assert.Nil(t, wrapProviderError(ProviderGemini, nil))
}

func TestRetryable_StatusCodes(t *testing.T) {
	err := errors.New("x")
	assert.True(t, retryable(429, err))
	assert.True(t, retryable(503, err))
	assert.True(t, retryable(408, err))
	assert.False(t, retryable(400, err))
	assert.False(t, retryable(401, err))
}

func TestExtractionError_Message(t *testing.T) {
	err := &ExtractionError{Name: "job requirements", Attempts: 2, Problems: []string{"must_have: required"}}
	assert.Equal(t, "job requirements extraction failed after 2 attempts: must_have: required", err.Error())
}
