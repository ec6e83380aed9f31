// Package llm - extractor.go provides schema-validated structured extraction.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/jonathan/cv-tailor/internal/prompts"
	"github.com/jonathan/cv-tailor/internal/schemas"
	"github.com/sirupsen/logrus"
)

// maxAttempts is the first call plus one corrective retry
const maxAttempts = 2

// Request describes one structured generation call
type Request struct {
	Name   string    // Short name for logs and errors (e.g. "job requirements")
	Prompt string    // Fully rendered prompt
	Schema string    // Name of the embedded JSON Schema the reply must satisfy
	Tier   ModelTier // Defaults to TierStandard
	Logger logrus.FieldLogger
}

// Extract sends the prompt, validates the JSON reply against the schema and decodes it into T.
// A reply that is malformed or violates the schema is retried once with the violations appended
// to the prompt; a retryable upstream error is retried once as is. Non-retryable upstream errors
// are returned as *APIError, a second failure as *ExtractionError.
func Extract[T any](ctx context.Context, client Client, req Request) (*T, error) {
	if req.Tier == "" {
		req.Tier = TierStandard
	}
	if req.Name == "" {
		req.Name = req.Schema
	}
	log := observability.OrNop(req.Logger).WithFields(logrus.Fields{
		"extraction": req.Name,
		"schema":     req.Schema,
	})

	schema, err := schemas.Get(req.Schema)
	if err != nil {
		return nil, err
	}

	prompt := req.Prompt
	var problems []string
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		raw, err := client.GenerateJSON(ctx, prompt, req.Tier)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && !apiErr.Retryable {
				return nil, err
			}
			log.WithError(err).WithField("attempt", attempt).Warn("LLM call failed")
			problems = []string{err.Error()}
			lastErr = err
			prompt = req.Prompt
			continue
		}

		out, decodeProblems, decodeErr := decode[T](schema, raw)
		if decodeErr == nil {
			if attempt > 1 {
				log.WithField("attempt", attempt).Info("Extraction succeeded after retry")
			}
			return out, nil
		}

		log.WithFields(logrus.Fields{
			"attempt":  attempt,
			"problems": len(decodeProblems),
		}).Warn("LLM output rejected")
		problems = decodeProblems
		lastErr = decodeErr

		prompt, err = correctivePrompt(req.Prompt, schema, decodeProblems)
		if err != nil {
			return nil, err
		}
	}

	return nil, &ExtractionError{
		Name:     req.Name,
		Schema:   req.Schema,
		Attempts: maxAttempts,
		Problems: problems,
		Cause:    lastErr,
	}
}

func decode[T any](schema *schemas.Schema, raw string) (*T, []string, error) {
	cleaned := CleanJSONBlock(raw)
	if cleaned == "" {
		err := errors.New("empty response")
		return nil, []string{err.Error()}, err
	}

	if err := schema.Validate(cleaned); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			return nil, ve.Fields(), err
		}
		return nil, []string{err.Error()}, err
	}

	var out T
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		err = fmt.Errorf("failed to decode response: %w", err)
		return nil, []string{err.Error()}, err
	}
	return &out, nil, nil
}

func correctivePrompt(original string, schema *schemas.Schema, problems []string) (string, error) {
	lines := make([]string, 0, len(problems))
	for _, p := range problems {
		lines = append(lines, "- "+p)
	}
	correction, err := prompts.Render("extraction.json", "corrective", map[string]string{
		"Errors": strings.Join(lines, "\n"),
		"Schema": schema.Content,
	})
	if err != nil {
		return "", err
	}
	return original + "\n" + correction, nil
}
