// Package parsing turns job posting text into structured JobRequirements using LLM extraction.
package parsing

import (
	"context"
	"strings"

	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/jonathan/cv-tailor/internal/prompts"
	"github.com/jonathan/cv-tailor/internal/schemas"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/jonathan/cv-tailor/internal/validation"
	"github.com/sirupsen/logrus"
)

// ExtractJobRequirements extracts structured requirements from job description text.
// The reply is schema-validated (one corrective retry) and then normalized; there is no
// partial result on failure.
func ExtractJobRequirements(ctx context.Context, client llm.Client, text string, log logrus.FieldLogger) (*types.JobRequirements, error) {
	log = observability.OrNop(log)
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Field: "job_description", Message: "job description is empty"}
	}

	prompt, err := buildExtractionPrompt(text, log)
	if err != nil {
		return nil, err
	}

	raw, err := llm.Extract[types.JobRequirements](ctx, client, llm.Request{
		Name:   "job requirements",
		Prompt: prompt,
		Schema: schemas.JobRequirements,
		Tier:   llm.TierStandard,
		Logger: log,
	})
	if err != nil {
		return nil, err
	}

	reqs, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"job_title":    reqs.JobTitle,
		"must_have":    len(reqs.MustHave),
		"nice_to_have": len(reqs.NiceToHave),
		"inferred":     len(reqs.Inferred),
	}).Info("Extracted job requirements")
	return reqs, nil
}

// buildExtractionPrompt constructs the prompt for structured extraction
func buildExtractionPrompt(jobText string, log logrus.FieldLogger) (string, error) {
	return prompts.Render("extraction.json", "job-requirements", map[string]string{
		"JobDescription": validation.QuoteUntrusted(log, jobText, "job description"),
	})
}
