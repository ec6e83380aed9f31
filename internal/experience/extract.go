// Package experience extracts and normalizes the fact inventory of a CV.
package experience

import (
	"context"
	"strings"
	"time"

	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/jonathan/cv-tailor/internal/prompts"
	"github.com/jonathan/cv-tailor/internal/schemas"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/jonathan/cv-tailor/internal/validation"
	"github.com/sirupsen/logrus"
)

// Now is the clock used for "present" end dates
var Now = time.Now

// ExtractCVFacts extracts verifiable facts from raw CV text. Nothing is inferred beyond
// what the extraction keeps evidence for; see Normalize.
func ExtractCVFacts(ctx context.Context, client llm.Client, text string, log logrus.FieldLogger) (*types.CVFacts, error) {
	log = observability.OrNop(log)
	if strings.TrimSpace(text) == "" {
		return nil, &NormalizationError{Message: "CV text is empty"}
	}

	prompt, err := prompts.Render("extraction.json", "cv-facts", map[string]string{
		"CVText": validation.QuoteUntrusted(log, text, "cv"),
	})
	if err != nil {
		return nil, err
	}

	facts, err := llm.Extract[types.CVFacts](ctx, client, llm.Request{
		Name:   "cv facts",
		Prompt: prompt,
		Schema: schemas.CVFacts,
		Tier:   llm.TierStandard,
		Logger: log,
	})
	if err != nil {
		return nil, err
	}

	if err := Normalize(facts, text, Now()); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"experiences":      len(facts.Experience),
		"explicit_skills":  len(facts.Skills.ExplicitlyListed),
		"inferred_skills":  len(facts.Skills.InferredFromExperience),
		"total_experience": TotalYears(facts),
	}).Info("Extracted CV facts")
	return facts, nil
}
