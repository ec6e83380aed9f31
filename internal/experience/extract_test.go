package experience

import (
	"context"
	"testing"
	"time"

	"github.com/jonathan/cv-tailor/internal/llm/llmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCVReply = `{
  "personal_info": {"name": "Jane Doe", "email": "jane@example.com"},
  "professional_summary": {"original_text": "Backend engineer.", "extracted_claims": ["Backend engineer", "Led 12 teams"]},
  "experience": [{
    "company": "Paystream", "title": "Software Engineer", "start_date": "2022-01", "end_date": "present",
    "responsibilities": [{"original_text": "Maintained the Go payment gateway", "extracted_facts": {"technologies": ["golang"]}}],
    "achievements": [{"original_text": "Increased sales conversion by 15%", "quantified": true, "metrics": {"type": "percentage", "value": "25%"}}]
  }],
  "skills": {
    "explicitly_listed": ["Go"],
    "inferred_from_experience": [{"skill": "Payments", "evidence_source": "Maintained the Go payment gateway"}, {"skill": "Leadership", "evidence_source": "Led a team"}]
  },
  "education": [], "certifications": [], "projects": [], "languages": []
}`

func TestExtractCVFacts(t *testing.T) {
	prev := Now
	Now = func() time.Time { return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC) }
	defer func() { Now = prev }()

	client := llmtest.New().OnText(llmtest.CVFactsPrompt, sampleCVReply)

	facts, err := ExtractCVFacts(context.Background(), client, "Jane Doe\nBackend engineer.", nil)
	require.NoError(t, err)

	require.Len(t, facts.Experience, 1)
	exp := facts.Experience[0]
	assert.Equal(t, "exp_1", exp.ID)
	assert.Equal(t, 24, *exp.DurationMonths)
	assert.Equal(t, []string{"Go"}, exp.Responsibilities[0].ExtractedFacts.Technologies)
	assert.Nil(t, exp.Achievements[0].Metrics, "metric not stated in the sentence is dropped")
	assert.True(t, exp.Achievements[0].Quantified)

	require.Len(t, facts.Skills.InferredFromExperience, 1)
	assert.Equal(t, "Payments", facts.Skills.InferredFromExperience[0].Skill)
	assert.Equal(t, []string{"Backend engineer"}, facts.ProfessionalSummary.ExtractedClaims)

	assert.Contains(t, client.Calls()[0].Prompt, "[BEGIN QUOTED CV")
}

func TestExtractCVFacts_EmptyInput(t *testing.T) {
	client := llmtest.New()
	_, err := ExtractCVFacts(context.Background(), client, "", nil)

	var ne *NormalizationError
	require.ErrorAs(t, err, &ne)
	assert.Empty(t, client.Calls())
}
