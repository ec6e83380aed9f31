package coverletter

import (
	"context"
	"testing"

	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/llm/llmtest"
	"github.com/jonathan/cv-tailor/internal/matching"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/jonathan/cv-tailor/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInput() Input {
	months := 36
	facts := &types.CVFacts{
		PersonalInfo: types.PersonalInfo{Name: "Jane Doe"},
		Experience: []types.Experience{{
			ID: "exp_1", Company: "Paystream", Title: "Backend Engineer", DurationMonths: &months,
			Responsibilities: []types.ResponsibilityFact{
				{OriginalText: "Built payment APIs in Go", ExtractedFacts: types.ExtractedFacts{Technologies: []string{"Go"}}},
			},
			Achievements: []types.Achievement{{OriginalText: "Increased checkout conversion by 15%", Quantified: true}},
		}},
		Skills: types.Skills{ExplicitlyListed: []string{"Go"}},
	}
	reqs := &types.JobRequirements{
		JobTitle: "Senior Backend Engineer",
		Company:  "Acme",
		MustHave: []types.Requirement{
			{Category: types.CategoryTechnicalSkill, Description: "Go programming", Keywords: []string{"Go"}},
		},
		NiceToHave: []types.Requirement{
			{Category: types.CategoryTechnicalSkill, Description: "Kafka", Keywords: []string{"Kafka"}},
		},
		CultureSignals: types.CultureSignals{WorkStyle: []string{"Fast-paced startup"}},
	}
	return Input{
		Facts:        facts,
		Requirements: reqs,
		Mapping:      matching.Map(reqs, facts, nil),
		Grounded:     validation.BuildGroundedSet(facts, true),
		Vocabulary:   validation.NewVocabulary(reqs),
	}
}

func TestSelectTone(t *testing.T) {
	tests := []struct {
		name    string
		signals types.CultureSignals
		want    string
	}{
		{"startup", types.CultureSignals{WorkStyle: []string{"Startup environment"}}, ToneEnergetic},
		{"dynamic value", types.CultureSignals{Values: []string{"dynamic"}}, ToneEnergetic},
		{"enterprise", types.CultureSignals{WorkStyle: []string{"Enterprise clients"}}, ToneFormal},
		{"none", types.CultureSignals{}, ToneProfessional},
		{"unrelated", types.CultureSignals{Values: []string{"ownership"}}, ToneProfessional},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectTone(tt.signals))
		})
	}
}

func TestGenerate(t *testing.T) {
	client := llmtest.New().OnJSON(llmtest.CoverLetterPrompt, letterReply{
		Hook:             "Acme's payments work is where I want to build next.",
		ValueProposition: "At Paystream I built payment APIs in Go and increased checkout conversion by 15%.",
		FitNarrative:     "I enjoy shipping quickly with a small team.",
		Closing:          "I would be glad to talk.",
	})

	letter, err := Generate(context.Background(), client, testInput())
	require.NoError(t, err)

	assert.Equal(t, ToneEnergetic, letter.Tone)
	assert.Equal(t, "Acme's payments work is where I want to build next.\n\n"+
		"At Paystream I built payment APIs in Go and increased checkout conversion by 15%.\n\n"+
		"I enjoy shipping quickly with a small team.\n\n"+
		"I would be glad to talk.", letter.FullText)

	prompt := client.Calls()[0].Prompt
	assert.Contains(t, prompt, "- Go programming: Built payment APIs in Go")
	assert.Contains(t, prompt, "Gaps (do not claim):\n- Kafka")
}

func TestGenerate_RejectsFabricatedNumber(t *testing.T) {
	client := llmtest.New().OnJSON(llmtest.CoverLetterPrompt, letterReply{
		Hook:             "I am applying for the role.",
		ValueProposition: "I increased checkout conversion by 25%.",
		FitNarrative:     "I like small teams.",
		Closing:          "Thank you.",
	})

	_, err := Generate(context.Background(), client, testInput())
	var fab *validation.FabricationError
	require.ErrorAs(t, err, &fab)
	assert.Equal(t, "cover_letter.value_proposition", fab.Violations[0].Field)
	assert.Equal(t, types.ViolationMetric, fab.Violations[0].Kind)
}

func TestGenerate_RejectsGapSkill(t *testing.T) {
	client := llmtest.New().OnJSON(llmtest.CoverLetterPrompt, letterReply{
		Hook:             "I am applying for the role.",
		ValueProposition: "I run Kafka clusters in production.",
		FitNarrative:     "I like small teams.",
		Closing:          "Thank you.",
	})

	_, err := Generate(context.Background(), client, testInput())
	var fab *validation.FabricationError
	require.ErrorAs(t, err, &fab)
	assert.Equal(t, "Kafka", fab.Violations[0].Value)
}

func TestGenerate_FallsBackToTemplateOnUpstreamError(t *testing.T) {
	client := llmtest.New().OnError(llmtest.CoverLetterPrompt, &llm.APIError{Provider: llm.ProviderOpenAI, StatusCode: 400})

	letter, err := Generate(context.Background(), client, testInput())
	require.NoError(t, err)

	assert.Equal(t, "I am writing to apply for the Senior Backend Engineer role at Acme.", letter.Hook)
	assert.Equal(t, "Highlights from my experience: Built payment APIs in Go.", letter.ValueProposition)
	assert.Equal(t, "Most recently I have worked as Backend Engineer at Paystream.", letter.FitNarrative)
	assert.Len(t, letter.Parts(), 4)
	assert.Contains(t, letter.FullText, "\n\nThank you for considering my application.")
}

func TestGenerate_SchemaFailureIsNotMasked(t *testing.T) {
	client := llmtest.New().OnText(llmtest.CoverLetterPrompt, `{"hook": "only a hook"}`)

	_, err := Generate(context.Background(), client, testInput())
	var ee *llm.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 2, len(client.Calls()))
}

func TestGenerate_RequiresGroundedSet(t *testing.T) {
	in := testInput()
	in.Grounded = nil
	_, err := Generate(context.Background(), llmtest.New(), in)
	require.Error(t, err)
}
