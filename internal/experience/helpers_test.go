package experience

import (
	"testing"

	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/stretchr/testify/assert"
)

func sampleFacts() *types.CVFacts {
	return &types.CVFacts{
		Experience: []types.Experience{
			{
				ID: "exp_1", Company: "Paystream", Title: "Backend Engineer", DurationMonths: intPtr(30),
				Responsibilities: []types.ResponsibilityFact{{
					OriginalText:   "Built payment APIs in Go",
					ExtractedFacts: types.ExtractedFacts{Technologies: []string{"Go", "gRPC"}},
				}},
			},
			{
				ID: "exp_2", Company: "Shopco", Title: "Support Analyst", DurationMonths: intPtr(20),
				Achievements: []types.Achievement{{OriginalText: "Reduced ticket backlog by 40%"}},
			},
		},
		Skills: types.Skills{
			ExplicitlyListed:       []string{"Go", "SQL"},
			InferredFromExperience: []types.InferredSkill{{Skill: "API design", EvidenceSource: "Built payment APIs in Go"}},
		},
		Projects:       []types.Project{{Name: "ledger", Description: "Double-entry ledger", Technologies: []string{"Rust", "go"}}},
		Certifications: []types.Certification{{Name: "AWS Solutions Architect"}},
	}
}

func TestTotalYears(t *testing.T) {
	assert.Equal(t, 4.2, TotalYears(sampleFacts()))
	assert.Equal(t, 0.0, TotalYears(&types.CVFacts{}))
}

func TestRelevantYears(t *testing.T) {
	facts := sampleFacts()
	assert.Equal(t, 2.5, RelevantYears(facts, []string{"go"}))
	assert.Equal(t, 4.2, RelevantYears(facts, []string{"grpc", "backlog"}))
	assert.Equal(t, 0.0, RelevantYears(facts, nil))
}

func TestAllSkills(t *testing.T) {
	assert.Equal(t, []string{"Go", "SQL", "API design", "gRPC", "Rust"}, AllSkills(sampleFacts()))
}

func TestCorpus(t *testing.T) {
	corpus := Corpus(sampleFacts())
	assert.Contains(t, corpus, "reduced ticket backlog by 40%")
	assert.Contains(t, corpus, "paystream")
	assert.Contains(t, corpus, "aws solutions architect")
	assert.NotContains(t, corpus, "Paystream", "corpus is lower-cased")
	assert.NotContains(t, corpus, "api design", "inferred skills are not stated")
}

func TestMostRecentTitle(t *testing.T) {
	assert.Equal(t, "Backend Engineer", MostRecentTitle(sampleFacts()))
	assert.Equal(t, "", MostRecentTitle(&types.CVFacts{}))
}
