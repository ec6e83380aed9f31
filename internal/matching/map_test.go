package matching

import (
	"testing"

	"github.com/jonathan/cv-tailor/internal/scoring"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func sampleFacts() *types.CVFacts {
	return &types.CVFacts{
		PersonalInfo: types.PersonalInfo{Name: "Jane Doe"},
		Experience: []types.Experience{
			{
				ID: "exp_1", Company: "Paystream", Title: "Backend Engineer", DurationMonths: intPtr(30),
				Responsibilities: []types.ResponsibilityFact{{
					OriginalText:   "Built payment APIs in Go",
					ExtractedFacts: types.ExtractedFacts{Technologies: []string{"Go", "gRPC"}},
				}},
				Achievements: []types.Achievement{{OriginalText: "Increased sales by 15%", Quantified: true}},
			},
			{
				ID: "exp_2", Company: "Shopco", Title: "Support Analyst", DurationMonths: intPtr(20),
				Achievements: []types.Achievement{{OriginalText: "Reduced ticket backlog by 40%", Quantified: true}},
			},
		},
		Skills: types.Skills{
			ExplicitlyListed:       []string{"Go", "SQL"},
			InferredFromExperience: []types.InferredSkill{{Skill: "API design", EvidenceSource: "Built payment APIs in Go"}},
		},
		Education: []types.Education{{Institution: "TU Berlin", Degree: "BSc", Field: "Computer Science"}},
	}
}

func sampleReqs() *types.JobRequirements {
	return &types.JobRequirements{
		JobTitle: "Backend Engineer",
		MustHave: []types.Requirement{
			{Category: types.CategoryTechnicalSkill, Description: "Go", Keywords: []string{"Go"}, Specificity: types.SpecificityExact},
			{Category: types.CategoryExperience, Description: "Sales growth experience", Keywords: []string{"sales growth"}, Specificity: types.SpecificityFlexible},
			{Category: types.CategoryCertification, Description: "PMP certification", Keywords: []string{"PMP"}, Specificity: types.SpecificityExact},
			{Category: types.CategoryExperience, Description: "5+ years of backend development", Keywords: []string{"backend"}, YearsRequired: floatPtr(5), Specificity: types.SpecificityFlexible},
		},
		NiceToHave: []types.Requirement{
			{Category: types.CategoryTechnicalSkill, Description: "Kafka", Keywords: []string{"Kafka"}, Specificity: types.SpecificityFlexible},
			{Category: types.CategoryEducation, Description: "Computer science degree", Keywords: []string{"Computer Science"}, Specificity: types.SpecificityFlexible},
		},
	}
}

func TestMap(t *testing.T) {
	m := Map(sampleReqs(), sampleFacts(), scoring.Heuristic{})
	require.Len(t, m.Entries, 6)

	tests := []struct {
		index     int
		bucket    types.Bucket
		match     types.MatchType
		relevance int
		sourceID  string
		hasGap    bool
		severity  types.GapSeverity
	}{
		{0, types.BucketMustHave, types.MatchDirect, 100, "exp_1/r0", false, types.GapNone},
		{1, types.BucketMustHave, types.MatchDirect, 100, "exp_1/a0", false, types.GapNone},
		{2, types.BucketMustHave, types.MatchGap, 0, "", true, types.GapCritical},
		{3, types.BucketMustHave, types.MatchPartial, 60, "exp_1", true, types.GapMinor},
		{4, types.BucketNiceToHave, types.MatchGap, 0, "", true, types.GapMinor},
		{5, types.BucketNiceToHave, types.MatchDirect, 77, "edu_0", false, types.GapNone},
	}
	for _, tt := range tests {
		e := m.Entries[tt.index]
		desc := e.Requirement.Description
		assert.Equal(t, tt.bucket, e.Bucket, desc)
		assert.Equal(t, tt.match, e.MatchType, desc)
		assert.Equal(t, tt.relevance, e.RelevanceScore, desc)
		assert.Equal(t, tt.hasGap, e.Gap.HasGap, desc)
		assert.Equal(t, tt.severity, e.Gap.Severity, desc)
		if tt.sourceID == "" {
			assert.Nil(t, e.Evidence, desc)
			assert.NotEmpty(t, e.Gap.MitigationOptions, "gaps carry mitigation options")
		} else {
			require.NotNil(t, e.Evidence, desc)
			assert.Equal(t, tt.sourceID, e.Evidence.SourceID, desc)
		}
	}

	assert.Equal(t, "Increased sales by 15%", m.Entries[1].Evidence.OriginalText)
	assert.Contains(t, m.Entries[3].Evidence.OriginalText, "2.5 of 5 required years")

	s := m.Summary
	assert.Equal(t, types.Coverage{Matched: 3, Total: 4, Ratio: 0.75}, s.MustHaveCoverage)
	assert.Equal(t, types.Coverage{Matched: 1, Total: 2, Ratio: 0.5}, s.NiceToHaveCoverage)
	assert.Equal(t, 0, s.InferredCoverage.Total)
	assert.Equal(t, 68, s.Score)
	assert.Equal(t, []string{"Go", "Sales growth experience"}, s.StrongestMatches)
	assert.Equal(t, []string{"PMP certification"}, s.CriticalGaps)
	assert.Equal(t, []string{"Go", "sales growth", "backend", "Computer Science"}, s.KeywordCoverage.PresentInCV)
	assert.Equal(t, []string{"PMP", "Kafka"}, s.KeywordCoverage.GenuinelyMissing)
}

func TestMap_Deterministic(t *testing.T) {
	first := Map(sampleReqs(), sampleFacts(), nil)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Map(sampleReqs(), sampleFacts(), nil))
	}
}

func TestMap_InferredSkillIsTransferable(t *testing.T) {
	reqs := &types.JobRequirements{MustHave: []types.Requirement{
		{Category: types.CategoryTechnicalSkill, Description: "API design", Keywords: []string{"API design"}},
	}}

	m := Map(reqs, sampleFacts(), scoring.Heuristic{})
	e := m.Entries[0]
	assert.Equal(t, types.MatchTransferable, e.MatchType)
	require.NotNil(t, e.Evidence)
	assert.True(t, e.Evidence.Inferred)
	assert.Equal(t, "inferred_skill_0", e.Evidence.SourceID)
}

func TestMap_ExpiredCertificationIsNoEvidence(t *testing.T) {
	facts := sampleFacts()
	facts.Certifications = []types.Certification{{Name: "PMP", Status: types.CertExpired}}

	m := Map(sampleReqs(), facts, nil)
	assert.Equal(t, types.MatchGap, m.Entries[2].MatchType)

	facts.Certifications[0].Status = types.CertCompleted
	m = Map(sampleReqs(), facts, nil)
	assert.Equal(t, types.MatchDirect, m.Entries[2].MatchType)
	assert.Empty(t, m.Summary.CriticalGaps)
}

func TestMap_YearsWithoutKeywordsUseTotal(t *testing.T) {
	reqs := &types.JobRequirements{MustHave: []types.Requirement{
		{Category: types.CategoryExperience, Description: "4 years of professional experience", YearsRequired: floatPtr(4)},
	}}

	m := Map(reqs, sampleFacts(), nil)
	assert.Equal(t, types.MatchDirect, m.Entries[0].MatchType)
	assert.Equal(t, 90, m.Entries[0].RelevanceScore)
	assert.Equal(t, "exp_1", m.Entries[0].Evidence.SourceID)
}
