package experience

import (
	"testing"
	"time"

	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func TestAssignExperienceIDs(t *testing.T) {
	facts := &types.CVFacts{Experience: []types.Experience{
		{ID: ""},
		{ID: "exp_1"},
		{ID: "exp_1"},
		{ID: "custom"},
		{ID: "bad/id"},
	}}

	AssignExperienceIDs(facts)

	ids := make([]string, 0, len(facts.Experience))
	for _, e := range facts.Experience {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"exp_1", "exp_2", "exp_3", "custom", "exp_4"}, ids)
}

func TestDurationMonths(t *testing.T) {
	tests := []struct {
		name   string
		start  string
		end    string
		want   int
		wantOK bool
	}{
		{"year-month range", "2020-01", "2021-07", 18, true},
		{"present", "2023-06", "present", 12, true},
		{"present case-insensitive", "2024-01", "Present", 5, true},
		{"year only", "2019", "2021", 24, true},
		{"unparsable start", "last spring", "2021-01", 0, false},
		{"empty end", "2020-01", "", 0, false},
		{"end before start", "2022-01", "2021-01", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := durationMonths(tt.start, tt.end, fixedNow)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeDurations_KeepsExisting(t *testing.T) {
	facts := &types.CVFacts{Experience: []types.Experience{
		{StartDate: "2020-01", EndDate: "2020-07", DurationMonths: intPtr(99)},
		{StartDate: "2020-01", EndDate: "2020-07"},
		{StartDate: "?", EndDate: "2020-07"},
	}}

	ComputeDurations(facts, fixedNow)

	assert.Equal(t, 99, *facts.Experience[0].DurationMonths)
	assert.Equal(t, 6, *facts.Experience[1].DurationMonths)
	assert.Nil(t, facts.Experience[2].DurationMonths)
}

func TestFilterInferredSkills(t *testing.T) {
	facts := &types.CVFacts{
		Experience: []types.Experience{{
			ID:           "exp_1",
			Achievements: []types.Achievement{{OriginalText: "Led a team of 5 engineers to ship the billing platform."}},
		}},
		Skills: types.Skills{
			ExplicitlyListed: []string{"Go"},
			InferredFromExperience: []types.InferredSkill{
				{Skill: "team leadership", EvidenceSource: "led a team of 5 engineers to ship the billing platform"},
				{Skill: "golang", EvidenceSource: "Led a team of 5 engineers"},
				{Skill: "Kubernetes", EvidenceSource: "Ran Kubernetes clusters in production"},
				{Skill: "Mentoring", EvidenceSource: "exp_1"},
				{Skill: "Public speaking", EvidenceSource: "Spoke at GopherCon about service meshes"},
				{Skill: "Hiring", EvidenceSource: ""},
			},
		},
	}
	raw := "Jane Doe\nSpoke at GopherCon about service meshes.\n"

	FilterInferredSkills(facts, raw)

	var names []string
	for _, s := range facts.Skills.InferredFromExperience {
		names = append(names, s.Skill)
	}
	assert.Equal(t, []string{"team leadership", "Mentoring", "Public speaking"}, names,
		"unbacked and explicit-duplicate skills are dropped")
}

func TestNormalizeAchievements(t *testing.T) {
	facts := &types.CVFacts{Experience: []types.Experience{{
		Achievements: []types.Achievement{
			{OriginalText: "Increased sales by 15%", Quantified: false, Metrics: &types.Metric{Type: types.MetricPercentage, Value: "15%"}},
			{OriginalText: "Increased sales by 15%", Metrics: &types.Metric{Value: "25%"}},
			{OriginalText: "Improved onboarding", Quantified: true, Metrics: &types.Metric{Value: "40%"}},
			{OriginalText: "Cut costs by $2M", Metrics: &types.Metric{Type: types.MetricCurrency, Value: "$2M"}},
		},
	}}}

	NormalizeAchievements(facts)

	a := facts.Experience[0].Achievements
	assert.True(t, a[0].Quantified)
	require.NotNil(t, a[0].Metrics)
	assert.Nil(t, a[1].Metrics, "embellished metric dropped")
	assert.False(t, a[2].Quantified)
	assert.Nil(t, a[2].Metrics)
	require.NotNil(t, a[3].Metrics)
}

func TestFilterSummaryClaims(t *testing.T) {
	facts := &types.CVFacts{ProfessionalSummary: &types.ProfessionalSummary{
		OriginalText:    "Engineer with 6 years of experience.",
		ExtractedClaims: []string{"6 years of experience", "10 years of leadership", "Strong communicator", " "},
	}}

	FilterSummaryClaims(facts)
	assert.Equal(t, []string{"6 years of experience", "Strong communicator"}, facts.ProfessionalSummary.ExtractedClaims)
}

func TestNormalize(t *testing.T) {
	facts := &types.CVFacts{
		Skills: types.Skills{ExplicitlyListed: []string{"golang", "Go", "k8s"}},
		Experience: []types.Experience{{
			StartDate: "2022-06",
			EndDate:   "present",
			Responsibilities: []types.ResponsibilityFact{{
				OriginalText:   "Ran deployments",
				ExtractedFacts: types.ExtractedFacts{Technologies: []string{"k8s", "Kubernetes"}},
			}},
		}},
		Certifications: []types.Certification{{Name: " PMP ", Status: "unknown"}},
	}

	require.NoError(t, Normalize(facts, "", fixedNow))

	assert.Equal(t, []string{"Go", "Kubernetes"}, facts.Skills.ExplicitlyListed)
	assert.Equal(t, "exp_1", facts.Experience[0].ID)
	assert.Equal(t, 24, *facts.Experience[0].DurationMonths)
	assert.Equal(t, []string{"Kubernetes"}, facts.Experience[0].Responsibilities[0].ExtractedFacts.Technologies)
	assert.NotNil(t, facts.Experience[0].Achievements)
	assert.Equal(t, "PMP", facts.Certifications[0].Name)
	assert.Equal(t, types.CertCompleted, facts.Certifications[0].Status)
	assert.NotNil(t, facts.Projects)
}

func TestNormalize_Nil(t *testing.T) {
	var ne *NormalizationError
	require.ErrorAs(t, Normalize(nil, "", fixedNow), &ne)
}
