package rewriting

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/llm/llmtest"
	"github.com/jonathan/cv-tailor/internal/matching"
	"github.com/jonathan/cv-tailor/internal/scoring"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/jonathan/cv-tailor/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const paystreamRole = "Role: Backend Engineer at Paystream"

func intPtr(v int) *int { return &v }

func testFacts() *types.CVFacts {
	return &types.CVFacts{
		PersonalInfo:        types.PersonalInfo{Name: "Jane Doe", Email: "jane@example.com", Location: "Berlin"},
		ProfessionalSummary: &types.ProfessionalSummary{OriginalText: "Backend engineer building payment systems."},
		Experience: []types.Experience{
			{
				ID: "exp_1", Company: "Paystream", Title: "Backend Engineer",
				StartDate: "2021-01", EndDate: "present", DurationMonths: intPtr(36),
				Responsibilities: []types.ResponsibilityFact{
					{OriginalText: "Built payment APIs in Go", ExtractedFacts: types.ExtractedFacts{Technologies: []string{"Go", "PostgreSQL"}}},
					{OriginalText: "Maintained the CI pipeline"},
				},
				Achievements: []types.Achievement{{OriginalText: "Increased checkout conversion by 15%", Quantified: true}},
			},
			{
				ID: "exp_2", Company: "Shopco", Title: "Support Analyst",
				StartDate: "2018-01", EndDate: "2020-12", DurationMonths: intPtr(35),
				Responsibilities: []types.ResponsibilityFact{{OriginalText: "Answered customer tickets"}},
				Achievements:     []types.Achievement{{OriginalText: "Reduced ticket backlog by 40%", Quantified: true}},
			},
		},
		Skills: types.Skills{
			ExplicitlyListed:       []string{"SQL", "Go", "Excel"},
			InferredFromExperience: []types.InferredSkill{{Skill: "API design", EvidenceSource: "Built payment APIs in Go"}},
		},
		Education: []types.Education{{Institution: "TU Berlin", Degree: "BSc", Field: "Computer Science", GraduationYear: "2017"}},
		Certifications: []types.Certification{
			{Name: "AWS Certified Developer", Status: types.CertCompleted},
			{Name: "Scrum Master", Status: types.CertExpired},
		},
		Projects: []types.Project{{Name: "ledger", Description: "Double-entry ledger in Go", Technologies: []string{"Go"}}},
	}
}

func testReqs() *types.JobRequirements {
	return &types.JobRequirements{
		JobTitle: "Senior Backend Engineer",
		Company:  "Acme",
		MustHave: []types.Requirement{
			{Category: types.CategoryTechnicalSkill, Description: "Go programming", Keywords: []string{"Go"}, Specificity: types.SpecificityExact},
			{Category: types.CategoryTechnicalSkill, Description: "PostgreSQL databases", Keywords: []string{"PostgreSQL"}, Specificity: types.SpecificityFlexible},
		},
		NiceToHave: []types.Requirement{
			{Category: types.CategoryTechnicalSkill, Description: "API design", Keywords: []string{"API design"}, Specificity: types.SpecificityFlexible},
			{Category: types.CategoryTechnicalSkill, Description: "Kafka", Keywords: []string{"Kafka"}, Specificity: types.SpecificityFlexible},
		},
		ATSKeywords: types.ATSKeywords{
			HighPriority:   []string{"Go", "PostgreSQL"},
			MediumPriority: []string{"API design"},
			Contextual:     []string{"payments"},
		},
	}
}

func testInput(facts *types.CVFacts, strictness types.Strictness) Input {
	reqs := testReqs()
	return Input{
		Facts:        facts,
		Requirements: reqs,
		Mapping:      matching.Map(reqs, facts, nil),
		Options:      types.TailorOptions{Strictness: strictness},
	}
}

func summaryClient() *llmtest.Client {
	return llmtest.New().OnJSON(llmtest.SummaryPrompt, map[string]any{
		"summary":       "Backend engineer building payment APIs in Go and PostgreSQL.",
		"keywords_used": []string{"Go", "PostgreSQL"},
		"explanation":   "Leads with the must-have stack",
	})
}

func rewriteClient() *llmtest.Client {
	return summaryClient().
		OnJSON(llmtest.BulletRewritesPrompt, map[string]any{"bullets": []any{}}).
		OnJSON(paystreamRole, map[string]any{"bullets": []map[string]any{
			{
				"source_id":          "exp_1/r0",
				"rewritten":          "Built payment APIs in Go backed by PostgreSQL",
				"keywords_used":      []string{"Go", "PostgreSQL", "Kafka"},
				"change_type":        "add_keyword",
				"target_requirement": "PostgreSQL databases",
			},
			{
				"source_id":   "exp_1/a0",
				"rewritten":   "Increased checkout conversion by 15% through faster payment flows",
				"change_type": "rewrite",
			},
			{"source_id": "exp_1/r1", "rewritten": "Maintained the CI pipeline", "change_type": "unchanged"},
			{"source_id": "exp_9/r0", "rewritten": "Invented bullet", "change_type": "rewrite"},
		}})
}

func findChange(log []types.ChangeLogEntry, section string, ct types.ChangeType) []types.ChangeLogEntry {
	var out []types.ChangeLogEntry
	for _, e := range log {
		if e.Section == section && e.ChangeType == ct {
			out = append(out, e)
		}
	}
	return out
}

func TestGenerate_ConservativeKeepsBulletsVerbatim(t *testing.T) {
	client := rewriteClient()
	facts := testFacts()

	out, err := Generate(context.Background(), client, testInput(facts, types.StrictnessConservative))
	require.NoError(t, err)

	assert.Equal(t, 0, client.CallsMatching(llmtest.BulletRewritesPrompt), "no bullet rewrites at conservative")
	assert.Equal(t, 1, client.CallsMatching(llmtest.SummaryPrompt))

	require.Len(t, out.CV.Experience, 2)
	assert.Equal(t, "exp_1", out.CV.Experience[0].SourceID)
	assert.Equal(t, "2021-01 - present", out.CV.Experience[0].Dates)
	bullets := out.CV.Experience[0].Bullets
	require.Len(t, bullets, 3)
	assert.Equal(t, "Built payment APIs in Go", bullets[0].Text)
	assert.Equal(t, "exp_1/r0", bullets[0].SourceID)
	assert.Equal(t, []string{"Go", "payments"}, bullets[0].KeywordsUsed)
	assert.Equal(t, "exp_1/a0", bullets[2].SourceID)

	assert.Equal(t, types.Header{
		Name:    "Jane Doe",
		Title:   "Backend Engineer",
		Contact: map[string]string{"email": "jane@example.com", "location": "Berlin"},
	}, out.CV.Header)

	assert.Equal(t, []string{"Go", "PostgreSQL"}, out.CV.Skills.Primary)
	assert.Empty(t, out.CV.Skills.Secondary)
	assert.Equal(t, []string{"SQL", "Excel"}, out.CV.Skills.Tools)
	assert.NotContains(t, out.CV.Skills.All(), "API design", "inferred skills are not listed at conservative")

	summary := findChange(out.ChangesLog, "summary", types.ChangeRewrite)
	require.Len(t, summary, 1)
	assert.True(t, summary[0].RequiresReview)
	require.NotNil(t, summary[0].Original)
	assert.Equal(t, "Backend engineer building payment systems.", *summary[0].Original)

	reorder := findChange(out.ChangesLog, "skills", types.ChangeReorder)
	require.Len(t, reorder, 1)
	assert.Equal(t, "SQL, Go, Excel", *reorder[0].Original)
	assert.Equal(t, "Go, SQL, Excel", reorder[0].New)

	added := findChange(out.ChangesLog, "skills", types.ChangeAddKeyword)
	require.Len(t, added, 1)
	assert.Equal(t, "PostgreSQL", added[0].New)
	assert.Empty(t, findChange(out.ChangesLog, "experience", types.ChangeRewrite))

	_, err = validation.NewGuardrail(facts, testReqs(), types.StrictnessConservative).Check(out)
	assert.NoError(t, err, "conservative draft is grounded")
}

func TestGenerate_ModerateRewritesBullets(t *testing.T) {
	client := rewriteClient()
	facts := testFacts()

	out, err := Generate(context.Background(), client, testInput(facts, types.StrictnessModerate))
	require.NoError(t, err)
	assert.Equal(t, 2, client.CallsMatching(llmtest.BulletRewritesPrompt), "one call per experience")

	bullets := out.CV.Experience[0].Bullets
	require.Len(t, bullets, 3)
	assert.Equal(t, "Built payment APIs in Go backed by PostgreSQL", bullets[0].Text)
	assert.Equal(t, []string{"Go", "PostgreSQL", "payments"}, bullets[0].KeywordsUsed, "Kafka is not allowed")
	assert.Equal(t, "Maintained the CI pipeline", bullets[1].Text)
	assert.Equal(t, "Increased checkout conversion by 15% through faster payment flows", bullets[2].Text)

	added := findChange(out.ChangesLog, "experience", types.ChangeAddKeyword)
	require.Len(t, added, 1)
	assert.Equal(t, "Built payment APIs in Go", *added[0].Original)
	assert.Equal(t, "Targets requirement: PostgreSQL databases", added[0].Justification)
	assert.Equal(t, types.ConfidenceHigh, added[0].Confidence)

	rewrites := findChange(out.ChangesLog, "experience", types.ChangeRewrite)
	require.Len(t, rewrites, 1)
	assert.Equal(t, "Improves relevance to the Senior Backend Engineer role", rewrites[0].Justification)

	assert.Contains(t, out.CV.Skills.Secondary, "API design")
	inferred := findChange(out.ChangesLog, "skills", types.ChangeAddKeyword)
	var review []string
	for _, e := range inferred {
		if e.RequiresReview {
			review = append(review, e.New)
		}
	}
	assert.Equal(t, []string{"API design"}, review)

	checked, err := validation.NewGuardrail(facts, testReqs(), types.StrictnessModerate).Check(out)
	require.NoError(t, err)
	require.NotEmpty(t, checked.BorderlineItems)
	assert.Equal(t, types.BorderlineInferred, checked.BorderlineItems[0].Category)
}

func TestGenerate_RewriteDroppingMustHaveKeywordIsDiscarded(t *testing.T) {
	client := summaryClient().
		OnJSON(llmtest.BulletRewritesPrompt, map[string]any{"bullets": []any{}}).
		OnJSON(paystreamRole, map[string]any{"bullets": []map[string]any{
			{"source_id": "exp_1/r0", "rewritten": "Built payment APIs", "change_type": "rewrite"},
		}})

	out, err := Generate(context.Background(), client, testInput(testFacts(), types.StrictnessAggressive))
	require.NoError(t, err)

	assert.Equal(t, "Built payment APIs in Go", out.CV.Experience[0].Bullets[0].Text)
	assert.Empty(t, findChange(out.ChangesLog, "experience", types.ChangeRewrite))
}

func TestGenerate_RewriteAddingDisallowedKeywordIsDiscarded(t *testing.T) {
	client := summaryClient().
		OnJSON(llmtest.BulletRewritesPrompt, map[string]any{"bullets": []any{}}).
		OnJSON(paystreamRole, map[string]any{"bullets": []map[string]any{
			{"source_id": "exp_1/r0", "rewritten": "Built payment APIs in Go streaming events through Kafka", "change_type": "add_keyword"},
			{"source_id": "exp_1/r1", "rewritten": "Maintained the CI pipeline for Go services", "change_type": "rewrite"},
		}})

	out, err := Generate(context.Background(), client, testInput(testFacts(), types.StrictnessAggressive))
	require.NoError(t, err)

	bullets := out.CV.Experience[0].Bullets
	assert.Equal(t, "Built payment APIs in Go", bullets[0].Text, "Kafka is a gap at every strictness")
	assert.Equal(t, "Maintained the CI pipeline for Go services", bullets[1].Text, "Go is allowed")
	assert.Empty(t, findChange(out.ChangesLog, "experience", types.ChangeAddKeyword))
	require.Len(t, findChange(out.ChangesLog, "experience", types.ChangeRewrite), 1)
}

func TestGenerate_ReordersExperienceOutsideConservative(t *testing.T) {
	facts := testFacts()
	facts.Experience[0], facts.Experience[1] = facts.Experience[1], facts.Experience[0]

	out, err := Generate(context.Background(), summaryClient(), testInput(facts, types.StrictnessConservative))
	require.NoError(t, err)
	assert.Equal(t, "exp_2", out.CV.Experience[0].SourceID)
	assert.Empty(t, findChange(out.ChangesLog, "experience", types.ChangeReorder))

	out, err = Generate(context.Background(), rewriteClient(), testInput(facts, types.StrictnessModerate))
	require.NoError(t, err)
	assert.Equal(t, "exp_1", out.CV.Experience[0].SourceID)
	reorder := findChange(out.ChangesLog, "experience", types.ChangeReorder)
	require.Len(t, reorder, 1)
	assert.Equal(t, "Support Analyst at Shopco; Backend Engineer at Paystream", *reorder[0].Original)
	assert.Equal(t, "Backend Engineer at Paystream; Support Analyst at Shopco", reorder[0].New)
}

func TestGenerate_DropsExpiredCertifications(t *testing.T) {
	out, err := Generate(context.Background(), summaryClient(), testInput(testFacts(), types.StrictnessConservative))
	require.NoError(t, err)

	assert.Equal(t, []types.TailoredCertification{{Name: "AWS Certified Developer"}}, out.CV.Certifications)
	removed := findChange(out.ChangesLog, "certifications", types.ChangeRemove)
	require.Len(t, removed, 1)
	assert.Equal(t, "Scrum Master", *removed[0].Original)
}

func TestGenerate_SameNamedProjectsAreCutSeparately(t *testing.T) {
	facts := testFacts()
	facts.Projects = []types.Project{
		{Name: "sandbox", Description: "Payments sandbox in Go backed by PostgreSQL", Technologies: []string{"Go"}},
		{Name: "alpha", Description: "Side project"},
		{Name: "beta", Description: "Side project"},
		{Name: "gamma", Description: "Side project"},
		{Name: "delta", Description: "Side project"},
		{Name: "sandbox", Description: "Knitting pattern generator"},
	}

	out, err := Generate(context.Background(), summaryClient(), testInput(facts, types.StrictnessConservative))
	require.NoError(t, err)

	require.Len(t, out.CV.Projects, 5)
	assert.Equal(t, "Payments sandbox in Go backed by PostgreSQL", out.CV.Projects[0].Description)
	for _, p := range out.CV.Projects {
		assert.NotEqual(t, "Knitting pattern generator", p.Description)
	}
	removed := findChange(out.ChangesLog, "projects", types.ChangeRemove)
	require.Len(t, removed, 1)
	assert.Equal(t, "sandbox", *removed[0].Original)
}

func TestGenerate_SummaryWithoutOriginal(t *testing.T) {
	facts := testFacts()
	facts.ProfessionalSummary = nil

	out, err := Generate(context.Background(), summaryClient(), testInput(facts, types.StrictnessConservative))
	require.NoError(t, err)

	entry := findChange(out.ChangesLog, "summary", types.ChangeRewrite)
	require.Len(t, entry, 1)
	assert.Nil(t, entry[0].Original)
	assert.True(t, strings.HasPrefix(entry[0].Justification, "Summary added"))
}

func TestGenerate_UserNotesAreQuoted(t *testing.T) {
	client := summaryClient()
	in := testInput(testFacts(), types.StrictnessConservative)
	in.Options.UserNotes = "Mention my open source work"

	_, err := Generate(context.Background(), client, in)
	require.NoError(t, err)
	assert.Contains(t, client.Calls()[0].Prompt, "[BEGIN QUOTED USER NOTES")
}

func TestGenerate_UpstreamErrorFails(t *testing.T) {
	client := llmtest.New().OnError(llmtest.SummaryPrompt, &llm.APIError{Provider: llm.ProviderGemini, StatusCode: 401})

	_, err := Generate(context.Background(), client, testInput(testFacts(), types.StrictnessConservative))
	var apiErr *llm.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 401, apiErr.StatusCode)
}

func TestGenerate_MustHaveCoverageIsMonotonic(t *testing.T) {
	coverage := func(out *types.TailoredOutput) int {
		var parts []string
		parts = append(parts, out.CV.Summary)
		for _, exp := range out.CV.Experience {
			for _, b := range exp.Bullets {
				parts = append(parts, b.Text)
			}
		}
		parts = append(parts, out.CV.Skills.All()...)
		tokens := scoring.NewTokenSet(strings.Join(parts, "\n"))
		n := 0
		for _, req := range testReqs().MustHave {
			for _, kw := range req.Keywords {
				if tokens.HasTerm(kw) {
					n++
				}
			}
		}
		return n
	}

	prev := -1
	for _, s := range []types.Strictness{types.StrictnessConservative, types.StrictnessModerate, types.StrictnessAggressive} {
		out, err := Generate(context.Background(), rewriteClient(), testInput(testFacts(), s))
		require.NoError(t, err)
		c := coverage(out)
		assert.GreaterOrEqual(t, c, prev, "coverage dropped at %s", s)
		prev = c
	}
}

func TestGenerate_RequiresInputs(t *testing.T) {
	_, err := Generate(context.Background(), llmtest.New(), Input{})
	require.Error(t, err)
}
